// Package auth implements staff authentication: password login against
// the account table and opaque bearer tokens stored in Redis.
package auth

import "time"

// Account is a staff login. TeacherID is nil for accounts that only
// administer the portal and take no leave themselves.
type Account struct {
	ID           int64
	Email        string
	PasswordHash string
	TeacherID    *int64
	Admin        bool
	Active       bool
	CreatedAt    time.Time
}
