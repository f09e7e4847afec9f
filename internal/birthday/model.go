// Package birthday implements the birthday leave benefit: one extra
// paid day per calendar year, taken during the teacher's birth month.
// Birthday requests share the lifecycle states of regular leave but
// never touch the balance ledger.
package birthday

import (
	"time"

	"github.com/campushr/campushr/internal/leave"
)

// Request is a birthday leave ask for one calendar year.
type Request struct {
	ID           int64
	TeacherID    int64
	Year         int
	Date         time.Time
	Status       leave.Status
	DecisionNote string
	CreatedAt    time.Time
	DecidedAt    *time.Time
	CancelledAt  *time.Time
}

// Open reports whether the request still occupies the teacher's yearly
// slot.
func (r Request) Open() bool {
	return r.Status == leave.StatusPending || r.Status == leave.StatusApproved
}
