package shared

import "context"

// Identity describes the authenticated caller as resolved by the
// identity boundary. TeacherID is zero for admin-only accounts.
type Identity struct {
	AccountID int64
	TeacherID int64
	Email     string
	Admin     bool
}

type identityContextKey struct{}

// ContextWithIdentity stores the caller identity in context.
func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the caller identity from context.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityContextKey{}).(*Identity)
	return id
}
