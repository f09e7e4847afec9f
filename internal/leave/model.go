// Package leave implements the paid-leave request lifecycle and the
// balance ledger behind it. The ledger counter is the single source of
// truth for days consumed; it is mutated only here, inside the same
// transaction as the request state change that justifies the mutation.
package leave

import (
	"time"

	"github.com/campushr/campushr/internal/entitlement"
)

// Status enumerates request lifecycle states.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// transitions is the authoritative state machine. rejected and
// cancelled are terminal; approved can only be reversed by an
// administrative rejection.
var transitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved: {StatusRejected},
}

// CanTransition reports whether the lifecycle allows from → to.
func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Request represents one calendar date's leave ask.
type Request struct {
	ID           int64
	TeacherID    int64
	PeriodID     int64
	Date         time.Time
	Reason       string
	Status       Status
	DecisionNote string
	CreatedAt    time.Time
	DecidedAt    *time.Time
	CancelledAt  *time.Time
}

// Open reports whether the request still blocks its date: a pending or
// approved request prevents another ask for the same day.
func (r Request) Open() bool {
	return r.Status == StatusPending || r.Status == StatusApproved
}

// Balance is the computed entitlement state for a (teacher, period) pair.
type Balance struct {
	TeacherID int64
	PeriodID  int64
	Allowance int
	Used      int
	Available int
	Renewal   entitlement.Cadence
}

// TeacherTotals aggregates a teacher's requests for the admin summary.
type TeacherTotals struct {
	TeacherID int64
	FirstName string
	LastName  string
	Pending   int
	Approved  int
	Rejected  int
	Cancelled int
}
