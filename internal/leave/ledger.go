package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/campushr/campushr/internal/directory"
	"github.com/campushr/campushr/internal/entitlement"
)

// Ledger computes entitlement balances. The persisted used counter
// covers the whole period; for monthly-renewal entitlements the
// effective consumption is the count of approved requests dated in the
// reference month, so the allowance renews without touching the stored
// counter.
type Ledger struct {
	repo      RepositoryPort
	directory *directory.Service
	resolver  *entitlement.Resolver
	now       func() time.Time
}

// NewLedger constructs a ledger.
func NewLedger(repo RepositoryPort, dir *directory.Service, resolver *entitlement.Resolver) *Ledger {
	return &Ledger{repo: repo, directory: dir, resolver: resolver, now: time.Now}
}

// WithClock overrides the time source, used by tests.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// BalanceFor resolves the teacher's entitlement and computes the
// current balance for the period.
func (l *Ledger) BalanceFor(ctx context.Context, teacherID, periodID int64) (Balance, error) {
	class, err := l.directory.GetClassification(ctx, teacherID)
	if err != nil {
		return Balance{}, err
	}
	ent, err := l.resolver.Resolve(ctx, class)
	if err != nil {
		return Balance{}, fmt.Errorf("leave: resolve entitlement: %w", err)
	}

	var used int
	switch ent.Renewal {
	case entitlement.CadenceMonthly:
		used, err = l.repo.CountApprovedInMonth(ctx, teacherID, periodID, l.now().UTC())
	default:
		used, err = l.repo.GetUsed(ctx, teacherID, periodID)
	}
	if err != nil {
		return Balance{}, err
	}

	available := ent.Allowance - used
	if available < 0 {
		available = 0
	}
	return Balance{
		TeacherID: teacherID,
		PeriodID:  periodID,
		Allowance: ent.Allowance,
		Used:      used,
		Available: available,
		Renewal:   ent.Renewal,
	}, nil
}
