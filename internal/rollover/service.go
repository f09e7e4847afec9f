// Package rollover closes out expired periods: it deactivates the
// period, rejects every request still pending against it and zeroes
// the balance counters so the next activation starts clean.
package rollover

import (
	"context"
	"log/slog"
	"time"

	"github.com/campushr/campushr/internal/periods"
)

// closedNote is stamped on requests rejected by the sweep so the
// history distinguishes them from human decisions.
const closedNote = "period closed"

// Closed reports the effects of closing one period.
type Closed struct {
	// Swept is false when a concurrent sweep already deactivated the
	// period; all counters are then zero.
	Swept            bool
	RejectedLeave    int64
	RejectedBirthday int64
	ResetBalances    int64
}

// Store is the transactional persistence behind the sweep.
type Store interface {
	FindExpired(ctx context.Context, ref time.Time) ([]periods.Period, error)
	// CloseOut deactivates the period and applies the close effects in
	// one transaction. The deactivation is a compare-and-swap on the
	// active flag, so concurrent sweeps commit the close exactly once.
	CloseOut(ctx context.Context, p periods.Period, note string) (Closed, error)
}

// Report summarises one sweep run.
type Report struct {
	SweptPeriods     []int64 `json:"swept_periods"`
	RejectedLeave    int64   `json:"rejected_leave"`
	RejectedBirthday int64   `json:"rejected_birthday"`
	ResetBalances    int64   `json:"reset_balances"`
	StartedAt        string  `json:"started_at"`
	FinishedAt       string  `json:"finished_at"`
}

// Service runs the period close sweep.
type Service struct {
	logger *slog.Logger
	store  Store
	now    func() time.Time
}

// NewService constructs the rollover service.
func NewService(logger *slog.Logger, store Store) *Service {
	return &Service{logger: logger, store: store, now: time.Now}
}

// WithClock overrides the time source, used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Sweep closes every active period whose end date has passed. Re-runs
// are harmless: a period already closed is skipped by the store's
// compare-and-swap.
func (s *Service) Sweep(ctx context.Context) (Report, error) {
	started := s.now().UTC()
	report := Report{SweptPeriods: []int64{}, StartedAt: started.Format(time.RFC3339)}

	expired, err := s.store.FindExpired(ctx, started)
	if err != nil {
		return report, err
	}

	for _, p := range expired {
		closed, err := s.store.CloseOut(ctx, p, closedNote)
		if err != nil {
			s.logger.Error("sweep period",
				slog.Int64("period_id", p.ID),
				slog.Any("error", err))
			return report, err
		}
		if !closed.Swept {
			continue
		}
		report.SweptPeriods = append(report.SweptPeriods, p.ID)
		report.RejectedLeave += closed.RejectedLeave
		report.RejectedBirthday += closed.RejectedBirthday
		report.ResetBalances += closed.ResetBalances
	}

	report.FinishedAt = s.now().UTC().Format(time.RFC3339)
	if len(report.SweptPeriods) > 0 {
		s.logger.Info("rollover sweep finished",
			slog.Int("periods", len(report.SweptPeriods)),
			slog.Int64("rejected_leave", report.RejectedLeave),
			slog.Int64("rejected_birthday", report.RejectedBirthday),
			slog.Int64("reset_balances", report.ResetBalances))
	}
	return report, nil
}
