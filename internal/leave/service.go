package leave

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/campushr/campushr/internal/directory"
	"github.com/campushr/campushr/internal/entitlement"
	"github.com/campushr/campushr/internal/periods"
	"github.com/campushr/campushr/internal/shared"
)

// Service orchestrates the request lifecycle. Status transitions ride
// compare-and-swap updates and every transition that moves days runs in
// the same transaction as its ledger mutation.
type Service struct {
	logger    *slog.Logger
	repo      RepositoryPort
	ledger    *Ledger
	directory *directory.Service
	resolver  *entitlement.Resolver
	periods   *periods.Service
	decisions *shared.DecisionRecorder
	now       func() time.Time
}

// NewService constructs the lifecycle service.
func NewService(logger *slog.Logger, repo RepositoryPort, ledger *Ledger, dir *directory.Service, resolver *entitlement.Resolver, per *periods.Service, decisions *shared.DecisionRecorder) *Service {
	return &Service{
		logger:    logger,
		repo:      repo,
		ledger:    ledger,
		directory: dir,
		resolver:  resolver,
		periods:   per,
		decisions: decisions,
		now:       time.Now,
	}
}

// WithClock overrides the time source, used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) today() time.Time {
	t := s.now().UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Submit registers a new pending request for the active period.
func (s *Service) Submit(ctx context.Context, teacherID int64, date time.Time, reason string) (Request, error) {
	teacher, err := s.directory.GetTeacher(ctx, teacherID)
	if err != nil {
		return Request{}, err
	}
	if !teacher.Active {
		return Request{}, shared.ErrInactiveTeacher
	}

	period, err := s.periods.GetActive(ctx)
	if err != nil {
		return Request{}, err
	}
	date = date.UTC().Truncate(24 * time.Hour)
	if date.Before(s.today()) {
		return Request{}, fmt.Errorf("%w: date is in the past", shared.ErrInvalidDate)
	}
	if date.Before(period.StartDate) || date.After(period.EndDate) {
		return Request{}, fmt.Errorf("%w: date falls outside the active period", shared.ErrInvalidDate)
	}

	pending, err := s.repo.HasPending(ctx, teacherID, period.ID)
	if err != nil {
		return Request{}, err
	}
	if pending {
		return Request{}, shared.ErrPendingExists
	}
	open, err := s.repo.HasOpenOnDate(ctx, teacherID, date)
	if err != nil {
		return Request{}, err
	}
	if open {
		return Request{}, shared.ErrDuplicateDate
	}

	// Fast pre-check; the authoritative check happens again under the
	// balance row lock at approval time.
	balance, err := s.ledger.BalanceFor(ctx, teacherID, period.ID)
	if err != nil {
		return Request{}, err
	}
	if balance.Available <= 0 {
		return Request{}, shared.ErrInsufficientBalance
	}

	req, err := s.repo.Create(ctx, Request{
		TeacherID: teacherID,
		PeriodID:  period.ID,
		Date:      date,
		Reason:    reason,
	})
	if err != nil {
		return Request{}, err
	}
	s.record(ctx, req.ID, teacherID, shared.DecisionSubmit, reason)
	s.logger.Info("leave request submitted",
		slog.Int64("request_id", req.ID),
		slog.Int64("teacher_id", teacherID),
		slog.String("date", date.Format("2006-01-02")))
	return req, nil
}

// Approve moves a pending request to approved and consumes one day.
// The balance row lock serialises concurrent approvals for the same
// teacher, so the allowance cannot be oversubscribed.
func (s *Service) Approve(ctx context.Context, requestID, actorID int64, note string) (Request, error) {
	current, err := s.repo.Get(ctx, requestID)
	if err != nil {
		return Request{}, err
	}
	if !CanTransition(current.Status, StatusApproved) {
		return Request{}, fmt.Errorf("%w: cannot approve a %s request", shared.ErrInvalidTransition, current.Status)
	}

	class, err := s.directory.GetClassification(ctx, current.TeacherID)
	if err != nil {
		return Request{}, err
	}
	ent, err := s.resolver.Resolve(ctx, class)
	if err != nil {
		return Request{}, fmt.Errorf("leave: resolve entitlement: %w", err)
	}

	var approved Request
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.LockBalance(ctx, current.TeacherID, current.PeriodID); err != nil {
			return err
		}

		if ent.Renewal == entitlement.CadenceMonthly {
			// Monthly entitlements renew per calendar month of the leave
			// date; the recount under the row lock is the guard.
			used, err := tx.CountApprovedInMonth(ctx, current.TeacherID, current.PeriodID, current.Date)
			if err != nil {
				return err
			}
			if used >= ent.Allowance {
				return shared.ErrInsufficientBalance
			}
		}

		approved, err = tx.UpdateStatus(ctx, requestID, StatusPending, StatusApproved, note)
		if err != nil {
			return err
		}

		// Period entitlements enforce their cap in the increment itself;
		// with an allowance of zero the guarded update matches no row.
		limit := ent.Allowance
		if ent.Renewal == entitlement.CadenceMonthly {
			limit = -1
		}
		return tx.IncrementUsed(ctx, current.TeacherID, current.PeriodID, limit)
	})
	if err != nil {
		return Request{}, err
	}

	s.record(ctx, requestID, actorID, shared.DecisionApprove, note)
	s.logger.Info("leave request approved",
		slog.Int64("request_id", requestID),
		slog.Int64("teacher_id", current.TeacherID),
		slog.Int64("actor_id", actorID))
	return approved, nil
}

// Reject declines a request. Rejecting an already approved request
// refunds the consumed day in the same transaction.
func (s *Service) Reject(ctx context.Context, requestID, actorID int64, note string) (Request, error) {
	current, err := s.repo.Get(ctx, requestID)
	if err != nil {
		return Request{}, err
	}
	if !CanTransition(current.Status, StatusRejected) {
		return Request{}, fmt.Errorf("%w: cannot reject a %s request", shared.ErrInvalidTransition, current.Status)
	}

	var rejected Request
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		wasApproved := current.Status == StatusApproved
		if wasApproved {
			if _, err := tx.LockBalance(ctx, current.TeacherID, current.PeriodID); err != nil {
				return err
			}
		}
		rejected, err = tx.UpdateStatus(ctx, requestID, current.Status, StatusRejected, note)
		if err != nil {
			return err
		}
		if wasApproved {
			return tx.DecrementUsed(ctx, current.TeacherID, current.PeriodID)
		}
		return nil
	})
	if err != nil {
		return Request{}, err
	}

	s.record(ctx, requestID, actorID, shared.DecisionReject, note)
	s.logger.Info("leave request rejected",
		slog.Int64("request_id", requestID),
		slog.Int64("actor_id", actorID),
		slog.Bool("refunded", current.Status == StatusApproved))
	return rejected, nil
}

// Cancel lets the owner withdraw a pending request. Approved requests
// cannot be cancelled by their owner; an administrator must reject them.
func (s *Service) Cancel(ctx context.Context, requestID, teacherID int64) (Request, error) {
	current, err := s.repo.Get(ctx, requestID)
	if err != nil {
		return Request{}, err
	}
	if current.TeacherID != teacherID {
		return Request{}, shared.ErrNotOwner
	}
	if current.Status != StatusPending {
		return Request{}, fmt.Errorf("%w: only pending requests can be cancelled", shared.ErrInvalidTransition)
	}
	if current.Date.Before(s.today()) {
		return Request{}, fmt.Errorf("%w: the requested date has already passed", shared.ErrInvalidTransition)
	}

	var cancelled Request
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		cancelled, err = tx.UpdateStatus(ctx, requestID, StatusPending, StatusCancelled, "")
		return err
	})
	if err != nil {
		return Request{}, err
	}

	s.record(ctx, requestID, teacherID, shared.DecisionCancel, "")
	s.logger.Info("leave request cancelled",
		slog.Int64("request_id", requestID),
		slog.Int64("teacher_id", teacherID))
	return cancelled, nil
}

// Delete removes the owner's pending request entirely, freeing the
// date for a new submission.
func (s *Service) Delete(ctx context.Context, requestID, teacherID int64) error {
	current, err := s.repo.Get(ctx, requestID)
	if err != nil {
		return err
	}
	if current.TeacherID != teacherID {
		return shared.ErrNotOwner
	}
	if err := s.repo.DeletePending(ctx, requestID); err != nil {
		return err
	}
	s.logger.Info("leave request deleted",
		slog.Int64("request_id", requestID),
		slog.Int64("teacher_id", teacherID))
	return nil
}

// ListMine returns the teacher's requests for the active period.
func (s *Service) ListMine(ctx context.Context, teacherID int64) ([]Request, error) {
	period, err := s.periods.GetActive(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByTeacher(ctx, teacherID, period.ID)
}

// ListByStatus returns the active period's requests in a given state,
// used by the admin review queue.
func (s *Service) ListByStatus(ctx context.Context, status Status) ([]Request, error) {
	period, err := s.periods.GetActive(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByStatus(ctx, period.ID, status)
}

// BalanceFor reports the current balance for the active period.
func (s *Service) BalanceFor(ctx context.Context, teacherID int64) (Balance, error) {
	period, err := s.periods.GetActive(ctx)
	if err != nil {
		return Balance{}, err
	}
	return s.ledger.BalanceFor(ctx, teacherID, period.ID)
}

// PeriodSummary aggregates per-teacher request totals for the active
// period.
func (s *Service) PeriodSummary(ctx context.Context) ([]TeacherTotals, error) {
	period, err := s.periods.GetActive(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.PeriodSummary(ctx, period.ID)
}

func (s *Service) record(ctx context.Context, requestID, actorID int64, action shared.DecisionAction, note string) {
	if s.decisions == nil {
		return
	}
	log := shared.DecisionLog{Module: "leave", RefID: requestID, ActorID: actorID, Action: action, Note: note}
	if err := s.decisions.Record(ctx, log); err != nil {
		s.logger.Warn("record decision", slog.Any("error", err))
	}
}
