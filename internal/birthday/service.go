package birthday

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/campushr/campushr/internal/directory"
	"github.com/campushr/campushr/internal/leave"
	"github.com/campushr/campushr/internal/shared"
)

// Service enforces the birthday benefit rules: the requested date must
// fall in the teacher's birth month, and each calendar year holds at
// most one open request per teacher.
type Service struct {
	logger    *slog.Logger
	repo      Repository
	directory *directory.Service
	decisions *shared.DecisionRecorder
	now       func() time.Time
}

// NewService constructs the birthday service.
func NewService(logger *slog.Logger, repo Repository, dir *directory.Service, decisions *shared.DecisionRecorder) *Service {
	return &Service{logger: logger, repo: repo, directory: dir, decisions: decisions, now: time.Now}
}

// WithClock overrides the time source, used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Submit registers a birthday request for the year of the given date.
func (s *Service) Submit(ctx context.Context, teacherID int64, date time.Time) (Request, error) {
	teacher, err := s.directory.GetTeacher(ctx, teacherID)
	if err != nil {
		return Request{}, err
	}
	if !teacher.Active {
		return Request{}, shared.ErrInactiveTeacher
	}
	if teacher.BirthDate == nil {
		return Request{}, fmt.Errorf("%w: no birth date on record", shared.ErrValidation)
	}

	date = date.UTC().Truncate(24 * time.Hour)
	if date.Month() != teacher.BirthDate.Month() {
		return Request{}, fmt.Errorf("%w: birthday leave must fall in the birth month", shared.ErrInvalidDate)
	}
	today := s.now().UTC().Truncate(24 * time.Hour)
	if date.Before(today) {
		return Request{}, fmt.Errorf("%w: date is in the past", shared.ErrInvalidDate)
	}

	year := date.Year()
	if _, err := s.repo.FindByYear(ctx, teacherID, year); err == nil {
		return Request{}, fmt.Errorf("%w: birthday leave already requested for %d", shared.ErrValidation, year)
	} else if !errors.Is(err, shared.ErrNotFound) {
		return Request{}, err
	}

	req, err := s.repo.Create(ctx, Request{TeacherID: teacherID, Year: year, Date: date})
	if err != nil {
		return Request{}, err
	}
	s.record(ctx, req.ID, teacherID, shared.DecisionSubmit, "")
	s.logger.Info("birthday request submitted",
		slog.Int64("request_id", req.ID),
		slog.Int64("teacher_id", teacherID),
		slog.Int("year", year))
	return req, nil
}

// Approve grants the birthday day. The yearly slot is already held by
// the pending request, so no ledger work is needed.
func (s *Service) Approve(ctx context.Context, requestID, actorID int64, note string) (Request, error) {
	req, err := s.repo.UpdateStatus(ctx, requestID, leave.StatusPending, leave.StatusApproved, note)
	if err != nil {
		return Request{}, err
	}
	s.record(ctx, requestID, actorID, shared.DecisionApprove, note)
	s.logger.Info("birthday request approved", slog.Int64("request_id", requestID), slog.Int64("actor_id", actorID))
	return req, nil
}

// Reject declines a pending or approved birthday request, reopening
// the yearly slot.
func (s *Service) Reject(ctx context.Context, requestID, actorID int64, note string) (Request, error) {
	current, err := s.repo.Get(ctx, requestID)
	if err != nil {
		return Request{}, err
	}
	if !leave.CanTransition(current.Status, leave.StatusRejected) {
		return Request{}, fmt.Errorf("%w: cannot reject a %s request", shared.ErrInvalidTransition, current.Status)
	}
	req, err := s.repo.UpdateStatus(ctx, requestID, current.Status, leave.StatusRejected, note)
	if err != nil {
		return Request{}, err
	}
	s.record(ctx, requestID, actorID, shared.DecisionReject, note)
	s.logger.Info("birthday request rejected", slog.Int64("request_id", requestID), slog.Int64("actor_id", actorID))
	return req, nil
}

// Cancel lets the owner withdraw a pending request.
func (s *Service) Cancel(ctx context.Context, requestID, teacherID int64) (Request, error) {
	current, err := s.repo.Get(ctx, requestID)
	if err != nil {
		return Request{}, err
	}
	if current.TeacherID != teacherID {
		return Request{}, shared.ErrNotOwner
	}
	if current.Status != leave.StatusPending {
		return Request{}, fmt.Errorf("%w: only pending requests can be cancelled", shared.ErrInvalidTransition)
	}
	req, err := s.repo.UpdateStatus(ctx, requestID, leave.StatusPending, leave.StatusCancelled, "")
	if err != nil {
		return Request{}, err
	}
	s.record(ctx, requestID, teacherID, shared.DecisionCancel, "")
	s.logger.Info("birthday request cancelled", slog.Int64("request_id", requestID), slog.Int64("teacher_id", teacherID))
	return req, nil
}

// Delete removes the owner's pending request entirely, freeing the
// yearly slot.
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
	s.logger.Info("birthday request deleted", slog.Int64("request_id", requestID), slog.Int64("teacher_id", teacherID))
	return nil
}

// ListMine returns the teacher's birthday requests, newest year first.
func (s *Service) ListMine(ctx context.Context, teacherID int64) ([]Request, error) {
	return s.repo.ListByTeacher(ctx, teacherID)
}

// ListByStatus returns requests in a given state for the admin queue.
func (s *Service) ListByStatus(ctx context.Context, status leave.Status) ([]Request, error) {
	return s.repo.ListByStatus(ctx, status)
}

func (s *Service) record(ctx context.Context, requestID, actorID int64, action shared.DecisionAction, note string) {
	if s.decisions == nil {
		return
	}
	log := shared.DecisionLog{Module: "birthday", RefID: requestID, ActorID: actorID, Action: action, Note: note}
	if err := s.decisions.Record(ctx, log); err != nil {
		s.logger.Warn("record decision", slog.Any("error", err))
	}
}
