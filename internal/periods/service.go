package periods

import (
	"context"
	"fmt"
	"time"

	"github.com/campushr/campushr/internal/shared"
)

// Service wraps registry business rules.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService constructs the period service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// WithClock overrides the time source, used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// GetActive returns the single active period.
func (s *Service) GetActive(ctx context.Context) (Period, error) {
	return s.repo.GetActive(ctx)
}

// Get returns a period by id.
func (s *Service) Get(ctx context.Context, id int64) (Period, error) {
	return s.repo.Get(ctx, id)
}

// List returns all periods, newest first.
func (s *Service) List(ctx context.Context) ([]Period, error) {
	return s.repo.List(ctx)
}

// Create validates and registers a new period. New periods are never
// auto-activated; an administrator activates them explicitly.
func (s *Service) Create(ctx context.Context, name string, start, end time.Time) (Period, error) {
	if name == "" {
		return Period{}, fmt.Errorf("%w: name required", shared.ErrValidation)
	}
	if !start.Before(end) {
		return Period{}, fmt.Errorf("%w: start date must precede end date", shared.ErrValidation)
	}
	// Fast pre-check; creates that race past it hit the exclusion
	// constraint on the date range inside the repository.
	overlaps, err := s.repo.Overlaps(ctx, start, end)
	if err != nil {
		return Period{}, fmt.Errorf("periods: overlap check: %w", err)
	}
	if overlaps {
		return Period{}, fmt.Errorf("%w: date range overlaps an existing period", shared.ErrValidation)
	}
	return s.repo.Create(ctx, Period{Name: name, StartDate: start, EndDate: end})
}

// Activate makes the target period the single active one.
func (s *Service) Activate(ctx context.Context, id int64) (Period, error) {
	return s.repo.Activate(ctx, id)
}

// Deactivate turns a period off without activating a replacement.
func (s *Service) Deactivate(ctx context.Context, id int64) (Period, error) {
	return s.repo.Deactivate(ctx, id)
}

// FindExpired lists active periods whose end date has passed.
func (s *Service) FindExpired(ctx context.Context) ([]Period, error) {
	return s.repo.FindExpired(ctx, s.now().UTC())
}
