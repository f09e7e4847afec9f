package directory

import "context"

// Service exposes the classification lookup consumed by the leave engine.
type Service struct {
	repo Repository
}

// NewService constructs the directory service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetClassification resolves a teacher's classification attributes.
func (s *Service) GetClassification(ctx context.Context, teacherID int64) (Classification, error) {
	t, err := s.repo.Get(ctx, teacherID)
	if err != nil {
		return Classification{}, err
	}
	return Classification{
		TeacherID: t.ID,
		Category:  t.Category,
		Contract:  t.Contract,
		Active:    t.Active,
		BirthDate: t.BirthDate,
	}, nil
}

// GetTeacher returns the full directory record.
func (s *Service) GetTeacher(ctx context.Context, teacherID int64) (Teacher, error) {
	return s.repo.Get(ctx, teacherID)
}
