package birthday

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campushr/campushr/internal/leave"
	"github.com/campushr/campushr/internal/shared"
)

// Repository defines persistence for birthday requests. A partial
// unique index on (teacher_id, year) over open requests enforces the
// one-slot-per-year rule at the storage layer.
type Repository interface {
	Get(ctx context.Context, id int64) (Request, error)
	FindByYear(ctx context.Context, teacherID int64, year int) (Request, error)
	ListByTeacher(ctx context.Context, teacherID int64) ([]Request, error)
	ListByStatus(ctx context.Context, status leave.Status) ([]Request, error)
	Create(ctx context.Context, req Request) (Request, error)
	DeletePending(ctx context.Context, id int64) error
	// UpdateStatus performs the same compare-and-swap transition as the
	// leave repository.
	UpdateStatus(ctx context.Context, id int64, from, to leave.Status, note string) (Request, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const columns = `id, teacher_id, year, leave_date, status, decision_note, created_at, decided_at, cancelled_at`

func (r *repository) Get(ctx context.Context, id int64) (Request, error) {
	req, err := scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM birthday_requests WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Request{}, shared.ErrNotFound
		}
		return Request{}, err
	}
	return req, nil
}

func (r *repository) FindByYear(ctx context.Context, teacherID int64, year int) (Request, error) {
	req, err := scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM birthday_requests
WHERE teacher_id=$1 AND year=$2 AND status IN ('pending','approved')`, teacherID, year))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Request{}, shared.ErrNotFound
		}
		return Request{}, err
	}
	return req, nil
}

func (r *repository) ListByTeacher(ctx context.Context, teacherID int64) ([]Request, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM birthday_requests
WHERE teacher_id=$1 ORDER BY year DESC`, teacherID)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *repository) ListByStatus(ctx context.Context, status leave.Status) ([]Request, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM birthday_requests
WHERE status=$1 ORDER BY created_at DESC`, string(status))
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *repository) Create(ctx context.Context, req Request) (Request, error) {
	created, err := scan(r.pool.QueryRow(ctx, `INSERT INTO birthday_requests
(teacher_id, year, leave_date, status, created_at)
VALUES ($1, $2, $3, 'pending', NOW())
RETURNING `+columns, req.TeacherID, req.Year, req.Date))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Request{}, fmt.Errorf("%w: birthday leave already requested for %d", shared.ErrValidation, req.Year)
		}
		return Request{}, err
	}
	return created, nil
}

func (r *repository) DeletePending(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM birthday_requests WHERE id=$1 AND status='pending'`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: only pending requests can be deleted", shared.ErrInvalidTransition)
	}
	return nil
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, from, to leave.Status, note string) (Request, error) {
	req, err := scan(r.pool.QueryRow(ctx, `UPDATE birthday_requests SET
status=$3,
decision_note=CASE WHEN $4 <> '' THEN $4 ELSE decision_note END,
decided_at=CASE WHEN $3 IN ('approved','rejected') THEN NOW() ELSE decided_at END,
cancelled_at=CASE WHEN $3 = 'cancelled' THEN NOW() ELSE cancelled_at END
WHERE id=$1 AND status=$2
RETURNING `+columns, id, string(from), string(to), note))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Request{}, fmt.Errorf("%w: request is no longer %s", shared.ErrInvalidTransition, from)
		}
		return Request{}, err
	}
	return req, nil
}

func scan(row pgx.Row) (Request, error) {
	var req Request
	var status string
	if err := row.Scan(&req.ID, &req.TeacherID, &req.Year, &req.Date, &status, &req.DecisionNote, &req.CreatedAt, &req.DecidedAt, &req.CancelledAt); err != nil {
		return Request{}, err
	}
	req.Status = leave.Status(status)
	return req, nil
}

func collect(rows pgx.Rows) ([]Request, error) {
	defer rows.Close()
	var list []Request
	for rows.Next() {
		req, err := scan(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, req)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}
