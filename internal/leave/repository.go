package leave

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campushr/campushr/internal/shared"
)

// RepositoryPort describes the persistence operations used by the
// lifecycle service and the ledger.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Request, error)
	ListByTeacher(ctx context.Context, teacherID, periodID int64) ([]Request, error)
	ListByStatus(ctx context.Context, periodID int64, status Status) ([]Request, error)
	HasPending(ctx context.Context, teacherID, periodID int64) (bool, error)
	HasOpenOnDate(ctx context.Context, teacherID int64, date time.Time) (bool, error)
	Create(ctx context.Context, req Request) (Request, error)
	DeletePending(ctx context.Context, id int64) error
	GetUsed(ctx context.Context, teacherID, periodID int64) (int, error)
	CountApprovedInMonth(ctx context.Context, teacherID, periodID int64, ref time.Time) (int, error)
	PeriodSummary(ctx context.Context, periodID int64) ([]TeacherTotals, error)
}

// TxRepository exposes the transactional operations. Every
// check-then-act sequence runs through these so the check and the act
// commit or fail together.
type TxRepository interface {
	// UpdateStatus performs a compare-and-swap on the request state and
	// stamps the matching transition timestamp. A concurrent transition
	// that got there first surfaces as ErrInvalidTransition.
	UpdateStatus(ctx context.Context, id int64, from, to Status, note string) (Request, error)
	// LockBalance creates the balance row lazily and takes a row lock on
	// it, serialising every balance mutation for the (teacher, period)
	// key. Returns the persisted used counter.
	LockBalance(ctx context.Context, teacherID, periodID int64) (int, error)
	CountApprovedInMonth(ctx context.Context, teacherID, periodID int64, ref time.Time) (int, error)
	// IncrementUsed adds one consumed day. A limit >= 0 additionally
	// guards the update with used < limit in SQL, so a capped-out (or
	// zero) allowance surfaces as ErrInsufficientBalance. A negative
	// limit skips the guard; monthly renewals enforce theirs by
	// recounting the month instead.
	IncrementUsed(ctx context.Context, teacherID, periodID int64, limit int) error
	// DecrementUsed returns one day to the pool, clamped at zero.
	DecrementUsed(ctx context.Context, teacherID, periodID int64) error
}

// Repository provides PostgreSQL-backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ RepositoryPort = (*Repository)(nil)

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps the callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepo{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

const requestColumns = `id, teacher_id, period_id, leave_date, reason, status, decision_note, created_at, decided_at, cancelled_at`

func (r *Repository) Get(ctx context.Context, id int64) (Request, error) {
	req, err := scanRequest(r.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM leave_requests WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Request{}, shared.ErrNotFound
		}
		return Request{}, err
	}
	return req, nil
}

func (r *Repository) ListByTeacher(ctx context.Context, teacherID, periodID int64) ([]Request, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+requestColumns+` FROM leave_requests
WHERE teacher_id=$1 AND period_id=$2 ORDER BY leave_date DESC`, teacherID, periodID)
	if err != nil {
		return nil, err
	}
	return collectRequests(rows)
}

func (r *Repository) ListByStatus(ctx context.Context, periodID int64, status Status) ([]Request, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+requestColumns+` FROM leave_requests
WHERE period_id=$1 AND status=$2 ORDER BY created_at DESC`, periodID, string(status))
	if err != nil {
		return nil, err
	}
	return collectRequests(rows)
}

func (r *Repository) HasPending(ctx context.Context, teacherID, periodID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (
SELECT 1 FROM leave_requests WHERE teacher_id=$1 AND period_id=$2 AND status='pending')`, teacherID, periodID).Scan(&exists)
	return exists, err
}

func (r *Repository) HasOpenOnDate(ctx context.Context, teacherID int64, date time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (
SELECT 1 FROM leave_requests WHERE teacher_id=$1 AND leave_date=$2 AND status IN ('pending','approved'))`, teacherID, date).Scan(&exists)
	return exists, err
}

// Create inserts a pending request. The partial unique index on
// (teacher_id, leave_date) for open requests backstops the duplicate
// check against concurrent submissions.
func (r *Repository) Create(ctx context.Context, req Request) (Request, error) {
	created, err := scanRequest(r.pool.QueryRow(ctx, `INSERT INTO leave_requests
(teacher_id, period_id, leave_date, reason, status, created_at)
VALUES ($1, $2, $3, $4, 'pending', NOW())
RETURNING `+requestColumns, req.TeacherID, req.PeriodID, req.Date, req.Reason))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Request{}, shared.ErrDuplicateDate
		}
		return Request{}, err
	}
	return created, nil
}

func (r *Repository) DeletePending(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM leave_requests WHERE id=$1 AND status='pending'`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: only pending requests can be deleted", shared.ErrInvalidTransition)
	}
	return nil
}

func (r *Repository) GetUsed(ctx context.Context, teacherID, periodID int64) (int, error) {
	var used int
	err := r.pool.QueryRow(ctx, `SELECT used FROM leave_balances WHERE teacher_id=$1 AND period_id=$2`, teacherID, periodID).Scan(&used)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return used, nil
}

func (r *Repository) CountApprovedInMonth(ctx context.Context, teacherID, periodID int64, ref time.Time) (int, error) {
	return countApprovedInMonth(ctx, r.pool, teacherID, periodID, ref)
}

func (r *Repository) PeriodSummary(ctx context.Context, periodID int64) ([]TeacherTotals, error) {
	rows, err := r.pool.Query(ctx, `SELECT t.id, t.first_name, t.last_name,
COUNT(*) FILTER (WHERE lr.status='pending'),
COUNT(*) FILTER (WHERE lr.status='approved'),
COUNT(*) FILTER (WHERE lr.status='rejected'),
COUNT(*) FILTER (WHERE lr.status='cancelled')
FROM leave_requests lr
JOIN teachers t ON t.id = lr.teacher_id
WHERE lr.period_id=$1
GROUP BY t.id, t.first_name, t.last_name
ORDER BY t.last_name, t.first_name`, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var totals []TeacherTotals
	for rows.Next() {
		var tt TeacherTotals
		if err := rows.Scan(&tt.TeacherID, &tt.FirstName, &tt.LastName, &tt.Pending, &tt.Approved, &tt.Rejected, &tt.Cancelled); err != nil {
			return nil, err
		}
		totals = append(totals, tt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return totals, nil
}

// Transactional operations

func (t *txRepo) UpdateStatus(ctx context.Context, id int64, from, to Status, note string) (Request, error) {
	req, err := scanRequest(t.tx.QueryRow(ctx, `UPDATE leave_requests SET
status=$3,
decision_note=CASE WHEN $4 <> '' THEN $4 ELSE decision_note END,
decided_at=CASE WHEN $3 IN ('approved','rejected') THEN NOW() ELSE decided_at END,
cancelled_at=CASE WHEN $3 = 'cancelled' THEN NOW() ELSE cancelled_at END
WHERE id=$1 AND status=$2
RETURNING `+requestColumns, id, string(from), string(to), note))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Request{}, fmt.Errorf("%w: request is no longer %s", shared.ErrInvalidTransition, from)
		}
		return Request{}, err
	}
	return req, nil
}

func (t *txRepo) LockBalance(ctx context.Context, teacherID, periodID int64) (int, error) {
	if _, err := t.tx.Exec(ctx, `INSERT INTO leave_balances (teacher_id, period_id, used, created_at, updated_at)
VALUES ($1, $2, 0, NOW(), NOW())
ON CONFLICT (teacher_id, period_id) DO NOTHING`, teacherID, periodID); err != nil {
		return 0, err
	}
	var used int
	err := t.tx.QueryRow(ctx, `SELECT used FROM leave_balances WHERE teacher_id=$1 AND period_id=$2 FOR UPDATE`, teacherID, periodID).Scan(&used)
	if err != nil {
		return 0, err
	}
	return used, nil
}

func (t *txRepo) CountApprovedInMonth(ctx context.Context, teacherID, periodID int64, ref time.Time) (int, error) {
	return countApprovedInMonth(ctx, t.tx, teacherID, periodID, ref)
}

func (t *txRepo) IncrementUsed(ctx context.Context, teacherID, periodID int64, limit int) error {
	if limit >= 0 {
		cmd, err := t.tx.Exec(ctx, `UPDATE leave_balances SET used=used+1, updated_at=NOW()
WHERE teacher_id=$1 AND period_id=$2 AND used < $3`, teacherID, periodID, limit)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return shared.ErrInsufficientBalance
		}
		return nil
	}
	_, err := t.tx.Exec(ctx, `UPDATE leave_balances SET used=used+1, updated_at=NOW()
WHERE teacher_id=$1 AND period_id=$2`, teacherID, periodID)
	return err
}

func (t *txRepo) DecrementUsed(ctx context.Context, teacherID, periodID int64) error {
	_, err := t.tx.Exec(ctx, `UPDATE leave_balances SET used=used-1, updated_at=NOW()
WHERE teacher_id=$1 AND period_id=$2 AND used > 0`, teacherID, periodID)
	return err
}

type queryer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func countApprovedInMonth(ctx context.Context, q queryer, teacherID, periodID int64, ref time.Time) (int, error) {
	monthStart := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)
	var count int
	err := q.QueryRow(ctx, `SELECT COUNT(*) FROM leave_requests
WHERE teacher_id=$1 AND period_id=$2 AND status='approved' AND leave_date >= $3 AND leave_date < $4`,
		teacherID, periodID, monthStart, monthEnd).Scan(&count)
	return count, err
}

func scanRequest(row pgx.Row) (Request, error) {
	var req Request
	var status string
	if err := row.Scan(&req.ID, &req.TeacherID, &req.PeriodID, &req.Date, &req.Reason, &status, &req.DecisionNote, &req.CreatedAt, &req.DecidedAt, &req.CancelledAt); err != nil {
		return Request{}, err
	}
	req.Status = Status(status)
	return req, nil
}

func collectRequests(rows pgx.Rows) ([]Request, error) {
	defer rows.Close()
	var list []Request
	for rows.Next() {
		req, err := scanRequest(rows)
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
