package periods

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

// Repository defines persistence operations for the period registry.
type Repository interface {
	GetActive(ctx context.Context) (Period, error)
	Get(ctx context.Context, id int64) (Period, error)
	List(ctx context.Context) ([]Period, error)
	Create(ctx context.Context, p Period) (Period, error)
	Overlaps(ctx context.Context, start, end time.Time) (bool, error)
	// Activate deactivates every other period and activates the target
	// in a single transaction, preserving the at-most-one-active invariant.
	Activate(ctx context.Context, id int64) (Period, error)
	Deactivate(ctx context.Context, id int64) (Period, error)
	// FindExpired returns active periods whose end date is on or before
	// the reference date.
	FindExpired(ctx context.Context, ref time.Time) ([]Period, error)
	// DeactivateIfActive flips the active flag off and reports whether
	// this call performed the flip. Re-running it is a no-op.
	DeactivateIfActive(ctx context.Context, tx pgx.Tx, id int64) (bool, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const periodColumns = `id, name, start_date, end_date, active, created_at, updated_at, deactivated_at`

func (r *repository) GetActive(ctx context.Context) (Period, error) {
	p, err := scanPeriod(r.pool.QueryRow(ctx, `SELECT `+periodColumns+` FROM periods WHERE active ORDER BY start_date DESC LIMIT 1`))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, shared.ErrNoActivePeriod
		}
		return Period{}, err
	}
	return p, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Period, error) {
	p, err := scanPeriod(r.pool.QueryRow(ctx, `SELECT `+periodColumns+` FROM periods WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, shared.ErrNotFound
		}
		return Period{}, err
	}
	return p, nil
}

func (r *repository) List(ctx context.Context) ([]Period, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+periodColumns+` FROM periods ORDER BY start_date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *repository) Create(ctx context.Context, p Period) (Period, error) {
	created, err := scanPeriod(r.pool.QueryRow(ctx, `INSERT INTO periods (name, start_date, end_date, active, created_at, updated_at)
VALUES ($1, $2, $3, false, NOW(), NOW())
RETURNING `+periodColumns, p.Name, p.StartDate, p.EndDate))
	if err != nil {
		// The exclusion constraint on the date range is the backstop for
		// creates racing past the Overlaps pre-check.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23P01" {
			return Period{}, fmt.Errorf("%w: date range overlaps an existing period", shared.ErrValidation)
		}
		return Period{}, err
	}
	return created, nil
}

func (r *repository) Overlaps(ctx context.Context, start, end time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (
SELECT 1 FROM periods WHERE start_date <= $2 AND end_date >= $1)`, start, end).Scan(&exists)
	return exists, err
}

func (r *repository) Activate(ctx context.Context, id int64) (Period, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return Period{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `UPDATE periods SET active=false, deactivated_at=NOW(), updated_at=NOW() WHERE active AND id <> $1`, id); err != nil {
		return Period{}, err
	}
	p, err := scanPeriod(tx.QueryRow(ctx, `UPDATE periods SET active=true, deactivated_at=NULL, updated_at=NOW() WHERE id=$1
RETURNING `+periodColumns, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, shared.ErrNotFound
		}
		return Period{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Period{}, err
	}
	return p, nil
}

func (r *repository) Deactivate(ctx context.Context, id int64) (Period, error) {
	p, err := scanPeriod(r.pool.QueryRow(ctx, `UPDATE periods SET active=false, deactivated_at=NOW(), updated_at=NOW() WHERE id=$1
RETURNING `+periodColumns, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, shared.ErrNotFound
		}
		return Period{}, err
	}
	return p, nil
}

func (r *repository) FindExpired(ctx context.Context, ref time.Time) ([]Period, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+periodColumns+` FROM periods WHERE active AND end_date <= $1 ORDER BY end_date`, ref)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *repository) DeactivateIfActive(ctx context.Context, tx pgx.Tx, id int64) (bool, error) {
	cmd, err := tx.Exec(ctx, `UPDATE periods SET active=false, deactivated_at=NOW(), updated_at=NOW() WHERE id=$1 AND active`, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func scanPeriod(row pgx.Row) (Period, error) {
	var p Period
	if err := row.Scan(&p.ID, &p.Name, &p.StartDate, &p.EndDate, &p.Active, &p.CreatedAt, &p.UpdatedAt, &p.DeactivatedAt); err != nil {
		return Period{}, err
	}
	return p, nil
}
