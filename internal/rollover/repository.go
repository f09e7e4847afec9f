package rollover

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campushr/campushr/internal/periods"
	"github.com/campushr/campushr/internal/platform/db"
)

// Repository is the PostgreSQL-backed sweep store.
type Repository struct {
	pool    *pgxpool.Pool
	periods periods.Repository
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool, per periods.Repository) *Repository {
	return &Repository{pool: pool, periods: per}
}

var _ Store = (*Repository)(nil)

// FindExpired lists active periods whose end date has passed.
func (r *Repository) FindExpired(ctx context.Context, ref time.Time) ([]periods.Period, error) {
	return r.periods.FindExpired(ctx, ref)
}

// CloseOut applies the full period close in one transaction.
func (r *Repository) CloseOut(ctx context.Context, p periods.Period, note string) (Closed, error) {
	var closed Closed
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		flipped, err := r.periods.DeactivateIfActive(ctx, tx, p.ID)
		if err != nil {
			return err
		}
		if !flipped {
			return nil
		}
		closed.Swept = true

		cmd, err := tx.Exec(ctx, `UPDATE leave_requests SET status='rejected', decision_note=$2, decided_at=NOW()
WHERE period_id=$1 AND status='pending'`, p.ID, note)
		if err != nil {
			return err
		}
		closed.RejectedLeave = cmd.RowsAffected()

		cmd, err = tx.Exec(ctx, `UPDATE birthday_requests SET status='rejected', decision_note=$2, decided_at=NOW()
WHERE status='pending' AND leave_date <= $1`, p.EndDate, note)
		if err != nil {
			return err
		}
		closed.RejectedBirthday = cmd.RowsAffected()

		// Balance rows are zeroed, not deleted: the row keeps its
		// identity so audits of the closed period stay joinable.
		cmd, err = tx.Exec(ctx, `UPDATE leave_balances SET used=0, updated_at=NOW()
WHERE period_id=$1 AND used <> 0`, p.ID)
		if err != nil {
			return err
		}
		closed.ResetBalances = cmd.RowsAffected()
		return nil
	})
	if err != nil {
		return Closed{}, err
	}
	return closed, nil
}
