package directory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campushr/campushr/internal/shared"
)

// Repository defines read operations against the teachers table.
type Repository interface {
	Get(ctx context.Context, id int64) (Teacher, error)
	FindByEmail(ctx context.Context, email string) (Teacher, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const teacherColumns = `id, first_name, last_name, email, category, contract_kind, birth_date, active, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (Teacher, error) {
	return r.scanOne(r.pool.QueryRow(ctx, `SELECT `+teacherColumns+` FROM teachers WHERE id=$1`, id))
}

func (r *repository) FindByEmail(ctx context.Context, email string) (Teacher, error) {
	return r.scanOne(r.pool.QueryRow(ctx, `SELECT `+teacherColumns+` FROM teachers WHERE email=$1`, email))
}

func (r *repository) scanOne(row pgx.Row) (Teacher, error) {
	var t Teacher
	var category, contract string
	err := row.Scan(&t.ID, &t.FirstName, &t.LastName, &t.Email, &category, &contract, &t.BirthDate, &t.Active, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Teacher{}, shared.ErrNotFound
		}
		return Teacher{}, err
	}
	t.Category = ParseCategory(category)
	t.Contract = ParseContractKind(contract)
	return t, nil
}
