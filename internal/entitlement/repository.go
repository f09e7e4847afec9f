package entitlement

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campushr/campushr/internal/directory"
	"github.com/campushr/campushr/internal/shared"
)

// Repository defines persistence for entitlement configuration.
type Repository interface {
	ListActive(ctx context.Context) ([]Config, error)
	List(ctx context.Context) ([]Config, error)
	Get(ctx context.Context, id int64) (Config, error)
	Upsert(ctx context.Context, cfg Config) (Config, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const configColumns = `id, category, contract_kind, allowance, renewal, active, updated_at`

func (r *repository) ListActive(ctx context.Context) ([]Config, error) {
	return r.list(ctx, `SELECT `+configColumns+` FROM entitlement_configs WHERE active ORDER BY category, contract_kind`)
}

func (r *repository) List(ctx context.Context) ([]Config, error) {
	return r.list(ctx, `SELECT `+configColumns+` FROM entitlement_configs ORDER BY category, contract_kind`)
}

func (r *repository) list(ctx context.Context, query string) ([]Config, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var configs []Config
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return configs, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Config, error) {
	cfg, err := scanConfig(r.pool.QueryRow(ctx, `SELECT `+configColumns+` FROM entitlement_configs WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Config{}, shared.ErrNotFound
		}
		return Config{}, err
	}
	return cfg, nil
}

// Upsert inserts or replaces the rule for (category, contract kind).
func (r *repository) Upsert(ctx context.Context, cfg Config) (Config, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO entitlement_configs (category, contract_kind, allowance, renewal, active, updated_at)
VALUES ($1, $2, $3, $4, $5, NOW())
ON CONFLICT (category, contract_kind)
DO UPDATE SET allowance=EXCLUDED.allowance, renewal=EXCLUDED.renewal, active=EXCLUDED.active, updated_at=NOW()
RETURNING `+configColumns,
		string(cfg.Category), string(cfg.Contract), cfg.Allowance, string(cfg.Renewal), cfg.Active)
	return scanConfig(row)
}

func scanConfig(row pgx.Row) (Config, error) {
	var cfg Config
	var category, contract, renewal string
	if err := row.Scan(&cfg.ID, &category, &contract, &cfg.Allowance, &renewal, &cfg.Active, &cfg.UpdatedAt); err != nil {
		return Config{}, err
	}
	cfg.Category = directory.Category(category)
	cfg.Contract = directory.ContractKind(contract)
	cfg.Renewal = Cadence(renewal)
	return cfg, nil
}
