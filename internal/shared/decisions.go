package shared

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DecisionAction enumerates lifecycle decision log actions.
type DecisionAction string

const (
	// DecisionSubmit marks a submit action.
	DecisionSubmit DecisionAction = "SUBMIT"
	// DecisionApprove marks an approve action.
	DecisionApprove DecisionAction = "APPROVE"
	// DecisionReject marks a reject action.
	DecisionReject DecisionAction = "REJECT"
	// DecisionCancel marks a cancel action.
	DecisionCancel DecisionAction = "CANCEL"
)

// DecisionLog represents a single lifecycle decision record.
type DecisionLog struct {
	ID      int64
	Module  string
	RefID   int64
	ActorID int64
	Action  DecisionAction
	Note    string
	At      time.Time
}

// DecisionRecorder persists request lifecycle history.
type DecisionRecorder struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
	count  func(module, action string)
}

// NewDecisionRecorder constructs DecisionRecorder.
func NewDecisionRecorder(pool *pgxpool.Pool, logger *slog.Logger) *DecisionRecorder {
	return &DecisionRecorder{pool: pool, logger: logger}
}

// WithCounter installs a metrics hook invoked once per recorded decision.
func (r *DecisionRecorder) WithCounter(fn func(module, action string)) *DecisionRecorder {
	r.count = fn
	return r
}

// Record writes a decision entry to the database. Failures are logged
// and returned but callers treat the log as best effort: a lost audit
// row must not roll back an applied transition.
func (r *DecisionRecorder) Record(ctx context.Context, log DecisionLog) error {
	if r == nil {
		return errors.New("decision recorder not initialised")
	}
	if log.Module == "" {
		return errors.New("decision module required")
	}
	if log.RefID == 0 {
		return errors.New("decision ref id required")
	}
	if log.Action == "" {
		return errors.New("decision action required")
	}
	at := log.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, `INSERT INTO leave_decisions (module, ref_id, actor_id, action, note, at)
VALUES ($1, $2, $3, $4, $5, $6)`, log.Module, log.RefID, log.ActorID, string(log.Action), log.Note, at)
	if err != nil {
		r.logger.Error("record decision", slog.Any("error", err))
		return err
	}
	if r.count != nil {
		r.count(log.Module, string(log.Action))
	}
	return nil
}

// List returns decisions for module/ref ordered oldest first.
func (r *DecisionRecorder) List(ctx context.Context, module string, ref int64) ([]DecisionLog, error) {
	if r == nil {
		return nil, errors.New("decision recorder not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT id, module, ref_id, actor_id, action, note, at
FROM leave_decisions WHERE module=$1 AND ref_id=$2 ORDER BY at ASC`, module, ref)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var logs []DecisionLog
	for rows.Next() {
		var l DecisionLog
		var action string
		if err := rows.Scan(&l.ID, &l.Module, &l.RefID, &l.ActorID, &action, &l.Note, &l.At); err != nil {
			return nil, err
		}
		l.Action = DecisionAction(action)
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}
