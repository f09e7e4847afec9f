package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/campushr/campushr/internal/jobs"
	"github.com/campushr/campushr/internal/rollover"
)

// RolloverJob runs the period close sweep from the queue.
type RolloverJob struct {
	logger  *slog.Logger
	service *rollover.Service
	metrics *jobmetrics.Metrics
}

// NewRolloverJob constructs the job handler.
func NewRolloverJob(logger *slog.Logger, service *rollover.Service, metrics *jobmetrics.Metrics) *RolloverJob {
	return &RolloverJob{logger: logger, service: service, metrics: metrics}
}

// Handle processes TaskPeriodRollover tasks. The sweep is idempotent,
// so Asynq retries after a partial failure are safe.
func (j *RolloverJob) Handle(ctx context.Context, _ *asynq.Task) error {
	tracker := j.metrics.Track("period_rollover")
	report, err := j.service.Sweep(ctx)
	if err != nil {
		return tracker.End(err)
	}
	j.metrics.AddSweptPeriods(len(report.SweptPeriods), report.RejectedLeave+report.RejectedBirthday)
	j.logger.Info("period rollover run",
		slog.Int("swept", len(report.SweptPeriods)),
		slog.Int64("rejected_leave", report.RejectedLeave),
		slog.Int64("rejected_birthday", report.RejectedBirthday))
	return tracker.End(nil)
}
