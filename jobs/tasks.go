// Package jobs wires background processing: the Asynq worker, the cron
// scheduler and the task handlers.
package jobs

import (
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPeriodRollover closes out expired periods.
	TaskPeriodRollover = "periods:rollover"
)

// NewPeriodRolloverTask constructs the rollover task. The task carries
// no payload: the sweep discovers expired periods itself, so a stale
// queue entry can never close the wrong period.
func NewPeriodRolloverTask() *asynq.Task {
	return asynq.NewTask(TaskPeriodRollover, nil)
}
