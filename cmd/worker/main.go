package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/campushr/campushr/internal/app"
	jobmetrics "github.com/campushr/campushr/internal/jobs"
	"github.com/campushr/campushr/internal/periods"
	"github.com/campushr/campushr/internal/platform/db"
	"github.com/campushr/campushr/internal/rollover"
	"github.com/campushr/campushr/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	periodsRepo := periods.NewRepository(pool)
	rolloverStore := rollover.NewRepository(pool, periodsRepo)
	rolloverService := rollover.NewService(logger, rolloverStore)

	metrics := jobmetrics.NewMetrics(nil)
	rolloverJob := jobs.NewRolloverJob(logger, rolloverService, metrics)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskPeriodRollover, Handler: rolloverJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.RolloverCron, Task: jobs.NewPeriodRolloverTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
