package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/campushr/campushr/internal/app"
	"github.com/campushr/campushr/internal/auth"
	"github.com/campushr/campushr/internal/birthday"
	"github.com/campushr/campushr/internal/directory"
	"github.com/campushr/campushr/internal/entitlement"
	"github.com/campushr/campushr/internal/leave"
	"github.com/campushr/campushr/internal/observability"
	"github.com/campushr/campushr/internal/periods"
	"github.com/campushr/campushr/internal/platform/cache"
	"github.com/campushr/campushr/internal/platform/db"
	"github.com/campushr/campushr/internal/rollover"
	"github.com/campushr/campushr/internal/shared"
	"github.com/campushr/campushr/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	decisions := shared.NewDecisionRecorder(pool, logger).WithCounter(metrics.CountDecision)

	tokenStore := auth.NewTokenStore(redisClient, cfg.TokenTTL)
	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(logger, authRepo, tokenStore)
	authHandler := auth.NewHandler(logger, authService)

	directoryRepo := directory.NewRepository(pool)
	directoryService := directory.NewService(directoryRepo)

	entitlementRepo := entitlement.NewRepository(pool)
	entitlementCache := entitlement.NewConfigCache(entitlementRepo, redisClient, 10*time.Minute, logger)
	resolver := entitlement.NewResolver(entitlementCache, entitlement.Defaults{
		AnnualAllowance: cfg.DefaultAllowanceAnnual,
		TermAllowance:   cfg.DefaultAllowanceTerm,
	})
	entitlementHandler := entitlement.NewHandler(logger, entitlementRepo, entitlementCache)

	periodsRepo := periods.NewRepository(pool)
	periodsService := periods.NewService(periodsRepo)
	periodsHandler := periods.NewHandler(logger, periodsService)

	leaveRepo := leave.NewRepository(pool)
	ledger := leave.NewLedger(leaveRepo, directoryService, resolver)
	leaveService := leave.NewService(logger, leaveRepo, ledger, directoryService, resolver, periodsService, decisions)
	leaveHandler := leave.NewHandler(logger, leaveService, decisions)

	birthdayRepo := birthday.NewRepository(pool)
	birthdayService := birthday.NewService(logger, birthdayRepo, directoryService, decisions)
	birthdayHandler := birthday.NewHandler(logger, birthdayService)

	rolloverStore := rollover.NewRepository(pool, periodsRepo)
	rolloverService := rollover.NewService(logger, rolloverStore)
	rolloverHandler := rollover.NewHandler(logger, rolloverService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, jobClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Verifier:           authService,
		AuthHandler:        authHandler,
		LeaveHandler:       leaveHandler,
		BirthdayHandler:    birthdayHandler,
		PeriodsHandler:     periodsHandler,
		EntitlementHandler: entitlementHandler,
		RolloverHandler:    rolloverHandler,
		JobHandler:         jobHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
