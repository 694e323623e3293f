package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/steward-iam/steward/internal/app"
	"github.com/steward-iam/steward/internal/audit"
	"github.com/steward-iam/steward/internal/grants"
	jobmetrics "github.com/steward-iam/steward/internal/jobs"
	"github.com/steward-iam/steward/internal/observability"
	"github.com/steward-iam/steward/internal/platform/db"
	"github.com/steward-iam/steward/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	metrics := observability.NewMetrics()

	auditRepo := audit.NewRepository(pool)
	grantsRepo := grants.NewRepository(pool, auditRepo)
	sweeper := grants.NewSweeper(grantsRepo, logger)
	sweeper.SetMetrics(metrics)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Sweeper:   sweeper,
		Metrics:   jobmetrics.NewMetrics(metrics.Registerer()),
		Cron: []jobs.CronRegistration{
			{Spec: cfg.SweepCron, Task: jobs.NewSweepTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
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
