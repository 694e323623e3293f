package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/steward-iam/steward/cmd/steward/cli"
	"github.com/steward-iam/steward/internal/app"
	"github.com/steward-iam/steward/internal/audit"
	"github.com/steward-iam/steward/internal/catalog"
	"github.com/steward-iam/steward/internal/grants"
	"github.com/steward-iam/steward/internal/guard"
	"github.com/steward-iam/steward/internal/observability"
	"github.com/steward-iam/steward/internal/platform/cache"
	"github.com/steward-iam/steward/internal/platform/db"
	"github.com/steward-iam/steward/internal/users"
	"github.com/steward-iam/steward/jobs"
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

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		if err := runJobsCommand(ctx, cfg, os.Args[2:]); err != nil {
			logger.Error("jobs command", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		// Catalog reads fall back to the database when the cache is out.
		logger.Warn("redis unavailable", slog.Any("error", err))
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo, logger)

	catalogRepo := catalog.NewRepository(dbpool)
	catalogCache := catalog.NewCache(redisClient, cfg.CatalogCacheTTL)
	catalogService := catalog.NewService(catalogRepo, catalogCache, logger)

	auditRepo := audit.NewRepository(dbpool)
	auditService := audit.NewService(auditRepo)

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	grantsRepo := grants.NewRepository(dbpool, auditRepo)
	grantsService := grants.NewService(grantsRepo, catalogService, usersService, jobsClient, logger)
	grantsService.SetMetrics(metrics)

	guardMiddleware := guard.Middleware{Resolver: grantsService, Logger: logger}

	usersHandler := users.NewHandler(logger, usersService, guardMiddleware)
	catalogHandler := catalog.NewHandler(logger, catalogService, guardMiddleware)
	grantsHandler := grants.NewHandler(logger, grantsService, guardMiddleware, jobsClient)
	auditHandler := audit.NewHandler(logger, auditService, guardMiddleware)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		UsersHandler:   usersHandler,
		CatalogHandler: catalogHandler,
		GrantsHandler:  grantsHandler,
		AuditHandler:   auditHandler,
		JobHandler:     jobHandler,
		Metrics:        metrics,
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

func runJobsCommand(ctx context.Context, cfg *app.Config, args []string) error {
	jobsCLI, err := cli.NewJobsCLI(cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer func() {
		_ = jobsCLI.Close()
	}()

	if len(args) == 0 {
		return fmt.Errorf("usage: steward jobs <trigger|stats> [name]")
	}
	switch args[0] {
	case "trigger":
		name := jobs.TaskTypeSweepExpired
		if len(args) > 1 {
			name = args[1]
		}
		info, err := jobsCLI.Trigger(ctx, name)
		if err != nil {
			return err
		}
		fmt.Printf("enqueued %s id=%s queue=%s\n", name, info.ID, info.Queue)
		return nil
	case "stats":
		stats, err := jobsCLI.InspectQueue(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
		return nil
	default:
		return fmt.Errorf("unknown jobs command %q", args[0])
	}
}
