package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/facturo/facturo/internal/app"
	"github.com/facturo/facturo/internal/fx"
	"github.com/facturo/facturo/internal/observability"
	"github.com/facturo/facturo/internal/platform/db"
	"github.com/facturo/facturo/internal/profits"
	"github.com/facturo/facturo/internal/sysconfig"
	"github.com/facturo/facturo/jobs"
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

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}

	metrics := observability.NewMetrics()
	fxSvc := fx.NewService(fx.NewRepository(pool), fx.NewProviders(cfg.FXTimeout), logger, metrics)
	configSvc := sysconfig.NewService(sysconfig.NewRepository(pool), logger, nil)
	profitsSvc := profits.NewService(profits.NewRepository(pool), logger)

	fxJob := jobs.NewFXRefreshJob(fxSvc, configSvc, logger)
	profitsJob := jobs.NewProfitsBackfillJob(profitsSvc, logger)

	fxTask, err := jobs.NewFXRefreshTask(false)
	if err != nil {
		logger.Error("build fx task", slog.Any("error", err))
		os.Exit(1)
	}
	profitsTask, err := jobs.NewProfitsBackfillTask(2)
	if err != nil {
		logger.Error("build profits task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskFXRefresh, Handler: fxJob.Handle},
			{Type: jobs.TaskProfitsBackfill, Handler: profitsJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			// The BCV publishes its rate early in the morning.
			{Spec: "0 7 * * *", Task: fxTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 0 * * *", Task: profitsTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
