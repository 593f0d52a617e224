package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/facturo/facturo/internal/app"
	"github.com/facturo/facturo/internal/auth"
	"github.com/facturo/facturo/internal/backup"
	"github.com/facturo/facturo/internal/catalog"
	"github.com/facturo/facturo/internal/clients"
	"github.com/facturo/facturo/internal/employees"
	"github.com/facturo/facturo/internal/fx"
	"github.com/facturo/facturo/internal/observability"
	"github.com/facturo/facturo/internal/platform/db"
	"github.com/facturo/facturo/internal/profits"
	"github.com/facturo/facturo/internal/sales"
	"github.com/facturo/facturo/internal/shared"
	"github.com/facturo/facturo/internal/sysconfig"
	"github.com/facturo/facturo/internal/view"
	"github.com/facturo/facturo/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping server startup")
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

	if cfg.MigrateOnStart {
		if err := db.Migrate(cfg.PGDSN); err != nil {
			logger.Error("apply migrations", slog.Any("error", err))
			os.Exit(1)
		}
	}

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

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	sessions := shared.NewSessionManager(redisClient, "facturo_session", cfg.SessionTTL, cfg.IsProduction())
	csrf := shared.NewCSRFManager(cfg.CSRFSecret)
	audit := shared.NewAuditLogger(pool)
	metrics := observability.NewMetrics()

	employeesSvc := employees.NewService(employees.NewRepository(pool), logger, audit)
	authSvc := auth.NewService(auth.NewRepository(pool), employeesSvc, logger)
	authMW := auth.NewMiddleware(authSvc, logger)

	clientsSvc := clients.NewService(clients.NewRepository(pool), logger)
	catalogSvc := catalog.NewService(catalog.NewRepository(pool), logger, audit)
	fxSvc := fx.NewService(fx.NewRepository(pool), fx.NewProviders(cfg.FXTimeout), logger, metrics)
	configSvc := sysconfig.NewService(sysconfig.NewRepository(pool), logger, audit)
	salesSvc := sales.NewService(sales.NewRepository(pool), configSvc, logger, metrics, audit)
	profitsSvc := profits.NewService(profits.NewRepository(pool), logger)
	backupSvc := backup.NewService(backup.NewRepository(pool), logger, audit)

	pdfBuilder := report.NewBuilder(report.NewClient(cfg.GotenbergURL), templates)

	params := app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessions,
		CSRFManager:    csrf,
		Metrics:        metrics,

		AuthMiddleware:   authMW,
		AuthHandler:      auth.NewHandler(logger, authSvc, employeesSvc, sessions, templates, csrf),
		HomeHandler:      app.NewHomeHandler(logger, salesSvc, catalogSvc, fxSvc, configSvc, templates, csrf),
		ClientsHandler:   clients.NewHandler(logger, clientsSvc, app.NewClientSaleLister(salesSvc), templates, csrf),
		CatalogHandler:   catalog.NewHandler(logger, catalogSvc, fxSvc, templates, csrf),
		EmployeesHandler: employees.NewHandler(logger, employeesSvc, templates, csrf),
		SalesHandler:     sales.NewHandler(logger, salesSvc, fxSvc, templates, csrf),
		FXHandler:        fx.NewHandler(logger, fxSvc, templates, csrf),
		ProfitsHandler:   profits.NewHandler(logger, profitsSvc, templates, csrf),
		ConfigHandler:    sysconfig.NewHandler(logger, configSvc, templates, csrf),
		BackupHandler:    backup.NewHandler(logger, backupSvc),
		ReportHandler:    report.NewHandler(logger, pdfBuilder, salesSvc, clientsSvc, catalogSvc, configSvc, fxSvc),
	}

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      app.NewRouter(params),
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", cfg.AppAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", slog.Any("error", err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server run", slog.Any("error", err))
			os.Exit(1)
		}
	}
}
