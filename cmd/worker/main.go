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

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/finreports/internal/app"
	jobmetrics "github.com/odyssey-erp/finreports/internal/jobs"
	ledgerdb "github.com/odyssey-erp/finreports/internal/ledger/db"
	"github.com/odyssey-erp/finreports/internal/observability"
	"github.com/odyssey-erp/finreports/internal/platform/cache"
	"github.com/odyssey-erp/finreports/internal/platform/db"
	"github.com/odyssey-erp/finreports/internal/reporting"
	"github.com/odyssey-erp/finreports/internal/tenant"
	"github.com/odyssey-erp/finreports/jobs"
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

	defaults, err := cfg.ReportPolicy()
	if err != nil {
		logger.Error("report policy", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := db.New(ctx, db.Options{
		DSN:              cfg.PGDSN,
		MaxConns:         cfg.PGMaxConns,
		ApplicationName:  "finreports-worker",
		StatementTimeout: cfg.PGStatementTimeout,
	})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
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
	settingsService := tenant.NewService(
		tenant.NewRepository(pool),
		tenant.NewCache(redisClient, cfg.SettingsCacheTTL),
		defaults,
		logger,
	)
	if err := settingsService.Watch(ctx); err != nil {
		logger.Warn("settings watch disabled", slog.Any("error", err))
	}

	engine := reporting.NewEngine(ledgerdb.New(pool), reporting.Options{
		Logger:           logger,
		Policies:         settingsService,
		Observer:         metrics,
		TrendConcurrency: cfg.ReportTrendConcurrency,
		MaxTrendWindow:   cfg.ReportTrendMaxWindow,
		BuildTimeout:     cfg.ReportBuildTimeout,
	})

	exportJob := jobs.NewReportExportJob(
		engine,
		jobs.NewExportStore(redisClient, cfg.ExportTTL),
		logger,
		jobmetrics.NewMetrics(metrics.Registerer()),
	)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskReportExport, Handler: exportJob.Handle},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	metricsServer := &http.Server{
		Addr:              cfg.WorkerMetricsAddr,
		Handler:           metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("worker metrics server", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
