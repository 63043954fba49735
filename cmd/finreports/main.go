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
	reportinghttp "github.com/odyssey-erp/finreports/internal/reporting/http"
	"github.com/odyssey-erp/finreports/internal/tenant"
	"github.com/odyssey-erp/finreports/jobs"
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

	defaults, err := cfg.ReportPolicy()
	if err != nil {
		logger.Error("report policy", slog.Any("error", err))
		os.Exit(1)
	}

	dbpool, err := db.New(ctx, db.Options{
		DSN:              cfg.PGDSN,
		MaxConns:         cfg.PGMaxConns,
		ApplicationName:  "finreports",
		StatementTimeout: cfg.PGStatementTimeout,
	})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

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
	exportMetrics := jobmetrics.NewMetrics(metrics.Registerer())

	settingsService := tenant.NewService(
		tenant.NewRepository(dbpool),
		tenant.NewCache(redisClient, cfg.SettingsCacheTTL),
		defaults,
		logger,
	)
	if err := settingsService.Watch(ctx); err != nil {
		logger.Warn("settings watch disabled", slog.Any("error", err))
	}

	engine := reporting.NewEngine(ledgerdb.New(dbpool), reporting.Options{
		Logger:           logger,
		Policies:         settingsService,
		Observer:         metrics,
		TrendConcurrency: cfg.ReportTrendConcurrency,
		MaxTrendWindow:   cfg.ReportTrendMaxWindow,
		BuildTimeout:     cfg.ReportBuildTimeout,
	})

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	queueClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := queueClient.Close(); err != nil {
			logger.Warn("asynq client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("asynq inspector close", slog.Any("error", err))
		}
	}()

	exports := jobs.NewExports(jobs.NewExportStore(redisClient, cfg.ExportTTL), queueClient)

	reportHandler := reportinghttp.NewHandler(reportinghttp.Config{
		Logger:          logger,
		Reports:         engine,
		Settings:        settingsService,
		Exports:         exports,
		ExportMetrics:   exportMetrics,
		ExportRateLimit: cfg.ExportRateLimit,
		RequestTimeout:  cfg.AppRequestTimeout,
	})

	router := app.NewRouter(app.RouterParams{
		Logger:        logger,
		Config:        cfg,
		Metrics:       metrics,
		ReportHandler: reportHandler,
		JobHandler:    jobs.NewHandler(inspector, logger),
		Readiness: map[string]app.ReadinessCheck{
			"postgres": dbpool.Ping,
			"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		},
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error("http server", slog.Any("error", err))
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
