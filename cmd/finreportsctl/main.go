package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/finreports/cmd/finreportsctl/cli"
	"github.com/odyssey-erp/finreports/internal/app"
	"github.com/odyssey-erp/finreports/internal/platform/cache"
	"github.com/odyssey-erp/finreports/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	queueClient := jobs.NewClient(redisOpts)
	defer queueClient.Close()
	inspector := asynq.NewInspector(redisOpts)
	defer inspector.Close()

	ctl := cli.NewCLI(cli.Options{
		Exports:   jobs.NewExports(jobs.NewExportStore(redisClient, cfg.ExportTTL), queueClient),
		Inspector: inspector,
		Output:    os.Stdout,
	})
	return ctl.Execute(ctx, os.Args[1:])
}
