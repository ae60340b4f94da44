package main

import (
	"context"
	"errors"
	"os"
	"time"

	"fintrack/internal/cli"
	"fintrack/internal/log"
	"fintrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	logger.Info("Starting rates-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required for the rates worker")
		os.Exit(1)
	}

	res := cli.InitBackend(context.Background(), logger, cfg, true)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	rateWorker := worker.NewRateWorker(res.Service, logger)

	// Missed messages are covered by the startup and periodic refreshes.
	if err := rateWorker.StartupRefresh(ctx); err != nil {
		logger.Error("Startup rate refresh failed", log.FieldError, err)
	}
	go rateWorker.RunPeriodic(ctx, cfg.RefreshInterval)

	go func() {
		if err := res.Broker.ConsumeRateRefresh(ctx, rateWorker.HandleRefreshMessage); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", log.FieldError, err)
		}
	}()

	logger.Info("Rates worker running",
		"queue", cfg.AMQPQueue,
		"refresh_interval", cfg.RefreshInterval.String())
	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
