package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"budgetflow/internal/cache"
	"budgetflow/internal/cli"
	apphttp "budgetflow/internal/http"
	"budgetflow/internal/log"
	"budgetflow/internal/services"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger("info", os.Stdout)
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel, os.Stdout)

	logger.Info("Starting budgetflow", "port", cfg.Port, "backend", cfg.DataBackend)

	store, err := cli.OpenStore(context.Background(), logger, cfg)
	if err != nil {
		logger.Error("Failed to open data backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	execution := services.NewExecutionService(store, logger)
	reports := cache.NewReportCache(cfg.ReportCacheSize, cfg.ReportCacheTTL)

	// Change messages from budgetctl evict cached reports; without a broker
	// reports only expire by TTL.
	amqpClient := cli.ConnectAMQP(logger, cfg)
	var processor *services.InvalidationProcessor
	if amqpClient != nil {
		processor = services.NewInvalidationProcessor(amqpClient, reports, logger)
		if err := processor.Start(context.Background()); err != nil {
			logger.Error("Failed to start invalidation processor", log.FieldError, err)
			os.Exit(1)
		}
	}

	srv := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		Execution:          execution,
		Store:              store,
		Reports:            reports,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	})

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if processor != nil {
			if err := processor.Stop(ctx); err != nil {
				logger.Error("Invalidation processor shutdown error", log.FieldError, err)
			}
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Error("AMQP close error", log.FieldError, err)
			}
		}
		if err := store.Close(); err != nil {
			logger.Error("Store close error", log.FieldError, err)
		}
	})

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
