package main

import (
	"context"
	"errors"
	"os"
	"time"

	"wealthtrack/internal/amqp"
	"wealthtrack/internal/backend"
	"wealthtrack/internal/cli"
	"wealthtrack/internal/log"
	"wealthtrack/internal/services"
	"wealthtrack/internal/sheets"
	"wealthtrack/internal/sheets/google"
	"wealthtrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)

	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("Worker cannot start", log.FieldError, err)
		os.Exit(1)
	}

	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startCancel()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	factory := backend.NewFactory(logger)

	store, err := factory.CreateBackend(startCtx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize storage backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	// Only a shared cache can be invalidated from here; the API drops its own
	// in-process entries on every write.
	var aggregates *services.Aggregates
	cleanupCaches := func() error { return nil }
	if cfg.SharedCache() {
		caches, err := factory.CreateCaches(startCtx, backendCfg)
		if err != nil {
			logger.Error("Failed to initialize aggregate cache", log.FieldError, err, "cache", cfg.CacheBackend)
			_ = store.Cleanup()
			os.Exit(1)
		}
		aggregates = caches.Aggregates
		cleanupCaches = caches.Cleanup
	} else {
		logger.Info("Aggregate cache is process-local, skipping invalidation", "cache", cfg.CacheBackend)
	}

	// Keep the interface nil when mirroring is off; the worker checks for it.
	var mirror sheets.Mirror
	if cfg.MirrorEnabled() {
		creds, err := google.LoadCredentials(cfg.GoogleServiceAccountJSON, cfg.GoogleServiceAccountFile)
		if err != nil {
			logger.Error("Failed to load Google credentials", log.FieldError, err)
			os.Exit(1)
		}
		client, err := google.New(startCtx, cfg.GoogleSpreadsheetID, creds, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		mirror = client
		logger.Info("Sheets mirror enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Sheets mirror disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	syncWorker := worker.NewSyncWorker(store.Store, aggregates, mirror, logger)

	amqpClient := amqp.New(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err := amqpClient.Connect(startCtx); err != nil {
		logger.Error("Failed to connect to AMQP broker", log.FieldError, err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		if err := amqpClient.Close(); err != nil {
			logger.Warn("AMQP close error", log.FieldError, err)
		}
		if err := cleanupCaches(); err != nil {
			logger.Warn("Cache cleanup error", log.FieldError, err)
		}
		if err := store.Cleanup(); err != nil {
			logger.Warn("Storage cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting wealthtrack worker",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue,
		"mirror_enabled", mirror != nil)

	if err := amqpClient.ConsumeRecordChanges(ctx, syncWorker.HandleRecordChanged); err != nil &&
		!errors.Is(err, context.Canceled) {
		logger.Error("AMQP consumer stopped", log.FieldError, err)
	}

	<-done
	logger.Info("Worker stopped gracefully")
}
