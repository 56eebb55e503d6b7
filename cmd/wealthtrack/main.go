package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"wealthtrack/internal/amqp"
	"wealthtrack/internal/analytics"
	"wealthtrack/internal/auth"
	"wealthtrack/internal/backend"
	"wealthtrack/internal/cli"
	apphttp "wealthtrack/internal/http"
	"wealthtrack/internal/log"
	"wealthtrack/internal/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

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
	caches, err := factory.CreateCaches(startCtx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize aggregate cache", log.FieldError, err, "cache", cfg.CacheBackend)
		_ = store.Cleanup()
		os.Exit(1)
	}

	var publisher services.Publisher
	var amqpClient *amqp.Client
	if cfg.AMQPEnabled() {
		amqpClient = amqp.New(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err := amqpClient.Connect(startCtx); err != nil {
			// Publishing reconnects lazily; the API still serves without the broker.
			logger.Warn("AMQP broker unavailable at startup", log.FieldError, err)
		}
		publisher = amqpClient
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL, nil)
	if err != nil {
		logger.Error("Failed to initialize token issuer", log.FieldError, err)
		os.Exit(1)
	}

	records := store.Store
	aggregates := caches.Aggregates
	svc := apphttp.Services{
		Auth:        services.NewAuthService(records, tokens, cfg.BcryptCost, nil, logger),
		Expenses:    services.NewExpenseService(records, aggregates, publisher, nil, logger),
		Investments: services.NewInvestmentService(records, aggregates, publisher, nil, logger),
		Dashboard:   services.NewDashboardService(records, aggregates, analytics.DefaultHealthPolicy(), nil, logger),
		Export:      services.NewExportService(records, nil, logger),
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, records, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Version:            version,
	}, logger)

	_, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err)
			}
		}
		if err := caches.Cleanup(); err != nil {
			logger.Warn("Cache cleanup error", log.FieldError, err)
		}
		if err := store.Cleanup(); err != nil {
			logger.Warn("Storage cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting wealthtrack server",
		"port", cfg.Port,
		"version", version,
		"backend", cfg.DataBackend,
		"cache", cfg.CacheBackend,
		"amqp_enabled", cfg.AMQPEnabled())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-done
	logger.Info("Server stopped gracefully")
}
