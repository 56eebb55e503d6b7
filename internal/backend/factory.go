package backend

import (
	"context"
	"fmt"

	"wealthtrack/internal/analytics"
	"wealthtrack/internal/cache"
	"wealthtrack/internal/log"
	"wealthtrack/internal/services"
	"wealthtrack/internal/storage"
	"wealthtrack/internal/storage/memory"
)

type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return &BackendResult{Store: repo, Cleanup: repo.Close}, nil

	case MemoryBackend:
		store := memory.New()
		f.logger.WarnContext(ctx, "Initialized memory backend; data is lost on restart")
		return &BackendResult{Store: store, Cleanup: store.Close}, nil
	}
	return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
}

func (f *DefaultFactory) CreateCaches(ctx context.Context, config Config) (*CacheResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if config.CacheType == RedisCache {
		client, err := cache.NewRedisClient(ctx, config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Redis cache: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized Redis aggregate cache", "ttl", config.cacheTTL().String())
		return &CacheResult{
			Aggregates: &services.Aggregates{
				Dashboards: cache.NewRedisCache[analytics.Dashboard](client, "wealthtrack:", config.cacheTTL(), f.logger),
				Health:     cache.NewRedisCache[analytics.HealthReport](client, "wealthtrack:", config.cacheTTL(), f.logger),
			},
			Cleanup: client.Close,
		}, nil
	}

	dashboards := cache.NewLRUCache[analytics.Dashboard](config.cacheSize(), config.cacheTTL())
	health := cache.NewLRUCache[analytics.HealthReport](config.cacheSize(), config.cacheTTL())
	manager := cache.NewManager(f.logger)
	manager.Register(dashboards)
	manager.Register(health)
	manager.StartCleanup(config.cacheTTL())

	f.logger.InfoContext(ctx, "Initialized in-process aggregate cache", "ttl", config.cacheTTL().String())
	return &CacheResult{
		Aggregates: &services.Aggregates{Dashboards: dashboards, Health: health},
		Cleanup: func() error {
			manager.Stop()
			return nil
		},
	}, nil
}
