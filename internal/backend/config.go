package backend

import (
	"fmt"
	"time"

	"wealthtrack/internal/config"
)

const defaultCacheSize = 1000

// FromAppConfig converts the application config to backend config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	cfg := Config{
		Type:         BackendType(appConfig.DataBackend),
		SQLiteDBPath: appConfig.SQLiteDBPath,
		CacheType:    CacheType(appConfig.CacheBackend),
		RedisURL:     appConfig.RedisURL,
		CacheTTL:     appConfig.CacheTTL,
		CacheSize:    defaultCacheSize,
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if c.Type == SQLiteBackend && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite backend")
	}
	if c.CacheType != "" && !c.CacheType.IsValid() {
		return fmt.Errorf("invalid cache type: %s", c.CacheType)
	}
	if c.CacheType == RedisCache && c.RedisURL == "" {
		return fmt.Errorf("redis URL is required for redis cache")
	}
	return nil
}

func (c Config) cacheTTL() time.Duration {
	if c.CacheTTL <= 0 {
		return 5 * time.Minute
	}
	return c.CacheTTL
}

func (c Config) cacheSize() int {
	if c.CacheSize <= 0 {
		return defaultCacheSize
	}
	return c.CacheSize
}
