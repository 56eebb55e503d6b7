package backend

import (
	"context"
	"time"

	"wealthtrack/internal/services"
	"wealthtrack/internal/storage"
)

type CleanupFunc func() error

// BackendResult is a ready store plus the function that releases it.
type BackendResult struct {
	Store   storage.Store
	Cleanup CleanupFunc
}

// CacheResult holds the aggregate caches and the function that releases them.
type CacheResult struct {
	Aggregates *services.Aggregates
	Cleanup    CleanupFunc
}

type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	CreateCaches(ctx context.Context, config Config) (*CacheResult, error)
}

type Config struct {
	Type BackendType

	SQLiteDBPath string

	CacheType CacheType
	RedisURL  string
	CacheTTL  time.Duration
	// CacheSize bounds each in-process cache.
	CacheSize int
}

type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string { return string(bt) }

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

type CacheType string

const (
	MemoryCache CacheType = "memory"
	RedisCache  CacheType = "redis"
)

func (ct CacheType) IsValid() bool {
	return ct == MemoryCache || ct == RedisCache
}
