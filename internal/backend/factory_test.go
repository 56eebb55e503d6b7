package backend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"wealthtrack/internal/config"
	"wealthtrack/internal/log"
	"wealthtrack/internal/storage"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("FromAppConfig(nil) should fail")
	}

	cfg, err := FromAppConfig(&config.Config{
		DataBackend:  "memory",
		CacheBackend: "memory",
		CacheTTL:     time.Minute,
	})
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if cfg.Type != MemoryBackend || cfg.CacheType != MemoryCache || cfg.CacheSize != defaultCacheSize {
		t.Errorf("unexpected config %+v", cfg)
	}

	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Error("unknown backend should fail")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"redis without url", Config{Type: MemoryBackend, CacheType: RedisCache}, true},
		{"unknown cache", Config{Type: MemoryBackend, CacheType: "memcached"}, true},
		{"unknown backend", Config{Type: "mongo"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateBackend(t *testing.T) {
	f := NewFactory(log.Discard())
	ctx := context.Background()

	for _, cfg := range []Config{
		{Type: MemoryBackend},
		{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "w.db")},
	} {
		t.Run(cfg.Type.String(), func(t *testing.T) {
			res, err := f.CreateBackend(ctx, cfg)
			if err != nil {
				t.Fatalf("CreateBackend() error = %v", err)
			}
			var _ storage.Store = res.Store
			if err := res.Store.Ping(ctx); err != nil {
				t.Errorf("Ping() error = %v", err)
			}
			if err := res.Cleanup(); err != nil {
				t.Errorf("Cleanup() error = %v", err)
			}
		})
	}
}

func TestCreateCachesMemory(t *testing.T) {
	res, err := NewFactory(log.Discard()).CreateCaches(context.Background(), Config{Type: MemoryBackend, CacheType: MemoryCache})
	if err != nil {
		t.Fatalf("CreateCaches() error = %v", err)
	}
	if res.Aggregates.Dashboards == nil || res.Aggregates.Health == nil {
		t.Fatal("caches not initialised")
	}
	if err := res.Cleanup(); err != nil {
		t.Errorf("Cleanup() error = %v", err)
	}
}
