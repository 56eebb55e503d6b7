// Package cache holds aggregate results per user so that dashboard and
// health reads do not recompute over the full record set on every request.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"wealthtrack/internal/log"
)

// Cache is a best-effort key/value store. A backend failure behaves like a
// miss; callers never see cache errors.
type Cache[T any] interface {
	Get(ctx context.Context, key string) (T, bool)
	Set(ctx context.Context, key string, data T)
	Delete(ctx context.Context, keys ...string)
	Size() int
}

// DashboardKey and HealthKey name the per-user aggregate entries of the
// calendar month containing at.
func DashboardKey(userID uuid.UUID, at time.Time) string {
	return fmt.Sprintf("dashboard:%s:%s", userID, at.Format("2006-01"))
}

func HealthKey(userID uuid.UUID, at time.Time) string {
	return fmt.Sprintf("health:%s:%s", userID, at.Format("2006-01"))
}

// Cleaner is implemented by caches that expire entries locally.
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically expires entries of the registered caches.
type Manager struct {
	caches      []Cleaner
	logger      *log.Logger
	stopCleanup chan struct{}
	cleanupDone chan struct{}
}

func NewManager(logger *log.Logger) *Manager {
	return &Manager{
		logger:      logger.WithComponent(log.ComponentCache),
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

func (m *Manager) Register(c Cleaner) {
	m.caches = append(m.caches, c)
}

// StartCleanup runs the expiry loop until Stop is called.
func (m *Manager) StartCleanup(interval time.Duration) {
	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.CleanNow(); n > 0 {
				m.logger.Debug("Expired cache entries removed", log.FieldCount, n)
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// CleanNow expires entries in every registered cache and returns how many
// were removed.
func (m *Manager) CleanNow() int {
	total := 0
	for _, c := range m.caches {
		total += c.CleanExpired()
	}
	return total
}

// Stop must only be called after StartCleanup.
func (m *Manager) Stop() {
	close(m.stopCleanup)
	<-m.cleanupDone
}
