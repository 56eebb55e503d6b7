// Package services orchestrates the record stores, the aggregation engine,
// the aggregate caches and the change-event publisher.
package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"wealthtrack/internal/amqp"
	"wealthtrack/internal/analytics"
	"wealthtrack/internal/cache"
	"wealthtrack/internal/core"
	"wealthtrack/internal/log"
)

// Publisher sends record-change events. *amqp.Client implements it.
type Publisher interface {
	PublishRecordChanged(ctx context.Context, msg *amqp.RecordChangedMessage) error
}

// Clock returns the current instant. "Today" is derived from it in UTC.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}

func (c Clock) today() core.Date {
	return core.DateOf(c.now())
}

// Aggregates holds the per-user dashboard and health caches. A nil
// Aggregates, or a nil cache inside it, disables caching. Entries are keyed
// by the calendar month of Clock so a month rollover never serves last
// month's figures. An Aggregates must not be copied after first use.
type Aggregates struct {
	Dashboards cache.Cache[analytics.Dashboard]
	Health     cache.Cache[analytics.HealthReport]
	Clock      Clock

	mu sync.Mutex
	// generations counts invalidations per user. A result computed from a
	// snapshot taken before an invalidation is never stored.
	generations map[uuid.UUID]uint64
}

func (a *Aggregates) dashboardKey(userID uuid.UUID) string {
	return cache.DashboardKey(userID, a.Clock.now())
}

func (a *Aggregates) healthKey(userID uuid.UUID) string {
	return cache.HealthKey(userID, a.Clock.now())
}

// generation must be read before loading the snapshot an aggregate is
// computed from.
func (a *Aggregates) generation(userID uuid.UUID) uint64 {
	if a == nil {
		return 0
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.generations[userID]
}

// Invalidate drops the cached aggregates of userID.
func (a *Aggregates) Invalidate(ctx context.Context, userID uuid.UUID) {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.generations == nil {
		a.generations = make(map[uuid.UUID]uint64)
	}
	a.generations[userID]++

	if a.Dashboards != nil {
		a.Dashboards.Delete(ctx, a.dashboardKey(userID))
	}
	if a.Health != nil {
		a.Health.Delete(ctx, a.healthKey(userID))
	}
}

// storeIfCurrent caches v unless userID was invalidated after gen was read.
// It reports whether v was stored.
func storeIfCurrent[T any](ctx context.Context, a *Aggregates, c cache.Cache[T], key string, userID uuid.UUID, gen uint64, v T) bool {
	if a == nil || c == nil {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.generations[userID] != gen {
		return false
	}
	c.Set(ctx, key, v)
	return true
}

// changeNotifier runs the side effects that follow every successful write:
// cache invalidation and a best-effort change event.
type changeNotifier struct {
	aggregates *Aggregates
	publisher  Publisher
	clock      Clock
	logger     *log.Logger
}

func (n changeNotifier) recordChanged(ctx context.Context, userID uuid.UUID, kind amqp.RecordKind, recordID uuid.UUID, op amqp.Op) {
	n.aggregates.Invalidate(ctx, userID)

	if n.publisher == nil {
		n.logger.DebugContext(ctx, "No publisher configured, skipping change event",
			log.FieldRecordKind, string(kind),
			log.FieldRecordID, recordID.String())
		return
	}

	msg := amqp.NewRecordChangedMessage(userID, kind, recordID, op, n.clock.now())
	if err := n.publisher.PublishRecordChanged(ctx, msg); err != nil {
		// The write already succeeded; the worker catches up on the next event.
		fields := log.NewFields().
			WithUser(userID.String()).
			WithRecord(string(kind), recordID.String()).
			WithOperation(string(op)).
			WithError(err)
		n.logger.ErrorContext(ctx, "Failed to publish change event", fields.ToSlice()...)
	}
}

func orDiscard(logger *log.Logger) *log.Logger {
	if logger == nil {
		return log.Discard()
	}
	return logger
}
