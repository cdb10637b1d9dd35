// Package ratecache is the TTL cache service used by the cross-rate
// deriver. It owns its synchronization and takes an injected clock, so TTL
// behavior is testable without real time passing.
package ratecache

import (
	"sync"
	"time"

	"github.com/meenmo/fxcurve/metrics"
)

// Clock supplies the current time.
type Clock func() time.Time

// Entry is one cached value with its load timestamp.
type Entry[T any] struct {
	Value    T
	LoadedAt time.Time
}

// Cache is a mutex-guarded TTL cache. Entries are created lazily on first
// miss, replaced wholesale on refresh, and never evicted except by a
// TTL-driven refresh on next access.
//
// The cache deliberately separates lookup from fill: callers check
// freshness under the lock, perform the (slow) external fetch outside it,
// and write back with Put. Two concurrent miss callers for the same key may
// both fetch; the last write wins and both writes are equally valid fresh
// values.
type Cache[T any] struct {
	name string
	ttl  time.Duration
	now  Clock

	mu      sync.Mutex
	entries map[string]Entry[T]
}

// New returns a cache named for metrics, with the given TTL. A nil clock
// uses time.Now.
func New[T any](name string, ttl time.Duration, now Clock) *Cache[T] {
	if now == nil {
		now = time.Now
	}
	return &Cache[T]{
		name:    name,
		ttl:     ttl,
		now:     now,
		entries: make(map[string]Entry[T]),
	}
}

// TTL returns the configured time-to-live.
func (c *Cache[T]) TTL() time.Duration {
	return c.ttl
}

// Lookup returns the entry for key, fresh or not.
func (c *Cache[T]) Lookup(key string) (Entry[T], bool) {
	c.mu.Lock()
	e, ok := c.entries[key]
	c.mu.Unlock()

	if ok {
		metrics.CacheHitsTotal.WithLabelValues(c.name).Inc()
	} else {
		metrics.CacheMissesTotal.WithLabelValues(c.name).Inc()
	}
	return e, ok
}

// Put stores value under key, stamped with the injected clock.
func (c *Cache[T]) Put(key string, value T) Entry[T] {
	e := Entry[T]{Value: value, LoadedAt: c.now()}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
	return e
}

// Expired reports whether the entry's age exceeds the TTL right now.
func (c *Cache[T]) Expired(e Entry[T]) bool {
	return c.now().Sub(e.LoadedAt) > c.ttl
}

// Age returns the entry's age right now.
func (c *Cache[T]) Age(e Entry[T]) time.Duration {
	return c.now().Sub(e.LoadedAt)
}
