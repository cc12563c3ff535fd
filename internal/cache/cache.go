// internal/cache/cache.go
package cache

import (
	"sync"
	"time"
)

// DefaultTTL is the sliding expiration window applied when none is configured.
const DefaultTTL = 300000 * time.Millisecond

type entry[V any] struct {
	value    V
	storedAt time.Time
}

// Cache is an in-memory key/value store with sliding expiration.
// Every successful Get pushes the entry's deadline forward by the full TTL.
// Expired entries are evicted lazily on access; there is no background sweep
// and no capacity bound.
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*entry[V]
	ttl     time.Duration
	now     func() time.Time
}

// New creates a cache whose entries expire ttl after their last access.
func New[K comparable, V any](ttl time.Duration) *Cache[K, V] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache[K, V]{
		entries: make(map[K]*entry[V]),
		ttl:     ttl,
		now:     time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (c *Cache[K, V]) WithClock(now func() time.Time) *Cache[K, V] {
	c.now = now
	return c
}

// Set stores value under key, overwriting any existing entry.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &entry[V]{value: value, storedAt: c.now()}
}

// Get returns the value for key if it has not expired and refreshes its timestamp.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}

	now := c.now()
	if now.Sub(e.storedAt) >= c.ttl {
		delete(c.entries, key)
		return zero, false
	}

	e.storedAt = now
	return e.value, true
}

// Clear removes key. Clearing a missing key is a no-op.
func (c *Cache[K, V]) Clear(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

// Len returns the number of entries held, expired or not.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}
