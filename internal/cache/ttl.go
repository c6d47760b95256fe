// Package cache provides a TTL-bounded lookup cache for the ingestion
// pipeline. Injected as a collaborator; holds no global state.
package cache

import (
	"sync"
	"time"
)

// entry is a cached value with its expiry instant.
type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTL is a thread-safe map with per-entry time-to-live eviction.
// Expired entries are evicted lazily on access and in bulk via Purge.
type TTL[K comparable, V any] struct {
	data map[K]entry[V]
	mu   sync.RWMutex
	ttl  time.Duration
	now  func() time.Time
}

// NewTTL creates a cache whose entries expire ttl after insertion.
// A non-positive ttl disables expiry.
func NewTTL[K comparable, V any](ttl time.Duration) *TTL[K, V] {
	return &TTL[K, V]{
		data: make(map[K]entry[V]),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Get returns the cached value for key, if present and not expired.
func (c *TTL[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	ent, ok := c.data[key]
	c.mu.RUnlock()

	if !ok {
		var zero V

		return zero, false
	}

	if c.expired(ent) {
		c.mu.Lock()
		delete(c.data, key)
		c.mu.Unlock()

		var zero V

		return zero, false
	}

	return ent.value, true
}

// Set stores a value for key, resetting its TTL.
func (c *TTL[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = entry[V]{value: value, expiresAt: c.now().Add(c.ttl)}
}

// Delete removes a key.
func (c *TTL[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.data, key)
}

// Purge removes all expired entries and returns the number evicted.
func (c *TTL[K, V]) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0

	for key, ent := range c.data {
		if c.expired(ent) {
			delete(c.data, key)

			evicted++
		}
	}

	return evicted
}

// Len returns the number of entries, including not-yet-evicted expired ones.
func (c *TTL[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.data)
}

func (c *TTL[K, V]) expired(ent entry[V]) bool {
	if c.ttl <= 0 {
		return false
	}

	return c.now().After(ent.expiresAt)
}
