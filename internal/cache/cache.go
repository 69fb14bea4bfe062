// Package cache provides a typed TTL cache used by the model router for
// completion results and by the identity verifier for verified agents.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const DefaultCleanupInterval = 2 * time.Minute

// Cache is a typed wrapper over an in-memory TTL store.
type Cache[V any] struct {
	store *gocache.Cache
}

// New creates a cache with the given default expiration.
func New[V any](defaultExpiration time.Duration) *Cache[V] {
	return &Cache[V]{
		store: gocache.New(defaultExpiration, DefaultCleanupInterval),
	}
}

// Get retrieves a value by key.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V

	value, found := c.store.Get(key)
	if !found {
		return zero, false
	}

	v, ok := value.(V)
	if !ok {
		return zero, false
	}
	return v, true
}

// Set stores a value under key with the given TTL. A zero TTL uses the
// cache's default expiration.
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	if ttl == 0 {
		c.store.SetDefault(key, value)
		return
	}
	c.store.Set(key, value, ttl)
}

// Delete removes a key.
func (c *Cache[V]) Delete(key string) {
	c.store.Delete(key)
}

// Flush removes every entry.
func (c *Cache[V]) Flush() {
	c.store.Flush()
}

// Count returns the number of live entries.
func (c *Cache[V]) Count() int {
	return c.store.ItemCount()
}
