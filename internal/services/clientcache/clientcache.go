// Package clientcache memoizes expensive SDK clients (Gemini for planning
// and scene rendering) so each one is constructed once per key and shared
// across requests.
package clientcache

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache holds lazily-built clients keyed by name. Concurrent callers for
// the same key share one factory invocation.
type Cache[T any] struct {
	clients sync.Map
	group   singleflight.Group
}

// NewCache creates an empty client cache
func NewCache[T any]() *Cache[T] {
	return &Cache[T]{}
}

// GetOrCreate returns the client stored under key, building it with factory
// on first use. A factory error is returned to every waiting caller and
// nothing is stored, so the next call tries again.
func (c *Cache[T]) GetOrCreate(key string, factory func() (T, error)) (T, error) {
	if cached, ok := c.clients.Load(key); ok {
		return cached.(T), nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if cached, ok := c.clients.Load(key); ok {
			return cached.(T), nil
		}

		client, err := factory()
		if err != nil {
			var zero T
			return zero, err
		}

		c.clients.Store(key, client)
		return client, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	return v.(T), nil
}

// Evict drops the client under key so the next GetOrCreate rebuilds it,
// e.g. after an API key rotation.
func (c *Cache[T]) Evict(key string) {
	c.clients.Delete(key)
}
