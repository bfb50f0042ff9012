// Package cache implements the namespaced, best-effort cache accessor.
// Every failure degrades to a miss or a no-op; the surrounding request is
// never failed by the cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Spower4/ghost-choice-backend/internal/models"
	"github.com/Spower4/ghost-choice-backend/internal/services/metrics"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
)

const pingSentinel = "ghost-pong"

// backend is the minimal key/value surface the accessor needs
type backend interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	KeysByPrefix(ctx context.Context, prefix string) ([]string, error)
	Ping(ctx context.Context) error
	Close() error
}

// Cache is the accessor over the configured backend
type Cache struct {
	backend backend
	enabled bool
}

// New creates a cache accessor for the configured backend. An unconfigured
// or unreachable backend yields a disabled accessor, never an error: cache
// is best-effort by contract.
func New(cfg models.CacheConfig, redisClient *redis.Client) *Cache {
	if !cfg.Enabled {
		fiberlog.Info("Cache: disabled by configuration")
		return &Cache{enabled: false}
	}

	backendName := cfg.Backend
	if backendName == "" {
		backendName = models.CacheBackendRedis
	}

	switch backendName {
	case models.CacheBackendRedis:
		if redisClient == nil {
			fiberlog.Warn("Cache: redis backend requested but Redis not configured, caching disabled")
			return &Cache{enabled: false}
		}
		fiberlog.Info("Cache: using redis backend")
		return &Cache{backend: &redisBackend{client: redisClient}, enabled: true}

	case models.CacheBackendMemory:
		capacity := cfg.Capacity
		if capacity <= 0 {
			capacity = 1000
			fiberlog.Warnf("Cache: invalid or missing capacity, using default %d", capacity)
		}
		fiberlog.Infof("Cache: using in-memory backend with capacity=%d", capacity)
		return &Cache{backend: newMemoryBackend(capacity, time.Now), enabled: true}

	default:
		fiberlog.Errorf("Cache: unsupported backend %q, caching disabled", backendName)
		return &Cache{enabled: false}
	}
}

// NewWithBackend wires an explicit backend; used by tests
func NewWithBackend(b backend) *Cache {
	return &Cache{backend: b, enabled: true}
}

// Enabled reports whether the accessor has a live backend
func (c *Cache) Enabled() bool {
	return c.enabled
}

// GetJSON reads key and unmarshals it into dest. Returns false on miss and
// on any backend or decode failure.
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) bool {
	if !c.enabled {
		return false
	}

	raw, found, err := c.backend.Get(ctx, key)
	ns := namespaceOf(key)
	if err != nil {
		metrics.CacheOps.WithLabelValues(ns, "error").Inc()
		fiberlog.Warnf("Cache: get %s failed, treating as miss: %v", key, err)
		return false
	}
	if !found {
		metrics.CacheOps.WithLabelValues(ns, "miss").Inc()
		return false
	}

	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		metrics.CacheOps.WithLabelValues(ns, "error").Inc()
		fiberlog.Warnf("Cache: get %s returned undecodable payload, treating as miss: %v", key, err)
		return false
	}

	metrics.CacheOps.WithLabelValues(ns, "hit").Inc()
	return true
}

// SetJSON marshals value and stores it under key with the given TTL.
// Failures are logged and swallowed.
func (c *Cache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) {
	if !c.enabled {
		return
	}

	raw, err := json.Marshal(value)
	if err != nil {
		fiberlog.Warnf("Cache: set %s skipped, marshal failed: %v", key, err)
		return
	}

	if err := c.backend.Set(ctx, key, string(raw), ttl); err != nil {
		metrics.CacheOps.WithLabelValues(namespaceOf(key), "error").Inc()
		fiberlog.Warnf("Cache: set %s failed: %v", key, err)
	}
}

// Delete removes a key, best-effort
func (c *Cache) Delete(ctx context.Context, key string) {
	if !c.enabled {
		return
	}
	if err := c.backend.Delete(ctx, key); err != nil {
		fiberlog.Warnf("Cache: delete %s failed: %v", key, err)
	}
}

// FlushNamespace removes every key under the given prefix and returns the
// number of keys removed.
func (c *Cache) FlushNamespace(ctx context.Context, prefix string) int {
	if !c.enabled {
		return 0
	}

	keys, err := c.backend.KeysByPrefix(ctx, prefix)
	if err != nil {
		fiberlog.Warnf("Cache: flush %s failed listing keys: %v", prefix, err)
		return 0
	}

	removed := 0
	for _, key := range keys {
		if err := c.backend.Delete(ctx, key); err != nil {
			fiberlog.Warnf("Cache: flush failed deleting %s: %v", key, err)
			continue
		}
		removed++
	}
	return removed
}

// Ping verifies the backend with a sentinel round trip
func (c *Cache) Ping(ctx context.Context) error {
	if !c.enabled {
		return fmt.Errorf("cache disabled")
	}

	key := models.CacheNamespaceGeneric + "ping"
	if err := c.backend.Set(ctx, key, pingSentinel, 30*time.Second); err != nil {
		return err
	}

	got, found, err := c.backend.Get(ctx, key)
	if err != nil {
		return err
	}
	if !found || got != pingSentinel {
		return fmt.Errorf("ping sentinel mismatch")
	}

	return c.backend.Ping(ctx)
}

// Close releases backend resources
func (c *Cache) Close() error {
	if c.backend == nil {
		return nil
	}
	return c.backend.Close()
}

func namespaceOf(key string) string {
	if i := strings.Index(key, ":"); i > 0 {
		return key[:i]
	}
	return "generic"
}

// redisBackend adapts go-redis to the backend interface
type redisBackend struct {
	client *redis.Client
}

func (b *redisBackend) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := b.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (b *redisBackend) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return b.client.Set(ctx, key, value, ttl).Err()
}

func (b *redisBackend) Delete(ctx context.Context, key string) error {
	return b.client.Del(ctx, key).Err()
}

func (b *redisBackend) KeysByPrefix(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := b.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	return keys, iter.Err()
}

func (b *redisBackend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *redisBackend) Close() error {
	return b.client.Close()
}
