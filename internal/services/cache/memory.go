package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// memoryBackend is the in-process fallback backend: a TTL map with a
// capacity cap and an injectable clock so expiry is testable.
type memoryBackend struct {
	mu       sync.Mutex
	entries  map[string]memoryEntry
	capacity int
	now      func() time.Time
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

func newMemoryBackend(capacity int, now func() time.Time) *memoryBackend {
	return &memoryBackend{
		entries:  make(map[string]memoryEntry),
		capacity: capacity,
		now:      now,
	}
}

func (b *memoryBackend) Get(_ context.Context, key string) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.entries[key]
	if !ok {
		return "", false, nil
	}
	if !entry.expiresAt.IsZero() && !b.now().Before(entry.expiresAt) {
		delete(b.entries, key)
		return "", false, nil
	}
	return entry.value, true, nil
}

func (b *memoryBackend) Set(_ context.Context, key, value string, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.entries) >= b.capacity {
		b.evictExpiredLocked()
		// Still over capacity after expiry sweep: drop an arbitrary entry.
		// Entries are short-lived query results, precision eviction is not
		// worth the bookkeeping here.
		for k := range b.entries {
			if len(b.entries) < b.capacity {
				break
			}
			delete(b.entries, k)
		}
	}

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = b.now().Add(ttl)
	}
	b.entries[key] = memoryEntry{value: value, expiresAt: expiresAt}
	return nil
}

func (b *memoryBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.entries, key)
	return nil
}

func (b *memoryBackend) KeysByPrefix(_ context.Context, prefix string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var keys []string
	for k, entry := range b.entries {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if !entry.expiresAt.IsZero() && !b.now().Before(entry.expiresAt) {
			continue
		}
		keys = append(keys, k)
	}
	return keys, nil
}

func (b *memoryBackend) Ping(_ context.Context) error {
	return nil
}

func (b *memoryBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = make(map[string]memoryEntry)
	return nil
}

func (b *memoryBackend) evictExpiredLocked() {
	now := b.now()
	for k, entry := range b.entries {
		if !entry.expiresAt.IsZero() && !now.Before(entry.expiresAt) {
			delete(b.entries, k)
		}
	}
}
