package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is an adjustable time source for expiry tests
type fakeClock struct {
	current time.Time
}

func (c *fakeClock) now() time.Time { return c.current }

func (c *fakeClock) advance(d time.Duration) { c.current = c.current.Add(d) }

func TestMemoryBackendRoundTrip(t *testing.T) {
	clock := &fakeClock{current: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	b := newMemoryBackend(10, clock.now)
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, "search:k1", "v1", time.Minute))

	got, found, err := b.Get(ctx, "search:k1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v1", got)
}

func TestMemoryBackendMiss(t *testing.T) {
	b := newMemoryBackend(10, time.Now)

	_, found, err := b.Get(context.Background(), "search:absent")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryBackendExpiry(t *testing.T) {
	clock := &fakeClock{current: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	b := newMemoryBackend(10, clock.now)
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, "search:k1", "v1", time.Minute))

	clock.advance(59 * time.Second)
	_, found, err := b.Get(ctx, "search:k1")
	require.NoError(t, err)
	assert.True(t, found)

	clock.advance(2 * time.Second)
	_, found, err = b.Get(ctx, "search:k1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryBackendZeroTTLNeverExpires(t *testing.T) {
	clock := &fakeClock{current: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	b := newMemoryBackend(10, clock.now)
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, "generic:k1", "v1", 0))

	clock.advance(24 * time.Hour)
	_, found, err := b.Get(ctx, "generic:k1")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestMemoryBackendCapacityEvictsExpiredFirst(t *testing.T) {
	clock := &fakeClock{current: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	b := newMemoryBackend(2, clock.now)
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, "search:old", "v", time.Second))
	require.NoError(t, b.Set(ctx, "search:live", "v", time.Hour))

	clock.advance(2 * time.Second)
	require.NoError(t, b.Set(ctx, "search:new", "v", time.Hour))

	_, found, _ := b.Get(ctx, "search:live")
	assert.True(t, found, "unexpired entry should survive the sweep")
	_, found, _ = b.Get(ctx, "search:new")
	assert.True(t, found)
}

func TestMemoryBackendKeysByPrefix(t *testing.T) {
	b := newMemoryBackend(10, time.Now)
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, "search:a", "v", time.Hour))
	require.NoError(t, b.Set(ctx, "search:b", "v", time.Hour))
	require.NoError(t, b.Set(ctx, "setup:c", "v", time.Hour))

	keys, err := b.KeysByPrefix(ctx, "search:")
	require.NoError(t, err)
	assert.Len(t, keys, 2)
	assert.ElementsMatch(t, []string{"search:a", "search:b"}, keys)
}

func TestMemoryBackendDelete(t *testing.T) {
	b := newMemoryBackend(10, time.Now)
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, "search:a", "v", time.Hour))
	require.NoError(t, b.Delete(ctx, "search:a"))

	_, found, _ := b.Get(ctx, "search:a")
	assert.False(t, found)
}
