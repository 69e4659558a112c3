package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_SetAndGet(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	_, ok := c.Get(ctx, "buyers")
	assert.False(t, ok)

	c.Set(ctx, "buyers", []byte(`[{"id":"b1"}]`), time.Minute)

	got, ok := c.Get(ctx, "buyers")
	require.True(t, ok)
	assert.Equal(t, []byte(`[{"id":"b1"}]`), got)
}

func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemoryWithClock(func() time.Time { return now })

	c.Set(ctx, "properties", []byte("payload"), 5*time.Minute)

	// Still fresh at exactly the expiry instant.
	now = now.Add(5 * time.Minute)
	_, ok := c.Get(ctx, "properties")
	assert.True(t, ok)

	// One tick past expiry is a miss, and the entry is dropped.
	now = now.Add(time.Nanosecond)
	_, ok = c.Get(ctx, "properties")
	assert.False(t, ok)
}

func TestMemory_ZeroTTLUsesDefault(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemoryWithClock(func() time.Time { return now })

	c.Set(ctx, "matches", []byte("payload"), 0)

	now = now.Add(DefaultTTL - time.Second)
	_, ok := c.Get(ctx, "matches")
	assert.True(t, ok)

	now = now.Add(2 * time.Second)
	_, ok = c.Get(ctx, "matches")
	assert.False(t, ok)
}

func TestMemory_Invalidate(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	c.Set(ctx, "buyers", []byte("a"), time.Minute)
	c.Set(ctx, "properties", []byte("b"), time.Minute)

	c.Invalidate(ctx, "buyers")

	_, ok := c.Get(ctx, "buyers")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "properties")
	assert.True(t, ok)
}

func TestMemory_InvalidateAll(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	c.Set(ctx, "buyers", []byte("a"), time.Minute)
	c.Set(ctx, "properties", []byte("b"), time.Minute)
	c.Set(ctx, "matches", []byte("c"), time.Minute)

	c.InvalidateAll(ctx)

	for _, key := range []string{"buyers", "properties", "matches"} {
		_, ok := c.Get(ctx, key)
		assert.False(t, ok, "key %q should be gone", key)
	}
}
