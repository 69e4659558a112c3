// Package cache provides TTL-based caching for buyer, property, and match
// collections so repeated matching runs avoid re-fetching from the backing
// store.
package cache

import (
	"context"
	"sync"
	"time"
)

// DefaultTTL is how long a cached collection is served before falling
// through to a direct fetch.
const DefaultTTL = 5 * time.Minute

// Cache stores opaque byte payloads keyed by string with per-entry expiry.
// Implementations degrade failures to cache misses; a cache error is never
// fatal to a matching run.
//
// Concurrent runs that populate the same key may race; last write wins. That
// is an accepted limitation of the design, not something callers should try
// to lock around.
type Cache interface {
	// Get returns the payload for key, or ok=false on a miss or expired entry.
	Get(ctx context.Context, key string) (value []byte, ok bool)
	// Set stores the payload under key for ttl. A zero ttl uses DefaultTTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	// Invalidate drops a single key.
	Invalidate(ctx context.Context, key string)
	// InvalidateAll drops every key.
	InvalidateAll(ctx context.Context)
}

// entry pairs a payload with its expiry instant.
type entry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is a mutex-guarded in-process Cache. The clock is injectable so
// tests can control expiry.
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemory returns an empty in-process cache using the real clock.
func NewMemory() *Memory {
	return NewMemoryWithClock(time.Now)
}

// NewMemoryWithClock returns an in-process cache driven by the given clock.
func NewMemoryWithClock(now func() time.Time) *Memory {
	return &Memory{
		entries: make(map[string]entry),
		now:     now,
	}
}

// Get implements Cache.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if m.now().After(e.expiresAt) {
		delete(m.entries, key)
		return nil, false
	}
	return e.value, true
}

// Set implements Cache.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = entry{value: value, expiresAt: m.now().Add(ttl)}
}

// Invalidate implements Cache.
func (m *Memory) Invalidate(_ context.Context, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}

// InvalidateAll implements Cache.
func (m *Memory) InvalidateAll(_ context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]entry)
}
