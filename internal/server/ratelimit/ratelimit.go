// Package ratelimit guards the API's expensive operations with per-client
// token buckets. Matching runs walk the full buyer/property cross product and
// fan out store writes, so each endpoint tier carries its own budget; reads
// share a lenient default and the health probe is never limited.
package ratelimit

import (
	"sync"
	"time"
)

// bucket is one client+endpoint token bucket. Tokens refill continuously at
// rate per second up to burst capacity.
type bucket struct {
	burst    float64
	rate     float64
	tokens   float64
	lastSeen time.Time
	refilled time.Time
}

func newBucket(burst int, rate float64, now time.Time) *bucket {
	return &bucket{
		burst:    float64(burst),
		rate:     rate,
		tokens:   float64(burst),
		lastSeen: now,
		refilled: now,
	}
}

// refill credits tokens for the time elapsed since the last refill. Callers
// hold the limiter lock.
func (b *bucket) refill(now time.Time) {
	b.tokens += now.Sub(b.refilled).Seconds() * b.rate
	if b.tokens > b.burst {
		b.tokens = b.burst
	}
	b.refilled = now
}

// take consumes one token if available.
func (b *bucket) take(now time.Time) bool {
	b.refill(now)
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// status reports remaining whole tokens and when the bucket is full again.
func (b *bucket) status(now time.Time) (remaining int, reset time.Time) {
	b.refill(now)
	remaining = int(b.tokens)
	if b.tokens >= b.burst {
		return remaining, now
	}
	wait := (b.burst - b.tokens) / b.rate
	return remaining, now.Add(time.Duration(wait * float64(time.Second)))
}

// Info describes the rate limit decision for one request.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// Limiter keys token buckets by client, path, and method. Buckets for idle
// clients are reaped periodically so an open server does not accumulate state
// for every IP that ever connected.
type Limiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	config   *Config
	now      func() time.Time
	reaper   *time.Ticker
	stopOnce sync.Once
	stop     chan struct{}
}

// Config holds limiter configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	Whitelist       map[string]bool
	Blacklist       map[string]bool
	EndpointConfigs []EndpointConfig
}

// NewLimiter creates a limiter. A nil config enables the defaults from
// LoadConfig's fallbacks.
func NewLimiter(config *Config) *Limiter {
	if config == nil {
		config = &Config{
			Enabled:         true,
			DefaultLimit:    1000,
			DefaultWindow:   time.Minute,
			CleanupInterval: 5 * time.Minute,
		}
	}

	l := &Limiter{
		buckets: make(map[string]*bucket),
		config:  config,
		now:     time.Now,
		stop:    make(chan struct{}),
	}

	if config.Enabled && config.CleanupInterval > 0 {
		l.reaper = time.NewTicker(config.CleanupInterval)
		go l.reapLoop()
	}

	return l
}

// Allow decides whether one request from clientID against path+method may
// proceed, consuming a token when it does.
func (l *Limiter) Allow(clientID, path, method string) (bool, Info) {
	if !l.config.Enabled || l.config.Whitelist[clientID] {
		return true, Info{Allowed: true}
	}
	if l.config.Blacklist[clientID] {
		return false, Info{}
	}

	tier := matchEndpoint(path, method, l.config.EndpointConfigs)
	if tier == nil {
		tier = &EndpointConfig{
			Limit:  l.config.DefaultLimit,
			Window: l.config.DefaultWindow,
			Burst:  l.config.DefaultLimit,
		}
	}
	// Limit <= 0 marks an exempt endpoint, e.g. the health probe.
	if tier.Limit <= 0 {
		return true, Info{Allowed: true}
	}

	now := l.now()
	key := clientID + ":" + path + ":" + method

	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		burst := tier.Burst
		if burst <= 0 {
			burst = tier.Limit
		}
		b = newBucket(burst, float64(tier.Limit)/tier.Window.Seconds(), now)
		l.buckets[key] = b
	}
	b.lastSeen = now

	allowed := b.take(now)
	remaining, reset := b.status(now)
	l.mu.Unlock()

	info := Info{
		Allowed:   allowed,
		Limit:     tier.Limit,
		Remaining: remaining,
		ResetTime: reset,
	}
	if !allowed {
		if retry := reset.Sub(now); retry > 0 {
			info.RetryAfter = retry
		}
	}
	return allowed, info
}

func (l *Limiter) reapLoop() {
	for {
		select {
		case <-l.reaper.C:
			l.reapIdle(time.Hour)
		case <-l.stop:
			return
		}
	}
}

// reapIdle drops buckets not touched within maxIdle.
func (l *Limiter) reapIdle(maxIdle time.Duration) {
	cutoff := l.now().Add(-maxIdle)

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}

// Stop ends the reaper goroutine. Safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() {
		if l.reaper != nil {
			l.reaper.Stop()
		}
		close(l.stop)
	})
}
