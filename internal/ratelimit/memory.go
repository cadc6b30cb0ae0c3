package ratelimit

import (
	"sync"
	"time"
)

// entry tracks request count and window expiration for one key
type entry struct {
	count     int
	expiresAt time.Time
}

// MemoryLimiter is an in-process limiter. The clock is injectable so tests
// can advance the window without sleeping.
type MemoryLimiter struct {
	config Config
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
	blocks  map[string]time.Time
}

// Option configures a MemoryLimiter.
type Option func(*MemoryLimiter)

// WithClock overrides the limiter's clock (tests only).
func WithClock(now func() time.Time) Option {
	return func(l *MemoryLimiter) {
		l.now = now
	}
}

// NewMemoryLimiter creates a new in-memory limiter with the given policy
func NewMemoryLimiter(config Config, opts ...Option) *MemoryLimiter {
	l := &MemoryLimiter{
		config:  config,
		now:     time.Now,
		entries: make(map[string]*entry),
		blocks:  make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *MemoryLimiter) Check(key string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	if until, ok := l.blocks[key]; ok {
		if now.Before(until) {
			return Result{Allowed: false, Remaining: 0, ResetAt: until}
		}
		delete(l.blocks, key)
	}

	e, exists := l.entries[key]
	if !exists || !now.Before(e.expiresAt) {
		l.entries[key] = &entry{count: 1, expiresAt: now.Add(l.config.Window)}
		return Result{Allowed: true, Remaining: l.config.MaxAttempts - 1, ResetAt: now.Add(l.config.Window)}
	}

	if e.count >= l.config.MaxAttempts {
		return Result{Allowed: false, Remaining: 0, ResetAt: e.expiresAt}
	}

	e.count++
	return Result{Allowed: true, Remaining: l.config.MaxAttempts - e.count, ResetAt: e.expiresAt}
}

func (l *MemoryLimiter) Block(key string, duration time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.blocks[key] = l.now().Add(duration)
}

func (l *MemoryLimiter) IsBlocked(key string) (bool, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	until, ok := l.blocks[key]
	if !ok {
		return false, time.Time{}
	}
	if !l.now().Before(until) {
		delete(l.blocks, key)
		return false, time.Time{}
	}
	return true, until
}

// Sweep removes expired entries; call periodically from a janitor goroutine.
func (l *MemoryLimiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, e := range l.entries {
		if !now.Before(e.expiresAt) {
			delete(l.entries, key)
		}
	}
	for key, until := range l.blocks {
		if !now.Before(until) {
			delete(l.blocks, key)
		}
	}
}
