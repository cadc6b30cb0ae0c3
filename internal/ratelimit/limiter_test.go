package ratelimit

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests advance the limiter's view of time without sleeping.
type fakeClock struct {
	current time.Time
}

func (c *fakeClock) now() time.Time {
	return c.current
}

func (c *fakeClock) advance(d time.Duration) {
	c.current = c.current.Add(d)
}

func newTestLimiter(config Config) (*MemoryLimiter, *fakeClock) {
	clock := &fakeClock{current: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	return NewMemoryLimiter(config, WithClock(clock.now)), clock
}

func TestMemoryLimiterWindow(t *testing.T) {
	t.Run("allows up to the limit and rejects the next attempt", func(t *testing.T) {
		limiter, _ := newTestLimiter(Config{MaxAttempts: 3, Window: time.Hour})

		for i := 0; i < 3; i++ {
			res := limiter.Check("+966501234567")
			require.True(t, res.Allowed, "attempt %d should be allowed", i+1)
			assert.Equal(t, 3-(i+1), res.Remaining)
		}

		res := limiter.Check("+966501234567")
		assert.False(t, res.Allowed)
		assert.Equal(t, 0, res.Remaining)
		assert.False(t, res.ResetAt.IsZero())
	})

	t.Run("window elapse allows again", func(t *testing.T) {
		limiter, clock := newTestLimiter(Config{MaxAttempts: 3, Window: time.Hour})

		for i := 0; i < 3; i++ {
			require.True(t, limiter.Check("+966501234567").Allowed)
		}
		require.False(t, limiter.Check("+966501234567").Allowed)

		clock.advance(time.Hour + time.Second)

		res := limiter.Check("+966501234567")
		assert.True(t, res.Allowed)
		assert.Equal(t, 2, res.Remaining)
	})

	t.Run("keys are independent", func(t *testing.T) {
		limiter, _ := newTestLimiter(Config{MaxAttempts: 1, Window: time.Hour})

		require.True(t, limiter.Check("+966500000001").Allowed)
		require.False(t, limiter.Check("+966500000001").Allowed)

		assert.True(t, limiter.Check("+966500000002").Allowed)
	})

	t.Run("reset time stays fixed within one window", func(t *testing.T) {
		limiter, clock := newTestLimiter(Config{MaxAttempts: 5, Window: 10 * time.Minute})

		first := limiter.Check("+966501234567")
		clock.advance(3 * time.Minute)
		second := limiter.Check("+966501234567")

		assert.Equal(t, first.ResetAt, second.ResetAt)
	})
}

func TestMemoryLimiterBlock(t *testing.T) {
	t.Run("blocked key is rejected until the block expires", func(t *testing.T) {
		limiter, clock := newTestLimiter(Config{MaxAttempts: 5, Window: 10 * time.Minute})

		limiter.Block("+966501234567", 30*time.Minute)

		blocked, until := limiter.IsBlocked("+966501234567")
		require.True(t, blocked)
		assert.Equal(t, clock.current.Add(30*time.Minute), until)

		res := limiter.Check("+966501234567")
		assert.False(t, res.Allowed)
		assert.Equal(t, until, res.ResetAt)

		clock.advance(30*time.Minute + time.Second)

		blocked, _ = limiter.IsBlocked("+966501234567")
		assert.False(t, blocked)
		assert.True(t, limiter.Check("+966501234567").Allowed)
	})

	t.Run("unblocked key reports not blocked", func(t *testing.T) {
		limiter, _ := newTestLimiter(Config{MaxAttempts: 5, Window: 10 * time.Minute})

		blocked, until := limiter.IsBlocked("+966501234567")
		assert.False(t, blocked)
		assert.True(t, until.IsZero())
	})
}

func TestMemoryLimiterSweep(t *testing.T) {
	limiter, clock := newTestLimiter(Config{MaxAttempts: 2, Window: time.Minute})

	for i := 0; i < 10; i++ {
		limiter.Check(fmt.Sprintf("+96650000%04d", i))
	}
	limiter.Block("+966509999999", time.Minute)

	clock.advance(2 * time.Minute)
	limiter.Sweep()

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	assert.Empty(t, limiter.entries)
	assert.Empty(t, limiter.blocks)
}
