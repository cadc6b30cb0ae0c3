package ratelimit

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter shares window counters and blocks across instances. On Redis
// errors it fails open, matching the single-instance limiter's contract that
// limiting is never a fatal condition.
type RedisLimiter struct {
	client *redis.Client
	config Config
	prefix string
}

// NewRedisLimiter creates a Redis-backed limiter under the given key prefix
func NewRedisLimiter(client *redis.Client, prefix string, config Config) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		config: config,
		prefix: prefix,
	}
}

func (l *RedisLimiter) windowKey(key string) string {
	return l.prefix + ":win:" + key
}

func (l *RedisLimiter) blockKey(key string) string {
	return l.prefix + ":block:" + key
}

func (l *RedisLimiter) Check(key string) Result {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if blocked, until := l.isBlocked(ctx, key); blocked {
		return Result{Allowed: false, Remaining: 0, ResetAt: until}
	}

	wk := l.windowKey(key)
	count, err := l.client.Incr(ctx, wk).Result()
	if err != nil {
		log.Printf("rate limiter: redis incr failed, allowing request: %v", err)
		return Result{Allowed: true, Remaining: l.config.MaxAttempts, ResetAt: time.Now().Add(l.config.Window)}
	}
	if count == 1 {
		l.client.Expire(ctx, wk, l.config.Window)
	}

	ttl, err := l.client.TTL(ctx, wk).Result()
	if err != nil || ttl < 0 {
		ttl = l.config.Window
	}
	resetAt := time.Now().Add(ttl)

	if int(count) > l.config.MaxAttempts {
		return Result{Allowed: false, Remaining: 0, ResetAt: resetAt}
	}
	return Result{Allowed: true, Remaining: l.config.MaxAttempts - int(count), ResetAt: resetAt}
}

func (l *RedisLimiter) Block(key string, duration time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := l.client.Set(ctx, l.blockKey(key), "1", duration).Err(); err != nil {
		log.Printf("rate limiter: redis block failed for %s: %v", key, err)
	}
}

func (l *RedisLimiter) IsBlocked(key string) (bool, time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	return l.isBlocked(ctx, key)
}

func (l *RedisLimiter) isBlocked(ctx context.Context, key string) (bool, time.Time) {
	ttl, err := l.client.TTL(ctx, l.blockKey(key)).Result()
	if err != nil || ttl <= 0 {
		return false, time.Time{}
	}
	return true, time.Now().Add(ttl)
}
