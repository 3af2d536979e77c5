package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter shares window counters between processes through Redis.
type RedisLimiter struct {
	client redis.Cmdable
	rules  Rules
	prefix string
	now    func() time.Time
}

// NewRedisLimiter constructs a limiter storing counters under prefix. Keys
// look like "<prefix>:<operation>:<window start unix>".
func NewRedisLimiter(client redis.Cmdable, rules Rules, prefix string, now func() time.Time) *RedisLimiter {
	if now == nil {
		now = time.Now
	}
	prefix = strings.TrimRight(prefix, ":")
	if prefix == "" {
		prefix = "meetnotes:ratelimit"
	}
	return &RedisLimiter{client: client, rules: rules, prefix: prefix, now: now}
}

// NewRedisClient parses a redis:// URL.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// Allow increments the counter for the current window and admits the call
// while the counter stays within the rule's limit.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	rule, ok := l.rules[key]
	if !ok || rule.Limit <= 0 {
		return true, 0, nil
	}

	size := rule.window()
	now := l.now()
	start := windowStart(now, size)
	redisKey := l.prefix + ":" + key + ":" + strconv.FormatInt(start.Unix(), 10)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.PExpire(ctx, redisKey, size)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("rate limit incr %s: %w", key, err)
	}

	if incr.Val() > int64(rule.Limit) {
		return false, start.Add(size).Sub(now), nil
	}
	return true, 0, nil
}

var _ Limiter = (*RedisLimiter)(nil)
