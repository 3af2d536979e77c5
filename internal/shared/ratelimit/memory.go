package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter keeps window counters in process memory.
type MemoryLimiter struct {
	mu      sync.Mutex
	rules   Rules
	windows map[string]*window
	now     func() time.Time
}

type window struct {
	start time.Time
	count int
}

// NewMemoryLimiter constructs a limiter. now may be nil to use time.Now.
func NewMemoryLimiter(rules Rules, now func() time.Time) *MemoryLimiter {
	if now == nil {
		now = time.Now
	}
	return &MemoryLimiter{
		rules:   rules,
		windows: make(map[string]*window),
		now:     now,
	}
}

// Allow admits the call if the key has budget left in the current window.
func (l *MemoryLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	if l == nil {
		return true, 0, nil
	}
	if err := ctx.Err(); err != nil {
		return false, 0, err
	}
	rule, ok := l.rules[key]
	if !ok || rule.Limit <= 0 {
		return true, 0, nil
	}

	size := rule.window()
	now := l.now()
	start := windowStart(now, size)

	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.windows[key]
	if !ok || !w.start.Equal(start) {
		w = &window{start: start}
		l.windows[key] = w
	}
	if w.count >= rule.Limit {
		return false, start.Add(size).Sub(now), nil
	}
	w.count++
	return true, 0, nil
}

var _ Limiter = (*MemoryLimiter)(nil)
