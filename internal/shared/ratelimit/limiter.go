// Package ratelimit implements fixed-window admission control keyed by
// operation name.
package ratelimit

import (
	"context"
	"time"
)

// DefaultWindow is the fixed window length used for all operations.
const DefaultWindow = 60 * time.Second

// Operation keys shared by the upstream clients.
const (
	OpTranscribe       = "transcribe"
	OpTranscribeChunk  = "transcribe_chunk"
	OpEnhance          = "enhance"
	OpExtractReminders = "extract_reminders"
)

// Rule caps a key at Limit requests per Window. A zero Limit disables the rule.
type Rule struct {
	Limit  int
	Window time.Duration
}

func (r Rule) window() time.Duration {
	if r.Window <= 0 {
		return DefaultWindow
	}
	return r.Window
}

// Limiter decides whether a request for key may proceed.
type Limiter interface {
	// Allow reports whether the call is admitted and, when it is not, how long
	// until the current window resets.
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

// Rules maps keys to their budgets. Keys without a rule are always admitted.
type Rules map[string]Rule

// PerMinute builds a rule of n requests per DefaultWindow.
func PerMinute(n int) Rule {
	return Rule{Limit: n, Window: DefaultWindow}
}

// windowStart returns the start of the fixed window containing now.
func windowStart(now time.Time, window time.Duration) time.Time {
	return now.Truncate(window)
}
