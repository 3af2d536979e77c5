package llm

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"meetnotes-backend/internal/shared/telemetry"
)

// BackoffConfig controls exponential retry of transient upstream failures.
type BackoffConfig struct {
	Initial     time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
}

// DefaultBackoff retries twice, waiting 500ms then 1s, never more than 8s.
func DefaultBackoff() BackoffConfig {
	return BackoffConfig{Initial: 500 * time.Millisecond, MaxDelay: 8 * time.Second, MaxAttempts: 3}
}

func normalizeBackoff(cfg BackoffConfig) BackoffConfig {
	def := DefaultBackoff()
	if cfg.Initial <= 0 {
		cfg.Initial = def.Initial
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = def.MaxDelay
	}
	return cfg
}

// delayFor returns the wait before retry number attempt (1-based).
func (cfg BackoffConfig) delayFor(attempt int) time.Duration {
	delay := cfg.Initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= cfg.MaxDelay {
			return cfg.MaxDelay
		}
	}
	return minDuration(delay, cfg.MaxDelay)
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// retry runs fn until it succeeds, fails permanently or attempts run out.
// Each attempt gets its own timeout when timeout > 0.
func retry(ctx context.Context, op string, cfg BackoffConfig, timeout time.Duration, sleep sleepFunc, fn func(ctx context.Context) error) error {
	cfg = normalizeBackoff(cfg)
	if sleep == nil {
		sleep = sleepCtx
	}

	var err error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		attemptCtx, cancel := ctx, context.CancelFunc(func() {})
		if timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, timeout)
		}
		err = fn(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || !shouldRetry(err) || attempt == cfg.MaxAttempts {
			return err
		}

		delay := cfg.delayFor(attempt)
		telemetry.Warn("llm.retry", map[string]any{
			"operation": op,
			"attempt":   attempt,
			"delay_ms":  delay.Milliseconds(),
			"error":     sanitizeError(err),
		})
		if sleepErr := sleep(ctx, delay); sleepErr != nil {
			return err
		}
	}
	return err
}

// shouldRetry reports whether err is transient: timeouts, 5xx and 429 from
// the provider, or dropped connections. Client-side denials and validation
// failures are permanent.
func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrValidation) || errors.Is(err, ErrNoResponse) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var upstream *UpstreamError
	if errors.As(err, &upstream) && upstream.StatusCode > 0 {
		return upstream.StatusCode >= 500 || upstream.StatusCode == 429 || upstream.StatusCode == 408
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "client.timeout") || strings.Contains(msg, "tls handshake timeout") {
		return true
	}
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "unexpected eof")
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > 300 {
		msg = msg[:300] + "..."
	}
	return msg
}
