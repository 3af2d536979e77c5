package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"meetnotes-backend/internal/shared/ratelimit"
	"meetnotes-backend/internal/shared/server/respond"
	"meetnotes-backend/internal/shared/telemetry"
)

const defaultRateLimitGroup = "api"

// RateLimitConfig maps requests to limiter keys.
type RateLimitConfig struct {
	Limiter      ratelimit.Limiter
	DefaultGroup string
	GroupFor     func(*gin.Context) string
}

// RateLimit rejects requests once the group's fixed window budget is spent.
// Limiter errors fail open.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.DefaultGroup == "" {
		cfg.DefaultGroup = defaultRateLimitGroup
	}
	return func(c *gin.Context) {
		if cfg.Limiter == nil {
			c.Next()
			return
		}
		group := cfg.DefaultGroup
		if cfg.GroupFor != nil {
			if g := strings.TrimSpace(cfg.GroupFor(c)); g != "" {
				group = g
			}
		}

		allowed, retryAfter, err := cfg.Limiter.Allow(c.Request.Context(), group)
		if err != nil {
			telemetry.Error("ratelimit.error", map[string]any{
				"request_id": RequestIDFromContext(c),
				"group":      group,
				"error":      err.Error(),
			})
			c.Next()
			return
		}
		if allowed {
			c.Next()
			return
		}

		retryAfterMs := int(retryAfter / time.Millisecond)
		if retryAfterMs <= 0 {
			retryAfterMs = 1000
		}
		retryAfterSeconds := int(math.Ceil(float64(retryAfterMs) / 1000.0))
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds))
		respond.Error(c, http.StatusTooManyRequests, respond.CodeRateLimited, "too many requests", gin.H{
			"group":        group,
			"retryAfterMs": retryAfterMs,
		})
	}
}
