package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"meetnotes-backend/internal/shared/telemetry"
)

// Context keys handlers may set to enrich the request log line.
const (
	MeetingIDKey       = "meetingId"
	StateTransitionKey = "stateTransition"
)

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"route":       c.FullPath(),
			"status":      c.Writer.Status(),
			"duration_ms": float64(latency.Microseconds()) / 1000.0,
			"meeting_id":  c.GetString(MeetingIDKey),
			"client_ip":   c.ClientIP(),
		}
		if transition := c.GetString(StateTransitionKey); transition != "" {
			fields["state_transition"] = transition
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}
		telemetry.Info("request.complete", fields)
	}
}
