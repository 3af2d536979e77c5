package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"meetnotes-backend/internal/shared/config"
	"meetnotes-backend/internal/shared/metrics"
	"meetnotes-backend/internal/shared/ratelimit"
	"meetnotes-backend/internal/shared/server/middleware"
	"meetnotes-backend/internal/shared/server/respond"
)

// APIRateLimitGroup is the limiter key shared by all API routes.
const APIRateLimitGroup = "api"

// RouteRegistrar attaches a feature's routes to the API group.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// RouterDeps carries the handlers mounted under /api/v1. Nil handlers are
// skipped.
type RouterDeps struct {
	Config      config.Config
	Limiter     ratelimit.Limiter
	Meetings    RouteRegistrar
	Sessions    RouteRegistrar
	Templates   RouteRegistrar
	Credentials RouteRegistrar
	Live        RouteRegistrar
}

const healthPath = "/api/v1/health"

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.Use(
		middleware.LocalToken(deps.Config.APIToken, healthPath),
		middleware.RateLimit(middleware.RateLimitConfig{
			Limiter:      deps.Limiter,
			DefaultGroup: APIRateLimitGroup,
		}),
	)
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})

	for _, h := range []RouteRegistrar{deps.Meetings, deps.Sessions, deps.Templates, deps.Credentials, deps.Live} {
		if h != nil {
			h.RegisterRoutes(api)
		}
	}
	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8787"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
