package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestLocalToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		token  string
		path   string
		header string
		query  string
		want   int
	}{
		{name: "disabled", token: "", path: "/api/v1/meetings", want: http.StatusOK},
		{name: "missing", token: "s3cret", path: "/api/v1/meetings", want: http.StatusUnauthorized},
		{name: "wrong", token: "s3cret", path: "/api/v1/meetings", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "header", token: "s3cret", path: "/api/v1/meetings", header: "Bearer s3cret", want: http.StatusOK},
		{name: "query for websocket", token: "s3cret", path: "/api/v1/meetings", query: "s3cret", want: http.StatusOK},
		{name: "skipped path", token: "s3cret", path: "/api/v1/health", want: http.StatusOK},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(LocalToken(tt.token, "/api/v1/health"))
			router.GET("/api/v1/meetings", func(c *gin.Context) { c.Status(http.StatusOK) })
			router.GET("/api/v1/health", func(c *gin.Context) { c.Status(http.StatusOK) })

			target := tt.path
			if tt.query != "" {
				target += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)
			if resp.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, resp.Code)
			}
		})
	}
}
