package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name        string
		method      string
		origin      string
		wantStatus  int
		wantAllowed bool
	}{
		{name: "preflight allowed origin", method: http.MethodOptions, origin: "http://localhost:5173", wantStatus: http.StatusNoContent, wantAllowed: true},
		{name: "post allowed origin", method: http.MethodPost, origin: "app://meetnotes", wantStatus: http.StatusAccepted, wantAllowed: true},
		{name: "post unknown origin", method: http.MethodPost, origin: "https://evil.example", wantStatus: http.StatusAccepted, wantAllowed: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(CORS([]string{"http://localhost:5173", " app://meetnotes "}))
			router.POST("/api/v1/meetings/:id/reprocess", func(c *gin.Context) {
				c.Status(http.StatusAccepted)
			})

			req := httptest.NewRequest(tt.method, "/api/v1/meetings/123/reprocess", nil)
			req.Header.Set("Origin", tt.origin)
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)

			if resp.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, resp.Code)
			}
			got := resp.Header().Get("Access-Control-Allow-Origin")
			if tt.wantAllowed {
				assertCORSHeaders(t, resp, tt.origin)
			} else if got != "" {
				t.Fatalf("expected no Allow-Origin for %s, got %q", tt.origin, got)
			}
		})
	}
}

func assertCORSHeaders(t *testing.T, resp *httptest.ResponseRecorder, origin string) {
	t.Helper()
	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != origin {
		t.Fatalf("expected Allow-Origin %s, got %q", origin, got)
	}
	if got := resp.Header().Get("Access-Control-Allow-Methods"); got == "" {
		t.Fatalf("expected Allow-Methods header")
	}
	if got := resp.Header().Get("Access-Control-Max-Age"); got != "600" {
		t.Fatalf("expected Max-Age 600, got %q", got)
	}
}
