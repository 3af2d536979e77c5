package templates

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestBuiltinCatalog(t *testing.T) {
	c := Builtin()
	for _, id := range []string{"general", "standup", "one_on_one", "client_call", "interview", "brainstorm"} {
		tmpl, err := c.Get(id)
		if err != nil {
			t.Fatalf("Get(%s): %v", id, err)
		}
		if tmpl.Name == "" || tmpl.EnhancementInstructions == "" {
			t.Fatalf("template %s incomplete: %+v", id, tmpl)
		}
	}
	if _, err := c.Get("retro"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadMergesYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	content := `templates:
  - id: standup
    enhancement_instructions: Only list blockers.
  - id: retro
    name: Retrospective
    prompt: Sprint retrospective.
    enhancement_instructions: Group into went well, to improve and actions.
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	standup, _ := c.Get("standup")
	if standup.Name != "Daily Standup" || standup.EnhancementInstructions != "Only list blockers." {
		t.Fatalf("expected override merged onto builtin, got %+v", standup)
	}
	retro, err := c.Get("retro")
	if err != nil {
		t.Fatalf("Get(retro): %v", err)
	}
	if !strings.Contains(retro.Hint(), "Retrospective: Sprint retrospective.") {
		t.Fatalf("unexpected hint %q", retro.Hint())
	}
	list := c.List()
	if list[0].ID != "general" || list[len(list)-1].ID != "retro" {
		t.Fatalf("expected builtins first and new template last, got %v", c.IDs())
	}
}

func TestLoadRejectsEntryWithoutID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	if err := os.WriteFile(path, []byte("templates:\n  - name: Nameless\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for entry without id")
	}
}

func TestHandlerGetTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	(&Handler{Catalog: Builtin()}).RegisterRoutes(router.Group("/api/v1"))

	tests := []struct {
		path string
		want int
	}{
		{path: "/api/v1/templates", want: http.StatusOK},
		{path: "/api/v1/templates/interview", want: http.StatusOK},
		{path: "/api/v1/templates/unknown", want: http.StatusNotFound},
	}
	for _, tt := range tests {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if resp.Code != tt.want {
			t.Fatalf("%s: expected %d, got %d", tt.path, tt.want, resp.Code)
		}
	}
}
