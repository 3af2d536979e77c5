package templates

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"meetnotes-backend/internal/shared/server/respond"
)

// Handler serves the template catalog.
type Handler struct {
	Catalog *Catalog
}

// RegisterRoutes attaches template routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/templates", h.list)
	rg.GET("/templates/:id", h.get)
}

func (h *Handler) list(c *gin.Context) {
	respond.OK(c, gin.H{"templates": h.Catalog.List()})
}

func (h *Handler) get(c *gin.Context) {
	t, err := h.Catalog.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "template not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "failed to fetch template", nil)
		return
	}
	respond.OK(c, t)
}
