package credentials

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"meetnotes-backend/internal/llm"
	"meetnotes-backend/internal/shared/server/respond"
)

// Handler exposes the credential store over HTTP. The key itself is never
// returned.
type Handler struct {
	Store *Store
}

// RegisterRoutes attaches credential routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/credentials/openai", h.status)
	rg.PUT("/credentials/openai", h.set)
	rg.DELETE("/credentials/openai", h.clear)
}

type setRequest struct {
	APIKey string `json:"apiKey"`
}

func (h *Handler) status(c *gin.Context) {
	respond.OK(c, h.Store.Status())
}

func (h *Handler) set(c *gin.Context) {
	var req setRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid request body", nil)
		return
	}
	if err := h.Store.Set(req.APIKey); err != nil {
		var verr *llm.ValidationError
		if errors.As(err, &verr) {
			respond.Error(c, http.StatusBadRequest, respond.CodeValidation, verr.Reason, []map[string]string{
				{"field": "apiKey", "issue": verr.Reason},
			})
			return
		}
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "failed to store credential", nil)
		return
	}
	respond.OK(c, h.Store.Status())
}

func (h *Handler) clear(c *gin.Context) {
	if err := h.Store.Clear(); err != nil {
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "failed to clear credential", nil)
		return
	}
	respond.NoContent(c)
}
