package session

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"meetnotes-backend/internal/audio"
	"meetnotes-backend/internal/llm"
	"meetnotes-backend/internal/meetings"
	"meetnotes-backend/internal/queue"
	"meetnotes-backend/internal/shared/server/middleware"
	"meetnotes-backend/internal/shared/server/respond"
	"meetnotes-backend/internal/shared/telemetry"
	"meetnotes-backend/internal/templates"
)

// Handler exposes the session lifecycle, reprocessing and imports over HTTP.
type Handler struct {
	Manager *Manager
	// Queue, when set, receives reprocess jobs instead of running them
	// in-process.
	Queue queue.Client
	Now   func() time.Time
}

// NewHandler constructs a Handler.
func NewHandler(m *Manager, q queue.Client) *Handler {
	return &Handler{Manager: m, Queue: q, Now: time.Now}
}

// RegisterRoutes attaches session routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/sessions", h.begin)
	rg.GET("/sessions/current", h.current)
	rg.POST("/sessions/current/template", h.selectTemplate)
	rg.POST("/sessions/current/retry-permissions", h.retryPermissions)
	rg.POST("/sessions/current/cancel", h.cancel)
	rg.POST("/sessions/current/stop", h.stop)
	rg.POST("/meetings/:id/reprocess", h.reprocess)
	rg.POST("/imports", h.importRecording)
}

type templateRequest struct {
	TemplateID string `json:"templateId"`
}

type outcomeResponse struct {
	Outcome
	ReminderError string `json:"reminderError,omitempty"`
}

func newOutcomeResponse(o Outcome) outcomeResponse {
	resp := outcomeResponse{Outcome: o}
	if o.ReminderErr != nil {
		resp.ReminderError = o.ReminderErr.Error()
	}
	return resp
}

func (h *Handler) begin(c *gin.Context) {
	s, err := h.Manager.Begin()
	if err != nil {
		writeError(c, err, "failed to start session")
		return
	}
	respond.JSON(c, http.StatusCreated, s.Snapshot())
}

func (h *Handler) current(c *gin.Context) {
	s := h.Manager.Current()
	if s == nil {
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "no active session", nil)
		return
	}
	respond.OK(c, s.Snapshot())
}

func (h *Handler) selectTemplate(c *gin.Context) {
	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid request body", nil)
		return
	}
	s, ok := h.active(c)
	if !ok {
		return
	}
	// Recording outlives this request.
	err := s.SelectTemplate(context.WithoutCancel(c.Request.Context()), req.TemplateID)
	c.Set(middleware.MeetingIDKey, s.MeetingID())
	if err != nil && !errors.Is(err, audio.ErrPermissionDenied) {
		writeError(c, err, "failed to start recording")
		return
	}
	respond.OK(c, s.Snapshot())
}

func (h *Handler) retryPermissions(c *gin.Context) {
	s, ok := h.active(c)
	if !ok {
		return
	}
	err := s.RetryPermissions(context.WithoutCancel(c.Request.Context()))
	c.Set(middleware.MeetingIDKey, s.MeetingID())
	if err != nil && !errors.Is(err, audio.ErrPermissionDenied) {
		writeError(c, err, "failed to start recording")
		return
	}
	respond.OK(c, s.Snapshot())
}

func (h *Handler) cancel(c *gin.Context) {
	s, ok := h.active(c)
	if !ok {
		return
	}
	if err := s.Cancel(c.Request.Context()); err != nil {
		writeError(c, err, "failed to cancel session")
		return
	}
	respond.NoContent(c)
}

func (h *Handler) stop(c *gin.Context) {
	s, ok := h.active(c)
	if !ok {
		return
	}
	c.Set(middleware.MeetingIDKey, s.MeetingID())
	c.Set(middleware.StateTransitionKey, StateRecording+"->"+StateProcessing)

	// Processing finishes even if the caller disconnects.
	out, err := s.Stop(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		writeError(c, err, "failed to process meeting")
		return
	}
	respond.OK(c, newOutcomeResponse(out))
}

func (h *Handler) reprocess(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.MeetingIDKey, id)
	ctx := c.Request.Context()

	if h.Queue != nil {
		if _, err := h.Manager.Repo.GetMeeting(ctx, id); err != nil {
			writeError(c, err, "failed to load meeting")
			return
		}
		msg := queue.NewMessage(id, middleware.RequestIDFromContext(c), h.now())
		if err := h.Queue.Send(ctx, msg); err != nil {
			telemetry.Error("session.enqueue_failed", map[string]any{"meeting_id": id, "error": err.Error()})
			respond.Error(c, http.StatusBadGateway, respond.CodeUpstream, "failed to enqueue reprocess", nil)
			return
		}
		respond.Accepted(c, gin.H{"meetingId": id, "status": "queued"})
		return
	}

	out, err := h.Manager.Reprocess(context.WithoutCancel(ctx), id)
	if err != nil {
		writeError(c, err, "failed to reprocess meeting")
		return
	}
	respond.OK(c, newOutcomeResponse(out))
}

func (h *Handler) importRecording(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "file is required", nil)
		return
	}
	if fh.Size > llm.MaxAudioBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, respond.CodeValidation, "recording exceeds 25 MiB", nil)
		return
	}
	f, err := fh.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "unable to read file", nil)
		return
	}
	defer f.Close()

	var start time.Time
	if raw := c.PostForm("startTime"); raw != "" {
		start, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "startTime must be RFC3339", nil)
			return
		}
	}

	out, err := h.Manager.Import(context.WithoutCancel(c.Request.Context()), ImportRequest{
		FileName:   fh.Filename,
		MimeType:   fh.Header.Get("Content-Type"),
		TemplateID: c.PostForm("templateId"),
		Title:      c.PostForm("title"),
		StartTime:  start,
		Data:       f,
	})
	if out.Meeting.ID != "" {
		c.Set(middleware.MeetingIDKey, out.Meeting.ID)
	}
	if err != nil {
		writeError(c, err, "failed to import recording")
		return
	}
	respond.JSON(c, http.StatusCreated, newOutcomeResponse(out))
}

func (h *Handler) active(c *gin.Context) (*Session, bool) {
	s := h.Manager.Current()
	if s == nil {
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "no active session", nil)
		return nil, false
	}
	return s, true
}

func (h *Handler) now() time.Time {
	if h.Now == nil {
		return time.Now()
	}
	return h.Now()
}

func writeError(c *gin.Context, err error, fallback string) {
	var rateErr *llm.RateLimitError
	switch {
	case errors.As(err, &rateErr):
		if rateErr.RetryAfter > 0 {
			c.Header("Retry-After", retryAfterSeconds(rateErr.RetryAfter))
		}
		respond.Error(c, http.StatusTooManyRequests, respond.CodeRateLimited, "rate limit exceeded", gin.H{"operation": rateErr.Operation})
	case errors.Is(err, ErrSessionActive), errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrNoRecording):
		respond.Error(c, http.StatusConflict, respond.CodeConflict, err.Error(), nil)
	case errors.Is(err, meetings.ErrNotFound):
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "meeting not found", nil)
	case errors.Is(err, templates.ErrNotFound):
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "template not found", nil)
	case errors.Is(err, audio.ErrPermissionDenied):
		respond.Error(c, http.StatusForbidden, respond.CodePermissionDenied, alertPermission, nil)
	case IsUserError(err):
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, err.Error(), nil)
	case errors.Is(err, llm.ErrNoResponse):
		respond.Error(c, http.StatusBadGateway, respond.CodeNoResponse, "no response from provider", nil)
	case errors.Is(err, llm.ErrUpstream):
		respond.Error(c, http.StatusBadGateway, respond.CodeUpstream, "provider request failed", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, fallback, nil)
	}
}

func retryAfterSeconds(d time.Duration) string {
	secs := int(d.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
