package meetings

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"meetnotes-backend/internal/shared/server/middleware"
	"meetnotes-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the meetings service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches meeting, note, action item and reminder routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/meetings", h.listMeetings)
	rg.GET("/meetings/:id", h.getMeeting)
	rg.DELETE("/meetings/:id", h.deleteMeeting)
	rg.PATCH("/notes/:id", h.updateNote)
	rg.PATCH("/action-items/:id", h.updateActionItem)
	rg.GET("/reminders", h.listReminders)
	rg.PATCH("/reminders/:id", h.updateReminder)
	rg.POST("/reminders/:id/complete", h.completeReminder)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) listMeetings(c *gin.Context) {
	limit := 50
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit < 0 {
		limit = 0
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	if offset < 0 {
		offset = 0
	}

	list, err := h.Svc.List(c.Request.Context(), limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "failed to list meetings", nil)
		return
	}
	respond.OK(c, gin.H{"meetings": list})
}

func (h *Handler) getMeeting(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.MeetingIDKey, id)

	details, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, "meeting", "failed to fetch meeting")
		return
	}
	respond.OK(c, details)
}

func (h *Handler) deleteMeeting(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.MeetingIDKey, id)

	if err := h.Svc.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err, "meeting", "failed to delete meeting")
		return
	}
	respond.NoContent(c)
}

func (h *Handler) updateNote(c *gin.Context) {
	var req NoteUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid request body", nil)
		return
	}
	note, err := h.Svc.UpdateNote(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeError(c, err, "note", "failed to update note")
		return
	}
	c.Set(middleware.MeetingIDKey, note.MeetingID)
	respond.OK(c, note)
}

func (h *Handler) updateActionItem(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid request body", nil)
		return
	}
	item, err := h.Svc.SetActionItemStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		writeError(c, err, "action item", "failed to update action item")
		return
	}
	c.Set(middleware.MeetingIDKey, item.MeetingID)
	respond.OK(c, item)
}

func (h *Handler) listReminders(c *gin.Context) {
	filter := ReminderFilter{
		MeetingID: c.Query("meetingId"),
		Status:    c.Query("status"),
	}
	list, err := h.Svc.ListReminders(c.Request.Context(), filter)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "failed to list reminders", nil)
		return
	}
	respond.OK(c, gin.H{"reminders": list})
}

func (h *Handler) updateReminder(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid request body", nil)
		return
	}
	rem, err := h.Svc.SetReminderStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		writeError(c, err, "reminder", "failed to update reminder")
		return
	}
	c.Set(middleware.MeetingIDKey, rem.MeetingID)
	respond.OK(c, rem)
}

func (h *Handler) completeReminder(c *gin.Context) {
	rem, err := h.Svc.CompleteReminder(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, "reminder", "failed to complete reminder")
		return
	}
	c.Set(middleware.MeetingIDKey, rem.MeetingID)
	respond.OK(c, rem)
}

func writeError(c *gin.Context, err error, entity, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, entity+" not found", nil)
	case errors.Is(err, ErrRecording):
		respond.Error(c, http.StatusConflict, respond.CodeConflict, err.Error(), nil)
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, fallback, nil)
	}
}
