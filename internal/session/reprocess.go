package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"meetnotes-backend/internal/llm"
	"meetnotes-backend/internal/meetings"
	"meetnotes-backend/internal/shared/metrics"
	"meetnotes-backend/internal/shared/storage/object"
	"meetnotes-backend/internal/shared/telemetry"
	"meetnotes-backend/internal/shared/util"
	"meetnotes-backend/internal/templates"
)

// Reprocess reruns transcription and enhancement for a meeting from its
// retained recording. Earlier notes, action items and reminders are
// replaced only after enhancement succeeds.
func (m *Manager) Reprocess(ctx context.Context, meetingID string) (Outcome, error) {
	if err := m.claim(meetingID); err != nil {
		return Outcome{}, err
	}
	defer m.unclaim(meetingID)

	meeting, err := m.Repo.GetMeeting(ctx, meetingID)
	if err != nil {
		return Outcome{}, err
	}
	if meeting.IsRecording {
		return Outcome{}, fmt.Errorf("%w: meeting is still recording", ErrInvalidTransition)
	}
	if meeting.AudioKey == "" || m.Store == nil {
		return Outcome{}, ErrNoRecording
	}
	data, err := object.ReadAll(ctx, m.Store, meeting.AudioKey)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return Outcome{}, ErrNoRecording
		}
		return Outcome{}, fmt.Errorf("read recording: %w", err)
	}
	telemetry.Info("session.reprocess", map[string]any{"meeting_id": meetingID, "bytes": len(data)})
	started := time.Now()
	out, err := m.runStages(ctx, meeting, data, util.AudioTypeFromName(meeting.AudioKey), meeting.TemplateID, true)
	metrics.ObserveProcessingDurationMs(float64(time.Since(started).Milliseconds()))
	return out, err
}

// ImportRequest describes an existing recording to turn into a meeting.
type ImportRequest struct {
	FileName   string
	MimeType   string
	TemplateID string
	Title      string
	StartTime  time.Time
	Data       io.Reader
}

// Import creates an ended meeting from an existing recording and runs the
// processing stages on it. It does not need an active session.
func (m *Manager) Import(ctx context.Context, req ImportRequest) (Outcome, error) {
	name, err := util.SanitizeFileName(req.FileName)
	if err != nil {
		return Outcome{}, llm.NewValidationError("fileName", err.Error())
	}
	mimeType := req.MimeType
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = util.AudioTypeFromName(name)
	}
	data, err := io.ReadAll(io.LimitReader(req.Data, llm.MaxAudioBytes+1))
	if err != nil {
		return Outcome{}, fmt.Errorf("read recording: %w", err)
	}
	if _, err := llm.ValidateAudio(data, mimeType); err != nil {
		return Outcome{}, err
	}

	templateID := req.TemplateID
	if templateID == "" {
		templateID = templates.DefaultID
	}
	tmpl, err := m.Templates.Get(templateID)
	if err != nil {
		return Outcome{}, err
	}

	now := m.now()
	start := req.StartTime.UTC()
	if req.StartTime.IsZero() {
		start = now
	}
	title := req.Title
	if title == "" {
		title = fmt.Sprintf("%s - %s", tmpl.Name, name)
	}
	meeting := meetings.Meeting{
		ID:           newID(),
		Title:        title,
		Date:         meetings.DateOf(start),
		StartTime:    start,
		EndTime:      &now,
		Participants: []string{},
		Platform:     "import",
		TemplateID:   tmpl.ID,
	}
	if err := m.Repo.CreateMeeting(ctx, meeting); err != nil {
		return Outcome{}, fmt.Errorf("create meeting: %w", err)
	}
	if err := m.claim(meeting.ID); err != nil {
		return Outcome{}, err
	}
	defer m.unclaim(meeting.ID)

	meeting = m.retain(ctx, meeting, data, mimeType)
	return m.runStages(ctx, meeting, data, mimeType, tmpl.ID, false)
}
