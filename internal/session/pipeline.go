package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"meetnotes-backend/internal/llm"
	"meetnotes-backend/internal/meetings"
	"meetnotes-backend/internal/shared/telemetry"
	"meetnotes-backend/internal/shared/util"
	"meetnotes-backend/internal/templates"
)

// recordingKey is where a meeting's final recording is retained.
func recordingKey(meetingID, mimeType string) string {
	return "recordings/" + meetingID + util.AudioExtension(llm.NormalizeAudioType(mimeType))
}

// retain stores the recording and records its key on the meeting. A failed
// upload is logged and processing continues from memory.
func (m *Manager) retain(ctx context.Context, meeting meetings.Meeting, data []byte, mimeType string) meetings.Meeting {
	if m.Store == nil || len(data) == 0 {
		return meeting
	}
	key := recordingKey(meeting.ID, mimeType)
	if _, err := m.Store.Put(ctx, key, llm.NormalizeAudioType(mimeType), bytes.NewReader(data)); err != nil {
		telemetry.Warn("session.retain_failed", map[string]any{"meeting_id": meeting.ID, "error": err.Error()})
		return meeting
	}
	meeting.AudioKey = key
	if err := m.Repo.UpdateMeeting(ctx, meeting); err != nil {
		telemetry.Warn("session.retain_key_failed", map[string]any{"meeting_id": meeting.ID, "error": err.Error()})
	}
	return meeting
}

// runStages transcribes, enhances and stores the results for an ended
// meeting. Reminder extraction is best effort. With replace set, the
// meeting's earlier artifacts are removed once enhancement has succeeded.
func (m *Manager) runStages(ctx context.Context, meeting meetings.Meeting, data []byte, mimeType, templateID string, replace bool) (Outcome, error) {
	out := Outcome{Meeting: meeting}
	fields := map[string]any{"meeting_id": meeting.ID, "template_id": templateID}

	tmpl, err := m.Templates.Get(templateID)
	if err != nil {
		tmpl, _ = m.Templates.Get(templates.DefaultID)
	}

	start := time.Now()
	transcript, err := m.Upstream.Transcribe(ctx, data, mimeType)
	if err != nil {
		m.shell().Alert(alertTranscription)
		return m.fail(ctx, out, "transcribe", err)
	}
	fields["stage"] = "transcribe"
	fields["latencyMs"] = time.Since(start).Milliseconds()
	telemetry.Info("session.stage_complete", fields)

	start = time.Now()
	enhanced, err := m.Upstream.Enhance(ctx, llm.EnhanceInput{Transcript: transcript, TemplateHint: tmpl.Hint()})
	if err != nil {
		m.shell().Alert(alertEnhancement)
		return m.fail(ctx, out, "enhance", err)
	}
	fields["stage"] = "enhance"
	fields["latencyMs"] = time.Since(start).Milliseconds()
	telemetry.Info("session.stage_complete", fields)

	if replace {
		if err := m.Repo.ClearArtifacts(ctx, meeting.ID); err != nil {
			m.shell().Alert(alertStorage)
			return m.fail(ctx, out, "clear_artifacts", err)
		}
	}

	now := m.now()
	note := meetings.Note{
		ID:            newID(),
		MeetingID:     meeting.ID,
		RawTranscript: transcript,
		EnhancedNotes: enhanced.StructuredNotes,
		Summary:       enhanced.Summary,
		Highlights:    orEmpty(enhanced.Highlights),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := m.Repo.CreateNote(ctx, note); err != nil {
		m.shell().Alert(alertStorage)
		return m.fail(ctx, out, "store_note", err)
	}
	out.Note = note

	items := meetings.NewActionItems(meeting, actionItemInputs(enhanced.ActionItems), now)
	if len(items) > 0 {
		if err := m.Repo.CreateActionItems(ctx, items); err != nil {
			m.shell().Alert(alertStorage)
			return m.fail(ctx, out, "store_action_items", err)
		}
	}
	out.ActionItems = items

	reminders := m.extractReminders(ctx, meeting, transcript, items)
	if reminders.Succeeded() && len(reminders.Value) > 0 {
		if err := m.Repo.CreateReminders(ctx, reminders.Value); err != nil {
			reminders = llm.Fail[[]meetings.Reminder](fmt.Errorf("store reminders: %w", err))
		}
	}
	out.Reminders = reminders.ValueOr(nil)
	out.ReminderErr = reminders.Err
	if reminders.Err != nil {
		telemetry.Warn("session.reminders_failed", map[string]any{"meeting_id": meeting.ID, "error": reminders.Err.Error()})
	}

	if meeting.ProcessingError != "" {
		meeting.ProcessingError = ""
		if err := m.Repo.UpdateMeeting(ctx, meeting); err != nil {
			telemetry.Warn("session.clear_error_failed", map[string]any{"meeting_id": meeting.ID, "error": err.Error()})
		}
	}
	out.Meeting = m.releaseAudio(ctx, meeting)

	m.shell().Notify("Meeting notes ready", noteBody(meeting.Title, len(items), len(out.Reminders)))
	telemetry.Info("session.processed", map[string]any{
		"meeting_id":   meeting.ID,
		"action_items": len(items),
		"reminders":    len(out.Reminders),
	})
	return out, nil
}

// fail records the stage failure on the meeting and returns it wrapped.
func (m *Manager) fail(ctx context.Context, out Outcome, stage string, err error) (Outcome, error) {
	telemetry.Error("session.stage_failed", map[string]any{
		"meeting_id": out.Meeting.ID,
		"stage":      stage,
		"error":      err.Error(),
	})
	err = stageError(stage, err)
	out.Meeting.ProcessingError = err.Error()
	if updErr := m.Repo.UpdateMeeting(context.WithoutCancel(ctx), out.Meeting); updErr != nil {
		telemetry.Warn("session.record_error_failed", map[string]any{"meeting_id": out.Meeting.ID, "error": updErr.Error()})
	}
	return out, err
}

// stageError prefixes err with the stage unless the upstream error already
// names it.
func stageError(stage string, err error) error {
	if strings.HasPrefix(err.Error(), stage+":") {
		return err
	}
	return fmt.Errorf("%s: %w", stage, err)
}

// releaseAudio deletes the retained recording unless retention is enabled.
func (m *Manager) releaseAudio(ctx context.Context, meeting meetings.Meeting) meetings.Meeting {
	if m.RetainAudio || m.Store == nil || meeting.AudioKey == "" {
		return meeting
	}
	if err := m.Store.Delete(ctx, meeting.AudioKey); err != nil {
		telemetry.Warn("session.audio_delete_failed", map[string]any{"meeting_id": meeting.ID, "error": err.Error()})
		return meeting
	}
	meeting.AudioKey = ""
	if err := m.Repo.UpdateMeeting(ctx, meeting); err != nil {
		telemetry.Warn("session.audio_key_clear_failed", map[string]any{"meeting_id": meeting.ID, "error": err.Error()})
	}
	return meeting
}

// extractReminders asks for candidates and converts the valid ones.
// Candidates with unparseable due dates are skipped.
func (m *Manager) extractReminders(ctx context.Context, meeting meetings.Meeting, transcript string, items []meetings.ActionItem) llm.Result[[]meetings.Reminder] {
	descriptions := make([]string, 0, len(items))
	byDescription := make(map[string]string, len(items))
	for _, item := range items {
		descriptions = append(descriptions, item.Description)
		key := strings.ToLower(strings.TrimSpace(item.Description))
		if _, seen := byDescription[key]; !seen {
			byDescription[key] = item.ID
		}
	}

	candidates, err := m.Upstream.ExtractReminders(ctx, transcript, descriptions)
	if err != nil {
		return llm.Fail[[]meetings.Reminder](err)
	}

	now := m.now()
	reminders := make([]meetings.Reminder, 0, len(candidates))
	for _, c := range candidates {
		if strings.TrimSpace(c.Title) == "" {
			continue
		}
		due, ok := parseDue(c.DueDate)
		if !ok {
			telemetry.Warn("session.reminder_skipped", map[string]any{"meeting_id": meeting.ID, "due_date": c.DueDate})
			continue
		}
		reminders = append(reminders, meetings.NewReminder(meeting.ID, meetings.ReminderInput{
			Title:        c.Title,
			Description:  c.Description,
			DueDate:      due,
			OffsetHours:  c.ReminderOffsetHours,
			Priority:     c.Priority,
			ActionItemID: byDescription[strings.ToLower(strings.TrimSpace(c.ActionItem))],
		}, now))
	}
	return llm.Ok(reminders)
}

// actionItemInputs keeps proposed due dates that parse and drops the rest.
func actionItemInputs(items []llm.ActionItem) []meetings.ActionItemInput {
	inputs := make([]meetings.ActionItemInput, 0, len(items))
	for _, item := range items {
		in := meetings.ActionItemInput{Description: item.Description}
		if due, ok := parseDue(item.DueDate); ok {
			in.DueDate = &due
		}
		inputs = append(inputs, in)
	}
	return inputs
}

var dueLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04", "2006-01-02"}

func parseDue(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dueLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func noteBody(title string, items, reminders int) string {
	return fmt.Sprintf("%s: %d action items, %d reminders", title, items, reminders)
}

func orEmpty(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

// IsUserError reports whether err stems from bad input rather than an
// upstream or storage failure.
func IsUserError(err error) bool {
	return errors.Is(err, llm.ErrValidation) || errors.Is(err, meetings.ErrInvalidInput)
}
