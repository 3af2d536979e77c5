// Package session drives one meeting from template selection through
// recording and processing to stored notes.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"meetnotes-backend/internal/audio"
	"meetnotes-backend/internal/host"
	"meetnotes-backend/internal/live"
	"meetnotes-backend/internal/llm"
	"meetnotes-backend/internal/meetings"
	"meetnotes-backend/internal/shared/metrics"
	"meetnotes-backend/internal/shared/storage/object"
	"meetnotes-backend/internal/shared/telemetry"
	"meetnotes-backend/internal/templates"
)

// Session states.
const (
	StateIdle                = "idle"
	StateTemplateSelection   = "template_selection"
	StateRecording           = "recording"
	StatePermissionsRequired = "permissions_required"
	StateProcessing          = "processing"
	StateComplete            = "complete"
	StateError               = "error"
)

var (
	// ErrSessionActive is returned when a second session is requested.
	ErrSessionActive = errors.New("a session is already active")
	// ErrNoSession is returned when no session is active.
	ErrNoSession = errors.New("no active session")
	// ErrInvalidTransition is returned when an operation does not apply to
	// the current state.
	ErrInvalidTransition = errors.New("invalid session transition")
	// ErrNoRecording means a meeting has no retained recording to reprocess.
	ErrNoRecording = errors.New("meeting has no retained recording")
)

// finalizeTimeout bounds the wait for the recorder's final blob.
const finalizeTimeout = 10 * time.Second

// Alert messages shown by the host shell.
const (
	alertTranscription = "Transcription failed. Check your OpenAI API key and try again."
	alertEnhancement   = "Generating notes failed. The transcript was kept and can be reprocessed."
	alertPermission    = "Microphone access is required to record. Grant access and retry."
	alertStorage       = "Saving the meeting failed."
)

// Upstream is the guarded transcription and generation surface used by the
// pipeline. *llm.Gateway implements it.
type Upstream interface {
	Transcribe(ctx context.Context, audio []byte, mimeHint string) (string, error)
	TranscribeChunk(ctx context.Context, audio []byte, mimeHint string) string
	Enhance(ctx context.Context, input llm.EnhanceInput) (llm.Enhancement, error)
	ExtractReminders(ctx context.Context, transcript string, actionItems []string) ([]llm.ReminderCandidate, error)
}

// Recorder captures microphone audio. *audio.Capture implements it.
type Recorder interface {
	Start(ctx context.Context, onChunk func(ctx context.Context, chunk audio.Chunk)) error
	Stop(onComplete func(audio.Recording)) error
}

// Manager owns the single active session and the collaborators the
// pipeline needs.
type Manager struct {
	Repo        meetings.Repo
	Upstream    Upstream
	Recorder    Recorder
	Templates   *templates.Catalog
	Store       object.ObjectStore
	Shell       host.Shell
	Hub         *live.Hub
	RetainAudio bool
	Platform    string
	Now         func() time.Time

	mu         sync.Mutex
	active     *Session
	processing map[string]bool
}

// Outcome reports what a completed pipeline stored. ReminderErr is set when
// reminder extraction failed; the rest of the outcome is still valid.
type Outcome struct {
	Meeting     meetings.Meeting      `json:"meeting"`
	Note        meetings.Note         `json:"note"`
	ActionItems []meetings.ActionItem `json:"actionItems"`
	Reminders   []meetings.Reminder   `json:"reminders"`
	ReminderErr error                 `json:"-"`
}

// Begin starts a new session in template selection.
func (m *Manager) Begin() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil {
		return nil, ErrSessionActive
	}
	s := &Session{id: newID(), m: m, state: StateTemplateSelection}
	m.active = s
	metrics.IncSessionStarted()
	telemetry.Info("session.begin", map[string]any{"session_id": s.id, "stateTransition": "idle->template_selection"})
	return s, nil
}

// Current returns the active session or nil.
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

func (m *Manager) release(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == s {
		m.active = nil
	}
}

// claim marks a meeting as being processed outside a live session.
func (m *Manager) claim(meetingID string) error {
	if active := m.Current(); active != nil && active.MeetingID() == meetingID {
		return ErrSessionActive
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processing == nil {
		m.processing = make(map[string]bool)
	}
	if m.processing[meetingID] {
		return ErrSessionActive
	}
	m.processing[meetingID] = true
	return nil
}

func (m *Manager) unclaim(meetingID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.processing, meetingID)
}

func (m *Manager) now() time.Time {
	if m.Now == nil {
		return time.Now().UTC()
	}
	return m.Now().UTC()
}

func (m *Manager) shell() host.Shell {
	return host.OrNop(m.Shell)
}

func (m *Manager) publish(e live.Event) {
	if m.Hub != nil {
		m.Hub.Publish(e)
	}
}

// Session is one pass through the state machine. Its methods are safe for
// concurrent use; operations that do not apply to the current state return
// ErrInvalidTransition.
type Session struct {
	id string
	m  *Manager

	mu         sync.Mutex
	state      string
	templateID string
	meeting    *meetings.Meeting
	chunks     []string
	lastErr    string
	outcome    *Outcome
}

// Snapshot is a read-only view of a session.
type Snapshot struct {
	ID         string   `json:"id"`
	State      string   `json:"state"`
	TemplateID string   `json:"templateId,omitempty"`
	MeetingID  string   `json:"meetingId,omitempty"`
	Live       []string `json:"liveTranscript"`
	Error      string   `json:"error,omitempty"`
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// State returns the current state.
func (s *Session) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// MeetingID returns the id of the session's meeting, if created.
func (s *Session) MeetingID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.meeting == nil {
		return ""
	}
	return s.meeting.ID
}

// Snapshot returns a copy of the session's observable state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		ID:         s.id,
		State:      s.state,
		TemplateID: s.templateID,
		Live:       append([]string{}, s.chunks...),
		Error:      s.lastErr,
	}
	if s.meeting != nil {
		snap.MeetingID = s.meeting.ID
	}
	return snap
}

// transition must be called with s.mu held.
func (s *Session) transition(to string) {
	from := s.state
	s.state = to
	fields := map[string]any{"session_id": s.id, "stateTransition": from + "->" + to}
	if s.meeting != nil {
		fields["meeting_id"] = s.meeting.ID
	}
	telemetry.Info("session.transition", fields)
	e := live.Event{Type: live.EventState, State: to}
	if s.meeting != nil {
		e.MeetingID = s.meeting.ID
	}
	s.m.publish(e)
}

// SelectTemplate creates the meeting and starts recording. When microphone
// access is refused the session moves to permissions_required and keeps the
// meeting for RetryPermissions.
func (s *Session) SelectTemplate(ctx context.Context, templateID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateTemplateSelection {
		return fmt.Errorf("%w: select template in %s", ErrInvalidTransition, s.state)
	}
	if templateID == "" {
		templateID = templates.DefaultID
	}
	tmpl, err := s.m.Templates.Get(templateID)
	if err != nil {
		return err
	}
	s.templateID = tmpl.ID

	if s.meeting == nil {
		now := s.m.now()
		meeting := meetings.Meeting{
			ID:           newID(),
			Title:        fmt.Sprintf("%s - %s", tmpl.Name, now.Format("2006-01-02 15:04")),
			Date:         meetings.DateOf(now),
			StartTime:    now,
			Participants: []string{},
			Platform:     s.m.Platform,
			IsRecording:  true,
			TemplateID:   tmpl.ID,
		}
		if err := s.m.Repo.CreateMeeting(ctx, meeting); err != nil {
			s.m.shell().Alert(alertStorage)
			return fmt.Errorf("create meeting: %w", err)
		}
		s.meeting = &meeting
	}
	return s.startRecordingLocked(ctx)
}

// RetryPermissions tries to start recording again after access was refused.
func (s *Session) RetryPermissions(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePermissionsRequired {
		return fmt.Errorf("%w: retry permissions in %s", ErrInvalidTransition, s.state)
	}
	return s.startRecordingLocked(ctx)
}

func (s *Session) startRecordingLocked(ctx context.Context) error {
	err := s.m.Recorder.Start(ctx, s.onChunk)
	if err == nil {
		s.lastErr = ""
		s.transition(StateRecording)
		s.m.shell().SetTray(host.TrayRecording)
		return nil
	}
	if errors.Is(err, audio.ErrPermissionDenied) {
		s.lastErr = err.Error()
		s.transition(StatePermissionsRequired)
		s.m.shell().Alert(alertPermission)
		return err
	}

	// The device failed for another reason; the pre-created meeting never
	// recorded anything.
	s.lastErr = err.Error()
	if s.meeting != nil {
		if delErr := s.m.Repo.DeleteMeeting(context.WithoutCancel(ctx), s.meeting.ID); delErr != nil {
			telemetry.Error("session.cleanup_failed", map[string]any{"meeting_id": s.meeting.ID, "error": delErr.Error()})
		}
	}
	s.transition(StateError)
	s.m.shell().Alert("Recording could not start: " + err.Error())
	metrics.IncSessionFailed()
	s.m.release(s)
	return err
}

// Cancel abandons a session that has not started recording. A pre-created
// meeting is deleted.
func (s *Session) Cancel(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateTemplateSelection && s.state != StatePermissionsRequired {
		return fmt.Errorf("%w: cancel in %s", ErrInvalidTransition, s.state)
	}
	if s.meeting != nil {
		if err := s.m.Repo.DeleteMeeting(ctx, s.meeting.ID); err != nil {
			return fmt.Errorf("delete meeting: %w", err)
		}
		s.meeting = nil
	}
	s.transition(StateIdle)
	s.m.release(s)
	return nil
}

// Stop ends the recording and runs the processing pipeline. Failures are
// reported through the host shell and also returned.
func (s *Session) Stop(ctx context.Context) (Outcome, error) {
	s.mu.Lock()
	if s.state != StateRecording {
		state := s.state
		s.mu.Unlock()
		return Outcome{}, fmt.Errorf("%w: stop in %s", ErrInvalidTransition, state)
	}
	s.transition(StateProcessing)
	meeting := *s.meeting
	templateID := s.templateID
	s.mu.Unlock()

	s.m.shell().SetTray(host.TrayProcessing)
	defer s.m.shell().SetTray(host.TrayIdle)
	defer s.m.release(s)

	started := time.Now()
	outcome, err := s.finish(ctx, meeting, templateID)
	metrics.ObserveProcessingDurationMs(float64(time.Since(started).Milliseconds()))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.meeting = &outcome.Meeting
	if err != nil {
		s.lastErr = err.Error()
		s.transition(StateError)
		metrics.IncSessionFailed()
		return outcome, err
	}
	s.outcome = &outcome
	s.transition(StateComplete)
	metrics.IncSessionCompleted()
	return outcome, nil
}

// finish waits for the final recording, ends the meeting and runs the
// pipeline stages.
func (s *Session) finish(ctx context.Context, meeting meetings.Meeting, templateID string) (Outcome, error) {
	recCh := make(chan audio.Recording, 1)
	var rec audio.Recording
	if err := s.m.Recorder.Stop(func(r audio.Recording) { recCh <- r }); err != nil {
		telemetry.Warn("session.recorder_stop_failed", map[string]any{"meeting_id": meeting.ID, "error": err.Error()})
	} else {
		select {
		case rec = <-recCh:
		case <-time.After(finalizeTimeout):
			telemetry.Warn("session.finalize_timeout", map[string]any{"meeting_id": meeting.ID})
		}
	}

	end := s.m.now()
	meeting.EndTime = &end
	meeting.IsRecording = false
	if err := s.m.Repo.UpdateMeeting(ctx, meeting); err != nil {
		s.m.shell().Alert(alertStorage)
		return Outcome{Meeting: meeting}, fmt.Errorf("end meeting: %w", err)
	}

	meeting = s.m.retain(ctx, meeting, rec.Data, rec.MimeType)
	return s.m.runStages(ctx, meeting, rec.Data, rec.MimeType, templateID, false)
}

func (s *Session) onChunk(ctx context.Context, chunk audio.Chunk) {
	text := s.m.Upstream.TranscribeChunk(ctx, chunk.Data, chunk.MimeType)
	if text == "" {
		return
	}
	metrics.IncChunkTranscript()
	s.mu.Lock()
	s.chunks = append(s.chunks, text)
	meetingID := ""
	if s.meeting != nil {
		meetingID = s.meeting.ID
	}
	s.mu.Unlock()
	s.m.publish(live.Event{Type: live.EventChunk, MeetingID: meetingID, Index: chunk.Index, Text: text})
}

var newID = uuid.NewString

var _ Upstream = (*llm.Gateway)(nil)
var _ Recorder = (*audio.Capture)(nil)
