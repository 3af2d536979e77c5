package meetings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"meetnotes-backend/internal/shared/storage/object"
	"meetnotes-backend/internal/shared/telemetry"
)

// Service implements the user-facing operations on stored meetings.
type Service struct {
	Repo  Repo
	Store object.ObjectStore
	Now   func() time.Time
}

// NewService constructs a Service. store may be nil when recordings are not
// retained.
func NewService(repo Repo, store object.ObjectStore) *Service {
	return &Service{Repo: repo, Store: store, Now: time.Now}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// List returns meetings newest first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Meeting, error) {
	return s.Repo.ListMeetings(ctx, limit, offset)
}

// Get returns a meeting with its notes, action items and reminders.
func (s *Service) Get(ctx context.Context, id string) (Details, error) {
	m, err := s.Repo.GetMeeting(ctx, id)
	if err != nil {
		return Details{}, err
	}
	notes, err := s.Repo.ListNotes(ctx, id)
	if err != nil {
		return Details{}, err
	}
	items, err := s.Repo.ListActionItems(ctx, id)
	if err != nil {
		return Details{}, err
	}
	reminders, err := s.Repo.ListReminders(ctx, ReminderFilter{MeetingID: id})
	if err != nil {
		return Details{}, err
	}
	return Details{Meeting: m, Notes: notes, ActionItems: items, Reminders: reminders}, nil
}

// Delete removes a meeting and its dependents, plus any retained recording.
// Deleting a missing meeting succeeds; a meeting that is still recording is
// rejected with ErrRecording.
func (s *Service) Delete(ctx context.Context, id string) error {
	m, err := s.Repo.GetMeeting(ctx, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if err == nil && m.IsRecording {
		return ErrRecording
	}
	if err := s.Repo.DeleteMeeting(ctx, id); err != nil {
		return err
	}
	if m.AudioKey != "" && s.Store != nil {
		if err := s.Store.Delete(ctx, m.AudioKey); err != nil && !errors.Is(err, object.ErrNotFound) {
			telemetry.Warn("meetings.audio_delete_failed", map[string]any{
				"meeting_id": id,
				"error":      err.Error(),
			})
		}
	}
	return nil
}

// NoteUpdate holds manual edits; nil fields are left unchanged.
type NoteUpdate struct {
	EnhancedNotes *string `json:"enhancedNotes"`
	Summary       *string `json:"summary"`
}

// UpdateNote applies manual edits to a note.
func (s *Service) UpdateNote(ctx context.Context, id string, update NoteUpdate) (Note, error) {
	if update.EnhancedNotes == nil && update.Summary == nil {
		return Note{}, fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}
	n, err := s.Repo.GetNote(ctx, id)
	if err != nil {
		return Note{}, err
	}
	if update.EnhancedNotes != nil {
		n.EnhancedNotes = *update.EnhancedNotes
	}
	if update.Summary != nil {
		n.Summary = *update.Summary
	}
	n.UpdatedAt = s.now()
	if err := s.Repo.UpdateNote(ctx, n); err != nil {
		return Note{}, err
	}
	return n, nil
}

// SetActionItemStatus changes an action item's status. CompletedAt is set
// exactly when the status is completed.
func (s *Service) SetActionItemStatus(ctx context.Context, id, status string) (ActionItem, error) {
	status = strings.TrimSpace(status)
	switch status {
	case ActionPending, ActionInProgress, ActionCompleted:
	default:
		return ActionItem{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	item, err := s.Repo.GetActionItem(ctx, id)
	if err != nil {
		return ActionItem{}, err
	}
	applyActionStatus(&item, status, s.now())
	if err := s.Repo.UpdateActionItem(ctx, item); err != nil {
		return ActionItem{}, err
	}
	return item, nil
}

func applyActionStatus(item *ActionItem, status string, now time.Time) {
	if status == ActionCompleted {
		if item.Status != ActionCompleted || item.CompletedAt == nil {
			item.CompletedAt = &now
		}
	} else {
		item.CompletedAt = nil
	}
	item.Status = status
}

// SetReminderStatus changes a reminder's status.
func (s *Service) SetReminderStatus(ctx context.Context, id, status string) (Reminder, error) {
	status = strings.TrimSpace(status)
	switch status {
	case ReminderPending, ReminderSent, ReminderDismissed:
	default:
		return Reminder{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	rem, err := s.Repo.GetReminder(ctx, id)
	if err != nil {
		return Reminder{}, err
	}
	rem.Status = status
	rem.UpdatedAt = s.now()
	if err := s.Repo.UpdateReminder(ctx, rem); err != nil {
		return Reminder{}, err
	}
	return rem, nil
}

// CompleteReminder dismisses the reminder and completes its linked action
// item, if any.
func (s *Service) CompleteReminder(ctx context.Context, id string) (Reminder, error) {
	rem, err := s.SetReminderStatus(ctx, id, ReminderDismissed)
	if err != nil {
		return Reminder{}, err
	}
	if rem.ActionItemID == "" {
		return rem, nil
	}
	if _, err := s.SetActionItemStatus(ctx, rem.ActionItemID, ActionCompleted); err != nil && !errors.Is(err, ErrNotFound) {
		return Reminder{}, err
	}
	return rem, nil
}

// ListReminders returns reminders matching filter.
func (s *Service) ListReminders(ctx context.Context, filter ReminderFilter) ([]Reminder, error) {
	return s.Repo.ListReminders(ctx, filter)
}
