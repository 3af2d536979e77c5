package meetings

import (
	"context"
	"time"
)

// Repo defines persistence operations for meetings and their dependents.
// Dependents reference a meeting only by id; DeleteMeeting removes them.
type Repo interface {
	CreateMeeting(ctx context.Context, m Meeting) error
	UpdateMeeting(ctx context.Context, m Meeting) error
	GetMeeting(ctx context.Context, id string) (Meeting, error)
	// ListMeetings returns meetings newest first.
	ListMeetings(ctx context.Context, limit, offset int) ([]Meeting, error)
	// DeleteMeeting removes the meeting and every note, action item and
	// reminder referencing it. Deleting a missing meeting is not an error.
	DeleteMeeting(ctx context.Context, id string) error
	// ClearArtifacts removes notes, action items and reminders of a meeting
	// but keeps the meeting itself.
	ClearArtifacts(ctx context.Context, meetingID string) error

	CreateNote(ctx context.Context, n Note) error
	UpdateNote(ctx context.Context, n Note) error
	GetNote(ctx context.Context, id string) (Note, error)
	ListNotes(ctx context.Context, meetingID string) ([]Note, error)

	CreateActionItems(ctx context.Context, items []ActionItem) error
	UpdateActionItem(ctx context.Context, item ActionItem) error
	GetActionItem(ctx context.Context, id string) (ActionItem, error)
	ListActionItems(ctx context.Context, meetingID string) ([]ActionItem, error)

	CreateReminders(ctx context.Context, reminders []Reminder) error
	UpdateReminder(ctx context.Context, r Reminder) error
	GetReminder(ctx context.Context, id string) (Reminder, error)
	ListReminders(ctx context.Context, filter ReminderFilter) ([]Reminder, error)
}

// DueFilter selects pending reminders whose reminder date has passed.
func DueFilter(now time.Time, limit int) ReminderFilter {
	return ReminderFilter{Status: ReminderPending, DueBefore: &now, Limit: limit}
}
