package meetings

import (
	"context"
	"testing"
	"time"
)

var testNow = time.Date(2026, time.March, 2, 15, 4, 5, 0, time.UTC)

func seedMeeting(t *testing.T, repo Repo, id string, start time.Time) Meeting {
	t.Helper()
	m := Meeting{
		ID:           id,
		Title:        "General - " + id,
		Date:         DateOf(start),
		StartTime:    start,
		Participants: []string{},
		Platform:     "desktop",
		TemplateID:   "general",
	}
	if err := repo.CreateMeeting(context.Background(), m); err != nil {
		t.Fatalf("CreateMeeting: %v", err)
	}
	return m
}

func seedArtifacts(t *testing.T, repo Repo, m Meeting) ([]ActionItem, Reminder) {
	t.Helper()
	ctx := context.Background()
	note := Note{ID: "note-" + m.ID, MeetingID: m.ID, RawTranscript: "hello", CreatedAt: testNow, UpdatedAt: testNow}
	if err := repo.CreateNote(ctx, note); err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	items := NewActionItems(m, []ActionItemInput{{Description: "Send deck"}, {Description: "Book room"}}, testNow)
	if err := repo.CreateActionItems(ctx, items); err != nil {
		t.Fatalf("CreateActionItems: %v", err)
	}
	rem := NewReminder(m.ID, ReminderInput{
		Title:        "Send deck",
		DueDate:      testNow.Add(72 * time.Hour),
		OffsetHours:  24,
		ActionItemID: items[0].ID,
	}, testNow)
	if err := repo.CreateReminders(ctx, []Reminder{rem}); err != nil {
		t.Fatalf("CreateReminders: %v", err)
	}
	return items, rem
}
