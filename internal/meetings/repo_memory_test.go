package meetings

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestMemoryRepoDeleteCascadesOnlyToOwnDependents(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	target := seedMeeting(t, repo, "m1", testNow)
	other := seedMeeting(t, repo, "m2", testNow.Add(time.Hour))
	seedArtifacts(t, repo, target)
	seedArtifacts(t, repo, other)

	for i := 0; i < 2; i++ {
		if err := repo.DeleteMeeting(ctx, target.ID); err != nil {
			t.Fatalf("DeleteMeeting call %d: %v", i+1, err)
		}
	}

	if _, err := repo.GetMeeting(ctx, target.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected deleted meeting to be gone, got %v", err)
	}
	notes, _ := repo.ListNotes(ctx, target.ID)
	items, _ := repo.ListActionItems(ctx, target.ID)
	reminders, _ := repo.ListReminders(ctx, ReminderFilter{MeetingID: target.ID})
	if len(notes)+len(items)+len(reminders) != 0 {
		t.Fatalf("expected no dependents, got notes=%d items=%d reminders=%d", len(notes), len(items), len(reminders))
	}

	if _, err := repo.GetMeeting(ctx, other.ID); err != nil {
		t.Fatalf("expected other meeting to survive: %v", err)
	}
	notes, _ = repo.ListNotes(ctx, other.ID)
	items, _ = repo.ListActionItems(ctx, other.ID)
	reminders, _ = repo.ListReminders(ctx, ReminderFilter{MeetingID: other.ID})
	if len(notes) != 1 || len(items) != 2 || len(reminders) != 1 {
		t.Fatalf("expected other dependents intact, got notes=%d items=%d reminders=%d", len(notes), len(items), len(reminders))
	}
}

func TestMemoryRepoPreservesInsertionOrder(t *testing.T) {
	repo := NewMemoryRepo()
	m := seedMeeting(t, repo, "m1", testNow)
	items := NewActionItems(m, []ActionItemInput{{Description: "first"}, {Description: "second"}, {Description: "third"}}, testNow)
	if err := repo.CreateActionItems(context.Background(), items); err != nil {
		t.Fatalf("CreateActionItems: %v", err)
	}

	got, err := repo.ListActionItems(context.Background(), m.ID)
	if err != nil {
		t.Fatalf("ListActionItems: %v", err)
	}
	want := []string{"first", "second", "third"}
	for i, item := range got {
		if item.Description != want[i] {
			t.Fatalf("item %d: expected %q, got %q", i, want[i], item.Description)
		}
	}
}

func TestMemoryRepoListMeetingsNewestFirst(t *testing.T) {
	repo := NewMemoryRepo()
	seedMeeting(t, repo, "old", testNow.Add(-48*time.Hour))
	seedMeeting(t, repo, "new", testNow)
	seedMeeting(t, repo, "mid", testNow.Add(-24*time.Hour))

	got, err := repo.ListMeetings(context.Background(), 2, 0)
	if err != nil {
		t.Fatalf("ListMeetings: %v", err)
	}
	if len(got) != 2 || got[0].ID != "new" || got[1].ID != "mid" {
		t.Fatalf("unexpected order: %+v", got)
	}

	got, _ = repo.ListMeetings(context.Background(), 2, 5)
	if len(got) != 0 {
		t.Fatalf("expected empty page past the end, got %d", len(got))
	}
}

func TestMemoryRepoDueReminders(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	late := NewReminder("m1", ReminderInput{Title: "late", DueDate: testNow.Add(30 * time.Hour), OffsetHours: 24}, testNow)
	early := NewReminder("m1", ReminderInput{Title: "early", DueDate: testNow.Add(25 * time.Hour), OffsetHours: 24}, testNow)
	future := NewReminder("m1", ReminderInput{Title: "future", DueDate: testNow.Add(96 * time.Hour), OffsetHours: 24}, testNow)
	if err := repo.CreateReminders(ctx, []Reminder{late, early, future}); err != nil {
		t.Fatalf("CreateReminders: %v", err)
	}

	got, err := repo.ListReminders(ctx, DueFilter(testNow.Add(12*time.Hour), 0))
	if err != nil {
		t.Fatalf("ListReminders: %v", err)
	}
	if len(got) != 2 || got[0].Title != "early" || got[1].Title != "late" {
		t.Fatalf("expected early then late, got %+v", got)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "meetings.json")
	repo, err := OpenSnapshot(path)
	if err != nil {
		t.Fatalf("OpenSnapshot: %v", err)
	}
	m := seedMeeting(t, repo, "m1", testNow)
	seedArtifacts(t, repo, m)

	reloaded, err := OpenSnapshot(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := reloaded.GetMeeting(context.Background(), "m1")
	if err != nil {
		t.Fatalf("GetMeeting after reload: %v", err)
	}
	if got.Title != m.Title || !got.StartTime.Equal(m.StartTime) {
		t.Fatalf("unexpected meeting after reload: %+v", got)
	}
	items, _ := reloaded.ListActionItems(context.Background(), "m1")
	if len(items) != 2 {
		t.Fatalf("expected 2 action items after reload, got %d", len(items))
	}
}

func TestUpdateMissingIsNotFound(t *testing.T) {
	repo := NewMemoryRepo()
	if err := repo.UpdateMeeting(context.Background(), Meeting{ID: "nope"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.UpdateReminder(context.Background(), Reminder{ID: "nope"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
