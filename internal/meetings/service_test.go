package meetings

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	local "meetnotes-backend/internal/shared/storage/object/local"
)

func newTestService(t *testing.T) (*Service, *MemoryRepo) {
	t.Helper()
	repo := NewMemoryRepo()
	svc := NewService(repo, local.New(t.TempDir()))
	svc.Now = func() time.Time { return testNow }
	return svc, repo
}

func TestSetActionItemStatusMaintainsCompletedAt(t *testing.T) {
	svc, repo := newTestService(t)
	m := seedMeeting(t, repo, "m1", testNow)
	items, _ := seedArtifacts(t, repo, m)
	ctx := context.Background()

	steps := []struct {
		status        string
		wantCompleted bool
	}{
		{status: ActionInProgress, wantCompleted: false},
		{status: ActionCompleted, wantCompleted: true},
		{status: ActionCompleted, wantCompleted: true},
		{status: ActionPending, wantCompleted: false},
	}
	for _, step := range steps {
		got, err := svc.SetActionItemStatus(ctx, items[0].ID, step.status)
		if err != nil {
			t.Fatalf("SetActionItemStatus(%s): %v", step.status, err)
		}
		if (got.CompletedAt != nil) != step.wantCompleted {
			t.Fatalf("status %s: completedAt=%v", step.status, got.CompletedAt)
		}
		stored, _ := repo.GetActionItem(ctx, items[0].ID)
		if stored.Status != step.status || (stored.CompletedAt != nil) != step.wantCompleted {
			t.Fatalf("stored item out of sync: %+v", stored)
		}
	}

	if _, err := svc.SetActionItemStatus(ctx, items[0].ID, "done"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestCompleteReminderCompletesLinkedActionItem(t *testing.T) {
	svc, repo := newTestService(t)
	m := seedMeeting(t, repo, "m1", testNow)
	items, rem := seedArtifacts(t, repo, m)
	ctx := context.Background()

	got, err := svc.CompleteReminder(ctx, rem.ID)
	if err != nil {
		t.Fatalf("CompleteReminder: %v", err)
	}
	if got.Status != ReminderDismissed {
		t.Fatalf("expected dismissed, got %s", got.Status)
	}
	linked, _ := repo.GetActionItem(ctx, items[0].ID)
	if linked.Status != ActionCompleted || linked.CompletedAt == nil {
		t.Fatalf("expected linked item completed, got %+v", linked)
	}
	other, _ := repo.GetActionItem(ctx, items[1].ID)
	if other.Status != ActionPending {
		t.Fatalf("expected unlinked item untouched, got %+v", other)
	}
}

func TestUpdateNote(t *testing.T) {
	svc, repo := newTestService(t)
	m := seedMeeting(t, repo, "m1", testNow)
	seedArtifacts(t, repo, m)
	ctx := context.Background()

	summary := "edited summary"
	got, err := svc.UpdateNote(ctx, "note-m1", NoteUpdate{Summary: &summary})
	if err != nil {
		t.Fatalf("UpdateNote: %v", err)
	}
	if got.Summary != summary || got.RawTranscript != "hello" {
		t.Fatalf("unexpected note %+v", got)
	}
	if _, err := svc.UpdateNote(ctx, "note-m1", NoteUpdate{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestDeleteRemovesRetainedAudio(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	m := seedMeeting(t, repo, "m1", testNow)
	m.AudioKey = "recordings/m1.webm"
	if err := repo.UpdateMeeting(ctx, m); err != nil {
		t.Fatalf("UpdateMeeting: %v", err)
	}
	if _, err := svc.Store.Put(ctx, m.AudioKey, "audio/webm", bytes.NewReader([]byte("audio"))); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if err := svc.Delete(ctx, m.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Store.Open(ctx, m.AudioKey); err == nil {
		t.Fatalf("expected retained audio to be removed")
	}
	if err := svc.Delete(ctx, m.ID); err != nil {
		t.Fatalf("second Delete should be a no-op, got %v", err)
	}
}

func TestDeleteRejectsRecordingMeeting(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	m := seedMeeting(t, repo, "m1", testNow)
	m.IsRecording = true
	if err := repo.UpdateMeeting(ctx, m); err != nil {
		t.Fatalf("UpdateMeeting: %v", err)
	}

	if err := svc.Delete(ctx, m.ID); !errors.Is(err, ErrRecording) {
		t.Fatalf("expected ErrRecording, got %v", err)
	}
	if _, err := repo.GetMeeting(ctx, m.ID); err != nil {
		t.Fatalf("meeting should still exist: %v", err)
	}

	m.IsRecording = false
	end := testNow.Add(time.Hour)
	m.EndTime = &end
	if err := repo.UpdateMeeting(ctx, m); err != nil {
		t.Fatalf("UpdateMeeting: %v", err)
	}
	if err := svc.Delete(ctx, m.ID); err != nil {
		t.Fatalf("Delete after recording ended: %v", err)
	}
}

func TestGetDetails(t *testing.T) {
	svc, repo := newTestService(t)
	m := seedMeeting(t, repo, "m1", testNow)
	seedArtifacts(t, repo, m)

	details, err := svc.Get(context.Background(), "m1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(details.Notes) != 1 || len(details.ActionItems) != 2 || len(details.Reminders) != 1 {
		t.Fatalf("unexpected details %+v", details)
	}
	if _, err := svc.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
