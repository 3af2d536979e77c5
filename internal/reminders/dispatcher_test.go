package reminders

import (
	"context"
	"sync"
	"testing"
	"time"

	"meetnotes-backend/internal/host"
	"meetnotes-backend/internal/meetings"
)

var testNow = time.Date(2026, time.March, 2, 15, 4, 5, 0, time.UTC)

type notifyShell struct {
	host.Nop
	mu     sync.Mutex
	titles []string
}

func (s *notifyShell) Notify(title, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.titles = append(s.titles, title)
}

func seed(t *testing.T, repo meetings.Repo, title string, due time.Time, offset int) meetings.Reminder {
	t.Helper()
	r := meetings.NewReminder("m1", meetings.ReminderInput{Title: title, DueDate: due, OffsetHours: offset}, testNow)
	if err := repo.CreateReminders(context.Background(), []meetings.Reminder{r}); err != nil {
		t.Fatalf("CreateReminders: %v", err)
	}
	return r
}

func TestCheckDueSendsOnlyDueReminders(t *testing.T) {
	repo := meetings.NewMemoryRepo()
	shell := &notifyShell{}
	d := NewDispatcher(repo, shell, time.Minute)
	d.Now = func() time.Time { return testNow }

	due := seed(t, repo, "Send deck", testNow.Add(12*time.Hour), 24)
	later := seed(t, repo, "Book room", testNow.Add(96*time.Hour), 24)

	sent, err := d.CheckDue(context.Background())
	if err != nil {
		t.Fatalf("CheckDue: %v", err)
	}
	if sent != 1 || len(shell.titles) != 1 || shell.titles[0] != "Send deck" {
		t.Fatalf("sent=%d titles=%v", sent, shell.titles)
	}

	ctx := context.Background()
	got, _ := repo.GetReminder(ctx, due.ID)
	if got.Status != meetings.ReminderSent {
		t.Fatalf("due reminder status %s", got.Status)
	}
	got, _ = repo.GetReminder(ctx, later.ID)
	if got.Status != meetings.ReminderPending {
		t.Fatalf("later reminder status %s", got.Status)
	}

	sent, _ = d.CheckDue(ctx)
	if sent != 0 {
		t.Fatalf("reminder sent twice: %d", sent)
	}
}

func TestCheckDueSkipsDismissed(t *testing.T) {
	repo := meetings.NewMemoryRepo()
	d := NewDispatcher(repo, nil, 0)
	d.Now = func() time.Time { return testNow }

	r := seed(t, repo, "Old", testNow, 24)
	r.Status = meetings.ReminderDismissed
	if err := repo.UpdateReminder(context.Background(), r); err != nil {
		t.Fatalf("UpdateReminder: %v", err)
	}

	sent, err := d.CheckDue(context.Background())
	if err != nil || sent != 0 {
		t.Fatalf("sent=%d err=%v", sent, err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	repo := meetings.NewMemoryRepo()
	shell := &notifyShell{}
	d := NewDispatcher(repo, shell, time.Hour)
	d.Now = func() time.Time { return testNow }
	seed(t, repo, "Now", testNow, 24)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for {
		shell.mu.Lock()
		n := len(shell.titles)
		shell.mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("initial check did not run")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
