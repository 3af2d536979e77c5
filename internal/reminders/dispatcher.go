// Package reminders delivers due reminders through the host shell.
package reminders

import (
	"context"
	"fmt"
	"time"

	"meetnotes-backend/internal/host"
	"meetnotes-backend/internal/meetings"
	"meetnotes-backend/internal/shared/metrics"
	"meetnotes-backend/internal/shared/telemetry"
)

const (
	defaultInterval = time.Minute
	defaultBatch    = 50
)

// Dispatcher periodically marks pending reminders whose reminder date has
// passed as sent, showing one host notification each.
type Dispatcher struct {
	Repo     meetings.Repo
	Shell    host.Shell
	Interval time.Duration
	Batch    int
	Now      func() time.Time
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(repo meetings.Repo, shell host.Shell, interval time.Duration) *Dispatcher {
	return &Dispatcher{Repo: repo, Shell: shell, Interval: interval}
}

// Run checks immediately and then on every tick until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) {
	interval := d.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := d.CheckDue(ctx); err != nil && ctx.Err() == nil {
			telemetry.Error("reminders.check_failed", map[string]any{"error": err.Error()})
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// CheckDue sends every due reminder once and returns how many were sent.
func (d *Dispatcher) CheckDue(ctx context.Context) (int, error) {
	batch := d.Batch
	if batch <= 0 {
		batch = defaultBatch
	}
	now := d.now()
	due, err := d.Repo.ListReminders(ctx, meetings.DueFilter(now, batch))
	if err != nil {
		return 0, fmt.Errorf("list due reminders: %w", err)
	}

	shell := host.OrNop(d.Shell)
	sent := 0
	for _, r := range due {
		r.Status = meetings.ReminderSent
		r.UpdatedAt = now
		if err := d.Repo.UpdateReminder(ctx, r); err != nil {
			telemetry.Error("reminders.mark_sent_failed", map[string]any{"reminder_id": r.ID, "error": err.Error()})
			continue
		}
		shell.Notify(r.Title, body(r))
		metrics.IncReminderSent()
		sent++
	}
	if sent > 0 {
		telemetry.Info("reminders.sent", map[string]any{"count": sent})
	}
	return sent, nil
}

func body(r meetings.Reminder) string {
	due := "Due " + r.DueDate.Local().Format("Mon Jan 2 15:04")
	if r.Description == "" {
		return due
	}
	return r.Description + "\n" + due
}

func (d *Dispatcher) now() time.Time {
	if d.Now == nil {
		return time.Now().UTC()
	}
	return d.Now().UTC()
}
