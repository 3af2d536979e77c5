package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"meetnotes-backend/internal/meetings"
	"meetnotes-backend/internal/session"
	"meetnotes-backend/internal/templates"
)

// Formatter writes human-readable command output.
type Formatter struct {
	w io.Writer
}

// NewFormatter constructs a Formatter writing to w.
func NewFormatter(w io.Writer) *Formatter {
	return &Formatter{w: w}
}

func (f *Formatter) Error(msg string) {
	fmt.Fprintf(f.w, "❌ %s\n", msg)
}

func (f *Formatter) Info(msg string) {
	fmt.Fprintf(f.w, "ℹ️  %s\n", msg)
}

func (f *Formatter) Success(msg string) {
	fmt.Fprintf(f.w, "✅ %s\n", msg)
}

func (f *Formatter) Warning(msg string) {
	fmt.Fprintf(f.w, "⚠️  %s\n", msg)
}

func (f *Formatter) RecordingStarted(templateName, meetingID string) {
	fmt.Fprintf(f.w, "🎙️  Recording %s (%s). Press Ctrl+C to stop.\n", templateName, meetingID)
}

func (f *Formatter) RecordingStopped(duration time.Duration) {
	fmt.Fprintf(f.w, "⏹️  Recording stopped (%s)\n", formatDuration(duration))
}

func (f *Formatter) Processing() {
	fmt.Fprintf(f.w, "📝 Transcribing and generating notes...\n")
}

func (f *Formatter) LiveText(text string) {
	fmt.Fprintf(f.w, "  … %s\n", text)
}

func (f *Formatter) Outcome(out session.Outcome) {
	fmt.Fprintf(f.w, "\n📁 %s (%s)\n", out.Meeting.Title, out.Meeting.ID)
	if out.Note.Summary != "" {
		fmt.Fprintf(f.w, "\n%s\n", out.Note.Summary)
	}
	f.actionItems(out.ActionItems)
	f.reminders(out.Reminders)
	if out.ReminderErr != nil {
		f.Warning("Reminders could not be generated: " + out.ReminderErr.Error())
	}
}

func (f *Formatter) MeetingList(list []meetings.Meeting) {
	if len(list) == 0 {
		f.Info("No meetings found")
		return
	}
	fmt.Fprintf(f.w, "📁 Meetings:\n\n")
	for _, m := range list {
		status := ""
		switch {
		case m.IsRecording:
			status = " 🎙️"
		case m.ProcessingError != "":
			status = " ⚠️"
		}
		fmt.Fprintf(f.w, "  %s  %s  %s%s\n", m.ID, m.StartTime.Local().Format("2006-01-02 15:04"), m.Title, status)
	}
}

func (f *Formatter) Details(d meetings.Details) {
	m := d.Meeting
	fmt.Fprintf(f.w, "📁 %s\n", m.Title)
	fmt.Fprintf(f.w, "   id: %s\n   template: %s\n   started: %s\n", m.ID, m.TemplateID, m.StartTime.Local().Format(time.RFC1123))
	if m.EndTime != nil {
		fmt.Fprintf(f.w, "   duration: %s\n", formatDuration(m.EndTime.Sub(m.StartTime)))
	}
	if m.ProcessingError != "" {
		f.Warning("Processing failed: " + m.ProcessingError)
	}
	for _, n := range d.Notes {
		if n.Summary != "" {
			fmt.Fprintf(f.w, "\n## Summary\n%s\n", n.Summary)
		}
		if n.EnhancedNotes != "" {
			fmt.Fprintf(f.w, "\n## Notes\n%s\n", n.EnhancedNotes)
		}
		if len(n.Highlights) > 0 {
			fmt.Fprintf(f.w, "\n## Highlights\n")
			for _, h := range n.Highlights {
				fmt.Fprintf(f.w, "- %s\n", h)
			}
		}
	}
	f.actionItems(d.ActionItems)
	f.reminders(d.Reminders)
}

func (f *Formatter) actionItems(items []meetings.ActionItem) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(f.w, "\n## Action items\n")
	for _, it := range items {
		box := "[ ]"
		if it.Status == meetings.ActionCompleted {
			box = "[x]"
		}
		fmt.Fprintf(f.w, "- %s %s\n", box, it.Description)
	}
}

func (f *Formatter) reminders(list []meetings.Reminder) {
	if len(list) == 0 {
		return
	}
	fmt.Fprintf(f.w, "\n## Reminders\n")
	f.ReminderList(list)
}

func (f *Formatter) ReminderList(list []meetings.Reminder) {
	for _, r := range list {
		fmt.Fprintf(f.w, "- %s  %s  [%s, %s] remind %s, due %s\n",
			r.ID, r.Title, r.Priority, r.Status,
			r.ReminderDate.Local().Format("Jan 2 15:04"),
			r.DueDate.Local().Format("Jan 2 15:04"))
	}
}

func (f *Formatter) TemplateList(list []templates.Template) {
	for _, t := range list {
		fmt.Fprintf(f.w, "  %-12s %s\n", t.ID, t.Name)
	}
}

func (f *Formatter) SetupCheck(name string, ok bool, detail string) {
	if ok {
		fmt.Fprintf(f.w, "  ✅ %s: %s\n", name, detail)
	} else {
		fmt.Fprintf(f.w, "  ❌ %s: %s\n", name, detail)
	}
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	parts := make([]string, 0, 3)
	if h > 0 {
		parts = append(parts, fmt.Sprintf("%dh", h))
	}
	if h > 0 || m > 0 {
		parts = append(parts, fmt.Sprintf("%dm", m))
	}
	parts = append(parts, fmt.Sprintf("%ds", s))
	return strings.Join(parts, "")
}
