package meetings

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// AllowedOffsets are the lead times, in hours, a reminder may fire before
// its due date.
var AllowedOffsets = []int{24, 48, 72}

// DefaultOffsetHours applies when no offset was proposed.
const DefaultOffsetHours = 24

// NormalizeOffset snaps hours to the nearest allowed offset. Ties pick the
// shorter lead time.
func NormalizeOffset(hours int) int {
	if hours <= 0 {
		return DefaultOffsetHours
	}
	best := AllowedOffsets[0]
	for _, allowed := range AllowedOffsets[1:] {
		if abs(hours-allowed) < abs(hours-best) {
			best = allowed
		}
	}
	return best
}

// NormalizePriority maps free text onto low, medium or high.
func NormalizePriority(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case PriorityLow:
		return PriorityLow
	case PriorityHigh, "urgent", "critical":
		return PriorityHigh
	default:
		return PriorityMedium
	}
}

// ReminderInput describes a reminder before it is stored.
type ReminderInput struct {
	Title        string
	Description  string
	DueDate      time.Time
	OffsetHours  int
	Priority     string
	ActionItemID string
}

// NewReminder builds a pending reminder whose ReminderDate is DueDate minus
// the normalized offset.
func NewReminder(meetingID string, in ReminderInput, now time.Time) Reminder {
	offset := NormalizeOffset(in.OffsetHours)
	due := in.DueDate.UTC()
	return Reminder{
		ID:           uuid.NewString(),
		MeetingID:    meetingID,
		Title:        strings.TrimSpace(in.Title),
		Description:  strings.TrimSpace(in.Description),
		DueDate:      due,
		ReminderDate: due.Add(-time.Duration(offset) * time.Hour),
		Status:       ReminderPending,
		Priority:     NormalizePriority(in.Priority),
		ActionItemID: in.ActionItemID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// ActionItemInput is a proposed action item before it gets an id.
type ActionItemInput struct {
	Description string
	DueDate     *time.Time
}

// NewActionItems builds pending action items for a meeting, preserving order.
func NewActionItems(m Meeting, inputs []ActionItemInput, now time.Time) []ActionItem {
	items := make([]ActionItem, 0, len(inputs))
	for _, in := range inputs {
		item := ActionItem{
			ID:          uuid.NewString(),
			MeetingID:   m.ID,
			Date:        DateOf(m.Date),
			Description: in.Description,
			Status:      ActionPending,
			CreatedAt:   now,
		}
		if in.DueDate != nil {
			due := in.DueDate.UTC()
			item.DueDate = &due
		}
		items = append(items, item)
	}
	return items
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
