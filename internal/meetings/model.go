package meetings

import "time"

// Meeting is one recorded conversation.
type Meeting struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Date            time.Time  `json:"date"`
	StartTime       time.Time  `json:"startTime"`
	EndTime         *time.Time `json:"endTime,omitempty"`
	Participants    []string   `json:"participants"`
	Platform        string     `json:"platform"`
	IsRecording     bool       `json:"isRecording"`
	TemplateID      string     `json:"templateId,omitempty"`
	AudioKey        string     `json:"audioKey,omitempty"`
	ProcessingError string     `json:"processingError,omitempty"`
}

// Note holds the transcript and the enhanced notes for a meeting.
type Note struct {
	ID            string   `json:"id"`
	MeetingID     string   `json:"meetingId"`
	RawTranscript string   `json:"rawTranscript"`
	EnhancedNotes string   `json:"enhancedNotes"`
	Summary       string   `json:"summary"`
	Highlights    []string `json:"highlights"`
	// ActionItems is kept for payload compatibility; action items are stored
	// as separate records.
	ActionItems []string  `json:"actionItems"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Action item statuses.
const (
	ActionPending    = "pending"
	ActionInProgress = "in_progress"
	ActionCompleted  = "completed"
)

// ActionItem is a task extracted from a meeting.
type ActionItem struct {
	ID          string     `json:"id"`
	MeetingID   string     `json:"meetingId"`
	Date        time.Time  `json:"date"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Reminder statuses.
const (
	ReminderPending   = "pending"
	ReminderSent      = "sent"
	ReminderDismissed = "dismissed"
)

// Reminder priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Reminder is a dated follow-up derived from a meeting.
type Reminder struct {
	ID           string    `json:"id"`
	MeetingID    string    `json:"meetingId"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	DueDate      time.Time `json:"dueDate"`
	ReminderDate time.Time `json:"reminderDate"`
	Status       string    `json:"status"`
	Priority     string    `json:"priority"`
	ActionItemID string    `json:"actionItemId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Details bundles a meeting with its dependents.
type Details struct {
	Meeting     Meeting      `json:"meeting"`
	Notes       []Note       `json:"notes"`
	ActionItems []ActionItem `json:"actionItems"`
	Reminders   []Reminder   `json:"reminders"`
}

// ReminderFilter narrows ListReminders. Zero fields match everything.
type ReminderFilter struct {
	MeetingID string
	Status    string
	// DueBefore keeps reminders whose ReminderDate is not after it and orders
	// the result by ReminderDate.
	DueBefore *time.Time
	Limit     int
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
