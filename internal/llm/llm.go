// Package llm defines the upstream transcription and text-generation
// contracts used by the meeting pipeline, plus the admission, validation and
// retry guard that sits in front of them.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
)

// Transcriber converts a recorded audio blob into plain text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeHint string) (string, error)
}

// Enhancer turns a raw transcript into structured notes.
type Enhancer interface {
	Enhance(ctx context.Context, input EnhanceInput) (Enhancement, error)
}

// ReminderExtractor proposes dated follow-ups from a transcript.
type ReminderExtractor interface {
	ExtractReminders(ctx context.Context, transcript string, actionItems []string) ([]ReminderCandidate, error)
}

// EnhanceInput carries the transcript and the template's instructions.
type EnhanceInput struct {
	Transcript   string
	TemplateHint string
}

// Enhancement is the structured result of note enhancement.
type Enhancement struct {
	Summary         string   `json:"summary"`
	StructuredNotes string   `json:"structuredNotes"`
	ActionItems     []ActionItem `json:"actionItems"`
	Highlights      []string     `json:"highlights"`
}

// ActionItem is one task proposed by the enhancer. DueDate is passed through
// as written by the model and may be empty.
type ActionItem struct {
	Description string `json:"description"`
	DueDate     string `json:"dueDate,omitempty"`
}

// UnmarshalJSON accepts a bare string or an object with a description.
func (a *ActionItem) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var desc string
		if err := json.Unmarshal(trimmed, &desc); err != nil {
			return err
		}
		*a = ActionItem{Description: desc}
		return nil
	}
	var raw struct {
		Description string `json:"description"`
		Task        string `json:"task"`
		DueDate     string `json:"dueDate"`
	}
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return err
	}
	desc := raw.Description
	if strings.TrimSpace(desc) == "" {
		desc = raw.Task
	}
	*a = ActionItem{Description: desc, DueDate: raw.DueDate}
	return nil
}
