package openai

import (
	"context"
	"strings"

	"meetnotes-backend/internal/llm"
	"meetnotes-backend/internal/shared/ratelimit"
)

// Enhance asks the chat model for structured notes.
func (c *Client) Enhance(ctx context.Context, input llm.EnhanceInput) (llm.Enhancement, error) {
	var out llm.Enhancement
	messages := buildEnhanceMessages(input.Transcript, input.TemplateHint)
	if err := c.completeJSON(ctx, ratelimit.OpEnhance, messages, &out); err != nil {
		return llm.Enhancement{}, err
	}
	out.Summary = strings.TrimSpace(out.Summary)
	out.StructuredNotes = strings.TrimSpace(out.StructuredNotes)
	out.ActionItems = compactActionItems(out.ActionItems)
	out.Highlights = compact(out.Highlights)
	return out, nil
}

type remindersPayload struct {
	Reminders []llm.ReminderCandidate `json:"reminders"`
}

// ExtractReminders asks the chat model for dated follow-ups. Candidates are
// returned as proposed; the caller validates dates and offsets.
func (c *Client) ExtractReminders(ctx context.Context, transcript string, actionItems []string) ([]llm.ReminderCandidate, error) {
	var out remindersPayload
	messages := buildReminderMessages(transcript, actionItems, c.now())
	if err := c.completeJSON(ctx, ratelimit.OpExtractReminders, messages, &out); err != nil {
		return nil, err
	}
	candidates := make([]llm.ReminderCandidate, 0, len(out.Reminders))
	for _, r := range out.Reminders {
		if strings.TrimSpace(r.Title) == "" {
			continue
		}
		candidates = append(candidates, r)
	}
	return candidates, nil
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func compactActionItems(items []llm.ActionItem) []llm.ActionItem {
	out := make([]llm.ActionItem, 0, len(items))
	for _, item := range items {
		desc := strings.TrimSpace(item.Description)
		if desc == "" {
			continue
		}
		out = append(out, llm.ActionItem{Description: desc, DueDate: strings.TrimSpace(item.DueDate)})
	}
	return out
}
