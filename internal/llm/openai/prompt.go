package openai

import (
	"fmt"
	"strings"
	"time"
)

const enhanceSystemPrompt = `You turn raw meeting transcripts into concise notes. Respond with JSON only. No markdown fences.
Return exactly these keys:
{
  "summary": "two to four sentence overview",
  "structuredNotes": "markdown notes with headings and bullet points",
  "actionItems": [{"description": "one task, starting with a verb, include the owner when named", "dueDate": "YYYY-MM-DD when a deadline is stated, otherwise empty"}],
  "highlights": ["key decisions or notable quotes"]
}
Use empty arrays when nothing applies. Never invent attendees, dates or decisions that are not in the transcript.`

const remindersSystemPrompt = `You extract follow-up reminders from meeting transcripts. Respond with JSON only. No markdown fences.
Return {"reminders": [...]} where each reminder has:
  "title": short imperative title,
  "description": one sentence of context,
  "dueDate": ISO 8601 timestamp in UTC,
  "priority": "low" | "medium" | "high",
  "reminderOffsetHours": 24 | 48 | 72,
  "actionItem": the matching action item text, or "" when none applies.
Only include items that have an explicit or clearly implied deadline. Resolve relative dates against the current time given below.
Return {"reminders": []} when nothing qualifies.`

func buildEnhanceMessages(transcript, templateHint string) []chatMessage {
	system := enhanceSystemPrompt
	if hint := strings.TrimSpace(templateHint); hint != "" {
		system += "\n\nMeeting type guidance:\n" + hint
	}
	body := strings.TrimSpace(transcript)
	if body == "" {
		body = "(no speech was captured)"
	}
	return []chatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: fmt.Sprintf("Transcript:\n%s", body)},
	}
}

func buildReminderMessages(transcript string, actionItems []string, now time.Time) []chatMessage {
	var b strings.Builder
	fmt.Fprintf(&b, "Current time: %s\n\n", now.UTC().Format(time.RFC3339))
	if len(actionItems) > 0 {
		b.WriteString("Action items:\n")
		for _, item := range actionItems {
			fmt.Fprintf(&b, "- %s\n", item)
		}
		b.WriteString("\n")
	}
	body := strings.TrimSpace(transcript)
	if body == "" {
		body = "N/A"
	}
	fmt.Fprintf(&b, "Transcript:\n%s", body)
	return []chatMessage{
		{Role: "system", Content: remindersSystemPrompt},
		{Role: "user", Content: b.String()},
	}
}
