package queue

import (
	"strings"
	"testing"
	"time"
)

func TestNewMessageStampsVersionAndTime(t *testing.T) {
	now := time.Date(2026, 3, 2, 15, 4, 5, 0, time.FixedZone("CET", 3600))
	msg := NewMessage("meeting-1", "req-1", now)

	if msg.Version != MessageVersion {
		t.Fatalf("expected version %d, got %d", MessageVersion, msg.Version)
	}
	if msg.EnqueuedAt != "2026-03-02T14:04:05Z" {
		t.Fatalf("unexpected enqueuedAt %q", msg.EnqueuedAt)
	}

	payload, err := EncodeMessage(msg)
	if err != nil {
		t.Fatalf("encode message: %v", err)
	}
	if !strings.Contains(string(payload), `"meetingId":"meeting-1"`) {
		t.Fatalf("payload missing meetingId: %s", payload)
	}

	got, err := DecodeMessage(payload)
	if err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if got != msg {
		t.Fatalf("decoded %+v want %+v", got, msg)
	}
}

func TestDecodeMessageRejectsInvalidJSON(t *testing.T) {
	if _, err := DecodeMessage([]byte("{bad")); err == nil {
		t.Fatal("expected decode error")
	}
}
