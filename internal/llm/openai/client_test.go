package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"meetnotes-backend/internal/llm"
)

const testKey = StaticKey("sk-test-0123456789abcdef")

func newTestClient(t *testing.T, srv *httptest.Server, keys KeySource, model string) *Client {
	t.Helper()
	client, err := NewClient(Options{
		Keys:       keys,
		BaseURL:    srv.URL,
		ChatModel:  model,
		HTTPClient: srv.Client(),
		Now: func() time.Time {
			return time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
		},
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func chatReply(content string) string {
	payload, _ := json.Marshal(map[string]any{
		"model": "gpt-4o-mini",
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	return string(payload)
}

func TestIsGPT5(t *testing.T) {
	tests := []struct {
		name  string
		model string
		want  bool
	}{
		{name: "gpt5", model: "gpt-5", want: true},
		{name: "gpt5 variant", model: "gpt-5-mini", want: true},
		{name: "gpt5 uppercase", model: " GPT-5o ", want: true},
		{name: "gpt4", model: "gpt-4o", want: false},
		{name: "empty", model: "", want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := isGPT5(tt.model); got != tt.want {
				t.Fatalf("isGPT5(%q) = %v, want %v", tt.model, got, tt.want)
			}
		})
	}
}

func TestValidateAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{name: "valid", key: "sk-test-0123456789abcdef"},
		{name: "empty", key: "", wantErr: true},
		{name: "wrong prefix", key: "pk-test-0123456789abcdef", wantErr: true},
		{name: "too short", key: "sk-abc", wantErr: true},
		{name: "inner whitespace", key: "sk-test-0123 456789abcdef", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAPIKey(tt.key)
			if tt.wantErr {
				if !errors.Is(err, llm.ErrValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestTranscribeSendsMultipartForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer "+string(testKey) {
			t.Errorf("unexpected auth header %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if got := r.FormValue("model"); got != "whisper-1" {
			t.Errorf("expected model whisper-1, got %q", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		if header.Filename != "recording.ogg" {
			t.Errorf("expected recording.ogg, got %q", header.Filename)
		}
		data, _ := io.ReadAll(file)
		if string(data) != "OggS-audio" {
			t.Errorf("unexpected file body %q", string(data))
		}
		_, _ = w.Write([]byte(`{"text":"  hello team  "}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv, testKey, "gpt-4o-mini")
	text, err := client.Transcribe(context.Background(), []byte("OggS-audio"), "audio/ogg;codecs=opus")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "hello team" {
		t.Fatalf("expected trimmed text, got %q", text)
	}
}

func TestTranscribeMapsServerErrorToUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":{"message":"upstream overloaded","type":"server_error"}}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv, testKey, "gpt-4o-mini")
	_, err := client.Transcribe(context.Background(), []byte("audio"), "audio/webm")
	var upstream *llm.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstream.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected status 502, got %d", upstream.StatusCode)
	}
	if upstream.Message != "upstream overloaded" {
		t.Fatalf("expected provider message, got %q", upstream.Message)
	}
	if !errors.Is(err, llm.ErrUpstream) {
		t.Fatalf("expected errors.Is ErrUpstream")
	}
}

func TestMissingKeyFailsWithoutRequest(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	client := newTestClient(t, srv, StaticKey(""), "gpt-4o-mini")
	if _, err := client.Enhance(context.Background(), llm.EnhanceInput{Transcript: "hi"}); !errors.Is(err, llm.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := client.Transcribe(context.Background(), []byte("audio"), ""); !errors.Is(err, llm.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatalf("expected no requests, got %d", calls)
	}
}

func TestEnhanceParsesJSONContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.ResponseFormat.Type != "json_object" {
			t.Errorf("expected json_object response format, got %q", req.ResponseFormat.Type)
		}
		if req.Temperature == nil {
			t.Errorf("expected temperature for non gpt-5 model")
		}
		if len(req.Messages) != 2 || !strings.Contains(req.Messages[0].Content, "Daily standup") {
			t.Errorf("expected template hint in system prompt, got %+v", req.Messages)
		}
		_, _ = w.Write([]byte(chatReply(`{"summary":" Sync ","structuredNotes":"## Notes","actionItems":["Ship build"," "],"highlights":[]}`)))
	}))
	defer srv.Close()

	client := newTestClient(t, srv, testKey, "gpt-4o-mini")
	out, err := client.Enhance(context.Background(), llm.EnhanceInput{Transcript: "we ship friday", TemplateHint: "Daily standup"})
	if err != nil {
		t.Fatalf("Enhance: %v", err)
	}
	if out.Summary != "Sync" {
		t.Fatalf("expected trimmed summary, got %q", out.Summary)
	}
	if len(out.ActionItems) != 1 || out.ActionItems[0].Description != "Ship build" {
		t.Fatalf("expected blank action items dropped, got %+v", out.ActionItems)
	}
}

func TestEnhanceAcceptsActionItemObjects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chatReply(`{"summary":"s","structuredNotes":"n","actionItems":[{"description":"Ship v2","dueDate":"2026-03-06"},{"description":"Email client"},{"description":""}],"highlights":[]}`)))
	}))
	defer srv.Close()

	client := newTestClient(t, srv, testKey, "gpt-4o-mini")
	out, err := client.Enhance(context.Background(), llm.EnhanceInput{Transcript: "ship v2 by friday"})
	if err != nil {
		t.Fatalf("Enhance: %v", err)
	}
	want := []llm.ActionItem{
		{Description: "Ship v2", DueDate: "2026-03-06"},
		{Description: "Email client"},
	}
	if len(out.ActionItems) != len(want) {
		t.Fatalf("expected %d action items, got %+v", len(want), out.ActionItems)
	}
	for i := range want {
		if out.ActionItems[i] != want[i] {
			t.Fatalf("item %d: expected %+v, got %+v", i, want[i], out.ActionItems[i])
		}
	}
}

func TestEnhanceOmitsTemperatureForGPT5(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		_ = json.NewDecoder(r.Body).Decode(&raw)
		if _, ok := raw["temperature"]; ok {
			t.Errorf("expected no temperature for gpt-5")
		}
		_, _ = w.Write([]byte(chatReply(`{"summary":"s","structuredNotes":"n","actionItems":[],"highlights":[]}`)))
	}))
	defer srv.Close()

	client := newTestClient(t, srv, testKey, "gpt-5-mini")
	if _, err := client.Enhance(context.Background(), llm.EnhanceInput{}); err != nil {
		t.Fatalf("Enhance: %v", err)
	}
}

func TestEmptyContentIsNoResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "no choices", body: `{"choices":[]}`},
		{name: "blank content", body: chatReply("   ")},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := newTestClient(t, srv, testKey, "gpt-4o-mini")
			_, err := client.Enhance(context.Background(), llm.EnhanceInput{Transcript: "x"})
			if !errors.Is(err, llm.ErrNoResponse) {
				t.Fatalf("expected ErrNoResponse, got %v", err)
			}
		})
	}
}

func TestExtractRemindersIncludesCurrentTime(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		user := req.Messages[len(req.Messages)-1].Content
		if !strings.Contains(user, "Current time: 2026-03-02T09:00:00Z") {
			t.Errorf("expected current time in prompt, got %q", user)
		}
		if !strings.Contains(user, "- Send deck") {
			t.Errorf("expected action items in prompt, got %q", user)
		}
		_, _ = w.Write([]byte(chatReply(`{"reminders":[
			{"title":"Send deck","description":"to client","dueDate":"2026-03-05T17:00:00Z","priority":"high","reminderOffsetHours":24,"actionItem":"Send deck"},
			{"title":"","dueDate":"2026-03-06T17:00:00Z"}
		]}`)))
	}))
	defer srv.Close()

	client := newTestClient(t, srv, testKey, "gpt-4o-mini")
	got, err := client.ExtractReminders(context.Background(), "send the deck by thursday", []string{"Send deck"})
	if err != nil {
		t.Fatalf("ExtractReminders: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected untitled candidate dropped, got %+v", got)
	}
	if got[0].DueDate != "2026-03-05T17:00:00Z" || got[0].ReminderOffsetHours != 24 {
		t.Fatalf("unexpected candidate %+v", got[0])
	}
}

func TestInvalidJSONContentIsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chatReply("not json")))
	}))
	defer srv.Close()

	client := newTestClient(t, srv, testKey, "gpt-4o-mini")
	_, err := client.ExtractReminders(context.Background(), "t", nil)
	if !errors.Is(err, llm.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}
