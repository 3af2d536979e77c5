package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"meetnotes-backend/internal/llm"
)

const defaultBaseURL = "https://api.openai.com/v1"

// KeySource yields the API key at call time so a credential updated at
// runtime applies to the next request.
type KeySource interface {
	APIKey(ctx context.Context) (string, error)
}

// StaticKey is a KeySource for a fixed key.
type StaticKey string

// APIKey returns the key or a validation error when unset.
func (k StaticKey) APIKey(ctx context.Context) (string, error) {
	if strings.TrimSpace(string(k)) == "" {
		return "", llm.NewValidationError("credential", "OpenAI API key is not configured")
	}
	return string(k), nil
}

// Options configures a Client.
type Options struct {
	Keys               KeySource
	BaseURL            string
	ChatModel          string
	TranscriptionModel string
	HTTPClient         *http.Client
	Now                func() time.Time
}

// Client implements the transcription, enhancement and reminder contracts
// against the OpenAI HTTP API.
type Client struct {
	keys               KeySource
	baseURL            string
	chatModel          string
	transcriptionModel string
	httpClient         *http.Client
	now                func() time.Time
}

// NewClient constructs a new OpenAI client.
func NewClient(opts Options) (*Client, error) {
	if opts.Keys == nil {
		return nil, fmt.Errorf("openai key source is required")
	}
	if strings.TrimSpace(opts.ChatModel) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for OpenAI")
	}
	if strings.TrimSpace(opts.TranscriptionModel) == "" {
		opts.TranscriptionModel = "whisper-1"
	}
	if strings.TrimSpace(opts.BaseURL) == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.HTTPClient == nil {
		// Per-attempt deadlines come from the caller's context.
		opts.HTTPClient = &http.Client{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Client{
		keys:               opts.Keys,
		baseURL:            strings.TrimRight(opts.BaseURL, "/"),
		chatModel:          opts.ChatModel,
		transcriptionModel: opts.TranscriptionModel,
		httpClient:         opts.HTTPClient,
		now:                opts.Now,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    *float32       `json:"temperature,omitempty"`
	ResponseFormat responseFormat `json:"response_format"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
}

type apiErrorBody struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// completeJSON sends a json_object chat completion and decodes the message
// content into out.
func (c *Client) completeJSON(ctx context.Context, op string, messages []chatMessage, out any) error {
	reqBody := chatRequest{
		Model:          c.chatModel,
		Messages:       messages,
		ResponseFormat: responseFormat{Type: "json_object"},
	}
	if !isGPT5(c.chatModel) {
		temp := float32(0.2)
		reqBody.Temperature = &temp
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}

	body, err := c.do(ctx, op, "/chat/completions", "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return &llm.UpstreamError{Operation: op, Message: "response parse", Err: err}
	}
	if len(parsed.Choices) == 0 {
		return fmt.Errorf("%s: %w", op, llm.ErrNoResponse)
	}
	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return fmt.Errorf("%s: %w", op, llm.ErrNoResponse)
	}
	if parsed.Usage != nil {
		log.Printf("llm response op=%s model=%s prompt_tokens=%d completion_tokens=%d total_tokens=%d",
			op, c.chatModel, parsed.Usage.PromptTokens, parsed.Usage.CompletionTokens, parsed.Usage.TotalTokens)
	}
	if err := json.Unmarshal([]byte(content), out); err != nil {
		return &llm.UpstreamError{Operation: op, Message: "invalid JSON content", Err: err}
	}
	return nil
}

// do issues an authenticated POST and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, op, path, contentType string, body io.Reader) ([]byte, error) {
	key, err := c.keys.APIKey(ctx)
	if err != nil {
		return nil, err
	}
	if err := ValidateAPIKey(key); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &llm.UpstreamError{Operation: op, Message: "request timeout", Err: err}
		}
		return nil, &llm.UpstreamError{Operation: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &llm.UpstreamError{Operation: op, StatusCode: resp.StatusCode, Message: "read body", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &llm.UpstreamError{Operation: op, StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
	}
	return respBody, nil
}

func errorMessage(body []byte) string {
	var parsed apiErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

// ValidateAPIKey rejects obviously malformed keys before any network call.
func ValidateAPIKey(key string) error {
	key = strings.TrimSpace(key)
	switch {
	case key == "":
		return llm.NewValidationError("credential", "OpenAI API key is not configured")
	case !strings.HasPrefix(key, "sk-"):
		return llm.NewValidationError("credential", `OpenAI API key must start with "sk-"`)
	case len(key) < 20:
		return llm.NewValidationError("credential", "OpenAI API key is too short")
	case strings.ContainsAny(key, " \t\r\n"):
		return llm.NewValidationError("credential", "OpenAI API key contains whitespace")
	}
	return nil
}

func isGPT5(model string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "gpt-5")
}

var (
	_ llm.Transcriber       = (*Client)(nil)
	_ llm.Enhancer          = (*Client)(nil)
	_ llm.ReminderExtractor = (*Client)(nil)
)
