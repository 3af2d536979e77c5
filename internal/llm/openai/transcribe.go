package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"strings"

	"meetnotes-backend/internal/llm"
	"meetnotes-backend/internal/shared/ratelimit"
	"meetnotes-backend/internal/shared/util"
)

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe uploads the blob to the audio transcription endpoint. Silence
// yields an empty string, not an error.
func (c *Client) Transcribe(ctx context.Context, audio []byte, mimeHint string) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("model", c.transcriptionModel); err != nil {
		return "", err
	}
	if err := mw.WriteField("response_format", "json"); err != nil {
		return "", err
	}
	fw, err := mw.CreateFormFile("file", "recording"+util.AudioExtension(llm.NormalizeAudioType(mimeHint)))
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(audio); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	respBody, err := c.do(ctx, ratelimit.OpTranscribe, "/audio/transcriptions", mw.FormDataContentType(), &body)
	if err != nil {
		return "", err
	}
	var parsed transcriptionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", &llm.UpstreamError{Operation: ratelimit.OpTranscribe, Message: "response parse", Err: err}
	}
	return strings.TrimSpace(parsed.Text), nil
}
