package llm

import (
	"context"
	"mime"
	"strings"
	"time"

	"meetnotes-backend/internal/shared/metrics"
	"meetnotes-backend/internal/shared/ratelimit"
	"meetnotes-backend/internal/shared/telemetry"
)

// MaxAudioBytes is the largest blob accepted for transcription.
const MaxAudioBytes = 25 << 20

// DefaultAudioType is assumed when the caller has no MIME hint.
const DefaultAudioType = "audio/webm"

var supportedAudioTypes = map[string]struct{}{
	"audio/webm":  {},
	"audio/ogg":   {},
	"audio/mpeg":  {},
	"audio/mp3":   {},
	"audio/mp4":   {},
	"audio/m4a":   {},
	"audio/x-m4a": {},
	"audio/wav":   {},
	"audio/x-wav": {},
	"audio/flac":  {},
	"video/webm":  {},
}

// Gateway fronts the upstream clients with admission control, payload
// validation, per-call timeouts and retries.
type Gateway struct {
	Transcriber Transcriber
	Enhancer    Enhancer
	Extractor   ReminderExtractor
	Limiter     ratelimit.Limiter
	Backoff     BackoffConfig
	// Timeout bounds each attempt. Zero leaves attempts unbounded.
	Timeout time.Duration

	sleep sleepFunc
}

// Transcribe validates the blob, asks the limiter for admission and
// transcribes with retries.
func (g *Gateway) Transcribe(ctx context.Context, audio []byte, mimeHint string) (string, error) {
	mimeType, err := ValidateAudio(audio, mimeHint)
	if err != nil {
		return "", err
	}
	if err := g.admit(ctx, ratelimit.OpTranscribe); err != nil {
		return "", err
	}

	var text string
	err = retry(ctx, ratelimit.OpTranscribe, g.Backoff, g.Timeout, g.sleep, func(ctx context.Context) error {
		var callErr error
		text, callErr = g.Transcriber.Transcribe(ctx, audio, mimeType)
		return callErr
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

// TranscribeChunk transcribes interim audio. It never fails: denial,
// validation and upstream errors all yield "".
func (g *Gateway) TranscribeChunk(ctx context.Context, audio []byte, mimeHint string) string {
	mimeType, err := ValidateAudio(audio, mimeHint)
	if err != nil {
		return ""
	}
	if err := g.admit(ctx, ratelimit.OpTranscribeChunk); err != nil {
		return ""
	}

	callCtx := ctx
	if g.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}
	text, err := g.Transcriber.Transcribe(callCtx, audio, mimeType)
	if err != nil {
		telemetry.Warn("llm.transcribe_chunk_failed", map[string]any{
			"bytes": len(audio),
			"error": sanitizeError(err),
		})
		return ""
	}
	return strings.TrimSpace(text)
}

// Enhance runs note enhancement. An empty transcript is still sent.
func (g *Gateway) Enhance(ctx context.Context, input EnhanceInput) (Enhancement, error) {
	if err := g.admit(ctx, ratelimit.OpEnhance); err != nil {
		return Enhancement{}, err
	}

	var out Enhancement
	err := retry(ctx, ratelimit.OpEnhance, g.Backoff, g.Timeout, g.sleep, func(ctx context.Context) error {
		var callErr error
		out, callErr = g.Enhancer.Enhance(ctx, input)
		return callErr
	})
	if err != nil {
		return Enhancement{}, err
	}
	return out, nil
}

// ExtractReminders asks for dated follow-ups. An empty transcript yields no
// candidates without a network call.
func (g *Gateway) ExtractReminders(ctx context.Context, transcript string, actionItems []string) ([]ReminderCandidate, error) {
	if strings.TrimSpace(transcript) == "" && len(actionItems) == 0 {
		return nil, nil
	}
	if err := g.admit(ctx, ratelimit.OpExtractReminders); err != nil {
		return nil, err
	}

	var out []ReminderCandidate
	err := retry(ctx, ratelimit.OpExtractReminders, g.Backoff, g.Timeout, g.sleep, func(ctx context.Context) error {
		var callErr error
		out, callErr = g.Extractor.ExtractReminders(ctx, transcript, actionItems)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// admit consults the limiter. Limiter backend failures fail open.
func (g *Gateway) admit(ctx context.Context, op string) error {
	if g.Limiter == nil {
		return nil
	}
	ok, retryAfter, err := g.Limiter.Allow(ctx, op)
	if err != nil {
		telemetry.Error("llm.limiter_error", map[string]any{"operation": op, "error": err.Error()})
		return nil
	}
	if !ok {
		metrics.IncRateLimited(op)
		return &RateLimitError{Operation: op, RetryAfter: retryAfter}
	}
	return nil
}

// ValidateAudio checks size and type and returns the normalized MIME type.
func ValidateAudio(audio []byte, mimeHint string) (string, error) {
	if len(audio) == 0 {
		return "", NewValidationError("audio", "empty recording")
	}
	if len(audio) > MaxAudioBytes {
		return "", NewValidationError("audio", "recording exceeds 25 MiB")
	}
	mimeType := NormalizeAudioType(mimeHint)
	if _, ok := supportedAudioTypes[mimeType]; !ok {
		return "", NewValidationError("mimeType", "unsupported audio type "+mimeType)
	}
	return mimeType, nil
}

// NormalizeAudioType strips codec parameters, so "audio/webm;codecs=opus"
// becomes "audio/webm".
func NormalizeAudioType(hint string) string {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return DefaultAudioType
	}
	mediaType, _, err := mime.ParseMediaType(hint)
	if err != nil {
		return strings.ToLower(hint)
	}
	return strings.ToLower(mediaType)
}
