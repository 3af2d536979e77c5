// Package workerproc decodes reprocess jobs and hands them to the pipeline.
package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"meetnotes-backend/internal/queue"
)

// Reprocessor reruns processing for one meeting.
type Reprocessor interface {
	Reprocess(ctx context.Context, meetingID string) error
}

// ReprocessFunc adapts a function to Reprocessor.
type ReprocessFunc func(ctx context.Context, meetingID string) error

// Reprocess calls f.
func (f ReprocessFunc) Reprocess(ctx context.Context, meetingID string) error {
	return f(ctx, meetingID)
}

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

func (e ErrDecode) Unwrap() error { return e.Err }

// ErrMissingMeetingID indicates a message without a meeting id.
type ErrMissingMeetingID struct {
	Meta      MessageMeta
	RequestID string
}

func (e ErrMissingMeetingID) Error() string { return "missing meeting id" }

// ErrProcess indicates reprocessing failed after the message parsed.
type ErrProcess struct {
	MeetingID string
	RequestID string
	Err       error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "reprocess meeting"
	}
	return "reprocess meeting: " + e.Err.Error()
}

func (e ErrProcess) Unwrap() error { return e.Err }

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if strings.TrimSpace(msg.MeetingID) == "" {
		return msg, meta, ErrMissingMeetingID{Meta: meta, RequestID: msg.RequestID}
	}
	return msg, meta, nil
}

// Unrecoverable reports whether retrying the message can never succeed, so
// the worker should drop it.
func Unrecoverable(err error) bool {
	switch err.(type) {
	case ErrEmptyBody, ErrDecode, ErrMissingMeetingID:
		return true
	}
	return false
}

// HandleMessage parses a payload and reprocesses its meeting.
func HandleMessage(ctx context.Context, proc Reprocessor, body string) (queue.Message, error) {
	if proc == nil {
		return queue.Message{}, errors.New("reprocessor not configured")
	}
	msg, _, err := ParseMessage(body)
	if err != nil {
		return msg, err
	}
	if err := proc.Reprocess(ctx, msg.MeetingID); err != nil {
		return msg, ErrProcess{MeetingID: msg.MeetingID, RequestID: msg.RequestID, Err: err}
	}
	return msg, nil
}
