package llm

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrRateLimited means the client-side limiter denied admission. No
	// network call was issued.
	ErrRateLimited = errors.New("rate limited")
	// ErrUpstream marks failures reported by or on the way to the provider.
	ErrUpstream = errors.New("upstream error")
	// ErrNoResponse means the provider answered with an empty payload.
	ErrNoResponse = errors.New("no response from upstream")
	// ErrValidation marks payloads or credentials rejected before any call.
	ErrValidation = errors.New("validation error")
)

// RateLimitError carries the operation and how long until its window resets.
type RateLimitError struct {
	Operation  string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: rate limited, retry after %s", e.Operation, e.RetryAfter.Round(time.Second))
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// UpstreamError describes a failed provider call.
type UpstreamError struct {
	Operation  string
	StatusCode int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: upstream http status %d: %s", e.Operation, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s: upstream: %s", e.Operation, msg)
}

// Is lets errors.Is(err, ErrUpstream) match any UpstreamError.
func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

func (e *UpstreamError) Unwrap() error { return e.Err }

// ValidationError names the rejected field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError builds a ValidationError.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
