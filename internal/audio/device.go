// Package audio acquires microphone audio and assembles it into recordings
// and fixed-interval chunks.
package audio

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrPermissionDenied means the platform refused microphone access.
	ErrPermissionDenied = errors.New("microphone permission denied")
	// ErrUnsupported means the device offers none of the preferred formats.
	ErrUnsupported = errors.New("no supported recording format")
	// ErrAlreadyRecording is returned by Start while a capture is running.
	ErrAlreadyRecording = errors.New("capture already recording")
)

// Preferred container formats, best first.
var PreferredMimeTypes = []string{"audio/webm", "audio/ogg"}

// Constraints are requested from the device when it is opened.
type Constraints struct {
	EchoCancellation bool
	NoiseSuppression bool
	SampleRate       int
	Channels         int
}

// DefaultConstraints asks for a cleaned-up 48 kHz mono stream.
func DefaultConstraints() Constraints {
	return Constraints{
		EchoCancellation: true,
		NoiseSuppression: true,
		SampleRate:       48000,
		Channels:         1,
	}
}

// Stream delivers encoded audio. After Stop, Read drains what the encoder
// still holds and then returns io.EOF.
type Stream interface {
	io.Reader
	// Stop asks the encoder to finish the container.
	Stop() error
	// Close releases the hardware stream.
	Close() error
}

// Device opens microphone streams.
type Device interface {
	Supports(mimeType string) bool
	Open(ctx context.Context, c Constraints, mimeType string) (Stream, error)
}

// Recording is one finalized capture.
type Recording struct {
	Data     []byte
	MimeType string
	Duration time.Duration
}

// Chunk is an interim slice of audio emitted during recording.
type Chunk struct {
	Index    int
	Data     []byte
	MimeType string
}

// NegotiateMimeType picks the first preferred format the device supports.
func NegotiateMimeType(d Device) (string, error) {
	for _, mimeType := range PreferredMimeTypes {
		if d.Supports(mimeType) {
			return mimeType, nil
		}
	}
	return "", ErrUnsupported
}
