// Package host describes the optional desktop shell the backend reports to:
// recording indicators, notifications, alerts, tray state and at-rest
// encryption.
package host

import "errors"

// ErrEncryptionUnavailable is returned by shells without an encryption
// facility.
var ErrEncryptionUnavailable = errors.New("encryption unavailable")

// Tray states.
const (
	TrayIdle       = "idle"
	TrayRecording  = "recording"
	TrayProcessing = "processing"
)

// Shell is implemented by the process hosting the backend.
type Shell interface {
	RecordingStarted()
	RecordingStopped()
	Notify(title, body string)
	Alert(message string)
	SetTray(state string)

	EncryptionAvailable() bool
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// Nop ignores every call and offers no encryption.
type Nop struct{}

func (Nop) RecordingStarted() {}
func (Nop) RecordingStopped() {}
func (Nop) Notify(title, body string) {}
func (Nop) Alert(message string) {}
func (Nop) SetTray(state string) {}
func (Nop) EncryptionAvailable() bool { return false }
func (Nop) Encrypt([]byte) ([]byte, error) { return nil, ErrEncryptionUnavailable }
func (Nop) Decrypt([]byte) ([]byte, error) { return nil, ErrEncryptionUnavailable }

// OrNop returns s, or Nop when s is nil.
func OrNop(s Shell) Shell {
	if s == nil {
		return Nop{}
	}
	return s
}

var _ Shell = Nop{}
