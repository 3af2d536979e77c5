package host

import (
	"meetnotes-backend/internal/shared/telemetry"
)

// Logging reports shell events through telemetry. Encryption is delegated to
// Cipher when set.
type Logging struct {
	Cipher *Cipher
}

func (l *Logging) RecordingStarted() {
	telemetry.Info("host.recording_started", nil)
}

func (l *Logging) RecordingStopped() {
	telemetry.Info("host.recording_stopped", nil)
}

func (l *Logging) Notify(title, body string) {
	telemetry.Info("host.notify", map[string]any{"title": title, "body": body})
}

func (l *Logging) Alert(message string) {
	telemetry.Warn("host.alert", map[string]any{"message": message})
}

func (l *Logging) SetTray(state string) {
	telemetry.Info("host.tray", map[string]any{"state": state})
}

func (l *Logging) EncryptionAvailable() bool {
	return l.Cipher != nil
}

func (l *Logging) Encrypt(plaintext []byte) ([]byte, error) {
	if l.Cipher == nil {
		return nil, ErrEncryptionUnavailable
	}
	return l.Cipher.Encrypt(plaintext)
}

func (l *Logging) Decrypt(ciphertext []byte) ([]byte, error) {
	if l.Cipher == nil {
		return nil, ErrEncryptionUnavailable
	}
	return l.Cipher.Decrypt(ciphertext)
}

// Multi fans events out to every shell. Encryption uses the first shell that
// offers it.
type Multi []Shell

func (m Multi) RecordingStarted() {
	for _, s := range m {
		s.RecordingStarted()
	}
}

func (m Multi) RecordingStopped() {
	for _, s := range m {
		s.RecordingStopped()
	}
}

func (m Multi) Notify(title, body string) {
	for _, s := range m {
		s.Notify(title, body)
	}
}

func (m Multi) Alert(message string) {
	for _, s := range m {
		s.Alert(message)
	}
}

func (m Multi) SetTray(state string) {
	for _, s := range m {
		s.SetTray(state)
	}
}

func (m Multi) EncryptionAvailable() bool {
	return m.encrypter() != nil
}

func (m Multi) Encrypt(plaintext []byte) ([]byte, error) {
	if s := m.encrypter(); s != nil {
		return s.Encrypt(plaintext)
	}
	return nil, ErrEncryptionUnavailable
}

func (m Multi) Decrypt(ciphertext []byte) ([]byte, error) {
	if s := m.encrypter(); s != nil {
		return s.Decrypt(ciphertext)
	}
	return nil, ErrEncryptionUnavailable
}

func (m Multi) encrypter() Shell {
	for _, s := range m {
		if s.EncryptionAvailable() {
			return s
		}
	}
	return nil
}

var (
	_ Shell = (*Logging)(nil)
	_ Shell = Multi(nil)
)
