package cli

import (
	"io"
	"sync"

	"meetnotes-backend/internal/host"
)

// terminalShell renders host events on a terminal. Encryption uses the
// configured cipher, when there is one.
type terminalShell struct {
	mu     sync.Mutex
	f      *Formatter
	cipher *host.Cipher
}

// NewTerminalShell returns a host.Shell that prints alerts and
// notifications to w.
func NewTerminalShell(w io.Writer, cipher *host.Cipher) host.Shell {
	return &terminalShell{f: NewFormatter(w), cipher: cipher}
}

func (t *terminalShell) RecordingStarted() {}
func (t *terminalShell) RecordingStopped() {}
func (t *terminalShell) SetTray(string)    {}

func (t *terminalShell) Notify(title, body string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.f.Info(title + ": " + body)
}

func (t *terminalShell) Alert(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.f.Warning(message)
}

func (t *terminalShell) EncryptionAvailable() bool { return t.cipher != nil }

func (t *terminalShell) Encrypt(plaintext []byte) ([]byte, error) {
	if t.cipher == nil {
		return nil, host.ErrEncryptionUnavailable
	}
	return t.cipher.Encrypt(plaintext)
}

func (t *terminalShell) Decrypt(ciphertext []byte) ([]byte, error) {
	if t.cipher == nil {
		return nil, host.ErrEncryptionUnavailable
	}
	return t.cipher.Decrypt(ciphertext)
}
