// Package credentials keeps the upstream API key. The key is persisted only
// as ciphertext produced by the host shell; without host encryption it lives
// in process memory.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"meetnotes-backend/internal/host"
	"meetnotes-backend/internal/llm"
	"meetnotes-backend/internal/llm/openai"
	"meetnotes-backend/internal/shared/telemetry"
)

// Key sources reported by Status.
const (
	SourceStored = "stored"
	SourceMemory = "memory"
	SourceConfig = "config"
	SourceNone   = "none"
)

// Status describes the configured credential without revealing it.
type Status struct {
	Configured bool   `json:"configured"`
	Source     string `json:"source"`
	Persisted  bool   `json:"persisted"`
	Masked     string `json:"masked,omitempty"`
}

// Store holds one API key.
type Store struct {
	mu       sync.RWMutex
	shell    host.Shell
	path     string
	fallback string
	key      string
	persist  bool
}

// NewStore loads a previously persisted key from path when the shell can
// decrypt it. fallback is used while no key has been set.
func NewStore(shell host.Shell, path, fallback string) (*Store, error) {
	s := &Store{
		shell:    host.OrNop(shell),
		path:     path,
		fallback: strings.TrimSpace(fallback),
	}
	if path == "" || !s.shell.EncryptionAvailable() {
		return s, nil
	}
	sealed, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	plain, err := s.shell.Decrypt(sealed)
	if err != nil {
		telemetry.Warn("credentials.decrypt_failed", map[string]any{"path": path, "error": err.Error()})
		return s, nil
	}
	s.key = strings.TrimSpace(string(plain))
	s.persist = true
	return s, nil
}

// Set validates and stores key, persisting it when encryption is available.
func (s *Store) Set(key string) error {
	key = strings.TrimSpace(key)
	if err := openai.ValidateAPIKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	persisted := false
	if s.path != "" && s.shell.EncryptionAvailable() {
		sealed, err := s.shell.Encrypt([]byte(key))
		if err != nil {
			return fmt.Errorf("encrypt credential: %w", err)
		}
		if err := writeFile(s.path, sealed); err != nil {
			return fmt.Errorf("write credentials: %w", err)
		}
		persisted = true
	}
	s.key = key
	s.persist = persisted
	return nil
}

// Clear forgets the stored key and removes the persisted file.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key = ""
	s.persist = false
	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// APIKey returns the stored key or the configured fallback.
func (s *Store) APIKey(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.key != "" {
		return s.key, nil
	}
	if s.fallback != "" {
		return s.fallback, nil
	}
	return "", llm.NewValidationError("credential", "OpenAI API key is not configured")
}

// Status reports where the active key comes from.
func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch {
	case s.key != "" && s.persist:
		return Status{Configured: true, Source: SourceStored, Persisted: true, Masked: mask(s.key)}
	case s.key != "":
		return Status{Configured: true, Source: SourceMemory, Masked: mask(s.key)}
	case s.fallback != "":
		return Status{Configured: true, Source: SourceConfig, Masked: mask(s.fallback)}
	default:
		return Status{Source: SourceNone}
	}
}

func mask(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:3] + "..." + key[len(key)-4:]
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

var _ openai.KeySource = (*Store)(nil)
