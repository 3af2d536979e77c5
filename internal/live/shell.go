package live

import "meetnotes-backend/internal/host"

// Shell reports host events to live subscribers so a remote desktop shell
// can mirror them. It offers no encryption.
type Shell struct {
	Hub *Hub
}

func (s Shell) RecordingStarted() {
	s.Hub.Publish(Event{Type: EventRecording, State: "started"})
}

func (s Shell) RecordingStopped() {
	s.Hub.Publish(Event{Type: EventRecording, State: "stopped"})
}

func (s Shell) Notify(title, body string) {
	s.Hub.Publish(Event{Type: EventNotify, Title: title, Message: body})
}

func (s Shell) Alert(message string) {
	s.Hub.Publish(Event{Type: EventAlert, Message: message})
}

func (s Shell) SetTray(state string) {
	s.Hub.Publish(Event{Type: EventTray, State: state})
}

func (s Shell) EncryptionAvailable() bool { return false }

func (s Shell) Encrypt([]byte) ([]byte, error) { return nil, host.ErrEncryptionUnavailable }

func (s Shell) Decrypt([]byte) ([]byte, error) { return nil, host.ErrEncryptionUnavailable }

var _ host.Shell = Shell{}
