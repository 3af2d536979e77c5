// Package live fans session events, such as interim chunk transcripts and
// state changes, out to websocket subscribers.
package live

import (
	"sync"
	"time"
)

// Event types.
const (
	EventChunk     = "chunk"
	EventState     = "state"
	EventAlert     = "alert"
	EventNotify    = "notify"
	EventTray      = "tray"
	EventRecording = "recording"
)

// Event is one message sent to subscribers.
type Event struct {
	Type      string    `json:"type"`
	MeetingID string    `json:"meetingId,omitempty"`
	Index     int       `json:"index,omitempty"`
	Text      string    `json:"text,omitempty"`
	State     string    `json:"state,omitempty"`
	Title     string    `json:"title,omitempty"`
	Message   string    `json:"message,omitempty"`
	At        time.Time `json:"at"`
	// Origin identifies the process that published the event; set by Relay.
	Origin string `json:"origin,omitempty"`
}

// Hub delivers events to every current subscriber. Slow subscribers lose
// events rather than blocking publishers.
type Hub struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	// Forward, when set, receives every locally published event.
	Forward func(Event)
	now     func() time.Time
}

// NewHub constructs an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan Event), now: time.Now}
}

// Subscribe registers a subscriber with the given buffer and returns its
// channel and an unsubscribe func.
func (h *Hub) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 32
	}
	ch := make(chan Event, buffer)
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publish stamps and delivers a local event, then forwards it.
func (h *Hub) Publish(e Event) {
	if e.At.IsZero() {
		e.At = h.now().UTC()
	}
	h.Deliver(e)
	if h.Forward != nil {
		h.Forward(e)
	}
}

// Deliver sends e to local subscribers only.
func (h *Hub) Deliver(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- e:
		default:
		}
	}
}
