package live

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for event")
		return Event{}
	}
}

func TestHubFansOutAndDropsForSlowSubscribers(t *testing.T) {
	hub := NewHub()
	fast, unsubFast := hub.Subscribe(4)
	defer unsubFast()
	slow, unsubSlow := hub.Subscribe(1)

	hub.Publish(Event{Type: EventChunk, Text: "one"})
	hub.Publish(Event{Type: EventChunk, Text: "two"})

	if e := receive(t, fast); e.Text != "one" || e.At.IsZero() {
		t.Fatalf("unexpected first event %+v", e)
	}
	if e := receive(t, fast); e.Text != "two" {
		t.Fatalf("unexpected second event %+v", e)
	}
	if e := receive(t, slow); e.Text != "one" {
		t.Fatalf("expected slow subscriber to keep the first event, got %+v", e)
	}
	select {
	case e := <-slow:
		t.Fatalf("expected overflow event dropped, got %+v", e)
	default:
	}

	unsubSlow()
	unsubSlow()
	if hub.Subscribers() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", hub.Subscribers())
	}
}

func TestShellPublishesAlerts(t *testing.T) {
	hub := NewHub()
	events, unsub := hub.Subscribe(4)
	defer unsub()

	Shell{Hub: hub}.Alert("transcription failed")
	e := receive(t, events)
	if e.Type != EventAlert || e.Message != "transcription failed" {
		t.Fatalf("unexpected event %+v", e)
	}
}

func TestRelayMirrorsEventsBetweenHubs(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	apiHub := NewHub()
	workerHub := NewHub()
	apiRelay := NewRelay(client, "test:live", apiHub)
	NewRelay(client, "test:live", workerHub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = apiRelay.Run(ctx) }()

	events, unsub := apiHub.Subscribe(4)
	defer unsub()

	deadline := time.Now().Add(2 * time.Second)
	for mr.PubSubNumSub("test:live")["test:live"] == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("relay never subscribed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	workerHub.Publish(Event{Type: EventState, MeetingID: "m1", State: "complete"})
	e := receive(t, events)
	if e.MeetingID != "m1" || e.State != "complete" {
		t.Fatalf("unexpected relayed event %+v", e)
	}

	apiHub.Publish(Event{Type: EventChunk, Text: "local"})
	if e := receive(t, events); e.Text != "local" {
		t.Fatalf("expected local event, got %+v", e)
	}
	select {
	case dup := <-events:
		t.Fatalf("own event echoed back: %+v", dup)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWebsocketStreamsEvents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub()
	router := gin.New()
	NewHandler(hub, []string{"http://localhost:5173"}).RegisterRoutes(router.Group("/api/v1"))
	srv := httptest.NewServer(router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/sessions/current/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.Publish(Event{Type: EventChunk, Index: 2, Text: "hello"})
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Event
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if got.Type != EventChunk || got.Text != "hello" || got.Index != 2 {
		t.Fatalf("unexpected event %+v", got)
	}
}

func TestWebsocketRejectsForeignOrigin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler(NewHub(), []string{"http://localhost:5173"}).RegisterRoutes(router.Group("/api/v1"))
	srv := httptest.NewServer(router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/sessions/current/live"
	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err == nil {
		t.Fatalf("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", resp)
	}
}
