package live

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"meetnotes-backend/internal/shared/telemetry"
)

// DefaultChannel is the Redis channel shared by the API and the worker.
const DefaultChannel = "meetnotes:live"

// Relay mirrors hub events between processes over Redis pub/sub, so events
// raised by the worker reach websocket clients of the API.
type Relay struct {
	client  *redis.Client
	channel string
	origin  string
	hub     *Hub
}

// NewRelay wires hub to channel. Local publications on hub are forwarded.
func NewRelay(client *redis.Client, channel string, hub *Hub) *Relay {
	if channel == "" {
		channel = DefaultChannel
	}
	r := &Relay{client: client, channel: channel, origin: uuid.NewString(), hub: hub}
	hub.Forward = func(e Event) {
		if err := r.Publish(context.Background(), e); err != nil {
			telemetry.Warn("live.relay_publish_failed", map[string]any{"type": e.Type, "error": err.Error()})
		}
	}
	return r
}

// Publish sends e to other processes.
func (r *Relay) Publish(ctx context.Context, e Event) error {
	e.Origin = r.origin
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", r.channel, err)
	}
	return nil
}

// Run delivers events published by other processes until ctx ends.
func (r *Relay) Run(ctx context.Context) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("receive %s: %w", r.channel, err)
		}
		var e Event
		if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
			telemetry.Warn("live.relay_decode_failed", map[string]any{"error": err.Error()})
			continue
		}
		if e.Origin == r.origin {
			continue
		}
		r.hub.Deliver(e)
	}
}
