package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jwebster45206/lab-engine/pkg/state"
	"github.com/redis/go-redis/v9"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeSessionSnapshot EventType = "session.snapshot"
	EventTypeSessionDeleted  EventType = "session.deleted"
)

// Event is the message published on a session channel.
type Event struct {
	Type      EventType       `json:"type"`
	SessionID string          `json:"session_id"`
	Snapshot  *state.Snapshot `json:"snapshot,omitempty"`
}

// Publisher sends session events to subscribers.
type Publisher interface {
	PublishSnapshot(ctx context.Context, snap state.Snapshot) error
	PublishDeleted(ctx context.Context, sessionID uuid.UUID) error
}

// Channel returns the Pub/Sub channel of a session.
func Channel(sessionID uuid.UUID) string {
	return fmt.Sprintf("lab:session:%s", sessionID.String())
}

// Broadcaster publishes events to Redis Pub/Sub for SSE distribution
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

// Ensure Broadcaster implements Publisher interface
var _ Publisher = (*Broadcaster)(nil)

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// PublishSnapshot publishes a session.snapshot event
func (b *Broadcaster) PublishSnapshot(ctx context.Context, snap state.Snapshot) error {
	return b.publish(ctx, snap.SessionID, Event{
		Type:      EventTypeSessionSnapshot,
		SessionID: snap.SessionID.String(),
		Snapshot:  &snap,
	})
}

// PublishDeleted publishes a session.deleted event
func (b *Broadcaster) PublishDeleted(ctx context.Context, sessionID uuid.UUID) error {
	return b.publish(ctx, sessionID, Event{
		Type:      EventTypeSessionDeleted,
		SessionID: sessionID.String(),
	})
}

// Subscribe opens a subscription to a session channel. The caller closes it.
func (b *Broadcaster) Subscribe(ctx context.Context, sessionID uuid.UUID) *redis.PubSub {
	return b.redisClient.Subscribe(ctx, Channel(sessionID))
}

// Ping checks the Redis connection.
func (b *Broadcaster) Ping(ctx context.Context) error {
	if err := b.redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (b *Broadcaster) publish(ctx context.Context, sessionID uuid.UUID, event Event) error {
	channel := Channel(sessionID)

	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event_type", event.Type)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published",
		"channel", channel,
		"event_type", event.Type,
	)
	return nil
}

// NopPublisher drops every event. Used when no Redis URL is configured.
type NopPublisher struct{}

func (NopPublisher) PublishSnapshot(context.Context, state.Snapshot) error { return nil }

func (NopPublisher) PublishDeleted(context.Context, uuid.UUID) error { return nil }
