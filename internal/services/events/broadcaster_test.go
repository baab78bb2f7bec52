package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jwebster45206/lab-engine/pkg/state"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*Broadcaster, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rdb, err := NewRedisClient(ctx, "redis://"+mr.Addr(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	return NewBroadcaster(rdb, logger), rdb
}

func receiveEvent(t *testing.T, pubsub *redis.PubSub) Event {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	msg, err := pubsub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var event Event
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &event))
	return event
}

func TestBroadcaster_PublishSnapshot(t *testing.T) {
	b, _ := setupTestRedis(t)
	ctx := context.Background()
	id := uuid.New()

	pubsub := b.Subscribe(ctx, id)
	defer pubsub.Close()
	_, err := pubsub.Receive(ctx) // subscription confirmation
	require.NoError(t, err)

	snap := state.Snapshot{
		SessionID:   id,
		CurrentRoom: "methodology",
		Inventory:   []state.Item{{ID: "blood_sample", Name: "Blood Sample"}},
	}
	require.NoError(t, b.PublishSnapshot(ctx, snap))

	event := receiveEvent(t, pubsub)
	assert.Equal(t, EventTypeSessionSnapshot, event.Type)
	assert.Equal(t, id.String(), event.SessionID)
	require.NotNil(t, event.Snapshot)
	assert.Equal(t, "methodology", event.Snapshot.CurrentRoom)
	assert.True(t, event.Snapshot.HasItem("blood_sample"))
}

func TestBroadcaster_PublishDeleted(t *testing.T) {
	b, _ := setupTestRedis(t)
	ctx := context.Background()
	id := uuid.New()

	pubsub := b.Subscribe(ctx, id)
	defer pubsub.Close()
	_, err := pubsub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, b.PublishDeleted(ctx, id))

	event := receiveEvent(t, pubsub)
	assert.Equal(t, EventTypeSessionDeleted, event.Type)
	assert.Nil(t, event.Snapshot)
}

func TestBroadcaster_ChannelsAreScopedPerSession(t *testing.T) {
	b, rdb := setupTestRedis(t)
	ctx := context.Background()
	mine, other := uuid.New(), uuid.New()

	pubsub := b.Subscribe(ctx, mine)
	defer pubsub.Close()
	_, err := pubsub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, b.PublishSnapshot(ctx, state.Snapshot{SessionID: other}))
	require.NoError(t, b.PublishSnapshot(ctx, state.Snapshot{SessionID: mine}))

	event := receiveEvent(t, pubsub)
	assert.Equal(t, mine.String(), event.SessionID)

	subs, err := rdb.PubSubNumSub(ctx, Channel(mine), Channel(other)).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), subs[Channel(mine)])
	assert.Equal(t, int64(0), subs[Channel(other)])
}

func TestBroadcaster_PublishFailsWhenRedisDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	rdb, err := NewRedisClient(context.Background(), "redis://"+mr.Addr(), logger)
	if err != nil {
		mr.Close()
		t.Fatalf("Failed to create redis client: %v", err)
	}
	defer rdb.Close()

	b := NewBroadcaster(rdb, logger)
	require.NoError(t, b.Ping(context.Background()))

	mr.Close()
	assert.Error(t, b.PublishSnapshot(context.Background(), state.Snapshot{SessionID: uuid.New()}))
	assert.Error(t, b.Ping(context.Background()))
}

func TestNewRedisClient_BadURL(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	_, err := NewRedisClient(context.Background(), "not a url", logger)
	assert.ErrorContains(t, err, "parse redis URL")
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err = NewRedisClient(ctx, "redis://"+addr, logger)
	assert.ErrorContains(t, err, "failed to connect to redis")
}

func TestChannel(t *testing.T) {
	id := uuid.MustParse("8a3c1d9e-51f2-4b6e-9c61-0e2f6a7b8c9d")
	assert.Equal(t, "lab:session:8a3c1d9e-51f2-4b6e-9c61-0e2f6a7b8c9d", Channel(id))
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.PublishSnapshot(context.Background(), state.Snapshot{}))
	assert.NoError(t, p.PublishDeleted(context.Background(), uuid.New()))
}
