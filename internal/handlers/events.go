package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/lab-engine/internal/services/events"
	"github.com/jwebster45206/lab-engine/pkg/state"
	"github.com/redis/go-redis/v9"
)

const keepaliveInterval = 30 * time.Second

// Subscriber opens a Pub/Sub subscription to one session's channel.
type Subscriber interface {
	Subscribe(ctx context.Context, sessionID uuid.UUID) *redis.PubSub
}

// SnapshotSource returns the current snapshot of a session.
type SnapshotSource interface {
	Get(id uuid.UUID) (state.Snapshot, error)
}

// EventsHandler handles Server-Sent Events (SSE) for live session snapshots
type EventsHandler struct {
	subscriber Subscriber
	sessions   SnapshotSource
	logger     *slog.Logger
	keepalive  time.Duration
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(subscriber Subscriber, sessions SnapshotSource, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		subscriber: subscriber,
		sessions:   sessions,
		logger:     logger,
		keepalive:  keepaliveInterval,
	}
}

// ServeHTTP handles SSE requests for session events
// GET /v1/sessions/{id}/events
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.logger.Warn("Method not allowed for events endpoint",
			"method", r.Method,
			"path", r.URL.Path)
		writeErrorMessage(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
		return
	}

	pathParts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(pathParts) != 4 || pathParts[0] != "v1" || pathParts[1] != "sessions" || pathParts[3] != "events" {
		writeErrorMessage(w, h.logger, http.StatusBadRequest, "Invalid path. Expected /v1/sessions/{id}/events")
		return
	}

	sessionID, err := uuid.Parse(pathParts[2])
	if err != nil {
		writeErrorMessage(w, h.logger, http.StatusBadRequest, "Invalid session ID format")
		return
	}

	snap, err := h.sessions.Get(sessionID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	// Subscribe before sending the first snapshot so no change is missed
	pubsub := h.subscriber.Subscribe(r.Context(), sessionID)
	defer func() {
		if err := pubsub.Close(); err != nil {
			h.logger.Error("Failed to close pubsub", "error", err)
		}
	}()
	if _, err := pubsub.Receive(r.Context()); err != nil {
		h.logger.Error("Failed to subscribe to session channel", "error", err, "session_id", sessionID.String())
		writeErrorMessage(w, h.logger, http.StatusServiceUnavailable, "Event stream unavailable")
		return
	}

	h.logger.Info("SSE connection established",
		"session_id", sessionID.String(),
		"remote_addr", r.RemoteAddr)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)

	h.sendSSE(w, string(events.EventTypeSessionSnapshot), snap)

	msgChan := pubsub.Channel()
	keepaliveTicker := time.NewTicker(h.keepalive)
	defer keepaliveTicker.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.logger.Info("SSE client disconnected",
				"session_id", sessionID.String())
			return

		case msg, ok := <-msgChan:
			if !ok {
				return
			}
			var event events.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				h.logger.Error("Failed to unmarshal event", "error", err, "payload", msg.Payload)
				continue
			}

			switch event.Type {
			case events.EventTypeSessionDeleted:
				h.sendSSE(w, string(event.Type), map[string]string{"session_id": event.SessionID})
				return
			default:
				h.sendSSE(w, string(event.Type), event.Snapshot)
			}

		case <-keepaliveTicker.C:
			if _, err := fmt.Fprintf(w, ": keepalive\n\n"); err != nil {
				h.logger.Error("Failed to write keepalive", "error", err)
				return
			}
			if flusher, ok := w.(http.Flusher); ok {
				flusher.Flush()
			}
		}
	}
}

// sendSSE sends a Server-Sent Event to the client
func (h *EventsHandler) sendSSE(w http.ResponseWriter, eventType string, data any) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("Failed to marshal SSE data", "error", err)
		return
	}

	if _, err := fmt.Fprintf(w, "event: %s\n", eventType); err != nil {
		h.logger.Error("Failed to write event type", "error", err)
		return
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", string(dataJSON)); err != nil {
		h.logger.Error("Failed to write event data", "error", err)
		return
	}

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}
