package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jwebster45206/lab-engine/internal/storage"
)

// Pinger is a dependency whose health can be probed.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthResponse struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Service    string            `json:"service"`
	Sessions   int               `json:"sessions"`
	Components map[string]string `json:"components"`
}

// SessionCounter reports the number of live sessions.
type SessionCounter interface {
	Len() int
}

type HealthHandler struct {
	catalog  storage.Catalog
	events   Pinger // nil when snapshot publishing is disabled
	sessions SessionCounter
	logger   *slog.Logger
}

func NewHealthHandler(catalog storage.Catalog, events Pinger, sessions SessionCounter, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		catalog:  catalog,
		events:   events,
		sessions: sessions,
		logger:   logger,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug("Health check requested",
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr)

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	components := make(map[string]string)
	overallStatus := "healthy"

	if _, err := h.catalog.ListScenarios(ctx); err != nil {
		h.logger.Warn("Catalog health check failed", "error", err)
		components["catalog"] = "unhealthy"
		overallStatus = "degraded"
	} else {
		components["catalog"] = "healthy"
	}

	if h.events == nil {
		components["events"] = "disabled"
	} else if err := h.events.Ping(ctx); err != nil {
		h.logger.Warn("Events health check failed", "error", err)
		components["events"] = "unhealthy"
		overallStatus = "degraded"
	} else {
		components["events"] = "healthy"
	}

	response := HealthResponse{
		Status:     overallStatus,
		Timestamp:  time.Now(),
		Service:    "lab-engine",
		Components: components,
	}
	if h.sessions != nil {
		response.Sessions = h.sessions.Len()
	}

	statusCode := http.StatusOK
	if overallStatus != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, h.logger, statusCode, response)
}
