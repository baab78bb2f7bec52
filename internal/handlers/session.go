package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jwebster45206/lab-engine/internal/logger"
	"github.com/jwebster45206/lab-engine/internal/sessions"
	"github.com/jwebster45206/lab-engine/pkg/state"
	"github.com/jwebster45206/lab-engine/pkg/steps"
)

type CreateSessionRequest struct {
	Scenario string `json:"scenario"`
}

type SelectRequest struct {
	Room   string `json:"room"`
	Object string `json:"object"`
}

type ChoiceRequest struct {
	Choice string `json:"choice"`
}

type MoveRequest struct {
	Room string `json:"room"`
}

type SessionHandler struct {
	manager         *sessions.Manager
	events          http.Handler // Serves /{id}/events; nil when publishing is disabled
	defaultScenario string
	logger          *slog.Logger
}

func NewSessionHandler(manager *sessions.Manager, events http.Handler, defaultScenario string, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		manager:         manager,
		events:          events,
		defaultScenario: defaultScenario,
		logger:          logger,
	}
}

// ServeHTTP handles HTTP requests for game sessions
// Routes:
// POST   /v1/sessions              - Create a session
// GET    /v1/sessions/{id}         - Current snapshot
// DELETE /v1/sessions/{id}         - Drop a session
// POST   /v1/sessions/{id}/{action} - select, advance, start, choice, close, move, restart
// GET    /v1/sessions/{id}/events  - Snapshot stream (SSE)
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/sessions"), "/")
	if path == "" {
		if r.Method != http.MethodPost {
			writeErrorMessage(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only POST is supported.")
			return
		}
		h.handleCreate(w, r)
		return
	}

	parts := strings.Split(path, "/")
	if len(parts) > 2 {
		writeErrorMessage(w, h.logger, http.StatusNotFound, "Unknown route")
		return
	}
	id, err := uuid.Parse(parts[0])
	if err != nil {
		h.logger.Warn("Invalid session ID", "id", parts[0], "error", err)
		writeErrorMessage(w, h.logger, http.StatusBadRequest, "Invalid session ID format")
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			snap, err := h.manager.Get(id)
			h.respond(w, snap, err)
		case http.MethodDelete:
			h.handleDelete(w, r, id)
		default:
			writeErrorMessage(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: GET, DELETE")
		}
		return
	}

	action := parts[1]
	if action == "events" {
		if h.events == nil {
			writeErrorMessage(w, h.logger, http.StatusNotFound, "Event streaming is not enabled")
			return
		}
		h.events.ServeHTTP(w, r)
		return
	}
	if r.Method != http.MethodPost {
		writeErrorMessage(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only POST is supported.")
		return
	}
	h.handleAction(w, r, id, action)
}

func (h *SessionHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if !h.decode(w, r, &req, true) {
		return
	}
	if req.Scenario == "" {
		req.Scenario = h.defaultScenario
	}

	snap, err := h.manager.Create(r.Context(), req.Scenario)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, snap)
}

func (h *SessionHandler) handleDelete(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if err := h.manager.Delete(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) handleAction(w http.ResponseWriter, r *http.Request, id uuid.UUID, action string) {
	var op func(*state.Session) error

	switch action {
	case "select":
		var req SelectRequest
		if !h.decode(w, r, &req, false) {
			return
		}
		op = func(s *state.Session) error { return s.SelectObject(req.Room, req.Object) }
	case "advance":
		var in steps.Input
		if !h.decode(w, r, &in, true) {
			return
		}
		op = func(s *state.Session) error { return s.AdvanceActiveStep(in) }
	case "start":
		op = func(s *state.Session) error { return s.StartActiveStep() }
	case "choice":
		var req ChoiceRequest
		if !h.decode(w, r, &req, false) {
			return
		}
		op = func(s *state.Session) error { return s.SelectChoice(req.Choice) }
	case "close":
		op = func(s *state.Session) error { return s.CloseActiveInteraction() }
	case "move":
		var req MoveRequest
		if !h.decode(w, r, &req, false) {
			return
		}
		op = func(s *state.Session) error { return s.MoveToRoom(req.Room) }
	case "restart":
		snap, err := h.manager.Restart(id)
		h.respond(w, snap, err)
		return
	default:
		writeErrorMessage(w, h.logger, http.StatusNotFound, "Unknown action: "+action)
		return
	}

	snap, err := h.manager.Do(id, op)
	if err != nil {
		logger.WithError(logger.WithSessionID(h.logger, id.String()), err).Debug("Session operation rejected", "action", action)
	}
	h.respond(w, snap, err)
}

func (h *SessionHandler) respond(w http.ResponseWriter, snap state.Snapshot, err error) {
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, snap)
}

// decode reads a JSON body into v. An empty body is accepted when optional.
func (h *SessionHandler) decode(w http.ResponseWriter, r *http.Request, v any, optional bool) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	err := dec.Decode(v)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return true
	}

	h.logger.Warn("Invalid request body", "path", r.URL.Path, "error", err)
	writeErrorMessage(w, h.logger, http.StatusBadRequest, "Invalid request body")
	return false
}
