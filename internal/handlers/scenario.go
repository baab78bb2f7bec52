package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/jwebster45206/lab-engine/internal/storage"
)

type ScenarioHandler struct {
	log     *slog.Logger
	catalog storage.Catalog
}

func NewScenarioHandler(log *slog.Logger, catalog storage.Catalog) *ScenarioHandler {
	return &ScenarioHandler{
		log:     log,
		catalog: catalog,
	}
}

// ServeHTTP handles scenario catalogue requests
// Routes:
// GET /v1/scenarios      - List scenarios
// GET /v1/scenarios/{id} - Full scenario catalogue
func (h *ScenarioHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorMessage(w, h.log, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
		return
	}

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/scenarios"), "/")
	if id == "" {
		h.handleList(w, r)
		return
	}
	if strings.Contains(id, "/") || strings.Contains(id, "..") {
		writeErrorMessage(w, h.log, http.StatusBadRequest, "Invalid scenario id")
		return
	}
	h.handleGet(w, r, id)
}

func (h *ScenarioHandler) handleList(w http.ResponseWriter, r *http.Request) {
	infos, err := h.catalog.ListScenarios(r.Context())
	if err != nil {
		h.log.Error("Failed to list scenarios", "error", err)
		writeErrorMessage(w, h.log, http.StatusInternalServerError, "Failed to list scenarios")
		return
	}
	if infos == nil {
		infos = []storage.ScenarioInfo{}
	}
	writeJSON(w, h.log, http.StatusOK, infos)
}

func (h *ScenarioHandler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	scen, err := h.catalog.GetScenario(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, scen)
}
