package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jwebster45206/lab-engine/pkg/gameerr"
)

type ErrorResponse struct {
	Error    string            `json:"error"`
	Code     string            `json:"code,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeErrorMessage(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	writeJSON(w, logger, status, ErrorResponse{Error: message})
}

// writeError maps domain errors to their status; anything else is a 500.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var gerr *gameerr.Error
	if errors.As(err, &gerr) {
		writeJSON(w, logger, gerr.HTTPStatus(), ErrorResponse{
			Error:    gerr.Message,
			Code:     string(gerr.Code),
			Metadata: gerr.Metadata,
		})
		return
	}

	logger.Error("Internal error", "error", err)
	writeErrorMessage(w, logger, http.StatusInternalServerError, "Internal server error")
}
