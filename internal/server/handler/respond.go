package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sevigo/ci-warden/internal/core"
	"github.com/sevigo/ci-warden/internal/queue"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError maps the error taxonomy onto HTTP status codes.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var (
		missing *core.MissingFieldError
		invalid *core.InvalidFieldValueError
	)
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &missing), errors.As(err, &invalid):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrRecordNotFound):
		status = http.StatusNotFound
	case errors.Is(err, queue.ErrQueueFull):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
