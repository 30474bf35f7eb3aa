package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"financas/internal/core"
	"financas/internal/log"
	"financas/internal/storage"
)

type errorBody struct {
	Error string `json:"error"`
}

// writeJSON encodes v with status. Encoding failures after the header is
// sent can only be logged.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(r.Context(), "Failed to encode response", "error", err, "path", r.URL.Path)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorBody{Error: msg})
}

// writeServiceError maps err to a status. Unexpected errors are logged and
// answered with a generic 500 body.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	switch {
	case errors.Is(err, errBadRequest):
		writeError(w, r, http.StatusBadRequest, "malformed request body")
	case core.IsValidation(err):
		writeError(w, r, http.StatusBadRequest, validationMessage(err))
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not found")
	default:
		log.NewStructuredLogger(log.FromContext(r.Context())).
			LogError(r.Context(), "Request failed", err, operation, log.NewFields().WithRequestID(requestID(r)))
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

// validationMessage returns the sentinel message without wrapping context.
func validationMessage(err error) string {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if core.IsValidation(e) && errors.Unwrap(e) == nil {
			return e.Error()
		}
	}
	return err.Error()
}

func writeMethodNotAllowed(w http.ResponseWriter, r *http.Request, allow string) {
	w.Header().Set("Allow", allow)
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusUnauthorized, "unauthorized")
}

func writeRateLimited(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded")
}
