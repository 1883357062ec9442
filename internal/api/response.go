package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/studyrobo/backend/internal/apperror"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response failed", "error", err)
	}
}

// writeError maps the error taxonomy onto HTTP status codes. Unknown
// errors get a generic 500 so internals never leak to clients.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	msg := "internal server error"
	if errors.As(err, &appErr) && appErr.Message != "" {
		msg = appErr.Message
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperror.ErrAuth):
		status = http.StatusUnauthorized
	case errors.Is(err, apperror.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperror.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, apperror.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, apperror.ErrExternal), errors.Is(err, apperror.ErrConfiguration):
		status = http.StatusInternalServerError
	default:
		slog.Error("unhandled error", "error", err)
	}

	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return apperror.Validation("request body is required")
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperror.Validation("invalid JSON body")
	}
	return nil
}

func healthHandler(service string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": service,
		})
	}
}
