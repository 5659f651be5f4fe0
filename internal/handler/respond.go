package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/urielfelipevz0z/proyecto-progra-web/internal/apperrors"
)

// Envelope is the fixed response shape for every API endpoint. Data is
// omitted when there is nothing to return. Error carries the internal
// cause and is only populated in development mode.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// errorDetail gates serialization of internal error causes in responses.
var errorDetail atomic.Bool

// IncludeErrorDetail toggles the error field on failure responses. The
// server enables it in development so clients see the internal cause;
// production leaves it off and the envelope carries only the message.
func IncludeErrorDetail(on bool) {
	errorDetail.Store(on)
}

func respond(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Envelope{
		Success: status < http.StatusBadRequest,
		Message: message,
		Data:    data,
	})
}

// respondError maps the error to its HTTP status and client-facing message.
// Internal causes are logged; they reach the response only in development.
func respondError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", slog.String("error", err.Error()))
	}

	env := Envelope{Success: false, Message: apperrors.Message(err)}
	if errorDetail.Load() {
		env.Error = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(env)
}

// decodeJSON reads the request body into dst, translating malformed or
// oversized payloads into validation errors.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperrors.NewValidation("Request body too large")
		}
		return apperrors.NewValidation("Invalid request body")
	}
	return nil
}
