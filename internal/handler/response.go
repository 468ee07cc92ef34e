package handler

// RESPONSE HELPERS:
// Every endpoint answers with the same envelope:
//
//	{"success": true,  "data": {...},            "status": 200}
//	{"success": false, "error": "human message", "status": 404}
//
// The frontend never has to guess the shape — it checks `success` and reads
// either `data` or `error`. The HTTP status code and the `status` field always
// agree.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mrahman/sitebuilder/internal/apperror"
)

// Envelope is the uniform response wrapper for all API endpoints.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Status  int         `json:"status"`
}

// writeJSON sends any payload with the given status code. Headers must be set
// before the first body write — Encode writes the body, so the order here is
// fixed.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already gone at this point; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeSuccess wraps data in a success envelope.
func writeSuccess(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, Envelope{Success: true, Data: data, Status: status})
}

// writeError maps a domain error onto the failure envelope.
//
// The service layer speaks apperror sentinels, not HTTP. This is the one
// place where ErrNotFound becomes 404, ErrValidation becomes 400, and so on.
// errors.Is walks the whole wrap chain, so services are free to annotate
// errors with fmt.Errorf("...: %w", err) on the way up.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
		case errors.Is(err, apperror.ErrUnauthorized):
			status = http.StatusUnauthorized
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict
		}

		message := appErr.Message
		if message == "" {
			message = http.StatusText(status)
		}

		writeJSON(w, status, Envelope{Success: false, Error: message, Status: status})
		return
	}

	// Unknown error — generic 500. The raw message could carry SQL or file
	// paths, so it never reaches the client; the log keeps the real cause.
	slog.Error("unhandled internal error", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, Envelope{
		Success: false,
		Error:   "an internal error occurred",
		Status:  http.StatusInternalServerError,
	})
}

// decodeJSON reads a request body into dst, translating malformed JSON into a
// validation error so the client gets a 400 envelope rather than a bare 500.
func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.ValidationFailed("body", "invalid JSON body")
	}
	return nil
}
