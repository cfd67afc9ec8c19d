// Package handlers provides JSON response helpers shared by HTTP handlers.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
)

// ErrInvalidBody indicates a request body that could not be decoded as JSON.
var ErrInvalidBody = errors.New("invalid request body")

// RespondJSON writes data as a JSON response with the given status.
func RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RespondError logs err and writes it as {"error": message}.
func RespondError(w http.ResponseWriter, logger *slog.Logger, status int, err error) {
	logger.Error("handler error", "error", err, "status", status)
	RespondJSON(w, status, map[string]string{"error": err.Error()})
}

// RespondFailure logs err and writes it in the station envelope
// {"success": false, "error": message}.
func RespondFailure(w http.ResponseWriter, logger *slog.Logger, status int, err error) {
	logger.Error("handler error", "error", err, "status", status)
	RespondJSON(w, status, map[string]any{
		"success": false,
		"error":   err.Error(),
	})
}

// RespondSuccess merges fields into a {"success": true} envelope.
func RespondSuccess(w http.ResponseWriter, status int, fields map[string]any) {
	body := map[string]any{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	RespondJSON(w, status, body)
}

// DecodeJSON decodes a request body into T, bounding it by limit bytes.
func DecodeJSON[T any](r *http.Request, limit int64) (T, error) {
	var v T
	body := io.LimitReader(r.Body, limit)
	if err := json.NewDecoder(body).Decode(&v); err != nil {
		return v, errors.Join(ErrInvalidBody, err)
	}
	return v, nil
}
