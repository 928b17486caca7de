// Package display exposes the simulator's live state to outside
// observers: a chi-routed HTTP API, a Prometheus metrics endpoint, and
// a websocket push hub. A text radar renderer (console.go) covers
// terminal display for environments with no browser.
package display

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const correlationIDKey contextKey = "correlation_id"

// WithCorrelationID attaches a request-scoped correlation id.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// GetCorrelationID reads the request-scoped correlation id, minting one
// if absent.
func GetCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return uuid.NewString()
}

// WriteJSON writes status and data as a JSON response body.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// ErrorResponse is the JSON shape returned on handler failure.
type ErrorResponse struct {
	Error         string `json:"error"`
	CorrelationID string `json:"correlation_id"`
}

// WriteError writes a JSON error envelope.
func WriteError(w http.ResponseWriter, status int, message, correlationID string) {
	WriteJSON(w, status, ErrorResponse{Error: message, CorrelationID: correlationID})
}
