// Package httpx writes the JSON error envelope shared by every endpoint.
package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/Shreyas-sv10/Shop2/internal/platform/requestctx"
)

// Error is an API failure: a stable machine code, a message safe to show the cashier and the
// HTTP status.
type Error struct {
	Code       string
	Message    string
	Status     int
	RequestID  string
	RetryAfter time.Duration
}

type envelope struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Status    int    `json:"status"`
	RequestID string `json:"request_id,omitempty"`
	TraceID   string `json:"trace_id,omitempty"`
}

// NewError builds an Error. A zero status means 500.
func NewError(code, message string, status int) Error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return Error{Code: oneLine(code, 80), Message: oneLine(message, 512), Status: status}
}

func (e Error) Error() string {
	return e.Code + ": " + e.Message
}

// WithRequestID overrides the request id otherwise taken from chi's RequestID middleware.
func (e Error) WithRequestID(id string) Error {
	e.RequestID = oneLine(id, 80)
	return e
}

// WithRetryAfter sets the Retry-After header, rounded up to whole seconds.
func (e Error) WithRetryAfter(d time.Duration) Error {
	if d > 0 {
		e.RetryAfter = d
	}
	return e
}

// WriteError writes err with the request and trace ids found on ctx.
func WriteError(ctx context.Context, w http.ResponseWriter, err Error) {
	body := envelope{
		Error:     err.Code,
		Message:   err.Message,
		Status:    err.Status,
		RequestID: err.RequestID,
		TraceID:   oneLine(requestctx.TraceID(ctx), 64),
	}
	if body.Status == 0 {
		body.Status = http.StatusInternalServerError
	}
	if body.RequestID == "" {
		body.RequestID = oneLine(middleware.GetReqID(ctx), 80)
	}
	if err.RetryAfter > 0 {
		seconds := (err.RetryAfter + time.Second - 1) / time.Second
		w.Header().Set("Retry-After", strconv.FormatInt(int64(seconds), 10))
	}
	WriteJSON(w, body.Status, body)
}

// WriteJSON encodes payload as the response body.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// oneLine folds line breaks so values cannot split a log line or header, then truncates.
func oneLine(value string, limit int) string {
	value = strings.TrimSpace(strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(value))
	if len(value) > limit {
		value = value[:limit]
	}
	return value
}
