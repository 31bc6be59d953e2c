// Package api holds the HTTP handlers of the feed server. Failures outside
// the feed body use one JSON envelope, {"error":{"code":"...","message":"..."}},
// shared with the rate limiter's 429.
package api

import (
	"context"
	"log/slog"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/onnwee/creatorfeed/internal/middleware"
)

// Error codes. GET /feed never fails on its own: filters are sanitized and a
// broken dependency yields an empty page, so every code is about routing or
// quota.
const (
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeRateLimited      = middleware.ErrorCodeRateLimited
)

var codeStatus = map[string]int{
	ErrCodeNotFound:         http.StatusNotFound,
	ErrCodeMethodNotAllowed: http.StatusMethodNotAllowed,
	ErrCodeRateLimited:      http.StatusTooManyRequests,
}

// ErrorEnvelope is the body of every error response.
type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody carries a machine readable code and a message for people.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StatusFor returns the HTTP status sent with code; unknown codes are 500.
func StatusFor(code string) int {
	if status, ok := codeStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// writeError records code for the access log and sends the envelope with the
// status StatusFor(code).
func writeError(w http.ResponseWriter, r *http.Request, code, message string) {
	ctx := middleware.SetErrorCode(r.Context(), code)
	middleware.UpdateResponseContext(w, ctx)
	writeJSON(w, ctx, StatusFor(code), ErrorEnvelope{Error: ErrorBody{Code: code, Message: message}})
}

// methodNotAllowed answers a request whose method is not in allowed.
func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed string) {
	w.Header().Set("Allow", allowed)
	writeError(w, r, ErrCodeMethodNotAllowed, "Only "+allowed+" is supported on "+r.URL.Path)
}

// NotFound is the fallback handler for every path other than /feed and the
// operational endpoints.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, ErrCodeNotFound, "No such endpoint; the creator feed is served at /feed")
}

// writeJSON encodes v with status. Encoding errors are logged; the status
// line has already been sent.
func writeJSON(w http.ResponseWriter, ctx context.Context, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}
