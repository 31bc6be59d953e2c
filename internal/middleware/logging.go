// Package middleware holds the HTTP middleware of the feed server: request
// ids, tracing, access logs, metrics, CORS, profiling, optional viewer
// authentication and rate limiting.
package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"
)

type (
	userIDKey    struct{}
	errorCodeKey struct{}
)

// SetUserID returns a copy of ctx carrying the authenticated viewer id.
func SetUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// GetUserID returns the viewer id, or "" for anonymous requests.
func GetUserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey{}).(string)
	return id
}

// SetErrorCode returns a copy of ctx carrying the machine readable code of an
// error response, reported as error_code in the access log.
func SetErrorCode(ctx context.Context, code string) context.Context {
	return context.WithValue(ctx, errorCodeKey{}, code)
}

// GetErrorCode returns the error code stored by SetErrorCode, or "".
func GetErrorCode(ctx context.Context) string {
	code, _ := ctx.Value(errorCodeKey{}).(string)
	return code
}

// NewLogger returns a JSON logger at info level in production and a text
// logger at debug level everywhere else, both writing to stdout.
func NewLogger(env string) *slog.Logger {
	return newLogger(os.Stdout, env)
}

func newLogger(out io.Writer, env string) *slog.Logger {
	if env == "production" {
		return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// Logging writes one access log line per request. 5xx responses log at error
// level and 4xx at warn, where the error_code set by the handler is included.
// A panicking handler produces no line.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)

			next.ServeHTTP(rec, r)
			rec.observe(r.Context())

			status := rec.Status()
			attrs := make([]slog.Attr, 0, 10)
			attrs = append(attrs,
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("route", routeLabel(r.URL.Path)),
				slog.Int("status", status),
				slog.Int64("latency_ms", time.Since(start).Milliseconds()),
				slog.Int64("size", rec.written),
			)
			if id := GetRequestID(r.Context()); id != "" {
				attrs = append(attrs, slog.String("request_id", id))
			}
			if traceID := TraceID(r.Context()); traceID != "" {
				attrs = append(attrs, slog.String("trace_id", traceID))
			}
			if rec.userID != "" {
				attrs = append(attrs, slog.String("user_id", rec.userID))
			}
			if status >= http.StatusBadRequest && rec.errorCode != "" {
				attrs = append(attrs, slog.String("error_code", rec.errorCode))
			}

			logger.LogAttrs(r.Context(), levelForStatus(status), "request completed", attrs...)
		})
	}
}

func levelForStatus(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
