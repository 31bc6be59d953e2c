package middleware

import (
	"context"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
)

// Tracing starts a server span per request with otelhttp, continuing any W3C
// traceparent sent by the caller. Spans are named "<METHOD> <route>" using the
// bounded route labels. Health and readiness checks are not traced.
func Tracing(serviceName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, serviceName,
			otelhttp.WithSpanNameFormatter(spanName),
			otelhttp.WithFilter(func(r *http.Request) bool {
				return !isHealthCheck(r.URL.Path)
			}),
		)
	}
}

func spanName(_ string, r *http.Request) string {
	return r.Method + " " + routeLabel(r.URL.Path)
}

// TraceID returns the hex trace id of the span in ctx, or "" outside a trace.
func TraceID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return sc.TraceID().String()
	}
	return ""
}
