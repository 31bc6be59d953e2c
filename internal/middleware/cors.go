package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig holds the configuration for CORS middleware.
type CORSConfig struct {
	AllowedOrigins   []string // Exact origins; wildcards are not supported
	AllowedMethods   []string // Advertised on preflight; the feed only needs GET and OPTIONS
	AllowedHeaders   []string // Request headers a browser may send, e.g. Authorization
	ExposedHeaders   []string // Defaults to DefaultExposedHeaders
	AllowCredentials bool
	MaxAge           int // Preflight cache duration in seconds
}

// DefaultExposedHeaders lets browser clients read request ids and rate limit state.
var DefaultExposedHeaders = []string{
	RequestIDHeader,
	"X-RateLimit-Limit",
	"X-RateLimit-Remaining",
	"X-RateLimit-Reset",
	"Retry-After",
}

// CORS returns a middleware that handles Cross-Origin Resource Sharing.
//
// With no AllowedOrigins the middleware is a pass-through. Requests without an
// Origin header are same-origin and pass untouched. A disallowed origin gets a
// 403. A preflight (OPTIONS with Access-Control-Request-Method) from an allowed
// origin is answered with 204 and never reaches next.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		if origin = strings.TrimSpace(origin); origin != "" {
			allowed[origin] = struct{}{}
		}
	}

	exposed := cfg.ExposedHeaders
	if exposed == nil {
		exposed = DefaultExposedHeaders
	}

	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	exposedStr := strings.Join(exposed, ", ")
	maxAge := strconv.Itoa(cfg.MaxAge)

	return func(next http.Handler) http.Handler {
		if len(allowed) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Responses differ per origin, so shared caches must key on it.
			w.Header().Add("Vary", "Origin")

			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			if _, ok := allowed[origin]; !ok {
				http.Error(w, "Origin not allowed", http.StatusForbidden)
				return
			}

			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			if cfg.AllowCredentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Set("Access-Control-Allow-Methods", methods)
				h.Set("Access-Control-Allow-Headers", headers)
				if cfg.MaxAge > 0 {
					h.Set("Access-Control-Max-Age", maxAge)
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			if exposedStr != "" {
				h.Set("Access-Control-Expose-Headers", exposedStr)
			}
			next.ServeHTTP(w, r)
		})
	}
}
