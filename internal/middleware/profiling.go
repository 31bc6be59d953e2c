package middleware

import (
	"log/slog"
	"net/http"
	"net/http/pprof"
)

// ProfilingConfig configures the profiling middleware.
type ProfilingConfig struct {
	// Enabled exposes the pprof endpoints under /debug/pprof/.
	// Never set in production; config.Validate rejects it there.
	Enabled bool

	// Environment is checked again here so a misconfigured caller still
	// cannot expose runtime internals in production.
	Environment string

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// active reports whether the pprof endpoints should be mounted.
func (c ProfilingConfig) active() bool {
	if !c.Enabled {
		return false
	}
	return c.Environment != "production" && c.Environment != "prod"
}

// newPprofMux registers the pprof handlers. Named profiles such as heap,
// goroutine or allocs are served by pprof.Index.
func newPprofMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc(pprofRoute+"/", pprof.Index)
	mux.HandleFunc(pprofRoute+"/cmdline", pprof.Cmdline)
	mux.HandleFunc(pprofRoute+"/profile", pprof.Profile)
	mux.HandleFunc(pprofRoute+"/symbol", pprof.Symbol)
	mux.HandleFunc(pprofRoute+"/trace", pprof.Trace)
	return mux
}

// Profiling returns middleware that serves pprof under /debug/pprof/ and
// passes every other request through. When profiling is disabled, or the
// environment is production, it returns next unchanged.
func Profiling(config ProfilingConfig) func(http.Handler) http.Handler {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		if !config.active() {
			if config.Enabled {
				logger.Error("refusing to expose profiling endpoints in production",
					"environment", config.Environment)
			}
			return next
		}

		logger.Warn("profiling endpoints enabled",
			"environment", config.Environment,
			"endpoints", pprofRoute+"/*")

		pprofMux := newPprofMux()
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPprofPath(r.URL.Path) {
				pprofMux.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
