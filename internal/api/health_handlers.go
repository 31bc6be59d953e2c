package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// HealthChecker defines the interface for components that can be health checked.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Check states reported by /ready.
const (
	CheckOK            = "ok"
	CheckError         = "error"
	CheckDegraded      = "degraded"
	CheckNotConfigured = "not_configured"
)

const (
	readinessTimeout    = 5 * time.Second
	statusHealthy       = "healthy"
	statusUnhealthy     = "unhealthy"
	statusDegradedReady = "degraded"
)

// HealthHandlers provides health and readiness check endpoints polled by the orchestrator.
type HealthHandlers struct {
	dbChecker    HealthChecker
	redisChecker HealthChecker
	logger       *slog.Logger
	now          func() time.Time
}

// HealthHandlersConfig configures the health check handlers.
// Nil checkers mean the dependency is not configured.
type HealthHandlersConfig struct {
	// DBChecker is critical: the feed cannot rank without creator data.
	DBChecker HealthChecker
	// RedisChecker only degrades readiness. The feed computes pages directly
	// when the shared cache is down.
	RedisChecker HealthChecker
	Logger       *slog.Logger
}

// NewHealthHandlers creates a new health check handler.
func NewHealthHandlers(config HealthHandlersConfig) *HealthHandlers {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandlers{
		dbChecker:    config.DBChecker,
		redisChecker: config.RedisChecker,
		logger:       logger,
		now:          time.Now,
	}
}

// HealthResponse represents the JSON response for health checks.
type HealthResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Timestamp string            `json:"timestamp"`
}

// Health handles GET /health (liveness).
// If we can respond, we're alive.
func (h *HealthHandlers) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, HealthResponse{
		Status:    statusHealthy,
		Checks:    map[string]string{"runtime": CheckOK},
		Timestamp: h.now().UTC().Format(time.RFC3339),
	})
}

// Ready handles GET /ready (readiness).
// Returns 503 when the database is configured and unreachable. An unreachable
// Redis reports "degraded" but keeps the pod in rotation.
func (h *HealthHandlers) Ready(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	checks := map[string]string{"metrics": CheckOK}
	status, code := statusHealthy, http.StatusOK

	checks["database"] = h.check(ctx, "database", h.dbChecker)
	if checks["database"] == CheckError {
		status, code = statusUnhealthy, http.StatusServiceUnavailable
	}

	if result := h.check(ctx, "redis", h.redisChecker); result == CheckError {
		checks["redis"] = CheckDegraded
		if status == statusHealthy {
			status = statusDegradedReady
		}
	} else {
		checks["redis"] = result
	}

	writeJSON(w, r.Context(), code, HealthResponse{
		Status:    status,
		Checks:    checks,
		Timestamp: h.now().UTC().Format(time.RFC3339),
	})
}

func (h *HealthHandlers) check(ctx context.Context, name string, c HealthChecker) string {
	if c == nil {
		return CheckNotConfigured
	}
	if err := c.HealthCheck(ctx); err != nil {
		h.logger.WarnContext(ctx, "health check failed",
			slog.String("dependency", name),
			slog.String("error", err.Error()),
		)
		return CheckError
	}
	return CheckOK
}
