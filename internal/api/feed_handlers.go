package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/onnwee/creatorfeed/internal/feed"
	"github.com/onnwee/creatorfeed/internal/middleware"
)

// FeedService produces ranked feed pages.
type FeedService interface {
	GetFeed(ctx context.Context, viewerID string, raw map[string]string) feed.Page
}

// FeedHandlers serves the creator discovery feed.
type FeedHandlers struct {
	service FeedService
	logger  *slog.Logger
}

// NewFeedHandlers creates feed handlers backed by service.
func NewFeedHandlers(service FeedService, logger *slog.Logger) *FeedHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedHandlers{
		service: service,
		logger:  logger,
	}
}

// GetFeed handles GET /feed.
//
// Query parameters are passed through as raw filters and sanitized by the
// service; bad values never produce a 4xx. The viewer comes from
// middleware.OptionalAuth and is empty for anonymous requests. The response is
// always 200 with a page, possibly empty when the feed could not be computed.
func (h *FeedHandlers) GetFeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	viewerID := middleware.GetUserID(r.Context())
	page := h.service.GetFeed(r.Context(), viewerID, flattenQuery(r))

	// Personalised pages must not be stored by shared caches.
	if viewerID != "" {
		w.Header().Set("Cache-Control", "private, no-store")
	}
	w.Header().Set("Vary", "Authorization")
	writeJSON(w, r.Context(), http.StatusOK, page)
}

// flattenQuery turns the query string into the raw filter map. Repeated keys
// are joined with commas so ?gear=a&gear=b and ?gear=a,b are equivalent.
// Unknown keys are kept; the service ignores them.
func flattenQuery(r *http.Request) map[string]string {
	query := r.URL.Query()
	raw := make(map[string]string, len(query))
	for key, values := range query {
		raw[key] = strings.Join(values, ",")
	}
	return raw
}
