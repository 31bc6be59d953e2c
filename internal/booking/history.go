// Package booking exposes the read side of a viewer's booking history
// needed by the discovery feed.
package booking

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	"github.com/onnwee/creatorfeed/internal/tracing"
)

// StatusCompleted is the booking status that earns a loyalty boost.
const StatusCompleted = "completed"

// HistoryProvider returns the creators a viewer has completed bookings with.
type HistoryProvider interface {
	CompletedCreatorIDs(ctx context.Context, viewerID string) (map[string]struct{}, error)
}

// Booking is the minimal booking record the feed cares about.
type Booking struct {
	ID        string
	ClientID  string
	CreatorID string
	Status    string
}

// InMemoryHistory is an in-memory HistoryProvider.
// Thread-safe via RWMutex.
type InMemoryHistory struct {
	mu       sync.RWMutex
	bookings []Booking
}

// NewInMemoryHistory creates an empty in-memory booking history.
func NewInMemoryHistory() *InMemoryHistory {
	return &InMemoryHistory{}
}

// Add records a booking.
func (h *InMemoryHistory) Add(b Booking) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.bookings = append(h.bookings, b)
}

// CompletedCreatorIDs returns the set of creators with a completed booking for viewerID.
func (h *InMemoryHistory) CompletedCreatorIDs(ctx context.Context, viewerID string) (map[string]struct{}, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[string]struct{})
	if viewerID == "" {
		return out, nil
	}
	for _, b := range h.bookings {
		if b.ClientID == viewerID && b.Status == StatusCompleted {
			out[b.CreatorID] = struct{}{}
		}
	}
	return out, nil
}

// PostgresHistory implements HistoryProvider on the bookings table.
type PostgresHistory struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresHistory creates a new PostgresHistory.
func NewPostgresHistory(db *sql.DB, logger *slog.Logger) *PostgresHistory {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresHistory{db: db, logger: logger}
}

// CompletedCreatorIDs returns the set of creators with a completed booking for viewerID.
func (h *PostgresHistory) CompletedCreatorIDs(ctx context.Context, viewerID string) (ids map[string]struct{}, err error) {
	ids = make(map[string]struct{})
	if viewerID == "" {
		return ids, nil
	}

	ctx, endSpan := tracing.StartQuery(ctx, tracing.TableBookings)
	defer func() { endSpan(err) }()

	rows, err := h.db.QueryContext(ctx,
		`SELECT DISTINCT creator_id FROM bookings WHERE client_id = $1 AND status = $2`,
		viewerID, StatusCompleted)
	if err != nil {
		h.logger.Error("failed to query completed bookings",
			slog.String("viewer_id", viewerID),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to query completed bookings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var creatorID string
		if err = rows.Scan(&creatorID); err != nil {
			return nil, fmt.Errorf("failed to scan booking creator: %w", err)
		}
		ids[creatorID] = struct{}{}
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookings: %w", err)
	}
	return ids, nil
}
