// Package block provides the viewer block list consulted by the discovery feed.
package block

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	"github.com/onnwee/creatorfeed/internal/tracing"
)

// Provider returns the creator ids a viewer has blocked.
type Provider interface {
	BlockedCreatorIDs(ctx context.Context, viewerID string) (map[string]struct{}, error)
}

// NoopProvider never blocks anyone. It is the default until blocking ships.
type NoopProvider struct{}

// BlockedCreatorIDs always returns an empty set.
func (NoopProvider) BlockedCreatorIDs(ctx context.Context, viewerID string) (map[string]struct{}, error) {
	return map[string]struct{}{}, nil
}

// InMemoryProvider is an in-memory block list.
// Thread-safe via RWMutex.
type InMemoryProvider struct {
	mu      sync.RWMutex
	blocked map[string]map[string]struct{} // viewer id -> creator ids
}

// NewInMemoryProvider creates an empty in-memory block list.
func NewInMemoryProvider() *InMemoryProvider {
	return &InMemoryProvider{blocked: make(map[string]map[string]struct{})}
}

// Block records that viewerID blocked creatorID.
func (p *InMemoryProvider) Block(viewerID, creatorID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	set, ok := p.blocked[viewerID]
	if !ok {
		set = make(map[string]struct{})
		p.blocked[viewerID] = set
	}
	set[creatorID] = struct{}{}
}

// BlockedCreatorIDs returns a copy of the viewer's block set.
func (p *InMemoryProvider) BlockedCreatorIDs(ctx context.Context, viewerID string) (map[string]struct{}, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]struct{}, len(p.blocked[viewerID]))
	for id := range p.blocked[viewerID] {
		out[id] = struct{}{}
	}
	return out, nil
}

// PostgresProvider reads block lists from the creator_blocks table.
type PostgresProvider struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresProvider creates a new PostgresProvider.
func NewPostgresProvider(db *sql.DB, logger *slog.Logger) *PostgresProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresProvider{db: db, logger: logger}
}

// BlockedCreatorIDs returns the creators viewerID has blocked.
// Anonymous viewers have no block list.
func (p *PostgresProvider) BlockedCreatorIDs(ctx context.Context, viewerID string) (ids map[string]struct{}, err error) {
	ids = make(map[string]struct{})
	if viewerID == "" {
		return ids, nil
	}

	ctx, endSpan := tracing.StartQuery(ctx, tracing.TableCreatorBlocks)
	defer func() { endSpan(err) }()

	rows, err := p.db.QueryContext(ctx, `SELECT creator_id FROM creator_blocks WHERE viewer_id = $1`, viewerID)
	if err != nil {
		p.logger.Error("failed to query block list",
			slog.String("viewer_id", viewerID),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to query block list: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var creatorID string
		if err = rows.Scan(&creatorID); err != nil {
			return nil, fmt.Errorf("failed to scan blocked creator: %w", err)
		}
		ids[creatorID] = struct{}{}
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate block list: %w", err)
	}
	return ids, nil
}
