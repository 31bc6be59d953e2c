//go:build integration

package block

import (
	"context"
	"testing"

	"github.com/onnwee/creatorfeed/internal/testdb"
)

// TestPostgresProvider_Integration tests block list lookups per viewer.
func TestPostgresProvider_Integration(t *testing.T) {
	db := testdb.Start(t)
	p := NewPostgresProvider(db, nil)

	_, err := db.Exec(`
		INSERT INTO creator_blocks (viewer_id, creator_id) VALUES
			('viewer', 'c1'),
			('viewer', 'c2'),
			('other',  'c3')`)
	if err != nil {
		t.Fatalf("failed to seed blocks: %v", err)
	}

	ids, err := p.BlockedCreatorIDs(context.Background(), "viewer")
	if err != nil {
		t.Fatalf("BlockedCreatorIDs failed: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 blocked creators, got %v", ids)
	}
	if _, ok := ids["c3"]; ok {
		t.Error("another viewer's block leaked into the set")
	}

	anon, err := p.BlockedCreatorIDs(context.Background(), "")
	if err != nil || len(anon) != 0 {
		t.Errorf("expected empty set for anonymous viewer, got %v (%v)", anon, err)
	}
}
