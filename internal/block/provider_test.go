package block

import (
	"context"
	"testing"
)

func TestNoopProvider(t *testing.T) {
	ids, err := NoopProvider{}.BlockedCreatorIDs(context.Background(), "viewer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ids == nil || len(ids) != 0 {
		t.Errorf("expected empty non-nil set, got %v", ids)
	}
}

func TestInMemoryProvider(t *testing.T) {
	p := NewInMemoryProvider()
	p.Block("viewer", "c1")
	p.Block("viewer", "c2")
	p.Block("other", "c3")

	ids, err := p.BlockedCreatorIDs(context.Background(), "viewer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 blocked creators, got %v", ids)
	}
	if _, ok := ids["c3"]; ok {
		t.Error("another viewer's block leaked")
	}

	// Mutating the returned set must not affect stored state.
	delete(ids, "c1")
	again, _ := p.BlockedCreatorIDs(context.Background(), "viewer")
	if _, ok := again["c1"]; !ok {
		t.Error("stored block set was mutated through returned copy")
	}
}
