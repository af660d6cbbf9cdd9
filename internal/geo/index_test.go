package geo

import (
	"context"
	"testing"
)

func TestMemoryIndexSearchOrdersByDistance(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	// Three points at increasing distance from central Lagos.
	idx.Add(ctx, "near", 6.5244, 3.3792)
	idx.Add(ctx, "mid", 6.6018, 3.3515)
	idx.Add(ctx, "far", 6.4541, 3.9470)

	members, err := idx.Search(ctx, 6.5244, 3.3792, 30000, 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 members within 30km, got %d", len(members))
	}
	if members[0].ID != "near" || members[1].ID != "mid" {
		t.Errorf("expected [near mid], got [%s %s]", members[0].ID, members[1].ID)
	}
	if members[0].DistanceMeters >= members[1].DistanceMeters {
		t.Error("distances not ascending")
	}
}

func TestMemoryIndexRadiusExcludes(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	idx.Add(ctx, "far", 7.0, 4.0)

	members, err := idx.Search(ctx, 6.5244, 3.3792, 1000, 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(members) != 0 {
		t.Errorf("expected no members within 1km, got %d", len(members))
	}
}

func TestMemoryIndexLimit(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	idx.Add(ctx, "a", 6.5244, 3.3792)
	idx.Add(ctx, "b", 6.5245, 3.3793)
	idx.Add(ctx, "c", 6.5246, 3.3794)

	members, err := idx.Search(ctx, 6.5244, 3.3792, 10000, 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(members) != 2 {
		t.Errorf("expected limit of 2, got %d", len(members))
	}
}
