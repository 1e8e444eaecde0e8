package index

import (
	"context"
	"errors"
	"testing"
	"time"

	"mailagent/internal/agent/domain"
)

func entry(id string, vector []float32) domain.IndexEntry {
	return domain.IndexEntry{
		ID:          id,
		Vector:      vector,
		SubjectHash: domain.HashSubject("subject " + id),
		Timestamp:   time.Now(),
	}
}

func TestMemoryIndex_QueryEmpty(t *testing.T) {
	idx := NewMemoryIndex()

	matches, err := idx.Query(context.Background(), []float32{1, 0}, 5, 0.15)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("expected no matches on empty index, got %d", len(matches))
	}
}

func TestMemoryIndex_ExactMatchHasZeroDistance(t *testing.T) {
	idx := NewMemoryIndex()
	v := []float32{0.6, 0.8}

	if err := idx.Insert(context.Background(), entry("e1", v)); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	matches, err := idx.Query(context.Background(), v, 5, 0.15)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].Distance != 0 {
		t.Errorf("identical vector should have distance 0, got %g", matches[0].Distance)
	}
	if matches[0].Similarity() != 1 {
		t.Errorf("identical vector should have similarity 1, got %g", matches[0].Similarity())
	}
}

func TestMemoryIndex_DuplicateKeyRejected(t *testing.T) {
	idx := NewMemoryIndex()
	v := []float32{1, 0}

	if err := idx.Insert(context.Background(), entry("e1", v)); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	err := idx.Insert(context.Background(), entry("e1", v))
	if !errors.Is(err, domain.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestMemoryIndex_MaxDistanceFiltersResults(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	// e1 is close to the query, e2 is orthogonal
	if err := idx.Insert(ctx, entry("e1", []float32{1, 0.05})); err != nil {
		t.Fatal(err)
	}
	if err := idx.Insert(ctx, entry("e2", []float32{0, 1})); err != nil {
		t.Fatal(err)
	}

	matches, err := idx.Query(ctx, []float32{1, 0}, 5, 0.15)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match within maxDistance, got %d", len(matches))
	}
	if matches[0].ID != "e1" {
		t.Errorf("expected e1, got %s", matches[0].ID)
	}
}

func TestMemoryIndex_ResultsOrderedByDistanceThenID(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	// b and a are equidistant from the query, c is slightly closer
	if err := idx.Insert(ctx, entry("b", []float32{1, 0.1})); err != nil {
		t.Fatal(err)
	}
	if err := idx.Insert(ctx, entry("a", []float32{1, -0.1})); err != nil {
		t.Fatal(err)
	}
	if err := idx.Insert(ctx, entry("c", []float32{1, 0.01})); err != nil {
		t.Fatal(err)
	}

	matches, err := idx.Query(ctx, []float32{1, 0}, 5, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(matches))
	}
	if matches[0].ID != "c" {
		t.Errorf("closest entry should be first, got %s", matches[0].ID)
	}
	if matches[1].ID != "a" || matches[2].ID != "b" {
		t.Errorf("equidistant entries should order by id, got %s, %s", matches[1].ID, matches[2].ID)
	}
}

func TestMemoryIndex_QueryCapsAtK(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	for _, id := range []string{"e1", "e2", "e3", "e4"} {
		if err := idx.Insert(ctx, entry(id, []float32{1, 0})); err != nil {
			t.Fatal(err)
		}
	}

	matches, err := idx.Query(ctx, []float32{1, 0}, 2, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected k=2 matches, got %d", len(matches))
	}
}

func TestMemoryIndex_InsertCopiesVector(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	v := []float32{1, 0}
	if err := idx.Insert(ctx, entry("e1", v)); err != nil {
		t.Fatal(err)
	}
	// Mutating the caller's slice must not corrupt the stored entry
	v[0] = 0
	v[1] = 1

	matches, err := idx.Query(ctx, []float32{1, 0}, 1, 0.01)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 || matches[0].Distance != 0 {
		t.Fatalf("stored vector was mutated through the caller's slice")
	}
}

func TestMemoryIndex_CountAndEntries(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	for _, id := range []string{"e2", "e1"} {
		if err := idx.Insert(ctx, entry(id, []float32{1, 0})); err != nil {
			t.Fatal(err)
		}
	}

	count, err := idx.Count(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Errorf("expected count 2, got %d", count)
	}

	entries, err := idx.Entries(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 || entries[0].ID != "e1" || entries[1].ID != "e2" {
		t.Errorf("entries should be sorted by id, got %+v", entries)
	}
}
