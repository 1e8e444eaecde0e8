package usecase

import (
	"context"
	"testing"

	"mailagent/internal/index"
)

func TestDuplicateDetector_FirstEmailIsNotDuplicate(t *testing.T) {
	detector := NewDuplicateDetector(index.NewMemoryIndex(), 0.85, 5)

	verdict, err := detector.CheckAndInsert(context.Background(), testEmail("e1", "hello", "body"), []float32{1, 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict.IsDuplicate {
		t.Fatal("first email must not be a duplicate")
	}

	count, err := detector.IndexCount(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("email should be indexed after the check, count = %d", count)
	}
}

func TestDuplicateDetector_NearDuplicateMatches(t *testing.T) {
	detector := NewDuplicateDetector(index.NewMemoryIndex(), 0.85, 5)
	ctx := context.Background()

	if _, err := detector.CheckAndInsert(ctx, testEmail("e1", "offer", "body"), []float32{1, 0}); err != nil {
		t.Fatal(err)
	}

	// Nearly identical vector, similarity ~0.995
	verdict, err := detector.CheckAndInsert(ctx, testEmail("e2", "offer", "body"), []float32{1, 0.1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !verdict.IsDuplicate {
		t.Fatal("near-identical email should be a duplicate")
	}
	if verdict.MatchedID != "e1" {
		t.Errorf("expected match against e1, got %s", verdict.MatchedID)
	}
	if verdict.Score < 0.85 {
		t.Errorf("reported similarity %g below threshold", verdict.Score)
	}
}

func TestDuplicateDetector_DissimilarEmailPasses(t *testing.T) {
	detector := NewDuplicateDetector(index.NewMemoryIndex(), 0.85, 5)
	ctx := context.Background()

	if _, err := detector.CheckAndInsert(ctx, testEmail("e1", "offer", "body"), []float32{1, 0}); err != nil {
		t.Fatal(err)
	}

	verdict, err := detector.CheckAndInsert(ctx, testEmail("e2", "newsletter", "other"), []float32{0, 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict.IsDuplicate {
		t.Fatal("orthogonal vector must not be a duplicate")
	}
}

// Duplicates are indexed too: the third email of a similar chain matches the
// earliest entry, not the intermediate duplicate.
func TestDuplicateDetector_ChainMatchesEarliest(t *testing.T) {
	detector := NewDuplicateDetector(index.NewMemoryIndex(), 0.85, 5)
	ctx := context.Background()

	if _, err := detector.CheckAndInsert(ctx, testEmail("e1", "offer", "body"), []float32{1, 0}); err != nil {
		t.Fatal(err)
	}
	v2, err := detector.CheckAndInsert(ctx, testEmail("e2", "offer", "body"), []float32{1, 0.05})
	if err != nil {
		t.Fatal(err)
	}
	if !v2.IsDuplicate || v2.MatchedID != "e1" {
		t.Fatalf("e2 should match e1, got %+v", v2)
	}

	count, err := detector.IndexCount(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Fatalf("duplicate e2 must still be indexed, count = %d", count)
	}

	// e3 sits between e1 and e2 but e1 is the closest entry here
	v3, err := detector.CheckAndInsert(ctx, testEmail("e3", "offer", "body"), []float32{1, -0.02})
	if err != nil {
		t.Fatal(err)
	}
	if !v3.IsDuplicate {
		t.Fatal("e3 should be a duplicate")
	}
	if v3.MatchedID != "e1" {
		t.Errorf("e3 should match the closest entry e1, got %s", v3.MatchedID)
	}
}

func TestDuplicateDetector_TieBreaksToSmallestID(t *testing.T) {
	detector := NewDuplicateDetector(index.NewMemoryIndex(), 0.85, 5)
	ctx := context.Background()

	// b and a are equidistant from the probe vector
	if _, err := detector.CheckAndInsert(ctx, testEmail("b", "offer", "body"), []float32{1, 0.1}); err != nil {
		t.Fatal(err)
	}
	v, err := detector.CheckAndInsert(ctx, testEmail("a", "offer", "body"), []float32{1, -0.1})
	if err != nil {
		t.Fatal(err)
	}
	if v.IsDuplicate {
		// a vs b similarity is ~0.98, still a duplicate at T=0.85; fine
		if v.MatchedID != "b" {
			t.Fatalf("expected match against b, got %s", v.MatchedID)
		}
	}

	verdict, err := detector.CheckAndInsert(ctx, testEmail("c", "offer", "body"), []float32{1, 0})
	if err != nil {
		t.Fatal(err)
	}
	if !verdict.IsDuplicate {
		t.Fatal("c should be a duplicate of the pair")
	}
	if verdict.MatchedID != "a" {
		t.Errorf("equidistant matches should resolve to the smallest id, got %s", verdict.MatchedID)
	}
}

// Reprocessing after a crash-restart: the email's own id is already in the
// index. The self-match is filtered from the verdict and the insert is
// skipped instead of failing the pass.
func TestDuplicateDetector_ReprocessedEmailIsNotItsOwnDuplicate(t *testing.T) {
	detector := NewDuplicateDetector(index.NewMemoryIndex(), 0.85, 5)
	ctx := context.Background()

	rec := testEmail("e1", "offer", "body")
	vector := []float32{1, 0}

	if _, err := detector.CheckAndInsert(ctx, rec, vector); err != nil {
		t.Fatal(err)
	}

	verdict, err := detector.CheckAndInsert(ctx, rec, vector)
	if err != nil {
		t.Fatalf("reprocessing must not fail: %v", err)
	}
	if verdict.IsDuplicate {
		t.Fatal("an email must never match itself")
	}

	count, err := detector.IndexCount(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("reprocessing must not create a second entry, count = %d", count)
	}
}

func TestDuplicateDetector_ThresholdBoundary(t *testing.T) {
	// Verdict requires similarity >= T; matches strictly below T pass through
	detector := NewDuplicateDetector(index.NewMemoryIndex(), 0.9, 5)
	ctx := context.Background()

	if _, err := detector.CheckAndInsert(ctx, testEmail("e1", "offer", "body"), []float32{1, 0}); err != nil {
		t.Fatal(err)
	}

	// cos([1,0],[1,0.6]) ~ 0.857, below T=0.9
	verdict, err := detector.CheckAndInsert(ctx, testEmail("e2", "offer", "body"), []float32{1, 0.6})
	if err != nil {
		t.Fatal(err)
	}
	if verdict.IsDuplicate {
		t.Fatalf("similarity below threshold must not be a duplicate, got %+v", verdict)
	}
}
