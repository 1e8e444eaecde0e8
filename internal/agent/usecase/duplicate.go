package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"mailagent/internal/agent/domain"
)

// DuplicateDetector owns all access to the similarity index. The
// {query, insert} pair runs under a single mutex: the query must see every
// email processed before this one (so a chain of similar emails all match
// the earliest), and the insert must happen strictly after the query (so an
// email never matches itself within a pass).
type DuplicateDetector struct {
	index     VectorIndex
	threshold float64
	k         int
	mu        sync.Mutex
}

// NewDuplicateDetector creates a detector with threshold T in (0,1] and a
// small k for near-duplicate clustering.
func NewDuplicateDetector(index VectorIndex, threshold float64, k int) *DuplicateDetector {
	if k <= 0 {
		k = 5
	}
	return &DuplicateDetector{
		index:     index,
		threshold: threshold,
		k:         k,
	}
}

// CheckAndInsert queries the index for near duplicates of the email, then
// inserts the email's own vector. The verdict is computed before insertion
// regardless of duplicate status: duplicates are indexed too, so the third
// email of a similar chain still matches the first, not the second.
//
// A self-match (the email's own id already indexed by an earlier,
// interrupted pass) is filtered from the candidates and suppresses the
// insert. Index failures are fatal to the pass; a DuplicateKeyError outside
// the self-match path means the insert-after-query discipline was broken.
func (d *DuplicateDetector) CheckAndInsert(ctx context.Context, rec *domain.EmailRecord, vector []float32) (domain.DuplicateVerdict, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	maxDistance := 1 - d.threshold
	matches, err := d.index.Query(ctx, vector, d.k, maxDistance)
	if err != nil {
		return domain.DuplicateVerdict{}, fmt.Errorf("%w: query failed: %v", domain.ErrIndexCorrupt, err)
	}

	verdict := domain.DuplicateVerdict{}
	alreadyIndexed := false

	var best *domain.IndexMatch
	for i := range matches {
		m := matches[i]
		if m.ID == rec.ID {
			alreadyIndexed = true
			continue
		}
		if m.Similarity() < d.threshold {
			continue
		}
		if best == nil {
			best = &m
			continue
		}
		// Ascending distance, ties broken by smallest id for determinism
		if m.Distance < best.Distance || (m.Distance == best.Distance && m.ID < best.ID) {
			best = &m
		}
	}

	if best != nil {
		verdict = domain.DuplicateVerdict{
			IsDuplicate: true,
			MatchedID:   best.ID,
			Score:       best.Similarity(),
		}
	}

	if alreadyIndexed {
		// Reprocessing after a crash-restart; the entry from the earlier
		// pass stays authoritative.
		log.Printf("[Duplicate] Email %s already indexed, skipping insert", rec.ID)
		return verdict, nil
	}

	entry := domain.IndexEntry{
		ID:          rec.ID,
		Vector:      vector,
		SubjectHash: domain.HashSubject(rec.Subject),
		Timestamp:   rec.Date,
	}
	if err := d.index.Insert(ctx, entry); err != nil {
		if errors.Is(err, domain.ErrDuplicateKey) {
			return verdict, fmt.Errorf("insert-after-query discipline violated for %s: %w", rec.ID, err)
		}
		return verdict, fmt.Errorf("%w: insert failed: %v", domain.ErrIndexCorrupt, err)
	}

	return verdict, nil
}

// IndexCount exposes the index size for the stats API
func (d *DuplicateDetector) IndexCount(ctx context.Context) (int, error) {
	return d.index.Count(ctx)
}

// IndexEntries exposes a read-only enumeration of the index for reporting
func (d *DuplicateDetector) IndexEntries(ctx context.Context) ([]domain.IndexEntry, error) {
	return d.index.Entries(ctx)
}
