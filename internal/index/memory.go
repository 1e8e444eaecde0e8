package index

import (
	"context"
	"math"
	"sort"
	"sync"

	"mailagent/internal/agent/domain"
)

// MemoryIndex is an in-process similarity index over email embeddings.
// It is the local counterpart of the Chroma-backed index: same contract,
// no external service. The metric is cosine distance and is fixed for the
// lifetime of the index.
type MemoryIndex struct {
	mu      sync.RWMutex
	entries map[string]domain.IndexEntry
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		entries: make(map[string]domain.IndexEntry),
	}
}

// Insert adds an entry to the index. Fails with domain.ErrDuplicateKey if the
// id is already present; the pipeline's insert-after-query discipline means
// that should never happen in practice.
func (m *MemoryIndex) Insert(ctx context.Context, entry domain.IndexEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[entry.ID]; exists {
		return domain.ErrDuplicateKey
	}

	// Copy the vector so later mutation by the caller cannot corrupt the index
	vec := make([]float32, len(entry.Vector))
	copy(vec, entry.Vector)
	entry.Vector = vec

	m.entries[entry.ID] = entry
	return nil
}

// Query returns up to k entries ordered by ascending cosine distance, each
// within maxDistance. An empty index yields an empty result, not an error.
// Entries at exactly the same distance are ordered by id so results are
// deterministic.
func (m *MemoryIndex) Query(ctx context.Context, vector []float32, k int, maxDistance float64) ([]domain.IndexMatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if k <= 0 || len(m.entries) == 0 {
		return []domain.IndexMatch{}, nil
	}

	matches := make([]domain.IndexMatch, 0, len(m.entries))
	for id, entry := range m.entries {
		dist := cosineDistance(vector, entry.Vector)
		if dist > maxDistance {
			continue
		}
		matches = append(matches, domain.IndexMatch{
			ID:          id,
			Distance:    dist,
			SubjectHash: entry.SubjectHash,
			Timestamp:   entry.Timestamp,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].ID < matches[j].ID
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Count returns the number of indexed emails.
func (m *MemoryIndex) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}

// Entries enumerates all index entries, ordered by id. Read-only view for
// the stats API.
func (m *MemoryIndex) Entries(ctx context.Context) ([]domain.IndexEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.IndexEntry, 0, len(m.entries))
	for _, entry := range m.entries {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// cosineDistance returns 1 - cosine similarity. Vectors of different length
// or zero magnitude are treated as maximally distant.
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp float noise so an exact self-match reports distance 0
	if sim > 1 {
		sim = 1
	} else if sim < -1 {
		sim = -1
	}
	return 1 - sim
}
