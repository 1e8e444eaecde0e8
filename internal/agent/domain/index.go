package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// IndexEntry is what the similarity index persists per email:
// the message id, its embedding and minimal metadata.
// The message id is unique in the index; an entry is inserted at most once.
type IndexEntry struct {
	ID          string
	Vector      []float32
	SubjectHash string
	Timestamp   time.Time
}

// IndexMatch is one nearest-neighbor result. Distance is cosine distance
// (1 - cosine similarity), so Similarity = 1 - Distance.
type IndexMatch struct {
	ID          string
	Distance    float64
	SubjectHash string
	Timestamp   time.Time
}

// Similarity returns the cosine similarity for this match.
func (m IndexMatch) Similarity() float64 {
	return 1 - m.Distance
}

// HashSubject produces the subject hash stored as index metadata.
func HashSubject(subject string) string {
	sum := sha256.Sum256([]byte(subject))
	return hex.EncodeToString(sum[:8])
}

// DuplicateVerdict is the outcome of one duplicate check. Derived fresh on
// every query and never persisted independently of the decision that used it.
type DuplicateVerdict struct {
	IsDuplicate bool    `json:"is_duplicate"`
	MatchedID   string  `json:"matched_id,omitempty"`
	Score       float64 `json:"similarity_score"`
}
