package usecase

import (
	"context"

	"mailagent/internal/agent/domain"
)

// VectorIndex is the similarity index contract the pipeline consumes.
// Implemented by the Chroma-backed index and by the in-memory index.
// The distance metric is cosine and is fixed at construction; all writes go
// through the duplicate detector's single-writer section.
type VectorIndex interface {
	// Insert adds an entry; fails with domain.ErrDuplicateKey if the id is
	// already present.
	Insert(ctx context.Context, entry domain.IndexEntry) error
	// Query returns up to k entries within maxDistance, ordered by ascending
	// distance. Empty index yields an empty result, not an error.
	Query(ctx context.Context, vector []float32, k int, maxDistance float64) ([]domain.IndexMatch, error)
	// Count returns the number of indexed emails.
	Count(ctx context.Context) (int, error)
	// Entries enumerates index entries for the stats/reporting layer.
	Entries(ctx context.Context) ([]domain.IndexEntry, error)
}

// MailProvider abstracts the mail store transport (Gmail API or IMAP/SMTP).
// The pipeline only sees {id, text, timestamp} records and never parses
// provider envelope formats.
type MailProvider interface {
	FetchUnread(ctx context.Context, max int) ([]*domain.EmailRecord, error)
	SendReply(ctx context.Context, to, subject, body, attachmentPath string) error
	MarkAsRead(ctx context.Context, emailID string) error
}

// NotificationSink delivers notify-actions and per-pass digests
// (Slack webhook, FCM push). No retry happens inside the sink.
type NotificationSink interface {
	Notify(ctx context.Context, rec *domain.EmailRecord, cls *domain.Classification) error
	SendDigest(ctx context.Context, stats domain.PassStats, items []DigestItem) error
}

// ReplyGenerator produces the body of an auto-response
type ReplyGenerator interface {
	GenerateReply(ctx context.Context, subject, sender, body string) (string, error)
}

// DigestItem is one processed email in the per-pass digest
type DigestItem struct {
	EmailID  string          `json:"email_id"`
	Subject  string          `json:"subject"`
	Sender   string          `json:"sender"`
	Summary  string          `json:"summary"`
	Category domain.Category `json:"category"`
	Priority domain.Priority `json:"priority"`
	Action   domain.ActionType `json:"action"`
}
