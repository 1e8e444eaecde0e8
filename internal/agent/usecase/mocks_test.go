package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mailagent/internal/agent/domain"
	"mailagent/pkg/ai"
)

// --- mock AI provider ---

type mockProvider struct {
	classifyFn func(ctx context.Context, emailText string) (*ai.RawClassification, error)
	replyFn    func(ctx context.Context, subject, sender, body string) (string, error)
	embedFn    func(ctx context.Context, text string) ([]float32, error)
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) ClassifyEmail(ctx context.Context, emailText string) (*ai.RawClassification, error) {
	if m.classifyFn != nil {
		return m.classifyFn(ctx, emailText)
	}
	return &ai.RawClassification{Category: "general", Confidence: 0.9, Summary: "a summary", Priority: "medium"}, nil
}

func (m *mockProvider) GenerateReply(ctx context.Context, subject, sender, body string) (string, error) {
	if m.replyFn != nil {
		return m.replyFn(ctx, subject, sender, body)
	}
	return "generated reply", nil
}

func (m *mockProvider) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if m.embedFn != nil {
		return m.embedFn(ctx, text)
	}
	return []float32{1, 0, 0}, nil
}

// --- mock mail provider ---

type sentMail struct {
	to, subject, body, attachment string
}

type mockMail struct {
	mu      sync.Mutex
	unread  []*domain.EmailRecord
	sent    []sentMail
	read    []string
	sendErr error
}

func (m *mockMail) FetchUnread(ctx context.Context, max int) ([]*domain.EmailRecord, error) {
	if max > 0 && len(m.unread) > max {
		return m.unread[:max], nil
	}
	return m.unread, nil
}

func (m *mockMail) SendReply(ctx context.Context, to, subject, body, attachmentPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body, attachment: attachmentPath})
	return nil
}

func (m *mockMail) MarkAsRead(ctx context.Context, emailID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.read = append(m.read, emailID)
	return nil
}

func (m *mockMail) readIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.read))
	copy(out, m.read)
	return out
}

// --- mock notification sink ---

type mockSink struct {
	mu        sync.Mutex
	notified  []string
	digests   int
	notifyErr error
}

func (s *mockSink) Notify(ctx context.Context, rec *domain.EmailRecord, cls *domain.Classification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.notifyErr != nil {
		return s.notifyErr
	}
	s.notified = append(s.notified, rec.ID)
	return nil
}

func (s *mockSink) SendDigest(ctx context.Context, stats domain.PassStats, items []DigestItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.digests++
	return nil
}

// --- in-memory action record repository ---

type memActionRepo struct {
	mu      sync.Mutex
	records map[string]*domain.ActionRecord
}

func newMemActionRepo() *memActionRepo {
	return &memActionRepo{records: make(map[string]*domain.ActionRecord)}
}

func actionKey(emailID string, action domain.ActionType) string {
	return emailID + "/" + string(action)
}

func (r *memActionRepo) Get(emailID string, action domain.ActionType) (*domain.ActionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[actionKey(emailID, action)]
	if !ok {
		return nil, nil
	}
	clone := *rec
	return &clone, nil
}

func (r *memActionRepo) Record(record *domain.ActionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *record
	if clone.ExecutedAt.IsZero() {
		clone.ExecutedAt = time.Now()
	}
	r.records[actionKey(record.EmailID, record.ActionType)] = &clone
	return nil
}

func (r *memActionRepo) ListRecent(limit int) ([]domain.ActionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ActionRecord
	for _, rec := range r.records {
		out = append(out, *rec)
	}
	return out, nil
}

func (r *memActionRepo) CountSince(action domain.ActionType, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, rec := range r.records {
		if rec.ActionType == action && !rec.ExecutedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *memActionRepo) CountByStatusSince(status domain.ActionStatus, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, rec := range r.records {
		if rec.Status == status && !rec.ExecutedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

// --- in-memory summary repository ---

type memSummaryRepo struct {
	mu        sync.Mutex
	summaries map[string]*domain.EmailSummary
}

func newMemSummaryRepo() *memSummaryRepo {
	return &memSummaryRepo{summaries: make(map[string]*domain.EmailSummary)}
}

func (r *memSummaryRepo) GetSummary(emailID string) (*domain.EmailSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.summaries[emailID]
	if !ok {
		return nil, nil
	}
	clone := *s
	return &clone, nil
}

func (r *memSummaryRepo) SaveSummary(summary *domain.EmailSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *summary
	r.summaries[summary.EmailID] = &clone
	return nil
}

func (r *memSummaryRepo) ListRecent(limit int) ([]domain.EmailSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.EmailSummary
	for _, s := range r.summaries {
		out = append(out, *s)
	}
	return out, nil
}

// --- helpers ---

func testEmail(id, subject, body string) *domain.EmailRecord {
	return &domain.EmailRecord{
		ID:      id,
		Subject: subject,
		Sender:  fmt.Sprintf("%s@example.com", id),
		Body:    body,
		Date:    time.Now(),
		State:   domain.StateUnprocessed,
	}
}
