package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"mailagent/internal/agent/domain"
	"mailagent/internal/agent/repository"
)

// Pipeline runs one processing pass: fetch unread emails, embed, check for
// duplicates, classify, decide, dispatch. Embedding and classification run
// concurrently in a worker pool; index access stays serialized inside the
// duplicate detector.
type Pipeline struct {
	mail       MailProvider
	embedder   *EmbedderService
	classifier *ClassifierAdapter
	detector   *DuplicateDetector
	dispatcher *ActionDispatcher
	summaries  repository.EmailSummaryRepository
	notifier   NotificationSink

	policy      DecisionPolicy
	maxEmails   int
	workerCount int
	jobKeywords []string

	runMu sync.Mutex
}

type PipelineOptions struct {
	Policy      DecisionPolicy
	MaxEmails   int
	WorkerCount int
	JobKeywords []string
}

func NewPipeline(
	mail MailProvider,
	embedder *EmbedderService,
	classifier *ClassifierAdapter,
	detector *DuplicateDetector,
	dispatcher *ActionDispatcher,
	summaries repository.EmailSummaryRepository,
	notifier NotificationSink,
	opts PipelineOptions,
) *Pipeline {
	if opts.MaxEmails <= 0 {
		opts.MaxEmails = 50
	}
	if opts.WorkerCount <= 0 {
		opts.WorkerCount = 3
	}
	return &Pipeline{
		mail:        mail,
		embedder:    embedder,
		classifier:  classifier,
		detector:    detector,
		dispatcher:  dispatcher,
		summaries:   summaries,
		notifier:    notifier,
		policy:      opts.Policy,
		maxEmails:   opts.MaxEmails,
		workerCount: opts.WorkerCount,
		jobKeywords: opts.JobKeywords,
	}
}

// emailResult is one worker's outcome for a single email
type emailResult struct {
	rec      *domain.EmailRecord
	cls      *domain.Classification
	decision domain.Decision
	err      error
	fatal    bool
}

// ProcessPass runs one full pass over the unread mailbox. Per-email failures
// (embedding, classification, dispatch) are counted and the pass continues;
// an index failure halts the pass because every verdict after it would be
// computed against unknown state.
func (p *Pipeline) ProcessPass(ctx context.Context) (domain.PassStats, error) {
	p.runMu.Lock()
	defer p.runMu.Unlock()

	stats := domain.PassStats{}

	emails, err := p.mail.FetchUnread(ctx, p.maxEmails)
	if err != nil {
		return stats, fmt.Errorf("failed to fetch unread emails: %w", err)
	}
	stats.Fetched = len(emails)
	if len(emails) == 0 {
		log.Printf("[Pipeline] No unread emails")
		return stats, nil
	}
	log.Printf("[Pipeline] Processing %d unread emails with %d workers", len(emails), p.workerCount)

	passCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan *domain.EmailRecord, len(emails))
	results := make(chan emailResult, len(emails))

	var wg sync.WaitGroup
	for i := 0; i < p.workerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for rec := range jobs {
				if passCtx.Err() != nil {
					results <- emailResult{rec: rec, err: passCtx.Err()}
					continue
				}
				res := p.processOne(passCtx, rec)
				if res.fatal {
					cancel()
				}
				results <- res
			}
		}(i)
	}

	for _, rec := range emails {
		jobs <- rec
	}
	close(jobs)
	wg.Wait()
	close(results)

	var fatalErr error
	var digest []DigestItem
	for res := range results {
		if res.err != nil {
			if res.fatal && fatalErr == nil {
				fatalErr = res.err
			}
			stats.Errors++
			log.Printf("[Pipeline] Email %s skipped with error: %v", res.rec.ID, res.err)
			continue
		}
		stats.Processed++
		switch res.decision.Action {
		case domain.ActionSkip:
			stats.Duplicates++
		case domain.ActionSummarize:
			stats.Summarized++
		case domain.ActionNotify:
			stats.Notified++
		case domain.ActionAutoRespond:
			stats.AutoResponded++
		}
		if res.cls != nil {
			if res.cls.Priority == domain.PriorityHigh {
				stats.HighPriority++
			}
			digest = append(digest, DigestItem{
				EmailID:  res.rec.ID,
				Subject:  res.rec.Subject,
				Sender:   res.rec.Sender,
				Summary:  res.cls.Summary,
				Category: res.cls.Category,
				Priority: res.cls.Priority,
				Action:   res.decision.Action,
			})
		}
	}

	log.Printf("[Pipeline] Pass done: fetched=%d processed=%d duplicates=%d summarized=%d notified=%d auto_responded=%d errors=%d",
		stats.Fetched, stats.Processed, stats.Duplicates, stats.Summarized,
		stats.Notified, stats.AutoResponded, stats.Errors)

	if fatalErr != nil {
		return stats, fatalErr
	}

	if len(digest) > 0 && p.notifier != nil {
		if err := p.notifier.SendDigest(ctx, stats, digest); err != nil {
			log.Printf("[Pipeline] Failed to send digest: %v", err)
		}
	}
	return stats, nil
}

// processOne runs the full per-email sequence. A nil-error result means the
// email reached a terminal state and was marked read.
func (p *Pipeline) processOne(ctx context.Context, rec *domain.EmailRecord) emailResult {
	vector, err := p.embedder.EmbedEmail(ctx, rec)
	if err != nil {
		return emailResult{rec: rec, err: err}
	}
	rec.State = domain.StateEmbedded

	verdict, err := p.detector.CheckAndInsert(ctx, rec, vector)
	if err != nil {
		// Index state is unknown from here on; every later verdict in this
		// pass would be unreliable.
		return emailResult{rec: rec, err: err, fatal: true}
	}

	if verdict.IsDuplicate {
		decision := Decide(verdict, nil, p.policy)
		log.Printf("[Pipeline] Email %s is a duplicate of %s (similarity %.2f)", rec.ID, verdict.MatchedID, verdict.Score)
		if _, err := p.dispatcher.Execute(ctx, rec, nil, decision); err != nil {
			return emailResult{rec: rec, err: err}
		}
		p.markRead(ctx, rec)
		rec.State = domain.StateActioned
		return emailResult{rec: rec, decision: decision}
	}

	cls, err := p.classifyOrCached(ctx, rec)
	if err != nil {
		return emailResult{rec: rec, err: err}
	}
	rec.State = domain.StateClassified

	decision := Decide(verdict, cls, p.policy)
	if decision.Action == domain.ActionAutoRespond && !p.matchesJobKeywords(rec) {
		// Classifier says job but the text has none of the configured
		// keywords; an automatic reply is too risky, file it instead.
		log.Printf("[Pipeline] Email %s classified as job but no job keywords found, downgrading to summarize", rec.ID)
		decision = domain.Decision{
			Action:    domain.ActionSummarize,
			Rationale: "job classification without matching keywords",
		}
	}

	p.saveSummary(rec, cls)

	result, err := p.dispatcher.Execute(ctx, rec, cls, decision)
	if err != nil {
		// Email stays unread so the next pass retries the action; the index
		// entry and summary cache from this pass are kept.
		return emailResult{rec: rec, err: err}
	}
	if result.AlreadyDone {
		log.Printf("[Pipeline] Email %s action %s already done in an earlier pass", rec.ID, decision.Action)
	}

	p.markRead(ctx, rec)
	rec.State = domain.StateActioned
	return emailResult{rec: rec, cls: cls, decision: decision}
}

// classifyOrCached returns the cached classification when one exists, so a
// reprocessed email never pays for a second LLM call.
func (p *Pipeline) classifyOrCached(ctx context.Context, rec *domain.EmailRecord) (*domain.Classification, error) {
	if p.summaries != nil {
		cached, err := p.summaries.GetSummary(rec.ID)
		if err != nil {
			log.Printf("[Pipeline] Summary cache lookup failed for %s: %v", rec.ID, err)
		} else if cached != nil && cached.Details != "" {
			var cls domain.Classification
			if err := json.Unmarshal([]byte(cached.Details), &cls); err == nil {
				log.Printf("[Pipeline] Using cached classification for %s", rec.ID)
				return &cls, nil
			}
		}
	}
	return p.classifier.Classify(ctx, rec)
}

func (p *Pipeline) saveSummary(rec *domain.EmailRecord, cls *domain.Classification) {
	if p.summaries == nil {
		return
	}
	details, err := json.Marshal(cls)
	if err != nil {
		log.Printf("[Pipeline] Failed to encode classification for %s: %v", rec.ID, err)
		return
	}
	summary := &domain.EmailSummary{
		EmailID:  rec.ID,
		Subject:  rec.Subject,
		Sender:   rec.Sender,
		Category: cls.Category,
		Priority: cls.Priority,
		Summary:  cls.Summary,
		Details:  string(details),
	}
	if err := p.summaries.SaveSummary(summary); err != nil {
		log.Printf("[Pipeline] Failed to cache summary for %s: %v", rec.ID, err)
	}
}

func (p *Pipeline) markRead(ctx context.Context, rec *domain.EmailRecord) {
	if err := p.mail.MarkAsRead(ctx, rec.ID); err != nil {
		log.Printf("[Pipeline] Failed to mark %s as read: %v", rec.ID, err)
	}
}

// matchesJobKeywords reports whether the subject or body contains any of the
// configured job keywords. An empty keyword list disables the gate.
func (p *Pipeline) matchesJobKeywords(rec *domain.EmailRecord) bool {
	if len(p.jobKeywords) == 0 {
		return true
	}
	text := strings.ToLower(rec.Subject + " " + rec.Body)
	for _, kw := range p.jobKeywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// IsIndexError reports whether the pass failed because of the similarity
// index rather than a transient provider issue.
func IsIndexError(err error) bool {
	return errors.Is(err, domain.ErrIndexCorrupt) || errors.Is(err, domain.ErrDuplicateKey)
}
