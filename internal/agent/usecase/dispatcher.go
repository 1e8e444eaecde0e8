package usecase

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"mailagent/internal/agent/domain"
	"mailagent/internal/agent/repository"
)

// fallbackReplyBody is sent when every reply provider fails; losing a
// recruiter email to an LLM outage is worse than a canned response.
const fallbackReplyBody = `Thank you for your email regarding the opportunity.

I am very interested in learning more about this position. I have attached my resume for your review.

I would be happy to discuss this further at your convenience. Please feel free to contact me.

Best regards`

// ActionDispatcher executes decided actions exactly once per
// (email, action type). Side-effecting actions (notify, auto-respond) are
// guarded by an ActionRecord: an existing success record short-circuits the
// dispatch, a failure is recorded without a success mark so the next pass
// retries. Record check/create is serialized by a single mutex.
type ActionDispatcher struct {
	records      repository.ActionRecordRepository
	mail         MailProvider
	notifier     NotificationSink
	replyGen     ReplyGenerator
	replyTimeout time.Duration
	resumePath   string
	mu           sync.Mutex
}

func NewActionDispatcher(
	records repository.ActionRecordRepository,
	mail MailProvider,
	notifier NotificationSink,
	replyGen ReplyGenerator,
	replyTimeout time.Duration,
	resumePath string,
) *ActionDispatcher {
	if replyTimeout <= 0 {
		replyTimeout = 30 * time.Second
	}
	return &ActionDispatcher{
		records:      records,
		mail:         mail,
		notifier:     notifier,
		replyGen:     replyGen,
		replyTimeout: replyTimeout,
		resumePath:   resumePath,
	}
}

// DispatchResult reports what the dispatcher actually did
type DispatchResult struct {
	// Executed is true when the side effect ran during this call
	Executed bool
	// AlreadyDone is true when a success record short-circuited the dispatch
	AlreadyDone bool
}

// Execute performs the decided action for the email at most once.
func (d *ActionDispatcher) Execute(ctx context.Context, rec *domain.EmailRecord, cls *domain.Classification, decision domain.Decision) (*DispatchResult, error) {
	switch decision.Action {
	case domain.ActionSkip, domain.ActionSummarize:
		// No external side effect; record for the audit trail and stats
		if err := d.record(rec.ID, decision, domain.ActionStatusSuccess, ""); err != nil {
			return nil, fmt.Errorf("failed to record %s for %s: %w", decision.Action, rec.ID, err)
		}
		return &DispatchResult{}, nil

	case domain.ActionNotify:
		return d.executeGuarded(ctx, rec, decision, func(ctx context.Context) error {
			return d.notifier.Notify(ctx, rec, cls)
		})

	case domain.ActionAutoRespond:
		return d.executeGuarded(ctx, rec, decision, func(ctx context.Context) error {
			return d.sendAutoResponse(ctx, rec)
		})

	default:
		return nil, fmt.Errorf("unknown action type %q for email %s", decision.Action, rec.ID)
	}
}

// executeGuarded runs a side effect behind the idempotency record.
func (d *ActionDispatcher) executeGuarded(ctx context.Context, rec *domain.EmailRecord, decision domain.Decision, effect func(context.Context) error) (*DispatchResult, error) {
	d.mu.Lock()
	existing, err := d.records.Get(rec.ID, decision.Action)
	d.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to check action record for %s: %w", rec.ID, err)
	}
	if existing != nil && existing.Status == domain.ActionStatusSuccess {
		log.Printf("[Dispatcher] %s already executed for email %s at %s, skipping",
			decision.Action, rec.ID, existing.ExecutedAt.Format(time.RFC3339))
		return &DispatchResult{AlreadyDone: true}, nil
	}

	if err := effect(ctx); err != nil {
		if recordErr := d.record(rec.ID, decision, domain.ActionStatusFailed, err.Error()); recordErr != nil {
			log.Printf("[Dispatcher] Failed to record failure for %s: %v", rec.ID, recordErr)
		}
		return &DispatchResult{}, fmt.Errorf("%w: %s for %s: %v", domain.ErrActionDispatchFailed, decision.Action, rec.ID, err)
	}

	if err := d.record(rec.ID, decision, domain.ActionStatusSuccess, ""); err != nil {
		// The side effect ran; surfacing the record failure matters more
		// than pretending the action failed.
		log.Printf("[Dispatcher] %s executed for %s but recording failed: %v", decision.Action, rec.ID, err)
	}
	return &DispatchResult{Executed: true}, nil
}

func (d *ActionDispatcher) record(emailID string, decision domain.Decision, status domain.ActionStatus, errMsg string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.records.Record(&domain.ActionRecord{
		EmailID:    emailID,
		ActionType: decision.Action,
		Status:     status,
		Error:      errMsg,
		Rationale:  decision.Rationale,
	})
}

// sendAutoResponse generates and sends the reply, attaching the resume when
// the configured file exists.
func (d *ActionDispatcher) sendAutoResponse(ctx context.Context, rec *domain.EmailRecord) error {
	replyCtx, cancel := context.WithTimeout(ctx, d.replyTimeout)
	body, err := d.replyGen.GenerateReply(replyCtx, rec.Subject, rec.Sender, rec.Body)
	cancel()
	if err != nil {
		log.Printf("[Dispatcher] Reply generation failed for %s, using fallback template: %v", rec.ID, err)
		body = fallbackReplyBody
	}

	attachmentPath := d.resumePath
	if attachmentPath != "" {
		if _, err := os.Stat(attachmentPath); err != nil {
			log.Printf("[Dispatcher] Resume not found at %s, sending without attachment", attachmentPath)
			attachmentPath = ""
		}
	}

	subject := "Re: " + rec.Subject
	return d.mail.SendReply(ctx, rec.Sender, subject, body, attachmentPath)
}
