package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"mailagent/internal/agent/domain"
	"mailagent/internal/agent/usecase"
)

// SlackSink posts notifications and per-pass digests to a Slack incoming
// webhook. The webhook URL carries the credential, no extra auth.
type SlackSink struct {
	webhookURL string
	httpClient *http.Client
}

func NewSlackSink(webhookURL string) *SlackSink {
	return &SlackSink{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type slackMessage struct {
	Text string `json:"text"`
}

// Notify posts a single high-priority email alert
func (s *SlackSink) Notify(ctx context.Context, rec *domain.EmailRecord, cls *domain.Classification) error {
	var b strings.Builder
	fmt.Fprintf(&b, ":envelope: *%s email* from %s\n", cls.Category, rec.Sender)
	fmt.Fprintf(&b, "*Subject:* %s\n", rec.Subject)
	if cls.Summary != "" {
		fmt.Fprintf(&b, "*Summary:* %s\n", cls.Summary)
	}
	if len(cls.ActionItems) > 0 {
		fmt.Fprintf(&b, "*Action items:* %s\n", strings.Join(cls.ActionItems, "; "))
	}
	if len(cls.Deadlines) > 0 {
		fmt.Fprintf(&b, "*Deadlines:* %s\n", strings.Join(cls.Deadlines, "; "))
	}
	return s.post(ctx, b.String())
}

// SendDigest posts the end-of-pass summary
func (s *SlackSink) SendDigest(ctx context.Context, stats domain.PassStats, items []usecase.DigestItem) error {
	var b strings.Builder
	fmt.Fprintf(&b, ":mailbox: *Mail pass digest* — %d processed, %d duplicates, %d notified, %d auto-responded, %d errors\n",
		stats.Processed, stats.Duplicates, stats.Notified, stats.AutoResponded, stats.Errors)
	for _, item := range items {
		summary := item.Summary
		if len(summary) > 120 {
			summary = summary[:117] + "..."
		}
		fmt.Fprintf(&b, "• [%s/%s] %s — %s (%s)\n", item.Category, item.Priority, item.Subject, summary, item.Action)
	}
	return s.post(ctx, b.String())
}

func (s *SlackSink) post(ctx context.Context, text string) error {
	payload, err := json.Marshal(slackMessage{Text: text})
	if err != nil {
		return fmt.Errorf("failed to encode slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("slack webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}
