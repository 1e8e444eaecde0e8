package notification

import (
	"context"
	"fmt"
	"log"

	"mailagent/internal/agent/domain"
	"mailagent/internal/agent/repository"
	"mailagent/internal/agent/usecase"
	"mailagent/pkg/fcm"
)

// FCMSink pushes high-priority alerts to every registered operator device.
// Digests are Slack-only; a phone buzz per pass would be noise.
type FCMSink struct {
	client    *fcm.Client
	tokenRepo repository.FCMTokenRepository
}

func NewFCMSink(client *fcm.Client, tokenRepo repository.FCMTokenRepository) *FCMSink {
	return &FCMSink{client: client, tokenRepo: tokenRepo}
}

func (s *FCMSink) Notify(ctx context.Context, rec *domain.EmailRecord, cls *domain.Classification) error {
	tokens, err := s.tokenRepo.GetAll()
	if err != nil {
		return fmt.Errorf("failed to load device tokens: %w", err)
	}
	if len(tokens) == 0 {
		log.Println("[FCM] No registered devices, skipping push")
		return nil
	}

	var tokenStrings []string
	for _, t := range tokens {
		tokenStrings = append(tokenStrings, t.Token)
	}

	subject := rec.Subject
	if len(subject) > 100 {
		subject = subject[:97] + "..."
	}

	failedTokens, err := s.client.SendToDevices(ctx, tokenStrings, fcm.NotificationData{
		Title: fmt.Sprintf("%s email from %s", cls.Category, rec.Sender),
		Body:  subject,
		Data: map[string]string{
			"type":     "email_alert",
			"email_id": rec.ID,
			"category": string(cls.Category),
			"priority": string(cls.Priority),
		},
	})
	if err != nil {
		return err
	}

	for _, token := range failedTokens {
		if err := s.tokenRepo.Delete(token); err != nil {
			log.Printf("[FCM] Failed to prune dead token: %v", err)
		}
	}
	return nil
}

// SendDigest is a no-op for FCM
func (s *FCMSink) SendDigest(ctx context.Context, stats domain.PassStats, items []usecase.DigestItem) error {
	return nil
}
