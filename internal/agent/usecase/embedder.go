package usecase

import (
	"context"
	"fmt"
	"time"

	"mailagent/internal/agent/domain"
	"mailagent/pkg/ai"
)

// maxEmbedBodyChars bounds the body text fed to the embedding model;
// duplicate emails differ in the first kilobyte or not at all.
const maxEmbedBodyChars = 1000

// EmbedderService turns an email into its embedding vector. One external
// call with a mandatory timeout; failures are reported as
// domain.ErrEmbeddingUnavailable and handled per email by the pipeline.
type EmbedderService struct {
	provider ai.Provider
	timeout  time.Duration
}

func NewEmbedderService(provider ai.Provider, timeout time.Duration) *EmbedderService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &EmbedderService{provider: provider, timeout: timeout}
}

// EmbedEmail embeds the subject plus the leading slice of the body
func (e *EmbedderService) EmbedEmail(ctx context.Context, rec *domain.EmailRecord) ([]float32, error) {
	body := rec.Body
	if len(body) > maxEmbedBodyChars {
		body = body[:maxEmbedBodyChars]
	}
	text := fmt.Sprintf("Subject: %s\n\nBody: %s", rec.Subject, body)

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	vector, err := e.provider.EmbedText(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: provider returned empty vector", domain.ErrEmbeddingUnavailable)
	}
	return vector, nil
}
