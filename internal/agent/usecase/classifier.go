package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	"mailagent/internal/agent/domain"
	"mailagent/pkg/ai"
)

// maxClassifyChars bounds the email text sent to the classifier to stay
// inside model token limits.
const maxClassifyChars = 5000

// ClassifierAdapter wraps the black-box classify call and normalizes its
// output: raw labels map into the closed category enum (unknown labels
// become general with a warning, never an error), confidence is clamped to
// [0,1], and results below the configured minimum confidence are downgraded
// to general so they cannot trigger an auto-response.
type ClassifierAdapter struct {
	provider      ai.Provider
	timeout       time.Duration
	minConfidence float64
}

func NewClassifierAdapter(provider ai.Provider, timeout time.Duration, minConfidence float64) *ClassifierAdapter {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ClassifierAdapter{
		provider:      provider,
		timeout:       timeout,
		minConfidence: minConfidence,
	}
}

// Classify runs one external classification call and normalizes the result.
// Provider errors and timeouts surface as domain.ErrClassificationUnavailable;
// the caller decides the retry policy.
func (a *ClassifierAdapter) Classify(ctx context.Context, rec *domain.EmailRecord) (*domain.Classification, error) {
	body := rec.Body
	if len(body) > maxClassifyChars {
		body = body[:maxClassifyChars]
	}
	emailText := fmt.Sprintf("Subject: %s\nFrom: %s\nDate: %s\nBody:\n%s",
		rec.Subject, rec.Sender, rec.Date.Format(time.RFC1123), body)

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	raw, err := a.provider.ClassifyEmail(ctx, emailText)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrClassificationUnavailable, err)
	}

	category, known := domain.NormalizeCategory(raw.Category)
	if !known {
		log.Printf("[Classifier] Unrecognized category %q for email %s, using general", raw.Category, rec.ID)
	}

	confidence := raw.Confidence
	if confidence < 0 {
		confidence = 0
	} else if confidence > 1 {
		confidence = 1
	}

	// Low-confidence results must not trigger side-effecting decisions
	if confidence < a.minConfidence && category != domain.CategoryGeneral {
		log.Printf("[Classifier] Confidence %.2f below minimum %.2f for email %s, downgrading %s to general",
			confidence, a.minConfidence, rec.ID, category)
		category = domain.CategoryGeneral
	}

	return &domain.Classification{
		Category:         category,
		Confidence:       confidence,
		Summary:          raw.Summary,
		Priority:         normalizePriority(raw.Priority),
		ActionItems:      raw.ActionItems,
		Deadlines:        raw.Deadlines,
		KeyPoints:        raw.KeyPoints,
		RequiresResponse: raw.RequiresResponse,
		Sentiment:        raw.Sentiment,
	}, nil
}

func normalizePriority(raw string) domain.Priority {
	switch raw {
	case "high", "High", "HIGH":
		return domain.PriorityHigh
	case "low", "Low", "LOW":
		return domain.PriorityLow
	default:
		return domain.PriorityMedium
	}
}
