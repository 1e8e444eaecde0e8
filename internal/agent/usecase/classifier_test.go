package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"mailagent/internal/agent/domain"
	"mailagent/pkg/ai"
)

func TestClassifierAdapter_NormalizesKnownLabels(t *testing.T) {
	tests := []struct {
		raw  string
		want domain.Category
	}{
		{"job", domain.CategoryJob},
		{"JOB", domain.CategoryJob},
		{"job_related", domain.CategoryJob},
		{"recruiting", domain.CategoryJob},
		{"Important", domain.CategoryImportant},
		{"critical", domain.CategoryImportant},
		{"urgent", domain.CategoryUrgent},
		{"  spam  ", domain.CategorySpamLike},
		{"promotional", domain.CategorySpamLike},
		{"general", domain.CategoryGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			provider := &mockProvider{
				classifyFn: func(ctx context.Context, emailText string) (*ai.RawClassification, error) {
					return &ai.RawClassification{Category: tt.raw, Confidence: 0.9}, nil
				},
			}
			adapter := NewClassifierAdapter(provider, time.Second, 0.5)

			cls, err := adapter.Classify(context.Background(), testEmail("e1", "subject", "body"))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cls.Category != tt.want {
				t.Errorf("category = %s, want %s", cls.Category, tt.want)
			}
		})
	}
}

func TestClassifierAdapter_UnknownLabelBecomesGeneral(t *testing.T) {
	provider := &mockProvider{
		classifyFn: func(ctx context.Context, emailText string) (*ai.RawClassification, error) {
			return &ai.RawClassification{Category: "philosophical", Confidence: 0.9}, nil
		},
	}
	adapter := NewClassifierAdapter(provider, time.Second, 0.5)

	cls, err := adapter.Classify(context.Background(), testEmail("e1", "subject", "body"))
	if err != nil {
		t.Fatalf("unknown label must not be an error: %v", err)
	}
	if cls.Category != domain.CategoryGeneral {
		t.Errorf("unknown label should map to general, got %s", cls.Category)
	}
}

func TestClassifierAdapter_LowConfidenceDowngradesToGeneral(t *testing.T) {
	provider := &mockProvider{
		classifyFn: func(ctx context.Context, emailText string) (*ai.RawClassification, error) {
			return &ai.RawClassification{Category: "job", Confidence: 0.3}, nil
		},
	}
	adapter := NewClassifierAdapter(provider, time.Second, 0.5)

	cls, err := adapter.Classify(context.Background(), testEmail("e1", "subject", "body"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cls.Category != domain.CategoryGeneral {
		t.Errorf("low-confidence job should downgrade to general, got %s", cls.Category)
	}
	if cls.Confidence != 0.3 {
		t.Errorf("confidence should be preserved through the downgrade, got %g", cls.Confidence)
	}
}

func TestClassifierAdapter_ClampsConfidence(t *testing.T) {
	provider := &mockProvider{
		classifyFn: func(ctx context.Context, emailText string) (*ai.RawClassification, error) {
			return &ai.RawClassification{Category: "important", Confidence: 1.7}, nil
		},
	}
	adapter := NewClassifierAdapter(provider, time.Second, 0.5)

	cls, err := adapter.Classify(context.Background(), testEmail("e1", "subject", "body"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cls.Confidence != 1 {
		t.Errorf("confidence should clamp to 1, got %g", cls.Confidence)
	}
}

func TestClassifierAdapter_ProviderFailureIsRecoverable(t *testing.T) {
	provider := &mockProvider{
		classifyFn: func(ctx context.Context, emailText string) (*ai.RawClassification, error) {
			return nil, fmt.Errorf("model overloaded")
		},
	}
	adapter := NewClassifierAdapter(provider, time.Second, 0.5)

	_, err := adapter.Classify(context.Background(), testEmail("e1", "subject", "body"))
	if !errors.Is(err, domain.ErrClassificationUnavailable) {
		t.Fatalf("expected ErrClassificationUnavailable, got %v", err)
	}
}

func TestEmbedderService_FailureIsRecoverable(t *testing.T) {
	provider := &mockProvider{
		embedFn: func(ctx context.Context, text string) ([]float32, error) {
			return nil, fmt.Errorf("quota exceeded")
		},
	}
	embedder := NewEmbedderService(provider, time.Second)

	_, err := embedder.EmbedEmail(context.Background(), testEmail("e1", "subject", "body"))
	if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
		t.Fatalf("expected ErrEmbeddingUnavailable, got %v", err)
	}
}

func TestEmbedderService_EmptyVectorRejected(t *testing.T) {
	provider := &mockProvider{
		embedFn: func(ctx context.Context, text string) ([]float32, error) {
			return []float32{}, nil
		},
	}
	embedder := NewEmbedderService(provider, time.Second)

	_, err := embedder.EmbedEmail(context.Background(), testEmail("e1", "subject", "body"))
	if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
		t.Fatalf("expected ErrEmbeddingUnavailable for empty vector, got %v", err)
	}
}

func TestEmbedderService_TruncatesLongBody(t *testing.T) {
	var seen string
	provider := &mockProvider{
		embedFn: func(ctx context.Context, text string) ([]float32, error) {
			seen = text
			return []float32{1}, nil
		},
	}
	embedder := NewEmbedderService(provider, time.Second)

	long := make([]byte, 5000)
	for i := range long {
		long[i] = 'x'
	}
	if _, err := embedder.EmbedEmail(context.Background(), testEmail("e1", "subject", string(long))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(seen) > maxEmbedBodyChars+100 {
		t.Errorf("embedded text should be capped, got %d chars", len(seen))
	}
}
