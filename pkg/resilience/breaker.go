// Package resilience guards external AI calls with a circuit breaker so a
// flapping provider fails fast instead of eating the per-call timeout on
// every email in a batch.
package resilience

import (
	"context"
	"log"
	"time"

	"github.com/sony/gobreaker"

	"mailagent/pkg/ai"
)

// BreakerProvider wraps an ai.Provider with per-operation circuit breakers.
// Classification, reply generation and embedding trip independently; a broken
// chat endpoint should not take embeddings down with it.
type BreakerProvider struct {
	inner    ai.Provider
	classify *gobreaker.CircuitBreaker
	reply    *gobreaker.CircuitBreaker
	embed    *gobreaker.CircuitBreaker
}

func NewBreakerProvider(inner ai.Provider) *BreakerProvider {
	return &BreakerProvider{
		inner:    inner,
		classify: newBreaker(inner.Name() + "-classify"),
		reply:    newBreaker(inner.Name() + "-reply"),
		embed:    newBreaker(inner.Name() + "-embed"),
	}
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("[Breaker] %s: %s -> %s", name, from, to)
		},
	})
}

func (b *BreakerProvider) Name() string { return b.inner.Name() }

func (b *BreakerProvider) ClassifyEmail(ctx context.Context, emailText string) (*ai.RawClassification, error) {
	result, err := b.classify.Execute(func() (interface{}, error) {
		return b.inner.ClassifyEmail(ctx, emailText)
	})
	if err != nil {
		return nil, err
	}
	return result.(*ai.RawClassification), nil
}

func (b *BreakerProvider) GenerateReply(ctx context.Context, subject, sender, body string) (string, error) {
	result, err := b.reply.Execute(func() (interface{}, error) {
		return b.inner.GenerateReply(ctx, subject, sender, body)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (b *BreakerProvider) EmbedText(ctx context.Context, text string) ([]float32, error) {
	result, err := b.embed.Execute(func() (interface{}, error) {
		return b.inner.EmbedText(ctx, text)
	})
	if err != nil {
		return nil, err
	}
	return result.([]float32), nil
}
