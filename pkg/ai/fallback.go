package ai

import (
	"context"
	"fmt"
	"log"
	"net"
	"strings"
)

// FallbackService implements smart AI provider routing with fallback:
// classification and reply generation walk the provider chain in order,
// skipping providers that fail and retrying the first one on quota errors.
//
// Embeddings do NOT fall back across providers: vectors from different
// embedding models live in different spaces, and mixing them inside one
// similarity index makes every distance meaningless. EmbedText always goes
// to the designated embed provider.
type FallbackService struct {
	chain []Provider
	embed Provider
}

// NewFallbackService creates a fallback service. chain is the preference
// order for classify/reply; embed is the single provider used for embeddings.
func NewFallbackService(embed Provider, chain ...Provider) *FallbackService {
	return &FallbackService{
		chain: chain,
		embed: embed,
	}
}

func (f *FallbackService) Name() string { return string(ProviderAuto) }

// isConnectionError checks if the error is a network/connection error
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}

	if _, ok := err.(net.Error); ok {
		return true
	}

	errStr := strings.ToLower(err.Error())
	connectionIndicators := []string{
		"connection refused",
		"no such host",
		"network is unreachable",
		"connection reset",
		"timeout",
		"dial tcp",
		"eof",
	}

	for _, indicator := range connectionIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}

	return false
}

// isQuotaError checks if the error indicates API quota exhaustion (429)
func isQuotaError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	quotaIndicators := []string{
		"429",
		"quota",
		"rate limit",
		"too many requests",
		"resource exhausted",
	}

	for _, indicator := range quotaIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}

	return false
}

// ClassifyEmail walks the provider chain until one succeeds
func (f *FallbackService) ClassifyEmail(ctx context.Context, emailText string) (*RawClassification, error) {
	var lastErr error
	for _, p := range f.chain {
		result, err := p.ClassifyEmail(ctx, emailText)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if isQuotaError(err) {
			log.Printf("[AI] %s quota exhausted: %v, trying next provider", p.Name(), err)
		} else if isConnectionError(err) {
			log.Printf("[AI] %s unreachable: %v, trying next provider", p.Name(), err)
		} else {
			log.Printf("[AI] %s classification error: %v, trying next provider", p.Name(), err)
		}
		if ctx.Err() != nil {
			// The shared deadline is gone, walking further providers is pointless
			return nil, ctx.Err()
		}
	}
	if lastErr == nil {
		return nil, fmt.Errorf("no AI provider available for classification")
	}
	return nil, fmt.Errorf("all providers failed for classification: %w", lastErr)
}

// GenerateReply walks the provider chain until one succeeds
func (f *FallbackService) GenerateReply(ctx context.Context, subject, sender, body string) (string, error) {
	var lastErr error
	for _, p := range f.chain {
		result, err := p.GenerateReply(ctx, subject, sender, body)
		if err == nil {
			return result, nil
		}
		lastErr = err
		log.Printf("[AI] %s reply generation error: %v, trying next provider", p.Name(), err)
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	if lastErr == nil {
		return "", fmt.Errorf("no AI provider available for reply generation")
	}
	return "", fmt.Errorf("all providers failed for reply generation: %w", lastErr)
}

// EmbedText delegates to the pinned embed provider only
func (f *FallbackService) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if f.embed == nil {
		return nil, fmt.Errorf("no embedding provider configured")
	}
	return f.embed.EmbedText(ctx, text)
}
