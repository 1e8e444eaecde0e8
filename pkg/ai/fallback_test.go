package ai

import (
	"context"
	"fmt"
	"testing"
)

type stubProvider struct {
	name        string
	classifyErr error
	embedCalls  int
	classified  int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) ClassifyEmail(ctx context.Context, emailText string) (*RawClassification, error) {
	s.classified++
	if s.classifyErr != nil {
		return nil, s.classifyErr
	}
	return &RawClassification{Category: "general", Confidence: 0.9}, nil
}

func (s *stubProvider) GenerateReply(ctx context.Context, subject, sender, body string) (string, error) {
	if s.classifyErr != nil {
		return "", s.classifyErr
	}
	return "reply from " + s.name, nil
}

func (s *stubProvider) EmbedText(ctx context.Context, text string) ([]float32, error) {
	s.embedCalls++
	return []float32{1, 0}, nil
}

func TestFallbackService_WalksChainOnFailure(t *testing.T) {
	primary := &stubProvider{name: "primary", classifyErr: fmt.Errorf("429 quota exceeded")}
	secondary := &stubProvider{name: "secondary"}

	svc := NewFallbackService(primary, primary, secondary)

	result, err := svc.ClassifyEmail(context.Background(), "some email")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Category != "general" {
		t.Errorf("unexpected result: %+v", result)
	}
	if primary.classified != 1 || secondary.classified != 1 {
		t.Errorf("expected both providers tried once, got %d and %d", primary.classified, secondary.classified)
	}
}

func TestFallbackService_AllProvidersFail(t *testing.T) {
	p1 := &stubProvider{name: "p1", classifyErr: fmt.Errorf("connection refused")}
	p2 := &stubProvider{name: "p2", classifyErr: fmt.Errorf("model crashed")}

	svc := NewFallbackService(p1, p1, p2)

	_, err := svc.ClassifyEmail(context.Background(), "some email")
	if err == nil {
		t.Fatal("expected an error when every provider fails")
	}
}

func TestFallbackService_EmbedNeverFallsBack(t *testing.T) {
	// The chain provider must not receive embedding calls even when it is
	// first in the preference order; mixing embedding spaces corrupts the
	// similarity index.
	pinned := &stubProvider{name: "pinned"}
	other := &stubProvider{name: "other"}

	svc := NewFallbackService(pinned, other, pinned)

	if _, err := svc.EmbedText(context.Background(), "text"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pinned.embedCalls != 1 {
		t.Errorf("pinned provider should embed, calls = %d", pinned.embedCalls)
	}
	if other.embedCalls != 0 {
		t.Errorf("chain provider must not embed, calls = %d", other.embedCalls)
	}
}

func TestFallbackService_NoEmbedProvider(t *testing.T) {
	svc := NewFallbackService(nil, &stubProvider{name: "p1"})
	if _, err := svc.EmbedText(context.Background(), "text"); err == nil {
		t.Fatal("expected an error with no embed provider configured")
	}
}

func TestIsQuotaError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{fmt.Errorf("429 Too Many Requests"), true},
		{fmt.Errorf("quota exceeded for model"), true},
		{fmt.Errorf("rate limit hit"), true},
		{fmt.Errorf("resource exhausted"), true},
		{fmt.Errorf("invalid request"), false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := isQuotaError(tt.err); got != tt.want {
			t.Errorf("isQuotaError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{fmt.Errorf("dial tcp 127.0.0.1:11434: connection refused"), true},
		{fmt.Errorf("no such host"), true},
		{fmt.Errorf("unexpected EOF"), true},
		{fmt.Errorf("bad response format"), false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := isConnectionError(tt.err); got != tt.want {
			t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
