package usecase

import (
	"testing"

	"mailagent/internal/agent/domain"
)

func TestDecide(t *testing.T) {
	policy := DecisionPolicy{JobThreshold: 0.75, AutoResponseEnabled: true}

	tests := []struct {
		name    string
		verdict domain.DuplicateVerdict
		cls     *domain.Classification
		want    domain.ActionType
	}{
		{
			name:    "duplicate always skips",
			verdict: domain.DuplicateVerdict{IsDuplicate: true, MatchedID: "e1", Score: 0.95},
			cls:     &domain.Classification{Category: domain.CategoryJob, Confidence: 0.99},
			want:    domain.ActionSkip,
		},
		{
			name: "job above threshold auto-responds",
			cls:  &domain.Classification{Category: domain.CategoryJob, Confidence: 0.8},
			want: domain.ActionAutoRespond,
		},
		{
			name: "job exactly at threshold auto-responds",
			cls:  &domain.Classification{Category: domain.CategoryJob, Confidence: 0.75},
			want: domain.ActionAutoRespond,
		},
		{
			name: "job below threshold with important priority falls to summarize",
			cls:  &domain.Classification{Category: domain.CategoryJob, Confidence: 0.5},
			want: domain.ActionSummarize,
		},
		{
			name: "important notifies",
			cls:  &domain.Classification{Category: domain.CategoryImportant, Confidence: 0.9},
			want: domain.ActionNotify,
		},
		{
			name: "urgent notifies",
			cls:  &domain.Classification{Category: domain.CategoryUrgent, Confidence: 0.6},
			want: domain.ActionNotify,
		},
		{
			name: "general summarizes",
			cls:  &domain.Classification{Category: domain.CategoryGeneral, Confidence: 0.9},
			want: domain.ActionSummarize,
		},
		{
			name: "spam-like summarizes",
			cls:  &domain.Classification{Category: domain.CategorySpamLike, Confidence: 0.9},
			want: domain.ActionSummarize,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.verdict, tt.cls, policy)
			if got.Action != tt.want {
				t.Errorf("Decide() = %s, want %s", got.Action, tt.want)
			}
			if got.Rationale == "" {
				t.Error("decision should carry a rationale")
			}
		})
	}
}

func TestDecide_AutoResponseDisabled(t *testing.T) {
	policy := DecisionPolicy{JobThreshold: 0.75, AutoResponseEnabled: false}

	got := Decide(domain.DuplicateVerdict{}, &domain.Classification{Category: domain.CategoryJob, Confidence: 0.99}, policy)
	if got.Action == domain.ActionAutoRespond {
		t.Fatal("auto-respond must not fire when disabled")
	}
	if got.Action != domain.ActionSummarize {
		t.Errorf("disabled auto-response should fall through to summarize, got %s", got.Action)
	}
}

func TestDecide_DeterministicForSameInputs(t *testing.T) {
	policy := DecisionPolicy{JobThreshold: 0.75, AutoResponseEnabled: true}
	cls := &domain.Classification{Category: domain.CategoryImportant, Confidence: 0.82}

	first := Decide(domain.DuplicateVerdict{}, cls, policy)
	for i := 0; i < 10; i++ {
		again := Decide(domain.DuplicateVerdict{}, cls, policy)
		if again != first {
			t.Fatalf("same inputs produced different decisions: %+v vs %+v", first, again)
		}
	}
}
