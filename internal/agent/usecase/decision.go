package usecase

import (
	"fmt"

	"mailagent/internal/agent/domain"
)

// DecisionPolicy holds the thresholds the decision engine evaluates against.
// A policy plus identical inputs always yields the identical decision.
type DecisionPolicy struct {
	// JobThreshold is the minimum classification confidence for an
	// auto-response to a job email.
	JobThreshold float64
	// AutoResponseEnabled gates the auto-respond rule entirely; when false,
	// job emails fall through to notify/summarize.
	AutoResponseEnabled bool
}

// Decide maps a duplicate verdict and a classification to an action.
// Rules are evaluated in order, first match wins:
//
//  1. duplicate                        -> skip
//  2. job with confidence >= threshold -> auto-respond
//  3. important or urgent              -> notify
//  4. anything else                    -> summarize
//
// Duplicate suppression deliberately dominates everything else: acting on a
// duplicate (a double auto-reply in the worst case) is the costliest failure
// mode this pipeline has.
func Decide(verdict domain.DuplicateVerdict, cls *domain.Classification, policy DecisionPolicy) domain.Decision {
	if verdict.IsDuplicate {
		return domain.Decision{
			Action:    domain.ActionSkip,
			Rationale: fmt.Sprintf("duplicate of %s (similarity %.2f)", verdict.MatchedID, verdict.Score),
		}
	}

	if policy.AutoResponseEnabled && cls.Category == domain.CategoryJob && cls.Confidence >= policy.JobThreshold {
		return domain.Decision{
			Action:    domain.ActionAutoRespond,
			Rationale: fmt.Sprintf("job email with confidence %.2f >= %.2f", cls.Confidence, policy.JobThreshold),
		}
	}

	if cls.Category == domain.CategoryImportant || cls.Category == domain.CategoryUrgent {
		return domain.Decision{
			Action:    domain.ActionNotify,
			Rationale: fmt.Sprintf("category %s", cls.Category),
		}
	}

	return domain.Decision{
		Action:    domain.ActionSummarize,
		Rationale: fmt.Sprintf("category %s, no notification rule matched", cls.Category),
	}
}
