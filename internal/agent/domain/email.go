package domain

import "time"

// ProcessingState tracks an email through one processing pass
type ProcessingState string

const (
	StateUnprocessed ProcessingState = "unprocessed"
	StateEmbedded    ProcessingState = "embedded"
	StateClassified  ProcessingState = "classified"
	StateActioned    ProcessingState = "actioned"
)

// EmailRecord is the unit of work for one processing pass.
// It is created when the email is fetched and discarded after the pass;
// only the index entry and action records persist across passes.
type EmailRecord struct {
	ID      string
	Subject string
	Sender  string
	Body    string
	Date    time.Time
	State   ProcessingState
}

// Category is the closed set of categories the pipeline acts on.
// External classifier labels are normalized into this set at the adapter
// boundary; anything unrecognized becomes CategoryGeneral.
type Category string

const (
	CategoryImportant Category = "important"
	CategoryUrgent    Category = "urgent"
	CategoryJob       Category = "job"
	CategoryGeneral   Category = "general"
	CategorySpamLike  Category = "spam_like"
)

// categoryAliases maps raw labels from external classifiers (Gemini, Ollama,
// OpenAI all use slightly different vocabularies) to the closed enum.
var categoryAliases = map[string]Category{
	"important":   CategoryImportant,
	"critical":    CategoryImportant,
	"urgent":      CategoryUrgent,
	"job":         CategoryJob,
	"job_related": CategoryJob,
	"job-related": CategoryJob,
	"career":      CategoryJob,
	"recruiting":  CategoryJob,
	"general":     CategoryGeneral,
	"spam":        CategorySpamLike,
	"spam_like":   CategorySpamLike,
	"spam-like":   CategorySpamLike,
	"promotional": CategorySpamLike,
	"marketing":   CategorySpamLike,
}

// NormalizeCategory maps a raw external label to the closed enum.
// Returns false when the label was not recognized and CategoryGeneral was
// used as the fallback.
func NormalizeCategory(raw string) (Category, bool) {
	if c, ok := categoryAliases[normalizeLabel(raw)]; ok {
		return c, true
	}
	return CategoryGeneral, false
}

func normalizeLabel(raw string) string {
	out := make([]rune, 0, len(raw))
	for _, r := range raw {
		switch {
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		case r == ' ' || r == '\t' || r == '\n':
			// trim, classifiers like to pad their answers
			if len(out) == 0 {
				continue
			}
			out = append(out, r)
		default:
			out = append(out, r)
		}
	}
	// trailing whitespace
	for len(out) > 0 && (out[len(out)-1] == ' ' || out[len(out)-1] == '\t' || out[len(out)-1] == '\n') {
		out = out[:len(out)-1]
	}
	return string(out)
}

// Priority of an email as judged by the classifier
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Classification is the normalized output of the classifier adapter.
// May be cached per message id.
type Classification struct {
	Category         Category `json:"category"`
	Confidence       float64  `json:"confidence"`
	Summary          string   `json:"summary"`
	Priority         Priority `json:"priority"`
	ActionItems      []string `json:"action_items,omitempty"`
	Deadlines        []string `json:"deadlines,omitempty"`
	KeyPoints        []string `json:"key_points,omitempty"`
	RequiresResponse bool     `json:"requires_response"`
	Sentiment        string   `json:"sentiment,omitempty"`
}
