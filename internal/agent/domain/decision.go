package domain

// ActionType is what the decision engine decided to do with an email
type ActionType string

const (
	ActionSkip        ActionType = "skip"
	ActionSummarize   ActionType = "summarize"
	ActionNotify      ActionType = "notify"
	ActionAutoRespond ActionType = "auto_respond"
)

// Decision is a deterministic function of (DuplicateVerdict, Classification).
type Decision struct {
	Action    ActionType `json:"action"`
	Rationale string     `json:"rationale"`
}

// SideEffecting reports whether executing this action touches the outside
// world and therefore needs an idempotency record before running.
func (a ActionType) SideEffecting() bool {
	return a == ActionNotify || a == ActionAutoRespond
}
