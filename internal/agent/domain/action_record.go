package domain

import "time"

// ActionStatus is the result status of a dispatched action
type ActionStatus string

const (
	ActionStatusSuccess ActionStatus = "success"
	ActionStatusFailed  ActionStatus = "failed"
)

// ActionRecord is the idempotency record for a dispatched action.
// At most one successful record exists per (email_id, action_type) pair;
// a failed record is overwritten by the retry on the next pass.
type ActionRecord struct {
	ID         string       `json:"id" gorm:"primaryKey"`
	EmailID    string       `json:"email_id" gorm:"index:idx_email_action,unique;not null"`
	ActionType ActionType   `json:"action_type" gorm:"index:idx_email_action,unique;not null"`
	Status     ActionStatus `json:"status" gorm:"index;not null"`
	Error      string       `json:"error,omitempty" gorm:"type:text"`
	Rationale  string       `json:"rationale,omitempty" gorm:"type:text"`
	ExecutedAt time.Time    `json:"executed_at"`
}

// TableName specifies the table name for GORM
func (ActionRecord) TableName() string {
	return "action_records"
}

// PassStats summarizes one processing pass for logging and the stats API.
type PassStats struct {
	Fetched       int `json:"fetched"`
	Processed     int `json:"processed"`
	Duplicates    int `json:"duplicates"`
	Summarized    int `json:"summarized"`
	Notified      int `json:"notified"`
	AutoResponded int `json:"auto_responded"`
	HighPriority  int `json:"high_priority"`
	Errors        int `json:"errors"`
}
