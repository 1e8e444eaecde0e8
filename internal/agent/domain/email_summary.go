package domain

import "time"

// EmailSummary caches the AI analysis of an email per message id so
// reprocessing and the digest never pay for a second classification call.
type EmailSummary struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	EmailID   string    `json:"email_id" gorm:"uniqueIndex;not null"`
	Subject   string    `json:"subject"`
	Sender    string    `json:"sender"`
	Category  Category  `json:"category" gorm:"index"`
	Priority  Priority  `json:"priority"`
	Summary   string    `json:"summary" gorm:"type:text"`
	Details   string    `json:"details,omitempty" gorm:"type:text"` // JSON-encoded Classification
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (EmailSummary) TableName() string {
	return "email_summaries"
}
