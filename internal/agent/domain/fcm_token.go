package domain

import "time"

// FCMToken is a registered operator device for push notifications
type FCMToken struct {
	Token     string    `json:"token" gorm:"primaryKey"`
	Platform  string    `json:"platform"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (FCMToken) TableName() string {
	return "fcm_tokens"
}
