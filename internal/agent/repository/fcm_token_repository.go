package repository

import (
	"time"

	"gorm.io/gorm"

	"mailagent/internal/agent/domain"
)

// FCMTokenRepository stores operator device tokens for push notifications
type FCMTokenRepository interface {
	Save(token, platform string) error
	GetAll() ([]domain.FCMToken, error)
	Delete(token string) error
}

type fcmTokenRepository struct {
	db *gorm.DB
}

func NewFCMTokenRepository(db *gorm.DB) FCMTokenRepository {
	return &fcmTokenRepository{db: db}
}

func (r *fcmTokenRepository) Save(token, platform string) error {
	record := domain.FCMToken{
		Token:     token,
		Platform:  platform,
		CreatedAt: time.Now(),
	}
	// Same token re-registered is a no-op update
	return r.db.Save(&record).Error
}

func (r *fcmTokenRepository) GetAll() ([]domain.FCMToken, error) {
	var tokens []domain.FCMToken
	err := r.db.Find(&tokens).Error
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

func (r *fcmTokenRepository) Delete(token string) error {
	return r.db.Where("token = ?", token).Delete(&domain.FCMToken{}).Error
}
