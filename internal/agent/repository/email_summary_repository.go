package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"mailagent/internal/agent/domain"
)

// EmailSummaryRepository caches AI analyses per message id
type EmailSummaryRepository interface {
	// GetSummary retrieves the cached summary for an email, nil when absent
	GetSummary(emailID string) (*domain.EmailSummary, error)
	// SaveSummary saves or updates the summary for an email
	SaveSummary(summary *domain.EmailSummary) error
	// ListRecent returns the newest summaries, most recent first
	ListRecent(limit int) ([]domain.EmailSummary, error)
}

type emailSummaryRepository struct {
	db *gorm.DB
}

func NewEmailSummaryRepository(db *gorm.DB) EmailSummaryRepository {
	return &emailSummaryRepository{db: db}
}

func (r *emailSummaryRepository) GetSummary(emailID string) (*domain.EmailSummary, error) {
	var summary domain.EmailSummary
	err := r.db.Where("email_id = ?", emailID).First(&summary).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &summary, nil
}

func (r *emailSummaryRepository) SaveSummary(summary *domain.EmailSummary) error {
	var existing domain.EmailSummary
	err := r.db.Where("email_id = ?", summary.EmailID).First(&existing).Error

	if err == gorm.ErrRecordNotFound {
		if summary.ID == "" {
			summary.ID = uuid.New().String()
		}
		if summary.CreatedAt.IsZero() {
			summary.CreatedAt = time.Now()
		}
		return r.db.Create(summary).Error
	} else if err != nil {
		return err
	}

	existing.Subject = summary.Subject
	existing.Sender = summary.Sender
	existing.Category = summary.Category
	existing.Priority = summary.Priority
	existing.Summary = summary.Summary
	existing.Details = summary.Details
	return r.db.Save(&existing).Error
}

func (r *emailSummaryRepository) ListRecent(limit int) ([]domain.EmailSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	var summaries []domain.EmailSummary
	err := r.db.Order("created_at DESC").Limit(limit).Find(&summaries).Error
	if err != nil {
		return nil, err
	}
	return summaries, nil
}
