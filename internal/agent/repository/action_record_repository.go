package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"mailagent/internal/agent/domain"
)

// ActionRecordRepository is the idempotency-record store the dispatcher
// checks before any side-effecting action, and the reporting layer
// enumerates for statistics.
type ActionRecordRepository interface {
	// Get returns the record for (emailID, action), or nil when absent
	Get(emailID string, action domain.ActionType) (*domain.ActionRecord, error)
	// Record creates or replaces the record for its (emailID, action) pair
	Record(record *domain.ActionRecord) error
	// ListRecent returns the newest records, most recent first
	ListRecent(limit int) ([]domain.ActionRecord, error)
	// CountSince counts records of the given action type executed at or
	// after the given time
	CountSince(action domain.ActionType, since time.Time) (int64, error)
	// CountByStatusSince counts records with the given status executed at or
	// after the given time
	CountByStatusSince(status domain.ActionStatus, since time.Time) (int64, error)
}

type actionRecordRepository struct {
	db *gorm.DB
}

func NewActionRecordRepository(db *gorm.DB) ActionRecordRepository {
	return &actionRecordRepository{db: db}
}

func (r *actionRecordRepository) Get(emailID string, action domain.ActionType) (*domain.ActionRecord, error) {
	var record domain.ActionRecord
	err := r.db.Where("email_id = ? AND action_type = ?", emailID, action).First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *actionRecordRepository) Record(record *domain.ActionRecord) error {
	var existing domain.ActionRecord
	err := r.db.Where("email_id = ? AND action_type = ?", record.EmailID, record.ActionType).First(&existing).Error

	if err == gorm.ErrRecordNotFound {
		if record.ID == "" {
			record.ID = uuid.New().String()
		}
		if record.ExecutedAt.IsZero() {
			record.ExecutedAt = time.Now()
		}
		return r.db.Create(record).Error
	} else if err != nil {
		return err
	}

	existing.Status = record.Status
	existing.Error = record.Error
	existing.Rationale = record.Rationale
	existing.ExecutedAt = time.Now()
	return r.db.Save(&existing).Error
}

func (r *actionRecordRepository) ListRecent(limit int) ([]domain.ActionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []domain.ActionRecord
	err := r.db.Order("executed_at DESC").Limit(limit).Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *actionRecordRepository) CountSince(action domain.ActionType, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&domain.ActionRecord{}).
		Where("action_type = ? AND executed_at >= ?", action, since).
		Count(&count).Error
	return count, err
}

func (r *actionRecordRepository) CountByStatusSince(status domain.ActionStatus, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&domain.ActionRecord{}).
		Where("status = ? AND executed_at >= ?", status, since).
		Count(&count).Error
	return count, err
}
