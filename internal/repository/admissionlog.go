package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/psrikar045/MRTFY-Backend-sub001/internal/models"
	"github.com/psrikar045/MRTFY-Backend-sub001/internal/storage"
)

type AdmissionLogRepository struct {
	db *storage.Postgres
}

func NewAdmissionLogRepository(db *storage.Postgres) *AdmissionLogRepository {
	return &AdmissionLogRepository{db: db}
}

// CreateBatch inserts a batch of decision records.
func (r *AdmissionLogRepository) CreateBatch(ctx context.Context, logs []models.AdmissionLog) error {
	if len(logs) == 0 {
		return nil
	}

	return r.db.DB.WithContext(ctx).Create(&logs).Error
}

func (r *AdmissionLogRepository) CountByTimeRange(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.DB.WithContext(ctx).
		Model(&models.AdmissionLog{}).
		Where("timestamp BETWEEN ? AND ?", from, to).
		Count(&count).Error

	return count, err
}

// ReasonCount is one row of the denials-by-reason aggregate.
type ReasonCount struct {
	ReasonCode string `json:"reason_code"`
	Count      int64  `json:"count"`
}

func (r *AdmissionLogRepository) CountByReason(ctx context.Context, from, to time.Time) ([]ReasonCount, error) {
	var rows []ReasonCount
	err := r.db.DB.WithContext(ctx).
		Model(&models.AdmissionLog{}).
		Select("reason_code, COUNT(*) as count").
		Where("timestamp BETWEEN ? AND ?", from, to).
		Group("reason_code").
		Order("count DESC").
		Scan(&rows).Error

	return rows, err
}

// KeyCount is one row of the requests-by-key aggregate.
type KeyCount struct {
	APIKeyID *uuid.UUID `json:"api_key_id"`
	Count    int64      `json:"count"`
}

func (r *AdmissionLogRepository) TopKeys(ctx context.Context, from, to time.Time, limit int) ([]KeyCount, error) {
	var rows []KeyCount
	err := r.db.DB.WithContext(ctx).
		Model(&models.AdmissionLog{}).
		Select("api_key_id, COUNT(*) as count").
		Where("timestamp BETWEEN ? AND ? AND api_key_id IS NOT NULL", from, to).
		Group("api_key_id").
		Order("count DESC").
		Limit(limit).
		Scan(&rows).Error

	return rows, err
}

func (r *AdmissionLogRepository) FindByAPIKey(ctx context.Context, apiKeyID uuid.UUID, from, to time.Time, limit, offset int) ([]models.AdmissionLog, error) {
	var logs []models.AdmissionLog
	err := r.db.DB.WithContext(ctx).
		Where("api_key_id = ? AND timestamp BETWEEN ? AND ?", apiKeyID, from, to).
		Order("timestamp DESC").
		Limit(limit).
		Offset(offset).
		Find(&logs).Error

	return logs, err
}

func (r *AdmissionLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.DB.WithContext(ctx).
		Where("timestamp < ?", cutoff).
		Delete(&models.AdmissionLog{})

	return res.RowsAffected, res.Error
}
