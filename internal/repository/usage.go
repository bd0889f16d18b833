package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/psrikar045/MRTFY-Backend-sub001/internal/models"
	"github.com/psrikar045/MRTFY-Backend-sub001/internal/storage"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UsageRepository struct {
	db *storage.Postgres
}

func NewUsageRepository(db *storage.Postgres) *UsageRepository {
	return &UsageRepository{db: db}
}

func (r *UsageRepository) FindByKeyAndMonth(ctx context.Context, keyID uuid.UUID, monthYear string) (*models.MonthlyUsage, error) {
	var usage models.MonthlyUsage
	err := r.db.DB.WithContext(ctx).
		Where("api_key_id = ? AND month_year = ?", keyID, monthYear).
		First(&usage).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}

	return &usage, err
}

// FindLatest returns the most recent usage row for the key regardless of
// month, so a stale row can be rolled over in place.
func (r *UsageRepository) FindLatest(ctx context.Context, keyID uuid.UUID) (*models.MonthlyUsage, error) {
	var usage models.MonthlyUsage
	err := r.db.DB.WithContext(ctx).
		Where("api_key_id = ?", keyID).
		Order("month_year DESC").
		First(&usage).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}

	return &usage, err
}

func (r *UsageRepository) Create(ctx context.Context, usage *models.MonthlyUsage) error {
	return r.db.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(usage).Error
}

func (r *UsageRepository) Save(ctx context.Context, usage *models.MonthlyUsage) error {
	return r.db.DB.WithContext(ctx).Save(usage).Error
}

// Increment atomically bumps one call counter on the row. overQuota also
// bumps the quota-exceeded counter.
func (r *UsageRepository) Increment(ctx context.Context, id uint, successful, overQuota bool) error {
	column := "failed_calls"
	if successful {
		column = "successful_calls"
	}

	updates := map[string]interface{}{
		column:       gorm.Expr(column+" + ?", 1),
		"updated_at": time.Now().UTC(),
	}
	if overQuota {
		updates["quota_exceeded_calls"] = gorm.Expr("quota_exceeded_calls + ?", 1)
	}

	return r.db.DB.WithContext(ctx).
		Model(&models.MonthlyUsage{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// ResetIfStale rolls a row forward to the given month with a single
// conditional update, so two requests racing on the same stale row produce
// exactly one reset. The caller re-reads the row when no rows matched.
func (r *UsageRepository) ResetIfStale(ctx context.Context, id uint, fromMonth, toMonth string, quotaLimit, graceLimit int64, resetAt time.Time) (bool, error) {
	res := r.db.DB.WithContext(ctx).
		Model(&models.MonthlyUsage{}).
		Where("id = ? AND month_year = ?", id, fromMonth).
		Updates(map[string]interface{}{
			"month_year":           toMonth,
			"quota_limit":          quotaLimit,
			"grace_limit":          graceLimit,
			"successful_calls":     0,
			"failed_calls":         0,
			"quota_exceeded_calls": 0,
			"last_reset_at":        resetAt,
			"updated_at":           resetAt,
		})

	return res.RowsAffected > 0, res.Error
}

// ListStale returns usage rows dated before the given month, for the
// scheduled rollover job.
func (r *UsageRepository) ListStale(ctx context.Context, currentMonth string) ([]models.MonthlyUsage, error) {
	var rows []models.MonthlyUsage
	err := r.db.DB.WithContext(ctx).
		Where("month_year < ?", currentMonth).
		Find(&rows).Error

	return rows, err
}
