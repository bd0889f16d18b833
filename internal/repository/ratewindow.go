package repository

import (
	"context"
	"time"

	"github.com/psrikar045/MRTFY-Backend-sub001/internal/models"
	"github.com/psrikar045/MRTFY-Backend-sub001/internal/storage"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RateWindowRepository struct {
	db *storage.Postgres
}

func NewRateWindowRepository(db *storage.Postgres) *RateWindowRepository {
	return &RateWindowRepository{db: db}
}

// FindActive returns the persisted window for keyHash if it is still valid
// at now, or nil when there is no row or the row has expired.
func (r *RateWindowRepository) FindActive(ctx context.Context, keyHash string, now time.Time) (*models.RateWindow, error) {
	var window models.RateWindow
	err := r.db.DB.WithContext(ctx).
		Where("key_hash = ? AND window_end > ?", keyHash, now).
		First(&window).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}

	return &window, err
}

// Save upserts the window row keyed by key hash, replacing any expired
// window rather than merging counts into it.
func (r *RateWindowRepository) Save(ctx context.Context, window *models.RateWindow) error {
	return r.db.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "key_hash"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"window_start", "window_end", "request_count", "updated_at",
			}),
		}).
		Create(window).Error
}

// Acquire runs the slow-path transaction: find-or-create the current
// window, re-validate the limit and increment inside one transaction. It
// returns the window state after the attempt and whether the increment was
// admitted.
func (r *RateWindowRepository) Acquire(ctx context.Context, keyHash string, tier models.RateLimitTier, now time.Time) (*models.RateWindow, bool, error) {
	var result models.RateWindow
	allowed := false

	err := r.db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var window models.RateWindow
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("key_hash = ?", keyHash).
			First(&window).Error

		if err == gorm.ErrRecordNotFound || (err == nil && window.Expired(now)) {
			window = models.RateWindow{
				KeyHash:     keyHash,
				WindowStart: now,
				WindowEnd:   now.Add(tier.Window()),
			}
		} else if err != nil {
			return err
		}

		if tier.Unlimited || window.RequestCount < tier.MaxRequests {
			window.RequestCount++
			allowed = true
		}

		window.UpdatedAt = now
		result = window

		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "key_hash"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"window_start", "window_end", "request_count", "updated_at",
			}),
		}).Create(&window).Error
	})

	if err != nil {
		return nil, false, err
	}

	return &result, allowed, nil
}

// DeleteOlderThan removes window rows whose window ended before the cutoff.
func (r *RateWindowRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.DB.WithContext(ctx).
		Where("window_end < ?", cutoff).
		Delete(&models.RateWindow{})

	return res.RowsAffected, res.Error
}
