package repository

import (
	"context"

	"github.com/psrikar045/MRTFY-Backend-sub001/internal/models"
	"github.com/psrikar045/MRTFY-Backend-sub001/internal/storage"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PlanRepository struct {
	db *storage.Postgres
}

func NewPlanRepository(db *storage.Postgres) *PlanRepository {
	return &PlanRepository{db: db}
}

func (r *PlanRepository) FindByName(ctx context.Context, name string) (*models.SubscriptionPlan, error) {
	var plan models.SubscriptionPlan
	err := r.db.DB.WithContext(ctx).
		Where("name = ?", name).
		First(&plan).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}

	return &plan, err
}

func (r *PlanRepository) List(ctx context.Context) ([]models.SubscriptionPlan, error) {
	var plans []models.SubscriptionPlan
	err := r.db.DB.WithContext(ctx).Order("name").Find(&plans).Error
	return plans, err
}

// Seed upserts the configured plans at startup so lookups never miss for
// a configured plan name.
func (r *PlanRepository) Seed(ctx context.Context, plans []models.SubscriptionPlan) error {
	if len(plans) == 0 {
		return nil
	}

	return r.db.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"monthly_quota", "grace_quota", "rate_tier"}),
		}).
		Create(&plans).Error
}
