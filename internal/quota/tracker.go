package quota

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/psrikar045/MRTFY-Backend-sub001/internal/models"
)

const defaultStoreTimeout = 2 * time.Second

// UsageRepository is the persistence surface the tracker needs, implemented
// by repository.UsageRepository.
type UsageRepository interface {
	FindByKeyAndMonth(ctx context.Context, keyID uuid.UUID, monthYear string) (*models.MonthlyUsage, error)
	FindLatest(ctx context.Context, keyID uuid.UUID) (*models.MonthlyUsage, error)
	Create(ctx context.Context, usage *models.MonthlyUsage) error
	Increment(ctx context.Context, id uint, successful, overQuota bool) error
	ResetIfStale(ctx context.Context, id uint, fromMonth, toMonth string, quotaLimit, graceLimit int64, resetAt time.Time) (bool, error)
	ListStale(ctx context.Context, currentMonth string) ([]models.MonthlyUsage, error)
}

// PlanSource resolves a plan name to its quota limits, implemented by
// repository.PlanRepository.
type PlanSource interface {
	FindByName(ctx context.Context, name string) (*models.SubscriptionPlan, error)
}

// Tracker keeps the monthly call ledger per key. Rows are created lazily
// with limits derived from the subscriber's plan; a row from a prior month
// is rolled forward with one conditional update before any counter is
// touched, so two racing requests produce exactly one reset.
type Tracker struct {
	usage UsageRepository
	plans PlanSource

	// Fallback limits for keys whose plan has no stored row.
	defaultPlan models.SubscriptionPlan

	storeTimeout time.Duration
	now          func() time.Time
}

func NewTracker(usage UsageRepository, plans PlanSource, defaultPlan models.SubscriptionPlan) *Tracker {
	return &Tracker{
		usage:        usage,
		plans:        plans,
		defaultPlan:  defaultPlan,
		storeTimeout: defaultStoreTimeout,
		now:          time.Now,
	}
}

// Current returns the key's usage row for the present month, creating or
// rolling it forward as needed.
func (t *Tracker) Current(ctx context.Context, key *models.APIKey) (*models.MonthlyUsage, error) {
	ctx, cancel := context.WithTimeout(ctx, t.storeTimeout)
	defer cancel()

	now := t.now().UTC()
	month := now.Format(models.MonthYearLayout)

	usage, err := t.usage.FindByKeyAndMonth(ctx, key.ID, month)
	if err != nil {
		return nil, fmt.Errorf("find usage: %w", err)
	}
	if usage != nil {
		return usage, nil
	}

	quotaLimit, graceLimit := t.limitsFor(ctx, key.Plan)

	// A row from a prior month is reset in place rather than abandoned.
	latest, err := t.usage.FindLatest(ctx, key.ID)
	if err != nil {
		return nil, fmt.Errorf("find latest usage: %w", err)
	}
	if latest != nil && latest.NeedsReset(now) {
		reset, err := t.usage.ResetIfStale(ctx, latest.ID, latest.MonthYear, month, quotaLimit, graceLimit, firstOfMonth(now))
		if err != nil {
			return nil, fmt.Errorf("reset usage: %w", err)
		}
		if !reset {
			log.Printf("usage rollover for key %s already applied by a concurrent request", key.ID)
		}
		return t.usage.FindByKeyAndMonth(ctx, key.ID, month)
	}

	usage = &models.MonthlyUsage{
		APIKeyID:    key.ID,
		MonthYear:   month,
		UserID:      key.UserID,
		QuotaLimit:  quotaLimit,
		GraceLimit:  graceLimit,
		LastResetAt: firstOfMonth(now),
	}
	if err := t.usage.Create(ctx, usage); err != nil {
		return nil, fmt.Errorf("create usage: %w", err)
	}

	// Re-read in case a concurrent request created the row first.
	created, err := t.usage.FindByKeyAndMonth(ctx, key.ID, month)
	if err != nil {
		return nil, err
	}
	if created != nil {
		return created, nil
	}
	return usage, nil
}

// Record counts one request against the key's current month. overQuota is
// derived from the pre-increment totals so calls in the grace zone are
// flagged.
func (t *Tracker) Record(ctx context.Context, key *models.APIKey, successful bool) error {
	usage, err := t.Current(ctx, key)
	if err != nil {
		return err
	}

	overQuota := t.QuotaExceeded(usage)

	ctx, cancel := context.WithTimeout(ctx, t.storeTimeout)
	defer cancel()
	return t.usage.Increment(ctx, usage.ID, successful, overQuota)
}

// QuotaExceeded is true once total calls have reached the quota limit.
// Calls between the quota and grace limits are still admitted, flagged as
// over-quota.
func (t *Tracker) QuotaExceeded(usage *models.MonthlyUsage) bool {
	return usage.TotalCalls() >= usage.QuotaLimit
}

// GraceExceeded is true once total calls have reached the grace limit, the
// hard stop above the quota.
func (t *Tracker) GraceExceeded(usage *models.MonthlyUsage) bool {
	return usage.TotalCalls() >= usage.GraceLimit
}

// RemainingQuota reports calls left before the quota limit.
func (t *Tracker) RemainingQuota(usage *models.MonthlyUsage) int64 {
	remaining := usage.QuotaLimit - usage.TotalCalls()
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

func (t *Tracker) limitsFor(ctx context.Context, planName string) (int64, int64) {
	plan, err := t.plans.FindByName(ctx, planName)
	if err != nil || plan == nil {
		if err != nil {
			log.Printf("plan lookup failed for %q, using defaults: %v", planName, err)
		}
		return t.defaultPlan.MonthlyQuota, t.defaultPlan.GraceQuota
	}

	grace := plan.GraceQuota
	if grace < plan.MonthlyQuota {
		grace = plan.MonthlyQuota
	}
	return plan.MonthlyQuota, grace
}

func firstOfMonth(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}
