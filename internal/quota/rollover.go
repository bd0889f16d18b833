package quota

import (
	"context"
	"log"
	"time"

	"github.com/psrikar045/MRTFY-Backend-sub001/internal/models"
)

// KeySource looks up the credential owning a usage row, implemented by
// repository.APIKeyRepository.
type KeySource interface {
	FindByID(ctx context.Context, id string) (*models.APIKey, error)
}

// RolloverStale advances every usage row dated before the current month.
// It runs as a scheduled job ahead of request traffic and is idempotent:
// rows a concurrent request already rolled forward no longer match the
// conditional update and are skipped.
func (t *Tracker) RolloverStale(ctx context.Context, keys KeySource) (int, error) {
	now := t.now().UTC()
	month := now.Format(models.MonthYearLayout)

	stale, err := t.usage.ListStale(ctx, month)
	if err != nil {
		return 0, err
	}

	rolled := 0
	for _, row := range stale {
		quotaLimit, graceLimit := t.defaultPlan.MonthlyQuota, t.defaultPlan.GraceQuota
		if key, err := keys.FindByID(ctx, row.APIKeyID.String()); err == nil && key != nil {
			quotaLimit, graceLimit = t.limitsFor(ctx, key.Plan)
		}

		reset, err := t.usage.ResetIfStale(ctx, row.ID, row.MonthYear, month, quotaLimit, graceLimit, firstOfMonth(now))
		if err != nil {
			log.Printf("scheduled rollover failed for key %s: %v", row.APIKeyID, err)
			continue
		}
		if reset {
			rolled++
		}
	}

	return rolled, nil
}

// SetClock overrides the tracker's time source. Used by tests and by the
// scheduler when replaying a missed rollover.
func (t *Tracker) SetClock(now func() time.Time) {
	if now != nil {
		t.now = now
	}
}
