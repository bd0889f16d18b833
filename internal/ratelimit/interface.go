package ratelimit

import (
	"context"
	"time"

	"github.com/psrikar045/MRTFY-Backend-sub001/internal/models"
)

// Window is the counting state for one key's current fixed window.
type Window struct {
	Start time.Time
	End   time.Time
	Count int64
}

func (w Window) Zero() bool {
	return w.End.IsZero()
}

// Status reports a key's position in its current window.
type Status struct {
	Current   int64     `json:"current"`
	Max       int64     `json:"max"`
	Unlimited bool      `json:"unlimited"`
	WindowEnd time.Time `json:"window_end"`
}

// WindowStore is the counting backend behind the limiter. The in-process
// implementation serves single-node deployments; the redis implementation
// keeps counts exact across nodes. Selected by configuration.
type WindowStore interface {
	// Acquire counts one request for keyHash in its current window,
	// creating or resetting the window as needed, and reports whether the
	// request fits the tier's limit. On error the returned window is the
	// last known state for the key, possibly zero.
	Acquire(ctx context.Context, keyHash string, tier models.RateLimitTier) (Window, bool, error)

	// Status reports the current window without counting.
	Status(ctx context.Context, keyHash string, tier models.RateLimitTier) (Window, error)

	// SweepIdle drops cache entries untouched for longer than the store's
	// idle interval. Returns the number of evicted entries.
	SweepIdle(now time.Time) int
}

// WindowRepository is the persistent half of the hybrid limiter,
// implemented by repository.RateWindowRepository.
type WindowRepository interface {
	FindActive(ctx context.Context, keyHash string, now time.Time) (*models.RateWindow, error)
	Save(ctx context.Context, window *models.RateWindow) error
	Acquire(ctx context.Context, keyHash string, tier models.RateLimitTier, now time.Time) (*models.RateWindow, bool, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
