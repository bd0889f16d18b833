package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psrikar045/MRTFY-Backend-sub001/internal/models"
)

// stubStore returns a fixed answer, for exercising the limiter's
// degradation policy in isolation.
type stubStore struct {
	win     Window
	allowed bool
	err     error
}

func (s *stubStore) Acquire(ctx context.Context, keyHash string, tier models.RateLimitTier) (Window, bool, error) {
	return s.win, s.allowed, s.err
}

func (s *stubStore) Status(ctx context.Context, keyHash string, tier models.RateLimitTier) (Window, error) {
	return s.win, s.err
}

func (s *stubStore) SweepIdle(now time.Time) int { return 0 }

func TestLimiterPassesThroughStoreDecision(t *testing.T) {
	tier := basicTier()
	win := Window{Start: time.Now(), End: time.Now().Add(time.Hour), Count: 5}

	l := NewLimiter(&stubStore{win: win, allowed: true}, false)
	allowed, st := l.TryAcquire(context.Background(), "k", tier)
	assert.True(t, allowed)
	assert.Equal(t, int64(5), st.Current)
	assert.Equal(t, int64(95), st.Remaining())

	l = NewLimiter(&stubStore{win: win, allowed: false}, false)
	allowed, _ = l.TryAcquire(context.Background(), "k", tier)
	assert.False(t, allowed)
}

func TestLimiterDegradation(t *testing.T) {
	tier := basicTier()
	storeErr := errors.New("store down")

	t.Run("fail closed denies", func(t *testing.T) {
		l := NewLimiter(&stubStore{err: storeErr}, false)
		allowed, _ := l.TryAcquire(context.Background(), "k", tier)
		assert.False(t, allowed)
	})

	t.Run("fail open with no state admits", func(t *testing.T) {
		l := NewLimiter(&stubStore{err: storeErr}, true)
		allowed, _ := l.TryAcquire(context.Background(), "k", tier)
		assert.True(t, allowed)
	})

	t.Run("fail open still bounded by last known window", func(t *testing.T) {
		full := Window{Start: time.Now(), End: time.Now().Add(time.Hour), Count: tier.MaxRequests}
		l := NewLimiter(&stubStore{win: full, err: storeErr}, true)
		allowed, _ := l.TryAcquire(context.Background(), "k", tier)
		assert.False(t, allowed, "a full last-known window denies even when failing open")

		partial := Window{Start: time.Now(), End: time.Now().Add(time.Hour), Count: 10}
		l = NewLimiter(&stubStore{win: partial, err: storeErr}, true)
		allowed, _ = l.TryAcquire(context.Background(), "k", tier)
		assert.True(t, allowed)
	})

	t.Run("unlimited tier never denied", func(t *testing.T) {
		unlimited := models.RateLimitTier{Name: "enterprise", WindowSeconds: 3600, Unlimited: true}
		l := NewLimiter(&stubStore{err: storeErr}, true)
		allowed, st := l.TryAcquire(context.Background(), "k", unlimited)
		assert.True(t, allowed)
		assert.Equal(t, int64(-1), st.Remaining())
	})
}

func TestStatusRemaining(t *testing.T) {
	st := Status{Current: 30, Max: 100}
	assert.Equal(t, int64(70), st.Remaining())

	st = Status{Current: 120, Max: 100}
	assert.Equal(t, int64(0), st.Remaining(), "remaining never goes negative")

	st = Status{Unlimited: true, Max: -1}
	assert.Equal(t, int64(-1), st.Remaining())
}

func TestStatusRetryAfter(t *testing.T) {
	now := time.Now()

	st := Status{WindowEnd: now.Add(90 * time.Second)}
	assert.Equal(t, 90*time.Second, st.RetryAfter(now))

	st = Status{WindowEnd: now.Add(-time.Second)}
	assert.Equal(t, time.Duration(0), st.RetryAfter(now))

	require.Zero(t, Status{}.RetryAfter(now))
}
