package ratelimit

import (
	"context"
	"log"
	"time"

	"github.com/psrikar045/MRTFY-Backend-sub001/internal/metrics"
	"github.com/psrikar045/MRTFY-Backend-sub001/internal/models"
	"golang.org/x/time/rate"
)

// Limiter is the admission-facing rate limiter. It delegates counting to a
// WindowStore and owns the degradation policy: when the store fails, the
// decision falls back to the last known in-memory state under the
// configured fail-open flag, the event is counted, and the alert log is
// throttled so a prolonged outage stays visible without flooding.
type Limiter struct {
	store    WindowStore
	failOpen bool
	alert    *rate.Limiter
}

func NewLimiter(store WindowStore, failOpen bool) *Limiter {
	return &Limiter{
		store:    store,
		failOpen: failOpen,
		alert:    rate.NewLimiter(rate.Every(30*time.Second), 1),
	}
}

// TryAcquire counts one request against the key's window and reports
// whether it is admitted, along with the window status after the attempt.
func (l *Limiter) TryAcquire(ctx context.Context, keyHash string, tier models.RateLimitTier) (bool, Status) {
	win, allowed, err := l.store.Acquire(ctx, keyHash, tier)
	if err != nil {
		allowed = l.degrade(win, tier, err)
	}

	return allowed, l.status(win, tier)
}

// Status reports the key's current window without consuming a request.
func (l *Limiter) Status(ctx context.Context, keyHash string, tier models.RateLimitTier) Status {
	win, err := l.store.Status(ctx, keyHash, tier)
	if err != nil && l.alert.Allow() {
		log.Printf("rate limit status degraded for %s: %v", keyHash, err)
	}

	return l.status(win, tier)
}

// degrade decides an acquire that could not reach the store. With
// fail-open, the last known window state still bounds the answer when we
// have one; with no state at all the request is admitted. Fail-closed
// denies outright.
func (l *Limiter) degrade(lastKnown Window, tier models.RateLimitTier, err error) bool {
	metrics.StoreDegradations.WithLabelValues("ratelimit").Inc()
	if l.alert.Allow() {
		log.Printf("rate limit store degraded, policy fail_open=%v: %v", l.failOpen, err)
	}

	if !l.failOpen {
		return false
	}
	if tier.Unlimited || lastKnown.Zero() {
		return true
	}

	return lastKnown.Count < tier.MaxRequests
}

func (l *Limiter) status(win Window, tier models.RateLimitTier) Status {
	st := Status{
		Current:   win.Count,
		Max:       tier.MaxRequests,
		Unlimited: tier.Unlimited,
		WindowEnd: win.End,
	}
	if tier.Unlimited {
		st.Max = -1
	}
	return st
}

// Remaining reports how many requests the status still admits, -1 for
// unlimited tiers.
func (s Status) Remaining() int64 {
	if s.Unlimited {
		return -1
	}
	remaining := s.Max - s.Current
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// RetryAfter reports how long until the window resets, zero when the
// status has no active window.
func (s Status) RetryAfter(now time.Time) time.Duration {
	if s.WindowEnd.IsZero() || !s.WindowEnd.After(now) {
		return 0
	}
	return s.WindowEnd.Sub(now)
}
