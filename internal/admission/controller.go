package admission

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/psrikar045/MRTFY-Backend-sub001/internal/accesspolicy"
	"github.com/psrikar045/MRTFY-Backend-sub001/internal/metrics"
	"github.com/psrikar045/MRTFY-Backend-sub001/internal/models"
	"github.com/psrikar045/MRTFY-Backend-sub001/internal/ratelimit"
	"github.com/psrikar045/MRTFY-Backend-sub001/internal/service"
	"golang.org/x/time/rate"
)

// KeyResolver authenticates raw keys, implemented by service.APIKeyService.
type KeyResolver interface {
	Resolve(ctx context.Context, rawKey string) (*models.APIKey, error)
	TouchLastUsed(keyID uuid.UUID)
}

// PolicyEvaluator checks request origin, implemented by
// accesspolicy.Evaluator.
type PolicyEvaluator interface {
	Evaluate(key *models.APIKey, requestDomain, clientIP string) accesspolicy.Decision
}

// RateLimiter throttles per-key traffic, implemented by ratelimit.Limiter.
type RateLimiter interface {
	TryAcquire(ctx context.Context, keyHash string, tier models.RateLimitTier) (bool, ratelimit.Status)
}

// UsageTracker keeps monthly call counts, implemented by quota.Tracker.
type UsageTracker interface {
	Current(ctx context.Context, key *models.APIKey) (*models.MonthlyUsage, error)
	Record(ctx context.Context, key *models.APIKey, successful bool) error
	QuotaExceeded(usage *models.MonthlyUsage) bool
	GraceExceeded(usage *models.MonthlyUsage) bool
	RemainingQuota(usage *models.MonthlyUsage) int64
}

// TierSource resolves a tier name to its rate-limit profile.
type TierSource interface {
	TierFor(name string) models.RateLimitTier
}

// Config holds the controller's degradation policy.
type Config struct {
	// QuotaFailOpen admits requests when quota state cannot be read.
	// Authentication never fails open; without a resolved credential
	// there is nothing to admit.
	QuotaFailOpen bool
}

// Controller runs the admission pipeline: AUTHENTICATE → QUOTA_PRECHECK →
// ACCESS_POLICY → RATE_LIMIT → ALLOWED, terminal on the first failure.
type Controller struct {
	resolver KeyResolver
	policy   PolicyEvaluator
	limiter  RateLimiter
	quota    UsageTracker
	tiers    TierSource
	cfg      Config

	alert *rate.Limiter
	now   func() time.Time
}

func NewController(resolver KeyResolver, policy PolicyEvaluator, limiter RateLimiter, quota UsageTracker, tiers TierSource, cfg Config) *Controller {
	return &Controller{
		resolver: resolver,
		policy:   policy,
		limiter:  limiter,
		quota:    quota,
		tiers:    tiers,
		cfg:      cfg,
		alert:    rate.NewLimiter(rate.Every(30*time.Second), 1),
		now:      time.Now,
	}
}

// Admit runs one request through the pipeline and returns its decision.
func (c *Controller) Admit(ctx context.Context, req Request) Result {
	// AUTHENTICATE
	key, err := c.resolver.Resolve(ctx, req.RawKey)
	if err != nil {
		return c.finish(c.denyAuth(err))
	}

	// QUOTA_PRECHECK
	remainingQuota := Unbounded
	overQuota := false
	usage, err := c.quota.Current(ctx, key)
	switch {
	case err != nil:
		metrics.StoreDegradations.WithLabelValues("quota").Inc()
		if c.alert.Allow() {
			log.Printf("quota state unavailable for key %s, fail_open=%v: %v", key.ID, c.cfg.QuotaFailOpen, err)
		}
		if !c.cfg.QuotaFailOpen {
			return c.finish(Result{
				Reason:             ReasonQuotaExceeded,
				Detail:             "monthly quota state is unavailable",
				RemainingRateLimit: Unbounded,
				Key:                key,
			})
		}
	case c.quota.GraceExceeded(usage):
		c.recordAsync(key, false)
		return c.finish(Result{
			Reason: ReasonQuotaExceeded,
			Detail: fmt.Sprintf("monthly quota exhausted: %d of %d calls used (grace limit %d)",
				usage.TotalCalls(), usage.QuotaLimit, usage.GraceLimit),
			RemainingQuota:     0,
			RemainingRateLimit: Unbounded,
			Key:                key,
		})
	default:
		remainingQuota = c.quota.RemainingQuota(usage)
		overQuota = c.quota.QuotaExceeded(usage)
	}

	// ACCESS_POLICY
	decision := c.policy.Evaluate(key, req.Domain, req.ClientIP)
	if !decision.Allowed {
		c.recordAsync(key, false)
		reason := ReasonDomain
		if decision.Reason == accesspolicy.ReasonIPNotAuthorized {
			reason = ReasonIP
		}
		return c.finish(Result{
			Reason:             reason,
			Detail:             decision.Detail,
			RemainingQuota:     remainingQuota,
			RemainingRateLimit: Unbounded,
			Key:                key,
		})
	}
	if decision.Warning != "" {
		log.Printf("access policy warning: %s", decision.Warning)
	}

	// RATE_LIMIT
	tier := c.tiers.TierFor(key.Tier)
	allowed, status := c.limiter.TryAcquire(ctx, key.KeyHash, tier)
	if !allowed {
		c.recordAsync(key, false)
		return c.finish(Result{
			Reason: ReasonRateLimited,
			Detail: fmt.Sprintf("rate limit exhausted: %d of %d requests in the current window",
				status.Current, status.Max),
			RemainingQuota:     remainingQuota,
			RemainingRateLimit: 0,
			RetryAfter:         status.RetryAfter(c.now()),
			Key:                key,
		})
	}
	if tier.Unlimited {
		metrics.UnlimitedRequests.Inc()
	}

	// ALLOWED: remaining side effects run fire-and-forget.
	c.resolver.TouchLastUsed(key.ID)
	c.recordAsync(key, true)

	return c.finish(Result{
		Allowed:            true,
		Reason:             ReasonAllowed,
		RemainingQuota:     remainingQuota,
		RemainingRateLimit: status.Remaining(),
		OverQuota:          overQuota,
		Key:                key,
	})
}

// denyAuth maps resolver errors onto authentication reason codes. Lookup
// precedence in the resolver keeps these stable.
func (c *Controller) denyAuth(err error) Result {
	reason := ReasonInvalidKey
	switch {
	case errors.Is(err, service.ErrKeyExpired):
		reason = ReasonExpired
	case errors.Is(err, service.ErrKeyRevoked):
		reason = ReasonRevoked
	case errors.Is(err, service.ErrKeyInvalidFormat),
		errors.Is(err, service.ErrKeyNotFound),
		errors.Is(err, service.ErrKeyInactive):
		// All collapse onto the invalid-key code for callers.
	default:
		// Store failure during lookup: nothing to admit without a
		// resolved credential, so authentication fails closed.
		metrics.StoreDegradations.WithLabelValues("resolver").Inc()
		if c.alert.Allow() {
			log.Printf("key resolution degraded: %v", err)
		}
	}

	return Result{
		Reason:             reason,
		Detail:             err.Error(),
		RemainingQuota:     Unbounded,
		RemainingRateLimit: Unbounded,
	}
}

// recordAsync triggers usage bookkeeping without blocking the decision.
func (c *Controller) recordAsync(key *models.APIKey, successful bool) {
	go func() {
		if err := c.quota.Record(context.Background(), key, successful); err != nil {
			metrics.StoreDegradations.WithLabelValues("quota").Inc()
			if c.alert.Allow() {
				log.Printf("usage recording failed for key %s: %v", key.ID, err)
			}
		}
	}()
}

func (c *Controller) finish(r Result) Result {
	metrics.AdmissionDecisions.WithLabelValues(string(r.Reason)).Inc()
	return r
}
