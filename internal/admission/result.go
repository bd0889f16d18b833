package admission

import (
	"time"

	"github.com/psrikar045/MRTFY-Backend-sub001/internal/models"
)

// ReasonCode is the machine-readable outcome of an admission decision.
type ReasonCode string

const (
	ReasonAllowed       ReasonCode = "ALLOWED"
	ReasonInvalidKey    ReasonCode = "DENIED_INVALID_KEY"
	ReasonExpired       ReasonCode = "DENIED_EXPIRED"
	ReasonRevoked       ReasonCode = "DENIED_REVOKED"
	ReasonQuotaExceeded ReasonCode = "DENIED_QUOTA_EXCEEDED"
	ReasonDomain        ReasonCode = "DENIED_DOMAIN"
	ReasonIP            ReasonCode = "DENIED_IP"
	ReasonRateLimited   ReasonCode = "DENIED_RATE_LIMITED"
)

// Unbounded marks a remaining count with no ceiling.
const Unbounded int64 = -1

// Request is the admission input assembled by the HTTP middleware.
type Request struct {
	RawKey   string
	ClientIP string
	// Domain extracted from the request's domain-bearing headers, already
	// normalized; empty when no header yielded a signal.
	Domain string

	Method    string
	Path      string
	UserAgent string
}

// Result is the single decision the pipeline produces.
type Result struct {
	Allowed            bool          `json:"allowed"`
	Reason             ReasonCode    `json:"reason"`
	Detail             string        `json:"detail,omitempty"`
	RemainingQuota     int64         `json:"remaining_quota"`
	RemainingRateLimit int64         `json:"remaining_rate_limit"`
	RetryAfter         time.Duration `json:"retry_after,omitempty"`
	// OverQuota flags requests admitted inside the grace zone.
	OverQuota bool `json:"over_quota,omitempty"`

	// Key is the resolved credential, nil when authentication failed.
	Key *models.APIKey `json:"-"`
}
