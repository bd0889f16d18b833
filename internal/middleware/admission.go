package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/psrikar045/MRTFY-Backend-sub001/internal/accesspolicy"
	"github.com/psrikar045/MRTFY-Backend-sub001/internal/admission"
)

// Admission gates every proxied request through the admission pipeline:
// key authentication, quota precheck, origin policy, rate limit. The
// decision's reason code and counters are exposed as response headers.
func Admission(controller *admission.Controller) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := admission.Request{
			RawKey:    strings.TrimSpace(c.GetHeader("X-API-Key")),
			ClientIP:  c.ClientIP(),
			Domain:    accesspolicy.ExtractDomain(c.Request),
			Method:    c.Request.Method,
			Path:      c.Request.URL.Path,
			UserAgent: c.Request.UserAgent(),
		}

		result := controller.Admit(c.Request.Context(), req)

		if result.Key != nil {
			c.Set("api_key", result.Key)
			c.Set("api_key_id", result.Key.ID)
			c.Set("api_key_tier", result.Key.Tier)
			c.Header("X-RateLimit-Tier", result.Key.Tier)
		}

		setAdmissionHeaders(c, result)
		logDecision(req, result)

		if !result.Allowed {
			status := statusFor(result.Reason)
			body := gin.H{
				"error":  "request denied",
				"reason": result.Reason,
			}
			if result.Detail != "" {
				body["detail"] = result.Detail
			}
			if result.RetryAfter > 0 {
				body["retry_after_seconds"] = int(result.RetryAfter.Seconds())
			}

			c.JSON(status, body)
			c.Abort()
			return
		}

		if result.OverQuota {
			c.Header("X-Quota-Warning", "monthly quota exceeded, grace allowance in effect")
		}

		c.Next()
	}
}

func setAdmissionHeaders(c *gin.Context, result admission.Result) {
	c.Header("X-Admission-Reason", string(result.Reason))

	if result.RemainingRateLimit == admission.Unbounded {
		c.Header("X-RateLimit-Remaining", "unlimited")
	} else {
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", result.RemainingRateLimit))
	}

	if result.RemainingQuota == admission.Unbounded {
		c.Header("X-Quota-Remaining", "unlimited")
	} else {
		c.Header("X-Quota-Remaining", fmt.Sprintf("%d", result.RemainingQuota))
	}

	if result.RetryAfter > 0 {
		retryAfter := int(result.RetryAfter.Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", time.Now().Add(result.RetryAfter).Unix()))
	}
}

func statusFor(reason admission.ReasonCode) int {
	switch reason {
	case admission.ReasonInvalidKey, admission.ReasonExpired, admission.ReasonRevoked:
		return http.StatusUnauthorized
	case admission.ReasonDomain, admission.ReasonIP:
		return http.StatusForbidden
	case admission.ReasonQuotaExceeded, admission.ReasonRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusForbidden
	}
}
