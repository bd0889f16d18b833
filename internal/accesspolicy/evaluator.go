package accesspolicy

import (
	"fmt"
	"strings"

	"github.com/psrikar045/MRTFY-Backend-sub001/internal/models"
)

// Denial reasons surfaced by Evaluate.
const (
	ReasonDomainNotAuthorized = "DOMAIN_NOT_AUTHORIZED"
	ReasonIPNotAuthorized     = "IP_NOT_AUTHORIZED"
	ReasonMissingDomain       = "MISSING_DOMAIN_NO_FALLBACK"
)

// Decision is the outcome of an origin-policy evaluation.
type Decision struct {
	Allowed bool
	Reason  string
	Detail  string
	Warning string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason, detail string) Decision {
	return Decision{Reason: reason, Detail: detail}
}

// Config carries the gateway environment and the explicit fail-open
// switches for the missing-signal branches. Each branch has its own flag
// so the fail-open/fail-closed choice stays individually testable.
type Config struct {
	// Environment the gateway itself runs in.
	Environment models.Environment
	// AllowMissingDomainNonProd permits domain-less requests for
	// non-production keys when the gateway is not in production.
	AllowMissingDomainNonProd bool
}

// Evaluator decides whether a request origin is authorized for a resolved
// credential using domain matching, wildcard patterns, IP allow-listing
// and the documented fallback chain.
type Evaluator struct {
	cfg Config
}

func NewEvaluator(cfg Config) *Evaluator {
	return &Evaluator{cfg: cfg}
}

// Evaluate applies the key's access mode, then domain precedence when a
// domain is present, otherwise the missing-domain fallback chain.
func (e *Evaluator) Evaluate(key *models.APIKey, requestDomain, clientIP string) Decision {
	switch key.AccessMode {
	case models.AccessModeUnrestricted, models.AccessModeServerToServer:
		// Backend callers have no meaningful origin to validate.
		return allow()
	case models.AccessModeIPRestricted:
		return e.evaluateIP(key, clientIP)
	}

	domain := Normalize(requestDomain)
	if domain == "" {
		return e.evaluateMissingDomain(key, clientIP)
	}

	if e.domainAuthorized(key, domain) {
		return allow()
	}

	return deny(ReasonDomainNotAuthorized, fmt.Sprintf(
		"domain %q is not authorized for this key (registered: %q, allowed: [%s])",
		domain, Normalize(key.RegisteredDomain), strings.Join(key.AllowedDomains, ", "),
	))
}

// domainAuthorized applies the match precedence; first match wins.
func (e *Evaluator) domainAuthorized(key *models.APIKey, domain string) bool {
	if reg := Normalize(key.RegisteredDomain); reg != "" && domain == reg {
		return true
	}

	for _, allowed := range key.AllowedDomains {
		if a := Normalize(allowed); a != "" && domain == a {
			return true
		}
	}

	if key.SubdomainPattern != "" && MatchesWildcard(key.SubdomainPattern, domain) {
		return true
	}

	if main := Normalize(key.MainDomain); main != "" && domain == main {
		return true
	}

	if key.Environment == models.EnvDevelopment && IsDevelopmentDomain(domain) {
		return true
	}

	return false
}

func (e *Evaluator) evaluateIP(key *models.APIKey, clientIP string) Decision {
	if IPAllowed(clientIP, key.AllowedIPs) {
		return allow()
	}

	return deny(ReasonIPNotAuthorized, fmt.Sprintf(
		"client ip %q is not in the key's allow-list [%s]",
		clientIP, strings.Join(key.AllowedIPs, ", "),
	))
}

// evaluateMissingDomain is the fallback chain for requests carrying no
// domain signal; first success wins.
func (e *Evaluator) evaluateMissingDomain(key *models.APIKey, clientIP string) Decision {
	// 1. Keys with an IP allow-list defer to IP validation.
	if len(key.AllowedIPs) > 0 {
		return e.evaluateIP(key, clientIP)
	}

	// 2. Explicit domain-less grant.
	if key.HasScope(models.ScopeDomainlessAccess) {
		return allow()
	}

	// 3. Non-production keys on a non-production gateway, when the
	// operator opted in.
	if e.cfg.AllowMissingDomainNonProd &&
		e.cfg.Environment != models.EnvProduction &&
		key.Environment != models.EnvProduction {
		d := allow()
		d.Warning = fmt.Sprintf("key %s admitted without a domain signal (non-production fallback)", key.ID)
		return d
	}

	return deny(ReasonMissingDomain, "request carries no domain signal and the key has no domain-less fallback")
}
