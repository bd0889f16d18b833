package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccessMode classifies how a key's origin is validated. It is set at
// issuance time, never inferred from key names or scopes at request time.
type AccessMode string

const (
	AccessModeDomainRestricted AccessMode = "domain_restricted"
	AccessModeIPRestricted     AccessMode = "ip_restricted"
	AccessModeServerToServer   AccessMode = "server_to_server"
	AccessModeUnrestricted     AccessMode = "unrestricted"
)

type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// Scope granting access when the request carries no domain signal at all.
const ScopeDomainlessAccess = "domainless_access"

type APIKey struct {
	ID               uuid.UUID   `gorm:"type:uuid;primary_key" json:"id"`
	KeyHash          string      `gorm:"uniqueIndex;not null" json:"-"`
	Name             string      `gorm:"not null" json:"name"`
	UserID           string      `gorm:"index" json:"user_id"`
	Plan             string      `gorm:"default:'free'" json:"plan"`
	Tier             string      `gorm:"default:'basic'" json:"tier"`
	IsActive         bool        `gorm:"default:true" json:"is_active"`
	ExpiresAt        *time.Time  `json:"expires_at,omitempty"`
	RevokedAt        *time.Time  `json:"revoked_at,omitempty"`
	RegisteredDomain string      `json:"registered_domain"`
	AllowedDomains   StringList  `gorm:"type:text" json:"allowed_domains"`
	SubdomainPattern string      `json:"subdomain_pattern,omitempty"`
	MainDomain       string      `json:"main_domain,omitempty"`
	AllowedIPs       StringList  `gorm:"type:text" json:"allowed_ips"`
	Scopes           StringList  `gorm:"type:text" json:"scopes"`
	AccessMode       AccessMode  `gorm:"default:'domain_restricted'" json:"access_mode"`
	Environment      Environment `gorm:"default:'production'" json:"environment"`
	CreatedAt        time.Time   `json:"created_at"`
	LastUsedAt       *time.Time  `json:"last_used_at,omitempty"`
}

func (a *APIKey) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

func (APIKey) TableName() string {
	return "api_keys"
}

// HasScope reports whether the key carries the given capability scope.
func (a *APIKey) HasScope(scope string) bool {
	for _, s := range a.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// IsExpired reports whether the expiry timestamp has passed. Keys without
// an expiry never expire.
func (a *APIKey) IsExpired(now time.Time) bool {
	return a.ExpiresAt != nil && !a.ExpiresAt.After(now)
}

func (a *APIKey) IsRevoked() bool {
	return a.RevokedAt != nil
}
