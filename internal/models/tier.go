package models

import "time"

// RateLimitTier is a named rate-limit profile: a window length plus a
// request ceiling, or unlimited.
type RateLimitTier struct {
	Name          string `gorm:"primaryKey" json:"name"`
	WindowSeconds int    `gorm:"not null" json:"window_seconds"`
	MaxRequests   int64  `gorm:"not null" json:"max_requests"`
	Unlimited     bool   `gorm:"default:false" json:"unlimited"`
}

func (RateLimitTier) TableName() string {
	return "rate_limit_tiers"
}

func (t RateLimitTier) Window() time.Duration {
	if t.WindowSeconds <= 0 {
		return time.Hour
	}
	return time.Duration(t.WindowSeconds) * time.Second
}
