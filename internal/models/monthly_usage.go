package models

import (
	"time"

	"github.com/google/uuid"
)

// MonthYearLayout formats the month identity of a usage row ("2026-08").
const MonthYearLayout = "2006-01"

// MonthlyUsage is the per-key, per-calendar-month call ledger. Rows are
// created lazily on first use in a month and reset in place on rollover;
// a reset only rolls forward, never recomputes a past month.
type MonthlyUsage struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	APIKeyID           uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_usage_key_month;not null" json:"api_key_id"`
	MonthYear          string    `gorm:"size:7;uniqueIndex:idx_usage_key_month;not null" json:"month_year"`
	UserID             string    `gorm:"index" json:"user_id"`
	QuotaLimit         int64     `gorm:"not null" json:"quota_limit"`
	GraceLimit         int64     `gorm:"not null" json:"grace_limit"`
	SuccessfulCalls    int64     `gorm:"default:0" json:"successful_calls"`
	FailedCalls        int64     `gorm:"default:0" json:"failed_calls"`
	QuotaExceededCalls int64     `gorm:"default:0" json:"quota_exceeded_calls"`
	LastResetAt        time.Time `json:"last_reset_at"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (MonthlyUsage) TableName() string {
	return "monthly_usage"
}

func (u *MonthlyUsage) TotalCalls() int64 {
	return u.SuccessfulCalls + u.FailedCalls
}

// NeedsReset reports whether the row belongs to a month earlier than now
// and must be rolled over before any counter is touched.
func (u *MonthlyUsage) NeedsReset(now time.Time) bool {
	return u.MonthYear != now.UTC().Format(MonthYearLayout)
}
