package models

import "time"

// RateWindow is the persisted fixed-window counter for one key. A window is
// valid while now < WindowEnd; an expired window is replaced, never merged.
type RateWindow struct {
	KeyHash      string    `gorm:"primaryKey" json:"key_hash"`
	WindowStart  time.Time `gorm:"not null" json:"window_start"`
	WindowEnd    time.Time `gorm:"index;not null" json:"window_end"`
	RequestCount int64     `gorm:"default:0" json:"request_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (RateWindow) TableName() string {
	return "rate_windows"
}

// Expired reports whether the window has ended and must be replaced.
func (w *RateWindow) Expired(now time.Time) bool {
	return !now.Before(w.WindowEnd)
}
