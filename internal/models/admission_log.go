package models

import (
	"time"

	"github.com/google/uuid"
)

// AdmissionLog is one recorded admission decision, written asynchronously
// in batches for downstream analytics.
type AdmissionLog struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Timestamp  time.Time  `gorm:"index" json:"timestamp"`
	APIKeyID   *uuid.UUID `gorm:"index" json:"api_key_id,omitempty"`
	Allowed    bool       `gorm:"index" json:"allowed"`
	ReasonCode string     `gorm:"index" json:"reason_code"`
	Domain     string     `json:"domain,omitempty"`
	IPAddress  string     `json:"ip_address"`
	Method     string     `json:"method"`
	Path       string     `json:"path"`
	UserAgent  string     `json:"user_agent"`
}

func (AdmissionLog) TableName() string {
	return "admission_logs"
}
