package models

// SubscriptionPlan maps a subscriber plan to its monthly quota, grace
// ceiling and rate-limit tier. GraceQuota is always >= MonthlyQuota.
type SubscriptionPlan struct {
	Name         string `gorm:"primaryKey" json:"name"`
	MonthlyQuota int64  `gorm:"not null" json:"monthly_quota"`
	GraceQuota   int64  `gorm:"not null" json:"grace_quota"`
	RateTier     string `gorm:"not null" json:"rate_tier"`
}

func (SubscriptionPlan) TableName() string {
	return "subscription_plans"
}
