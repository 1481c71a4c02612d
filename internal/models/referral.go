package models

import (
	"time"
)

// ReferralStatus is the lifecycle state of a referral
type ReferralStatus string

const (
	ReferralPending   ReferralStatus = "pending"
	ReferralCompleted ReferralStatus = "completed"
)

// Referral links a referrer to the user they brought in. The unique index
// on ReferredID means each account can be referred at most once. The bonus
// is credited to the referrer exactly once, at the pending→completed
// transition.
type Referral struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	ReferrerID  uint           `gorm:"not null;index" json:"referrer_id"`
	ReferredID  uint           `gorm:"uniqueIndex;not null" json:"referred_id"`
	Status      ReferralStatus `gorm:"not null;default:pending;index" json:"status"`
	BonusAmount int64          `gorm:"not null" json:"bonus_amount"`
	CreatedAt   time.Time      `json:"created_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// TableName specifies the table name for GORM
func (Referral) TableName() string {
	return "referrals"
}
