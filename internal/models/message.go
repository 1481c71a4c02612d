package models

import (
	"time"
)

// Message is a direct message between two users
type Message struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	SenderID    uint      `gorm:"not null;index:idx_msg_conv" json:"sender_id"`
	RecipientID uint      `gorm:"not null;index:idx_msg_conv" json:"recipient_id"`
	Body        string    `gorm:"not null" json:"body"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for GORM
func (Message) TableName() string {
	return "messages"
}

// NotificationKind classifies what produced a notification
type NotificationKind string

const (
	NotificationClaimApproved NotificationKind = "claim_approved"
	NotificationClaimRejected NotificationKind = "claim_rejected"
	NotificationReferralBonus NotificationKind = "referral_bonus"
)

// Notification is the persisted record behind a push notification.
// Rows are written in the post-commit hook of the state transition that
// produced them and delivered asynchronously; DeliveredAt is nil until a
// worker (or the reconciler, on retry) gets the push out.
type Notification struct {
	ID          uint             `gorm:"primarykey" json:"id"`
	UserID      uint             `gorm:"not null;index" json:"user_id"`
	Kind        NotificationKind `gorm:"not null" json:"kind"`
	Body        string           `gorm:"not null" json:"body"`
	ClaimID     *uint            `gorm:"index" json:"claim_id,omitempty"`
	Attempts    int              `gorm:"not null;default:0" json:"attempts"`
	LastError   string           `json:"last_error,omitempty"`
	DeliveredAt *time.Time       `gorm:"index" json:"delivered_at,omitempty"`
	CreatedAt   time.Time        `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Notification) TableName() string {
	return "notifications"
}
