package models

import (
	"time"
)

// ClaimStatus is the lifecycle state of a promotion/offer claim.
// A claim is created pending and decided exactly once into a terminal
// state; there is no transition out of approved or rejected.
type ClaimStatus string

const (
	ClaimPending  ClaimStatus = "pending"
	ClaimApproved ClaimStatus = "approved"
	ClaimRejected ClaimStatus = "rejected"
)

// TargetType discriminates what a claim was made against
type TargetType string

const (
	TargetPromotion TargetType = "promotion"
	TargetOffer     TargetType = "offer"
)

// Decision is an admin's verdict on a pending claim
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Claim records a player/client asserting they satisfied a promotion or
// offer's conditions. RewardCredits is captured at submission so approval
// pays out the amount advertised when the claim was made, even if the
// target is edited later.
type Claim struct {
	ID              uint        `gorm:"primarykey" json:"id"`
	SubjectID       uint        `gorm:"not null;index" json:"subject_id"`
	TargetType      TargetType  `gorm:"not null;index:idx_claim_target" json:"target_type"`
	TargetID        uint        `gorm:"not null;index:idx_claim_target" json:"target_id"`
	Status          ClaimStatus `gorm:"not null;default:pending;index" json:"status"`
	RewardCredits   int64       `gorm:"not null" json:"reward_credits"`
	ScreenshotURL   string      `json:"screenshot_url,omitempty"`
	ApprovalMsgID   *uint       `gorm:"column:approval_message_id" json:"approval_message_id,omitempty"`
	ApprovedByID    *uint       `json:"approved_by_id,omitempty"`
	ApprovedAt      *time.Time  `json:"approved_at,omitempty"`
	RejectionReason string      `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Claim) TableName() string {
	return "claims"
}

// IsTerminal reports whether the claim has been decided
func (c *Claim) IsTerminal() bool {
	return c.Status != ClaimPending
}

// ClaimTarget is a fully resolved view of the promotion or offer a claim
// points at. Services receive this value object instead of chasing the
// relationship themselves; loading it is the repository's job.
type ClaimTarget struct {
	Type               TargetType `json:"type"`
	ID                 uint       `json:"id"`
	Title              string     `json:"title"`
	RewardCredits      int64      `json:"reward_credits"`
	RequiresScreenshot bool       `json:"requires_screenshot"`
	Active             bool       `json:"active"`
}

// Promotion is a site-wide campaign players can claim rewards against.
// Active carries no column default: a default tag would make GORM omit a
// false value on insert and the row would come out active.
type Promotion struct {
	ID                 uint      `gorm:"primarykey" json:"id"`
	Title              string    `gorm:"not null" json:"title"`
	Description        string    `json:"description"`
	RewardCredits      int64     `gorm:"not null" json:"reward_credits"`
	RequiresScreenshot bool      `gorm:"not null" json:"requires_screenshot"`
	Active             bool      `gorm:"not null;index" json:"active"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Promotion) TableName() string {
	return "promotions"
}

// Target returns the promotion as a resolved claim target
func (p *Promotion) Target() ClaimTarget {
	return ClaimTarget{
		Type:               TargetPromotion,
		ID:                 p.ID,
		Title:              p.Title,
		RewardCredits:      p.RewardCredits,
		RequiresScreenshot: p.RequiresScreenshot,
		Active:             p.Active,
	}
}

// Offer is a client-scoped deal, otherwise identical in claim mechanics
// to a promotion
type Offer struct {
	ID                 uint      `gorm:"primarykey" json:"id"`
	ClientID           uint      `gorm:"not null;index" json:"client_id"`
	Title              string    `gorm:"not null" json:"title"`
	Description        string    `json:"description"`
	RewardCredits      int64     `gorm:"not null" json:"reward_credits"`
	RequiresScreenshot bool      `gorm:"not null" json:"requires_screenshot"`
	Active             bool      `gorm:"not null;index" json:"active"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Offer) TableName() string {
	return "offers"
}

// Target returns the offer as a resolved claim target
func (o *Offer) Target() ClaimTarget {
	return ClaimTarget{
		Type:               TargetOffer,
		ID:                 o.ID,
		Title:              o.Title,
		RewardCredits:      o.RewardCredits,
		RequiresScreenshot: o.RequiresScreenshot,
		Active:             o.Active,
	}
}
