package models

import (
	"time"
)

// Role determines what a user account is allowed to do
type Role string

const (
	RolePlayer Role = "player"
	RoleClient Role = "client"
	RoleAdmin  Role = "admin"
)

// User represents an account on the platform (player, client or admin).
// Credits are an integer balance guarded by a non-negative check constraint:
// any operation that would drive it below zero fails at the store level
// instead of being clamped.
type User struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	Role         Role      `gorm:"not null;default:player;index" json:"role"`
	Credits      int64     `gorm:"not null;default:0;check:credits >= 0" json:"credits"`
	ReferralCode string    `gorm:"uniqueIndex" json:"referral_code"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

// IsAdmin reports whether the account may decide claims
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
