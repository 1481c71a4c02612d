package models

// SubmitClaimRequest is the payload for POST /api/v1/claims
type SubmitClaimRequest struct {
	SubjectID     uint   `json:"subject_id" validate:"required"`
	TargetType    string `json:"target_type" validate:"required,oneof=promotion offer"`
	TargetID      uint   `json:"target_id" validate:"required"`
	ScreenshotURL string `json:"screenshot_url" validate:"omitempty,url"`
}

// DecideClaimRequest is the payload for POST /api/v1/claims/:id/decision
type DecideClaimRequest struct {
	AdminID  uint   `json:"admin_id" validate:"required"`
	Decision string `json:"decision" validate:"required,oneof=approve reject"`
	Reason   string `json:"reason" validate:"max=500"`
}

// CreateReferralRequest is the payload for POST /api/v1/referrals
type CreateReferralRequest struct {
	ReferrerID uint `json:"referrer_id" validate:"required"`
	ReferredID uint `json:"referred_id" validate:"required"`
}

// SendMessageRequest is the payload for POST /api/v1/messages
type SendMessageRequest struct {
	SenderID    uint   `json:"sender_id" validate:"required"`
	RecipientID uint   `json:"recipient_id" validate:"required"`
	Body        string `json:"body" validate:"required,min=1,max=2000"`
}

// SpendRequest is the payload for POST /api/v1/users/:id/spend
type SpendRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
