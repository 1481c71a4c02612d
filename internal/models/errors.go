package models

import "errors"

// Sentinel errors shared by services and handlers. Validation errors map
// to 400, state-conflict errors to 409, ErrNotFound to 404 and
// ErrNotAdmin to 403.
var (
	ErrNotFound = errors.New("record not found")

	// validation
	ErrScreenshotRequired      = errors.New("target requires a screenshot proof")
	ErrRejectionReasonRequired = errors.New("rejection requires a reason")
	ErrInvalidDecision         = errors.New("decision must be approve or reject")
	ErrTargetInactive          = errors.New("target is not active")
	ErrSelfReferral            = errors.New("users cannot refer themselves")
	ErrInvalidAmount           = errors.New("amount must be positive")

	// state conflicts
	ErrClaimNotPending     = errors.New("claim already decided")
	ErrReferralNotPending  = errors.New("referral already completed")
	ErrAlreadyReferred     = errors.New("user was already referred")
	ErrInsufficientCredits = errors.New("insufficient credits")

	// authorization
	ErrNotAdmin = errors.New("admin role required")

	// throttling
	ErrRateLimited = errors.New("too many submissions, slow down")
)
