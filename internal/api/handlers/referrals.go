package handlers

import (
	"backend/internal/models"
	"backend/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// ReferralHandler handles HTTP requests for referrals and credit spending
type ReferralHandler struct {
	service   *service.ReferralService
	validator *validator.Validate
}

// NewReferralHandler creates a new referral handler
func NewReferralHandler(service *service.ReferralService) *ReferralHandler {
	return &ReferralHandler{
		service:   service,
		validator: validator.New(),
	}
}

// CreateReferral handles POST /api/v1/referrals
func (h *ReferralHandler) CreateReferral(c *fiber.Ctx) error {
	var req models.CreateReferralRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
	}

	if err := h.validator.Struct(&req); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error:   "Validation failed",
			Message: validationErrors.Error(),
		})
	}

	ref, err := h.service.CreateReferral(c.Context(), req)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(ref)
}

// CompleteReferral handles POST /api/v1/referrals/:id/complete
func (h *ReferralHandler) CompleteReferral(c *fiber.Ctx) error {
	referralID, err := c.ParamsInt("id")
	if err != nil || referralID < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error:   "Invalid referral id",
			Message: "referral id must be a positive integer",
		})
	}

	ref, err := h.service.CompleteReferral(c.Context(), uint(referralID))
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(ref)
}

// ListReferrals handles GET /api/v1/referrals
func (h *ReferralHandler) ListReferrals(c *fiber.Ctx) error {
	page, pageSize := pageParams(c)
	referrerID := uint(c.QueryInt("referrer_id", 0))

	result, err := h.service.ListReferrals(c.Context(), referrerID, page, pageSize)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

// Spend handles POST /api/v1/users/:id/spend
func (h *ReferralHandler) Spend(c *fiber.Ctx) error {
	userID, err := c.ParamsInt("id")
	if err != nil || userID < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error:   "Invalid user id",
			Message: "user id must be a positive integer",
		})
	}

	var req models.SpendRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
	}

	if err := h.validator.Struct(&req); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error:   "Validation failed",
			Message: validationErrors.Error(),
		})
	}

	if err := h.service.Spend(c.Context(), uint(userID), req.Amount); err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Credits spent",
		"user_id": userID,
		"amount":  req.Amount,
	})
}
