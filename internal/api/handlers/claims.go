package handlers

import (
	"backend/internal/models"
	"backend/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// ClaimHandler handles HTTP requests for claims and their targets
type ClaimHandler struct {
	service   *service.ClaimService
	validator *validator.Validate
}

// NewClaimHandler creates a new claim handler
func NewClaimHandler(service *service.ClaimService) *ClaimHandler {
	return &ClaimHandler{
		service:   service,
		validator: validator.New(),
	}
}

// SubmitClaim handles POST /api/v1/claims
func (h *ClaimHandler) SubmitClaim(c *fiber.Ctx) error {
	var req models.SubmitClaimRequest

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

	claim, err := h.service.SubmitClaim(c.Context(), req)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(claim)
}

// DecideClaim handles POST /api/v1/claims/:id/decision
func (h *ClaimHandler) DecideClaim(c *fiber.Ctx) error {
	claimID, err := c.ParamsInt("id")
	if err != nil || claimID < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error:   "Invalid claim id",
			Message: "claim id must be a positive integer",
		})
	}

	var req models.DecideClaimRequest
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

	claim, err := h.service.DecideClaim(c.Context(), uint(claimID), req)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(claim)
}

// ListClaims handles GET /api/v1/claims
func (h *ClaimHandler) ListClaims(c *fiber.Ctx) error {
	page, pageSize := pageParams(c)
	subjectID := uint(c.QueryInt("subject_id", 0))
	status := models.ClaimStatus(c.Query("status"))

	result, err := h.service.ListClaims(c.Context(), subjectID, status, page, pageSize)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

// ListPromotions handles GET /api/v1/promotions
func (h *ClaimHandler) ListPromotions(c *fiber.Ctx) error {
	page, pageSize := pageParams(c)
	activeOnly := c.QueryBool("active", false)

	result, err := h.service.ListPromotions(c.Context(), activeOnly, page, pageSize)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

// ListOffers handles GET /api/v1/offers
func (h *ClaimHandler) ListOffers(c *fiber.Ctx) error {
	page, pageSize := pageParams(c)
	activeOnly := c.QueryBool("active", false)

	result, err := h.service.ListOffers(c.Context(), activeOnly, page, pageSize)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

// HealthCheck handles GET /api/v1/health
func (h *ClaimHandler) HealthCheck(c *fiber.Ctx) error {
	if err := h.service.HealthCheck(c.Context()); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
			Error:   "Health check failed",
			Message: err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":  "healthy",
		"message": "All systems operational",
	})
}
