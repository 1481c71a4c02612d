package handlers

import (
	"errors"

	"backend/internal/models"
	"backend/internal/pagination"

	"github.com/gofiber/fiber/v2"
)

// respondError maps service errors onto the API's status-code taxonomy:
// validation failures are client errors, state conflicts are conflicts
// the caller must re-fetch before retrying, everything else is a 500.
func respondError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	label := "Request failed"

	switch {
	case errors.Is(err, models.ErrNotFound):
		status, label = fiber.StatusNotFound, "Not found"
	case errors.Is(err, models.ErrNotAdmin):
		status, label = fiber.StatusForbidden, "Forbidden"
	case errors.Is(err, models.ErrRateLimited):
		status, label = fiber.StatusTooManyRequests, "Rate limited"
	case errors.Is(err, models.ErrClaimNotPending),
		errors.Is(err, models.ErrReferralNotPending),
		errors.Is(err, models.ErrAlreadyReferred),
		errors.Is(err, models.ErrInsufficientCredits):
		status, label = fiber.StatusConflict, "Conflict"
	case errors.Is(err, models.ErrScreenshotRequired),
		errors.Is(err, models.ErrRejectionReasonRequired),
		errors.Is(err, models.ErrInvalidDecision),
		errors.Is(err, models.ErrTargetInactive),
		errors.Is(err, models.ErrSelfReferral),
		errors.Is(err, models.ErrInvalidAmount):
		status, label = fiber.StatusBadRequest, "Validation failed"
	}

	return c.Status(status).JSON(models.ErrorResponse{
		Error:   label,
		Message: err.Error(),
	})
}

// pageParams reads offset-pagination query parameters with their
// defaults; out-of-range values are clamped downstream, never rejected
func pageParams(c *fiber.Ctx) (page, pageSize int) {
	return c.QueryInt("page", 1), c.QueryInt("page_size", pagination.DefaultPageSize)
}

// cursorParams reads cursor-pagination query parameters with their defaults
func cursorParams(c *fiber.Ctx) (cursor string, limit int, dir pagination.Direction) {
	return c.Query("cursor"),
		c.QueryInt("limit", pagination.DefaultPageSize),
		pagination.ParseDirection(c.Query("direction"))
}
