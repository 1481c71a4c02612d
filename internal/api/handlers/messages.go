package handlers

import (
	"backend/internal/models"
	"backend/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// MessageHandler handles HTTP requests for direct messages and the
// notification feed
type MessageHandler struct {
	service   *service.MessageService
	validator *validator.Validate
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(service *service.MessageService) *MessageHandler {
	return &MessageHandler{
		service:   service,
		validator: validator.New(),
	}
}

// SendMessage handles POST /api/v1/messages
func (h *MessageHandler) SendMessage(c *fiber.Ctx) error {
	var req models.SendMessageRequest

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

	msg, err := h.service.Send(c.Context(), req)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(msg)
}

// ListConversation handles GET /api/v1/messages
func (h *MessageHandler) ListConversation(c *fiber.Ctx) error {
	userID := uint(c.QueryInt("user_id", 0))
	peerID := uint(c.QueryInt("peer_id", 0))
	if userID == 0 || peerID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error:   "Validation failed",
			Message: "user_id and peer_id are required",
		})
	}

	cursor, limit, dir := cursorParams(c)
	result, err := h.service.ListConversation(c.Context(), userID, peerID, cursor, limit, dir)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

// ListNotifications handles GET /api/v1/notifications
func (h *MessageHandler) ListNotifications(c *fiber.Ctx) error {
	userID := uint(c.QueryInt("user_id", 0))
	if userID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error:   "Validation failed",
			Message: "user_id is required",
		})
	}

	cursor, limit, dir := cursorParams(c)
	result, err := h.service.ListNotifications(c.Context(), userID, cursor, limit, dir)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

// UnreadCount handles GET /api/v1/notifications/unread
func (h *MessageHandler) UnreadCount(c *fiber.Ctx) error {
	userID := uint(c.QueryInt("user_id", 0))
	if userID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error:   "Validation failed",
			Message: "user_id is required",
		})
	}

	count, err := h.service.UnreadCount(c.Context(), userID)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"user_id": userID,
		"unread":  count,
	})
}
