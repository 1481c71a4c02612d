package service

import (
	"context"
	"fmt"
	"log"

	"backend/internal/models"
	"backend/internal/pagination"
	"backend/internal/repository"
)

// MessageService handles direct messages and the notification feed, both
// served with cursor pagination (feeds are walked, not counted).
type MessageService struct {
	repo      *repository.PostgresRepository
	redisRepo *repository.RedisRepository
}

// NewMessageService creates a new message service; redisRepo may be nil
func NewMessageService(repo *repository.PostgresRepository, redisRepo *repository.RedisRepository) *MessageService {
	return &MessageService{
		repo:      repo,
		redisRepo: redisRepo,
	}
}

// Send delivers a direct message between two users
func (s *MessageService) Send(ctx context.Context, req models.SendMessageRequest) (*models.Message, error) {
	if _, err := s.repo.GetUser(ctx, req.SenderID); err != nil {
		return nil, fmt.Errorf("load sender: %w", err)
	}
	if _, err := s.repo.GetUser(ctx, req.RecipientID); err != nil {
		return nil, fmt.Errorf("load recipient: %w", err)
	}

	msg := &models.Message{
		SenderID:    req.SenderID,
		RecipientID: req.RecipientID,
		Body:        req.Body,
	}
	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	return msg, nil
}

// ListConversation walks the two-way conversation between userID and
// peerID by message id. The primary key is the cursor column: unique and
// monotonic, so pages never skip or duplicate.
func (s *MessageService) ListConversation(ctx context.Context, userID, peerID uint, cursor string, limit int, dir pagination.Direction) (*pagination.CursorPage[models.Message], error) {
	return pagination.CursorPaginate[models.Message](
		s.repo.ConversationQuery(ctx, userID, peerID),
		cursor, limit, "id", dir,
		func(m models.Message) any { return m.ID },
	)
}

// ListNotifications walks a user's notification feed and clears their
// unread counter as a side effect of opening it
func (s *MessageService) ListNotifications(ctx context.Context, userID uint, cursor string, limit int, dir pagination.Direction) (*pagination.CursorPage[models.Notification], error) {
	page, err := pagination.CursorPaginate[models.Notification](
		s.repo.NotificationsQuery(ctx, userID),
		cursor, limit, "id", dir,
		func(n models.Notification) any { return n.ID },
	)
	if err != nil {
		return nil, err
	}
	if s.redisRepo != nil {
		if err := s.redisRepo.ClearUnread(ctx, userID); err != nil {
			log.Printf("failed to clear unread counter for user %d: %v", userID, err)
		}
	}
	return page, nil
}

// UnreadCount returns how many notifications arrived since the user last
// opened their feed. Zero when the counter store is unavailable.
func (s *MessageService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	if s.redisRepo == nil {
		return 0, nil
	}
	return s.redisRepo.UnreadCount(ctx, userID)
}
