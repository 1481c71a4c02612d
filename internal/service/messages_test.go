package service

import (
	"context"
	"fmt"
	"testing"

	"backend/internal/models"
	"backend/internal/pagination"

	"github.com/stretchr/testify/require"
)

func TestConversationCursorWalk(t *testing.T) {
	repo := setupRepo(t)
	svc := NewMessageService(repo, nil)
	alice := createUser(t, repo, "alice", models.RolePlayer, 0)
	bob := createUser(t, repo, "bob", models.RolePlayer, 0)
	carol := createUser(t, repo, "carol", models.RolePlayer, 0)

	for i := 1; i <= 9; i++ {
		sender, recipient := alice.ID, bob.ID
		if i%2 == 0 {
			sender, recipient = bob.ID, alice.ID
		}
		_, err := svc.Send(context.Background(), models.SendMessageRequest{
			SenderID:    sender,
			RecipientID: recipient,
			Body:        fmt.Sprintf("message %d", i),
		})
		require.NoError(t, err)
	}
	// Noise from another conversation must not leak in
	_, err := svc.Send(context.Background(), models.SendMessageRequest{
		SenderID:    carol.ID,
		RecipientID: alice.ID,
		Body:        "unrelated",
	})
	require.NoError(t, err)

	seen := make(map[uint]bool)
	cursor := ""
	pages := 0
	for {
		page, err := svc.ListConversation(context.Background(), alice.ID, bob.ID, cursor, 4, pagination.DirectionNext)
		require.NoError(t, err)
		require.LessOrEqual(t, len(page.Items), 4)
		for _, m := range page.Items {
			require.False(t, seen[m.ID], "message %d returned twice", m.ID)
			seen[m.ID] = true
		}
		pages++
		if !page.HasNext {
			break
		}
		cursor = page.NextCursor
	}
	require.Equal(t, 3, pages)
	require.Len(t, seen, 9)
}

func TestSendMessageUnknownRecipient(t *testing.T) {
	repo := setupRepo(t)
	svc := NewMessageService(repo, nil)
	alice := createUser(t, repo, "alice", models.RolePlayer, 0)

	_, err := svc.Send(context.Background(), models.SendMessageRequest{
		SenderID:    alice.ID,
		RecipientID: 9999,
		Body:        "hello?",
	})
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestNotificationFeed(t *testing.T) {
	repo := setupRepo(t)
	svc := NewMessageService(repo, nil)
	alice := createUser(t, repo, "alice", models.RolePlayer, 0)
	bob := createUser(t, repo, "bob", models.RolePlayer, 0)

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.CreateNotification(context.Background(), &models.Notification{
			UserID: alice.ID,
			Kind:   models.NotificationClaimApproved,
			Body:   fmt.Sprintf("approved %d", i),
		}))
	}
	require.NoError(t, repo.CreateNotification(context.Background(), &models.Notification{
		UserID: bob.ID,
		Kind:   models.NotificationReferralBonus,
		Body:   "bonus",
	}))

	page, err := svc.ListNotifications(context.Background(), alice.ID, "", 10, pagination.DirectionNext)
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	for _, n := range page.Items {
		require.Equal(t, alice.ID, n.UserID)
	}
	require.False(t, page.HasNext)
}
