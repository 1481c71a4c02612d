package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"backend/internal/models"
	"backend/internal/pagination"
	"backend/internal/repository"
	"backend/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupApp(t *testing.T) (*fiber.App, *repository.PostgresRepository) {
	t.Helper()
	// Per-test in-memory database to avoid cross-test interference
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	repo := repository.NewPostgresRepository(db)
	require.NoError(t, repo.AutoMigrate())

	claimSvc := service.NewClaimService(repo, nil, nil, 0, 0)
	referralSvc := service.NewReferralService(repo, nil, 500)
	messageSvc := service.NewMessageService(repo, nil)

	claimHandler := NewClaimHandler(claimSvc)
	referralHandler := NewReferralHandler(referralSvc)
	messageHandler := NewMessageHandler(messageSvc)

	app := fiber.New()
	api := app.Group("/api/v1")
	api.Post("/claims", claimHandler.SubmitClaim)
	api.Get("/claims", claimHandler.ListClaims)
	api.Post("/claims/:id/decision", claimHandler.DecideClaim)
	api.Get("/promotions", claimHandler.ListPromotions)
	api.Get("/offers", claimHandler.ListOffers)
	api.Post("/referrals", referralHandler.CreateReferral)
	api.Post("/referrals/:id/complete", referralHandler.CompleteReferral)
	api.Get("/referrals", referralHandler.ListReferrals)
	api.Post("/users/:id/spend", referralHandler.Spend)
	api.Post("/messages", messageHandler.SendMessage)
	api.Get("/messages", messageHandler.ListConversation)
	api.Get("/notifications", messageHandler.ListNotifications)
	api.Get("/notifications/unread", messageHandler.UnreadCount)

	return app, repo
}

func httpDo(t *testing.T, app *fiber.App, method, path string, body interface{}) (*http.Response, []byte) {
	t.Helper()
	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	resp, err := app.Test(req, int(5*time.Second/time.Millisecond))
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func seedUser(t *testing.T, repo *repository.PostgresRepository, username string, role models.Role, credits int64) *models.User {
	t.Helper()
	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		Role:         role,
		Credits:      credits,
		ReferralCode: "ref-" + username,
	}
	require.NoError(t, repo.CreateUser(context.Background(), user))
	return user
}

func TestClaimLifecycleOverHTTP(t *testing.T) {
	app, repo := setupApp(t)
	player := seedUser(t, repo, "alice", models.RolePlayer, 0)
	admin := seedUser(t, repo, "root", models.RoleAdmin, 0)
	promo := &models.Promotion{Title: "Daily login", RewardCredits: 120, RequiresScreenshot: true, Active: true}
	require.NoError(t, repo.CreatePromotion(context.Background(), promo))

	// Missing screenshot on a target that requires one → 400
	resp, _ := httpDo(t, app, "POST", "/api/v1/claims", models.SubmitClaimRequest{
		SubjectID:  player.ID,
		TargetType: "promotion",
		TargetID:   promo.ID,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, raw := httpDo(t, app, "POST", "/api/v1/claims", models.SubmitClaimRequest{
		SubjectID:     player.ID,
		TargetType:    "promotion",
		TargetID:      promo.ID,
		ScreenshotURL: "https://img.example.com/proof.png",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var claim models.Claim
	require.NoError(t, json.Unmarshal(raw, &claim))
	require.Equal(t, models.ClaimPending, claim.Status)

	// Approve
	resp, raw = httpDo(t, app, "POST", fmt.Sprintf("/api/v1/claims/%d/decision", claim.ID), models.DecideClaimRequest{
		AdminID:  admin.ID,
		Decision: "approve",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var decided models.Claim
	require.NoError(t, json.Unmarshal(raw, &decided))
	require.Equal(t, models.ClaimApproved, decided.Status)

	// Second decision → 409
	resp, _ = httpDo(t, app, "POST", fmt.Sprintf("/api/v1/claims/%d/decision", claim.ID), models.DecideClaimRequest{
		AdminID:  admin.ID,
		Decision: "reject",
		Reason:   "too late",
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	// Balance reflects the reward exactly once
	user, err := repo.GetUser(context.Background(), player.ID)
	require.NoError(t, err)
	require.Equal(t, int64(120), user.Credits)
}

func TestDecideUnknownClaimIs404(t *testing.T) {
	app, repo := setupApp(t)
	admin := seedUser(t, repo, "root", models.RoleAdmin, 0)

	resp, _ := httpDo(t, app, "POST", "/api/v1/claims/999/decision", models.DecideClaimRequest{
		AdminID:  admin.ID,
		Decision: "approve",
	})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListClaimsPaginationParams(t *testing.T) {
	app, repo := setupApp(t)
	player := seedUser(t, repo, "alice", models.RolePlayer, 0)
	promo := &models.Promotion{Title: "Promo", RewardCredits: 10, Active: true}
	require.NoError(t, repo.CreatePromotion(context.Background(), promo))

	for i := 0; i < 12; i++ {
		require.NoError(t, repo.CreateClaim(context.Background(), &models.Claim{
			SubjectID:  player.ID,
			TargetType: models.TargetPromotion,
			TargetID:   promo.ID,
			Status:     models.ClaimPending,
		}))
	}

	resp, raw := httpDo(t, app, "GET", "/api/v1/claims?page=2&page_size=5", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page pagination.Paged[models.Claim]
	require.NoError(t, json.Unmarshal(raw, &page))
	require.Equal(t, int64(12), page.Total)
	require.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Items, 5)
	require.True(t, page.HasNext)
	require.True(t, page.HasPrevious)

	// Oversized page_size is clamped, not rejected
	resp, raw = httpDo(t, app, "GET", "/api/v1/claims?page_size=9999", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &page))
	require.Equal(t, pagination.MaxPageSize, page.PageSize)
}

func TestReferralFlowOverHTTP(t *testing.T) {
	app, repo := setupApp(t)
	alice := seedUser(t, repo, "alice", models.RolePlayer, 0)
	bob := seedUser(t, repo, "bob", models.RolePlayer, 0)

	resp, raw := httpDo(t, app, "POST", "/api/v1/referrals", models.CreateReferralRequest{
		ReferrerID: alice.ID,
		ReferredID: bob.ID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var ref models.Referral
	require.NoError(t, json.Unmarshal(raw, &ref))

	resp, _ = httpDo(t, app, "POST", fmt.Sprintf("/api/v1/referrals/%d/complete", ref.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Completing again conflicts and does not double-credit
	resp, _ = httpDo(t, app, "POST", fmt.Sprintf("/api/v1/referrals/%d/complete", ref.ID), nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	user, err := repo.GetUser(context.Background(), alice.ID)
	require.NoError(t, err)
	require.Equal(t, int64(500), user.Credits)
}

func TestSpendOverdrawIsConflict(t *testing.T) {
	app, repo := setupApp(t)
	alice := seedUser(t, repo, "alice", models.RolePlayer, 40)

	resp, _ := httpDo(t, app, "POST", fmt.Sprintf("/api/v1/users/%d/spend", alice.ID), models.SpendRequest{Amount: 100})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = httpDo(t, app, "POST", fmt.Sprintf("/api/v1/users/%d/spend", alice.ID), models.SpendRequest{Amount: 40})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	user, err := repo.GetUser(context.Background(), alice.ID)
	require.NoError(t, err)
	require.Equal(t, int64(0), user.Credits)
}

func TestConversationCursorOverHTTP(t *testing.T) {
	app, repo := setupApp(t)
	alice := seedUser(t, repo, "alice", models.RolePlayer, 0)
	bob := seedUser(t, repo, "bob", models.RolePlayer, 0)

	for i := 1; i <= 6; i++ {
		resp, _ := httpDo(t, app, "POST", "/api/v1/messages", models.SendMessageRequest{
			SenderID:    alice.ID,
			RecipientID: bob.ID,
			Body:        fmt.Sprintf("hi %d", i),
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	url := fmt.Sprintf("/api/v1/messages?user_id=%d&peer_id=%d&limit=4", alice.ID, bob.ID)
	resp, raw := httpDo(t, app, "GET", url, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page pagination.CursorPage[models.Message]
	require.NoError(t, json.Unmarshal(raw, &page))
	require.Len(t, page.Items, 4)
	require.True(t, page.HasNext)
	require.False(t, page.HasPrevious)
	require.NotEmpty(t, page.NextCursor)

	resp, raw = httpDo(t, app, "GET", url+"&cursor="+page.NextCursor, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &page))
	require.Len(t, page.Items, 2)
	require.False(t, page.HasNext)
	require.True(t, page.HasPrevious)

	// Garbage cursor degrades to the first page instead of failing
	resp, raw = httpDo(t, app, "GET", url+"&cursor=%23garbage", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &page))
	require.Len(t, page.Items, 4)
	require.False(t, page.HasPrevious)

	// Missing peer_id is rejected at the boundary
	resp, _ = httpDo(t, app, "GET", fmt.Sprintf("/api/v1/messages?user_id=%d", alice.ID), nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUnreadCountRequiresUserID(t *testing.T) {
	app, repo := setupApp(t)
	alice := seedUser(t, repo, "alice", models.RolePlayer, 0)

	resp, _ := httpDo(t, app, "GET", "/api/v1/notifications/unread", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Without a counter store the endpoint still answers, with zero
	resp, raw := httpDo(t, app, "GET", fmt.Sprintf("/api/v1/notifications/unread?user_id=%d", alice.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out map[string]int64
	require.NoError(t, json.Unmarshal(raw, &out))
	require.Equal(t, int64(0), out["unread"])
}
