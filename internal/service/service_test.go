package service

import (
	"context"
	"fmt"
	"testing"

	"backend/internal/models"
	"backend/internal/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupRepo opens a per-test in-memory database so tests cannot interfere
// with each other
func setupRepo(t *testing.T) *repository.PostgresRepository {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	repo := repository.NewPostgresRepository(db)
	require.NoError(t, repo.AutoMigrate())
	return repo
}

func createUser(t *testing.T, repo *repository.PostgresRepository, username string, role models.Role, credits int64) *models.User {
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

func createPromotion(t *testing.T, repo *repository.PostgresRepository, reward int64, requiresScreenshot, active bool) *models.Promotion {
	t.Helper()
	promo := &models.Promotion{
		Title:              "Weekend Warrior",
		RewardCredits:      reward,
		RequiresScreenshot: requiresScreenshot,
		Active:             active,
	}
	require.NoError(t, repo.CreatePromotion(context.Background(), promo))
	return promo
}
