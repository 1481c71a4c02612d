package jobs

import (
	"context"
	"fmt"
	"testing"
	"time"

	"backend/internal/models"
	"backend/internal/repository"
	"backend/internal/worker"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupRepo(t *testing.T) *repository.PostgresRepository {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	repo := repository.NewPostgresRepository(db)
	require.NoError(t, repo.AutoMigrate())
	return repo
}

func TestSweepRequeuesStaleNotifications(t *testing.T) {
	repo := setupRepo(t)
	pool := worker.NewPool(1, 10, repo, nil)
	pool.Start()
	defer pool.Shutdown(5 * time.Second)

	stale := &models.Notification{
		UserID:    1,
		Kind:      models.NotificationReferralBonus,
		Body:      "bonus",
		CreatedAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, repo.CreateNotification(context.Background(), stale))

	// A fresh row stays inside the grace window and is left alone
	fresh := &models.Notification{UserID: 2, Kind: models.NotificationReferralBonus, Body: "bonus"}
	require.NoError(t, repo.CreateNotification(context.Background(), fresh))

	rc := NewReconciler(repo, pool, ReconcilerConfig{RetryAfter: 10 * time.Minute})
	rc.Sweep(context.Background())

	require.Eventually(t, func() bool {
		got, err := repo.GetNotification(context.Background(), stale.ID)
		return err == nil && got.DeliveredAt != nil
	}, 3*time.Second, 20*time.Millisecond)

	got, err := repo.GetNotification(context.Background(), fresh.ID)
	require.NoError(t, err)
	require.Nil(t, got.DeliveredAt)

	metrics := rc.GetMetrics()
	require.EqualValues(t, int64(1), metrics["sweeps"])
	require.EqualValues(t, int64(1), metrics["requeued"])
}

func TestSweepSkipsExhaustedRows(t *testing.T) {
	repo := setupRepo(t)
	pool := worker.NewPool(1, 10, repo, nil)
	pool.Start()
	defer pool.Shutdown(5 * time.Second)

	dead := &models.Notification{
		UserID:    1,
		Kind:      models.NotificationClaimRejected,
		Body:      "rejected",
		Attempts:  5,
		CreatedAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, repo.CreateNotification(context.Background(), dead))

	rc := NewReconciler(repo, pool, ReconcilerConfig{MaxAttempts: 5})
	rc.Sweep(context.Background())

	time.Sleep(100 * time.Millisecond)
	got, err := repo.GetNotification(context.Background(), dead.ID)
	require.NoError(t, err)
	require.Nil(t, got.DeliveredAt)
	require.Equal(t, 5, got.Attempts)
}
