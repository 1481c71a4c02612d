package worker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"backend/internal/models"
	"backend/internal/repository"

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

func TestPoolDeliversNotification(t *testing.T) {
	repo := setupRepo(t)
	pool := NewPool(2, 10, repo, nil)
	pool.Start()

	n := &models.Notification{UserID: 1, Kind: models.NotificationClaimApproved, Body: "approved"}
	require.NoError(t, repo.CreateNotification(context.Background(), n))

	require.NoError(t, pool.Submit(NotificationTask{NotificationID: n.ID, UserID: n.UserID}))

	require.Eventually(t, func() bool {
		rows, err := repo.UndeliveredNotifications(context.Background(), 0, 10, 10)
		return err == nil && len(rows) == 0
	}, 3*time.Second, 20*time.Millisecond)

	require.NoError(t, pool.Shutdown(5*time.Second))

	metrics := pool.GetMetrics()
	require.EqualValues(t, int64(1), metrics["processed"])
}

func TestSubmitAfterShutdown(t *testing.T) {
	repo := setupRepo(t)
	pool := NewPool(1, 10, repo, nil)
	pool.Start()
	require.NoError(t, pool.Shutdown(5*time.Second))

	// A late submission must be rejected, not panic on the closed queue
	err := pool.Submit(NotificationTask{NotificationID: 1, UserID: 1})
	require.Error(t, err)
}

func TestPoolBackpressure(t *testing.T) {
	repo := setupRepo(t)
	// Never started: the queue fills and submissions beyond capacity fail
	pool := NewPool(1, 2, repo, nil)

	require.NoError(t, pool.Submit(NotificationTask{NotificationID: 1, UserID: 1}))
	require.NoError(t, pool.Submit(NotificationTask{NotificationID: 2, UserID: 1}))
	require.Error(t, pool.Submit(NotificationTask{NotificationID: 3, UserID: 1}))

	metrics := pool.GetMetrics()
	require.EqualValues(t, int64(1), metrics["backpressure_events"])
}
