package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// NotificationsVersionKey tracks a global feed version for efficient
	// change detection; the WebSocket hub polls it instead of clients
	// hammering the feed endpoint
	NotificationsVersionKey = "notifications:version"

	// UnreadKey is the Redis hash of per-user unread notification counts
	UnreadKey = "notifications:unread"

	// claimRateKeyFormat is the per-user claim submission rate bucket
	claimRateKeyFormat = "ratelimit:claims:%d"
)

// RedisRepository handles all Redis operations
type RedisRepository struct {
	client *redis.Client
}

// NewRedisRepository creates a new Redis repository
func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{
		client: client,
	}
}

// NotifyDelivered records a delivered notification: bumps the user's
// unread count and the global version in one pipeline
func (r *RedisRepository) NotifyDelivered(ctx context.Context, userID uint) error {
	pipe := r.client.Pipeline()
	pipe.HIncrBy(ctx, UnreadKey, fmt.Sprintf("%d", userID), 1)
	pipe.Incr(ctx, NotificationsVersionKey)
	_, err := pipe.Exec(ctx)
	return err
}

// GetVersion returns the current global notifications version
func (r *RedisRepository) GetVersion(ctx context.Context) (int64, error) {
	version, err := r.client.Get(ctx, NotificationsVersionKey).Int64()
	if err != nil {
		if err == redis.Nil {
			return 0, nil // Version not set yet, return 0
		}
		return 0, err
	}
	return version, nil
}

// UnreadCount returns a user's unread notification count
func (r *RedisRepository) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	n, err := r.client.HGet(ctx, UnreadKey, fmt.Sprintf("%d", userID)).Int64()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}

// ClearUnread resets a user's unread count after they open their feed
func (r *RedisRepository) ClearUnread(ctx context.Context, userID uint) error {
	return r.client.HDel(ctx, UnreadKey, fmt.Sprintf("%d", userID)).Err()
}

// AllowClaimSubmission is an INCR+EXPIRE rate limiter: at most max
// submissions per user per window. The first increment in a window arms
// the expiry; subsequent ones just count.
func (r *RedisRepository) AllowClaimSubmission(ctx context.Context, userID uint, max int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(claimRateKeyFormat, userID)

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return false, err
		}
	}
	return count <= int64(max), nil
}

// Ping checks if Redis is reachable
func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *RedisRepository) Close() error {
	return r.client.Close()
}
