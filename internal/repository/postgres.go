package repository

import (
	"context"
	"errors"
	"time"

	"backend/internal/models"

	"gorm.io/gorm"
)

// PostgresRepository handles all relational store operations
type PostgresRepository struct {
	db *gorm.DB
}

// NewPostgresRepository creates a new Postgres repository
func NewPostgresRepository(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{
		db: db,
	}
}

// DB exposes the underlying handle for query building (pagination)
func (r *PostgresRepository) DB() *gorm.DB {
	return r.db
}

// WithTx runs fn inside a single database transaction. fn receives a
// repository bound to the transaction; returning an error rolls back
// everything done through it.
func (r *PostgresRepository) WithTx(ctx context.Context, fn func(tx *PostgresRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&PostgresRepository{db: tx})
	})
}

// --- users ---

// CreateUser inserts a new account
func (r *PostgresRepository) CreateUser(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// GetUser retrieves a user by id
func (r *PostgresRepository) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// AddCredits adds delta (positive) to a user's balance. The non-negative
// check constraint on the column is the backstop against logic errors.
func (r *PostgresRepository) AddCredits(ctx context.Context, userID uint, delta int64) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("credits", gorm.Expr("credits + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

// SpendCredits debits a user's balance. The guard in the WHERE clause
// serializes concurrent debits: a debit that would drive the balance
// negative matches zero rows and is rejected without touching the row.
func (r *PostgresRepository) SpendCredits(ctx context.Context, userID uint, amount int64) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND credits >= ?", userID, amount).
		Update("credits", gorm.Expr("credits - ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.ErrInsufficientCredits
	}
	return nil
}

// --- claim targets ---

// ResolveTarget loads the promotion or offer a claim points at and returns
// it as a resolved value object, so services never traverse the
// relationship lazily.
func (r *PostgresRepository) ResolveTarget(ctx context.Context, targetType models.TargetType, targetID uint) (*models.ClaimTarget, error) {
	switch targetType {
	case models.TargetPromotion:
		var promo models.Promotion
		if err := r.db.WithContext(ctx).First(&promo, targetID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, models.ErrNotFound
			}
			return nil, err
		}
		target := promo.Target()
		return &target, nil
	case models.TargetOffer:
		var offer models.Offer
		if err := r.db.WithContext(ctx).First(&offer, targetID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, models.ErrNotFound
			}
			return nil, err
		}
		target := offer.Target()
		return &target, nil
	}
	return nil, models.ErrNotFound
}

// CreatePromotion inserts a promotion
func (r *PostgresRepository) CreatePromotion(ctx context.Context, promo *models.Promotion) error {
	return r.db.WithContext(ctx).Create(promo).Error
}

// CreateOffer inserts an offer
func (r *PostgresRepository) CreateOffer(ctx context.Context, offer *models.Offer) error {
	return r.db.WithContext(ctx).Create(offer).Error
}

// PromotionsQuery builds the listing query for promotions
func (r *PostgresRepository) PromotionsQuery(ctx context.Context, activeOnly bool) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Promotion{}).Order("id ASC")
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	return q
}

// OffersQuery builds the listing query for offers
func (r *PostgresRepository) OffersQuery(ctx context.Context, activeOnly bool) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Offer{}).Order("id ASC")
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	return q
}

// --- claims ---

// CreateClaim inserts a claim
func (r *PostgresRepository) CreateClaim(ctx context.Context, claim *models.Claim) error {
	return r.db.WithContext(ctx).Create(claim).Error
}

// GetClaim retrieves a claim by id
func (r *PostgresRepository) GetClaim(ctx context.Context, id uint) (*models.Claim, error) {
	var claim models.Claim
	err := r.db.WithContext(ctx).First(&claim, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &claim, nil
}

// ApproveClaim transitions a pending claim to approved. The status guard
// in the WHERE clause makes the transition an optimistic check: when two
// decisions race, exactly one matches the row and the loser sees zero
// rows affected.
func (r *PostgresRepository) ApproveClaim(ctx context.Context, claimID, adminID uint, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.Claim{}).
		Where("id = ? AND status = ?", claimID, models.ClaimPending).
		Updates(map[string]any{
			"status":         models.ClaimApproved,
			"approved_by_id": adminID,
			"approved_at":    at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.ErrClaimNotPending
	}
	return nil
}

// RejectClaim transitions a pending claim to rejected, with the same
// optimistic status guard as ApproveClaim
func (r *PostgresRepository) RejectClaim(ctx context.Context, claimID uint, reason string) error {
	res := r.db.WithContext(ctx).Model(&models.Claim{}).
		Where("id = ? AND status = ?", claimID, models.ClaimPending).
		Updates(map[string]any{
			"status":           models.ClaimRejected,
			"rejection_reason": reason,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.ErrClaimNotPending
	}
	return nil
}

// SetClaimApprovalMessage links a claim to the notification record created
// after its approval committed. Best effort; callers log failures.
func (r *PostgresRepository) SetClaimApprovalMessage(ctx context.Context, claimID, notificationID uint) error {
	return r.db.WithContext(ctx).Model(&models.Claim{}).
		Where("id = ?", claimID).
		Update("approval_message_id", notificationID).Error
}

// ClaimsQuery builds the listing query for claims, newest first. Zero
// filter values mean "no filter".
func (r *PostgresRepository) ClaimsQuery(ctx context.Context, subjectID uint, status models.ClaimStatus) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Claim{}).Order("id DESC")
	if subjectID != 0 {
		q = q.Where("subject_id = ?", subjectID)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	return q
}

// --- referrals ---

// CreateReferral inserts a referral; the unique index on referred_id
// rejects a second referral for the same account
func (r *PostgresRepository) CreateReferral(ctx context.Context, ref *models.Referral) error {
	return r.db.WithContext(ctx).Create(ref).Error
}

// GetReferral retrieves a referral by id
func (r *PostgresRepository) GetReferral(ctx context.Context, id uint) (*models.Referral, error) {
	var ref models.Referral
	err := r.db.WithContext(ctx).First(&ref, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &ref, nil
}

// CompleteReferral transitions a pending referral to completed with the
// same optimistic status guard used for claims
func (r *PostgresRepository) CompleteReferral(ctx context.Context, referralID uint, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.Referral{}).
		Where("id = ? AND status = ?", referralID, models.ReferralPending).
		Updates(map[string]any{
			"status":       models.ReferralCompleted,
			"completed_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.ErrReferralNotPending
	}
	return nil
}

// ReferralsQuery builds the listing query for referrals, newest first
func (r *PostgresRepository) ReferralsQuery(ctx context.Context, referrerID uint) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Referral{}).Order("id DESC")
	if referrerID != 0 {
		q = q.Where("referrer_id = ?", referrerID)
	}
	return q
}

// --- messages ---

// CreateMessage inserts a direct message
func (r *PostgresRepository) CreateMessage(ctx context.Context, msg *models.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// ConversationQuery builds the query for the two-way conversation between
// two users. Ordering is applied by the cursor paginator.
func (r *PostgresRepository) ConversationQuery(ctx context.Context, userID, peerID uint) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Message{}).
		Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)",
			userID, peerID, peerID, userID)
}

// --- notifications ---

// CreateNotification inserts an undelivered notification record
func (r *PostgresRepository) CreateNotification(ctx context.Context, n *models.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

// GetNotification retrieves a notification by ID
func (r *PostgresRepository) GetNotification(ctx context.Context, id uint) (*models.Notification, error) {
	var n models.Notification
	if err := r.db.WithContext(ctx).First(&n, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}

// MarkNotificationDelivered stamps a notification as pushed out
func (r *PostgresRepository) MarkNotificationDelivered(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND delivered_at IS NULL", id).
		Updates(map[string]any{
			"delivered_at": time.Now(),
			"attempts":     gorm.Expr("attempts + 1"),
			"last_error":   "",
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

// MarkNotificationFailed records a failed delivery attempt for the
// reconciler to retry later
func (r *PostgresRepository) MarkNotificationFailed(ctx context.Context, id uint, cause string) error {
	return r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": cause,
		}).Error
}

// UndeliveredNotifications returns notifications still awaiting delivery,
// oldest first, skipping rows newer than retryAfter or past maxAttempts
func (r *PostgresRepository) UndeliveredNotifications(ctx context.Context, retryAfter time.Duration, maxAttempts, limit int) ([]models.Notification, error) {
	var rows []models.Notification
	cutoff := time.Now().Add(-retryAfter)
	err := r.db.WithContext(ctx).
		Where("delivered_at IS NULL AND attempts < ? AND created_at <= ?", maxAttempts, cutoff).
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// NotificationsQuery builds the feed query for a user's notifications.
// Ordering is applied by the cursor paginator.
func (r *PostgresRepository) NotificationsQuery(ctx context.Context, userID uint) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
}

// --- lifecycle ---

// Ping checks if database is reachable
func (r *PostgresRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (r *PostgresRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AutoMigrate runs database migrations
func (r *PostgresRepository) AutoMigrate() error {
	return r.db.AutoMigrate(
		&models.User{},
		&models.Promotion{},
		&models.Offer{},
		&models.Claim{},
		&models.Referral{},
		&models.Message{},
		&models.Notification{},
	)
}
