package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"backend/internal/models"
	"backend/internal/pagination"
	"backend/internal/repository"
	"backend/internal/worker"

	"gorm.io/gorm"
)

// ReferralService owns the referral lifecycle and the credit ledger
// around it: the pending→completed transition credits the referrer's
// bonus exactly once, atomically with the status change.
type ReferralService struct {
	repo       *repository.PostgresRepository
	dispatcher Dispatcher
	bonus      int64
}

// NewReferralService creates a new referral service. bonus is the credit
// amount granted to the referrer on completion.
func NewReferralService(repo *repository.PostgresRepository, dispatcher Dispatcher, bonus int64) *ReferralService {
	return &ReferralService{
		repo:       repo,
		dispatcher: dispatcher,
		bonus:      bonus,
	}
}

// CreateReferral records that referrer brought referred onto the
// platform. The unique index on referred_id means each account can only
// ever be referred once.
func (s *ReferralService) CreateReferral(ctx context.Context, req models.CreateReferralRequest) (*models.Referral, error) {
	if req.ReferrerID == req.ReferredID {
		return nil, models.ErrSelfReferral
	}
	if _, err := s.repo.GetUser(ctx, req.ReferrerID); err != nil {
		return nil, fmt.Errorf("load referrer: %w", err)
	}
	if _, err := s.repo.GetUser(ctx, req.ReferredID); err != nil {
		return nil, fmt.Errorf("load referred: %w", err)
	}

	ref := &models.Referral{
		ReferrerID:  req.ReferrerID,
		ReferredID:  req.ReferredID,
		Status:      models.ReferralPending,
		BonusAmount: s.bonus,
	}
	if err := s.repo.CreateReferral(ctx, ref); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, models.ErrAlreadyReferred
		}
		return nil, fmt.Errorf("create referral: %w", err)
	}
	return ref, nil
}

// CompleteReferral marks a referral completed and credits the referrer's
// bonus in the same transaction. The status guard makes retries
// idempotent: a second completion finds the row no longer pending and
// fails without crediting again.
func (s *ReferralService) CompleteReferral(ctx context.Context, referralID uint) (*models.Referral, error) {
	err := s.repo.WithTx(ctx, func(tx *repository.PostgresRepository) error {
		ref, err := tx.GetReferral(ctx, referralID)
		if err != nil {
			return err
		}
		if ref.Status != models.ReferralPending {
			return models.ErrReferralNotPending
		}
		if err := tx.CompleteReferral(ctx, ref.ID, time.Now()); err != nil {
			return err
		}
		return tx.AddCredits(ctx, ref.ReferrerID, ref.BonusAmount)
	})
	if err != nil {
		return nil, err
	}

	ref, err := s.repo.GetReferral(ctx, referralID)
	if err != nil {
		return nil, err
	}
	s.notifyBonus(ctx, ref)
	return ref, nil
}

// notifyBonus runs after the completion committed; best effort only
func (s *ReferralService) notifyBonus(ctx context.Context, ref *models.Referral) {
	notification := &models.Notification{
		UserID: ref.ReferrerID,
		Kind:   models.NotificationReferralBonus,
		Body:   fmt.Sprintf("Referral bonus of %d credits awarded", ref.BonusAmount),
	}
	if err := s.repo.CreateNotification(ctx, notification); err != nil {
		log.Printf("failed to record referral bonus notification for referral %d: %v", ref.ID, err)
		return
	}
	if s.dispatcher != nil {
		if err := s.dispatcher.Submit(worker.NotificationTask{
			NotificationID: notification.ID,
			UserID:         notification.UserID,
		}); err != nil {
			log.Printf("failed to queue notification %d: %v", notification.ID, err)
		}
	}
}

// Spend debits credits from a user's balance. A debit that would drive
// the balance negative is rejected atomically; the check constraint on
// the column is the backstop.
func (s *ReferralService) Spend(ctx context.Context, userID uint, amount int64) error {
	if amount <= 0 {
		return models.ErrInvalidAmount
	}
	return s.repo.SpendCredits(ctx, userID, amount)
}

// ListReferrals returns an offset-paginated slice of referrals
func (s *ReferralService) ListReferrals(ctx context.Context, referrerID uint, page, pageSize int) (*pagination.Paged[models.Referral], error) {
	return pagination.Paginate[models.Referral](s.repo.ReferralsQuery(ctx, referrerID), page, pageSize)
}
