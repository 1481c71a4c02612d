package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"backend/internal/models"
	"backend/internal/pagination"
	"backend/internal/repository"
	"backend/internal/worker"
)

// Dispatcher queues a notification for asynchronous delivery. The worker
// pool implements it; a nil dispatcher leaves rows for the reconciler.
type Dispatcher interface {
	Submit(task worker.NotificationTask) error
}

// ClaimService owns the claim lifecycle: submission with screenshot-proof
// validation, and the single pending→approved/rejected transition with
// its atomic credit payout.
type ClaimService struct {
	repo       *repository.PostgresRepository
	redisRepo  *repository.RedisRepository
	dispatcher Dispatcher
	rateLimit  int
	rateWindow time.Duration
}

// NewClaimService creates a new claim service. redisRepo and dispatcher
// may be nil; rate limiting and async delivery are then skipped.
func NewClaimService(
	repo *repository.PostgresRepository,
	redisRepo *repository.RedisRepository,
	dispatcher Dispatcher,
	rateLimit int,
	rateWindow time.Duration,
) *ClaimService {
	return &ClaimService{
		repo:       repo,
		redisRepo:  redisRepo,
		dispatcher: dispatcher,
		rateLimit:  rateLimit,
		rateWindow: rateWindow,
	}
}

// SubmitClaim creates a pending claim after validating the resolved
// target. The reward amount is snapshotted onto the claim so approval
// pays out what was advertised at submission time.
func (s *ClaimService) SubmitClaim(ctx context.Context, req models.SubmitClaimRequest) (*models.Claim, error) {
	if s.redisRepo != nil && s.rateLimit > 0 {
		allowed, err := s.redisRepo.AllowClaimSubmission(ctx, req.SubjectID, s.rateLimit, s.rateWindow)
		if err != nil {
			// Fail open: a broken limiter should not block submissions
			log.Printf("claim rate limiter unavailable: %v", err)
		} else if !allowed {
			return nil, models.ErrRateLimited
		}
	}

	subject, err := s.repo.GetUser(ctx, req.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("load subject: %w", err)
	}

	target, err := s.repo.ResolveTarget(ctx, models.TargetType(req.TargetType), req.TargetID)
	if err != nil {
		return nil, fmt.Errorf("resolve target: %w", err)
	}
	if !target.Active {
		return nil, models.ErrTargetInactive
	}
	if target.RequiresScreenshot && strings.TrimSpace(req.ScreenshotURL) == "" {
		return nil, models.ErrScreenshotRequired
	}

	claim := &models.Claim{
		SubjectID:     subject.ID,
		TargetType:    target.Type,
		TargetID:      target.ID,
		Status:        models.ClaimPending,
		RewardCredits: target.RewardCredits,
		ScreenshotURL: req.ScreenshotURL,
	}
	if err := s.repo.CreateClaim(ctx, claim); err != nil {
		return nil, fmt.Errorf("create claim: %w", err)
	}
	return claim, nil
}

// DecideClaim applies the one allowed transition out of pending. Approval
// credits the subject's balance in the same transaction as the status
// change; both commit or neither does. The linked notification is a
// post-commit side effect: its failure is logged for the reconciler, never
// rolled into the decision.
func (s *ClaimService) DecideClaim(ctx context.Context, claimID uint, req models.DecideClaimRequest) (*models.Claim, error) {
	decision := models.Decision(req.Decision)
	if decision != models.DecisionApprove && decision != models.DecisionReject {
		return nil, models.ErrInvalidDecision
	}
	if decision == models.DecisionReject && strings.TrimSpace(req.Reason) == "" {
		return nil, models.ErrRejectionReasonRequired
	}

	admin, err := s.repo.GetUser(ctx, req.AdminID)
	if err != nil {
		return nil, fmt.Errorf("load admin: %w", err)
	}
	if !admin.IsAdmin() {
		return nil, models.ErrNotAdmin
	}

	err = s.repo.WithTx(ctx, func(tx *repository.PostgresRepository) error {
		claim, err := tx.GetClaim(ctx, claimID)
		if err != nil {
			return err
		}
		if claim.IsTerminal() {
			return models.ErrClaimNotPending
		}

		if decision == models.DecisionApprove {
			if err := tx.ApproveClaim(ctx, claim.ID, admin.ID, time.Now()); err != nil {
				return err
			}
			return tx.AddCredits(ctx, claim.SubjectID, claim.RewardCredits)
		}
		return tx.RejectClaim(ctx, claim.ID, req.Reason)
	})
	if err != nil {
		return nil, err
	}

	claim, err := s.repo.GetClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	s.notifyDecision(ctx, claim)
	return claim, nil
}

// notifyDecision runs after the decision committed. Each step is best
// effort; an undelivered notification row is retried by the reconciler.
func (s *ClaimService) notifyDecision(ctx context.Context, claim *models.Claim) {
	kind := models.NotificationClaimRejected
	body := fmt.Sprintf("Your claim #%d was rejected: %s", claim.ID, claim.RejectionReason)
	if claim.Status == models.ClaimApproved {
		kind = models.NotificationClaimApproved
		body = fmt.Sprintf("Your claim #%d was approved, %d credits awarded", claim.ID, claim.RewardCredits)
	}

	notification := &models.Notification{
		UserID:  claim.SubjectID,
		Kind:    kind,
		Body:    body,
		ClaimID: &claim.ID,
	}
	if err := s.repo.CreateNotification(ctx, notification); err != nil {
		log.Printf("failed to record notification for claim %d: %v", claim.ID, err)
		return
	}

	if claim.Status == models.ClaimApproved {
		if err := s.repo.SetClaimApprovalMessage(ctx, claim.ID, notification.ID); err != nil {
			log.Printf("failed to link approval message for claim %d: %v", claim.ID, err)
		} else {
			claim.ApprovalMsgID = &notification.ID
		}
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

// ListClaims returns an offset-paginated slice of claims, newest first
func (s *ClaimService) ListClaims(ctx context.Context, subjectID uint, status models.ClaimStatus, page, pageSize int) (*pagination.Paged[models.Claim], error) {
	return pagination.Paginate[models.Claim](s.repo.ClaimsQuery(ctx, subjectID, status), page, pageSize)
}

// ListPromotions returns an offset-paginated slice of promotions
func (s *ClaimService) ListPromotions(ctx context.Context, activeOnly bool, page, pageSize int) (*pagination.Paged[models.Promotion], error) {
	return pagination.Paginate[models.Promotion](s.repo.PromotionsQuery(ctx, activeOnly), page, pageSize)
}

// ListOffers returns an offset-paginated slice of offers
func (s *ClaimService) ListOffers(ctx context.Context, activeOnly bool, page, pageSize int) (*pagination.Paged[models.Offer], error) {
	return pagination.Paginate[models.Offer](s.repo.OffersQuery(ctx, activeOnly), page, pageSize)
}

// HealthCheck checks the health of the backing stores
func (s *ClaimService) HealthCheck(ctx context.Context) error {
	if err := s.repo.Ping(ctx); err != nil {
		return fmt.Errorf("PostgreSQL health check failed: %w", err)
	}
	if s.redisRepo != nil {
		if err := s.redisRepo.Ping(ctx); err != nil {
			return fmt.Errorf("Redis health check failed: %w", err)
		}
	}
	return nil
}
