package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"quickbid/internal/apperr"
	"quickbid/internal/models"
	"quickbid/internal/repository"
)

const (
	PayoutCompleted        = "completed"
	PayoutAlreadyCompleted = "already_completed"
)

type PayoutService struct {
	Repo   repository.SettlementRepository
	Ledger *SettlementLedger
	Logger *zap.Logger
	Now    func() time.Time
}

// Complete marks a payout completed and posts its ledger entries. Repeating
// the call reports already_completed and re-posts nothing.
func (s *PayoutService) Complete(ctx context.Context, payoutID string) (string, error) {
	payoutID = strings.TrimSpace(payoutID)
	if payoutID == "" {
		return "", apperr.Validation("INVALID_PAYOUT", "payout id is required")
	}
	payout, err := s.Repo.GetPayoutByID(ctx, payoutID)
	if err != nil {
		return "", apperr.Internal("failed to load payout", err)
	}
	if payout == nil {
		return "", apperr.NotFound("payout")
	}
	status := PayoutAlreadyCompleted
	if payout.Status != models.PayoutStatusCompleted {
		now := time.Now().UTC()
		if s.Now != nil {
			now = s.Now().UTC()
		}
		changed, err := s.Repo.CompletePayout(ctx, payoutID, now)
		if err != nil {
			return "", apperr.Internal("failed to complete payout", err)
		}
		if changed {
			status = PayoutCompleted
		}
	}
	if s.Ledger != nil {
		if _, err := s.Ledger.RecordSettlementForPayout(ctx, payoutID); err != nil {
			return "", err
		}
	}
	if s.Logger != nil && status == PayoutCompleted {
		s.Logger.Info("payout: completed", zap.String("payout_id", payoutID))
	}
	return status, nil
}
