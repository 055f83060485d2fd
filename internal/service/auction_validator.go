package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"quickbid/internal/apperr"
	"quickbid/internal/models"
	"quickbid/internal/repository"
)

// AuctionValidator decides whether an auction accepts bids right now.
type AuctionValidator struct {
	Repo repository.AuctionRepository
	Now  func() time.Time
}

func (v *AuctionValidator) now() time.Time {
	if v.Now != nil {
		return v.Now().UTC()
	}
	return time.Now().UTC()
}

// ValidateAuctionState loads the auction and checks it is open for bidding.
func (v *AuctionValidator) ValidateAuctionState(ctx context.Context, auctionID string) (*models.Auction, error) {
	auctionID = strings.TrimSpace(auctionID)
	if auctionID == "" {
		return nil, apperr.NotFound("auction")
	}
	auction, err := v.Repo.GetAuctionByID(ctx, auctionID)
	if err != nil {
		return nil, apperr.Internal("failed to load auction", err)
	}
	if auction == nil {
		return nil, apperr.NotFound("auction")
	}
	if err := CheckAuctionState(auction, v.now()); err != nil {
		return nil, err
	}
	return auction, nil
}

// CheckAuctionState is the pure form of ValidateAuctionState for an already
// loaded row. The window is [start_date, end_date).
func CheckAuctionState(a *models.Auction, now time.Time) error {
	if a == nil {
		return apperr.NotFound("auction")
	}
	if !a.Biddable() {
		return apperr.InvalidState("auction is not open for bidding (status " + a.Status + ")")
	}
	if now.Before(a.StartDate) {
		return apperr.InvalidState("auction has not started")
	}
	if !now.Before(a.EndDate) {
		return apperr.InvalidState("auction has ended")
	}
	return nil
}

// ValidateIncrementRules requires amount to beat current by a whole number of
// increments. A non-positive increment only requires amount > current.
func ValidateIncrementRules(current, amount, increment decimal.Decimal) error {
	if !amount.GreaterThan(current) {
		return apperr.Validation("BID_TOO_LOW", "bid must be higher than the current price "+current.StringFixed(2))
	}
	if !increment.IsPositive() {
		return nil
	}
	if !amount.Sub(current).Mod(increment).IsZero() {
		return apperr.Validation("INVALID_INCREMENT", "bid must be the current price plus a multiple of "+increment.StringFixed(2))
	}
	return nil
}
