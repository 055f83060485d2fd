package service

import (
	"context"

	"quickbid/internal/apperr"
	"quickbid/internal/bidledger"
	"quickbid/internal/repository"
)

type BidLedgerService struct {
	Repo repository.AuctionRepository
}

// VerifyChain recomputes every hash of the auction's bid chain.
func (s *BidLedgerService) VerifyChain(ctx context.Context, auctionID string) (bidledger.VerifyResult, error) {
	auction, err := s.Repo.GetAuctionByID(ctx, auctionID)
	if err != nil {
		return bidledger.VerifyResult{}, apperr.Internal("failed to load auction", err)
	}
	if auction == nil {
		return bidledger.VerifyResult{}, apperr.NotFound("auction")
	}
	entries, err := s.Repo.ListBidLedgerEntries(ctx, auctionID)
	if err != nil {
		return bidledger.VerifyResult{}, apperr.Internal("failed to load bid ledger", err)
	}
	return bidledger.Verify(entries), nil
}
