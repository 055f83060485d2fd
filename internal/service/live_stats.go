package service

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"quickbid/internal/models"
	"quickbid/internal/repository"
)

type BiddingStats struct {
	HighestBid    decimal.Decimal `json:"highestBid"`
	HighestBidder *string         `json:"highestBidder"`
	TotalBids     int             `json:"totalBids"`
	BidsPerMinute float64         `json:"bidsPerMinute"`
	ActiveBidders int             `json:"activeBidders"`
	LastBidTime   *time.Time      `json:"lastBidTime"`
}

func (s BiddingStats) MarshalJSON() ([]byte, error) {
	type alias BiddingStats
	return json.Marshal(struct {
		alias
		HighestBid json.Number `json:"highestBid"`
	}{alias(s), json.Number(s.HighestBid.String())})
}

type LiveStatsService struct {
	Repo repository.AuctionRepository
}

func (s *LiveStatsService) ComputeBiddingStats(ctx context.Context, auctionID string) (BiddingStats, error) {
	if s == nil || s.Repo == nil {
		return BiddingStats{}, nil
	}
	bids, err := s.Repo.ListActiveBids(ctx, auctionID)
	if err != nil {
		return BiddingStats{}, err
	}
	return computeStats(bids), nil
}

// computeStats expects bids ordered by amount desc, created_at desc.
func computeStats(bids []models.Bid) BiddingStats {
	if len(bids) == 0 {
		return BiddingStats{HighestBid: decimal.Zero}
	}
	top := bids[0]
	bidder := top.BidderID
	last := top.CreatedAt

	first, latest := top.CreatedAt, top.CreatedAt
	bidders := make(map[string]struct{}, len(bids))
	for _, b := range bids {
		bidders[b.BidderID] = struct{}{}
		if b.CreatedAt.Before(first) {
			first = b.CreatedAt
		}
		if b.CreatedAt.After(latest) {
			latest = b.CreatedAt
		}
	}
	span := math.Max(latest.Sub(first).Minutes(), 1.0/60.0)
	rate := math.Round(float64(len(bids))/span*100) / 100

	return BiddingStats{
		HighestBid:    top.Amount,
		HighestBidder: &bidder,
		TotalBids:     len(bids),
		BidsPerMinute: rate,
		ActiveBidders: len(bidders),
		LastBidTime:   &last,
	}
}
