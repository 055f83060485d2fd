package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"quickbid/internal/apperr"
	"quickbid/internal/bidledger"
	"quickbid/internal/keylock"
	"quickbid/internal/models"
	"quickbid/internal/realtime"
	"quickbid/internal/repository"
	"quickbid/internal/risk"
)

type PlaceBidInput struct {
	AuctionID      string
	BidderID       string
	Amount         decimal.Decimal
	IdempotencyKey string
}

type PlaceBidResult struct {
	AuctionID string          `json:"auctionId"`
	BidID     string          `json:"bidId"`
	Amount    decimal.Decimal `json:"amount"`
}

// MarshalJSON writes amount as a JSON number, matching the request body.
func (r PlaceBidResult) MarshalJSON() ([]byte, error) {
	type alias PlaceBidResult
	return json.Marshal(struct {
		alias
		Amount json.Number `json:"amount"`
	}{alias(r), json.Number(r.Amount.String())})
}

// BidResponse is the canonical response of an accepted bid. Body is stored
// for idempotent replays and must be written back unchanged.
type BidResponse struct {
	StatusCode int
	Body       json.RawMessage
	Replayed   bool
}

// RestrictionChecker is the part of the risk gate bidding depends on.
type RestrictionChecker interface {
	Check(ctx context.Context, userID string) (risk.Restriction, error)
}

// BidService accepts bids. Everything that mutates an auction happens in one
// transaction holding the auction row lock, inside the per-auction stripe.
type BidService struct {
	Repo      repository.AuctionRepository
	Validator *AuctionValidator
	Risk      RestrictionChecker
	Stats     *LiveStatsService
	Publisher realtime.Publisher
	Locks     *keylock.Striped
	Flags     *SystemSettingsService
	Logger    *zap.Logger
	Now       func() time.Time

	// SoftCloseWindow > 0 extends end_date to bid time + Extension for bids
	// landing within the window.
	SoftCloseWindow time.Duration
	Extension       time.Duration
}

type acceptedBid struct {
	bid        models.Bid
	previous   *models.Bid
	extendedTo *time.Time
	response   BidResponse
}

func (s *BidService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func AuctionLockKey(auctionID string) string {
	return "auction:" + auctionID
}

func (s *BidService) PlaceBid(ctx context.Context, in PlaceBidInput) (*BidResponse, error) {
	in.BidderID = strings.TrimSpace(in.BidderID)
	in.AuctionID = strings.TrimSpace(in.AuctionID)
	in.IdempotencyKey = strings.TrimSpace(in.IdempotencyKey)
	if in.BidderID == "" {
		return nil, apperr.Unauthorized("authentication required")
	}
	if in.AuctionID == "" {
		return nil, apperr.Validation("INVALID_AUCTION", "auction id is required")
	}
	if !in.Amount.IsPositive() {
		return nil, apperr.Validation("INVALID_AMOUNT", "amount must be a positive number")
	}
	if !in.Amount.Equal(in.Amount.Round(2)) {
		return nil, apperr.Validation("INVALID_AMOUNT", "amount must have at most two decimal places")
	}

	if s.Risk != nil {
		r, err := s.Risk.Check(ctx, in.BidderID)
		if err != nil {
			return nil, apperr.Internal("failed to check bidding eligibility", err)
		}
		if !r.Allowed {
			meta := map[string]any{
				"status":         r.Status,
				"cooldownActive": r.CooldownActive,
				"cooldownUntil":  r.CooldownUntil,
			}
			return nil, apperr.Restricted("bidding is restricted for this account", meta)
		}
	}

	if replay, err := s.lookupReplay(ctx, in); err != nil || replay != nil {
		return replay, err
	}

	auction, err := s.Validator.ValidateAuctionState(ctx, in.AuctionID)
	if err != nil {
		return nil, err
	}
	if err := ValidateIncrementRules(auction.CurrentPrice, in.Amount, auction.IncrementAmount); err != nil {
		return nil, err
	}

	accepted, err := s.accept(ctx, in)
	if err != nil {
		return nil, err
	}
	if accepted.response.Replayed {
		return &accepted.response, nil
	}
	s.afterAccept(ctx, accepted)
	return &accepted.response, nil
}

func (s *BidService) lookupReplay(ctx context.Context, in PlaceBidInput) (*BidResponse, error) {
	if in.IdempotencyKey == "" {
		return nil, nil
	}
	rec, err := s.Repo.GetIdempotencyRecord(ctx, in.IdempotencyKey, in.AuctionID, in.BidderID)
	if err != nil {
		return nil, apperr.Internal("failed to read idempotency record", err)
	}
	if rec == nil {
		return nil, nil
	}
	return &BidResponse{StatusCode: rec.StatusCode, Body: json.RawMessage(rec.ResponseBody), Replayed: true}, nil
}

// accept runs the serialized part: re-validate against the locked row, insert
// the bid, advance the price, append to the hash chain and remember the
// idempotency key, all in one transaction.
func (s *BidService) accept(ctx context.Context, in PlaceBidInput) (*acceptedBid, error) {
	if s.Locks != nil {
		unlock := s.Locks.Lock(AuctionLockKey(in.AuctionID))
		defer unlock()
	}

	out := &acceptedBid{}
	err := s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		fresh, err := s.Repo.LockAuctionTx(ctx, tx, in.AuctionID)
		if err != nil {
			return err
		}
		// The row lock serializes instances; a retry with the same key may
		// have committed while this one waited.
		if in.IdempotencyKey != "" {
			rec, err := s.Repo.GetIdempotencyRecordTx(ctx, tx, in.IdempotencyKey, in.AuctionID, in.BidderID)
			if err != nil {
				return err
			}
			if rec != nil {
				out.response = BidResponse{StatusCode: rec.StatusCode, Body: json.RawMessage(rec.ResponseBody), Replayed: true}
				return nil
			}
		}
		now := s.now()
		if err := CheckAuctionState(fresh, now); err != nil {
			return err
		}
		if err := ValidateIncrementRules(fresh.CurrentPrice, in.Amount, fresh.IncrementAmount); err != nil {
			return err
		}

		previous, err := s.Repo.GetHighestActiveBidTx(ctx, tx, in.AuctionID)
		if err != nil {
			return err
		}
		out.previous = previous

		bid := models.Bid{
			ID:        uuid.NewString(),
			AuctionID: in.AuctionID,
			BidderID:  in.BidderID,
			Amount:    in.Amount,
			Status:    models.BidStatusActive,
			CreatedAt: now,
		}
		if err := s.Repo.InsertBidTx(ctx, tx, &bid); err != nil {
			return err
		}
		if err := s.Repo.AdvanceAuctionPriceTx(ctx, tx, in.AuctionID, in.Amount, bid.ID); err != nil {
			return err
		}
		if s.SoftCloseWindow > 0 && fresh.EndDate.Sub(now) <= s.SoftCloseWindow {
			ext := s.Extension
			if ext <= 0 {
				ext = s.SoftCloseWindow
			}
			end := now.Add(ext)
			if end.After(fresh.EndDate) {
				if err := s.Repo.ExtendAuctionTx(ctx, tx, in.AuctionID, end); err != nil {
					return err
				}
				out.extendedTo = &end
			}
		}

		prev, err := s.Repo.GetLatestBidLedgerEntryTx(ctx, tx, in.AuctionID)
		if err != nil {
			return err
		}
		entry := bidledger.NewEntry(prev, bid, now)
		if err := s.Repo.InsertBidLedgerEntryTx(ctx, tx, &entry); err != nil {
			return err
		}
		out.bid = bid

		body, err := json.Marshal(PlaceBidResult{AuctionID: in.AuctionID, BidID: bid.ID, Amount: in.Amount})
		if err != nil {
			return err
		}
		out.response = BidResponse{StatusCode: http.StatusOK, Body: body}
		if in.IdempotencyKey != "" {
			return s.Repo.InsertIdempotencyRecordTx(ctx, tx, &models.IdempotencyRecord{
				IdempotencyKey: in.IdempotencyKey,
				AuctionID:      in.AuctionID,
				BidderID:       in.BidderID,
				StatusCode:     http.StatusOK,
				ResponseBody:   string(body),
				CreatedAt:      now,
			})
		}
		return nil
	})
	if err != nil {
		var ae *apperr.Error
		if errors.As(err, &ae) {
			return nil, ae
		}
		if s.Logger != nil {
			s.Logger.Error("bid: accept failed",
				zap.String("auction_id", in.AuctionID),
				zap.String("bidder_id", in.BidderID),
				zap.String("amount", in.Amount.StringFixed(2)),
				zap.Error(err),
			)
		}
		return nil, apperr.Internal("failed to place bid", err)
	}
	if out.response.Replayed {
		return out, nil
	}

	if s.Logger != nil {
		s.Logger.Info("bid: accepted",
			zap.String("auction_id", in.AuctionID),
			zap.String("bid_id", out.bid.ID),
			zap.String("bidder_id", in.BidderID),
			zap.String("amount", in.Amount.StringFixed(2)),
		)
	}
	return out, nil
}

// afterAccept publishes events and writes the outbid notification. Failures
// are logged; the bid is already committed.
func (s *BidService) afterAccept(ctx context.Context, a *acceptedBid) {
	auctionID := a.bid.AuctionID
	var stats *BiddingStats
	if s.Stats != nil {
		st, err := s.Stats.ComputeBiddingStats(ctx, auctionID)
		if err != nil {
			s.warn("bid: compute live stats failed", auctionID, err)
		} else {
			stats = &st
		}
	}
	s.publish(ctx, realtime.AuctionRoom(auctionID), realtime.EventBidAccepted, map[string]any{
		"auctionId":     auctionID,
		"bidId":         a.bid.ID,
		"bidderId":      a.bid.BidderID,
		"amount":        a.bid.Amount,
		"timestamp":     a.bid.CreatedAt,
		"bidding_stats": stats,
	})
	if a.extendedTo != nil {
		s.publish(ctx, realtime.AuctionRoom(auctionID), realtime.EventAuctionExtended, map[string]any{
			"auctionId": auctionID,
			"endDate":   *a.extendedTo,
			"bidId":     a.bid.ID,
		})
	}

	if a.previous == nil || a.previous.BidderID == a.bid.BidderID {
		return
	}
	outbid := map[string]any{
		"auctionId":     auctionID,
		"yourBid":       a.previous.Amount,
		"newAmount":     a.bid.Amount,
		"bidding_stats": stats,
	}
	s.publish(ctx, realtime.BidderRoom(auctionID, a.previous.BidderID), realtime.EventOutbid, outbid)

	if s.Flags != nil && !s.Flags.IsEnabled(ctx, FeatureOutbidNotification, true) {
		return
	}
	raw, _ := json.Marshal(map[string]any{
		"auctionId": auctionID,
		"yourBid":   a.previous.Amount,
		"newAmount": a.bid.Amount,
	})
	n := &models.Notification{
		UserID:  a.previous.BidderID,
		Type:    realtime.EventOutbid,
		Title:   "You have been outbid",
		Payload: datatypes.JSON(raw),
	}
	if err := s.Repo.InsertNotification(ctx, n); err != nil {
		s.warn("bid: outbid notification failed", auctionID, err)
	}
}

func (s *BidService) publish(ctx context.Context, room, event string, payload any) {
	if s.Publisher == nil {
		return
	}
	if err := s.Publisher.Publish(ctx, room, event, payload); err != nil && s.Logger != nil {
		s.Logger.Warn("bid: publish failed", zap.String("room", room), zap.String("event", event), zap.Error(err))
	}
}

func (s *BidService) warn(msg, auctionID string, err error) {
	if s.Logger != nil {
		s.Logger.Warn(msg, zap.String("auction_id", auctionID), zap.Error(err))
	}
}
