package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"quickbid/internal/keylock"
	"quickbid/internal/models"
	"quickbid/internal/realtime"
	"quickbid/internal/repository"
)

// AuctionFinalizer closes auctions whose end_date has passed: status ended,
// winner and final price taken from the highest active bid.
type AuctionFinalizer struct {
	Repo      repository.AuctionRepository
	Stats     *LiveStatsService
	Publisher realtime.Publisher
	Locks     *keylock.Striped
	Flags     *SystemSettingsService
	Logger    *zap.Logger
	Now       func() time.Time
	BatchSize int
}

type finalized struct {
	auction models.Auction
	winner  *models.Bid
}

func (f *AuctionFinalizer) now() time.Time {
	if f.Now != nil {
		return f.Now().UTC()
	}
	return time.Now().UTC()
}

func (f *AuctionFinalizer) RunOnceIfEnabled(ctx context.Context) error {
	if f != nil && f.Flags != nil && !f.Flags.IsEnabled(ctx, FeatureAuctionFinalizer, true) {
		return nil
	}
	_, err := f.RunOnce(ctx)
	return err
}

// RunOnce finalizes one batch and reports how many auctions it closed.
func (f *AuctionFinalizer) RunOnce(ctx context.Context) (int, error) {
	if f == nil || f.Repo == nil {
		return 0, nil
	}
	limit := f.BatchSize
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	due, err := f.Repo.ListAuctionsDueForClose(ctx, f.now(), limit)
	if err != nil {
		return 0, err
	}
	closed := 0
	for _, a := range due {
		res, err := f.finalize(ctx, a.ID)
		if err != nil {
			if f.Logger != nil {
				f.Logger.Warn("finalizer: close auction failed", zap.String("auction_id", a.ID), zap.Error(err))
			}
			continue
		}
		if res == nil {
			continue
		}
		closed++
		f.announce(ctx, res)
	}
	return closed, nil
}

func (f *AuctionFinalizer) finalize(ctx context.Context, auctionID string) (*finalized, error) {
	if f.Locks != nil {
		unlock := f.Locks.Lock(AuctionLockKey(auctionID))
		defer unlock()
	}
	var out *finalized
	err := f.Repo.InTx(ctx, func(tx *gorm.DB) error {
		a, err := f.Repo.LockAuctionTx(ctx, tx, auctionID)
		if err != nil || a == nil {
			return err
		}
		// A soft-close extension may have moved end_date since the scan.
		if !a.Biddable() || f.now().Before(a.EndDate) {
			return nil
		}
		top, err := f.Repo.GetHighestActiveBidTx(ctx, tx, auctionID)
		if err != nil {
			return err
		}
		update := repository.AuctionClose{Status: models.AuctionStatusEnded}
		if top != nil {
			winner := top.BidderID
			price := top.Amount
			bidID := top.ID
			update.WinnerID = &winner
			update.FinalPrice = &price
			update.HighestBidID = &bidID
		}
		if err := f.Repo.CloseAuctionTx(ctx, tx, auctionID, update); err != nil {
			return err
		}
		a.Status = models.AuctionStatusEnded
		a.WinnerID = update.WinnerID
		a.FinalPrice = update.FinalPrice
		out = &finalized{auction: *a, winner: top}
		return nil
	})
	return out, err
}

func (f *AuctionFinalizer) announce(ctx context.Context, res *finalized) {
	a := res.auction
	payload := map[string]any{
		"auctionId":  a.ID,
		"status":     a.Status,
		"winnerId":   a.WinnerID,
		"finalPrice": a.FinalPrice,
		"endDate":    a.EndDate,
	}
	if f.Stats != nil {
		if stats, err := f.Stats.ComputeBiddingStats(ctx, a.ID); err == nil {
			payload["bidding_stats"] = stats
		}
	}
	if f.Publisher != nil {
		if err := f.Publisher.Publish(ctx, realtime.AuctionRoom(a.ID), realtime.EventAuctionFinalized, payload); err != nil && f.Logger != nil {
			f.Logger.Warn("finalizer: publish failed", zap.String("auction_id", a.ID), zap.Error(err))
		}
	}
	if f.Logger != nil {
		fields := []zap.Field{zap.String("auction_id", a.ID)}
		if res.winner != nil {
			fields = append(fields, zap.String("winner_id", res.winner.BidderID), zap.String("final_price", res.winner.Amount.StringFixed(2)))
		}
		f.Logger.Info("finalizer: auction ended", fields...)
	}
}
