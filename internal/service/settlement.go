package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"quickbid/internal/apperr"
	"quickbid/internal/commission"
	"quickbid/internal/escrow"
	"quickbid/internal/keylock"
	"quickbid/internal/models"
	"quickbid/internal/repository"
)

const (
	SettleStatusSettled          = "settled"
	SettleStatusAlreadyCompleted = "already_completed"
	SettleStatusAwaitingFunds    = "awaiting_funds"

	awaitingFundsMessage = "escrow not funded; marked auction awaiting_funds"
)

type SettleResult struct {
	OK          bool                   `json:"ok"`
	Status      string                 `json:"status"`
	Message     string                 `json:"message,omitempty"`
	Commissions commission.Commissions `json:"commissions"`
	PayoutID    string                 `json:"payoutId,omitempty"`
}

// SettlementCoordinator drives an ended auction to completed. Each step is
// safe to repeat: the payout is keyed by auction id and a completed payout
// short-circuits to already_completed.
type SettlementCoordinator struct {
	Repo       repository.Repository
	Commission *commission.Engine
	Escrow     escrow.Releaser
	Ledger     *SettlementLedger
	Locks      *keylock.Striped
	Logger     *zap.Logger
	Now        func() time.Time
}

func (c *SettlementCoordinator) now() time.Time {
	if c.Now != nil {
		return c.Now().UTC()
	}
	return time.Now().UTC()
}

func SettleLockKey(auctionID string) string {
	return "settle:" + auctionID
}

func EscrowReleaseReference(auctionID string) string {
	return "settle:" + auctionID
}

// ToCents converts a major-unit price to minor units, rounding half away
// from zero.
func ToCents(v decimal.Decimal) int64 {
	return v.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

func (c *SettlementCoordinator) Settle(ctx context.Context, auctionID string) (*SettleResult, error) {
	auctionID = strings.TrimSpace(auctionID)
	if auctionID == "" {
		return nil, apperr.Validation("INVALID_AUCTION", "auction id is required")
	}
	if c.Locks != nil {
		unlock := c.Locks.Lock(SettleLockKey(auctionID))
		defer unlock()
	}

	auction, err := c.Repo.GetAuctionByID(ctx, auctionID)
	if err != nil {
		return nil, apperr.Internal("failed to load auction", err)
	}
	if auction == nil {
		return nil, apperr.NotFound("auction")
	}
	if auction.WinnerID == nil || strings.TrimSpace(*auction.WinnerID) == "" {
		return nil, apperr.Validation("NO_WINNER", "auction has no winner")
	}
	if auction.FinalPrice == nil || !auction.FinalPrice.IsPositive() {
		return nil, apperr.Validation("NO_FINAL_PRICE", "auction has no positive final price")
	}

	payout, err := c.Repo.GetPayoutByReference(ctx, auctionID)
	if err != nil {
		return nil, apperr.Internal("failed to load payout", err)
	}
	if payout != nil && payout.Status == models.PayoutStatusCompleted {
		if _, err := c.Ledger.RecordSettlementForPayout(ctx, payout.ID); err != nil {
			return nil, err
		}
		return &SettleResult{OK: true, Status: SettleStatusAlreadyCompleted, Commissions: PayoutCommissions(payout), PayoutID: payout.ID}, nil
	}
	if auction.Status == models.AuctionStatusCompleted {
		return nil, apperr.Conflict("ALREADY_SETTLED", "auction is completed but has no completed payout")
	}

	if payout == nil {
		commissions := c.Commission.ApplyCommissionRules(ctx, ToCents(*auction.FinalPrice))
		payout, err = c.Repo.CreatePayout(ctx, &models.Payout{
			ID:                    uuid.NewString(),
			SellerID:              auction.SellerID,
			ProductID:             auction.ProductID,
			SalePrice:             auction.FinalPrice.Round(2),
			CommissionAmount:      FromCents(commissions.SellerCommissionCents),
			NetPayout:             FromCents(commissions.NetToSellerCents),
			AmountCents:           commissions.AmountCents,
			BuyerCommissionCents:  commissions.BuyerCommissionCents,
			SellerCommissionCents: commissions.SellerCommissionCents,
			PlatformFlatFeeCents:  commissions.PlatformFlatFeeCents,
			NetToSellerCents:      commissions.NetToSellerCents,
			PayoutReference:       auctionID,
			Status:                models.PayoutStatusPending,
		})
		if err != nil {
			return nil, apperr.Internal("failed to create payout", err)
		}
	}
	// A concurrent creator may have won the insert; the stored row is authoritative.
	commissions := PayoutCommissions(payout)

	acct, err := c.Repo.GetEscrowAccount(ctx, auctionID, *auction.WinnerID)
	if err != nil {
		return nil, apperr.Internal("failed to load escrow account", err)
	}
	if acct == nil || acct.Status != models.EscrowStatusFunded {
		if err := c.Repo.UpdateAuctionStatus(ctx, auctionID, models.AuctionStatusAwaitingFunds); err != nil {
			return nil, apperr.Internal("failed to mark auction awaiting funds", err)
		}
		c.info("settlement: escrow not funded", auctionID, zap.String("payout_id", payout.ID))
		return &SettleResult{OK: false, Status: SettleStatusAwaitingFunds, Message: awaitingFundsMessage, Commissions: commissions}, nil
	}

	if c.Escrow == nil {
		return nil, apperr.Upstream("escrow release unavailable", nil, nil)
	}
	res, err := c.Escrow.Release(ctx, escrow.ReleaseRequest{
		EscrowID:           acct.EscrowID,
		NetToSellerCents:   commissions.NetToSellerCents,
		FeeToPlatformCents: commissions.FeeToPlatformCents(),
		Reference:          EscrowReleaseReference(auctionID),
	})
	if err != nil || !res.OK {
		meta := map[string]any{}
		if res.Status != 0 {
			meta["upstreamStatus"] = res.Status
		}
		if c.Logger != nil {
			c.Logger.Warn("settlement: escrow release failed",
				zap.String("auction_id", auctionID),
				zap.Int("status", res.Status),
				zap.String("body", res.Body),
				zap.Error(err),
			)
		}
		return nil, apperr.Upstream("escrow release failed", meta, err)
	}

	if _, err := c.Repo.CompletePayout(ctx, payout.ID, c.now()); err != nil {
		return nil, apperr.Internal("failed to complete payout", err)
	}
	if err := c.Repo.UpdateAuctionStatus(ctx, auctionID, models.AuctionStatusCompleted); err != nil {
		return nil, apperr.Internal("failed to complete auction", err)
	}
	if strings.TrimSpace(auction.ProductID) != "" {
		if err := c.Repo.UpdateProductStatus(ctx, auction.ProductID, models.ProductStatusSettled); err != nil && c.Logger != nil {
			c.Logger.Warn("settlement: product status update failed",
				zap.String("auction_id", auctionID),
				zap.String("product_id", auction.ProductID),
				zap.Error(err),
			)
		}
	}
	if _, err := c.Ledger.RecordSettlementForPayout(ctx, payout.ID); err != nil {
		return nil, err
	}
	c.info("settlement: completed", auctionID,
		zap.String("payout_id", payout.ID),
		zap.Int64("net_to_seller_cents", commissions.NetToSellerCents),
		zap.Int64("fee_to_platform_cents", commissions.FeeToPlatformCents()),
		zap.String("escrow_reference", res.Reference),
	)
	return &SettleResult{OK: true, Status: SettleStatusSettled, Commissions: commissions, PayoutID: payout.ID}, nil
}

// PayoutCommissions rebuilds the split frozen on p. Rows written before the
// split columns existed fall back to their stored decimal amounts.
func PayoutCommissions(p *models.Payout) commission.Commissions {
	out := commission.Commissions{
		AmountCents:           p.AmountCents,
		BuyerCommissionCents:  p.BuyerCommissionCents,
		SellerCommissionCents: p.SellerCommissionCents,
		PlatformFlatFeeCents:  p.PlatformFlatFeeCents,
		NetToSellerCents:      p.NetToSellerCents,
	}
	if out.AmountCents == 0 {
		out.AmountCents = ToCents(p.SalePrice)
		out.SellerCommissionCents = ToCents(p.CommissionAmount)
		out.NetToSellerCents = ToCents(p.NetPayout)
		out.PlatformFlatFeeCents = out.AmountCents - out.SellerCommissionCents - out.NetToSellerCents
	}
	out.TotalCommissionCents = out.BuyerCommissionCents + out.SellerCommissionCents + out.PlatformFlatFeeCents
	return out
}

func (c *SettlementCoordinator) info(msg, auctionID string, fields ...zap.Field) {
	if c.Logger == nil {
		return
	}
	c.Logger.Info(msg, append([]zap.Field{zap.String("auction_id", auctionID)}, fields...)...)
}
