package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"quickbid/internal/apperr"
	"quickbid/internal/models"
	"quickbid/internal/repository"
)

const DefaultCurrency = "INR"

type LedgerPosting struct {
	TransactionID string               `json:"transactionId,omitempty"`
	Entries       []models.LedgerEntry `json:"entries,omitempty"`
	Skipped       bool                 `json:"skipped"`
	Reason        string               `json:"reason,omitempty"`
}

// SettlementLedger posts the double-entry pair for a completed payout: the
// platform clearing account is debited and the seller wallet credited by the
// same amount under one transaction id.
type SettlementLedger struct {
	Repo     repository.SettlementRepository
	Currency string
	Logger   *zap.Logger
	Now      func() time.Time

	// The platform clearing balance is shared by every posting.
	mu sync.Mutex
}

func PayoutLedgerReference(payoutID string) string {
	return "payout:" + payoutID
}

func (l *SettlementLedger) currency() string {
	if c := strings.TrimSpace(l.Currency); c != "" {
		return strings.ToUpper(c)
	}
	return DefaultCurrency
}

func (l *SettlementLedger) now() time.Time {
	if l.Now != nil {
		return l.Now().UTC()
	}
	return time.Now().UTC()
}

// RecordSettlementForPayout is idempotent per payout: a second call finds the
// entries already posted under the payout reference and does nothing.
func (l *SettlementLedger) RecordSettlementForPayout(ctx context.Context, payoutID string) (*LedgerPosting, error) {
	payout, err := l.Repo.GetPayoutByID(ctx, payoutID)
	if err != nil {
		return nil, apperr.Internal("failed to load payout", err)
	}
	if payout == nil {
		return nil, apperr.NotFound("payout")
	}
	if strings.TrimSpace(payout.SellerID) == "" {
		return nil, apperr.Validation("PAYOUT_SELLER_MISSING", "payout has no seller")
	}
	net := payout.NetPayout
	if !net.IsPositive() {
		return &LedgerPosting{Skipped: true, Reason: "non-positive net payout"}, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	ref := PayoutLedgerReference(payout.ID)
	n, err := l.Repo.CountLedgerEntriesByReference(ctx, ref)
	if err != nil {
		return nil, apperr.Internal("failed to check ledger", err)
	}
	if n > 0 {
		return &LedgerPosting{Skipped: true, Reason: "already recorded"}, nil
	}

	currency := l.currency()
	seller, err := l.Repo.GetOrCreateLedgerAccount(ctx, repository.LedgerAccountKey{
		OwnerType:   models.LedgerOwnerSeller,
		OwnerID:     payout.SellerID,
		AccountType: models.LedgerAccountSellerWallet,
		Currency:    currency,
	})
	if err != nil {
		return nil, apperr.Internal("failed to resolve seller wallet", err)
	}
	platform, err := l.Repo.GetOrCreateLedgerAccount(ctx, repository.LedgerAccountKey{
		OwnerType:   models.LedgerOwnerPlatform,
		AccountType: models.LedgerAccountPlatformClearing,
		Currency:    currency,
	})
	if err != nil {
		return nil, apperr.Internal("failed to resolve platform clearing account", err)
	}

	sellerBal, err := l.balance(ctx, seller.ID)
	if err != nil {
		return nil, apperr.Internal("failed to read seller balance", err)
	}
	platformBal, err := l.balance(ctx, platform.ID)
	if err != nil {
		return nil, apperr.Internal("failed to read platform balance", err)
	}

	now := l.now()
	txID := uuid.NewString()
	entries := []models.LedgerEntry{
		{
			TransactionID: txID,
			AccountID:     platform.ID,
			Reference:     ref,
			Debit:         net,
			Credit:        decimal.Zero,
			BalanceAfter:  platformBal.Sub(net),
			Timestamp:     now,
		},
		{
			TransactionID: txID,
			AccountID:     seller.ID,
			Reference:     ref,
			Debit:         decimal.Zero,
			Credit:        net,
			BalanceAfter:  sellerBal.Add(net),
			Timestamp:     now,
		},
	}
	if err := l.Repo.InsertLedgerEntriesTx(ctx, nil, entries); err != nil {
		return nil, apperr.Internal("failed to write ledger entries", err)
	}

	for _, e := range entries {
		wb := &models.WalletBalance{AccountID: e.AccountID, Balance: e.BalanceAfter, UpdatedAt: now}
		if err := l.Repo.UpsertWalletBalance(ctx, wb); err != nil && l.Logger != nil {
			l.Logger.Warn("ledger: wallet balance upsert failed",
				zap.String("account_id", e.AccountID),
				zap.String("transaction_id", txID),
				zap.Error(err),
			)
		}
	}
	if l.Logger != nil {
		l.Logger.Info("ledger: settlement posted",
			zap.String("payout_id", payout.ID),
			zap.String("transaction_id", txID),
			zap.String("amount", net.StringFixed(2)),
			zap.String("currency", currency),
		)
	}
	return &LedgerPosting{TransactionID: txID, Entries: entries}, nil
}

func (l *SettlementLedger) balance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	wb, err := l.Repo.GetWalletBalance(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	if wb == nil {
		return decimal.Zero, nil
	}
	return wb.Balance, nil
}
