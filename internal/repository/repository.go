package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"quickbid/internal/models"
)

// AuctionRepository covers auctions, bids, the bid hash chain and bid-side
// bookkeeping. Methods suffixed Tx run on the transaction handed out by InTx;
// a nil tx means "use the root connection".
type AuctionRepository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	GetAuctionByID(ctx context.Context, id string) (*models.Auction, error)
	// LockAuctionTx reads the auction row with SELECT ... FOR UPDATE.
	LockAuctionTx(ctx context.Context, tx *gorm.DB, id string) (*models.Auction, error)
	AdvanceAuctionPriceTx(ctx context.Context, tx *gorm.DB, id string, price decimal.Decimal, highestBidID string) error
	ExtendAuctionTx(ctx context.Context, tx *gorm.DB, id string, endDate time.Time) error
	CloseAuctionTx(ctx context.Context, tx *gorm.DB, id string, update AuctionClose) error
	UpdateAuctionStatus(ctx context.Context, id string, status string) error
	ListAuctionsDueForClose(ctx context.Context, now time.Time, limit int) ([]models.Auction, error)

	InsertBidTx(ctx context.Context, tx *gorm.DB, item *models.Bid) error
	GetHighestActiveBidTx(ctx context.Context, tx *gorm.DB, auctionID string) (*models.Bid, error)
	// ListActiveBids returns active bids ordered by amount desc, created_at desc.
	ListActiveBids(ctx context.Context, auctionID string) ([]models.Bid, error)

	GetLatestBidLedgerEntryTx(ctx context.Context, tx *gorm.DB, auctionID string) (*models.BidLedgerEntry, error)
	InsertBidLedgerEntryTx(ctx context.Context, tx *gorm.DB, item *models.BidLedgerEntry) error
	// ListBidLedgerEntries returns the chain ordered by timestamp asc.
	ListBidLedgerEntries(ctx context.Context, auctionID string) ([]models.BidLedgerEntry, error)

	GetIdempotencyRecord(ctx context.Context, key, auctionID, bidderID string) (*models.IdempotencyRecord, error)
	GetIdempotencyRecordTx(ctx context.Context, tx *gorm.DB, key, auctionID, bidderID string) (*models.IdempotencyRecord, error)
	InsertIdempotencyRecordTx(ctx context.Context, tx *gorm.DB, item *models.IdempotencyRecord) error
	DeleteIdempotencyRecordsBefore(ctx context.Context, before time.Time) (int64, error)

	InsertNotification(ctx context.Context, item *models.Notification) error
}

type RiskRepository interface {
	GetSellerRiskScore(ctx context.Context, sellerID string) (*models.SellerRiskScore, error)
	GetUserControls(ctx context.Context, userID string) (*models.UserControls, error)
	UpsertUserControls(ctx context.Context, item *models.UserControls) error
	InsertSellerPenalty(ctx context.Context, item *models.SellerPenalty) error
}

type CommissionRepository interface {
	// GetActiveCommissionSettings returns the newest active row or nil.
	GetActiveCommissionSettings(ctx context.Context) (*models.CommissionSettings, error)
	// ReplaceActiveCommissionSettings deactivates every row and inserts item as
	// the only active one.
	ReplaceActiveCommissionSettings(ctx context.Context, item *models.CommissionSettings) error
}

type SettlementRepository interface {
	GetPayoutByID(ctx context.Context, id string) (*models.Payout, error)
	GetPayoutByReference(ctx context.Context, reference string) (*models.Payout, error)
	// CreatePayout inserts item unless a payout with the same reference
	// exists; either way the stored row is returned.
	CreatePayout(ctx context.Context, item *models.Payout) (*models.Payout, error)
	// CompletePayout moves a pending payout to completed. It reports false when
	// the payout was already completed.
	CompletePayout(ctx context.Context, id string, paidAt time.Time) (bool, error)

	GetEscrowAccount(ctx context.Context, auctionID, buyerID string) (*models.EscrowAccount, error)
	UpdateProductStatus(ctx context.Context, productID, status string) error

	GetOrCreateLedgerAccount(ctx context.Context, key LedgerAccountKey) (*models.LedgerAccount, error)
	GetWalletBalance(ctx context.Context, accountID string) (*models.WalletBalance, error)
	UpsertWalletBalance(ctx context.Context, item *models.WalletBalance) error
	CountLedgerEntriesByReference(ctx context.Context, reference string) (int64, error)
	InsertLedgerEntriesTx(ctx context.Context, tx *gorm.DB, items []models.LedgerEntry) error
	ListLedgerEntriesByTransaction(ctx context.Context, transactionID string) ([]models.LedgerEntry, error)
}

type SystemSettingsRepository interface {
	UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error
	GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error)
}

// Repository is the unified store used by the engine.
type Repository interface {
	AuctionRepository
	RiskRepository
	CommissionRepository
	SettlementRepository
	SystemSettingsRepository
}

type AuctionClose struct {
	Status       string
	WinnerID     *string
	FinalPrice   *decimal.Decimal
	HighestBidID *string
}

type LedgerAccountKey struct {
	OwnerType   string
	OwnerID     string
	AccountType string
	Currency    string
}
