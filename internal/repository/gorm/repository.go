package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"quickbid/internal/models"
	"quickbid/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

var _ repository.Repository = (*Store)(nil)

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

func (s *Store) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return s.db.WithContext(ctx)
}

// --- auctions ---------------------------------------------------------------

func (s *Store) GetAuctionByID(ctx context.Context, id string) (*models.Auction, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	var item models.Auction
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) LockAuctionTx(ctx context.Context, tx *gorm.DB, id string) (*models.Auction, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Auction
	err := s.conn(ctx, tx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) AdvanceAuctionPriceTx(ctx context.Context, tx *gorm.DB, id string, price decimal.Decimal, highestBidID string) error {
	if s == nil || s.db == nil {
		return nil
	}
	// The price guard keeps the update monotonic even if a caller skipped the lock.
	res := s.conn(ctx, tx).
		Model(&models.Auction{}).
		Where("id = ?", id).
		Where("current_price < ?", price).
		Updates(map[string]any{
			"current_price":  price,
			"highest_bid_id": highestBidID,
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("auction price not advanced")
	}
	return nil
}

func (s *Store) ExtendAuctionTx(ctx context.Context, tx *gorm.DB, id string, endDate time.Time) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.conn(ctx, tx).
		Model(&models.Auction{}).
		Where("id = ?", id).
		Updates(map[string]any{"end_date": endDate, "updated_at": time.Now().UTC()}).Error
}

func (s *Store) CloseAuctionTx(ctx context.Context, tx *gorm.DB, id string, update repository.AuctionClose) error {
	if s == nil || s.db == nil {
		return nil
	}
	updates := map[string]any{
		"status":     update.Status,
		"updated_at": time.Now().UTC(),
	}
	if update.WinnerID != nil {
		updates["winner_id"] = *update.WinnerID
	}
	if update.FinalPrice != nil {
		updates["final_price"] = *update.FinalPrice
	}
	if update.HighestBidID != nil {
		updates["highest_bid_id"] = *update.HighestBidID
	}
	return s.conn(ctx, tx).Model(&models.Auction{}).Where("id = ?", id).Updates(updates).Error
}

func (s *Store) UpdateAuctionStatus(ctx context.Context, id string, status string) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Auction{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()}).Error
}

func (s *Store) ListAuctionsDueForClose(ctx context.Context, now time.Time, limit int) ([]models.Auction, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	var items []models.Auction
	err := s.db.WithContext(ctx).
		Where("status IN ?", []string{models.AuctionStatusActive, models.AuctionStatusLive}).
		Where("end_date <= ?", now).
		Order("end_date asc").
		Limit(normalizeLimit(limit, 100)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- bids -------------------------------------------------------------------

func (s *Store) InsertBidTx(ctx context.Context, tx *gorm.DB, item *models.Bid) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	return s.conn(ctx, tx).Create(item).Error
}

func (s *Store) GetHighestActiveBidTx(ctx context.Context, tx *gorm.DB, auctionID string) (*models.Bid, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Bid
	err := s.conn(ctx, tx).
		Where("auction_id = ? AND status = ?", auctionID, models.BidStatusActive).
		Order("amount desc").
		Order("created_at desc").
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListActiveBids(ctx context.Context, auctionID string) ([]models.Bid, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Bid
	err := s.db.WithContext(ctx).
		Where("auction_id = ? AND status = ?", auctionID, models.BidStatusActive).
		Order("amount desc").
		Order("created_at desc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- bid ledger -------------------------------------------------------------

func (s *Store) GetLatestBidLedgerEntryTx(ctx context.Context, tx *gorm.DB, auctionID string) (*models.BidLedgerEntry, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.BidLedgerEntry
	err := s.conn(ctx, tx).
		Where("auction_id = ?", auctionID).
		Order("timestamp desc").
		Order("id desc").
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) InsertBidLedgerEntryTx(ctx context.Context, tx *gorm.DB, item *models.BidLedgerEntry) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.conn(ctx, tx).Create(item).Error
}

func (s *Store) ListBidLedgerEntries(ctx context.Context, auctionID string) ([]models.BidLedgerEntry, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.BidLedgerEntry
	err := s.db.WithContext(ctx).
		Where("auction_id = ?", auctionID).
		Order("timestamp asc").
		Order("id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- idempotency ------------------------------------------------------------

func (s *Store) GetIdempotencyRecord(ctx context.Context, key, auctionID, bidderID string) (*models.IdempotencyRecord, error) {
	return s.GetIdempotencyRecordTx(ctx, nil, key, auctionID, bidderID)
}

func (s *Store) GetIdempotencyRecordTx(ctx context.Context, tx *gorm.DB, key, auctionID, bidderID string) (*models.IdempotencyRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.IdempotencyRecord
	err := s.conn(ctx, tx).
		Where("idempotency_key = ? AND auction_id = ? AND bidder_id = ?", key, auctionID, bidderID).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) InsertIdempotencyRecordTx(ctx context.Context, tx *gorm.DB, item *models.IdempotencyRecord) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.conn(ctx, tx).Create(item).Error
}

func (s *Store) DeleteIdempotencyRecordsBefore(ctx context.Context, before time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Where("created_at < ?", before).
		Delete(&models.IdempotencyRecord{})
	return res.RowsAffected, res.Error
}

func (s *Store) InsertNotification(ctx context.Context, item *models.Notification) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

// --- risk -------------------------------------------------------------------

func (s *Store) GetSellerRiskScore(ctx context.Context, sellerID string) (*models.SellerRiskScore, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.SellerRiskScore
	err := s.db.WithContext(ctx).Where("seller_id = ?", sellerID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetUserControls(ctx context.Context, userID string) (*models.UserControls, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.UserControls
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) UpsertUserControls(ctx context.Context, item *models.UserControls) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.UserID) == "" {
		return nil
	}
	item.UpdatedAt = time.Now().UTC()
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status",
			"penalty_points",
			"cooldown_until",
			"cooldown_reason",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) InsertSellerPenalty(ctx context.Context, item *models.SellerPenalty) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

// --- commission -------------------------------------------------------------

func (s *Store) GetActiveCommissionSettings(ctx context.Context) (*models.CommissionSettings, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.CommissionSettings
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("updated_at desc").
		Order("id desc").
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ReplaceActiveCommissionSettings(ctx context.Context, item *models.CommissionSettings) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.CommissionSettings{}).
			Where("is_active = ?", true).
			Update("is_active", false).Error; err != nil {
			return err
		}
		item.ID = 0
		item.IsActive = true
		return tx.Create(item).Error
	})
}

// --- settlement -------------------------------------------------------------

func (s *Store) GetPayoutByID(ctx context.Context, id string) (*models.Payout, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Payout
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetPayoutByReference(ctx context.Context, reference string) (*models.Payout, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Payout
	err := s.db.WithContext(ctx).Where("payout_reference = ?", reference).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) CreatePayout(ctx context.Context, item *models.Payout) (*models.Payout, error) {
	if s == nil || s.db == nil || item == nil {
		return nil, nil
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "payout_reference"}},
		DoNothing: true,
	}).Create(item).Error
	if err != nil {
		return nil, err
	}
	return s.GetPayoutByReference(ctx, item.PayoutReference)
}

func (s *Store) CompletePayout(ctx context.Context, id string, paidAt time.Time) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.Payout{}).
		Where("id = ? AND status = ?", id, models.PayoutStatusPending).
		Updates(map[string]any{
			"status":     models.PayoutStatusCompleted,
			"paid_at":    paidAt,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) GetEscrowAccount(ctx context.Context, auctionID, buyerID string) (*models.EscrowAccount, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.EscrowAccount
	err := s.db.WithContext(ctx).
		Where("auction_id = ? AND buyer_id = ?", auctionID, buyerID).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) UpdateProductStatus(ctx context.Context, productID, status string) error {
	if s == nil || s.db == nil {
		return nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// --- double-entry ledger ----------------------------------------------------

func (s *Store) GetOrCreateLedgerAccount(ctx context.Context, key repository.LedgerAccountKey) (*models.LedgerAccount, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	item := &models.LedgerAccount{
		ID:          uuid.NewString(),
		OwnerType:   key.OwnerType,
		OwnerID:     key.OwnerID,
		AccountType: key.AccountType,
		Currency:    key.Currency,
		Status:      models.LedgerAccountStatusActive,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "owner_type"},
			{Name: "owner_id"},
			{Name: "account_type"},
			{Name: "currency"},
		},
		DoNothing: true,
	}).Create(item).Error
	if err != nil {
		return nil, err
	}
	var out models.LedgerAccount
	err = s.db.WithContext(ctx).
		Where("owner_type = ? AND owner_id = ? AND account_type = ? AND currency = ?",
			key.OwnerType, key.OwnerID, key.AccountType, key.Currency).
		First(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) GetWalletBalance(ctx context.Context, accountID string) (*models.WalletBalance, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.WalletBalance
	err := s.db.WithContext(ctx).Where("account_id = ?", accountID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) UpsertWalletBalance(ctx context.Context, item *models.WalletBalance) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	item.UpdatedAt = time.Now().UTC()
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"balance", "updated_at"}),
	}).Create(item).Error
}

func (s *Store) CountLedgerEntriesByReference(ctx context.Context, reference string) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("reference = ?", reference).
		Count(&n).Error
	return n, err
}

func (s *Store) InsertLedgerEntriesTx(ctx context.Context, tx *gorm.DB, items []models.LedgerEntry) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return s.conn(ctx, tx).Create(&items).Error
}

func (s *Store) ListLedgerEntriesByTransaction(ctx context.Context, transactionID string) ([]models.LedgerEntry, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.LedgerEntry
	err := s.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- system settings --------------------------------------------------------

func (s *Store) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.Key) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "description", "updated_by", "updated_at"}),
	}).Create(item).Error
}

func (s *Store) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	var item models.SystemSetting
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func normalizeLimit(limit int, max int) int {
	if limit <= 0 {
		return max
	}
	if limit > max {
		return max
	}
	return limit
}
