package db

import (
	"quickbid/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	if err := db.Gorm.AutoMigrate(
		// bidding
		&models.Auction{},
		&models.Bid{},
		&models.BidLedgerEntry{},
		&models.IdempotencyRecord{},
		&models.Notification{},
		// risk
		&models.SellerRiskScore{},
		&models.UserControls{},
		&models.SellerPenalty{},
		// settlement
		&models.CommissionSettings{},
		&models.Product{},
		&models.EscrowAccount{},
		&models.Payout{},
		&models.LedgerAccount{},
		&models.LedgerEntry{},
		&models.WalletBalance{},
		&models.SystemSetting{},
	); err != nil {
		return err
	}
	// At most one active commission row.
	return db.Gorm.Exec(
		"CREATE UNIQUE INDEX IF NOT EXISTS uniq_commission_settings_active ON commission_settings (is_active) WHERE is_active",
	).Error
}
