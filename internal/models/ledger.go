package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	LedgerOwnerSeller   = "seller"
	LedgerOwnerPlatform = "platform"

	LedgerAccountSellerWallet     = "seller_wallet"
	LedgerAccountPlatformClearing = "platform_clearing"

	LedgerAccountStatusActive = "active"
)

// LedgerAccount is created lazily per (owner, account type, currency).
// Platform accounts have an empty owner id.
type LedgerAccount struct {
	ID          string    `gorm:"type:varchar(64);primaryKey"`
	OwnerType   string    `gorm:"type:varchar(20);not null;uniqueIndex:uniq_ledger_account_owner,priority:1"`
	OwnerID     string    `gorm:"type:varchar(64);not null;default:'';uniqueIndex:uniq_ledger_account_owner,priority:2"`
	AccountType string    `gorm:"type:varchar(32);not null;uniqueIndex:uniq_ledger_account_owner,priority:3"`
	Currency    string    `gorm:"type:varchar(8);not null;uniqueIndex:uniq_ledger_account_owner,priority:4"`
	Status      string    `gorm:"type:varchar(20);not null;default:'active'"`
	CreatedAt   time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (LedgerAccount) TableName() string {
	return "ledger_accounts"
}

type LedgerEntry struct {
	ID            uint64          `gorm:"primaryKey;autoIncrement"`
	TransactionID string          `gorm:"type:varchar(64);not null;index"`
	AccountID     string          `gorm:"type:varchar(64);not null;index"`
	Reference     string          `gorm:"type:varchar(96);not null;index"`
	Debit         decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0"`
	Credit        decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0"`
	BalanceAfter  decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	Timestamp     time.Time       `gorm:"type:timestamptz;not null"`
}

func (LedgerEntry) TableName() string {
	return "ledger_entries"
}

// WalletBalance is a denormalized running balance; ledger_entries wins on
// reconciliation.
type WalletBalance struct {
	AccountID string          `gorm:"type:varchar(64);primaryKey"`
	Balance   decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0"`
	UpdatedAt time.Time       `gorm:"type:timestamptz;autoUpdateTime"`
}

func (WalletBalance) TableName() string {
	return "wallet_balances"
}
