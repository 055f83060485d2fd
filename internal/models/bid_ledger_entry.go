package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BidLedgerEntry is one link of the per-auction hash chain. Audit trail only;
// the auction row stays the source of truth for price.
type BidLedgerEntry struct {
	ID        uint64          `gorm:"primaryKey;autoIncrement"`
	AuctionID string          `gorm:"type:varchar(64);not null;index:idx_bid_ledger_auction_ts,priority:1"`
	BidID     string          `gorm:"type:varchar(64);not null;uniqueIndex"`
	BidderID  string          `gorm:"type:varchar(64);not null"`
	Amount    decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	Timestamp time.Time       `gorm:"type:timestamptz;not null;index:idx_bid_ledger_auction_ts,priority:2"`
	PrevHash  *string         `gorm:"type:char(64)"`
	Hash      string          `gorm:"type:char(64);not null;uniqueIndex"`
}

func (BidLedgerEntry) TableName() string {
	return "bid_ledger"
}
