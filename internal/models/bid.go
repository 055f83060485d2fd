package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const BidStatusActive = "active"

// Bid rows are append-only: never updated, never deleted.
type Bid struct {
	ID        string          `gorm:"type:varchar(64);primaryKey"`
	AuctionID string          `gorm:"type:varchar(64);not null;index:idx_bids_auction_amount,priority:1"`
	BidderID  string          `gorm:"type:varchar(64);not null;index"`
	Amount    decimal.Decimal `gorm:"type:numeric(20,2);not null;index:idx_bids_auction_amount,priority:2"`
	Status    string          `gorm:"type:varchar(20);not null;default:'active'"`
	CreatedAt time.Time       `gorm:"type:timestamptz;not null"`
}

func (Bid) TableName() string {
	return "bids"
}
