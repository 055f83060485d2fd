package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	AuctionStatusScheduled          = "scheduled"
	AuctionStatusActive             = "active"
	AuctionStatusLive               = "live"
	AuctionStatusEnded              = "ended"
	AuctionStatusAwaitingFunds      = "awaiting_funds"
	AuctionStatusPaymentPending     = "payment_pending"
	AuctionStatusPaymentUnderReview = "payment_under_review"
	AuctionStatusCompleted          = "completed"
)

type Auction struct {
	ID        string `gorm:"type:varchar(64);primaryKey"`
	ProductID string `gorm:"type:varchar(64);index"`
	SellerID  string `gorm:"type:varchar(64);index"`

	Status          string          `gorm:"type:varchar(32);not null;default:'scheduled';index"`
	CurrentPrice    decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0"`
	IncrementAmount decimal.Decimal `gorm:"type:numeric(20,2);not null;default:1"`

	StartDate time.Time `gorm:"type:timestamptz;not null"`
	EndDate   time.Time `gorm:"type:timestamptz;not null;index"`

	WinnerID     *string          `gorm:"type:varchar(64)"`
	FinalPrice   *decimal.Decimal `gorm:"type:numeric(20,2)"`
	HighestBidID *string          `gorm:"type:varchar(64)"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Auction) TableName() string {
	return "auctions"
}

// Biddable reports whether the status admits new bids.
func (a Auction) Biddable() bool {
	return a.Status == AuctionStatusActive || a.Status == AuctionStatusLive
}
