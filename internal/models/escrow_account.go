package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const EscrowStatusFunded = "FUNDED"

type EscrowAccount struct {
	ID        string          `gorm:"type:varchar(64);primaryKey"`
	AuctionID string          `gorm:"type:varchar(64);not null;uniqueIndex:uniq_escrow_auction_buyer,priority:1"`
	BuyerID   string          `gorm:"type:varchar(64);not null;uniqueIndex:uniq_escrow_auction_buyer,priority:2"`
	EscrowID  string          `gorm:"type:varchar(128);not null"`
	Amount    decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0"`
	Status    string          `gorm:"type:varchar(20);not null"`
	CreatedAt time.Time       `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"type:timestamptz;autoUpdateTime"`
}

func (EscrowAccount) TableName() string {
	return "escrow_accounts"
}
