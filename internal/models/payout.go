package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PayoutStatusPending   = "pending"
	PayoutStatusCompleted = "completed"
)

type Payout struct {
	ID               string          `gorm:"type:varchar(64);primaryKey"`
	SellerID         string          `gorm:"type:varchar(64);index"`
	ProductID        string          `gorm:"type:varchar(64);index"`
	SalePrice        decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	CommissionAmount decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	NetPayout        decimal.Decimal `gorm:"type:numeric(20,2);not null"`

	// Fee split frozen when the payout is created; releases and replays
	// read it instead of the live commission settings.
	AmountCents           int64 `gorm:"not null;default:0"`
	BuyerCommissionCents  int64 `gorm:"not null;default:0"`
	SellerCommissionCents int64 `gorm:"not null;default:0"`
	PlatformFlatFeeCents  int64 `gorm:"not null;default:0"`
	NetToSellerCents      int64 `gorm:"not null;default:0"`

	// PayoutReference is the settling auction's id.
	PayoutReference string `gorm:"type:varchar(64);not null;uniqueIndex"`

	Status    string     `gorm:"type:varchar(20);not null;default:'pending';index"`
	PaidAt    *time.Time `gorm:"type:timestamptz"`
	CreatedAt time.Time  `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Payout) TableName() string {
	return "payouts"
}
