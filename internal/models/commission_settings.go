package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type CommissionSettings struct {
	ID                      uint64          `gorm:"primaryKey;autoIncrement"`
	BuyerCommissionPercent  decimal.Decimal `gorm:"type:numeric(6,3);not null"`
	SellerCommissionPercent decimal.Decimal `gorm:"type:numeric(6,3);not null"`
	PlatformFlatFeeCents    int64           `gorm:"not null;default:0"`

	// CategoryOverrides is reserved; nothing reads it yet.
	CategoryOverrides datatypes.JSON `gorm:"type:jsonb"`

	IsActive  bool      `gorm:"not null;default:false;index"`
	UpdatedBy string    `gorm:"type:varchar(64)"`
	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime;index"`
}

func (CommissionSettings) TableName() string {
	return "commission_settings"
}
