package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	ControlStatusNormal  = "normal"
	ControlStatusLimited = "limited"
	ControlStatusBlocked = "blocked"
	ControlStatusFlagged = "flagged"

	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

type SellerRiskScore struct {
	SellerID  string    `gorm:"type:varchar(64);primaryKey"`
	RiskScore float64   `gorm:"not null;default:0"`
	RiskLevel string    `gorm:"type:varchar(20);not null;default:'low'"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (SellerRiskScore) TableName() string {
	return "seller_risk_scores"
}

// UserControls is the authoritative restriction row for a user.
type UserControls struct {
	UserID         string     `gorm:"type:varchar(64);primaryKey"`
	Status         string     `gorm:"type:varchar(20);not null;default:'normal'"`
	PenaltyPoints  int        `gorm:"not null;default:0"`
	CooldownUntil  *time.Time `gorm:"type:timestamptz"`
	CooldownReason *string    `gorm:"type:text"`
	UpdatedAt      time.Time  `gorm:"type:timestamptz;autoUpdateTime"`
}

func (UserControls) TableName() string {
	return "user_controls"
}

// SellerPenalty rows are immutable once written.
type SellerPenalty struct {
	ID          uint64         `gorm:"primaryKey;autoIncrement"`
	SellerID    string         `gorm:"type:varchar(64);not null;index"`
	PenaltyType string         `gorm:"type:varchar(50);not null"`
	Severity    string         `gorm:"type:varchar(20);not null"`
	Points      int            `gorm:"not null"`
	Reason      *string        `gorm:"type:text"`
	Evidence    datatypes.JSON `gorm:"type:jsonb"`
	AppliedBy   *string        `gorm:"type:varchar(64)"`
	CreatedAt   time.Time      `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (SellerPenalty) TableName() string {
	return "seller_penalties"
}
