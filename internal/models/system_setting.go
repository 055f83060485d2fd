package models

import (
	"time"

	"gorm.io/datatypes"
)

// SystemSetting is a runtime switch or value keyed by name, for example
// feature.auction_finalizer = true.
type SystemSetting struct {
	ID    uint64         `gorm:"primaryKey;autoIncrement"`
	Key   string         `gorm:"type:varchar(120);not null;uniqueIndex"`
	Value datatypes.JSON `gorm:"type:jsonb;not null"`

	Description string    `gorm:"type:text"`
	UpdatedBy   string    `gorm:"type:varchar(64)"`
	CreatedAt   time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"type:timestamptz;autoUpdateTime;index"`
}

func (SystemSetting) TableName() string {
	return "system_settings"
}
