package models

import (
	"time"

	"gorm.io/datatypes"
)

type Notification struct {
	ID        uint64         `gorm:"primaryKey;autoIncrement"`
	UserID    string         `gorm:"type:varchar(64);not null;index"`
	Type      string         `gorm:"type:varchar(40);not null"`
	Title     string         `gorm:"type:text"`
	Payload   datatypes.JSON `gorm:"type:jsonb"`
	ReadAt    *time.Time     `gorm:"type:timestamptz"`
	CreatedAt time.Time      `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (Notification) TableName() string {
	return "notifications"
}
