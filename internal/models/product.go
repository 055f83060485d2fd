package models

import "time"

const ProductStatusSettled = "settled"

type Product struct {
	ID        string    `gorm:"type:varchar(64);primaryKey"`
	SellerID  string    `gorm:"type:varchar(64);index"`
	Title     string    `gorm:"type:text"`
	Status    string    `gorm:"type:varchar(20);not null;default:'listed'"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Product) TableName() string {
	return "products"
}
