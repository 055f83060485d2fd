package models

import "time"

// IdempotencyRecord stores the first successful response for a
// (key, auction, bidder) triple. The body is kept as text, not jsonb, so the
// replayed bytes match the original.
type IdempotencyRecord struct {
	ID             uint64         `gorm:"primaryKey;autoIncrement"`
	IdempotencyKey string         `gorm:"type:varchar(128);not null;uniqueIndex:uniq_idem_key_auction_bidder,priority:1"`
	AuctionID      string         `gorm:"type:varchar(64);not null;uniqueIndex:uniq_idem_key_auction_bidder,priority:2"`
	BidderID       string         `gorm:"type:varchar(64);not null;uniqueIndex:uniq_idem_key_auction_bidder,priority:3"`
	StatusCode     int            `gorm:"not null"`
	ResponseBody   string         `gorm:"type:text;not null"`
	CreatedAt      time.Time      `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (IdempotencyRecord) TableName() string {
	return "bid_idempotency_keys"
}
