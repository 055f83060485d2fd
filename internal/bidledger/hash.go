// Package bidledger computes and verifies the per-auction bid hash chain.
package bidledger

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"quickbid/internal/models"
)

// TimestampLayout is the textual form of the entry timestamp fed to the hash.
// Postgres keeps microseconds, so timestamps are truncated before hashing.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// ComputeEntryHash returns hex(SHA256(prevHash ∥ auctionID ∥ bidID ∥ bidderID ∥ amount ∥ timestamp)).
// A missing previous hash contributes the empty string.
//
// The amount is rendered with exactly two decimals so that 1200 and 1200.00
// hash identically.
func ComputeEntryHash(prevHash *string, auctionID, bidID, bidderID string, amount decimal.Decimal, ts time.Time) string {
	prev := ""
	if prevHash != nil {
		prev = *prevHash
	}
	data := prev + auctionID + bidID + bidderID + amount.StringFixed(2) + FormatTimestamp(ts)
	return fmt.Sprintf("%x", sha256.Sum256([]byte(data)))
}

func FormatTimestamp(ts time.Time) string {
	return NormalizeTimestamp(ts).Format(TimestampLayout)
}

func NormalizeTimestamp(ts time.Time) time.Time {
	return ts.UTC().Truncate(time.Microsecond)
}

// NextTimestamp returns a timestamp strictly after the previous link so that
// ordering by timestamp reproduces append order.
func NextTimestamp(prev *models.BidLedgerEntry, now time.Time) time.Time {
	now = NormalizeTimestamp(now)
	if prev == nil {
		return now
	}
	last := NormalizeTimestamp(prev.Timestamp)
	if !now.After(last) {
		return last.Add(time.Microsecond)
	}
	return now
}

// NewEntry builds the next link of the chain after prev (nil for the first).
func NewEntry(prev *models.BidLedgerEntry, bid models.Bid, now time.Time) models.BidLedgerEntry {
	ts := NextTimestamp(prev, now)
	var prevHash *string
	if prev != nil {
		h := prev.Hash
		prevHash = &h
	}
	return models.BidLedgerEntry{
		AuctionID: bid.AuctionID,
		BidID:     bid.ID,
		BidderID:  bid.BidderID,
		Amount:    bid.Amount,
		Timestamp: ts,
		PrevHash:  prevHash,
		Hash:      ComputeEntryHash(prevHash, bid.AuctionID, bid.ID, bid.BidderID, bid.Amount, ts),
	}
}

// VerifyResult reports the first broken link, if any. BrokenAt is -1 for an
// intact chain.
type VerifyResult struct {
	Entries  int    `json:"entries"`
	Valid    bool   `json:"valid"`
	BrokenAt int    `json:"broken_at"`
	Reason   string `json:"reason,omitempty"`
}

// Verify checks entries already ordered by timestamp.
func Verify(entries []models.BidLedgerEntry) VerifyResult {
	res := VerifyResult{Entries: len(entries), Valid: true, BrokenAt: -1}
	var prev *models.BidLedgerEntry
	for i := range entries {
		e := entries[i]
		switch {
		case prev == nil && e.PrevHash != nil:
			return broken(res, i, "first entry has prev_hash")
		case prev != nil && (e.PrevHash == nil || *e.PrevHash != prev.Hash):
			return broken(res, i, "prev_hash mismatch")
		}
		want := ComputeEntryHash(e.PrevHash, e.AuctionID, e.BidID, e.BidderID, e.Amount, e.Timestamp)
		if want != e.Hash {
			return broken(res, i, "hash mismatch")
		}
		prev = &entries[i]
	}
	return res
}

func broken(res VerifyResult, i int, reason string) VerifyResult {
	res.Valid = false
	res.BrokenAt = i
	res.Reason = reason
	return res
}
