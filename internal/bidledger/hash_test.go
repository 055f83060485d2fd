package bidledger

import (
	"crypto/sha256"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"quickbid/internal/models"
)

func TestComputeEntryHash_ExactFormula(t *testing.T) {
	ts := time.Date(2026, 3, 1, 10, 0, 0, 123456789, time.UTC)
	prev := "abc"
	got := ComputeEntryHash(&prev, "auc-1", "bid-1", "user-1", decimal.NewFromInt(1200), ts)

	data := "abc" + "auc-1" + "bid-1" + "user-1" + "1200.00" + "2026-03-01T10:00:00.123456Z"
	want := fmt.Sprintf("%x", sha256.Sum256([]byte(data)))
	if got != want {
		t.Fatalf("hash=%s want=%s", got, want)
	}
	if len(got) != 64 {
		t.Fatalf("hash length=%d want 64", len(got))
	}
}

func TestComputeEntryHash_NilPrevIsEmpty(t *testing.T) {
	ts := time.Unix(1700000000, 0)
	empty := ""
	a := ComputeEntryHash(nil, "a", "b", "c", decimal.NewFromInt(1), ts)
	b := ComputeEntryHash(&empty, "a", "b", "c", decimal.NewFromInt(1), ts)
	if a != b {
		t.Fatalf("nil prev hash should hash like empty string")
	}
}

func TestComputeEntryHash_AmountScaleInsensitive(t *testing.T) {
	ts := time.Unix(1700000000, 0)
	a := ComputeEntryHash(nil, "a", "b", "c", decimal.RequireFromString("1200"), ts)
	b := ComputeEntryHash(nil, "a", "b", "c", decimal.RequireFromString("1200.00"), ts)
	if a != b {
		t.Fatalf("1200 and 1200.00 should hash identically")
	}
}

func buildChain(n int) []models.BidLedgerEntry {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	var out []models.BidLedgerEntry
	var prev *models.BidLedgerEntry
	for i := 0; i < n; i++ {
		bid := models.Bid{
			ID:        fmt.Sprintf("bid-%d", i),
			AuctionID: "auc-1",
			BidderID:  fmt.Sprintf("user-%d", i%3),
			Amount:    decimal.NewFromInt(int64(1000 + 100*i)),
		}
		e := NewEntry(prev, bid, base)
		out = append(out, e)
		prev = &out[len(out)-1]
	}
	return out
}

func TestNewEntry_LinksAndStrictlyIncreasingTimestamps(t *testing.T) {
	chain := buildChain(5)
	if chain[0].PrevHash != nil {
		t.Fatalf("first entry prev_hash=%v want nil", *chain[0].PrevHash)
	}
	for i := 1; i < len(chain); i++ {
		if chain[i].PrevHash == nil || *chain[i].PrevHash != chain[i-1].Hash {
			t.Fatalf("entry %d not linked to %d", i, i-1)
		}
		if !chain[i].Timestamp.After(chain[i-1].Timestamp) {
			t.Fatalf("entry %d timestamp not after previous", i)
		}
	}
	if res := Verify(chain); !res.Valid {
		t.Fatalf("verify=%+v want valid", res)
	}
}

func TestVerify_DetectsTampering(t *testing.T) {
	chain := buildChain(4)
	chain[2].Amount = decimal.NewFromInt(999999)
	res := Verify(chain)
	if res.Valid || res.BrokenAt != 2 || res.Reason != "hash mismatch" {
		t.Fatalf("verify=%+v want broken at 2 (hash mismatch)", res)
	}
}

func TestVerify_DetectsReordering(t *testing.T) {
	chain := buildChain(4)
	chain[1], chain[2] = chain[2], chain[1]
	res := Verify(chain)
	if res.Valid || res.BrokenAt != 1 {
		t.Fatalf("verify=%+v want broken at 1", res)
	}
}
