package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"quickbid/internal/keylock"
	"quickbid/internal/models"
	"quickbid/internal/realtime"
)

func TestAuctionFinalizer_ClosesDueAuctions(t *testing.T) {
	repo := newStubRepo()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo.auctions["won"] = &models.Auction{ID: "won", Status: models.AuctionStatusLive, CurrentPrice: dec("150"), StartDate: now.Add(-2 * time.Hour), EndDate: now.Add(-time.Minute)}
	repo.auctions["empty"] = &models.Auction{ID: "empty", Status: models.AuctionStatusActive, StartDate: now.Add(-2 * time.Hour), EndDate: now.Add(-time.Second)}
	repo.auctions["open"] = &models.Auction{ID: "open", Status: models.AuctionStatusActive, StartDate: now.Add(-2 * time.Hour), EndDate: now.Add(time.Hour)}
	repo.bids = []models.Bid{
		{ID: "b1", AuctionID: "won", BidderID: "alice", Amount: dec("120"), Status: models.BidStatusActive, CreatedAt: now.Add(-30 * time.Minute)},
		{ID: "b2", AuctionID: "won", BidderID: "bob", Amount: dec("150"), Status: models.BidStatusActive, CreatedAt: now.Add(-20 * time.Minute)},
	}
	pub := &recordingPublisher{}
	f := &AuctionFinalizer{
		Repo:      repo,
		Stats:     &LiveStatsService{Repo: repo},
		Publisher: pub,
		Locks:     keylock.New(8),
		Now:       func() time.Time { return now },
	}

	n, err := f.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if n != 2 {
		t.Fatalf("closed=%d want=2", n)
	}
	won := repo.auctions["won"]
	if won.Status != models.AuctionStatusEnded || won.WinnerID == nil || *won.WinnerID != "bob" || !won.FinalPrice.Equal(dec("150")) {
		t.Fatalf("won=%+v", won)
	}
	if empty := repo.auctions["empty"]; empty.Status != models.AuctionStatusEnded || empty.WinnerID != nil {
		t.Fatalf("empty=%+v", empty)
	}
	if repo.auctions["open"].Status != models.AuctionStatusActive {
		t.Fatalf("open auction closed early")
	}
	events := pub.byEvent(realtime.EventAuctionFinalized)
	if len(events) != 2 {
		t.Fatalf("auction_finalized events=%d want=2", len(events))
	}

	if n, _ := f.RunOnce(context.Background()); n != 0 {
		t.Fatalf("second run closed=%d want=0", n)
	}
}

func TestAuctionFinalizer_RespectsSwitch(t *testing.T) {
	repo := newStubRepo()
	now := time.Now().UTC()
	repo.auctions["a"] = &models.Auction{ID: "a", Status: models.AuctionStatusActive, EndDate: now.Add(-time.Minute)}
	flags := &SystemSettingsService{Repo: repo}
	if err := flags.SetEnabled(context.Background(), FeatureAuctionFinalizer, false, "ops"); err != nil {
		t.Fatalf("err=%v", err)
	}
	f := &AuctionFinalizer{Repo: repo, Flags: flags}
	if err := f.RunOnceIfEnabled(context.Background()); err != nil {
		t.Fatalf("err=%v", err)
	}
	if repo.auctions["a"].Status != models.AuctionStatusActive {
		t.Fatalf("finalizer ran while disabled")
	}
}

func TestIdempotencyJanitor(t *testing.T) {
	repo := newStubRepo()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo.idem["old"] = models.IdempotencyRecord{IdempotencyKey: "old", CreatedAt: now.Add(-25 * time.Hour)}
	repo.idem["new"] = models.IdempotencyRecord{IdempotencyKey: "new", CreatedAt: now.Add(-time.Hour)}
	j := &IdempotencyJanitor{Repo: repo, TTL: 24 * time.Hour, Now: func() time.Time { return now }}

	n, err := j.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if n != 1 {
		t.Fatalf("deleted=%d want=1", n)
	}
	if _, ok := repo.idem["new"]; !ok {
		t.Fatalf("fresh record deleted")
	}
}

func TestComputeStats(t *testing.T) {
	if got := computeStats(nil); got.TotalBids != 0 || got.HighestBidder != nil || !got.HighestBid.IsZero() || got.LastBidTime != nil {
		t.Fatalf("empty=%+v", got)
	}
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	bids := []models.Bid{
		{BidderID: "bob", Amount: dec("130"), CreatedAt: t0.Add(2 * time.Minute)},
		{BidderID: "alice", Amount: dec("120"), CreatedAt: t0.Add(time.Minute)},
		{BidderID: "bob", Amount: dec("110"), CreatedAt: t0},
	}
	got := computeStats(bids)
	if got.TotalBids != 3 || got.ActiveBidders != 2 || *got.HighestBidder != "bob" || !got.HighestBid.Equal(dec("130")) {
		t.Fatalf("stats=%+v", got)
	}
	if got.BidsPerMinute != 1.5 {
		t.Fatalf("bidsPerMinute=%v want=1.5", got.BidsPerMinute)
	}
	if !got.LastBidTime.Equal(t0.Add(2 * time.Minute)) {
		t.Fatalf("lastBidTime=%v", got.LastBidTime)
	}

	raw, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("marshal err=%v", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatalf("decode err=%v", err)
	}
	if string(fields["highestBid"]) != "130" {
		t.Fatalf("highestBid=%s want=130", fields["highestBid"])
	}

	// A single bid spans the one-second floor.
	one := computeStats(bids[:1])
	if one.BidsPerMinute != 60 {
		t.Fatalf("bidsPerMinute=%v want=60", one.BidsPerMinute)
	}
}

func TestSystemSettings_Defaults(t *testing.T) {
	repo := newStubRepo()
	s := &SystemSettingsService{Repo: repo}
	ctx := context.Background()
	if err := s.SetEnabled(ctx, FeatureOutbidNotification, false, "ops"); err != nil {
		t.Fatalf("err=%v", err)
	}
	if err := s.EnsureDefaultSwitches(ctx); err != nil {
		t.Fatalf("err=%v", err)
	}
	sw := s.Switches(ctx)
	if sw[FeatureOutbidNotification] {
		t.Fatalf("operator value overwritten")
	}
	if !sw[FeatureAuctionFinalizer] || !sw[FeatureIdempotencyJanitor] {
		t.Fatalf("switches=%v", sw)
	}
}
