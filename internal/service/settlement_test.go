package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"quickbid/internal/apperr"
	"quickbid/internal/commission"
	"quickbid/internal/escrow"
	"quickbid/internal/keylock"
	"quickbid/internal/models"
)

type stubEscrow struct {
	calls  []escrow.ReleaseRequest
	result escrow.ReleaseResult
	err    error
}

func (s *stubEscrow) Release(ctx context.Context, req escrow.ReleaseRequest) (escrow.ReleaseResult, error) {
	s.calls = append(s.calls, req)
	return s.result, s.err
}

func seedEndedAuction(repo *stubRepo, id string, finalPrice string, funded bool) {
	winner := "buyer-1"
	price := dec(finalPrice)
	repo.auctions[id] = &models.Auction{
		ID:         id,
		ProductID:  "prod-" + id,
		SellerID:   "seller-1",
		Status:     models.AuctionStatusEnded,
		WinnerID:   &winner,
		FinalPrice: &price,
	}
	status := "PENDING"
	if funded {
		status = models.EscrowStatusFunded
	}
	repo.escrows[id+"|"+winner] = &models.EscrowAccount{AuctionID: id, BuyerID: winner, EscrowID: "esc-" + id, Amount: price, Status: status}
}

func newCoordinator(repo *stubRepo, esc *stubEscrow) *SettlementCoordinator {
	repo.commission = &models.CommissionSettings{
		BuyerCommissionPercent:  decimal.NewFromInt(10),
		SellerCommissionPercent: decimal.NewFromInt(3),
		PlatformFlatFeeCents:    5000,
		IsActive:                true,
	}
	return &SettlementCoordinator{
		Repo:       repo,
		Commission: &commission.Engine{Repo: repo},
		Escrow:     esc,
		Ledger:     &SettlementLedger{Repo: repo},
		Locks:      keylock.New(8),
	}
}

func TestSettle_HappyPath(t *testing.T) {
	repo := newStubRepo()
	seedEndedAuction(repo, "a1", "1000.00", true)
	esc := &stubEscrow{result: escrow.ReleaseResult{OK: true}}
	c := newCoordinator(repo, esc)

	res, err := c.Settle(context.Background(), "a1")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !res.OK || res.Status != SettleStatusSettled || res.PayoutID == "" {
		t.Fatalf("res=%+v", res)
	}
	want := commission.Commissions{
		AmountCents:           100000,
		BuyerCommissionCents:  10000,
		SellerCommissionCents: 3000,
		PlatformFlatFeeCents:  5000,
		TotalCommissionCents:  18000,
		NetToSellerCents:      92000,
	}
	if res.Commissions != want {
		t.Fatalf("commissions=%+v want=%+v", res.Commissions, want)
	}
	if len(esc.calls) != 1 {
		t.Fatalf("escrow calls=%d want=1", len(esc.calls))
	}
	call := esc.calls[0]
	if call.NetToSellerCents != 92000 || call.FeeToPlatformCents != 18000 || call.Reference != "settle:a1" || call.EscrowID != "esc-a1" {
		t.Fatalf("release=%+v", call)
	}
	p := repo.payouts["a1"]
	if p.Status != models.PayoutStatusCompleted || p.PaidAt == nil {
		t.Fatalf("payout=%+v", p)
	}
	if !p.NetPayout.Equal(dec("920")) || !p.CommissionAmount.Equal(dec("30")) || !p.SalePrice.Equal(dec("1000")) {
		t.Fatalf("payout amounts=%s/%s/%s", p.SalePrice, p.CommissionAmount, p.NetPayout)
	}
	if repo.auctions["a1"].Status != models.AuctionStatusCompleted {
		t.Fatalf("auction status=%s", repo.auctions["a1"].Status)
	}
	if repo.products["prod-a1"] != models.ProductStatusSettled {
		t.Fatalf("product status=%q", repo.products["prod-a1"])
	}
	if len(repo.ledgerEntries) != 2 {
		t.Fatalf("ledger entries=%d want=2", len(repo.ledgerEntries))
	}
}

func TestSettle_Idempotent(t *testing.T) {
	repo := newStubRepo()
	seedEndedAuction(repo, "a1", "1000.00", true)
	esc := &stubEscrow{result: escrow.ReleaseResult{OK: true}}
	c := newCoordinator(repo, esc)
	ctx := context.Background()

	first, err := c.Settle(ctx, "a1")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	second, err := c.Settle(ctx, "a1")
	if err != nil {
		t.Fatalf("second err=%v", err)
	}
	if !second.OK || second.Status != SettleStatusAlreadyCompleted || second.PayoutID != first.PayoutID {
		t.Fatalf("second=%+v", second)
	}
	if second.Commissions != first.Commissions {
		t.Fatalf("commissions changed: %+v vs %+v", second.Commissions, first.Commissions)
	}
	if len(esc.calls) != 1 {
		t.Fatalf("escrow calls=%d want=1", len(esc.calls))
	}
	if len(repo.payouts) != 1 || len(repo.ledgerEntries) != 2 {
		t.Fatalf("payouts=%d ledger=%d", len(repo.payouts), len(repo.ledgerEntries))
	}
}

func TestSettle_AwaitingFunds(t *testing.T) {
	repo := newStubRepo()
	seedEndedAuction(repo, "a1", "1000.00", false)
	esc := &stubEscrow{result: escrow.ReleaseResult{OK: true}}
	c := newCoordinator(repo, esc)

	res, err := c.Settle(context.Background(), "a1")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if res.OK || res.Status != SettleStatusAwaitingFunds || res.Message != "escrow not funded; marked auction awaiting_funds" {
		t.Fatalf("res=%+v", res)
	}
	if res.Commissions.NetToSellerCents != 92000 {
		t.Fatalf("commissions=%+v", res.Commissions)
	}
	if repo.auctions["a1"].Status != models.AuctionStatusAwaitingFunds {
		t.Fatalf("status=%s", repo.auctions["a1"].Status)
	}
	if len(esc.calls) != 0 {
		t.Fatalf("escrow calls=%d want=0", len(esc.calls))
	}
	if p := repo.payouts["a1"]; p == nil || p.Status != models.PayoutStatusPending {
		t.Fatalf("payout=%+v want pending", p)
	}

	// Funding arrives; the same pending payout is reused.
	repo.escrows["a1|buyer-1"].Status = models.EscrowStatusFunded
	pendingID := repo.payouts["a1"].ID
	res, err = c.Settle(context.Background(), "a1")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !res.OK || res.PayoutID != pendingID {
		t.Fatalf("res=%+v pending=%s", res, pendingID)
	}
}

func TestSettle_PendingPayoutKeepsSplitAcrossSettingsChange(t *testing.T) {
	repo := newStubRepo()
	seedEndedAuction(repo, "a1", "1000.00", false)
	esc := &stubEscrow{result: escrow.ReleaseResult{OK: true}}
	c := newCoordinator(repo, esc)
	ctx := context.Background()

	pending, err := c.Settle(ctx, "a1")
	if err != nil || pending.Status != SettleStatusAwaitingFunds {
		t.Fatalf("pending=%+v err=%v", pending, err)
	}

	repo.commission.SellerCommissionPercent = decimal.NewFromInt(5)
	repo.commission.BuyerCommissionPercent = decimal.NewFromInt(12)
	c.Commission.InvalidateCache(ctx)
	if got := c.Commission.ApplyCommissionRules(ctx, 100000); got.NetToSellerCents != 90000 {
		t.Fatalf("live split=%+v want net 90000", got)
	}

	repo.escrows["a1|buyer-1"].Status = models.EscrowStatusFunded
	res, err := c.Settle(ctx, "a1")
	if err != nil || !res.OK {
		t.Fatalf("res=%+v err=%v", res, err)
	}
	if res.Commissions != pending.Commissions {
		t.Fatalf("commissions=%+v want=%+v", res.Commissions, pending.Commissions)
	}
	if len(esc.calls) != 1 {
		t.Fatalf("escrow calls=%d want=1", len(esc.calls))
	}
	call := esc.calls[0]
	if call.NetToSellerCents != 92000 || call.FeeToPlatformCents != 18000 {
		t.Fatalf("release=%+v want net=92000 fee=18000", call)
	}
	p := repo.payouts["a1"]
	if ToCents(p.NetPayout) != call.NetToSellerCents {
		t.Fatalf("payout net=%s release net=%d", p.NetPayout, call.NetToSellerCents)
	}
	credit := repo.ledgerEntries[len(repo.ledgerEntries)-1]
	if !credit.Credit.Equal(p.NetPayout) {
		t.Fatalf("ledger credit=%s payout net=%s", credit.Credit, p.NetPayout)
	}

	again, err := c.Settle(ctx, "a1")
	if err != nil || again.Status != SettleStatusAlreadyCompleted || again.Commissions != pending.Commissions {
		t.Fatalf("again=%+v err=%v", again, err)
	}
}

func TestPayoutCommissions_LegacyRow(t *testing.T) {
	p := &models.Payout{SalePrice: dec("1000"), CommissionAmount: dec("30"), NetPayout: dec("920")}
	got := PayoutCommissions(p)
	if got.AmountCents != 100000 || got.SellerCommissionCents != 3000 || got.NetToSellerCents != 92000 || got.PlatformFlatFeeCents != 5000 {
		t.Fatalf("got=%+v", got)
	}
}

func TestSettle_EscrowFailureIsUpstream(t *testing.T) {
	repo := newStubRepo()
	seedEndedAuction(repo, "a1", "1000.00", true)

	for _, esc := range []*stubEscrow{
		{result: escrow.ReleaseResult{OK: false, Status: 500, Body: "boom"}},
		{err: errors.New("timeout")},
	} {
		c := newCoordinator(repo, esc)
		_, err := c.Settle(context.Background(), "a1")
		e := apperr.From(err)
		if e == nil || e.Status() != 502 {
			t.Fatalf("err=%v want 502", err)
		}
		if _, ok := e.Meta["upstreamBody"]; ok {
			t.Fatalf("meta=%v exposes upstream body", e.Meta)
		}
		if repo.payouts["a1"].Status != models.PayoutStatusPending {
			t.Fatalf("payout advanced on escrow failure")
		}
		if repo.auctions["a1"].Status != models.AuctionStatusEnded {
			t.Fatalf("auction advanced on escrow failure: %s", repo.auctions["a1"].Status)
		}
		if len(repo.ledgerEntries) != 0 {
			t.Fatalf("ledger written on escrow failure")
		}
	}
}

func TestSettle_Preconditions(t *testing.T) {
	repo := newStubRepo()
	c := newCoordinator(repo, &stubEscrow{})
	ctx := context.Background()

	if _, err := c.Settle(ctx, "missing"); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("err=%v want not found", err)
	}
	repo.auctions["nowinner"] = &models.Auction{ID: "nowinner", Status: models.AuctionStatusEnded}
	if _, err := c.Settle(ctx, "nowinner"); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("err=%v want validation", err)
	}
	seedEndedAuction(repo, "done", "50", true)
	repo.auctions["done"].Status = models.AuctionStatusCompleted
	if _, err := c.Settle(ctx, "done"); !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("err=%v want conflict", err)
	}
}

func TestSettlementLedger_BalanceInvariant(t *testing.T) {
	repo := newStubRepo()
	repo.payouts["a1"] = &models.Payout{ID: "p1", SellerID: "s1", NetPayout: dec("920.00"), PayoutReference: "a1", Status: models.PayoutStatusCompleted}
	repo.payouts["a2"] = &models.Payout{ID: "p2", SellerID: "s1", NetPayout: dec("80.50"), PayoutReference: "a2", Status: models.PayoutStatusCompleted}
	l := &SettlementLedger{Repo: repo}
	ctx := context.Background()

	first, err := l.RecordSettlementForPayout(ctx, "p1")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if first.Skipped || len(first.Entries) != 2 {
		t.Fatalf("posting=%+v", first)
	}
	debit, credit := first.Entries[0], first.Entries[1]
	if debit.TransactionID != credit.TransactionID {
		t.Fatalf("transaction ids differ")
	}
	if !debit.Debit.Equal(credit.Credit) || !debit.Credit.IsZero() || !credit.Debit.IsZero() {
		t.Fatalf("unbalanced pair: %+v / %+v", debit, credit)
	}
	if !debit.BalanceAfter.Equal(dec("-920")) || !credit.BalanceAfter.Equal(dec("920")) {
		t.Fatalf("balances=%s/%s", debit.BalanceAfter, credit.BalanceAfter)
	}

	if _, err := l.RecordSettlementForPayout(ctx, "p2"); err != nil {
		t.Fatalf("err=%v", err)
	}
	again, err := l.RecordSettlementForPayout(ctx, "p1")
	if err != nil || !again.Skipped {
		t.Fatalf("repeat=%+v err=%v want skipped", again, err)
	}

	sumDebit, sumCredit := decimal.Zero, decimal.Zero
	for _, e := range repo.ledgerEntries {
		sumDebit = sumDebit.Add(e.Debit)
		sumCredit = sumCredit.Add(e.Credit)
	}
	if !sumDebit.Equal(sumCredit) || len(repo.ledgerEntries) != 4 {
		t.Fatalf("debits=%s credits=%s entries=%d", sumDebit, sumCredit, len(repo.ledgerEntries))
	}
	total := decimal.Zero
	for _, b := range repo.balances {
		total = total.Add(b)
	}
	if !total.IsZero() {
		t.Fatalf("balances sum=%s want=0", total)
	}
}

func TestSettlementLedger_EdgeCases(t *testing.T) {
	repo := newStubRepo()
	repo.payouts["z"] = &models.Payout{ID: "pz", SellerID: "s1", NetPayout: decimal.Zero, PayoutReference: "z"}
	repo.payouts["n"] = &models.Payout{ID: "pn", NetPayout: dec("10"), PayoutReference: "n"}
	l := &SettlementLedger{Repo: repo}
	ctx := context.Background()

	if res, err := l.RecordSettlementForPayout(ctx, "pz"); err != nil || !res.Skipped {
		t.Fatalf("zero net res=%+v err=%v", res, err)
	}
	if _, err := l.RecordSettlementForPayout(ctx, "pn"); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("missing seller err=%v", err)
	}
	if _, err := l.RecordSettlementForPayout(ctx, "nope"); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("missing payout err=%v", err)
	}
	repo.payouts["f"] = &models.Payout{ID: "pf", SellerID: "s1", NetPayout: dec("5"), PayoutReference: "f"}
	repo.failLedgerPair = errors.New("disk full")
	if _, err := l.RecordSettlementForPayout(ctx, "pf"); apperr.From(err).Status() != 500 {
		t.Fatalf("pair write err=%v want 500", err)
	}
}

func TestPayoutService_Complete(t *testing.T) {
	repo := newStubRepo()
	repo.payouts["a1"] = &models.Payout{ID: "p1", SellerID: "s1", NetPayout: dec("100"), PayoutReference: "a1", Status: models.PayoutStatusPending}
	svc := &PayoutService{Repo: repo, Ledger: &SettlementLedger{Repo: repo}}
	ctx := context.Background()

	status, err := svc.Complete(ctx, "p1")
	if err != nil || status != PayoutCompleted {
		t.Fatalf("status=%s err=%v", status, err)
	}
	status, err = svc.Complete(ctx, "p1")
	if err != nil || status != PayoutAlreadyCompleted {
		t.Fatalf("status=%s err=%v", status, err)
	}
	if len(repo.ledgerEntries) != 2 {
		t.Fatalf("ledger entries=%d want=2", len(repo.ledgerEntries))
	}
	if _, err := svc.Complete(ctx, "missing"); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("err=%v want not found", err)
	}
}
