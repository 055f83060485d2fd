package service

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"quickbid/internal/models"
	"quickbid/internal/repository"
)

type stubRepo struct {
	mu sync.Mutex

	auctions      map[string]*models.Auction
	bids          []models.Bid
	chain         []models.BidLedgerEntry
	idem          map[string]models.IdempotencyRecord
	onLock        func()
	notifications []models.Notification

	scores   map[string]*models.SellerRiskScore
	controls map[string]*models.UserControls

	commission *models.CommissionSettings

	payouts        map[string]*models.Payout
	escrows        map[string]*models.EscrowAccount
	products       map[string]string
	accounts       map[repository.LedgerAccountKey]*models.LedgerAccount
	balances       map[string]decimal.Decimal
	ledgerEntries  []models.LedgerEntry
	settings       map[string]*models.SystemSetting
	statusUpdates  []string
	completeCalls  int
	failInsertBid  error
	failLedgerPair error
	writes         int
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		auctions: map[string]*models.Auction{},
		idem:     map[string]models.IdempotencyRecord{},
		scores:   map[string]*models.SellerRiskScore{},
		controls: map[string]*models.UserControls{},
		payouts:  map[string]*models.Payout{},
		escrows:  map[string]*models.EscrowAccount{},
		products: map[string]string{},
		accounts: map[repository.LedgerAccountKey]*models.LedgerAccount{},
		balances: map[string]decimal.Decimal{},
		settings: map[string]*models.SystemSetting{},
	}
}

func (s *stubRepo) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func (s *stubRepo) GetAuctionByID(ctx context.Context, id string) (*models.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.auctions[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (s *stubRepo) LockAuctionTx(ctx context.Context, tx *gorm.DB, id string) (*models.Auction, error) {
	if s.onLock != nil {
		s.onLock()
	}
	return s.GetAuctionByID(ctx, id)
}

func (s *stubRepo) AdvanceAuctionPriceTx(ctx context.Context, tx *gorm.DB, id string, price decimal.Decimal, highestBidID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.auctions[id]
	if !ok || !a.CurrentPrice.LessThan(price) {
		return errors.New("price not advanced")
	}
	s.writes++
	a.CurrentPrice = price
	a.HighestBidID = &highestBidID
	return nil
}

func (s *stubRepo) ExtendAuctionTx(ctx context.Context, tx *gorm.DB, id string, endDate time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	s.auctions[id].EndDate = endDate
	return nil
}

func (s *stubRepo) CloseAuctionTx(ctx context.Context, tx *gorm.DB, id string, update repository.AuctionClose) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.auctions[id]
	a.Status = update.Status
	a.WinnerID = update.WinnerID
	a.FinalPrice = update.FinalPrice
	if update.HighestBidID != nil {
		a.HighestBidID = update.HighestBidID
	}
	return nil
}

func (s *stubRepo) UpdateAuctionStatus(ctx context.Context, id string, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.auctions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	a.Status = status
	s.statusUpdates = append(s.statusUpdates, status)
	return nil
}

func (s *stubRepo) ListAuctionsDueForClose(ctx context.Context, now time.Time, limit int) ([]models.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Auction
	for _, a := range s.auctions {
		if a.Biddable() && !now.Before(a.EndDate) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndDate.Before(out[j].EndDate) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubRepo) InsertBidTx(ctx context.Context, tx *gorm.DB, item *models.Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failInsertBid != nil {
		return s.failInsertBid
	}
	s.writes++
	s.bids = append(s.bids, *item)
	return nil
}

func (s *stubRepo) sortedActiveBids(auctionID string) []models.Bid {
	var out []models.Bid
	for _, b := range s.bids {
		if b.AuctionID == auctionID && b.Status == models.BidStatusActive {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Amount.Equal(out[j].Amount) {
			return out[i].Amount.GreaterThan(out[j].Amount)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *stubRepo) GetHighestActiveBidTx(ctx context.Context, tx *gorm.DB, auctionID string) (*models.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bids := s.sortedActiveBids(auctionID)
	if len(bids) == 0 {
		return nil, nil
	}
	return &bids[0], nil
}

func (s *stubRepo) ListActiveBids(ctx context.Context, auctionID string) ([]models.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedActiveBids(auctionID), nil
}

func (s *stubRepo) GetLatestBidLedgerEntryTx(ctx context.Context, tx *gorm.DB, auctionID string) (*models.BidLedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *models.BidLedgerEntry
	for i := range s.chain {
		e := s.chain[i]
		if e.AuctionID != auctionID {
			continue
		}
		if latest == nil || e.Timestamp.After(latest.Timestamp) {
			cp := e
			latest = &cp
		}
	}
	return latest, nil
}

func (s *stubRepo) InsertBidLedgerEntryTx(ctx context.Context, tx *gorm.DB, item *models.BidLedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	item.ID = uint64(len(s.chain) + 1)
	s.chain = append(s.chain, *item)
	return nil
}

func (s *stubRepo) ListBidLedgerEntries(ctx context.Context, auctionID string) ([]models.BidLedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.BidLedgerEntry
	for _, e := range s.chain {
		if e.AuctionID == auctionID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func idemKey(key, auctionID, bidderID string) string {
	return key + "|" + auctionID + "|" + bidderID
}

func (s *stubRepo) GetIdempotencyRecord(ctx context.Context, key, auctionID, bidderID string) (*models.IdempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.idem[idemKey(key, auctionID, bidderID)]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *stubRepo) GetIdempotencyRecordTx(ctx context.Context, tx *gorm.DB, key, auctionID, bidderID string) (*models.IdempotencyRecord, error) {
	return s.GetIdempotencyRecord(ctx, key, auctionID, bidderID)
}

func (s *stubRepo) InsertIdempotencyRecordTx(ctx context.Context, tx *gorm.DB, item *models.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := idemKey(item.IdempotencyKey, item.AuctionID, item.BidderID)
	if _, ok := s.idem[k]; ok {
		return errors.New("duplicate idempotency key")
	}
	s.idem[k] = *item
	return nil
}

func (s *stubRepo) DeleteIdempotencyRecordsBefore(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k, rec := range s.idem {
		if rec.CreatedAt.Before(before) {
			delete(s.idem, k)
			n++
		}
	}
	return n, nil
}

func (s *stubRepo) InsertNotification(ctx context.Context, item *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, *item)
	return nil
}

func (s *stubRepo) GetSellerRiskScore(ctx context.Context, sellerID string) (*models.SellerRiskScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scores[sellerID], nil
}

func (s *stubRepo) GetUserControls(ctx context.Context, userID string) (*models.UserControls, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.controls[userID]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *stubRepo) UpsertUserControls(ctx context.Context, item *models.UserControls) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *item
	s.controls[item.UserID] = &cp
	return nil
}

func (s *stubRepo) InsertSellerPenalty(ctx context.Context, item *models.SellerPenalty) error {
	return nil
}

func (s *stubRepo) GetActiveCommissionSettings(ctx context.Context) (*models.CommissionSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commission, nil
}

func (s *stubRepo) ReplaceActiveCommissionSettings(ctx context.Context, item *models.CommissionSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *item
	s.commission = &cp
	return nil
}

func (s *stubRepo) GetPayoutByID(ctx context.Context, id string) (*models.Payout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payouts {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) GetPayoutByReference(ctx context.Context, reference string) (*models.Payout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payouts[reference]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (s *stubRepo) CreatePayout(ctx context.Context, item *models.Payout) (*models.Payout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.payouts[item.PayoutReference]; ok {
		cp := *p
		return &cp, nil
	}
	cp := *item
	s.payouts[item.PayoutReference] = &cp
	out := cp
	return &out, nil
}

func (s *stubRepo) CompletePayout(ctx context.Context, id string, paidAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completeCalls++
	for _, p := range s.payouts {
		if p.ID == id {
			if p.Status != models.PayoutStatusPending {
				return false, nil
			}
			p.Status = models.PayoutStatusCompleted
			p.PaidAt = &paidAt
			return true, nil
		}
	}
	return false, gorm.ErrRecordNotFound
}

func (s *stubRepo) GetEscrowAccount(ctx context.Context, auctionID, buyerID string) (*models.EscrowAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.escrows[auctionID+"|"+buyerID]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (s *stubRepo) UpdateProductStatus(ctx context.Context, productID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[productID] = status
	return nil
}

func (s *stubRepo) GetOrCreateLedgerAccount(ctx context.Context, key repository.LedgerAccountKey) (*models.LedgerAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[key]; ok {
		cp := *a
		return &cp, nil
	}
	a := &models.LedgerAccount{
		ID:          "acct-" + strconv.Itoa(len(s.accounts)+1),
		OwnerType:   key.OwnerType,
		OwnerID:     key.OwnerID,
		AccountType: key.AccountType,
		Currency:    key.Currency,
		Status:      models.LedgerAccountStatusActive,
	}
	s.accounts[key] = a
	cp := *a
	return &cp, nil
}

func (s *stubRepo) GetWalletBalance(ctx context.Context, accountID string) (*models.WalletBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.balances[accountID]
	if !ok {
		return nil, nil
	}
	return &models.WalletBalance{AccountID: accountID, Balance: b}, nil
}

func (s *stubRepo) UpsertWalletBalance(ctx context.Context, item *models.WalletBalance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[item.AccountID] = item.Balance
	return nil
}

func (s *stubRepo) CountLedgerEntriesByReference(ctx context.Context, reference string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, e := range s.ledgerEntries {
		if e.Reference == reference {
			n++
		}
	}
	return n, nil
}

func (s *stubRepo) InsertLedgerEntriesTx(ctx context.Context, tx *gorm.DB, items []models.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failLedgerPair != nil {
		return s.failLedgerPair
	}
	s.ledgerEntries = append(s.ledgerEntries, items...)
	return nil
}

func (s *stubRepo) ListLedgerEntriesByTransaction(ctx context.Context, transactionID string) ([]models.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.LedgerEntry
	for _, e := range s.ledgerEntries {
		if e.TransactionID == transactionID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *stubRepo) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *item
	s.settings[item.Key] = &cp
	return nil
}

func (s *stubRepo) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.settings[key]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

var _ repository.Repository = (*stubRepo)(nil)

type published struct {
	room    string
	event   string
	payload any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(ctx context.Context, room, event string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{room: room, event: event, payload: payload})
	return nil
}

func (p *recordingPublisher) byEvent(event string) []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []published
	for _, e := range p.events {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}
