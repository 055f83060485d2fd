package commission

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/datatypes"

	"quickbid/internal/apperr"
	"quickbid/internal/cache"
	"quickbid/internal/models"
	"quickbid/internal/repository"
)

const (
	DefaultCacheTTL = 5 * time.Minute

	cacheKey = "commission:active"

	SourceStore   = "store"
	SourceDefault = "default"
)

var hundred = decimal.NewFromInt(100)

// Settings is the effective commission configuration.
type Settings struct {
	ID                      uint64          `json:"id,omitempty"`
	BuyerCommissionPercent  decimal.Decimal `json:"buyerCommissionPercent"`
	SellerCommissionPercent decimal.Decimal `json:"sellerCommissionPercent"`
	PlatformFlatFeeCents    int64           `json:"platformFlatFeeCents"`
	CategoryOverrides       json.RawMessage `json:"categoryOverrides,omitempty"`
	UpdatedBy               string          `json:"updatedBy,omitempty"`
	UpdatedAt               *time.Time      `json:"updatedAt,omitempty"`
	Source                  string          `json:"source"`
}

// Commissions is the fee split of a sale, all in minor units.
type Commissions struct {
	AmountCents           int64 `json:"amountCents"`
	BuyerCommissionCents  int64 `json:"buyerCommissionCents"`
	SellerCommissionCents int64 `json:"sellerCommissionCents"`
	PlatformFlatFeeCents  int64 `json:"platformFlatFeeCents"`
	TotalCommissionCents  int64 `json:"totalCommissionCents"`
	NetToSellerCents      int64 `json:"netToSellerCents"`
}

// FeeToPlatformCents is what escrow routes to the platform on release.
func (c Commissions) FeeToPlatformCents() int64 {
	return c.BuyerCommissionCents + c.SellerCommissionCents + c.PlatformFlatFeeCents
}

func DefaultSettings() Settings {
	return Settings{
		BuyerCommissionPercent:  decimal.NewFromInt(10),
		SellerCommissionPercent: decimal.NewFromInt(3),
		Source:                  SourceDefault,
	}
}

// Engine serves the single active commission record through a TTL cache.
type Engine struct {
	Repo     repository.CommissionRepository
	Cache    cache.Store
	TTL      time.Duration
	Defaults *Settings
	Logger   *zap.Logger

	group singleflight.Group
}

type UpdateInput struct {
	BuyerCommissionPercent  decimal.Decimal
	SellerCommissionPercent decimal.Decimal
	PlatformFlatFeeCents    int64
	CategoryOverrides       json.RawMessage
	UpdatedBy               string
}

func (e *Engine) ttl() time.Duration {
	if e.TTL > 0 {
		return e.TTL
	}
	return DefaultCacheTTL
}

func (e *Engine) defaults() Settings {
	if e.Defaults != nil {
		out := *e.Defaults
		out.Source = SourceDefault
		return out
	}
	return DefaultSettings()
}

// GetActive returns the active settings. It never fails: a missing row or a
// store error yields the defaults.
func (e *Engine) GetActive(ctx context.Context, forceRefresh bool) Settings {
	if !forceRefresh {
		var cached Settings
		if ok, _ := cache.GetJSON(ctx, e.Cache, cacheKey, &cached); ok {
			return cached
		}
	}
	v, _, _ := e.group.Do(cacheKey, func() (any, error) {
		s := e.load(ctx)
		if err := cache.SetJSON(ctx, e.Cache, cacheKey, s, e.ttl()); err != nil && e.Logger != nil {
			e.Logger.Debug("commission: cache write failed", zap.Error(err))
		}
		return s, nil
	})
	return v.(Settings)
}

func (e *Engine) load(ctx context.Context) Settings {
	if e.Repo == nil {
		return e.defaults()
	}
	row, err := e.Repo.GetActiveCommissionSettings(ctx)
	if err != nil {
		if e.Logger != nil {
			e.Logger.Warn("commission: load active settings failed, using defaults", zap.Error(err))
		}
		return e.defaults()
	}
	if row == nil {
		return e.defaults()
	}
	return fromModel(row)
}

func fromModel(row *models.CommissionSettings) Settings {
	updatedAt := row.UpdatedAt
	out := Settings{
		ID:                      row.ID,
		BuyerCommissionPercent:  row.BuyerCommissionPercent,
		SellerCommissionPercent: row.SellerCommissionPercent,
		PlatformFlatFeeCents:    row.PlatformFlatFeeCents,
		UpdatedBy:               row.UpdatedBy,
		UpdatedAt:               &updatedAt,
		Source:                  SourceStore,
	}
	if len(row.CategoryOverrides) > 0 {
		out.CategoryOverrides = json.RawMessage(row.CategoryOverrides)
	}
	return out
}

func (e *Engine) InvalidateCache(ctx context.Context) {
	if e.Cache == nil {
		return
	}
	if err := e.Cache.Delete(ctx, cacheKey); err != nil && e.Logger != nil {
		e.Logger.Warn("commission: cache invalidate failed", zap.Error(err))
	}
}

// ApplyCommissionRules splits amountCents using the active settings.
func (e *Engine) ApplyCommissionRules(ctx context.Context, amountCents int64) Commissions {
	return Compute(e.GetActive(ctx, false), amountCents)
}

// Compute is the pure fee split. Percentages round half away from zero.
func Compute(s Settings, amountCents int64) Commissions {
	amount := decimal.NewFromInt(amountCents)
	buyer := amount.Mul(s.BuyerCommissionPercent).Div(hundred).Round(0).IntPart()
	seller := amount.Mul(s.SellerCommissionPercent).Div(hundred).Round(0).IntPart()
	flat := s.PlatformFlatFeeCents
	return Commissions{
		AmountCents:           amountCents,
		BuyerCommissionCents:  buyer,
		SellerCommissionCents: seller,
		PlatformFlatFeeCents:  flat,
		TotalCommissionCents:  buyer + seller + flat,
		NetToSellerCents:      amountCents - seller - flat,
	}
}

// UpdateSettings stores in as the only active row and drops the cached copy.
func (e *Engine) UpdateSettings(ctx context.Context, in UpdateInput) (Settings, error) {
	if !validPercent(in.BuyerCommissionPercent) || !validPercent(in.SellerCommissionPercent) {
		return Settings{}, apperr.Validation("INVALID_COMMISSION", "commission percent must be between 0 and 100")
	}
	if in.PlatformFlatFeeCents < 0 {
		return Settings{}, apperr.Validation("INVALID_COMMISSION", "platform flat fee must not be negative")
	}
	if len(in.CategoryOverrides) > 0 && !json.Valid(in.CategoryOverrides) {
		return Settings{}, apperr.Validation("INVALID_COMMISSION", "category overrides must be valid json")
	}
	row := &models.CommissionSettings{
		BuyerCommissionPercent:  in.BuyerCommissionPercent,
		SellerCommissionPercent: in.SellerCommissionPercent,
		PlatformFlatFeeCents:    in.PlatformFlatFeeCents,
		IsActive:                true,
		UpdatedBy:               in.UpdatedBy,
	}
	if len(in.CategoryOverrides) > 0 {
		row.CategoryOverrides = datatypes.JSON(in.CategoryOverrides)
	}
	if err := e.Repo.ReplaceActiveCommissionSettings(ctx, row); err != nil {
		return Settings{}, err
	}
	e.InvalidateCache(ctx)
	if e.Logger != nil {
		e.Logger.Info("commission: settings updated",
			zap.Uint64("id", row.ID),
			zap.String("buyer_percent", row.BuyerCommissionPercent.String()),
			zap.String("seller_percent", row.SellerCommissionPercent.String()),
			zap.Int64("flat_fee_cents", row.PlatformFlatFeeCents),
			zap.String("updated_by", row.UpdatedBy),
		)
	}
	return e.GetActive(ctx, true), nil
}

func validPercent(p decimal.Decimal) bool {
	return !p.IsNegative() && p.LessThanOrEqual(hundred)
}
