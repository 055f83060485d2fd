package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"gorm.io/datatypes"

	"quickbid/internal/models"
	"quickbid/internal/repository"
)

const (
	FeatureAuctionFinalizer   = "feature.auction_finalizer"
	FeatureIdempotencyJanitor = "feature.idempotency_janitor"
	FeatureOutbidNotification = "feature.outbid_notification"
)

func DefaultFeatureSwitches() map[string]bool {
	return map[string]bool{
		FeatureAuctionFinalizer:   true,
		FeatureIdempotencyJanitor: true,
		FeatureOutbidNotification: true,
	}
}

// SystemSettingsService stores feature switches as JSON booleans.
type SystemSettingsService struct {
	Repo repository.SystemSettingsRepository
}

// EnsureDefaultSwitches writes missing switches. Existing values are left as
// an operator set them.
func (s *SystemSettingsService) EnsureDefaultSwitches(ctx context.Context) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	now := time.Now().UTC()
	for key, enabled := range DefaultFeatureSwitches() {
		existing, err := s.Repo.GetSystemSettingByKey(ctx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		raw, _ := json.Marshal(enabled)
		item := &models.SystemSetting{
			Key:         key,
			Value:       datatypes.JSON(raw),
			Description: "feature switch",
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.Repo.UpsertSystemSetting(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

func (s *SystemSettingsService) IsEnabled(ctx context.Context, key string, fallback bool) bool {
	if s == nil || s.Repo == nil {
		return fallback
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fallback
	}
	item, err := s.Repo.GetSystemSettingByKey(ctx, key)
	if err != nil || item == nil || len(item.Value) == 0 {
		return fallback
	}
	var enabled bool
	if err := json.Unmarshal(item.Value, &enabled); err != nil {
		return fallback
	}
	return enabled
}

func (s *SystemSettingsService) SetEnabled(ctx context.Context, key string, enabled bool, updatedBy string) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	raw, _ := json.Marshal(enabled)
	item := &models.SystemSetting{
		Key:         key,
		Value:       datatypes.JSON(raw),
		Description: "feature switch",
		UpdatedBy:   updatedBy,
		UpdatedAt:   time.Now().UTC(),
	}
	return s.Repo.UpsertSystemSetting(ctx, item)
}

// Switches lists every known switch with its current value.
func (s *SystemSettingsService) Switches(ctx context.Context) map[string]bool {
	out := DefaultFeatureSwitches()
	for key, def := range out {
		out[key] = s.IsEnabled(ctx, key, def)
	}
	return out
}
