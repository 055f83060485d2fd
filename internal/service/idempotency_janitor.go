package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"quickbid/internal/repository"
)

const DefaultIdempotencyTTL = 24 * time.Hour

// IdempotencyJanitor forgets idempotency keys older than TTL.
type IdempotencyJanitor struct {
	Repo   repository.AuctionRepository
	TTL    time.Duration
	Flags  *SystemSettingsService
	Logger *zap.Logger
	Now    func() time.Time
}

func (j *IdempotencyJanitor) RunOnceIfEnabled(ctx context.Context) error {
	if j != nil && j.Flags != nil && !j.Flags.IsEnabled(ctx, FeatureIdempotencyJanitor, true) {
		return nil
	}
	_, err := j.RunOnce(ctx)
	return err
}

func (j *IdempotencyJanitor) RunOnce(ctx context.Context) (int64, error) {
	if j == nil || j.Repo == nil {
		return 0, nil
	}
	ttl := j.TTL
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	now := time.Now().UTC()
	if j.Now != nil {
		now = j.Now().UTC()
	}
	n, err := j.Repo.DeleteIdempotencyRecordsBefore(ctx, now.Add(-ttl))
	if err != nil {
		return 0, err
	}
	if n > 0 && j.Logger != nil {
		j.Logger.Info("idempotency: expired keys removed", zap.Int64("count", n))
	}
	return n, nil
}
