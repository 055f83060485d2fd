// Package ratelimit enforces fixed-window request limits per caller.
package ratelimit

import (
	"context"
	"strconv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/redis/go-redis/v9"
)

type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

type window struct {
	start time.Time
	count int
}

// MemoryLimiter counts per key in process. Idle keys fall out by LRU order.
type MemoryLimiter struct {
	Limit  int
	Window time.Duration
	Now    func() time.Time

	mu      sync.Mutex
	windows *lru.Cache
}

func NewMemoryLimiter(limit int, window time.Duration, maxKeys int) *MemoryLimiter {
	if maxKeys <= 0 {
		maxKeys = 10000
	}
	windows, _ := lru.New(maxKeys)
	return &MemoryLimiter{Limit: limit, Window: window, windows: windows}
}

func (l *MemoryLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	now := time.Now()
	if l.Now != nil {
		now = l.Now()
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	w := &window{start: now}
	if v, ok := l.windows.Get(key); ok {
		if cur := v.(*window); now.Sub(cur.start) < l.Window {
			w = cur
		}
	}
	w.count++
	l.windows.Add(key, w)

	if w.count > l.Limit {
		return Decision{Allowed: false, RetryAfter: w.start.Add(l.Window).Sub(now)}, nil
	}
	return Decision{Allowed: true, Remaining: l.Limit - w.count}, nil
}

// RedisLimiter shares counters between instances.
type RedisLimiter struct {
	Client *redis.Client
	Prefix string
	Limit  int
	Window time.Duration
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	win := l.Window
	if win <= 0 {
		win = 10 * time.Second
	}
	nowMs := time.Now().UnixMilli()
	bucket := nowMs / win.Milliseconds()
	k := l.Prefix + "ratelimit:" + key + ":" + strconv.FormatInt(bucket, 10)

	pipe := l.Client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.PExpire(ctx, k, win)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, err
	}
	n := int(incr.Val())
	if n > l.Limit {
		retry := time.Duration((bucket+1)*win.Milliseconds()-nowMs) * time.Millisecond
		return Decision{Allowed: false, RetryAfter: retry}, nil
	}
	return Decision{Allowed: true, Remaining: l.Limit - n}, nil
}
