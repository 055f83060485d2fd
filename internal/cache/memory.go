package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

type memItem struct {
	v       []byte
	expires time.Time
	noexp   bool
}

// MemoryStore is a bounded in-process store. Entries are evicted by LRU
// order when full and lazily on read once expired.
type MemoryStore struct {
	items *lru.Cache
	now   Clock
}

func NewMemoryStore(size int) *MemoryStore {
	return NewMemoryStoreWithClock(size, SystemClock)
}

func NewMemoryStoreWithClock(size int, now Clock) *MemoryStore {
	if size <= 0 {
		size = 1024
	}
	if now == nil {
		now = SystemClock
	}
	// lru.New only fails on a non-positive size.
	items, _ := lru.New(size)
	return &MemoryStore{items: items, now: now}
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	_ = ctx
	raw, ok := s.items.Get(key)
	if !ok {
		return nil, false, nil
	}
	it := raw.(memItem)
	if !it.noexp && !s.now().Before(it.expires) {
		s.items.Remove(key)
		return nil, false, nil
	}
	return clone(it.v), true, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_ = ctx
	it := memItem{v: clone(value)}
	if ttl <= 0 {
		it.noexp = true
	} else {
		it.expires = s.now().Add(ttl)
	}
	s.items.Add(key, it)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	_ = ctx
	s.items.Remove(key)
	return nil
}

func clone(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
