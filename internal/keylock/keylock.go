// Package keylock serializes work per aggregate key inside one process.
// Keys are hashed onto a fixed set of mutexes, so unrelated keys may share a
// stripe; never hold two stripes at once.
package keylock

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

const DefaultStripes = 256

type Striped struct {
	stripes []sync.Mutex
}

func New(n int) *Striped {
	if n <= 0 {
		n = DefaultStripes
	}
	return &Striped{stripes: make([]sync.Mutex, n)}
}

func (s *Striped) stripe(key string) *sync.Mutex {
	return &s.stripes[xxhash.Sum64String(key)%uint64(len(s.stripes))]
}

// Lock acquires the stripe for key and returns its release func.
func (s *Striped) Lock(key string) func() {
	m := s.stripe(key)
	m.Lock()
	return m.Unlock
}

// Do runs fn while holding the stripe for key.
func (s *Striped) Do(key string, fn func() error) error {
	unlock := s.Lock(key)
	defer unlock()
	return fn()
}
