// Package memory keeps cache slots in process memory using go-cache.
package memory

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/geo-pricing/internal/repository"
)

type slotStore struct {
	cache *cache.Cache
}

// NewSlotStore returns an in-memory store. retention bounds how long an
// untouched slot is kept (0 keeps slots forever); cleanup is the janitor
// interval for removing them.
func NewSlotStore(retention, cleanup time.Duration) repository.SlotStore {
	if retention <= 0 {
		retention = cache.NoExpiration
	}
	return &slotStore{cache: cache.New(retention, cleanup)}
}

func (s *slotStore) Get(_ context.Context, key string) ([]byte, error) {
	v, found := s.cache.Get(key)
	if !found {
		return nil, repository.ErrNotFound
	}
	b := v.([]byte)
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (s *slotStore) Set(_ context.Context, key string, value []byte) error {
	b := make([]byte, len(value))
	copy(b, value)
	s.cache.Set(key, b, cache.DefaultExpiration)
	return nil
}

func (s *slotStore) Delete(_ context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}

func (s *slotStore) Ping(context.Context) error {
	return nil
}
