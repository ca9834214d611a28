package idempotency

import (
	"context"
	"time"

	"github.com/smallbiznis/monetization/internal/cache"
	"github.com/smallbiznis/monetization/internal/clock"
)

type MemoryStore struct {
	entries cache.Cache[string, string]
}

func NewMemoryStore(clk clock.Clock) *MemoryStore {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &MemoryStore{entries: cache.NewTTLCacheWithClock[string, string](clk.Now)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	value, ok := s.entries.Get(key)
	return value, ok, nil
}

func (s *MemoryStore) PutIfAbsent(_ context.Context, key, value string, ttl time.Duration) (string, bool, error) {
	held, stored := s.entries.SetIfAbsent(key, value, ttl)
	return held, stored, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.entries.Delete(key)
	return nil
}
