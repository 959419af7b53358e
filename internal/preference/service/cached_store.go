package service

import (
	"context"
	"time"

	"github.com/smallbiznis/opsdesk/internal/cache"
	"github.com/smallbiznis/opsdesk/internal/clock"
	preferencedomain "github.com/smallbiznis/opsdesk/internal/preference/domain"
)

type cachedValue struct {
	value []byte
	found bool
}

// CachedStore is a read-through cache in front of another Store. Writes go
// to the backing store first and then refresh the cache.
type CachedStore struct {
	next  preferencedomain.Store
	cache cache.Cache[string, cachedValue]
	ttl   time.Duration
}

// NewCachedStore wraps next; a non-positive ttl disables caching.
func NewCachedStore(next preferencedomain.Store, ttl time.Duration) *CachedStore {
	return NewCachedStoreWithClock(next, ttl, clock.SystemClock{})
}

func NewCachedStoreWithClock(next preferencedomain.Store, ttl time.Duration, clk clock.Clock) *CachedStore {
	var c cache.Cache[string, cachedValue] = cache.NoopCache[string, cachedValue]{}
	if ttl > 0 {
		c = cache.NewTTLCacheWithClock[string, cachedValue](clk)
	}
	return &CachedStore{next: next, cache: c, ttl: ttl}
}

func cacheKey(owner, key string) string {
	return owner + "\x00" + key
}

func (s *CachedStore) Get(ctx context.Context, owner, key string) ([]byte, bool, error) {
	if hit, ok := s.cache.Get(cacheKey(owner, key)); ok {
		return append([]byte(nil), hit.value...), hit.found, nil
	}
	value, found, err := s.next.Get(ctx, owner, key)
	if err != nil {
		return nil, false, err
	}
	s.cache.Set(cacheKey(owner, key), cachedValue{value: append([]byte(nil), value...), found: found}, s.ttl)
	return value, found, nil
}

func (s *CachedStore) Put(ctx context.Context, owner, key string, value []byte) error {
	if err := s.next.Put(ctx, owner, key, value); err != nil {
		s.cache.Delete(cacheKey(owner, key))
		return err
	}
	s.cache.Set(cacheKey(owner, key), cachedValue{value: append([]byte(nil), value...), found: true}, s.ttl)
	return nil
}

func (s *CachedStore) Delete(ctx context.Context, owner, key string) error {
	s.cache.Delete(cacheKey(owner, key))
	return s.next.Delete(ctx, owner, key)
}
