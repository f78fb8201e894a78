package kv

import (
	"context"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// entry remembers when it was stored so a clock other than the wall clock can
// expire it. A zero ttl never expires.
type entry struct {
	value    []byte
	storedAt time.Time
	ttl      time.Duration
}

func (e entry) valid(now time.Time) bool {
	return e.ttl <= 0 || now.Sub(e.storedAt) < e.ttl
}

// MemoryStore is an in-process Store on ttlcache. Its lifetime is the
// lifetime of the value; nothing is shared between instances.
type MemoryStore struct {
	cache *ttlcache.Cache[string, entry]
	now   func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		// Reads must not extend an entry's lifetime.
		cache: ttlcache.New[string, entry](ttlcache.WithDisableTouchOnHit[string, entry]()),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	cacheTTL := ttl
	if ttl <= 0 {
		cacheTTL = ttlcache.NoTTL
	}
	s.cache.Set(key, entry{
		value:    append([]byte(nil), value...),
		storedAt: s.now(),
		ttl:      ttl,
	}, cacheTTL)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	item := s.cache.Get(key)
	if item == nil {
		return nil, ErrNotFound
	}
	e := item.Value()
	if !e.valid(s.now()) {
		s.cache.Delete(key)
		return nil, ErrNotFound
	}
	return append([]byte(nil), e.value...), nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}

func (s *MemoryStore) DeletePrefix(_ context.Context, prefix string) error {
	for _, k := range s.cache.Keys() {
		if strings.HasPrefix(k, prefix) {
			s.cache.Delete(k)
		}
	}
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (s *MemoryStore) Len() int {
	return s.cache.Len()
}

func (s *MemoryStore) Close() error {
	s.cache.DeleteAll()
	return nil
}

var _ Store = (*MemoryStore)(nil)
