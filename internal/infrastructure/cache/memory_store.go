package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMaxEntries bounds a MemoryStore created with a non-positive size
const DefaultMaxEntries = 1000

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore is a bounded in-process Store.
// Reads use Peek so lookups never refresh recency: once full, the entry
// inserted first is the one evicted. Expired entries are dropped lazily
// when they are looked up.
type MemoryStore struct {
	// mu serializes Set so that re-inserting a key always moves it to the
	// newest position
	mu    sync.Mutex
	cache *lru.Cache[string, memoryEntry]
	now   func() time.Time
}

// NewMemoryStore creates a MemoryStore holding at most maxEntries keys
func NewMemoryStore(maxEntries int) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	// lru.New only fails on a non-positive size
	c, _ := lru.New[string, memoryEntry](maxEntries)
	return &MemoryStore{cache: c, now: time.Now}
}

// Get implements Store
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	entry, ok := s.cache.Peek(key)
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		s.cache.Remove(key)
		return nil, false, nil
	}
	return entry.value, true, nil
}

// Set implements Store. A zero ttl never expires.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Remove(key)
	s.cache.Add(key, entry)
	return nil
}

// DeletePrefix implements Store
func (s *MemoryStore) DeletePrefix(_ context.Context, prefix string) error {
	for _, key := range s.cache.Keys() {
		if strings.HasPrefix(key, prefix) {
			s.cache.Remove(key)
		}
	}
	return nil
}

// Len returns the number of stored entries, expired ones included
func (s *MemoryStore) Len() int {
	return s.cache.Len()
}

var _ Store = (*MemoryStore)(nil)
