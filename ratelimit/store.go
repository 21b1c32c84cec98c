// Quota stores.
//
// Information Hiding:
// - Counter persistence hidden behind QuotaStore
// - Stale window cleanup hidden

package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// QuotaStore counts requests per client per quota window.
type QuotaStore interface {
	// Increment adds one to key's count for the window starting at window
	// and returns the new count. Counts from earlier windows are discarded.
	Increment(ctx context.Context, key string, window time.Time) (int64, error)
	Close() error
}

// Store kinds accepted by OpenStore.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// OpenStore opens the store named by kind. target is the SQLite path or
// the Redis URL and is ignored for memory.
func OpenStore(ctx context.Context, kind, target string) (QuotaStore, error) {
	switch kind {
	case "", StoreMemory:
		return NewMemoryStore(), nil
	case StoreSQLite:
		return OpenSQLiteStore(target)
	case StoreRedis:
		return NewRedisStore(ctx, target)
	default:
		return nil, fmt.Errorf("unknown quota store %q (use memory, sqlite or redis)", kind)
	}
}

type memoryCount struct {
	window time.Time
	count  int64
}

// MemoryStore keeps counts in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	counts map[string]memoryCount
	// latest is the newest window seen; counts are pruned when it advances.
	latest time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counts: make(map[string]memoryCount)}
}

// Increment implements QuotaStore.
func (s *MemoryStore) Increment(ctx context.Context, key string, window time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if window.After(s.latest) {
		s.latest = window
		s.prune(window)
	}
	c := s.counts[key]
	if !c.window.Equal(window) {
		c = memoryCount{window: window}
	}
	c.count++
	s.counts[key] = c
	return c.count, nil
}

// prune drops every count from a window before current.
func (s *MemoryStore) prune(current time.Time) {
	for k, c := range s.counts {
		if c.window.Before(current) {
			delete(s.counts, k)
		}
	}
}

// Close implements QuotaStore.
func (s *MemoryStore) Close() error {
	return nil
}

var _ QuotaStore = (*MemoryStore)(nil)
