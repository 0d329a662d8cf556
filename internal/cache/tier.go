// Package cache implements the two-tier search result cache. Tiers are
// pluggable so multi-instance deployments can share a backing store.
package cache

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Tier is a bounded key/value store with per-entry expiry.
type Tier interface {
	// Get returns the stored payload. Expired entries are misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// HitCounter counts observations of a key.
type HitCounter interface {
	// Incr adds one observation and returns the new count.
	Incr(ctx context.Context, key string) (int, error)
}

type entry struct {
	data     []byte
	storedAt time.Time
}

// MemoryTier is a process-local Tier. Lookups never refresh recency, so
// eviction removes the oldest insertion first.
type MemoryTier struct {
	entries *lru.Cache[string, entry]
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryTier creates a tier holding at most size entries for ttl each.
func NewMemoryTier(size int, ttl time.Duration, now func() time.Time) (*MemoryTier, error) {
	entries, err := lru.New[string, entry](size)
	if err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryTier{entries: entries, ttl: ttl, now: now}, nil
}

func (t *MemoryTier) Get(_ context.Context, key string) ([]byte, bool, error) {
	e, ok := t.entries.Peek(key)
	if !ok {
		return nil, false, nil
	}
	if t.now().Sub(e.storedAt) > t.ttl {
		t.entries.Remove(key)
		return nil, false, nil
	}
	return e.data, true, nil
}

func (t *MemoryTier) Set(_ context.Context, key string, value []byte) error {
	// Re-adding moves the key to the newest position.
	t.entries.Remove(key)
	t.entries.Add(key, entry{data: value, storedAt: t.now()})
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (t *MemoryTier) Len() int {
	return t.entries.Len()
}

// MemoryHitCounter is a bounded process-local HitCounter. The least recently
// observed keys are forgotten first.
type MemoryHitCounter struct {
	mu     sync.Mutex
	counts *lru.Cache[string, int]
}

func NewMemoryHitCounter(size int) (*MemoryHitCounter, error) {
	counts, err := lru.New[string, int](size)
	if err != nil {
		return nil, err
	}
	return &MemoryHitCounter{counts: counts}, nil
}

func (c *MemoryHitCounter) Incr(_ context.Context, key string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, _ := c.counts.Get(key)
	n++
	c.counts.Add(key, n)
	return n, nil
}
