package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/shopple/internal/cache"
)

// CacheTier is a shared cache tier stored in cache_entries, bounded by
// capacity and expired by ttl. It lets several replicas share search results.
type CacheTier struct {
	db       dbtx
	tier     string
	capacity int
	ttl      time.Duration
	now      func() time.Time
}

var _ cache.Tier = (*CacheTier)(nil)

func NewCacheTier(pool *pgxpool.Pool, tier string, capacity int, ttl time.Duration) *CacheTier {
	return &CacheTier{db: pool, tier: tier, capacity: capacity, ttl: ttl, now: time.Now}
}

func (c *CacheTier) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var payload []byte
	var storedAt time.Time
	err := c.db.QueryRow(ctx,
		`SELECT payload, stored_at FROM cache_entries WHERE tier = $1 AND key = $2`,
		c.tier, key,
	).Scan(&payload, &storedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get %s: %w", c.tier, err)
	}

	if c.now().Sub(storedAt) > c.ttl {
		if _, err := c.db.Exec(ctx,
			`DELETE FROM cache_entries WHERE tier = $1 AND key = $2 AND stored_at = $3`,
			c.tier, key, storedAt,
		); err != nil {
			return nil, false, fmt.Errorf("cache expire %s: %w", c.tier, err)
		}
		return nil, false, nil
	}
	return payload, true, nil
}

func (c *CacheTier) Set(ctx context.Context, key string, payload []byte) error {
	_, err := c.db.Exec(ctx,
		`INSERT INTO cache_entries (tier, key, payload, stored_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (tier, key) DO UPDATE SET payload = EXCLUDED.payload, stored_at = EXCLUDED.stored_at`,
		c.tier, key, payload, c.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("cache set %s: %w", c.tier, err)
	}

	if c.capacity <= 0 {
		return nil
	}
	_, err = c.db.Exec(ctx,
		`DELETE FROM cache_entries WHERE tier = $1 AND key IN (
		   SELECT key FROM cache_entries WHERE tier = $1
		   ORDER BY stored_at DESC, key OFFSET $2
		 )`,
		c.tier, c.capacity,
	)
	if err != nil {
		return fmt.Errorf("cache prune %s: %w", c.tier, err)
	}
	return nil
}

// HitCounter counts repeated unfiltered queries in cache_hits, keeping the
// most recently touched capacity keys.
type HitCounter struct {
	db       dbtx
	capacity int
}

var _ cache.HitCounter = (*HitCounter)(nil)

func NewHitCounter(pool *pgxpool.Pool, capacity int) *HitCounter {
	return &HitCounter{db: pool, capacity: capacity}
}

func (h *HitCounter) Incr(ctx context.Context, key string) (int, error) {
	var hits int
	err := h.db.QueryRow(ctx,
		`INSERT INTO cache_hits (key, hits, updated_at) VALUES ($1, 1, now())
		 ON CONFLICT (key) DO UPDATE SET hits = cache_hits.hits + 1, updated_at = now()
		 RETURNING hits`,
		key,
	).Scan(&hits)
	if err != nil {
		return 0, fmt.Errorf("cache hits: %w", err)
	}

	if h.capacity > 0 {
		if _, err := h.db.Exec(ctx,
			`DELETE FROM cache_hits WHERE key IN (
			   SELECT key FROM cache_hits ORDER BY updated_at DESC, key OFFSET $1
			 )`,
			h.capacity,
		); err != nil {
			return 0, fmt.Errorf("cache hits prune: %w", err)
		}
	}
	return hits, nil
}
