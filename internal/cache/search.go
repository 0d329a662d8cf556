package cache

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/cloo-solutions/shopple/internal/metrics"
)

// Source reports which tier answered a lookup.
type Source string

const (
	SourceNone    Source = ""
	SourceShort   Source = "short"
	SourcePopular Source = "popular"
)

// Key identifies a product search.
type Key struct {
	Query    string
	Category string
	Stores   []string
	Limit    int
}

func normalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// Short is the short-tier key: query, category, sorted stores and limit.
func (k Key) Short() string {
	stores := append([]string(nil), k.Stores...)
	sort.Strings(stores)
	return normalizeQuery(k.Query) + "|" + k.Category + "|" + strings.Join(stores, ",") + "|" + strconv.Itoa(k.Limit)
}

// Popular is the popular-tier key: the normalized query and limit. The limit
// shapes the stored result set, so it is part of the key.
func (k Key) Popular() string {
	return normalizeQuery(k.Query) + "|" + strconv.Itoa(k.Limit)
}

// Popularity is the hit-counter key. Hits are counted per query, whatever the
// limit.
func (k Key) Popularity() string {
	return normalizeQuery(k.Query)
}

// PopularEligible reports whether the search carries no category or store
// filter.
func (k Key) PopularEligible() bool {
	return k.Category == "" && len(k.Stores) == 0
}

// SearchCache combines a short-lived tier keyed by query and filters with a
// popular-query tier that only admits queries seen Threshold times.
type SearchCache struct {
	short     Tier
	popular   Tier
	hits      HitCounter
	threshold int
	metrics   *metrics.Metrics
}

// Config wires a SearchCache.
type Config struct {
	Short     Tier
	Popular   Tier
	Hits      HitCounter
	Threshold int
	Metrics   *metrics.Metrics
}

// New returns a SearchCache. A nil *SearchCache disables caching.
func New(cfg Config) *SearchCache {
	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = 3
	}
	return &SearchCache{
		short:     cfg.Short,
		popular:   cfg.Popular,
		hits:      cfg.Hits,
		threshold: threshold,
		metrics:   cfg.Metrics,
	}
}

// Lookup checks the popular tier for eligible searches, then the short tier.
// Backend errors are logged and treated as misses.
func (c *SearchCache) Lookup(ctx context.Context, key Key) ([]byte, Source) {
	if c == nil {
		return nil, SourceNone
	}
	if key.PopularEligible() {
		if data, ok := c.get(ctx, c.popular, SourcePopular, key.Popular()); ok {
			return data, SourcePopular
		}
	}
	if data, ok := c.get(ctx, c.short, SourceShort, key.Short()); ok {
		return data, SourceShort
	}
	return nil, SourceNone
}

func (c *SearchCache) get(ctx context.Context, tier Tier, source Source, key string) ([]byte, bool) {
	data, ok, err := tier.Get(ctx, key)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("tier", string(source)).Msg("search cache lookup failed")
		ok = false
	}
	c.metrics.CacheLookup(string(source), ok)
	return data, ok
}

// Store records a freshly computed payload. Eligible searches count toward
// popular promotion; every search lands in the short tier.
func (c *SearchCache) Store(ctx context.Context, key Key, payload []byte) {
	if c == nil {
		return
	}
	if key.PopularEligible() {
		n, err := c.hits.Incr(ctx, key.Popularity())
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("search cache hit count failed")
		} else if n >= c.threshold {
			if err := c.popular.Set(ctx, key.Popular(), payload); err != nil {
				log.Ctx(ctx).Warn().Err(err).Msg("popular cache write failed")
			}
		}
	}
	if err := c.short.Set(ctx, key.Short(), payload); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("search cache write failed")
	}
}
