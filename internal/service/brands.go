package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cloo-solutions/shopple/internal/docstore"
	"github.com/cloo-solutions/shopple/internal/domain"
)

// BrandIndex holds the lowercased brand names of the active catalog and
// reloads them once they are older than ttl.
type BrandIndex struct {
	store docstore.Store
	ttl   time.Duration
	now   func() time.Time

	mu       sync.Mutex
	brands   []string
	loadedAt time.Time
}

func NewBrandIndex(store docstore.Store, ttl time.Duration) *BrandIndex {
	return &BrandIndex{store: store, ttl: ttl, now: time.Now}
}

// Match returns every indexed brand contained in the lowercased query, sorted.
// A failed reload keeps serving the previous brands.
func (b *BrandIndex) Match(ctx context.Context, query string) []string {
	q := strings.ToLower(query)
	var matched []string
	for _, brand := range b.current(ctx) {
		if strings.Contains(q, brand) {
			matched = append(matched, brand)
		}
	}
	return matched
}

func (b *BrandIndex) current(ctx context.Context) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.brands != nil && b.now().Sub(b.loadedAt) < b.ttl {
		return b.brands
	}
	brands, err := b.load(ctx)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("brand index reload failed")
		return b.brands
	}
	b.brands = brands
	b.loadedAt = b.now()
	return brands
}

func (b *BrandIndex) load(ctx context.Context) ([]string, error) {
	docs, err := query(ctx, b.store, docstore.Query{
		Collection: CollectionProducts,
		Filters:    []docstore.Filter{docstore.Eq("is_active", true)},
		Select:     []string{"brand_name"},
	})
	if err != nil {
		return nil, err
	}

	unique := map[string]struct{}{}
	for _, doc := range docs {
		name, _ := doc.Data["brand_name"].(string)
		if !domain.IsValidBrand(name) {
			continue
		}
		unique[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
	}
	brands := make([]string, 0, len(unique))
	for brand := range unique {
		brands = append(brands, brand)
	}
	sort.Strings(brands)
	return brands, nil
}
