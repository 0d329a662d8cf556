package service

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/cloo-solutions/shopple/internal/cache"
	"github.com/cloo-solutions/shopple/internal/docstore"
	"github.com/cloo-solutions/shopple/internal/domain"
	"github.com/cloo-solutions/shopple/internal/metrics"
	"github.com/cloo-solutions/shopple/internal/scoring"
)

const (
	DefaultProductSearchLimit = 20
	maxCatalogFetch           = 100
	maxPreLimit               = 90
)

var productFields = []string{
	"name", "brand_name", "category", "original_name", "variety", "image_url",
	"created_at", "updated_at", "size", "sizeRaw", "sizeUnit", "is_active",
}

var priceFields = []string{"productId", "supermarketId", "price", "lastUpdated", "priceDate"}

// ProductSearchRequest is a catalog search.
type ProductSearchRequest struct {
	Query    string
	Category string
	Stores   []string
	Limit    int
}

// ProductSearchMetadata describes how a result was produced. Cache is true
// for short tier hits and "popular" for popular tier hits.
type ProductSearchMetadata struct {
	ProcessingTime int64    `json:"processingTime"`
	TotalFound     int      `json:"totalFound"`
	Query          string   `json:"query"`
	AppliedStores  []string `json:"appliedStores"`
	Cache          any      `json:"cache,omitempty"`
}

// ProductSearchResult is returned to the client and cached as-is.
type ProductSearchResult struct {
	Results   []domain.ProductMatch `json:"results"`
	FromCache bool                  `json:"fromCache"`
	Metadata  ProductSearchMetadata `json:"metadata"`
}

// ProductSearchService scores the active catalog against a query.
type ProductSearchService struct {
	store   docstore.Store
	cache   *cache.SearchCache
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewProductSearchService creates the service. A nil cache disables caching.
func NewProductSearchService(store docstore.Store, c *cache.SearchCache, m *metrics.Metrics) *ProductSearchService {
	return &ProductSearchService{store: store, cache: c, metrics: m, now: time.Now}
}

func (s *ProductSearchService) Search(ctx context.Context, req ProductSearchRequest) (*ProductSearchResult, error) {
	start := s.now()
	q := strings.TrimSpace(req.Query)
	if q == "" {
		return &ProductSearchResult{
			Results:  []domain.ProductMatch{},
			Metadata: ProductSearchMetadata{Query: q, AppliedStores: []string{}},
		}, nil
	}
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultProductSearchLimit
	}
	stores := make([]string, 0, len(req.Stores))
	for _, st := range req.Stores {
		if strings.TrimSpace(st) != "" {
			stores = append(stores, st)
		}
	}

	key := cache.Key{Query: q, Category: req.Category, Stores: stores, Limit: limit}
	if payload, source := s.cache.Lookup(ctx, key); source != cache.SourceNone {
		var cached ProductSearchResult
		err := json.Unmarshal(payload, &cached)
		if err == nil {
			cached.FromCache = true
			cached.Metadata.ProcessingTime = s.now().Sub(start).Milliseconds()
			cached.Metadata.Cache = true
			if source == cache.SourcePopular {
				cached.Metadata.Cache = string(cache.SourcePopular)
			}
			return &cached, nil
		}
		log.Ctx(ctx).Warn().Err(err).Msg("discarding undecodable cached search")
	}
	defer func() { s.metrics.ObserveSearch("products", s.now().Sub(start)) }()

	filters := []docstore.Filter{docstore.Eq("is_active", true)}
	if req.Category != "" {
		filters = append(filters, docstore.Eq("category", req.Category))
	}
	docs, err := query(ctx, s.store, docstore.Query{
		Collection: CollectionProducts,
		Filters:    filters,
		Limit:      min(limit*3, maxCatalogFetch),
		Select:     productFields,
	})
	if err != nil {
		return nil, domain.Internal("product search failed", err)
	}

	var matches []domain.ProductMatch
	for _, doc := range docs {
		var p domain.Product
		if err := doc.Decode(&p); err != nil {
			return nil, domain.Internal("decode product", err)
		}
		p.ID = doc.ID
		if score := scoring.ProductScore(p, q); scoring.ProductQualifies(score) {
			matches = append(matches, domain.ProductMatch{Product: p, SearchScore: score})
		}
	}
	totalFound := len(matches)

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].SearchScore > matches[j].SearchScore
	})
	matches = scoring.Truncate(matches, min(limit*3, maxPreLimit))

	if len(matches) > 0 {
		matches, err = s.attachPrices(ctx, matches, stores)
		if err != nil {
			return nil, domain.Internal("price lookup failed", err)
		}
	}

	results := scoring.Truncate(matches, limit)
	if results == nil {
		results = []domain.ProductMatch{}
	}
	result := &ProductSearchResult{
		Results: results,
		Metadata: ProductSearchMetadata{
			ProcessingTime: s.now().Sub(start).Milliseconds(),
			TotalFound:     totalFound,
			Query:          q,
			AppliedStores:  stores,
		},
	}

	if payload, err := json.Marshal(result); err == nil {
		s.cache.Store(ctx, key, payload)
	}
	return result, nil
}

// attachPrices adds the cheapest current price to each match. With a store
// filter, matches without a price record in one of the stores are dropped.
func (s *ProductSearchService) attachPrices(ctx context.Context, matches []domain.ProductMatch, stores []string) ([]domain.ProductMatch, error) {
	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	records, err := s.prices(ctx, ids)
	if err != nil {
		return nil, err
	}

	allowed := make(map[string]struct{}, len(stores))
	for _, st := range stores {
		allowed[st] = struct{}{}
	}
	filtered := len(stores) > 0

	inStores := map[string]bool{}
	cheapest := map[string]domain.PriceRecord{}
	for _, r := range records {
		if r.ProductID == "" || r.SupermarketID == "" {
			continue
		}
		if filtered {
			if _, ok := allowed[r.SupermarketID]; !ok {
				continue
			}
			inStores[r.ProductID] = true
		}
		if r.Price <= 0 {
			continue
		}
		if prev, ok := cheapest[r.ProductID]; !ok || r.Price < prev.Price {
			cheapest[r.ProductID] = r
		}
	}

	out := matches[:0]
	for _, m := range matches {
		if filtered && !inStores[m.ID] {
			continue
		}
		if r, ok := cheapest[m.ID]; ok {
			m.AttachPreview(r)
		}
		out = append(out, m)
	}
	return out, nil
}

// prices reads current_prices for the given products, ten ids per query.
func (s *ProductSearchService) prices(ctx context.Context, productIDs []string) ([]domain.PriceRecord, error) {
	chunks := docstore.Chunk(productIDs, docstore.MaxInKeys)
	found := make([][]domain.PriceRecord, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	for i, chunk := range chunks {
		g.Go(func() error {
			docs, err := query(gctx, s.store, docstore.Query{
				Collection: CollectionCurrentPrices,
				Filters:    []docstore.Filter{docstore.In("productId", chunk)},
				Select:     priceFields,
			})
			if err != nil {
				return err
			}
			for _, doc := range docs {
				found[i] = append(found[i], priceRecord(doc.Data))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var records []domain.PriceRecord
	for _, chunk := range found {
		records = append(records, chunk...)
	}
	return records, nil
}

func priceRecord(data map[string]any) domain.PriceRecord {
	return domain.PriceRecord{
		ProductID:     stringValue(data["productId"]),
		SupermarketID: stringValue(data["supermarketId"]),
		Price:         numberValue(data["price"]),
		PriceDate:     stringValue(data["priceDate"]),
		LastUpdated:   stringValue(data["lastUpdated"]),
	}
}
