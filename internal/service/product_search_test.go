package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/shopple/internal/cache"
	"github.com/cloo-solutions/shopple/internal/docstore"
	"github.com/cloo-solutions/shopple/internal/domain"
)

func seedCatalog(t *testing.T) *docstore.Memory {
	t.Helper()
	store := docstore.NewMemory()
	seed(t, store, CollectionProducts, "p1", domain.Product{Name: "Amul Butter 100g", BrandName: "Amul", Category: "dairy", IsActive: true})
	seed(t, store, CollectionProducts, "p2", domain.Product{Name: "Butter Cookies", BrandName: "Munchee", Category: "biscuits", IsActive: true})
	seed(t, store, CollectionProducts, "p3", domain.Product{Name: "Amul Ghee", BrandName: "Amul", Category: "dairy"})
	seed(t, store, CollectionProducts, "p4", domain.Product{Name: "Milk", Category: "dairy", IsActive: true})
	seed(t, store, CollectionCurrentPrices, "keells_p1", domain.PriceRecord{ProductID: "p1", SupermarketID: "keells", Price: 480, PriceDate: "2025-03-10"})
	seed(t, store, CollectionCurrentPrices, "cargills_p1", domain.PriceRecord{ProductID: "p1", SupermarketID: "cargills", Price: 450, PriceDate: "2025-03-11"})
	seed(t, store, CollectionCurrentPrices, "keells_p2", domain.PriceRecord{ProductID: "p2", SupermarketID: "keells", Price: 300})
	seed(t, store, CollectionCurrentPrices, "cargills_p2", domain.PriceRecord{ProductID: "p2", SupermarketID: "cargills"})
	return store
}

func productIDs(matches []domain.ProductMatch) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.ID
	}
	return out
}

func TestProductSearch_ScoresAndAttachesCheapestPrice(t *testing.T) {
	s := NewProductSearchService(seedCatalog(t), nil, nil)

	result, err := s.Search(context.Background(), ProductSearchRequest{Query: "amul butter"})

	require.NoError(t, err)
	require.Equal(t, []string{"p1", "p2"}, productIDs(result.Results))
	assert.InDelta(t, 1.4, result.Results[0].SearchScore, 1e-9)
	assert.InDelta(t, 0.5, result.Results[1].SearchScore, 1e-9)

	require.NotNil(t, result.Results[0].CheapestPrice)
	assert.Equal(t, 450.0, *result.Results[0].CheapestPrice)
	assert.Equal(t, "cargills", result.Results[0].CheapestStore)
	assert.Equal(t, "2025-03-11", result.Results[0].PriceDate)
	require.NotNil(t, result.Results[1].CheapestPrice)
	assert.Equal(t, 300.0, *result.Results[1].CheapestPrice)

	assert.Equal(t, 2, result.Metadata.TotalFound)
	assert.Equal(t, "amul butter", result.Metadata.Query)
	assert.Empty(t, result.Metadata.AppliedStores)
	assert.False(t, result.FromCache)
}

func TestProductSearch_StoreFilter(t *testing.T) {
	s := NewProductSearchService(seedCatalog(t), nil, nil)
	ctx := context.Background()

	keells, err := s.Search(ctx, ProductSearchRequest{Query: "butter", Stores: []string{"keells", " "}})
	require.NoError(t, err)
	require.Equal(t, []string{"p1", "p2"}, productIDs(keells.Results))
	assert.Equal(t, 480.0, *keells.Results[0].CheapestPrice)
	assert.Equal(t, []string{"keells"}, keells.Metadata.AppliedStores)

	cargills, err := s.Search(ctx, ProductSearchRequest{Query: "butter", Stores: []string{"cargills"}})
	require.NoError(t, err)
	require.Equal(t, []string{"p1", "p2"}, productIDs(cargills.Results))
	assert.Nil(t, cargills.Results[1].CheapestPrice)

	none, err := s.Search(ctx, ProductSearchRequest{Query: "butter", Stores: []string{"glomark"}})
	require.NoError(t, err)
	assert.Empty(t, none.Results)
	assert.NotNil(t, none.Results)
}

func TestProductSearch_CategoryAndLimit(t *testing.T) {
	s := NewProductSearchService(seedCatalog(t), nil, nil)
	ctx := context.Background()

	biscuits, err := s.Search(ctx, ProductSearchRequest{Query: "butter", Category: "biscuits"})
	require.NoError(t, err)
	assert.Equal(t, []string{"p2"}, productIDs(biscuits.Results))

	one, err := s.Search(ctx, ProductSearchRequest{Query: "butter", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, one.Results, 1)
}

func TestProductSearch_EmptyQuery(t *testing.T) {
	s := NewProductSearchService(seedCatalog(t), nil, nil)

	result, err := s.Search(context.Background(), ProductSearchRequest{Query: "  "})

	require.NoError(t, err)
	assert.Empty(t, result.Results)
	assert.Equal(t, []string{}, result.Metadata.AppliedStores)
}

func newSearchCache(t *testing.T) *cache.SearchCache {
	t.Helper()
	short, err := cache.NewMemoryTier(200, 15*time.Second, time.Now)
	require.NoError(t, err)
	popular, err := cache.NewMemoryTier(500, 2*time.Minute, time.Now)
	require.NoError(t, err)
	hits, err := cache.NewMemoryHitCounter(500)
	require.NoError(t, err)
	return cache.New(cache.Config{Short: short, Popular: popular, Hits: hits, Threshold: 3})
}

func TestProductSearch_ServesRepeatsFromCache(t *testing.T) {
	store := seedCatalog(t)
	s := NewProductSearchService(store, newSearchCache(t), nil)
	ctx := context.Background()

	first, err := s.Search(ctx, ProductSearchRequest{Query: "amul butter"})
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	seed(t, store, CollectionCurrentPrices, "keells_p1", domain.PriceRecord{ProductID: "p1", SupermarketID: "keells", Price: 10})

	second, err := s.Search(ctx, ProductSearchRequest{Query: "Amul Butter "})
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, true, second.Metadata.Cache)
	assert.Equal(t, first.Results, second.Results)
}

func TestProductSearch_PromotesPopularQueries(t *testing.T) {
	store := seedCatalog(t)
	s := NewProductSearchService(store, newSearchCache(t), nil)
	uncached := NewProductSearchService(store, nil, nil)
	ctx := context.Background()

	for _, limit := range []int{20, 21, 22} {
		result, err := s.Search(ctx, ProductSearchRequest{Query: "butter", Limit: limit})
		require.NoError(t, err)
		assert.False(t, result.FromCache)
	}

	popular, err := s.Search(ctx, ProductSearchRequest{Query: "butter", Limit: 22})
	require.NoError(t, err)
	assert.True(t, popular.FromCache)
	assert.Equal(t, "popular", popular.Metadata.Cache)

	narrow, err := s.Search(ctx, ProductSearchRequest{Query: "butter", Limit: 1})
	require.NoError(t, err)
	fresh, err := uncached.Search(ctx, ProductSearchRequest{Query: "butter", Limit: 1})
	require.NoError(t, err)
	assert.False(t, narrow.FromCache)
	assert.Equal(t, []string{"p1"}, productIDs(fresh.Results))
	assert.Equal(t, productIDs(fresh.Results), productIDs(narrow.Results))

	filtered, err := s.Search(ctx, ProductSearchRequest{Query: "butter", Limit: 22, Category: "dairy"})
	require.NoError(t, err)
	assert.False(t, filtered.FromCache)
}
