// Package service implements the search, analytics, budget and social
// operations on top of a docstore.Store.
package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/cloo-solutions/shopple/internal/docstore"
)

// Collections.
const (
	CollectionUsers          = "users"
	CollectionProducts       = "products"
	CollectionCurrentPrices  = "current_prices"
	CollectionShoppingLists  = "shopping_lists"
	CollectionAnalytics      = "analytics"
	CollectionContactSyncs   = "contact_syncs"
	CollectionUserContacts   = "user_contacts"
	CollectionStatus         = "status"
	CollectionRealtimeStatus = "realtime_status"
)

// Fixed document ids.
const (
	DocSearchTrends   = "search_trends"
	DocBudgetTracking = "budget_tracking"
	DocHydration      = "hydration"
)

// storeTimeout bounds every individual store call.
const storeTimeout = 10 * time.Second

func withStoreTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, storeTimeout)
}

func itemsCollection(listID string) string {
	return docstore.Path(CollectionShoppingLists, listID, "items")
}

func listMetaCollection(listID string) string {
	return docstore.Path(CollectionShoppingLists, listID, "meta")
}

func budgetAlertsCollection(uid string) string {
	return docstore.Path(CollectionUsers, uid, "budget_alerts")
}

func behaviorEventsCollection(uid string) string {
	return docstore.Path(CollectionUsers, uid, "behavior_events")
}

// query runs q under the store timeout.
func query(ctx context.Context, store docstore.Store, q docstore.Query) ([]docstore.Document, error) {
	ctx, cancel := withStoreTimeout(ctx)
	defer cancel()
	return store.Query(ctx, q)
}

// get reads one document under the store timeout.
func get(ctx context.Context, store docstore.Store, collection, id string) (*docstore.Document, error) {
	ctx, cancel := withStoreTimeout(ctx)
	defer cancel()
	return store.Get(ctx, collection, id)
}

// numberValue reads a loosely typed numeric field. Strings are parsed, and
// anything unparseable is zero.
func numberValue(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil || math.IsNaN(f) {
			return 0
		}
		return f
	}
	return 0
}

// stringValue reads a loosely typed string field.
func stringValue(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

// ceilDiv returns ceil(n / d).
func ceilDiv(n, d int) int {
	return (n + d - 1) / d
}

// ceilFrac returns ceil(n * frac).
func ceilFrac(n int, frac float64) int {
	return int(math.Ceil(float64(n) * frac))
}

// withField returns a shallow copy of doc with field replaced by the encoded value.
func withField(doc map[string]any, field string, value any) (map[string]any, error) {
	encoded, err := docstore.Encode(map[string]any{field: value})
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(doc)+1)
	for k, v := range doc {
		out[k] = v
	}
	out[field] = encoded[field]
	return out, nil
}
