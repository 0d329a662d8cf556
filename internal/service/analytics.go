package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/cloo-solutions/shopple/internal/analytics"
	"github.com/cloo-solutions/shopple/internal/docstore"
	"github.com/cloo-solutions/shopple/internal/domain"
	"github.com/cloo-solutions/shopple/internal/metrics"
	"github.com/cloo-solutions/shopple/internal/scoring"
)

const (
	fieldSearchAnalytics        = "searchAnalytics"
	fieldComprehensiveAnalytics = "comprehensiveAnalytics"
)

// AnalyticsService records search and behavior events and serves the
// personalized defaults derived from them.
type AnalyticsService struct {
	store   docstore.Store
	brands  *BrandIndex
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewAnalyticsService(store docstore.Store, brands *BrandIndex, m *metrics.Metrics) *AnalyticsService {
	return &AnalyticsService{store: store, brands: brands, metrics: m, now: time.Now}
}

// TrackSearch updates the user's preference snapshot and the global trends.
func (s *AnalyticsService) TrackSearch(ctx context.Context, event domain.SearchEvent) error {
	if event.UserID == "" || strings.TrimSpace(event.Query) == "" {
		return domain.ErrMissingRequiredField
	}
	now := s.now()
	brands := s.brands.Match(ctx, event.Query)

	err := s.store.RunTransaction(ctx, CollectionUsers, event.UserID, func(current map[string]any) (map[string]any, error) {
		a := domain.NewUserSearchAnalytics()
		if err := docstore.DecodeField(current, fieldSearchAnalytics, a); err != nil {
			return nil, err
		}
		analytics.ApplySearch(a, event, brands, now)
		return withField(current, fieldSearchAnalytics, a)
	})
	if err != nil {
		return domain.Internal("update search analytics", err)
	}

	trendKey := strings.ToLower(strings.TrimSpace(event.Query))
	err = s.store.RunTransaction(ctx, CollectionAnalytics, DocSearchTrends, func(current map[string]any) (map[string]any, error) {
		var t domain.SearchTrends
		if err := docstore.Decode(current, &t); err != nil {
			return nil, err
		}
		analytics.ApplyTrend(&t, trendKey, event.ResultCount, now)
		return docstore.Encode(t)
	})
	if err != nil {
		return domain.Internal("update search trends", err)
	}
	return nil
}

// TrackBehavior stores the raw event and folds it into the user's
// comprehensive analytics.
func (s *AnalyticsService) TrackBehavior(ctx context.Context, event domain.BehaviorEvent) error {
	if event.UserID == "" {
		return domain.ErrMissingRequiredField
	}
	if !event.EventType.IsValid() {
		return domain.ErrInvalidEventType
	}
	now := s.now()
	event.Timestamp = now

	fields, err := docstore.Encode(event)
	if err != nil {
		return domain.Internal("encode behavior event", err)
	}
	err = s.store.BatchWrite(ctx, []docstore.Write{{
		Collection: behaviorEventsCollection(event.UserID),
		ID:         uuid.NewString(),
		Fields:     fields,
	}})
	if err != nil {
		return domain.Internal("store behavior event", err)
	}

	if event.EventType == domain.EventProductView && event.ProductID != "" {
		event.Product = s.productSummary(ctx, event.ProductID)
	}

	err = s.store.RunTransaction(ctx, CollectionUsers, event.UserID, func(current map[string]any) (map[string]any, error) {
		a := domain.NewComprehensiveAnalytics()
		if err := docstore.DecodeField(current, fieldComprehensiveAnalytics, a); err != nil {
			return nil, err
		}
		analytics.ApplyEvent(a, event, now)
		return withField(current, fieldComprehensiveAnalytics, a)
	})
	if err != nil {
		return domain.Internal("update behavior analytics", err)
	}
	s.metrics.BehaviorEvent(string(event.EventType))
	return nil
}

// productSummary resolves a viewed product's category and brand. Lookup
// failures leave the view uncategorized.
func (s *AnalyticsService) productSummary(ctx context.Context, productID string) *domain.ProductSummary {
	doc, err := get(ctx, s.store, CollectionProducts, productID)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("product_id", productID).Msg("product lookup failed")
		return nil
	}
	if doc == nil {
		return nil
	}
	var p domain.Product
	if err := doc.Decode(&p); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("product_id", productID).Msg("product decode failed")
		return nil
	}
	return &domain.ProductSummary{Category: p.Category, Brand: p.Brand()}
}

// Defaults builds the personalized default screen for uid.
func (s *AnalyticsService) Defaults(ctx context.Context, uid string) (*analytics.Defaults, error) {
	doc, err := get(ctx, s.store, CollectionUsers, uid)
	if err != nil {
		return nil, domain.Internal("load analytics", err)
	}
	a := domain.NewComprehensiveAnalytics()
	if doc != nil {
		if err := docstore.DecodeField(doc.Data, fieldComprehensiveAnalytics, a); err != nil {
			return nil, domain.Internal("decode analytics", err)
		}
	}

	d := analytics.BuildDefaults(a, s.now())
	trending, err := s.trending(ctx, analytics.InterestCategories(a))
	if err != nil {
		return nil, domain.Internal("load trending products", err)
	}
	d.TrendingInInterests = trending
	return &d, nil
}

func (s *AnalyticsService) trending(ctx context.Context, categories []string) ([]analytics.TrendingProduct, error) {
	out := []analytics.TrendingProduct{}
	for _, category := range categories {
		docs, err := query(ctx, s.store, docstore.Query{
			Collection: CollectionProducts,
			Filters:    []docstore.Filter{docstore.Eq("category", category), docstore.Eq("is_active", true)},
			Limit:      analytics.TrendingPerCategory,
		})
		if err != nil {
			return nil, err
		}
		for _, doc := range docs {
			var p domain.Product
			if err := doc.Decode(&p); err != nil {
				return nil, err
			}
			p.ID = doc.ID
			out = append(out, analytics.TrendingProduct{
				Product:   p,
				ProductID: doc.ID,
				Reason:    analytics.TrendingReason(category),
			})
		}
	}
	return scoring.Truncate(out, analytics.TrendingLimit), nil
}
