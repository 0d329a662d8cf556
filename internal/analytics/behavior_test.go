package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/shopple/internal/domain"
)

func view(productID string, timeSpent float64, category, brand string) domain.BehaviorEvent {
	return domain.BehaviorEvent{
		EventType: domain.EventProductView,
		ProductID: productID,
		TimeSpent: timeSpent,
		Product:   &domain.ProductSummary{Category: category, Brand: brand},
	}
}

func priceCheck(productID string) domain.BehaviorEvent {
	return domain.BehaviorEvent{EventType: domain.EventPriceCheck, ProductID: productID}
}

func TestIntentScore_WorkedExample(t *testing.T) {
	a := domain.NewComprehensiveAnalytics()
	viewedAt := baseTime
	for i := 0; i < 3; i++ {
		ApplyEvent(a, view("p1", 15000, "dairy", "Amul"), viewedAt)
	}
	ApplyEvent(a, priceCheck("p1"), viewedAt)
	ApplyEvent(a, priceCheck("p1"), viewedAt)

	now := viewedAt.Add(2 * time.Hour)
	Recompute(a, now)

	assert.Equal(t, 59, a.PurchaseIntent.HighIntentProducts["p1"])
}

func TestIntentScore_Components(t *testing.T) {
	lastViewed := baseTime
	tests := []struct {
		name   string
		view   domain.ProductView
		checks int
		now    time.Time
		want   int
	}{
		{"views capped at 40", domain.ProductView{ViewCount: 9}, 0, baseTime, 40},
		{"dwell capped at 30", domain.ProductView{TotalTimeSpent: 900000}, 0, baseTime, 30},
		{"recent within a day", domain.ProductView{LastViewed: &lastViewed}, 0, baseTime.Add(23 * time.Hour), 20},
		{"recent within a week", domain.ProductView{LastViewed: &lastViewed}, 0, baseTime.Add(3 * 24 * time.Hour), 10},
		{"stale", domain.ProductView{LastViewed: &lastViewed}, 0, baseTime.Add(8 * 24 * time.Hour), 0},
		{"price checks capped at 10", domain.ProductView{}, 7, baseTime, 10},
		{"everything maxed", domain.ProductView{ViewCount: 20, TotalTimeSpent: 1e7, LastViewed: &lastViewed}, 9, baseTime, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := tt.view
			assert.Equal(t, tt.want, IntentScore(&v, tt.checks, tt.now))
		})
	}
}

func TestApplyEvent_ProductView(t *testing.T) {
	a := domain.NewComprehensiveAnalytics()
	event := view("p1", 5000, "dairy", "Amul")
	event.InteractionData = &domain.Interaction{Type: "zoom"}
	event.SessionID = "s1"

	ApplyEvent(a, event, baseTime)

	pv := a.ProductBehavior.ViewedProducts["p1"]
	require.NotNil(t, pv)
	assert.Equal(t, 1, pv.ViewCount)
	assert.Equal(t, 5000.0, pv.TotalTimeSpent)
	assert.Equal(t, "dairy", pv.Category)
	assert.Equal(t, "Amul", pv.Brand)
	require.Len(t, pv.Interactions, 1)
	assert.Equal(t, "zoom", pv.Interactions[0].Type)

	assert.Equal(t, &domain.EngagementStat{ViewCount: 1, TimeSpent: 5000}, a.ProductBehavior.ProductCategories["dairy"])
	assert.Equal(t, &domain.EngagementStat{ViewCount: 1, TimeSpent: 5000}, a.ProductBehavior.Brands["Amul"])
	assert.Equal(t, 1, a.TemporalPatterns.MostActiveHours[9])
	assert.Equal(t, domain.AnalyticsVersion, a.AnalyticsVersion)
	assert.InDelta(t, (0.3+3.5)/100, a.Personalization.CategoryAffinity["dairy"], 1e-12)
	assert.InDelta(t, 0.1, a.Personalization.BrandLoyalty["Amul"], 1e-12)
}

func TestApplyEvent_InvalidBrandIgnored(t *testing.T) {
	a := domain.NewComprehensiveAnalytics()
	ApplyEvent(a, view("p1", 0, "", "N/A"), baseTime)
	ApplyEvent(a, view("p2", 0, "", "x"), baseTime)

	assert.Empty(t, a.ProductBehavior.Brands)
	assert.Empty(t, a.Personalization.BrandLoyalty)
	assert.Empty(t, a.ProductBehavior.ProductCategories)
}

func TestApplyEvent_Search(t *testing.T) {
	a := domain.NewComprehensiveAnalytics()
	ApplyEvent(a, domain.BehaviorEvent{EventType: domain.EventSearch, SearchQuery: "  Paneer "}, baseTime)
	ApplyEvent(a, domain.BehaviorEvent{EventType: domain.EventSearch}, baseTime)

	assert.Equal(t, 2, a.SearchBehavior.TotalSearches)
	assert.Equal(t, 1, a.SearchBehavior.SearchQueries["paneer"].Count)
	assert.Equal(t, []int{9}, a.SearchBehavior.SearchPatterns.QueryLength)
	assert.Equal(t, 1, a.SearchBehavior.SearchPatterns.TimeOfDay[9])
	assert.Equal(t, 2, a.TemporalPatterns.MostActiveHours[9])
}

func TestApplyEvent_AddToCartConversion(t *testing.T) {
	a := domain.NewComprehensiveAnalytics()
	ApplyEvent(a, domain.BehaviorEvent{EventType: domain.EventAddToCart}, baseTime)
	assert.Zero(t, a.ProductBehavior.ViewToCartConversion)

	ApplyEvent(a, view("p1", 0, "dairy", ""), baseTime)
	ApplyEvent(a, view("p2", 0, "dairy", ""), baseTime)
	assert.InDelta(t, 0.5, a.ProductBehavior.ViewToCartConversion, 1e-12)
}

func TestPersonalization_PriceSensitivityAndDiscovery(t *testing.T) {
	a := domain.NewComprehensiveAnalytics()
	ApplyEvent(a, view("p1", 0, "dairy", ""), baseTime)
	ApplyEvent(a, view("p2", 0, "snacks", ""), baseTime)
	ApplyEvent(a, view("p2", 0, "snacks", ""), baseTime)
	ApplyEvent(a, view("p2", 0, "snacks", ""), baseTime)
	ApplyEvent(a, priceCheck("p1"), baseTime)

	p := ComputePersonalization(a)
	assert.InDelta(t, 0.5, p.PriceSensitivity, 1e-12)
	assert.InDelta(t, 1.0, p.DiscoveryVsLoyalty, 1e-12)

	empty := ComputePersonalization(domain.NewComprehensiveAnalytics())
	assert.Zero(t, empty.PriceSensitivity)
	assert.Zero(t, empty.DiscoveryVsLoyalty)
}

func TestSegmentation_Personas(t *testing.T) {
	tests := []struct {
		name  string
		build func(a *domain.ComprehensiveAnalytics)
		want  string
	}{
		{
			name: "price conscious",
			build: func(a *domain.ComprehensiveAnalytics) {
				ApplyEvent(a, view("p1", 0, "", ""), baseTime)
				ApplyEvent(a, priceCheck("p1"), baseTime)
			},
			want: domain.PersonaPriceConscious,
		},
		{
			name: "brand loyal",
			build: func(a *domain.ComprehensiveAnalytics) {
				for i := 0; i < 7; i++ {
					ApplyEvent(a, view("p1", 0, "", "Amul"), baseTime)
				}
			},
			want: domain.PersonaBrandLoyal,
		},
		{
			name: "explorer",
			build: func(a *domain.ComprehensiveAnalytics) {
				ApplyEvent(a, view("p1", 0, "dairy", ""), baseTime)
				ApplyEvent(a, view("p2", 0, "snacks", ""), baseTime)
			},
			want: domain.PersonaExplorer,
		},
		{
			name: "convenience seeker",
			build: func(a *domain.ComprehensiveAnalytics) {
				e := domain.BehaviorEvent{EventType: domain.EventSearch, SessionID: "s1"}
				ApplyEvent(a, e, baseTime)
				ApplyEvent(a, e, baseTime.Add(30*time.Second))
			},
			want: domain.PersonaConvenienceSeeker,
		},
		{
			name: "balanced with long sessions",
			build: func(a *domain.ComprehensiveAnalytics) {
				e := domain.BehaviorEvent{EventType: domain.EventSearch, SessionID: "s1"}
				ApplyEvent(a, e, baseTime)
				ApplyEvent(a, e, baseTime.Add(10*time.Minute))
			},
			want: domain.PersonaBalanced,
		},
		{
			name:  "balanced without data",
			build: func(a *domain.ComprehensiveAnalytics) {},
			want:  domain.PersonaBalanced,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := domain.NewComprehensiveAnalytics()
			tt.build(a)
			Recompute(a, baseTime)
			assert.Equal(t, tt.want, a.UserSegmentation.ShoppingPersona)
		})
	}
}

func TestSegmentation_ActivityLevel(t *testing.T) {
	a := domain.NewComprehensiveAnalytics()
	a.SearchBehavior.TotalSearches = 20
	Recompute(a, baseTime)
	assert.Equal(t, domain.ActivityLow, a.UserSegmentation.ActivityLevel)

	a.ProductBehavior.ViewedProducts["p1"] = &domain.ProductView{ViewCount: 1}
	Recompute(a, baseTime)
	assert.Equal(t, domain.ActivityMedium, a.UserSegmentation.ActivityLevel)

	a.SearchBehavior.TotalSearches = 100
	Recompute(a, baseTime)
	assert.Equal(t, domain.ActivityHigh, a.UserSegmentation.ActivityLevel)
}

func TestRecompute_Idempotent(t *testing.T) {
	a := domain.NewComprehensiveAnalytics()
	ApplyEvent(a, view("p1", 12000, "dairy", "Amul"), baseTime)
	ApplyEvent(a, view("p2", 3000, "snacks", "Lays"), baseTime.Add(time.Minute))
	ApplyEvent(a, priceCheck("p2"), baseTime.Add(2*time.Minute))

	now := baseTime.Add(time.Hour)
	Recompute(a, now)
	first := *a
	Recompute(a, now)

	assert.Equal(t, first.Personalization, a.Personalization)
	assert.Equal(t, first.UserSegmentation, a.UserSegmentation)
	assert.Equal(t, first.PurchaseIntent, a.PurchaseIntent)
}

func TestRecompute_OrderIndependent(t *testing.T) {
	events := []domain.BehaviorEvent{
		view("p1", 12000, "dairy", "Amul"),
		view("p2", 3000, "snacks", "Lays"),
		priceCheck("p2"),
		view("p1", 1000, "dairy", "Amul"),
	}

	forward := domain.NewComprehensiveAnalytics()
	for _, e := range events {
		ApplyEvent(forward, e, baseTime)
	}
	backward := domain.NewComprehensiveAnalytics()
	for i := len(events) - 1; i >= 0; i-- {
		ApplyEvent(backward, events[i], baseTime)
	}

	assert.Equal(t, forward.Personalization, backward.Personalization)
	assert.Equal(t, forward.UserSegmentation, backward.UserSegmentation)
	assert.Equal(t, forward.PurchaseIntent, backward.PurchaseIntent)
}

func TestTrackSession_BoundedWindows(t *testing.T) {
	tp := domain.TemporalPatterns{Sessions: map[string]domain.SessionWindow{}}
	for i := 0; i < maxSessions+5; i++ {
		trackSession(&tp, string(rune('A'+i)), baseTime.Add(time.Duration(i)*time.Minute))
	}
	assert.Len(t, tp.Sessions, maxSessions)
	assert.NotContains(t, tp.Sessions, "A")
	assert.Empty(t, tp.SessionLengths)
}
