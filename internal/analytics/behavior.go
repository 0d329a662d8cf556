package analytics

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cloo-solutions/shopple/internal/domain"
)

const (
	maxInteractions  = 50
	maxQueryLengths  = 100
	maxSessions      = 50
	minSessionEvents = 2
)

// ApplyEvent folds a behavior event into the raw counters and recomputes every
// derived block. event.Product carries the viewed product's category and brand
// when the caller could resolve it.
func ApplyEvent(a *domain.ComprehensiveAnalytics, event domain.BehaviorEvent, now time.Time) {
	a.Normalize()
	utc := now.UTC()

	switch event.EventType {
	case domain.EventSearch:
		applySearchEvent(a, event.SearchQuery, now)
	case domain.EventProductView:
		applyProductView(a, event, now)
	case domain.EventPriceCheck:
		if event.ProductID != "" {
			pi := a.ProductBehavior.PriceInteractions[event.ProductID]
			if pi == nil {
				pi = &domain.PriceInteraction{}
				a.ProductBehavior.PriceInteractions[event.ProductID] = pi
			}
			pi.PriceChecks++
			pi.LastPriceCheck = &now
		}
	case domain.EventAddToCart:
		a.ProductBehavior.AddToCartCount++
	}

	a.TemporalPatterns.MostActiveHours[utc.Hour()]++
	a.TemporalPatterns.MostActiveDays[int(utc.Weekday())]++
	trackSession(&a.TemporalPatterns, event.SessionID, now)

	Recompute(a, now)
	a.LastUpdated = &now
	a.AnalyticsVersion = domain.AnalyticsVersion
}

func applySearchEvent(a *domain.ComprehensiveAnalytics, query string, now time.Time) {
	sb := &a.SearchBehavior
	sb.TotalSearches++

	if query == "" {
		return
	}
	key := strings.ToLower(strings.TrimSpace(query))
	activity := sb.SearchQueries[key]
	activity.Count++
	activity.LastSearched = &now
	sb.SearchQueries[key] = activity

	utc := now.UTC()
	sb.SearchPatterns.TimeOfDay[utc.Hour()]++
	sb.SearchPatterns.DayOfWeek[int(utc.Weekday())]++

	sb.SearchPatterns.QueryLength = append(sb.SearchPatterns.QueryLength, utf8.RuneCountInString(query))
	if n := len(sb.SearchPatterns.QueryLength); n > maxQueryLengths {
		sb.SearchPatterns.QueryLength = sb.SearchPatterns.QueryLength[n-maxQueryLengths:]
	}
}

func applyProductView(a *domain.ComprehensiveAnalytics, event domain.BehaviorEvent, now time.Time) {
	if event.ProductID == "" {
		return
	}
	pb := &a.ProductBehavior

	var category, brand string
	if event.Product != nil {
		category = event.Product.Category
		brand = event.Product.Brand
	}

	view := pb.ViewedProducts[event.ProductID]
	if view == nil {
		view = &domain.ProductView{Category: category, Brand: brand, Interactions: []domain.Interaction{}}
		pb.ViewedProducts[event.ProductID] = view
	}
	view.ViewCount++
	view.TotalTimeSpent += event.TimeSpent
	view.LastViewed = &now

	if event.InteractionData != nil {
		view.Interactions = append(view.Interactions, domain.Interaction{
			Type:      event.InteractionData.Type,
			Timestamp: &now,
			Data:      event.InteractionData.Data,
		})
		if n := len(view.Interactions); n > maxInteractions {
			view.Interactions = view.Interactions[n-maxInteractions:]
		}
	}

	if category != "" {
		bumpEngagement(pb.ProductCategories, category, event.TimeSpent)
	}
	if domain.IsValidBrand(brand) {
		bumpEngagement(pb.Brands, brand, event.TimeSpent)
	}
}

func bumpEngagement(stats map[string]*domain.EngagementStat, key string, timeSpent float64) {
	stat := stats[key]
	if stat == nil {
		stat = &domain.EngagementStat{}
		stats[key] = stat
	}
	stat.ViewCount++
	stat.TimeSpent += timeSpent
}

// trackSession extends the session window for sessionID and rebuilds the
// session lengths from every window with at least two events. The oldest
// windows are dropped beyond maxSessions.
func trackSession(tp *domain.TemporalPatterns, sessionID string, now time.Time) {
	if sessionID == "" {
		return
	}
	window, ok := tp.Sessions[sessionID]
	if !ok {
		window.Start = now
	}
	window.End = now
	window.Events++
	tp.Sessions[sessionID] = window

	ids := make([]string, 0, len(tp.Sessions))
	for id := range tp.Sessions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := tp.Sessions[ids[i]], tp.Sessions[ids[j]]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		return ids[i] < ids[j]
	})
	for len(ids) > maxSessions {
		delete(tp.Sessions, ids[0])
		ids = ids[1:]
	}

	lengths := make([]float64, 0, len(ids))
	for _, id := range ids {
		w := tp.Sessions[id]
		if w.Events >= minSessionEvents {
			lengths = append(lengths, w.End.Sub(w.Start).Seconds())
		}
	}
	tp.SessionLengths = lengths
}

// Recompute rebuilds personalization, segmentation, purchase intent and the
// view-to-cart conversion from the raw counters.
func Recompute(a *domain.ComprehensiveAnalytics, now time.Time) {
	a.Normalize()
	a.Personalization = ComputePersonalization(a)
	a.UserSegmentation = ComputeSegmentation(a, a.Personalization)
	a.PurchaseIntent = ComputePurchaseIntent(a, now)
	a.ProductBehavior.ViewToCartConversion = ViewToCartConversion(a)
}

// ViewToCartConversion is add-to-cart events per product view, capped at 1.
func ViewToCartConversion(a *domain.ComprehensiveAnalytics) float64 {
	views := totalViews(a)
	if views == 0 {
		return 0
	}
	return min(1, float64(a.ProductBehavior.AddToCartCount)/float64(views))
}

func totalViews(a *domain.ComprehensiveAnalytics) int {
	total := 0
	for _, view := range a.ProductBehavior.ViewedProducts {
		total += view.ViewCount
	}
	return total
}
