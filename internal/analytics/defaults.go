package analytics

import (
	"sort"
	"time"

	"github.com/cloo-solutions/shopple/internal/domain"
)

const (
	recentSearchWindow   = 7 * day
	continueViewWindow   = 14 * day
	recentSearchLimit    = 5
	continueViewLimit    = 8
	categoryRecLimit     = 6
	brandRecLimit        = 4
	priceAlertLimit      = 5
	priceAlertMinChecks  = 2
	primaryInterestCount = 3

	// TrendingLimit caps trending products across all interest categories.
	TrendingLimit = 10
	// TrendingPerCategory caps catalog lookups per interest category.
	TrendingPerCategory = 5
)

// Defaults is the personalized content shown before the user types a query.
type Defaults struct {
	RecentHighIntentSearches []RecentSearch         `json:"recentHighIntentSearches"`
	ContinueViewing          []ContinueViewingItem  `json:"continueViewing"`
	RecommendedCategories    []CategoryAffinity     `json:"recommendedCategories"`
	RecommendedBrands        []BrandLoyalty         `json:"recommendedBrands"`
	TrendingInInterests      []TrendingProduct      `json:"trendingInInterests"`
	PriceAlerts              []PriceAlertSuggestion `json:"priceAlerts"`
	QuickActions             []QuickAction          `json:"quickActions"`
	PersonalizationMetadata  DefaultsMetadata       `json:"personalizationMetadata"`
}

type RecentSearch struct {
	Query        string     `json:"query"`
	Count        int        `json:"count"`
	LastSearched *time.Time `json:"lastSearched,omitempty"`
}

type ContinueViewingItem struct {
	ProductID      string     `json:"productId"`
	ViewCount      int        `json:"viewCount"`
	TotalTimeSpent float64    `json:"totalTimeSpent"`
	LastViewed     *time.Time `json:"lastViewed,omitempty"`
	Category       string     `json:"category,omitempty"`
	Brand          string     `json:"brand,omitempty"`
	IntentScore    int        `json:"intentScore"`
}

type CategoryAffinity struct {
	Category      string  `json:"category"`
	AffinityScore float64 `json:"affinityScore"`
}

type BrandLoyalty struct {
	Brand        string  `json:"brand"`
	LoyaltyScore float64 `json:"loyaltyScore"`
}

// TrendingProduct is a catalog product surfaced from one of the user's
// interest categories.
type TrendingProduct struct {
	domain.Product
	ProductID string `json:"productId"`
	Reason    string `json:"reason"`
}

type PriceAlertSuggestion struct {
	ProductID       string `json:"productId"`
	PriceChecks     int    `json:"priceChecks"`
	SuggestedAction string `json:"suggestedAction"`
}

type QuickAction struct {
	Action string `json:"action"`
	Title  string `json:"title"`
	Icon   string `json:"icon"`
}

type DefaultsMetadata struct {
	ShoppingPersona  string   `json:"shoppingPersona"`
	PrimaryInterests []string `json:"primaryInterests"`
	ActivityLevel    string   `json:"activityLevel"`
}

// BuildDefaults derives every section except TrendingInInterests, which needs
// catalog lookups for InterestCategories.
func BuildDefaults(a *domain.ComprehensiveAnalytics, now time.Time) Defaults {
	a.Normalize()

	d := Defaults{
		RecentHighIntentSearches: recentSearches(a, now),
		ContinueViewing:          continueViewing(a, now),
		RecommendedCategories:    topCategories(a.Personalization.CategoryAffinity, categoryRecLimit),
		RecommendedBrands:        topBrands(a.Personalization.BrandLoyalty, brandRecLimit),
		TrendingInInterests:      []TrendingProduct{},
		PriceAlerts:              priceAlerts(a),
		QuickActions:             QuickActions(a.UserSegmentation.ShoppingPersona),
		PersonalizationMetadata: DefaultsMetadata{
			ShoppingPersona:  a.UserSegmentation.ShoppingPersona,
			PrimaryInterests: InterestCategories(a),
			ActivityLevel:    a.UserSegmentation.ActivityLevel,
		},
	}
	if d.PersonalizationMetadata.ShoppingPersona == "" {
		d.PersonalizationMetadata.ShoppingPersona = domain.PersonaNewUser
	}
	if d.PersonalizationMetadata.ActivityLevel == "" {
		d.PersonalizationMetadata.ActivityLevel = domain.ActivityLow
	}
	return d
}

// InterestCategories returns the three categories with the highest affinity.
func InterestCategories(a *domain.ComprehensiveAnalytics) []string {
	top := topCategories(a.Personalization.CategoryAffinity, primaryInterestCount)
	out := make([]string, len(top))
	for i, c := range top {
		out[i] = c.Category
	}
	return out
}

// TrendingReason labels a trending product with its source category.
func TrendingReason(category string) string {
	return "Trending in " + category
}

func recentSearches(a *domain.ComprehensiveAnalytics, now time.Time) []RecentSearch {
	out := []RecentSearch{}
	for query, activity := range a.SearchBehavior.SearchQueries {
		if activity.LastSearched == nil || now.Sub(*activity.LastSearched) >= recentSearchWindow {
			continue
		}
		out = append(out, RecentSearch{Query: query, Count: activity.Count, LastSearched: activity.LastSearched})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Query < out[j].Query
	})
	return truncate(out, recentSearchLimit)
}

func continueViewing(a *domain.ComprehensiveAnalytics, now time.Time) []ContinueViewingItem {
	out := []ContinueViewingItem{}
	for productID, view := range a.ProductBehavior.ViewedProducts {
		if view.LastViewed == nil || now.Sub(*view.LastViewed) >= continueViewWindow {
			continue
		}
		out = append(out, ContinueViewingItem{
			ProductID:      productID,
			ViewCount:      view.ViewCount,
			TotalTimeSpent: view.TotalTimeSpent,
			LastViewed:     view.LastViewed,
			Category:       view.Category,
			Brand:          view.Brand,
			IntentScore:    a.PurchaseIntent.HighIntentProducts[productID],
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IntentScore != out[j].IntentScore {
			return out[i].IntentScore > out[j].IntentScore
		}
		return out[i].ProductID < out[j].ProductID
	})
	return truncate(out, continueViewLimit)
}

func topCategories(affinity map[string]float64, limit int) []CategoryAffinity {
	out := make([]CategoryAffinity, 0, len(affinity))
	for category, score := range affinity {
		out = append(out, CategoryAffinity{Category: category, AffinityScore: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AffinityScore != out[j].AffinityScore {
			return out[i].AffinityScore > out[j].AffinityScore
		}
		return out[i].Category < out[j].Category
	})
	return truncate(out, limit)
}

func topBrands(loyalty map[string]float64, limit int) []BrandLoyalty {
	out := make([]BrandLoyalty, 0, len(loyalty))
	for brand, score := range loyalty {
		out = append(out, BrandLoyalty{Brand: brand, LoyaltyScore: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LoyaltyScore != out[j].LoyaltyScore {
			return out[i].LoyaltyScore > out[j].LoyaltyScore
		}
		return out[i].Brand < out[j].Brand
	})
	return truncate(out, limit)
}

func priceAlerts(a *domain.ComprehensiveAnalytics) []PriceAlertSuggestion {
	out := []PriceAlertSuggestion{}
	for productID, pi := range a.ProductBehavior.PriceInteractions {
		if pi.PriceChecks <= priceAlertMinChecks {
			continue
		}
		out = append(out, PriceAlertSuggestion{
			ProductID:       productID,
			PriceChecks:     pi.PriceChecks,
			SuggestedAction: "Set price alert",
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PriceChecks != out[j].PriceChecks {
			return out[i].PriceChecks > out[j].PriceChecks
		}
		return out[i].ProductID < out[j].ProductID
	})
	return truncate(out, priceAlertLimit)
}

// QuickActions returns the two shortcuts shown for a persona.
func QuickActions(persona string) []QuickAction {
	switch persona {
	case domain.PersonaPriceConscious:
		return []QuickAction{
			{Action: "view_deals", Title: "Today's Best Deals", Icon: "💰"},
			{Action: "price_comparison", Title: "Compare Prices", Icon: "📊"},
		}
	case domain.PersonaBrandLoyal:
		return []QuickAction{
			{Action: "favorite_brands", Title: "Your Favorite Brands", Icon: "⭐"},
			{Action: "brand_new", Title: "New from Your Brands", Icon: "🆕"},
		}
	case domain.PersonaExplorer:
		return []QuickAction{
			{Action: "discover", Title: "Discover New Products", Icon: "🔍"},
			{Action: "trending", Title: "What's Trending", Icon: "📈"},
		}
	}
	return []QuickAction{
		{Action: "search", Title: "Search Products", Icon: "🔍"},
		{Action: "categories", Title: "Browse Categories", Icon: "📦"},
	}
}

func truncate[T any](items []T, limit int) []T {
	if len(items) > limit {
		return items[:limit]
	}
	return items
}
