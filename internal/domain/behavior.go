package domain

import "time"

// EventType enumerates tracked behavior events.
type EventType string

const (
	EventSearch      EventType = "search"
	EventProductView EventType = "product_view"
	EventPriceCheck  EventType = "price_check"
	EventAddToCart   EventType = "add_to_cart"
)

// IsValid reports whether the event type is tracked.
func (e EventType) IsValid() bool {
	switch e {
	case EventSearch, EventProductView, EventPriceCheck, EventAddToCart:
		return true
	}
	return false
}

// Shopping personas, first match wins in this order.
const (
	PersonaPriceConscious    = "price_conscious"
	PersonaBrandLoyal        = "brand_loyal"
	PersonaExplorer          = "explorer"
	PersonaConvenienceSeeker = "convenience_seeker"
	PersonaBalanced          = "balanced_shopper"
	PersonaNewUser           = "new_user"
)

// Activity tiers.
const (
	ActivityHigh   = "high"
	ActivityMedium = "medium"
	ActivityLow    = "low"
)

// AnalyticsVersion is written on every comprehensive analytics update.
const AnalyticsVersion = "2.0"

// BehaviorEvent is a single tracked interaction.
type BehaviorEvent struct {
	UserID          string          `json:"userId"`
	EventType       EventType       `json:"eventType"`
	ProductID       string          `json:"productId,omitempty"`
	SearchQuery     string          `json:"searchQuery,omitempty"`
	TimeSpent       float64         `json:"timeSpent,omitempty"`
	InteractionData *Interaction    `json:"interactionData,omitempty"`
	SessionID       string          `json:"sessionId,omitempty"`
	Timestamp       time.Time       `json:"timestamp"`
	UserAgent       string          `json:"userAgent,omitempty"`
	Product         *ProductSummary `json:"-"`
}

// ProductSummary is the category and brand of a viewed product.
type ProductSummary struct {
	Category string
	Brand    string
}

// Interaction is a client-reported detail attached to a product view.
type Interaction struct {
	Type      string     `json:"type,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Data      any        `json:"data,omitempty"`
}

// ComprehensiveAnalytics is stored under users/{uid}.comprehensiveAnalytics.
// Personalization, UserSegmentation and PurchaseIntent are always recomputed
// from the raw counters.
type ComprehensiveAnalytics struct {
	SearchBehavior   SearchBehavior   `json:"searchBehavior"`
	ProductBehavior  ProductBehavior  `json:"productBehavior"`
	TemporalPatterns TemporalPatterns `json:"temporalPatterns"`
	PurchaseIntent   PurchaseIntent   `json:"purchaseIntent"`
	Personalization  Personalization  `json:"personalization"`
	UserSegmentation UserSegmentation `json:"userSegmentation"`
	LastUpdated      *time.Time       `json:"lastUpdated,omitempty"`
	AnalyticsVersion string           `json:"analyticsVersion"`
}

type SearchBehavior struct {
	TotalSearches  int                      `json:"totalSearches"`
	SearchQueries  map[string]QueryActivity `json:"searchQueries"`
	SearchPatterns QueryPatterns            `json:"searchPatterns"`
}

type QueryActivity struct {
	Count        int        `json:"count"`
	LastSearched *time.Time `json:"lastSearched,omitempty"`
}

type QueryPatterns struct {
	TimeOfDay   map[int]int `json:"timeOfDay"`
	DayOfWeek   map[int]int `json:"dayOfWeek"`
	QueryLength []int       `json:"queryLength"`
}

type ProductBehavior struct {
	ViewedProducts       map[string]*ProductView      `json:"viewedProducts"`
	ProductCategories    map[string]*EngagementStat   `json:"productCategories"`
	Brands               map[string]*EngagementStat   `json:"brands"`
	PriceInteractions    map[string]*PriceInteraction `json:"priceInteractions"`
	AddToCartCount       int                          `json:"addToCartCount"`
	ViewToCartConversion float64                      `json:"viewToCartConversion"`
}

type ProductView struct {
	ViewCount      int           `json:"viewCount"`
	TotalTimeSpent float64       `json:"totalTimeSpent"`
	LastViewed     *time.Time    `json:"lastViewed,omitempty"`
	Interactions   []Interaction `json:"interactions"`
	Category       string        `json:"category,omitempty"`
	Brand          string        `json:"brand,omitempty"`
}

// EngagementStat aggregates views and dwell time (milliseconds).
type EngagementStat struct {
	ViewCount int     `json:"viewCount"`
	TimeSpent float64 `json:"timeSpent"`
}

type PriceInteraction struct {
	PriceChecks    int        `json:"priceChecks"`
	LastPriceCheck *time.Time `json:"lastPriceCheck,omitempty"`
}

type TemporalPatterns struct {
	MostActiveHours map[int]int              `json:"mostActiveHours"`
	MostActiveDays  map[int]int              `json:"mostActiveDays"`
	Sessions        map[string]SessionWindow `json:"sessions"`
	SessionLengths  []float64                `json:"sessionLengths"`
}

// SessionWindow is the first and last event time seen for a client session.
type SessionWindow struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Events int       `json:"events"`
}

type PurchaseIntent struct {
	HighIntentProducts map[string]int `json:"highIntentProducts"`
}

type Personalization struct {
	CategoryAffinity   map[string]float64 `json:"categoryAffinity"`
	BrandLoyalty       map[string]float64 `json:"brandLoyalty"`
	PriceSensitivity   float64            `json:"priceSensitivity"`
	DiscoveryVsLoyalty float64            `json:"discoveryVsLoyalty"`
}

type UserSegmentation struct {
	ShoppingPersona string `json:"shoppingPersona"`
	ActivityLevel   string `json:"activityLevel"`
}

// NewComprehensiveAnalytics returns an empty snapshot with allocated maps.
func NewComprehensiveAnalytics() *ComprehensiveAnalytics {
	a := &ComprehensiveAnalytics{AnalyticsVersion: AnalyticsVersion}
	a.Normalize()
	return a
}

// Normalize allocates any map that decoded as nil.
func (a *ComprehensiveAnalytics) Normalize() {
	if a.SearchBehavior.SearchQueries == nil {
		a.SearchBehavior.SearchQueries = map[string]QueryActivity{}
	}
	if a.SearchBehavior.SearchPatterns.TimeOfDay == nil {
		a.SearchBehavior.SearchPatterns.TimeOfDay = map[int]int{}
	}
	if a.SearchBehavior.SearchPatterns.DayOfWeek == nil {
		a.SearchBehavior.SearchPatterns.DayOfWeek = map[int]int{}
	}
	pb := &a.ProductBehavior
	if pb.ViewedProducts == nil {
		pb.ViewedProducts = map[string]*ProductView{}
	}
	if pb.ProductCategories == nil {
		pb.ProductCategories = map[string]*EngagementStat{}
	}
	if pb.Brands == nil {
		pb.Brands = map[string]*EngagementStat{}
	}
	if pb.PriceInteractions == nil {
		pb.PriceInteractions = map[string]*PriceInteraction{}
	}
	tp := &a.TemporalPatterns
	if tp.MostActiveHours == nil {
		tp.MostActiveHours = map[int]int{}
	}
	if tp.MostActiveDays == nil {
		tp.MostActiveDays = map[int]int{}
	}
	if tp.Sessions == nil {
		tp.Sessions = map[string]SessionWindow{}
	}
	if a.PurchaseIntent.HighIntentProducts == nil {
		a.PurchaseIntent.HighIntentProducts = map[string]int{}
	}
	if a.Personalization.CategoryAffinity == nil {
		a.Personalization.CategoryAffinity = map[string]float64{}
	}
	if a.Personalization.BrandLoyalty == nil {
		a.Personalization.BrandLoyalty = map[string]float64{}
	}
}
