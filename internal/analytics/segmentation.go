package analytics

import (
	"math"

	"github.com/cloo-solutions/shopple/internal/domain"
)

// Persona and activity thresholds.
const (
	priceConsciousThreshold = 0.7
	brandLoyalThreshold     = 0.6
	explorerThreshold       = 0.6
	convenienceSessionSecs  = 120

	highActivityEvents   = 100
	mediumActivityEvents = 20

	brandLoyaltyViews = 10
)

// ComputePersonalization derives affinity and sensitivity scores, each in
// [0, 1].
func ComputePersonalization(a *domain.ComprehensiveAnalytics) domain.Personalization {
	pb := a.ProductBehavior
	p := domain.Personalization{
		CategoryAffinity: make(map[string]float64, len(pb.ProductCategories)),
		BrandLoyalty:     make(map[string]float64, len(pb.Brands)),
	}

	for category, stat := range pb.ProductCategories {
		p.CategoryAffinity[category] = CategoryAffinityScore(stat.ViewCount, stat.TimeSpent)
	}
	for brand, stat := range pb.Brands {
		if !domain.IsValidBrand(brand) {
			continue
		}
		p.BrandLoyalty[brand] = min(1, float64(stat.ViewCount)/brandLoyaltyViews)
	}

	if distinct := len(pb.ViewedProducts); distinct > 0 {
		checks := 0
		for _, pi := range pb.PriceInteractions {
			checks += pi.PriceChecks
		}
		p.PriceSensitivity = min(1, float64(checks)/float64(distinct))
	}

	if views := totalViews(a); views > 0 && len(pb.ProductCategories) > 0 {
		p.DiscoveryVsLoyalty = min(1, float64(len(pb.ProductCategories))/math.Sqrt(float64(views)))
	}
	return p
}

// CategoryAffinityScore weighs views and dwell time (milliseconds) into [0, 1].
func CategoryAffinityScore(viewCount int, timeSpentMs float64) float64 {
	return min(1, (float64(viewCount)*0.3+(timeSpentMs/1000)*0.7)/100)
}

// ComputeSegmentation picks the first matching persona and the activity tier.
func ComputeSegmentation(a *domain.ComprehensiveAnalytics, p domain.Personalization) domain.UserSegmentation {
	return domain.UserSegmentation{
		ShoppingPersona: persona(a, p),
		ActivityLevel:   activityLevel(a.SearchBehavior.TotalSearches + totalViews(a)),
	}
}

func persona(a *domain.ComprehensiveAnalytics, p domain.Personalization) string {
	switch {
	case p.PriceSensitivity > priceConsciousThreshold:
		return domain.PersonaPriceConscious
	case mean(p.BrandLoyalty) > brandLoyalThreshold:
		return domain.PersonaBrandLoyal
	case p.DiscoveryVsLoyalty > explorerThreshold:
		return domain.PersonaExplorer
	}
	if lengths := a.TemporalPatterns.SessionLengths; len(lengths) > 0 {
		total := 0.0
		for _, l := range lengths {
			total += l
		}
		if total/float64(len(lengths)) < convenienceSessionSecs {
			return domain.PersonaConvenienceSeeker
		}
	}
	return domain.PersonaBalanced
}

func activityLevel(events int) string {
	switch {
	case events > highActivityEvents:
		return domain.ActivityHigh
	case events > mediumActivityEvents:
		return domain.ActivityMedium
	}
	return domain.ActivityLow
}

func mean(values map[string]float64) float64 {
	if len(values) == 0 {
		return 0
	}
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}
