package analytics

import (
	"math"
	"time"

	"github.com/cloo-solutions/shopple/internal/domain"
)

// ComputePurchaseIntent scores every viewed product.
func ComputePurchaseIntent(a *domain.ComprehensiveAnalytics, now time.Time) domain.PurchaseIntent {
	scores := make(map[string]int, len(a.ProductBehavior.ViewedProducts))
	for productID, view := range a.ProductBehavior.ViewedProducts {
		checks := 0
		if pi := a.ProductBehavior.PriceInteractions[productID]; pi != nil {
			checks = pi.PriceChecks
		}
		scores[productID] = IntentScore(view, checks, now)
	}
	return domain.PurchaseIntent{HighIntentProducts: scores}
}

// IntentScore estimates purchase likelihood in [0, 100] from repeat views,
// dwell time, recency and price checks.
func IntentScore(view *domain.ProductView, priceChecks int, now time.Time) int {
	score := math.Min(40, float64(view.ViewCount)*8)
	score += math.Min(30, view.TotalTimeSpent/1000/10)

	if view.LastViewed != nil {
		since := now.Sub(*view.LastViewed)
		switch {
		case since < day:
			score += 20
		case since < 7*day:
			score += 10
		}
	}

	score += math.Min(10, float64(priceChecks)*5)

	return int(math.Max(0, math.Min(100, math.Round(score))))
}
