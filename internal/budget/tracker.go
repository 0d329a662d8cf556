// Package budget tracks list spend as items are completed and detects budget
// threshold crossings.
package budget

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cloo-solutions/shopple/internal/domain"
)

// DateKeyLayout keys daily spend by UTC calendar day.
const DateKeyLayout = "2006-01-02"

// IsCompletionTransition reports whether an item write moved isCompleted from
// false (or absent) to true. Deletions and every other transition are no-ops.
func IsCompletionTransition(before, after *domain.ListItem) bool {
	if after == nil || !after.IsCompleted {
		return false
	}
	return before == nil || !before.IsCompleted
}

// ItemTotal is estimatedPrice * quantity, with a missing quantity counting as one.
func ItemTotal(item domain.ListItem) decimal.Decimal {
	qty := item.Quantity
	if qty == 0 {
		qty = 1
	}
	return decimal.NewFromFloat(item.EstimatedPrice).Mul(decimal.NewFromFloat(qty))
}

// TotalSpent sums the totals of every completed item.
func TotalSpent(items []domain.ListItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		if item.IsCompleted {
			total = total.Add(ItemTotal(item))
		}
	}
	return total
}

// Completion is the outcome of folding one completed item into a list's
// tracking document.
type Completion struct {
	ItemTotal  float64
	TotalSpent float64
}

// ApplyCompletion recomputes the authoritative total from completedItems and
// adds the item's contribution to the daily and category breakdowns.
func ApplyCompletion(t *domain.BudgetTracking, item domain.ListItem, completedItems []domain.ListItem, now time.Time) Completion {
	if t.DailySpend == nil {
		t.DailySpend = map[string]float64{}
	}
	if t.CategorySpend == nil {
		t.CategorySpend = map[string]float64{}
	}

	itemTotal := ItemTotal(item)
	category := item.Category
	if category == "" {
		category = domain.DefaultSpendCategory
	}

	dayKey := now.UTC().Format(DateKeyLayout)
	t.DailySpend[dayKey] = addFloat(t.DailySpend[dayKey], itemTotal)
	t.CategorySpend[category] = addFloat(t.CategorySpend[category], itemTotal)

	total := TotalSpent(completedItems)
	t.TotalSpent = total.InexactFloat64()
	t.LastItemPrice = itemTotal.InexactFloat64()
	t.LastItemCategory = category
	t.LastItemCompleted = &now
	t.ItemsCompleted = countCompleted(completedItems)
	t.UpdatedAt = &now

	return Completion{ItemTotal: t.LastItemPrice, TotalSpent: t.TotalSpent}
}

func addFloat(current float64, delta decimal.Decimal) float64 {
	return decimal.NewFromFloat(current).Add(delta).InexactFloat64()
}

func countCompleted(items []domain.ListItem) int {
	n := 0
	for _, item := range items {
		if item.IsCompleted {
			n++
		}
	}
	return n
}
