package budget

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/cloo-solutions/shopple/internal/domain"
)

const hydrationTolerance = 0.001

// ComputeHydration summarizes a list's items. Quantities default to zero here,
// unlike spend where a missing quantity counts as one.
func ComputeHydration(items []domain.ListItem) domain.HydrationMeta {
	var (
		meta           domain.HydrationMeta
		totalItems     = decimal.Zero
		completedItems = decimal.Zero
		estimatedTotal = decimal.Zero
	)
	for _, item := range items {
		qty := decimal.NewFromFloat(item.Quantity)
		totalItems = totalItems.Add(qty)
		meta.DistinctProducts++
		if item.IsCompleted {
			completedItems = completedItems.Add(qty)
			meta.DistinctCompleted++
		}
		estimatedTotal = estimatedTotal.Add(qty.Mul(decimal.NewFromFloat(item.EstimatedPrice)))
	}
	meta.TotalItems = totalItems.InexactFloat64()
	meta.CompletedItems = completedItems.InexactFloat64()
	meta.EstimatedTotal = estimatedTotal.InexactFloat64()
	return meta
}

// HydrationUnchanged reports whether writing next over current would be a
// no-op. A nil current always needs a write.
func HydrationUnchanged(current *domain.HydrationMeta, next domain.HydrationMeta) bool {
	if current == nil {
		return false
	}
	return closeEnough(current.TotalItems, next.TotalItems) &&
		closeEnough(current.CompletedItems, next.CompletedItems) &&
		closeEnough(current.EstimatedTotal, next.EstimatedTotal) &&
		current.DistinctProducts == next.DistinctProducts &&
		current.DistinctCompleted == next.DistinctCompleted
}

func closeEnough(a, b float64) bool {
	return math.Abs(a-b) <= hydrationTolerance
}
