package budget

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cloo-solutions/shopple/internal/domain"
)

type threshold struct {
	kind    string
	percent int
	ratio   float64
}

// Checked highest first; only the first crossing is reported.
var thresholds = []threshold{
	{kind: domain.AlertExceeded, percent: 100, ratio: 1.0},
	{kind: domain.AlertNearLimit, percent: 90, ratio: 0.9},
	{kind: domain.AlertWarning, percent: 75, ratio: 0.75},
}

// DetectAlert returns the highest threshold crossed by adding itemTotal to a
// list whose completed spend is now totalSpent, or nil. A threshold is crossed
// when previous < threshold <= current.
func DetectAlert(totalSpent, itemTotal, budget float64) *domain.ThresholdAlert {
	if budget <= 0 {
		return nil
	}
	utilization := totalSpent / budget
	previous := (totalSpent - itemTotal) / budget

	for _, th := range thresholds {
		if utilization >= th.ratio && previous < th.ratio {
			return &domain.ThresholdAlert{
				Type:        th.kind,
				Threshold:   th.percent,
				Message:     alertMessage(th.kind, totalSpent, budget),
				Utilization: utilization,
			}
		}
	}
	return nil
}

func alertMessage(kind string, totalSpent, budget float64) string {
	spent := decimal.NewFromFloat(totalSpent)
	limit := decimal.NewFromFloat(budget)
	remaining := limit.Sub(spent).StringFixed(0)

	switch kind {
	case domain.AlertExceeded:
		return fmt.Sprintf("Budget exceeded! You've spent Rs %s of Rs %s budget.", spent.StringFixed(0), limit.StringFixed(0))
	case domain.AlertNearLimit:
		return fmt.Sprintf("90%% of budget used. Rs %s remaining.", remaining)
	default:
		return fmt.Sprintf("75%% of budget used. Rs %s remaining.", remaining)
	}
}
