package budget

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cloo-solutions/shopple/internal/domain"
)

const maxSummaryCategories = 10

// ListSpend pairs a list with its tracking document.
type ListSpend struct {
	List     domain.ShoppingList
	Tracking domain.BudgetTracking
}

// PeriodStart returns midnight UTC of the current Sunday for weeks and of the
// first day of the month otherwise.
func PeriodStart(period domain.BudgetPeriod, now time.Time) time.Time {
	utc := now.UTC()
	midnight := time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
	if period == domain.PeriodWeek {
		return midnight.AddDate(0, 0, -int(utc.Weekday()))
	}
	return time.Date(utc.Year(), utc.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Summarize aggregates budgets and spend across lists. Categories are sorted by
// spend and capped at ten; lists are sorted by spend.
func Summarize(period domain.BudgetPeriod, now time.Time, lists []ListSpend) domain.BudgetSummary {
	totalBudget := decimal.Zero
	totalSpent := decimal.Zero
	categorySpend := map[string]decimal.Decimal{}
	summaries := make([]domain.ListBudgetSummary, 0, len(lists))

	for _, ls := range lists {
		budget := decimal.NewFromFloat(ls.List.BudgetLimit)
		spent := decimal.NewFromFloat(ls.Tracking.TotalSpent)
		totalBudget = totalBudget.Add(budget)
		totalSpent = totalSpent.Add(spent)

		for category, amount := range ls.Tracking.CategorySpend {
			current, ok := categorySpend[category]
			if !ok {
				current = decimal.Zero
			}
			categorySpend[category] = current.Add(decimal.NewFromFloat(amount))
		}

		summaries = append(summaries, domain.ListBudgetSummary{
			ListID:       ls.List.ID,
			ListName:     ls.List.Name,
			Budget:       ls.List.BudgetLimit,
			Spent:        ls.Tracking.TotalSpent,
			Utilization:  ratio(spent, budget),
			IsOverBudget: budget.IsPositive() && spent.GreaterThan(budget),
		})
	}

	categories := make([]domain.CategorySpend, 0, len(categorySpend))
	for category, amount := range categorySpend {
		categories = append(categories, domain.CategorySpend{Category: category, Spent: amount.InexactFloat64()})
	}
	sort.Slice(categories, func(i, j int) bool {
		if categories[i].Spent != categories[j].Spent {
			return categories[i].Spent > categories[j].Spent
		}
		return categories[i].Category < categories[j].Category
	})
	if len(categories) > maxSummaryCategories {
		categories = categories[:maxSummaryCategories]
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].Spent > summaries[j].Spent
	})

	return domain.BudgetSummary{
		Summary: domain.SpendTotals{
			TotalBudget:  totalBudget.InexactFloat64(),
			TotalSpent:   totalSpent.InexactFloat64(),
			Remaining:    totalBudget.Sub(totalSpent).InexactFloat64(),
			Utilization:  ratio(totalSpent, totalBudget),
			IsOverBudget: totalBudget.IsPositive() && totalSpent.GreaterThan(totalBudget),
			Period:       period,
			PeriodStart:  PeriodStart(period, now),
		},
		Categories: categories,
		Lists:      summaries,
	}
}

func ratio(spent, budget decimal.Decimal) float64 {
	if !budget.IsPositive() {
		return 0
	}
	return spent.InexactFloat64() / budget.InexactFloat64()
}
