package domain

import "time"

// Budget alert types, ordered by threshold.
const (
	AlertExceeded  = "exceeded"
	AlertNearLimit = "near_limit"
	AlertWarning   = "warning"
)

// DefaultSpendCategory is used for completed items without a category.
const DefaultSpendCategory = "other"

// BudgetTracking is stored at shopping_lists/{listId}/meta/budget_tracking.
type BudgetTracking struct {
	TotalSpent        float64            `json:"totalSpent"`
	DailySpend        map[string]float64 `json:"dailySpend"`
	CategorySpend     map[string]float64 `json:"categorySpend"`
	LastItemCompleted *time.Time         `json:"lastItemCompleted,omitempty"`
	LastItemPrice     float64            `json:"lastItemPrice"`
	LastItemCategory  string             `json:"lastItemCategory,omitempty"`
	ItemsCompleted    int                `json:"itemsCompleted"`
	UpdatedAt         *time.Time         `json:"updatedAt,omitempty"`
}

// ThresholdAlert is a single crossed threshold.
type ThresholdAlert struct {
	Type        string  `json:"type"`
	Threshold   int     `json:"threshold"`
	Message     string  `json:"message"`
	Utilization float64 `json:"utilization"`
}

// BudgetAlert is stored under users/{uid}/budget_alerts/{id}. Only Read changes
// after creation.
type BudgetAlert struct {
	ID          string           `json:"id,omitempty"`
	ListID      string           `json:"listId"`
	ListName    string           `json:"listName"`
	Alerts      []ThresholdAlert `json:"alerts"`
	TotalSpent  float64          `json:"totalSpent"`
	Budget      float64          `json:"budget"`
	Utilization float64          `json:"utilization"`
	TriggeredBy string           `json:"triggeredBy"`
	CreatedAt   time.Time        `json:"createdAt"`
	Read        bool             `json:"read"`
}

// BudgetPeriod is the window of a budget summary.
type BudgetPeriod string

const (
	PeriodWeek  BudgetPeriod = "week"
	PeriodMonth BudgetPeriod = "month"
)

// ParseBudgetPeriod defaults to month.
func ParseBudgetPeriod(s string) (BudgetPeriod, error) {
	switch BudgetPeriod(s) {
	case "", PeriodMonth:
		return PeriodMonth, nil
	case PeriodWeek:
		return PeriodWeek, nil
	}
	return "", ErrInvalidPeriod
}

// BudgetSummary aggregates spend across a user's active lists.
type BudgetSummary struct {
	Summary    SpendTotals         `json:"summary"`
	Categories []CategorySpend     `json:"categories"`
	Lists      []ListBudgetSummary `json:"lists"`
}

type SpendTotals struct {
	TotalBudget  float64      `json:"totalBudget"`
	TotalSpent   float64      `json:"totalSpent"`
	Remaining    float64      `json:"remaining"`
	Utilization  float64      `json:"utilization"`
	IsOverBudget bool         `json:"isOverBudget"`
	Period       BudgetPeriod `json:"period"`
	PeriodStart  time.Time    `json:"periodStart"`
}

type CategorySpend struct {
	Category string  `json:"category"`
	Spent    float64 `json:"spent"`
}

type ListBudgetSummary struct {
	ListID       string  `json:"listId"`
	ListName     string  `json:"listName"`
	Budget       float64 `json:"budget"`
	Spent        float64 `json:"spent"`
	Utilization  float64 `json:"utilization"`
	IsOverBudget bool    `json:"isOverBudget"`
}
