package domain

import "time"

// ListStatusActive marks lists that count toward budget summaries.
const ListStatusActive = "active"

// DefaultListName is used in alerts when a list has no name.
const DefaultListName = "Shopping List"

// ShoppingList is a shopping_lists document.
type ShoppingList struct {
	ID          string   `json:"-"`
	Name        string   `json:"name,omitempty"`
	CreatedBy   string   `json:"createdBy,omitempty"`
	MemberIDs   []string `json:"memberIds,omitempty"`
	Status      string   `json:"status,omitempty"`
	BudgetLimit float64  `json:"budgetLimit,omitempty"`
}

// DisplayName returns the list name or the default.
func (l ShoppingList) DisplayName() string {
	if l.Name == "" {
		return DefaultListName
	}
	return l.Name
}

// ListItem is a shopping_lists/{listId}/items document.
type ListItem struct {
	ID             string  `json:"-"`
	Name           string  `json:"name,omitempty"`
	ProductID      string  `json:"productId,omitempty"`
	Quantity       float64 `json:"quantity,omitempty"`
	EstimatedPrice float64 `json:"estimatedPrice,omitempty"`
	IsCompleted    bool    `json:"isCompleted,omitempty"`
	Category       string  `json:"category,omitempty"`
}

// HydrationMeta is the precomputed summary kept on a list and in meta/hydration.
type HydrationMeta struct {
	ListID            string     `json:"listId,omitempty"`
	TotalItems        float64    `json:"totalItems"`
	CompletedItems    float64    `json:"completedItems"`
	EstimatedTotal    float64    `json:"estimatedTotal"`
	DistinctProducts  int        `json:"distinctProducts"`
	DistinctCompleted int        `json:"distinctCompleted"`
	UpdatedAt         *time.Time `json:"updatedAt,omitempty"`
}

// PriceBackfill is one item price fill proposed or applied by a backfill run.
type PriceBackfill struct {
	ItemID        string  `json:"itemId"`
	ProductID     string  `json:"productId"`
	Price         float64 `json:"price"`
	SupermarketID string  `json:"supermarketId,omitempty"`
}
