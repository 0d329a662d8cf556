package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/cloo-solutions/shopple/internal/budget"
	"github.com/cloo-solutions/shopple/internal/docstore"
	"github.com/cloo-solutions/shopple/internal/domain"
	"github.com/cloo-solutions/shopple/internal/metrics"
)

// ItemWrite is a change to shopping_lists/{ListID}/items/{ItemID}. Before is
// nil on create and After is nil on delete.
type ItemWrite struct {
	ListID string           `json:"listId"`
	ItemID string           `json:"itemId"`
	Before *domain.ListItem `json:"before,omitempty"`
	After  *domain.ListItem `json:"after,omitempty"`
}

// BudgetService tracks list spend and raises threshold alerts.
type BudgetService struct {
	store   docstore.Store
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewBudgetService(store docstore.Store, m *metrics.Metrics) *BudgetService {
	return &BudgetService{store: store, metrics: m, now: time.Now}
}

// OnItemWritten folds a newly completed item into the list's budget tracking
// and stores at most one alert for the list owner. Every other write is a
// no-op and returns nil.
func (s *BudgetService) OnItemWritten(ctx context.Context, w ItemWrite) (*domain.BudgetAlert, error) {
	if !budget.IsCompletionTransition(w.Before, w.After) {
		return nil, nil
	}
	item := *w.After
	item.ID = w.ItemID

	listDoc, err := get(ctx, s.store, CollectionShoppingLists, w.ListID)
	if err != nil {
		return nil, domain.Internal("load shopping list", err)
	}
	if listDoc == nil {
		return nil, nil
	}
	var list domain.ShoppingList
	if err := listDoc.Decode(&list); err != nil {
		return nil, domain.Internal("decode shopping list", err)
	}
	list.ID = listDoc.ID

	now := s.now()
	var (
		outcome  budget.Completion
		previous float64
	)
	// The completed items are rescanned on every attempt so a retry never
	// folds in a snapshot taken before a concurrent completion committed.
	err = s.store.RunTransaction(ctx, listMetaCollection(w.ListID), DocBudgetTracking, func(current map[string]any) (map[string]any, error) {
		completed, err := s.completedItems(ctx, w.ListID)
		if err != nil {
			return nil, err
		}
		var tracking domain.BudgetTracking
		if err := docstore.Decode(current, &tracking); err != nil {
			return nil, err
		}
		stored := tracking.TotalSpent
		outcome = budget.ApplyCompletion(&tracking, item, completed, now)
		previous = outcome.TotalSpent - outcome.ItemTotal
		if current != nil {
			previous = stored
		}
		return docstore.Encode(tracking)
	})
	if err != nil {
		return nil, domain.Internal("update budget tracking", err)
	}
	log.Ctx(ctx).Info().
		Str("list_id", w.ListID).
		Float64("total_spent", outcome.TotalSpent).
		Msg("budget tracking updated")

	if list.BudgetLimit <= 0 || list.CreatedBy == "" {
		return nil, nil
	}
	crossed := budget.DetectAlert(outcome.TotalSpent, outcome.TotalSpent-previous, list.BudgetLimit)
	if crossed == nil {
		return nil, nil
	}

	alert := &domain.BudgetAlert{
		ID:          uuid.NewString(),
		ListID:      w.ListID,
		ListName:    list.DisplayName(),
		Alerts:      []domain.ThresholdAlert{*crossed},
		TotalSpent:  outcome.TotalSpent,
		Budget:      list.BudgetLimit,
		Utilization: crossed.Utilization,
		TriggeredBy: w.ItemID,
		CreatedAt:   now,
	}
	fields, err := docstore.Encode(alert)
	if err != nil {
		return nil, domain.Internal("encode budget alert", err)
	}
	delete(fields, "id")
	err = s.store.BatchWrite(ctx, []docstore.Write{{
		Collection: budgetAlertsCollection(list.CreatedBy),
		ID:         alert.ID,
		Fields:     fields,
	}})
	if err != nil {
		return nil, domain.Internal("store budget alert", err)
	}
	s.metrics.BudgetAlert(crossed.Type)
	log.Ctx(ctx).Info().
		Str("list_id", w.ListID).
		Str("alert", crossed.Type).
		Msg("budget alert triggered")
	return alert, nil
}

func (s *BudgetService) completedItems(ctx context.Context, listID string) ([]domain.ListItem, error) {
	docs, err := query(ctx, s.store, docstore.Query{
		Collection: itemsCollection(listID),
		Filters:    []docstore.Filter{docstore.Eq("isCompleted", true)},
	})
	if err != nil {
		return nil, err
	}
	return decodeItems(docs), nil
}

// decodeItems reads list items leniently; numeric fields stored as strings
// are parsed.
func decodeItems(docs []docstore.Document) []domain.ListItem {
	items := make([]domain.ListItem, 0, len(docs))
	for _, doc := range docs {
		items = append(items, itemFromData(doc.ID, doc.Data))
	}
	return items
}

func itemFromData(id string, data map[string]any) domain.ListItem {
	item := domain.ListItem{
		ID:             id,
		Name:           stringValue(data["name"]),
		ProductID:      stringValue(data["productId"]),
		Quantity:       numberValue(data["quantity"]),
		EstimatedPrice: numberValue(data["estimatedPrice"]),
		Category:       stringValue(data["category"]),
	}
	item.IsCompleted, _ = data["isCompleted"].(bool)
	return item
}

// UnmarshalJSON reads the item snapshots as leniently as stored items.
func (w *ItemWrite) UnmarshalJSON(b []byte) error {
	var raw struct {
		ListID string         `json:"listId"`
		ItemID string         `json:"itemId"`
		Before map[string]any `json:"before"`
		After  map[string]any `json:"after"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	w.ListID, w.ItemID = raw.ListID, raw.ItemID
	w.Before, w.After = nil, nil
	if raw.Before != nil {
		before := itemFromData("", raw.Before)
		w.Before = &before
	}
	if raw.After != nil {
		after := itemFromData("", raw.After)
		w.After = &after
	}
	return nil
}

// Summary aggregates spend over the user's active lists.
func (s *BudgetService) Summary(ctx context.Context, uid string, period domain.BudgetPeriod) (*domain.BudgetSummary, error) {
	docs, err := query(ctx, s.store, docstore.Query{
		Collection: CollectionShoppingLists,
		Filters: []docstore.Filter{
			docstore.ArrayContains("memberIds", uid),
			docstore.Eq("status", domain.ListStatusActive),
		},
	})
	if err != nil {
		return nil, domain.Internal("load shopping lists", err)
	}

	spends := make([]budget.ListSpend, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	for i, doc := range docs {
		if err := doc.Decode(&spends[i].List); err != nil {
			return nil, domain.Internal("decode shopping list", err)
		}
		spends[i].List.ID = doc.ID
		g.Go(func() error {
			tracking, err := get(gctx, s.store, listMetaCollection(doc.ID), DocBudgetTracking)
			if err != nil || tracking == nil {
				return err
			}
			return tracking.Decode(&spends[i].Tracking)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, domain.Internal("load budget tracking", err)
	}

	summary := budget.Summarize(period, s.now(), spends)
	return &summary, nil
}

// MarkAlertsRead marks the given alerts read, or every unread alert when ids
// is nil. It returns the number of alerts updated.
func (s *BudgetService) MarkAlertsRead(ctx context.Context, uid string, ids []string) (int, error) {
	collection := budgetAlertsCollection(uid)
	if ids == nil {
		docs, err := query(ctx, s.store, docstore.Query{
			Collection: collection,
			Filters:    []docstore.Filter{docstore.Eq("read", false)},
		})
		if err != nil {
			return 0, domain.Internal("load unread alerts", err)
		}
		ids = make([]string, len(docs))
		for i, doc := range docs {
			ids[i] = doc.ID
		}
	}

	writes := make([]docstore.Write, len(ids))
	for i, id := range ids {
		writes[i] = docstore.Write{
			Collection: collection,
			ID:         id,
			Fields:     map[string]any{"read": true},
			Mode:       docstore.ModeUpdate,
		}
	}
	if err := docstore.BatchWriteAll(ctx, s.store, writes); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return 0, domain.NewDomainErrorWithCause(domain.ErrCodeNotFound, "budget alert not found", err)
		}
		return 0, domain.Internal("mark alerts read", err)
	}
	return len(ids), nil
}
