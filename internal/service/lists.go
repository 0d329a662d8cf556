package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cloo-solutions/shopple/internal/budget"
	"github.com/cloo-solutions/shopple/internal/docstore"
	"github.com/cloo-solutions/shopple/internal/domain"
)

const backfillSampleSize = 5

// BackfillResult reports a price backfill run. Updates holds a sample on dry
// runs and every applied fill otherwise.
type BackfillResult struct {
	Message string                 `json:"message"`
	DryRun  bool                   `json:"dryRun"`
	Total   int                    `json:"total"`
	Updated int                    `json:"updated"`
	Updates []domain.PriceBackfill `json:"updates"`
}

// ListService keeps list hydration summaries current and fills missing
// item prices.
type ListService struct {
	store docstore.Store
	now   func() time.Time
}

func NewListService(store docstore.Store) *ListService {
	return &ListService{store: store, now: time.Now}
}

// Hydrate recomputes the list summary and writes it to meta/hydration and
// the list document, skipping either write when nothing changed.
func (s *ListService) Hydrate(ctx context.Context, listID string) (*domain.HydrationMeta, error) {
	docs, err := query(ctx, s.store, docstore.Query{
		Collection: itemsCollection(listID),
		Select:     []string{"quantity", "estimatedPrice", "isCompleted"},
	})
	if err != nil {
		return nil, domain.Internal("load list items", err)
	}
	next := budget.ComputeHydration(decodeItems(docs))

	var metaDoc, listDoc *docstore.Document
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		metaDoc, err = get(gctx, s.store, listMetaCollection(listID), DocHydration)
		return err
	})
	g.Go(func() (err error) {
		listDoc, err = get(gctx, s.store, CollectionShoppingLists, listID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, domain.Internal("load hydration", err)
	}

	now := s.now()
	next.UpdatedAt = &now
	fields, err := docstore.Encode(next)
	if err != nil {
		return nil, domain.Internal("encode hydration", err)
	}

	var writes []docstore.Write
	if !budget.HydrationUnchanged(hydrationOf(metaDoc), next) {
		writes = append(writes, docstore.Write{
			Collection: listMetaCollection(listID), ID: DocHydration, Fields: fields, Mode: docstore.ModeMerge,
		})
	}
	if !budget.HydrationUnchanged(hydrationOf(listDoc), next) {
		writes = append(writes, docstore.Write{
			Collection: CollectionShoppingLists, ID: listID, Fields: fields, Mode: docstore.ModeMerge,
		})
	}
	if len(writes) > 0 {
		if err := s.store.BatchWrite(ctx, writes); err != nil {
			return nil, domain.Internal("write hydration", err)
		}
	}
	next.ListID = listID
	return &next, nil
}

// hydrationOf reads a stored summary; nil when the document has none.
func hydrationOf(doc *docstore.Document) *domain.HydrationMeta {
	if doc == nil {
		return nil
	}
	if _, ok := doc.Data["totalItems"]; !ok {
		return nil
	}
	var meta domain.HydrationMeta
	if err := doc.Decode(&meta); err != nil {
		return nil
	}
	return &meta
}

// HydrationBatch returns the stored summaries for listIDs in order. Lists
// without a summary report zeros.
func (s *ListService) HydrationBatch(ctx context.Context, listIDs []string) ([]domain.HydrationMeta, error) {
	out := make([]domain.HydrationMeta, 0, len(listIDs))
	for _, group := range docstore.Chunk(listIDs, docstore.MaxInKeys) {
		metas := make([]domain.HydrationMeta, len(group))
		g, gctx := errgroup.WithContext(ctx)
		for i, id := range group {
			g.Go(func() error {
				doc, err := get(gctx, s.store, listMetaCollection(id), DocHydration)
				if err != nil {
					return err
				}
				if doc != nil {
					if err := doc.Decode(&metas[i]); err != nil {
						return err
					}
				}
				metas[i].ListID = id
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, domain.Internal("load hydration", err)
		}
		out = append(out, metas...)
	}
	return out, nil
}

// BackfillPrices fills items that reference a product but carry no positive
// price with the product's cheapest current price. Nothing is written unless
// apply is set. A non-empty callerID must be a member of the list.
func (s *ListService) BackfillPrices(ctx context.Context, listID, callerID string, apply bool) (*BackfillResult, error) {
	if listID == "" {
		return nil, domain.ErrMissingRequiredField
	}
	if callerID != "" {
		if err := s.checkMember(ctx, listID, callerID); err != nil {
			return nil, err
		}
	}

	docs, err := query(ctx, s.store, docstore.Query{Collection: itemsCollection(listID)})
	if err != nil {
		return nil, domain.Internal("load list items", err)
	}
	var candidates []domain.ListItem
	for _, item := range decodeItems(docs) {
		if item.ProductID != "" && item.EstimatedPrice <= 0 {
			candidates = append(candidates, item)
		}
	}
	if len(candidates) == 0 {
		return &BackfillResult{Message: "No items need price backfill", DryRun: !apply, Updates: []domain.PriceBackfill{}}, nil
	}

	cheapest := make([]*domain.PriceRecord, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	for i, item := range candidates {
		g.Go(func() error {
			prices, err := query(gctx, s.store, docstore.Query{
				Collection: CollectionCurrentPrices,
				Filters:    []docstore.Filter{docstore.Eq("productId", item.ProductID)},
				OrderBy:    "price",
				Limit:      1,
			})
			if err != nil || len(prices) == 0 {
				return err
			}
			record := priceRecord(prices[0].Data)
			cheapest[i] = &record
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, domain.Internal("load current prices", err)
	}

	updates := []domain.PriceBackfill{}
	for i, item := range candidates {
		if r := cheapest[i]; r != nil && r.Price > 0 {
			updates = append(updates, domain.PriceBackfill{
				ItemID:        item.ID,
				ProductID:     item.ProductID,
				Price:         r.Price,
				SupermarketID: r.SupermarketID,
			})
		}
	}

	if !apply {
		return &BackfillResult{
			Message: fmt.Sprintf("Dry run: Would update %d items", len(updates)),
			DryRun:  true,
			Total:   len(updates),
			Updates: slices.Clone(updates[:min(len(updates), backfillSampleSize)]),
		}, nil
	}

	now := s.now()
	writes := make([]docstore.Write, len(updates))
	for i, u := range updates {
		writes[i] = docstore.Write{
			Collection: itemsCollection(listID),
			ID:         u.ItemID,
			Fields: map[string]any{
				"estimatedPrice":    u.Price,
				"updatedAt":         now,
				"priceBackfilledAt": now,
			},
			Mode: docstore.ModeMerge,
		}
	}
	if err := docstore.BatchWriteAll(ctx, s.store, writes); err != nil {
		return nil, domain.Internal("write backfilled prices", err)
	}
	return &BackfillResult{
		Message: fmt.Sprintf("Successfully updated %d items with prices", len(updates)),
		Total:   len(updates),
		Updated: len(updates),
		Updates: updates,
	}, nil
}

func (s *ListService) checkMember(ctx context.Context, listID, uid string) error {
	doc, err := get(ctx, s.store, CollectionShoppingLists, listID)
	if err != nil {
		return domain.Internal("load shopping list", err)
	}
	if doc == nil {
		return domain.ErrListNotFound
	}
	var list domain.ShoppingList
	if err := doc.Decode(&list); err != nil {
		return domain.Internal("decode shopping list", err)
	}
	if list.CreatedBy != uid && !slices.Contains(list.MemberIDs, uid) {
		return domain.ErrNotListMember
	}
	return nil
}
