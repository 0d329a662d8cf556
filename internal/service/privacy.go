package service

import (
	"context"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/cloo-solutions/shopple/internal/docstore"
	"github.com/cloo-solutions/shopple/internal/domain"
)

// PrivacyFilter drops search results whose owners opted out of the query type.
type PrivacyFilter struct {
	store docstore.Store
}

func NewPrivacyFilter(store docstore.Store) *PrivacyFilter {
	return &PrivacyFilter{store: store}
}

// Filter keeps the requester, drops fully private users and applies the
// per-type searchable flags. When settings cannot be read the input is
// returned unchanged.
func (f *PrivacyFilter) Filter(ctx context.Context, users []domain.UserProfile, queryType domain.QueryType, requesterID string) []domain.UserProfile {
	var ids []string
	for _, u := range users {
		if u.UID != "" && u.UID != requesterID {
			ids = append(ids, u.UID)
		}
	}
	if len(ids) == 0 {
		return users
	}

	settings, err := f.load(ctx, ids)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Int("users", len(ids)).Msg("privacy lookup failed, returning unfiltered results")
		return users
	}

	kept := make([]domain.UserProfile, 0, len(users))
	for _, u := range users {
		if u.UID == requesterID || settings[u.UID].Allows(queryType) {
			kept = append(kept, u)
		}
	}
	return kept
}

func (f *PrivacyFilter) load(ctx context.Context, ids []string) (map[string]domain.PrivacySettings, error) {
	chunks := docstore.Chunk(ids, docstore.MaxInKeys)
	found := make([][]docstore.Document, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	for i, chunk := range chunks {
		g.Go(func() error {
			docs, err := query(gctx, f.store, docstore.Query{
				Collection: CollectionUsers,
				Filters:    []docstore.Filter{docstore.In(docstore.FieldID, chunk)},
				Select:     []string{"privacy"},
			})
			found[i] = docs
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	settings := make(map[string]domain.PrivacySettings, len(ids))
	for _, docs := range found {
		for _, doc := range docs {
			var p domain.PrivacySettings
			if err := docstore.DecodeField(doc.Data, "privacy", &p); err != nil {
				return nil, err
			}
			settings[doc.ID] = p
		}
	}
	return settings, nil
}
