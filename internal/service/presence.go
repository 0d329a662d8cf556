package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cloo-solutions/shopple/internal/docstore"
	"github.com/cloo-solutions/shopple/internal/domain"
)

const presencePageSize = 100

// CleanupResult reports one stale presence sweep.
type CleanupResult struct {
	Processed int `json:"processed"`
	Stale     int `json:"stale"`
}

// PresenceService mirrors realtime presence into the status collection and the
// user document.
type PresenceService struct {
	store docstore.Store
	now   func() time.Time
}

func NewPresenceService(store docstore.Store) *PresenceService {
	return &PresenceService{store: store, now: time.Now}
}

// Sync mirrors a realtime status write for uid. A nil status means the
// realtime entry was deleted and the user is marked offline.
func (s *PresenceService) Sync(ctx context.Context, uid string, status *domain.PresenceStatus) error {
	if uid == "" {
		return domain.ErrMissingRequiredField
	}
	state := domain.PresenceOffline
	if status != nil && status.State != "" {
		state = status.State
	}

	writes := s.presenceWrites(uid, state)
	if status != nil {
		if status.CustomStatus != "" {
			writes[0].Fields["customStatus"] = status.CustomStatus
		}
		if status.StatusEmoji != "" {
			writes[0].Fields["statusEmoji"] = status.StatusEmoji
		}
	}

	if err := s.store.BatchWrite(ctx, writes); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("user_id", uid).Str("state", state).Msg("failed to sync presence")
		return domain.Internal("sync presence", err)
	}
	log.Ctx(ctx).Debug().Str("user_id", uid).Str("state", state).Msg("presence synced")
	return nil
}

// Cleanup marks users offline whose status says online while the realtime
// entry is gone or offline. Status documents are scanned in pages of 100 and
// each page is committed on its own.
func (s *PresenceService) Cleanup(ctx context.Context) (CleanupResult, error) {
	var result CleanupResult
	cursor := ""
	for {
		docs, err := query(ctx, s.store, docstore.Query{
			Collection: CollectionStatus,
			Filters:    []docstore.Filter{docstore.Eq("state", domain.PresenceOnline)},
			Limit:      presencePageSize,
			StartAfter: cursor,
		})
		if err != nil {
			return result, domain.Internal("list online users", err)
		}
		if len(docs) == 0 {
			break
		}

		var writes []docstore.Write
		for _, doc := range docs {
			stale, err := s.isStale(ctx, doc.ID)
			if err != nil {
				log.Ctx(ctx).Warn().Err(err).Str("user_id", doc.ID).Msg("failed to check realtime presence")
				continue
			}
			if stale {
				writes = append(writes, s.presenceWrites(doc.ID, domain.PresenceOffline)...)
				result.Stale++
			}
		}
		if len(writes) > 0 {
			if err := s.store.BatchWrite(ctx, writes); err != nil {
				return result, domain.Internal("mark stale presence offline", err)
			}
		}

		result.Processed += len(docs)
		if len(docs) < presencePageSize {
			break
		}
		cursor = docs[len(docs)-1].ID
	}

	log.Ctx(ctx).Info().Int("processed", result.Processed).Int("stale", result.Stale).Msg("stale presence cleanup finished")
	return result, nil
}

// ProcessJobs runs one cleanup sweep for the background worker.
func (s *PresenceService) ProcessJobs(ctx context.Context) error {
	_, err := s.Cleanup(ctx)
	return err
}

func (s *PresenceService) isStale(ctx context.Context, uid string) (bool, error) {
	doc, err := get(ctx, s.store, CollectionRealtimeStatus, uid)
	if err != nil {
		return false, err
	}
	if doc == nil {
		return true, nil
	}
	var status domain.PresenceStatus
	if err := doc.Decode(&status); err != nil {
		return false, err
	}
	return status.State == domain.PresenceOffline, nil
}

// presenceWrites sets state on status/{uid} and users/{uid}.presence. The
// status write comes first.
func (s *PresenceService) presenceWrites(uid, state string) []docstore.Write {
	now := s.now().UTC()
	return []docstore.Write{
		{
			Collection: CollectionStatus,
			ID:         uid,
			Mode:       docstore.ModeMerge,
			Fields:     map[string]any{"state": state, "last_changed": now},
		},
		{
			Collection: CollectionUsers,
			ID:         uid,
			Mode:       docstore.ModeMerge,
			Fields: map[string]any{"presence": map[string]any{
				"state":        state,
				"last_changed": now,
			}},
		},
	}
}
