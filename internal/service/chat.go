package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cloo-solutions/shopple/internal/chat"
	"github.com/cloo-solutions/shopple/internal/docstore"
	"github.com/cloo-solutions/shopple/internal/domain"
)

const defaultChatName = "User"

// AuthUser is the identity delivered when an account is created.
type AuthUser struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	PhotoURL    string `json:"photoURL"`
}

// ChatService mirrors user identities into the chat provider.
type ChatService struct {
	store  docstore.Store
	syncer chat.Syncer
	now    func() time.Time
}

func NewChatService(store docstore.Store, syncer chat.Syncer) *ChatService {
	if syncer == nil {
		syncer = chat.Noop{}
	}
	return &ChatService{store: store, syncer: syncer, now: time.Now}
}

// OnUserCreated registers a new account with the chat provider. Provider and
// store failures are logged and swallowed.
func (s *ChatService) OnUserCreated(ctx context.Context, user AuthUser) error {
	if user.UID == "" {
		return domain.ErrMissingRequiredField
	}
	logger := log.Ctx(ctx).With().Str("user_id", user.UID).Logger()

	name := user.DisplayName
	if name == "" {
		name = defaultChatName
	}
	err := s.syncer.UpsertProfile(ctx, user.UID, name, user.Email, user.PhotoURL)
	if errors.Is(err, chat.ErrNotConfigured) {
		logger.Debug().Msg("chat provider not configured, skipping user sync")
		return nil
	}
	if err != nil {
		logger.Error().Err(err).Msg("failed to create chat user")
		return nil
	}
	if err := s.markSynced(ctx, user.UID); err != nil {
		logger.Error().Err(err).Msg("failed to mark chat user synced")
		return nil
	}
	logger.Info().Msg("chat user created")
	return nil
}

// EnsureUser re-syncs the caller's profile into the chat provider. Unlike
// OnUserCreated, every failure is returned.
func (s *ChatService) EnsureUser(ctx context.Context, callerID, userID string) error {
	if callerID == "" {
		return domain.ErrUnauthenticated
	}
	if userID == "" {
		return domain.ErrMissingRequiredField
	}
	if userID != callerID {
		return domain.ErrForeignUser
	}

	doc, err := get(ctx, s.store, CollectionUsers, userID)
	if err != nil {
		return domain.Internal("load user", err)
	}
	if doc == nil {
		return domain.ErrUserNotFound
	}
	var profile domain.UserProfile
	if err := doc.Decode(&profile); err != nil {
		return domain.Internal("decode user", err)
	}

	err = s.syncer.UpsertProfile(ctx, userID, chatName(profile), profile.Email, chatAvatar(profile))
	if errors.Is(err, chat.ErrNotConfigured) {
		return domain.ErrChatNotConfigured
	}
	if err != nil {
		return domain.Internal("sync chat user", err)
	}
	if err := s.markSynced(ctx, userID); err != nil {
		return domain.Internal("mark chat user synced", err)
	}
	log.Ctx(ctx).Info().Str("user_id", userID).Msg("chat user repaired")
	return nil
}

func (s *ChatService) markSynced(ctx context.Context, uid string) error {
	ctx, cancel := withStoreTimeout(ctx)
	defer cancel()
	return s.store.BatchWrite(ctx, []docstore.Write{{
		Collection: CollectionUsers,
		ID:         uid,
		Mode:       docstore.ModeMerge,
		Fields:     map[string]any{"streamSyncedAt": s.now().UTC()},
	}})
}

// chatName prefers first and last name, then the display name.
func chatName(p domain.UserProfile) string {
	if p.FirstName != "" {
		return p.FullName()
	}
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return defaultChatName
}

func chatAvatar(p domain.UserProfile) string {
	if p.CustomPhotoURL != "" {
		return p.CustomPhotoURL
	}
	return p.PhotoURL
}
