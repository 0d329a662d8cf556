// Package chat keeps user identities in the chat provider in step with user
// profiles.
package chat

import (
	"context"
	"errors"
	"fmt"

	stream "github.com/GetStream/stream-chat-go/v6"
)

// ErrNotConfigured is returned by the no-op syncer.
var ErrNotConfigured = errors.New("chat: provider not configured")

// Syncer upserts a user profile into the chat provider.
type Syncer interface {
	UpsertProfile(ctx context.Context, id, name, email, avatarURL string) error
}

// StreamSyncer is a Syncer backed by Stream Chat.
type StreamSyncer struct {
	client *stream.Client
}

// NewStreamSyncer creates a Stream Chat syncer. Both credentials are required.
func NewStreamSyncer(apiKey, apiSecret string) (*StreamSyncer, error) {
	client, err := stream.NewClient(apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("create stream client: %w", err)
	}
	return &StreamSyncer{client: client}, nil
}

func (s *StreamSyncer) UpsertProfile(ctx context.Context, id, name, email, avatarURL string) error {
	user := &stream.User{
		ID:    id,
		Name:  name,
		Image: avatarURL,
		ExtraData: map[string]interface{}{
			"auth_uid": id,
		},
	}
	if email != "" {
		user.ExtraData["email"] = email
	}
	if _, err := s.client.UpsertUser(ctx, user); err != nil {
		return fmt.Errorf("upsert stream user %s: %w", id, err)
	}
	return nil
}

// Noop is used when no provider credentials are configured.
type Noop struct{}

func (Noop) UpsertProfile(context.Context, string, string, string, string) error {
	return ErrNotConfigured
}

// New returns a Stream syncer when both credentials are set and Noop otherwise.
func New(apiKey, apiSecret string) (Syncer, error) {
	if apiKey == "" || apiSecret == "" {
		return Noop{}, nil
	}
	return NewStreamSyncer(apiKey, apiSecret)
}
