package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cloo-solutions/shopple/internal/docstore"
	"github.com/cloo-solutions/shopple/internal/domain"
)

const contactScanPageSize = 500

var contactFields = []string{"firstName", "lastName", "phoneNumber", "photoURL", "email"}

// contactSync is the upload stored at contact_syncs/{uid}.
type contactSync struct {
	HashedContacts []string `json:"hashedContacts"`
}

// ContactService matches uploaded contact hashes against registered users.
type ContactService struct {
	store docstore.Store
	now   func() time.Time
}

func NewContactService(store docstore.Store) *ContactService {
	return &ContactService{store: store, now: time.Now}
}

// MatchContacts processes the contact upload of uid. The result replaces
// user_contacts/{uid} and the upload is marked completed, or failed with the
// error message when anything goes wrong. A missing upload is a no-op.
func (s *ContactService) MatchContacts(ctx context.Context, uid string) (*domain.ContactMatchResult, error) {
	if uid == "" {
		return nil, domain.ErrMissingRequiredField
	}
	syncDoc, err := get(ctx, s.store, CollectionContactSyncs, uid)
	if err != nil {
		return nil, domain.Internal("load contact sync", err)
	}
	if syncDoc == nil {
		return nil, nil
	}
	var upload contactSync
	if err := syncDoc.Decode(&upload); err != nil {
		return nil, s.fail(ctx, uid, err)
	}

	logger := log.Ctx(ctx).With().Str("user_id", uid).Logger()
	logger.Info().Int("hashes", len(upload.HashedContacts)).Msg("processing contact sync")

	index, err := s.phoneIndex(ctx)
	if err != nil {
		return nil, s.fail(ctx, uid, err)
	}

	now := s.now().UTC()
	result := domain.ContactMatchResult{
		Matches:        matchHashes(index, upload.HashedContacts, uid),
		TotalProcessed: len(upload.HashedContacts),
		LastUpdated:    now,
		SyncStatus:     domain.SyncStatusCompleted,
	}
	result.TotalMatches = len(result.Matches)

	fields, err := docstore.Encode(result)
	if err != nil {
		return nil, s.fail(ctx, uid, err)
	}
	writes := []docstore.Write{
		{Collection: CollectionUserContacts, ID: uid, Fields: fields, Mode: docstore.ModeSet},
		{Collection: CollectionContactSyncs, ID: uid, Mode: docstore.ModeUpdate, Fields: map[string]any{
			"status":      domain.SyncStatusCompleted,
			"matchCount":  result.TotalMatches,
			"processedAt": now,
		}},
	}
	if err := s.store.BatchWrite(ctx, writes); err != nil {
		return nil, s.fail(ctx, uid, err)
	}

	logger.Info().Int("matches", result.TotalMatches).Msg("contact sync completed")
	return &result, nil
}

// fail records the failure on the upload and returns the original error.
func (s *ContactService) fail(ctx context.Context, uid string, cause error) error {
	log.Ctx(ctx).Error().Err(cause).Str("user_id", uid).Msg("contact matching failed")
	err := s.store.BatchWrite(ctx, []docstore.Write{{
		Collection: CollectionContactSyncs,
		ID:         uid,
		Mode:       docstore.ModeMerge,
		Fields: map[string]any{
			"status":      domain.SyncStatusFailed,
			"error":       cause.Error(),
			"processedAt": s.now().UTC(),
		},
	}})
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("user_id", uid).Msg("failed to record contact sync failure")
	}
	return domain.Internal("match contacts", cause)
}

// phoneIndex maps the hash of every phone variation of every registered user
// to that user. Later users win when two share a variation.
func (s *ContactService) phoneIndex(ctx context.Context) (map[string]domain.ContactMatch, error) {
	index := map[string]domain.ContactMatch{}
	cursor := ""
	for {
		docs, err := query(ctx, s.store, docstore.Query{
			Collection: CollectionUsers,
			Select:     contactFields,
			Limit:      contactScanPageSize,
			StartAfter: cursor,
		})
		if err != nil {
			return nil, err
		}
		for _, doc := range docs {
			var user domain.UserProfile
			if err := doc.Decode(&user); err != nil || user.PhoneNumber == "" {
				continue
			}
			match := domain.ContactMatch{
				UID:            doc.ID,
				Name:           user.FullName(),
				PhoneNumber:    user.PhoneNumber,
				ProfilePicture: user.PhotoURL,
				Email:          user.Email,
			}
			for _, variation := range ContactPhoneVariations(user.PhoneNumber) {
				index[HashPhoneNumber(variation)] = match
			}
		}
		if len(docs) < contactScanPageSize {
			return index, nil
		}
		cursor = docs[len(docs)-1].ID
	}
}

// matchHashes returns the users behind hashes in upload order, without self
// and without repeats.
func matchHashes(index map[string]domain.ContactMatch, hashes []string, self string) []domain.ContactMatch {
	matches := []domain.ContactMatch{}
	seen := map[string]bool{}
	for _, hash := range hashes {
		match, ok := index[hash]
		if !ok || match.UID == self || seen[match.UID] {
			continue
		}
		seen[match.UID] = true
		matches = append(matches, match)
	}
	return matches
}

// ContactPhoneVariations returns the stored forms a contact upload may hash:
// the number as stored, its digits-and-plus form, and for +1 numbers the
// national and 1-prefixed forms.
func ContactPhoneVariations(phone string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if r == '+' || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, phone)

	candidates := []string{phone, cleaned}
	if strings.HasPrefix(cleaned, "+1") && len(cleaned) == 12 {
		national := cleaned[2:]
		candidates = append(candidates, national, "1"+national)
	}

	variations := make([]string, 0, len(candidates))
	seen := map[string]bool{}
	for _, c := range candidates {
		if !seen[c] {
			seen[c] = true
			variations = append(variations, c)
		}
	}
	return variations
}

// HashPhoneNumber is the lowercase hex SHA-256 of phone.
func HashPhoneNumber(phone string) string {
	sum := sha256.Sum256([]byte(phone))
	return hex.EncodeToString(sum[:])
}
