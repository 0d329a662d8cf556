package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/shopple/internal/docstore"
	"github.com/cloo-solutions/shopple/internal/domain"
)

func newContactService(store docstore.Store) *ContactService {
	s := NewContactService(store)
	s.now = fixedClock
	return s
}

func TestContactPhoneVariations(t *testing.T) {
	assert.Equal(t,
		[]string{"+1 (555) 123-4567", "+15551234567", "5551234567", "15551234567"},
		ContactPhoneVariations("+1 (555) 123-4567"))
	assert.Equal(t, []string{"+94771234567"}, ContactPhoneVariations("+94771234567"))
	assert.Equal(t, []string{"077 123 4567", "0771234567"}, ContactPhoneVariations("077 123 4567"))
}

func TestHashPhoneNumber(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", HashPhoneNumber(""))
	assert.Len(t, HashPhoneNumber("+94771234567"), 64)
}

func TestContactService_MatchContacts(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	s := newContactService(store)
	seed(t, store, CollectionUsers, "me", domain.UserProfile{FirstName: "Me", PhoneNumber: "+94770000000"})
	seed(t, store, CollectionUsers, "ann", domain.UserProfile{FirstName: "Ann", LastName: "Lee", PhoneNumber: "+1 555 123 4567", Email: "ann@example.com", PhotoURL: "https://img/ann.png"})
	seed(t, store, CollectionUsers, "bob", domain.UserProfile{FirstName: "Bob", PhoneNumber: "0771112222"})
	seed(t, store, CollectionUsers, "nophone", domain.UserProfile{FirstName: "Ghost"})
	seed(t, store, CollectionContactSyncs, "me", map[string]any{
		"hashedContacts": []string{
			HashPhoneNumber("5551234567"),
			HashPhoneNumber("+94770000000"),
			HashPhoneNumber("0771112222"),
			HashPhoneNumber("+15551234567"),
			HashPhoneNumber("0000000000"),
		},
	})

	result, err := s.MatchContacts(ctx, "me")

	require.NoError(t, err)
	assert.Equal(t, []domain.ContactMatch{
		{UID: "ann", Name: "Ann Lee", PhoneNumber: "+1 555 123 4567", ProfilePicture: "https://img/ann.png", Email: "ann@example.com"},
		{UID: "bob", Name: "Bob", PhoneNumber: "0771112222"},
	}, result.Matches)
	assert.Equal(t, 5, result.TotalProcessed)
	assert.Equal(t, 2, result.TotalMatches)
	assert.Equal(t, domain.SyncStatusCompleted, result.SyncStatus)

	stored := load(t, store, CollectionUserContacts, "me")
	assert.Equal(t, 2.0, stored["totalMatches"])
	assert.Equal(t, "completed", stored["syncStatus"])

	upload := load(t, store, CollectionContactSyncs, "me")
	assert.Equal(t, "completed", upload["status"])
	assert.Equal(t, 2.0, upload["matchCount"])
	assert.Contains(t, upload, "processedAt")
	assert.Contains(t, upload, "hashedContacts")
}

func TestContactService_PagesThroughUsers(t *testing.T) {
	store := docstore.NewMemory()
	s := newContactService(store)
	var hashes []string
	for i := range contactScanPageSize + 3 {
		phone := "+9477" + padInt(i)
		seed(t, store, CollectionUsers, "u"+padInt(i), domain.UserProfile{FirstName: "U", PhoneNumber: phone})
		hashes = append(hashes, HashPhoneNumber(phone))
	}
	seed(t, store, CollectionContactSyncs, "me", map[string]any{"hashedContacts": hashes})

	result, err := s.MatchContacts(context.Background(), "me")

	require.NoError(t, err)
	assert.Equal(t, contactScanPageSize+3, result.TotalMatches)
}

func padInt(i int) string {
	const digits = "0123456789"
	out := make([]byte, 7)
	for j := len(out) - 1; j >= 0; j-- {
		out[j] = digits[i%10]
		i /= 10
	}
	return string(out)
}

func TestContactService_MissingUploadIsNoop(t *testing.T) {
	result, err := newContactService(docstore.NewMemory()).MatchContacts(context.Background(), "me")
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestContactService_RequiresUser(t *testing.T) {
	_, err := newContactService(docstore.NewMemory()).MatchContacts(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrMissingRequiredField)
}

func TestContactService_MarksUndecodableUploadFailed(t *testing.T) {
	store := docstore.NewMemory()
	seed(t, store, CollectionContactSyncs, "me", map[string]any{"hashedContacts": "not-a-list"})

	_, err := newContactService(store).MatchContacts(context.Background(), "me")

	assertDomainCode(t, err, domain.ErrCodeInternalError)
	upload := load(t, store, CollectionContactSyncs, "me")
	assert.Equal(t, "failed", upload["status"])
	assert.NotEmpty(t, upload["error"])
}
