package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/cloo-solutions/shopple/internal/domain"
	"github.com/cloo-solutions/shopple/internal/service"
)

type triggerMocks struct {
	budget   *MockBudgetService
	lists    *MockListService
	contacts *MockContactMatcher
	presence *MockPresenceSyncer
	chat     *MockChatService
}

func newTriggerHandler() (*TriggerHandler, triggerMocks) {
	m := triggerMocks{
		budget:   new(MockBudgetService),
		lists:    new(MockListService),
		contacts: new(MockContactMatcher),
		presence: new(MockPresenceSyncer),
		chat:     new(MockChatService),
	}
	h := NewTriggerHandler(TriggerDeps{
		Budget:   m.budget,
		Lists:    m.lists,
		Contacts: m.contacts,
		Presence: m.presence,
		Chat:     m.chat,
	})
	return h, m
}

func TestTriggerHandler_ItemWritten(t *testing.T) {
	h, m := newTriggerHandler()
	change := service.ItemWrite{
		ListID: "l1",
		ItemID: "i1",
		Before: &domain.ListItem{Name: "Milk", EstimatedPrice: 300},
		After:  &domain.ListItem{Name: "Milk", EstimatedPrice: 300, IsCompleted: true},
	}
	m.budget.On("OnItemWritten", mock.Anything, change).Return(&domain.BudgetAlert{ListID: "l1", TotalSpent: 800}, nil)
	m.lists.On("Hydrate", mock.Anything, "l1").Return(&domain.HydrationMeta{}, nil)

	body := `{"listId":"l1","itemId":"i1","before":{"name":"Milk","estimatedPrice":300},"after":{"name":"Milk","estimatedPrice":300,"isCompleted":true}}`
	w := httptest.NewRecorder()
	h.ItemWritten(w, requestAs("", http.MethodPost, "/triggers/items/written", body))

	assert.Equal(t, http.StatusOK, w.Code)
	var ack struct {
		Processed bool               `json:"processed"`
		Result    domain.BudgetAlert `json:"result"`
	}
	decodeData(t, w, &ack)
	assert.True(t, ack.Processed)
	assert.Equal(t, 800.0, ack.Result.TotalSpent)
	m.budget.AssertExpectations(t)
	m.lists.AssertExpectations(t)
}

func TestTriggerHandler_ItemWritten_FailureIsAcknowledged(t *testing.T) {
	h, m := newTriggerHandler()
	m.budget.On("OnItemWritten", mock.Anything, mock.Anything).Return(nil, domain.Internal("update budget tracking", errors.New("contention")))
	m.lists.On("Hydrate", mock.Anything, "l1").Return(&domain.HydrationMeta{}, nil)

	w := httptest.NewRecorder()
	h.ItemWritten(w, requestAs("", http.MethodPost, "/triggers/items/written", `{"listId":"l1","itemId":"i1"}`))

	assert.Equal(t, http.StatusOK, w.Code)
	var ack TriggerAck
	decodeData(t, w, &ack)
	assert.False(t, ack.Processed)
	assert.Contains(t, ack.Error, "contention")
	m.lists.AssertExpectations(t)
}

func TestTriggerHandler_ItemWritten_ReportsEveryFailure(t *testing.T) {
	h, m := newTriggerHandler()
	m.budget.On("OnItemWritten", mock.Anything, mock.Anything).Return(nil, domain.Internal("update budget tracking", errors.New("contention")))
	m.lists.On("Hydrate", mock.Anything, "l1").Return(nil, errors.New("hydration unavailable"))

	w := httptest.NewRecorder()
	h.ItemWritten(w, requestAs("", http.MethodPost, "/triggers/items/written", `{"listId":"l1","itemId":"i1"}`))

	assert.Equal(t, http.StatusOK, w.Code)
	var ack TriggerAck
	decodeData(t, w, &ack)
	assert.False(t, ack.Processed)
	assert.Contains(t, ack.Error, "contention")
	assert.Contains(t, ack.Error, "hydration unavailable")
	m.budget.AssertExpectations(t)
	m.lists.AssertExpectations(t)
}

func TestTriggerHandler_ItemWritten_RejectsIncompletePayload(t *testing.T) {
	h, m := newTriggerHandler()

	w := httptest.NewRecorder()
	h.ItemWritten(w, requestAs("", http.MethodPost, "/triggers/items/written", `{"listId":"l1"}`))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	m.budget.AssertNotCalled(t, "OnItemWritten", mock.Anything, mock.Anything)
}

func TestTriggerHandler_ContactSyncCreated(t *testing.T) {
	h, m := newTriggerHandler()
	m.contacts.On("MatchContacts", mock.Anything, "u1").Return(&domain.ContactMatchResult{TotalMatches: 2, TotalProcessed: 5}, nil)

	w := httptest.NewRecorder()
	h.ContactSyncCreated(w, requestAs("", http.MethodPost, "/triggers/contact-syncs/created", `{"userId":"u1"}`))

	assert.Equal(t, http.StatusOK, w.Code)
	var ack struct {
		Processed bool           `json:"processed"`
		Result    map[string]int `json:"result"`
	}
	decodeData(t, w, &ack)
	assert.True(t, ack.Processed)
	assert.Equal(t, map[string]int{"matches": 2, "processed": 5}, ack.Result)
}

func TestTriggerHandler_PresenceWritten(t *testing.T) {
	h, m := newTriggerHandler()
	m.presence.On("Sync", mock.Anything, "u1", &domain.PresenceStatus{State: domain.PresenceOnline}).Return(nil)
	m.presence.On("Sync", mock.Anything, "u2", (*domain.PresenceStatus)(nil)).Return(errors.New("store down"))

	w := httptest.NewRecorder()
	h.PresenceWritten(w, requestAs("", http.MethodPost, "/triggers/presence/written", `{"userId":"u1","status":{"state":"online"}}`))
	assert.Equal(t, http.StatusOK, w.Code)
	var ack TriggerAck
	decodeData(t, w, &ack)
	assert.True(t, ack.Processed)

	w = httptest.NewRecorder()
	h.PresenceWritten(w, requestAs("", http.MethodPost, "/triggers/presence/written", `{"userId":"u2"}`))
	assert.Equal(t, http.StatusOK, w.Code)
	decodeData(t, w, &ack)
	assert.False(t, ack.Processed)
	m.presence.AssertExpectations(t)
}

func TestTriggerHandler_PresenceCleanup(t *testing.T) {
	h, m := newTriggerHandler()
	m.presence.On("Cleanup", mock.Anything).Return(service.CleanupResult{Processed: 3, Stale: 2}, nil)

	w := httptest.NewRecorder()
	h.PresenceCleanup(w, requestAs("", http.MethodPost, "/triggers/presence/cleanup", ""))

	assert.Equal(t, http.StatusOK, w.Code)
	var ack struct {
		Processed bool                  `json:"processed"`
		Result    service.CleanupResult `json:"result"`
	}
	decodeData(t, w, &ack)
	assert.Equal(t, service.CleanupResult{Processed: 3, Stale: 2}, ack.Result)
}

func TestTriggerHandler_UserCreated(t *testing.T) {
	h, m := newTriggerHandler()
	m.chat.On("OnUserCreated", mock.Anything, service.AuthUser{UID: "u1", DisplayName: "Ann", Email: "ann@example.com"}).Return(nil)

	w := httptest.NewRecorder()
	h.UserCreated(w, requestAs("", http.MethodPost, "/triggers/auth/user-created", `{"uid":"u1","displayName":"Ann","email":"ann@example.com"}`))

	assert.Equal(t, http.StatusOK, w.Code)
	m.chat.AssertExpectations(t)

	w = httptest.NewRecorder()
	h.UserCreated(w, requestAs("", http.MethodPost, "/triggers/auth/user-created", `{}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
