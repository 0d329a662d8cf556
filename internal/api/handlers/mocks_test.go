package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/shopple/internal/analytics"
	"github.com/cloo-solutions/shopple/internal/api/middleware"
	"github.com/cloo-solutions/shopple/internal/domain"
	"github.com/cloo-solutions/shopple/internal/service"
)

type MockUserSearcher struct {
	mock.Mock
}

func (m *MockUserSearcher) Search(ctx context.Context, req service.UserSearchRequest) (*service.UserSearchResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.UserSearchResult), args.Error(1)
}

type MockProductSearcher struct {
	mock.Mock
}

func (m *MockProductSearcher) Search(ctx context.Context, req service.ProductSearchRequest) (*service.ProductSearchResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ProductSearchResult), args.Error(1)
}

type MockAnalyticsService struct {
	mock.Mock
}

func (m *MockAnalyticsService) TrackSearch(ctx context.Context, event domain.SearchEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *MockAnalyticsService) TrackBehavior(ctx context.Context, event domain.BehaviorEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *MockAnalyticsService) Defaults(ctx context.Context, uid string) (*analytics.Defaults, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*analytics.Defaults), args.Error(1)
}

type MockBudgetService struct {
	mock.Mock
}

func (m *MockBudgetService) Summary(ctx context.Context, uid string, period domain.BudgetPeriod) (*domain.BudgetSummary, error) {
	args := m.Called(ctx, uid, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BudgetSummary), args.Error(1)
}

func (m *MockBudgetService) MarkAlertsRead(ctx context.Context, uid string, ids []string) (int, error) {
	args := m.Called(ctx, uid, ids)
	return args.Int(0), args.Error(1)
}

func (m *MockBudgetService) OnItemWritten(ctx context.Context, w service.ItemWrite) (*domain.BudgetAlert, error) {
	args := m.Called(ctx, w)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BudgetAlert), args.Error(1)
}

type MockListService struct {
	mock.Mock
}

func (m *MockListService) HydrationBatch(ctx context.Context, listIDs []string) ([]domain.HydrationMeta, error) {
	args := m.Called(ctx, listIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.HydrationMeta), args.Error(1)
}

func (m *MockListService) BackfillPrices(ctx context.Context, listID, callerID string, apply bool) (*service.BackfillResult, error) {
	args := m.Called(ctx, listID, callerID, apply)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.BackfillResult), args.Error(1)
}

func (m *MockListService) Hydrate(ctx context.Context, listID string) (*domain.HydrationMeta, error) {
	args := m.Called(ctx, listID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.HydrationMeta), args.Error(1)
}

type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) EnsureUser(ctx context.Context, callerID, userID string) error {
	return m.Called(ctx, callerID, userID).Error(0)
}

func (m *MockChatService) OnUserCreated(ctx context.Context, user service.AuthUser) error {
	return m.Called(ctx, user).Error(0)
}

type MockContactMatcher struct {
	mock.Mock
}

func (m *MockContactMatcher) MatchContacts(ctx context.Context, uid string) (*domain.ContactMatchResult, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ContactMatchResult), args.Error(1)
}

type MockPresenceSyncer struct {
	mock.Mock
}

func (m *MockPresenceSyncer) Sync(ctx context.Context, uid string, status *domain.PresenceStatus) error {
	return m.Called(ctx, uid, status).Error(0)
}

func (m *MockPresenceSyncer) Cleanup(ctx context.Context) (service.CleanupResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(service.CleanupResult), args.Error(1)
}

func requestAs(userID, method, url, body string) *http.Request {
	req := httptest.NewRequest(method, url, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		ctx := context.WithValue(req.Context(), middleware.UserIDKey, userID)
		req = req.WithContext(ctx)
	}
	return req
}

// decodeData unmarshals the data envelope of a success response into v.
func decodeData(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, v))
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Code
}
