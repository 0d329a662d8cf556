package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/cloo-solutions/shopple/internal/analytics"
	"github.com/cloo-solutions/shopple/internal/domain"
)

func TestAnalyticsHandler_TrackSearch(t *testing.T) {
	svc := new(MockAnalyticsService)
	svc.On("TrackSearch", mock.Anything, domain.SearchEvent{
		UserID:      "me",
		Query:       "amul butter",
		Category:    "dairy",
		ResultCount: 2,
	}).Return(nil)

	w := httptest.NewRecorder()
	NewAnalyticsHandler(svc).TrackSearch(w, requestAs("me", http.MethodPost, "/analytics/search",
		`{"query":"amul butter","category":"dairy","resultCount":2}`))

	assert.Equal(t, http.StatusOK, w.Code)
	var ack SuccessFlag
	decodeData(t, w, &ack)
	assert.True(t, ack.Success)
	svc.AssertExpectations(t)
}

func TestAnalyticsHandler_TrackSearch_ForeignUser(t *testing.T) {
	svc := new(MockAnalyticsService)

	w := httptest.NewRecorder()
	NewAnalyticsHandler(svc).TrackSearch(w, requestAs("me", http.MethodPost, "/analytics/search",
		`{"userId":"someone-else","query":"milk"}`))

	assert.Equal(t, http.StatusForbidden, w.Code)
	svc.AssertNotCalled(t, "TrackSearch", mock.Anything, mock.Anything)
}

func TestAnalyticsHandler_TrackBehavior(t *testing.T) {
	svc := new(MockAnalyticsService)
	svc.On("TrackBehavior", mock.Anything, mock.MatchedBy(func(e domain.BehaviorEvent) bool {
		return e.UserID == "me" &&
			e.EventType == domain.EventProductView &&
			e.ProductID == "p1" &&
			e.TimeSpent == 12 &&
			e.SessionID == "s1" &&
			e.UserAgent == "shopple-android"
	})).Return(nil)

	req := requestAs("me", http.MethodPost, "/analytics/behavior",
		`{"userId":"me","eventType":"product_view","productId":"p1","timeSpent":12,"sessionId":"s1"}`)
	req.Header.Set("User-Agent", "shopple-android")
	w := httptest.NewRecorder()
	NewAnalyticsHandler(svc).TrackBehavior(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestAnalyticsHandler_TrackBehavior_InvalidEvent(t *testing.T) {
	svc := new(MockAnalyticsService)
	svc.On("TrackBehavior", mock.Anything, mock.Anything).Return(domain.ErrInvalidEventType)

	w := httptest.NewRecorder()
	NewAnalyticsHandler(svc).TrackBehavior(w, requestAs("me", http.MethodPost, "/analytics/behavior", `{"eventType":"wishlist"}`))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, domain.ErrCodeValidation, errorCode(t, w))
}

func TestAnalyticsHandler_TrackBehavior_Anonymous(t *testing.T) {
	svc := new(MockAnalyticsService)

	w := httptest.NewRecorder()
	NewAnalyticsHandler(svc).TrackBehavior(w, requestAs("", http.MethodPost, "/analytics/behavior", `{"eventType":"search"}`))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAnalyticsHandler_Defaults(t *testing.T) {
	svc := new(MockAnalyticsService)
	svc.On("Defaults", mock.Anything, "me").Return(&analytics.Defaults{
		PersonalizationMetadata: analytics.DefaultsMetadata{ShoppingPersona: "new_user"},
	}, nil)

	w := httptest.NewRecorder()
	NewAnalyticsHandler(svc).Defaults(w, requestAs("me", http.MethodGet, "/analytics/defaults", ""))

	assert.Equal(t, http.StatusOK, w.Code)
	var defaults analytics.Defaults
	decodeData(t, w, &defaults)
	assert.Equal(t, "new_user", defaults.PersonalizationMetadata.ShoppingPersona)
	svc.AssertExpectations(t)
}
