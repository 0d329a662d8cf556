package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/cloo-solutions/shopple/internal/domain"
)

func TestChatHandler_EnsureUser_DefaultsToCaller(t *testing.T) {
	svc := new(MockChatService)
	svc.On("EnsureUser", mock.Anything, "me", "me").Return(nil)

	w := httptest.NewRecorder()
	NewChatHandler(svc).EnsureUser(w, requestAs("me", http.MethodPost, "/chat/ensure-user", ""))

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestChatHandler_EnsureUser_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"other user", domain.ErrForeignUser, http.StatusForbidden},
		{"unknown user", domain.ErrUserNotFound, http.StatusNotFound},
		{"provider missing", domain.ErrChatNotConfigured, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockChatService)
			svc.On("EnsureUser", mock.Anything, "me", "you").Return(tt.err)

			w := httptest.NewRecorder()
			NewChatHandler(svc).EnsureUser(w, requestAs("me", http.MethodPost, "/chat/ensure-user", `{"userId":"you"}`))

			assert.Equal(t, tt.status, w.Code)
		})
	}
}
