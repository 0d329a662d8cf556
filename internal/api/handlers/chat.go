package handlers

import (
	"context"
	"net/http"

	"github.com/cloo-solutions/shopple/internal/api"
	"github.com/cloo-solutions/shopple/internal/api/middleware"
)

type ChatService interface {
	EnsureUser(ctx context.Context, callerID, userID string) error
}

type ChatHandler struct {
	svc ChatService
}

func NewChatHandler(svc ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

type EnsureUserRequest struct {
	UserID string `json:"userId"`
}

// EnsureUser defaults the target user to the caller.
func (h *ChatHandler) EnsureUser(w http.ResponseWriter, r *http.Request) {
	var req EnsureUserRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.HandleError(w, err)
		return
	}
	callerID := middleware.GetUserID(r.Context())
	userID := req.UserID
	if userID == "" {
		userID = callerID
	}

	if err := h.svc.EnsureUser(r.Context(), callerID, userID); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, SuccessFlag{Success: true})
}
