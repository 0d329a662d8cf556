package handlers

import (
	"context"
	"net/http"

	"github.com/cloo-solutions/shopple/internal/analytics"
	"github.com/cloo-solutions/shopple/internal/api"
	"github.com/cloo-solutions/shopple/internal/api/middleware"
	"github.com/cloo-solutions/shopple/internal/domain"
)

type AnalyticsService interface {
	TrackSearch(ctx context.Context, event domain.SearchEvent) error
	TrackBehavior(ctx context.Context, event domain.BehaviorEvent) error
	Defaults(ctx context.Context, uid string) (*analytics.Defaults, error)
}

type AnalyticsHandler struct {
	svc AnalyticsService
}

func NewAnalyticsHandler(svc AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc}
}

type TrackSearchRequest struct {
	UserID      string `json:"userId"`
	Query       string `json:"query"`
	Category    string `json:"category"`
	ResultCount int    `json:"resultCount"`
}

type SuccessFlag struct {
	Success bool `json:"success"`
}

func (h *AnalyticsHandler) TrackSearch(w http.ResponseWriter, r *http.Request) {
	var req TrackSearchRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.HandleError(w, err)
		return
	}
	userID, err := actingUser(r, req.UserID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	err = h.svc.TrackSearch(r.Context(), domain.SearchEvent{
		UserID:      userID,
		Query:       req.Query,
		Category:    req.Category,
		ResultCount: req.ResultCount,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, SuccessFlag{Success: true})
}

func (h *AnalyticsHandler) TrackBehavior(w http.ResponseWriter, r *http.Request) {
	var event domain.BehaviorEvent
	if err := api.DecodeJSON(r, &event); err != nil {
		api.HandleError(w, err)
		return
	}
	userID, err := actingUser(r, event.UserID)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	event.UserID = userID
	if event.UserAgent == "" {
		event.UserAgent = r.UserAgent()
	}

	if err := h.svc.TrackBehavior(r.Context(), event); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, SuccessFlag{Success: true})
}

func (h *AnalyticsHandler) Defaults(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.HandleError(w, domain.ErrUnauthenticated)
		return
	}

	defaults, err := h.svc.Defaults(r.Context(), userID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, defaults)
}

// actingUser resolves the user a request acts for. A body user id, when
// given, must be the caller.
func actingUser(r *http.Request, requested string) (string, error) {
	caller := middleware.GetUserID(r.Context())
	if caller == "" {
		return "", domain.ErrUnauthenticated
	}
	if requested != "" && requested != caller {
		return "", domain.ErrForeignUser
	}
	return caller, nil
}
