package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/shopple/internal/api"
	"github.com/cloo-solutions/shopple/internal/api/middleware"
	"github.com/cloo-solutions/shopple/internal/domain"
	"github.com/cloo-solutions/shopple/internal/service"
)

type ListService interface {
	HydrationBatch(ctx context.Context, listIDs []string) ([]domain.HydrationMeta, error)
	BackfillPrices(ctx context.Context, listID, callerID string, apply bool) (*service.BackfillResult, error)
}

type ListHandler struct {
	svc ListService
}

func NewListHandler(svc ListService) *ListHandler {
	return &ListHandler{svc: svc}
}

type HydrationRequest struct {
	ListIDs []string `json:"listIds"`
}

type HydrationResponse struct {
	Lists []domain.HydrationMeta `json:"lists"`
}

type BackfillRequest struct {
	DryRun *bool `json:"dryRun"`
}

func (h *ListHandler) Hydration(w http.ResponseWriter, r *http.Request) {
	var req HydrationRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.HandleError(w, err)
		return
	}
	if len(req.ListIDs) == 0 {
		api.Success(w, http.StatusOK, HydrationResponse{Lists: []domain.HydrationMeta{}})
		return
	}

	metas, err := h.svc.HydrationBatch(r.Context(), req.ListIDs)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, HydrationResponse{Lists: metas})
}

// BackfillPrices is a dry run unless the body sets dryRun to false.
func (h *ListHandler) BackfillPrices(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.HandleError(w, domain.ErrUnauthenticated)
		return
	}
	listID := chi.URLParam(r, "listId")
	if listID == "" {
		api.HandleError(w, domain.ErrMissingRequiredField)
		return
	}
	var req BackfillRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.HandleError(w, err)
		return
	}
	apply := req.DryRun != nil && !*req.DryRun

	result, err := h.svc.BackfillPrices(r.Context(), listID, userID, apply)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, result)
}
