package handlers

import (
	"context"
	"net/http"

	"github.com/cloo-solutions/shopple/internal/api"
	"github.com/cloo-solutions/shopple/internal/api/middleware"
	"github.com/cloo-solutions/shopple/internal/domain"
)

type BudgetService interface {
	Summary(ctx context.Context, uid string, period domain.BudgetPeriod) (*domain.BudgetSummary, error)
	MarkAlertsRead(ctx context.Context, uid string, ids []string) (int, error)
}

type BudgetHandler struct {
	svc BudgetService
}

func NewBudgetHandler(svc BudgetService) *BudgetHandler {
	return &BudgetHandler{svc: svc}
}

type MarkAlertsReadRequest struct {
	AlertIDs []string `json:"alertIds"`
}

type MarkAlertsReadResponse struct {
	Success bool `json:"success"`
	Updated int  `json:"updated"`
}

func (h *BudgetHandler) Summary(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.HandleError(w, domain.ErrUnauthenticated)
		return
	}
	period, err := domain.ParseBudgetPeriod(r.URL.Query().Get("period"))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	summary, err := h.svc.Summary(r.Context(), userID, period)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, summary)
}

// MarkAlertsRead marks the listed alerts read, or every unread alert when no
// ids are sent.
func (h *BudgetHandler) MarkAlertsRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.HandleError(w, domain.ErrUnauthenticated)
		return
	}
	var req MarkAlertsReadRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.HandleError(w, err)
		return
	}
	ids := req.AlertIDs
	if len(ids) == 0 {
		ids = nil
	}

	updated, err := h.svc.MarkAlertsRead(r.Context(), userID, ids)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, MarkAlertsReadResponse{Success: true, Updated: updated})
}
