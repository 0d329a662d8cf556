package handlers

import (
	"context"
	"net/http"

	"github.com/cloo-solutions/shopple/internal/api"
	"github.com/cloo-solutions/shopple/internal/api/middleware"
	"github.com/cloo-solutions/shopple/internal/domain"
	"github.com/cloo-solutions/shopple/internal/service"
)

type UserSearcher interface {
	Search(ctx context.Context, req service.UserSearchRequest) (*service.UserSearchResult, error)
}

type ProductSearcher interface {
	Search(ctx context.Context, req service.ProductSearchRequest) (*service.ProductSearchResult, error)
}

type SearchHandler struct {
	users    UserSearcher
	products ProductSearcher
}

func NewSearchHandler(users UserSearcher, products ProductSearcher) *SearchHandler {
	return &SearchHandler{users: users, products: products}
}

type UserSearchRequest struct {
	Query              string           `json:"query"`
	QueryType          domain.QueryType `json:"queryType"`
	Limit              int              `json:"limit"`
	IsShortQuery       bool             `json:"isShortQuery"`
	ApplyPrivacyFilter *bool            `json:"applyPrivacyFilter"`
	IsWarmup           bool             `json:"isWarmup"`
}

type ProductSearchFilters struct {
	Category string   `json:"category"`
	Stores   []string `json:"stores"`
}

type ProductSearchRequest struct {
	Query   string               `json:"query"`
	Filters ProductSearchFilters `json:"filters"`
	Limit   int                  `json:"limit"`
}

// SearchUsers requires a caller unless the request is a warmup ping.
func (h *SearchHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	var req UserSearchRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.HandleError(w, err)
		return
	}

	applyPrivacy := true
	if req.ApplyPrivacyFilter != nil {
		applyPrivacy = *req.ApplyPrivacyFilter
	}

	result, err := h.users.Search(r.Context(), service.UserSearchRequest{
		Query:              req.Query,
		QueryType:          req.QueryType,
		Limit:              req.Limit,
		IsShortQuery:       req.IsShortQuery,
		ApplyPrivacyFilter: applyPrivacy,
		IsWarmup:           req.IsWarmup,
		RequesterID:        middleware.GetUserID(r.Context()),
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, result)
}

func (h *SearchHandler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	var req ProductSearchRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.HandleError(w, err)
		return
	}

	result, err := h.products.Search(r.Context(), service.ProductSearchRequest{
		Query:    req.Query,
		Category: req.Filters.Category,
		Stores:   req.Filters.Stores,
		Limit:    req.Limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, result)
}
