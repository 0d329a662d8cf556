package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cloo-solutions/shopple/internal/api"
	"github.com/cloo-solutions/shopple/internal/api/handlers"
	"github.com/cloo-solutions/shopple/internal/api/middleware"
	"github.com/cloo-solutions/shopple/internal/metrics"
)

type RouterConfig struct {
	AuthValidator    middleware.AuthValidator
	TriggerSecret    string
	Gatherer         prometheus.Gatherer
	SearchHandler    *handlers.SearchHandler
	AnalyticsHandler *handlers.AnalyticsHandler
	BudgetHandler    *handlers.BudgetHandler
	ListHandler      *handlers.ListHandler
	ChatHandler      *handlers.ChatHandler
	TriggerHandler   *handlers.TriggerHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 5 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler(cfg.Gatherer))

	r.Group(func(r chi.Router) {
		r.Use(middleware.OptionalCallerAuth(cfg.AuthValidator))

		r.Post("/search/users", cfg.SearchHandler.SearchUsers)
		r.Post("/search/products", cfg.SearchHandler.SearchProducts)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.CallerAuth(cfg.AuthValidator))

		r.Route("/analytics", func(r chi.Router) {
			r.Post("/search", cfg.AnalyticsHandler.TrackSearch)
			r.Post("/behavior", cfg.AnalyticsHandler.TrackBehavior)
			r.Get("/defaults", cfg.AnalyticsHandler.Defaults)
		})

		r.Route("/budget", func(r chi.Router) {
			r.Get("/summary", cfg.BudgetHandler.Summary)
			r.Post("/alerts/read", cfg.BudgetHandler.MarkAlertsRead)
		})

		r.Route("/lists", func(r chi.Router) {
			r.Post("/hydration", cfg.ListHandler.Hydration)
			r.Post("/{listId}/backfill-prices", cfg.ListHandler.BackfillPrices)
		})

		r.Post("/chat/ensure-user", cfg.ChatHandler.EnsureUser)
	})

	r.Route("/triggers", func(r chi.Router) {
		r.Use(middleware.TriggerAuth(cfg.TriggerSecret))

		r.Post("/items/written", cfg.TriggerHandler.ItemWritten)
		r.Post("/contact-syncs/created", cfg.TriggerHandler.ContactSyncCreated)
		r.Post("/presence/written", cfg.TriggerHandler.PresenceWritten)
		r.Post("/presence/cleanup", cfg.TriggerHandler.PresenceCleanup)
		r.Post("/auth/user-created", cfg.TriggerHandler.UserCreated)
	})

	return r
}
