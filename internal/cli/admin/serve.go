package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cloo-solutions/shopple/internal/api/handlers"
	"github.com/cloo-solutions/shopple/internal/auth"
	"github.com/cloo-solutions/shopple/internal/cache"
	"github.com/cloo-solutions/shopple/internal/chat"
	"github.com/cloo-solutions/shopple/internal/jobs"
	"github.com/cloo-solutions/shopple/internal/server"
	"github.com/cloo-solutions/shopple/internal/service"
	"github.com/cloo-solutions/shopple/internal/telemetry"
)

const shutdownTimeout = 30 * time.Second

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the shopple API server with the trigger endpoints and the presence cleanup worker",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (overrides SHOPPLE_PORT)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().Bool("no-worker", false, "Do not run the presence cleanup worker")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if cfg.HasSentry() {
		// Full sampling in development, 10% elsewhere.
		sampleRate := 0.1
		if cfg.Environment == "development" {
			sampleRate = 1.0
		}
		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			TracesSampleRate: sampleRate,
			Debug:            cfg.Debug,
		})
		if err != nil {
			log.Warn().Err(err).Msg("telemetry init failed, continuing without tracing")
		} else {
			defer shutdownTelemetry()
		}
	}

	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}

	rt, err := openRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if rt.pool != nil && !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	searchCache, err := rt.searchCache()
	if err != nil {
		return err
	}

	syncer, err := chat.New(cfg.StreamAPIKey, cfg.StreamAPISecret)
	if err != nil {
		return fmt.Errorf("failed to create chat client: %w", err)
	}
	if !cfg.HasChat() {
		log.Info().Msg("chat provider not configured, user sync disabled")
	}

	tokens, err := auth.NewTokens(cfg.AuthSecret)
	if err != nil {
		return err
	}

	app := newApp(rt, searchCache, syncer)
	router := app.router(tokens, cfg.TriggerSecret)

	var worker *jobs.Worker
	noWorker, _ := cmd.Flags().GetBool("no-worker")
	if !noWorker {
		worker = jobs.NewWorker("presence-cleanup", app.presence, cfg.PresenceCleanupInterval)
		go worker.Start(ctx)
		log.Info().Dur("interval", cfg.PresenceCleanupInterval).Msg("presence cleanup worker started")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("store", cfg.StoreDriver).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	if worker != nil {
		worker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("server exited")
	return nil
}

// app is the set of services behind the HTTP surface.
type app struct {
	rt        *runtime
	users     *service.UserSearchService
	products  *service.ProductSearchService
	analytics *service.AnalyticsService
	budget    *service.BudgetService
	lists     *service.ListService
	contacts  *service.ContactService
	presence  *service.PresenceService
	chat      *service.ChatService
}

func newApp(rt *runtime, searchCache *cache.SearchCache, syncer chat.Syncer) *app {
	store := rt.store
	brandTTL := rt.cfg.BrandIndexTTL
	return &app{
		rt:        rt,
		users:     service.NewUserSearchService(store, service.NewPrivacyFilter(store), rt.metrics),
		products:  service.NewProductSearchService(store, searchCache, rt.metrics),
		analytics: service.NewAnalyticsService(store, service.NewBrandIndex(store, brandTTL), rt.metrics),
		budget:    service.NewBudgetService(store, rt.metrics),
		lists:     service.NewListService(store),
		contacts:  service.NewContactService(store),
		presence:  service.NewPresenceService(store),
		chat:      service.NewChatService(store, syncer),
	}
}

func (a *app) router(tokens *auth.Tokens, triggerSecret string) http.Handler {
	return server.NewRouter(server.RouterConfig{
		AuthValidator:    tokens,
		TriggerSecret:    triggerSecret,
		Gatherer:         a.rt.registry,
		SearchHandler:    handlers.NewSearchHandler(a.users, a.products),
		AnalyticsHandler: handlers.NewAnalyticsHandler(a.analytics),
		BudgetHandler:    handlers.NewBudgetHandler(a.budget),
		ListHandler:      handlers.NewListHandler(a.lists),
		ChatHandler:      handlers.NewChatHandler(a.chat),
		TriggerHandler: handlers.NewTriggerHandler(handlers.TriggerDeps{
			Budget:   a.budget,
			Lists:    a.lists,
			Contacts: a.contacts,
			Presence: a.presence,
			Chat:     a.chat,
			Metrics:  a.rt.metrics,
		}),
	})
}
