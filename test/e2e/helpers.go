//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cloo-solutions/shopple/internal/api/handlers"
	"github.com/cloo-solutions/shopple/internal/api/middleware"
	"github.com/cloo-solutions/shopple/internal/auth"
	"github.com/cloo-solutions/shopple/internal/cache"
	"github.com/cloo-solutions/shopple/internal/chat"
	"github.com/cloo-solutions/shopple/internal/docstore"
	"github.com/cloo-solutions/shopple/internal/metrics"
	"github.com/cloo-solutions/shopple/internal/repository"
	"github.com/cloo-solutions/shopple/internal/server"
	"github.com/cloo-solutions/shopple/internal/service"
	"github.com/cloo-solutions/shopple/internal/testutil"
)

const triggerSecret = "e2e-trigger-secret"

// E2ETestEnv runs the HTTP surface over a Postgres document store.
type E2ETestEnv struct {
	T          *testing.T
	Ctx        context.Context
	PostgresC  *testutil.PostgresContainer
	Pool       *pgxpool.Pool
	Store      *repository.DocumentStore
	Tokens     *auth.Tokens
	Server     *httptest.Server
	HTTPClient *http.Client
}

// APIResponse is the envelope every endpoint answers with.
type APIResponse struct {
	StatusCode int
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error"`
	Code       string          `json:"code"`
}

func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	m, err := metrics.New(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("failed to register metrics: %v", err)
	}
	store := repository.NewDocumentStore(pool, 5, m)

	tokens, err := auth.NewTokens("e2e-auth-secret")
	if err != nil {
		t.Fatalf("failed to create tokens: %v", err)
	}

	searchCache := cache.New(cache.Config{
		Short:     repository.NewCacheTier(pool, string(cache.SourceShort), 200, 15*time.Second),
		Popular:   repository.NewCacheTier(pool, string(cache.SourcePopular), 500, 2*time.Minute),
		Hits:      repository.NewHitCounter(pool, 500),
		Threshold: 3,
		Metrics:   m,
	})

	budgetSvc := service.NewBudgetService(store, m)
	listSvc := service.NewListService(store)
	presenceSvc := service.NewPresenceService(store)
	chatSvc := service.NewChatService(store, chat.Noop{})

	router := server.NewRouter(server.RouterConfig{
		AuthValidator:    tokens,
		TriggerSecret:    triggerSecret,
		SearchHandler:    handlers.NewSearchHandler(service.NewUserSearchService(store, service.NewPrivacyFilter(store), m), service.NewProductSearchService(store, searchCache, m)),
		AnalyticsHandler: handlers.NewAnalyticsHandler(service.NewAnalyticsService(store, service.NewBrandIndex(store, time.Minute), m)),
		BudgetHandler:    handlers.NewBudgetHandler(budgetSvc),
		ListHandler:      handlers.NewListHandler(listSvc),
		ChatHandler:      handlers.NewChatHandler(chatSvc),
		TriggerHandler: handlers.NewTriggerHandler(handlers.TriggerDeps{
			Budget:   budgetSvc,
			Lists:    listSvc,
			Contacts: service.NewContactService(store),
			Presence: presenceSvc,
			Chat:     chatSvc,
			Metrics:  m,
		}),
	})

	return &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		PostgresC:  pgC,
		Pool:       pool,
		Store:      store,
		Tokens:     tokens,
		Server:     httptest.NewServer(router),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.Server != nil {
		e.Server.Close()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

// Seed writes documents directly to the store.
func (e *E2ETestEnv) Seed(collection, id string, fields map[string]any) {
	err := e.Store.BatchWrite(e.Ctx, []docstore.Write{{
		Collection: collection,
		ID:         id,
		Fields:     fields,
		Mode:       docstore.ModeSet,
	}})
	if err != nil {
		e.T.Fatalf("failed to seed %s/%s: %v", collection, id, err)
	}
}

// Load reads a document directly from the store.
func (e *E2ETestEnv) Load(collection, id string) map[string]any {
	doc, err := e.Store.Get(e.Ctx, collection, id)
	if err != nil {
		e.T.Fatalf("failed to load %s/%s: %v", collection, id, err)
	}
	if doc == nil {
		return nil
	}
	return doc.Data
}

// As issues a caller token for uid.
func (e *E2ETestEnv) As(uid string) string {
	token, err := e.Tokens.Issue(uid, time.Hour)
	if err != nil {
		e.T.Fatalf("failed to issue token: %v", err)
	}
	return token
}

func (e *E2ETestEnv) Get(path, token string) (*APIResponse, error) {
	return e.do(http.MethodGet, path, nil, func(req *http.Request) {
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	})
}

func (e *E2ETestEnv) Post(path string, body any, token string) (*APIResponse, error) {
	return e.do(http.MethodPost, path, body, func(req *http.Request) {
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	})
}

// Trigger posts a store event with the trigger secret.
func (e *E2ETestEnv) Trigger(path string, body any) (*handlers.TriggerAck, json.RawMessage) {
	resp, err := e.do(http.MethodPost, "/triggers"+path, body, func(req *http.Request) {
		req.Header.Set(middleware.TriggerSecretHeader, triggerSecret)
	})
	if err != nil {
		e.T.Fatalf("trigger %s failed: %v", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		e.T.Fatalf("trigger %s: status %d: %s", path, resp.StatusCode, resp.Error)
	}
	var ack struct {
		handlers.TriggerAck
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(resp.Data, &ack); err != nil {
		e.T.Fatalf("failed to parse trigger ack: %v", err)
	}
	return &ack.TriggerAck, ack.Result
}

func (e *E2ETestEnv) do(method, path string, body any, decorate func(*http.Request)) (*APIResponse, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(e.Ctx, method, e.Server.URL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	decorate(req)

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	out := &APIResponse{StatusCode: resp.StatusCode}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return nil, fmt.Errorf("failed to parse response %q: %w", raw, err)
		}
	}
	return out, nil
}
