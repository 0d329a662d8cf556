package admin

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"github.com/cloo-solutions/shopple/internal/cache"
	"github.com/cloo-solutions/shopple/internal/config"
	"github.com/cloo-solutions/shopple/internal/database"
	"github.com/cloo-solutions/shopple/internal/docstore"
	"github.com/cloo-solutions/shopple/internal/logging"
	"github.com/cloo-solutions/shopple/internal/metrics"
	"github.com/cloo-solutions/shopple/internal/repository"
)

// runtime holds the store and collectors shared by the admin commands.
type runtime struct {
	cfg      *config.Config
	pool     *pgxpool.Pool
	store    docstore.Store
	registry *prometheus.Registry
	metrics  *metrics.Metrics
}

// loadConfig reads the environment and installs the global logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logging.Setup(logging.Config{Format: cfg.LogFormat, Debug: cfg.Debug})
	return cfg, nil
}

func openRuntime(ctx context.Context, cfg *config.Config) (*runtime, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	rt := &runtime{cfg: cfg, registry: registry, metrics: m}

	switch cfg.StoreDriver {
	case config.DriverMemory:
		rt.store = docstore.NewMemory(docstore.WithMaxAttempts(cfg.TxMaxAttempts))
		log.Warn().Msg("using in-memory document store, data is lost on exit")
	default:
		pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
		if err != nil {
			return nil, err
		}
		log.Info().Msg("connected to database")
		rt.pool = pool
		rt.store = repository.NewDocumentStore(pool, cfg.TxMaxAttempts, m)
	}

	return rt, nil
}

func (rt *runtime) Close() {
	if rt.pool != nil {
		rt.pool.Close()
	}
}

// searchCache builds the product search cache. A nil cache disables caching.
func (rt *runtime) searchCache() (*cache.SearchCache, error) {
	cfg := rt.cfg
	if cfg.CacheDisabled {
		log.Info().Msg("product search cache disabled")
		return nil, nil
	}

	if cfg.CacheBackend == config.DriverPostgres {
		if rt.pool == nil {
			return nil, fmt.Errorf("postgres cache backend requires the postgres store")
		}
		return cache.New(cache.Config{
			Short:     repository.NewCacheTier(rt.pool, string(cache.SourceShort), cfg.SearchCacheSize, cfg.SearchCacheTTL),
			Popular:   repository.NewCacheTier(rt.pool, string(cache.SourcePopular), cfg.PopularCacheSize, cfg.PopularCacheTTL),
			Hits:      repository.NewHitCounter(rt.pool, cfg.PopularCacheSize),
			Threshold: cfg.PopularHitThreshold,
			Metrics:   rt.metrics,
		}), nil
	}

	short, err := cache.NewMemoryTier(cfg.SearchCacheSize, cfg.SearchCacheTTL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create short cache tier: %w", err)
	}
	popular, err := cache.NewMemoryTier(cfg.PopularCacheSize, cfg.PopularCacheTTL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create popular cache tier: %w", err)
	}
	hits, err := cache.NewMemoryHitCounter(cfg.PopularCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create hit counter: %w", err)
	}
	return cache.New(cache.Config{
		Short:     short,
		Popular:   popular,
		Hits:      hits,
		Threshold: cfg.PopularHitThreshold,
		Metrics:   rt.metrics,
	}), nil
}
