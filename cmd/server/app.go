package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sumandas0/farmstore/config"
	"github.com/sumandas0/farmstore/internal/api"
	"github.com/sumandas0/farmstore/internal/cache"
	"github.com/sumandas0/farmstore/internal/catalog"
	"github.com/sumandas0/farmstore/internal/core"
	"github.com/sumandas0/farmstore/internal/health"
	"github.com/sumandas0/farmstore/internal/integration"
	"github.com/sumandas0/farmstore/internal/resilience"
	"github.com/sumandas0/farmstore/internal/seed"
	"github.com/sumandas0/farmstore/internal/store"
	"github.com/sumandas0/farmstore/internal/store/memory"
	"github.com/sumandas0/farmstore/internal/store/postgres"
)

// Application holds all components of the catalog server
type Application struct {
	cfg           *config.Config
	features      *integration.AdvancedFeaturesManager
	store         store.DocumentStore
	pgStore       *postgres.PostgresStore
	cacheManager  *cache.CacheAwareManager
	engine        *core.Engine
	healthChecker *health.HealthChecker
	router        *api.Router
	logger        zerolog.Logger

	cancel context.CancelFunc
}

// NewApplication wires the store, caches, engine and router. Background
// routines stop when Close is called.
func NewApplication(cfg *config.Config, features *integration.AdvancedFeaturesManager) (*Application, error) {
	obs := features.GetObservability()
	bgCtx, cancel := context.WithCancel(context.Background())
	app := &Application{
		cfg:      cfg,
		features: features,
		logger:   obs.GetLogging().GetZerologLogger(),
		cancel:   cancel,
	}

	ctx, initCancel := context.WithTimeout(bgCtx, 30*time.Second)
	defer initCancel()

	if err := app.openStore(ctx); err != nil {
		app.Close()
		return nil, err
	}

	if cfg.Store.SeedOnStart {
		if err := app.seed(ctx); err != nil {
			app.Close()
			return nil, err
		}
	}

	res := features.GetResilience()
	metrics := obs.GetMetrics()
	guarded := resilience.NewStore(app.store, res.GetCircuitBreaker(), res.GetRetryManager()).
		WithObserver(metrics.RecordDatabaseOperation)
	snapshots := cache.NewManager(guarded, cfg.Cache.SnapshotTTL,
		cache.WithVersionCheck(cfg.Cache.VersionCheck),
		cache.WithLoadHook(metrics.RecordSnapshotLoad),
	)
	results, err := cache.NewQueryCache(cfg.Cache.ResultCacheSize)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to create result cache: %w", err)
	}
	app.cacheManager = cache.NewCacheAwareManager(snapshots, results)
	app.cacheManager.StartCleanupRoutine(bgCtx, cfg.Cache.CleanupInterval)

	collation, err := cfg.CollationTag()
	if err != nil {
		app.Close()
		return nil, err
	}
	engine, err := core.NewEngine(guarded, app.cacheManager, obs,
		core.WithCatalogEngine(catalog.NewEngine(
			catalog.WithCollation(collation),
			catalog.WithHighlights(cfg.Query.Highlights),
		)),
		core.WithTransactionTimeout(cfg.Store.TransactionTimeout),
		core.WithBatchSize(cfg.Store.BatchSize),
		core.WithCartPolicy(cfg.Cart),
	)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize core engine: %w", err)
	}
	app.engine = engine

	if err := app.cacheManager.Preload(ctx); err != nil {
		app.logger.Warn().Err(err).Msg("Failed to preload collection snapshots")
	}

	app.healthChecker = health.NewHealthChecker(cfg.Health.Timeout)
	app.healthChecker.RegisterStore("store", app.store)
	app.healthChecker.RegisterComponent("circuit_breakers", health.CreateBreakerHealthCheck(res.GetCircuitBreaker().AnyOpen))
	app.healthChecker.RegisterComponent("cache", health.CreateCacheHealthCheck(func() (int, float64) {
		stats := app.cacheManager.Stats()
		return stats.SnapshotCount, stats.HitRate
	}))
	app.healthChecker.RegisterComponent("catalog", health.CreateCatalogHealthCheck(engine.CollectionSizes))
	app.healthChecker.RegisterComponent("memory", health.CreateMemoryHealthCheck(cfg.Health.MemoryLimitMB*1024*1024))
	app.healthChecker.StartPeriodicChecks(bgCtx, cfg.Health.CheckInterval)

	if app.pgStore != nil && metrics.IsEnabled() {
		go app.trackPool(bgCtx, cfg.Health.CheckInterval)
	}

	app.router = api.NewRouter(engine, obs, features.GetSecurity(), app.healthChecker, api.RouterConfig{
		RequestTimeout: cfg.Server.RequestTimeout,
		MaxPageSize:    cfg.Query.MaxPageSize,
		AllowedOrigins: cfg.Server.CORS.AllowedOrigins,
	})

	app.logger.Info().
		Str("store", cfg.Store.Type).
		Str("collation", collation.String()).
		Int("result_cache_size", cfg.Cache.ResultCacheSize).
		Msg("Application initialization completed")
	return app, nil
}

func (app *Application) openStore(ctx context.Context) error {
	switch app.cfg.Store.Type {
	case "postgres":
		pgStore, err := openPostgres(ctx, app.cfg, app.logger, app.cfg.Store.Database.MigrateOnStart)
		if err != nil {
			return err
		}
		app.pgStore = pgStore
		app.store = pgStore
	default:
		app.store = memory.NewMemoryStore()
	}
	app.logger.Info().Str("type", app.cfg.Store.Type).Msg("Document store ready")
	return nil
}

func (app *Application) seed(ctx context.Context) error {
	set, err := loadSeed(app.cfg.Store.SeedFile)
	if err != nil {
		return err
	}
	// A persistent store keeps documents across restarts.
	written, err := seed.Apply(ctx, app.store, set, app.pgStore != nil)
	if err != nil {
		return fmt.Errorf("failed to seed store: %w", err)
	}
	app.logger.Info().Int("written", written).Int("total", set.Count()).Msg("Seed data applied")
	return nil
}

func (app *Application) trackPool(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	metrics := app.features.GetObservability().GetMetrics()
	for {
		stat := app.pgStore.GetPool().Stat()
		metrics.SetDatabaseConnections(int(stat.AcquiredConns()), int(stat.MaxConns()))
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

// Handler returns the HTTP handler for the application
func (app *Application) Handler() http.Handler {
	return app.router.SetupRoutes()
}

// Close stops background routines and releases the store.
func (app *Application) Close() error {
	app.cancel()

	var errs []error
	if app.engine != nil {
		if err := app.engine.Close(); err != nil {
			errs = append(errs, fmt.Errorf("engine close failed: %w", err))
		}
	} else if app.store != nil {
		if err := app.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store close failed: %w", err))
		}
	}
	return errors.Join(errs...)
}

func openPostgres(ctx context.Context, cfg *config.Config, logger zerolog.Logger, migrate bool) (*postgres.PostgresStore, error) {
	db := cfg.Store.Database
	poolCfg := postgres.DefaultPoolConfig()
	if db.MaxOpenConns > 0 {
		poolCfg.MaxConns = db.MaxOpenConns
	}
	if db.MaxIdleConns > 0 {
		poolCfg.MinConns = min(db.MaxIdleConns, poolCfg.MaxConns)
	}
	if db.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = db.ConnMaxLifetime
	}
	if db.ConnMaxIdleTime > 0 {
		poolCfg.MaxConnIdleTime = db.ConnMaxIdleTime
	}

	pgStore, err := postgres.NewPostgresStore(ctx, cfg.GetDatabaseURL(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	if err := pgStore.Ping(ctx); err != nil {
		pgStore.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	if migrate {
		applied, err := postgres.NewMigrator(pgStore.GetPool(), logger).Run(ctx)
		if err != nil {
			pgStore.Close()
			return nil, fmt.Errorf("migration failed: %w", err)
		}
		logger.Info().Strs("applied", applied).Msg("Database migrations completed")
	}
	return pgStore, nil
}

func loadSeed(file string) (seed.Set, error) {
	if file == "" {
		return seed.Default()
	}
	return seed.LoadFile(file)
}
