package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"

	"github.com/onnwee/creatorfeed/internal/api"
	"github.com/onnwee/creatorfeed/internal/auth"
	"github.com/onnwee/creatorfeed/internal/block"
	"github.com/onnwee/creatorfeed/internal/booking"
	"github.com/onnwee/creatorfeed/internal/cache"
	"github.com/onnwee/creatorfeed/internal/config"
	"github.com/onnwee/creatorfeed/internal/creator"
	"github.com/onnwee/creatorfeed/internal/feed"
	"github.com/onnwee/creatorfeed/internal/health"
	"github.com/onnwee/creatorfeed/internal/middleware"
	"github.com/onnwee/creatorfeed/internal/ranking"
)

const (
	cleanupInterval = time.Minute
	startupPingWait = 5 * time.Second
)

// dependencies holds the collaborators shared by the HTTP handlers.
type dependencies struct {
	profiles creator.ProfileRepository
	media    creator.MediaRepository
	bookings booking.HistoryProvider
	blocks   block.Provider

	cacheStore     cache.Store
	rateLimitStore middleware.RateLimitStore

	dbChecker    api.HealthChecker
	redisChecker api.HealthChecker

	weights *ranking.Weights

	httpMetrics  *middleware.Metrics
	feedMetrics  *feed.Metrics
	cacheMetrics *cache.Metrics

	closers []func() error
}

// Close releases connections in reverse order of creation.
func (d *dependencies) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			slog.Error("failed to close dependency", "error", err)
		}
	}
}

// newDependencies connects to Postgres and Redis when configured and falls
// back to in-process implementations otherwise. Background cleanup loops stop
// when ctx is cancelled.
func newDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*dependencies, error) {
	d := &dependencies{
		httpMetrics:  middleware.NewMetrics(),
		feedMetrics:  feed.NewMetrics(),
		cacheMetrics: cache.NewMetrics(),
	}

	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
		d.closers = append(d.closers, db.Close)

		pingCtx, cancel := context.WithTimeout(ctx, startupPingWait)
		if err := db.PingContext(pingCtx); err != nil {
			// Readiness reports the outage; the process keeps running.
			logger.Warn("database not reachable at startup", "error", err)
		}
		cancel()

		repo := creator.NewPostgresRepository(db, logger)
		d.profiles = repo
		d.media = repo
		d.bookings = booking.NewPostgresHistory(db, logger)
		d.dbChecker = health.NewDBChecker(db)

		if cfg.BlockListSource == config.BlockListPostgres {
			d.blocks = block.NewPostgresProvider(db, logger)
		}
	} else {
		logger.Warn("DATABASE_URL not set, serving from an empty in-memory catalogue")
		repo := creator.NewInMemoryRepository()
		d.profiles = repo
		d.media = repo
		d.bookings = booking.NewInMemoryHistory()
	}
	if d.blocks == nil {
		d.blocks = block.NoopProvider{}
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("failed to parse REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		if err := redisotel.InstrumentTracing(client); err != nil {
			logger.Warn("failed to instrument redis tracing", "error", err)
		}
		d.closers = append(d.closers, client.Close)

		d.cacheStore = cache.NewRedisStore(client, cache.DefaultBreakerSettings(), d.cacheMetrics)
		d.rateLimitStore = middleware.NewRedisRateLimitStore(client,
			middleware.WithRateLimitMetrics(d.httpMetrics),
			middleware.WithRateLimitLogger(logger),
		)
		d.redisChecker = health.NewRedisChecker(client)
	} else {
		memCache := cache.NewInMemoryStore()
		go memCache.RunCleanup(ctx, cleanupInterval)
		d.cacheStore = memCache

		memLimits := middleware.NewInMemoryRateLimitStore()
		go memLimits.RunCleanup(ctx, cleanupInterval)
		d.rateLimitStore = memLimits
	}

	// A missing or broken calibration file is logged and the defaults apply.
	d.weights, _ = ranking.LoadCalibration(cfg.RankingCalibrationPath, logger)

	return d, nil
}

// newHandler builds the routed, fully wrapped HTTP handler.
func newHandler(cfg *config.Config, d *dependencies, logger *slog.Logger) (http.Handler, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if err := d.httpMetrics.Register(registry); err != nil {
		return nil, fmt.Errorf("failed to register http metrics: %w", err)
	}
	if err := d.feedMetrics.Register(registry); err != nil {
		return nil, fmt.Errorf("failed to register feed metrics: %w", err)
	}
	if err := d.cacheMetrics.Register(registry); err != nil {
		return nil, fmt.Errorf("failed to register cache metrics: %w", err)
	}

	service, err := feed.NewService(feed.ServiceConfig{
		Profiles: d.profiles,
		Media:    d.media,
		Bookings: d.bookings,
		Blocks:   d.blocks,
		Cache:    cache.NewJSONCache[feed.Page](d.cacheStore, d.cacheMetrics, logger),
		CacheTTL: cfg.FeedCacheTTL,
		Weights:  d.weights,
		Metrics:  d.feedMetrics,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create feed service: %w", err)
	}

	var verifier middleware.ViewerVerifier
	if cfg.JWTSecret != "" {
		verifier = auth.NewVerifier(cfg.JWTSecret, auth.WithPreviousSecret(cfg.JWTPreviousSecret))
	} else {
		logger.Warn("JWT_SECRET not set, every viewer is anonymous")
	}

	limit := middleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimitRequests,
		WindowDuration:    cfg.RateLimitWindow,
	}
	if err := limit.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rate limit: %w", err)
	}

	feedHandlers := api.NewFeedHandlers(service, logger)
	healthHandlers := api.NewHealthHandlers(api.HealthHandlersConfig{
		DBChecker:    d.dbChecker,
		RedisChecker: d.redisChecker,
		Logger:       logger,
	})

	mux := http.NewServeMux()
	mux.Handle("/feed", middleware.RateLimiter(d.rateLimitStore, limit, middleware.UserKeyFunc(), d.httpMetrics)(
		http.HandlerFunc(feedHandlers.GetFeed),
	))
	mux.HandleFunc("/health", healthHandlers.Health)
	mux.HandleFunc("/ready", healthHandlers.Ready)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	mux.HandleFunc("/", api.NotFound)

	// Outermost first: RequestID -> Tracing -> Logging -> HTTPMetrics -> CORS
	// -> Profiling -> OptionalAuth -> mux
	var handler http.Handler = mux
	handler = middleware.OptionalAuth(verifier, logger)(handler)
	handler = middleware.Profiling(middleware.ProfilingConfig{
		Enabled:     cfg.ProfilingEnabled,
		Environment: cfg.Env,
		Logger:      logger,
	})(handler)
	handler = middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		MaxAge:         600,
	})(handler)
	handler = middleware.HTTPMetrics(d.httpMetrics)(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Tracing(serviceName)(handler)
	handler = middleware.RequestID(handler)

	return handler, nil
}
