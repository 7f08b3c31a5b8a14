package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/onnwee/regions/internal/api"
	"github.com/onnwee/regions/internal/config"
	"github.com/onnwee/regions/internal/geocode"
	"github.com/onnwee/regions/internal/geometry"
	"github.com/onnwee/regions/internal/health"
	"github.com/onnwee/regions/internal/middleware"
	"github.com/onnwee/regions/internal/persist"
	"github.com/onnwee/regions/internal/region"
	"github.com/onnwee/regions/internal/stream"
	"github.com/onnwee/regions/internal/tracing"
)

const serviceName = "regions"

// rateLimitCleanupInterval is several times the longest configured window.
const rateLimitCleanupInterval = 5 * time.Minute

// app owns every long-lived component of the server.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	tracer      *tracing.Provider
	redis       *redis.Client
	kv          persist.KV
	closeKV     func() error
	engine      *region.Engine
	saver       *persist.AutoSaver
	detachSaver func()
	broadcaster *stream.Broadcaster
	unsubFeed   func()
	registry    *prometheus.Registry
	handler     http.Handler
	stopCleanup context.CancelFunc
}

// newApp builds the service from cfg and restores the last saved workspace.
// On error every component created so far is released.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger, closeKV: func() error { return nil }}
	defer func() {
		if err != nil {
			a.close(context.Background())
		}
	}()

	a.tracer, err = tracing.NewProvider(tracing.Config{
		ServiceName:  serviceName,
		Enabled:      cfg.TracingEnabled,
		Environment:  cfg.Env,
		ExporterType: cfg.TracingExporter,
		OTLPEndpoint: cfg.OTLPEndpoint,
		SamplingRate: cfg.TracingSampleRate,
		InsecureMode: cfg.Env == "development",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		a.redis = redis.NewClient(opts)
	}

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	regionMetrics := region.NewMetrics()
	persistMetrics := persist.NewMetrics()
	geocodeMetrics := geocode.NewMetrics()
	httpMetrics := middleware.NewMetrics()
	streamMetrics := stream.NewMetrics()
	for _, m := range []interface {
		Register(prometheus.Registerer) error
	}{regionMetrics, persistMetrics, geocodeMetrics, httpMetrics, streamMetrics} {
		if err := m.Register(a.registry); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}

	a.kv, a.closeKV, err = persist.Open(ctx, persist.OpenOptions{
		Backend:     cfg.PersistBackend,
		Dir:         cfg.PersistDir,
		Redis:       a.redis,
		DatabaseURL: cfg.DatabaseURL,
		S3: persist.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		},
	})
	if err != nil {
		a.closeKV = func() error { return nil }
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.PersistBackend, err)
	}

	geom := geometry.NewEngine(cfg.GeometryPrecise)
	a.engine = region.NewEngine(geom, region.Options{
		HistoryLimit: cfg.HistoryLimit,
		Metrics:      regionMetrics,
		Logger:       logger,
	})

	restored, err := persist.Restore(ctx, a.kv, cfg.PersistKeyPrefix, a.engine, persistMetrics)
	if err != nil {
		return nil, fmt.Errorf("failed to restore workspace: %w", err)
	}
	logger.Info("workspace loaded",
		"backend", a.kv.Name(),
		"restored", restored,
		"regions", len(a.engine.State().Regions),
	)

	a.saver = persist.NewAutoSaver(a.kv, a.engine, persist.AutoSaverOptions{
		Prefix:  cfg.PersistKeyPrefix,
		Delay:   cfg.AutosaveDelay(),
		Logger:  logger,
		Metrics: persistMetrics,
	})
	a.detachSaver = a.saver.Attach(a.engine)

	a.broadcaster = stream.NewBroadcaster(streamMetrics)
	a.unsubFeed = a.engine.Subscribe(a.broadcaster.Broadcast)

	var cache geocode.Cache
	if a.redis != nil {
		cache = geocode.NewRedisCache(a.redis)
	} else {
		cache = geocode.NewMemoryCache()
	}
	geocoder := geocode.NewClient(geocode.Options{
		APIKey:   cfg.GeocodeAPIKey,
		BaseURL:  cfg.GeocodeBaseURL,
		Cache:    cache,
		CacheTTL: cfg.GeocodeCacheTTL(),
		Metrics:  geocodeMetrics,
		Logger:   logger,
	})

	var limits middleware.RateLimitStore
	if a.redis != nil {
		limits = middleware.NewRedisRateLimitStore(a.redis).WithMetrics(httpMetrics)
	} else {
		store := middleware.NewInMemoryRateLimitStore()
		cleanupCtx, cancel := context.WithCancel(context.Background())
		store.StartCleanup(cleanupCtx, rateLimitCleanupInterval)
		a.stopCleanup = cancel
		limits = store
	}
	keyFunc := middleware.IPKeyFunc()
	globalLimit := middleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimitPerMinute,
		WindowDuration:    time.Minute,
	}

	healthCfg := api.HealthHandlersConfig{StorageChecker: health.NewKVChecker(a.kv)}
	if pg, ok := a.kv.(*persist.PostgresKV); ok {
		healthCfg.DBChecker = health.NewDBChecker(pg.DB())
	}
	if a.redis != nil {
		healthCfg.RedisChecker = health.NewRedisChecker(a.redis)
	}

	router := api.NewRouter(api.RouterConfig{
		Legacy:       api.NewLegacyHandlers(geom, geocoder),
		Regions:      api.NewRegionHandlers(a.engine),
		Workspace:    api.NewWorkspaceHandlers(a.engine),
		Health:       api.NewHealthHandlers(healthCfg),
		GeocodeLimit: middleware.RateLimiter(limits, middleware.DefaultGeocodeLimit(), keyFunc, "geocode", httpMetrics),
	})

	// Request flow: RequestID -> Tracing -> Logging -> HTTPMetrics -> CORS -> RateLimiter -> router
	var handler http.Handler = router
	handler = middleware.RateLimiter(limits, globalLimit, keyFunc, "global", httpMetrics)(handler)
	handler = middleware.CORS(middleware.CORSConfig{AllowedOrigins: cfg.CORSAllowedOrigins})(handler)
	handler = middleware.HTTPMetrics(httpMetrics)(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Tracing(serviceName)(handler)
	handler = middleware.RequestID(handler)

	// The change feed and the scrape endpoint bypass the wrapped writers:
	// the upgrade needs http.Hijacker.
	outer := http.NewServeMux()
	outer.Handle("GET /ws/regions", api.NewChangeFeed(a.broadcaster, cfg.CORSAllowedOrigins))
	outer.Handle("GET /metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	outer.Handle("/", handler)
	a.handler = outer

	return a, nil
}

// Handler returns the root HTTP handler.
func (a *app) Handler() http.Handler {
	return a.handler
}

// close stops background work, writes any pending save and releases storage.
// It is safe to call on a partially built app.
func (a *app) close(ctx context.Context) error {
	var errs []error

	if a.stopCleanup != nil {
		a.stopCleanup()
	}
	if a.unsubFeed != nil {
		a.unsubFeed()
	}
	if a.broadcaster != nil {
		a.broadcaster.Close()
	}
	if a.detachSaver != nil {
		a.detachSaver()
	}
	if a.saver != nil {
		if err := a.saver.Flush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("final save failed: %w", err))
		}
	}
	if pg, ok := a.kv.(*persist.PostgresKV); ok {
		pg.LogSummary(a.logger)
	}
	if err := a.closeKV(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close storage: %w", err))
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		}
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
