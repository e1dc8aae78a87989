// Package app wires configuration, adapters and use cases into a runnable service.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"pubspy/internal/adapters/cache"
	"pubspy/internal/adapters/httpclient"
	"pubspy/internal/adapters/scraper"
	"pubspy/internal/adapters/search"
	"pubspy/internal/adapters/verifier"
	"pubspy/internal/adapters/web"
	"pubspy/internal/config"
	"pubspy/internal/metrics"
	"pubspy/internal/usecases"
	"pubspy/pkg/log"
	"pubspy/pkg/log/transporters"
)

const (
	pageFetchTimeout = 15 * time.Second
	shutdownTimeout  = 10 * time.Second
)

// App holds the wired components. Build it with New and release it with Close.
type App struct {
	Config  *config.Config
	Metrics *metrics.Metrics
	Cache   *cache.TTLCache
	Lists   *config.Lists

	Search       *search.GoogleClient
	AdsTxt       *verifier.AdsTxt
	Discover     *usecases.DiscoverDomainsUseCase
	Analyze      *usecases.AnalyzeTargetUseCase
	TestProvider *usecases.TestProviderUseCase

	redis   *cache.RedisBackend
	browser *scraper.BrowserPool
	cancel  context.CancelFunc
}

// SetupLogging installs the global logger and returns it so the caller can Close it.
func SetupLogging(level log.Level, format string) *log.Logger {
	logger := log.New(level, transporters.NewStderr(transporters.ParseFormat(format)))
	log.SetDefault(logger)
	return logger
}

// New builds every component from cfg. configPath, when not empty, is watched
// so list edits apply without a restart.
func New(ctx context.Context, cfg *config.Config, configPath string) (*App, error) {
	ctx, cancel := context.WithCancel(ctx)
	a := &App{
		Config:  cfg,
		Metrics: metrics.New(),
		cancel:  cancel,
	}

	a.Lists = config.NewLists(cfg.Lists, a.Metrics)
	if configPath != "" {
		if err := a.Lists.Watch(ctx, configPath); err != nil {
			log.GlobalWarn("config hot reload disabled", "path", configPath, "error", err)
		}
	}

	cacheOpts := []cache.Option{cache.WithMetrics(a.Metrics)}
	for class, ttl := range cfg.Cache.TTL.ByClass() {
		cacheOpts = append(cacheOpts, cache.WithTTL(cache.Class(class), ttl))
	}
	if cfg.Cache.RedisURL != "" {
		backend, err := cache.DialRedis(ctx, cfg.Cache.RedisURL)
		if err != nil {
			// the in-memory tier still works on its own
			log.GlobalWarn("redis unavailable, caching in memory only", "error", err)
		} else {
			a.redis = backend
			cacheOpts = append(cacheOpts, cache.WithBackend(backend))
		}
	}
	a.Cache = cache.New(cacheOpts...)
	if cfg.Cache.SweepInterval > 0 {
		a.Cache.StartSweeper(ctx, cfg.Cache.SweepInterval)
	}

	client := httpclient.New(httpclient.DefaultConfig())

	a.Search = search.NewGoogleClient(search.Config{
		APIKey:          cfg.Search.APIKey,
		EngineID:        cfg.Search.EngineID,
		Endpoint:        cfg.Search.Endpoint,
		ResultsPerQuery: cfg.Search.ResultsPerQuery,
		Timeout:         cfg.Search.Timeout,
		MaxAttempts:     cfg.Search.MaxAttempts,
		Interval:        cfg.Search.Interval,
	}, client, a.Metrics).WithResponseCache(a.Cache)

	a.AdsTxt = verifier.NewAdsTxt(client, a.Cache, verifier.WithAllowlist(
		orDefault(a.Lists.Allowlist, verifier.DefaultAllowlist),
	))

	var heuristic usecases.Verifier
	if cfg.Verify.Heuristic {
		heuristic = verifier.NewHomepage(client)
	}
	verify := usecases.NewVerifyCandidatesUseCase(a.AdsTxt, heuristic, a.Cache, a.Metrics, usecases.VerifyLimits{
		MaxVerify:  cfg.Verify.MaxVerify,
		BatchSize:  cfg.Verify.BatchSize,
		BatchPause: cfg.Verify.BatchPause,
	})

	a.Discover = usecases.NewDiscoverDomainsUseCase(a.Search, verify, a.Cache, a.Metrics,
		usecases.WithExclusions(orDefault(a.Lists.Exclusions, usecases.DefaultExclusions)),
		usecases.WithVolumeThreshold(cfg.Verify.VolumeThreshold),
	)

	var renderer scraper.Renderer
	if cfg.Render.Enabled {
		if cfg.Render.RemoteURL != "" {
			a.browser = scraper.NewRemoteBrowserPool(cfg.Render.RemoteURL)
		} else {
			a.browser = scraper.NewBrowserPool(nil)
		}
		renderer = a.browser
	}
	loader := scraper.NewPageFetcher(client, renderer, pageFetchTimeout)
	a.Analyze = usecases.NewAnalyzeTargetUseCase(loader, scraper.NewExtractor(), a.Discover, a.Cache)
	a.TestProvider = usecases.NewTestProviderUseCase(a.Search)

	return a, nil
}

// orDefault returns a getter that falls back to def while the configured list is empty.
func orDefault(get func() []string, def []string) func() []string {
	return func() []string {
		if l := get(); len(l) > 0 {
			return l
		}
		return def
	}
}

// Health reports whether the shared cache backend is reachable.
func (a *App) Health(ctx context.Context) error {
	if a.redis == nil {
		return nil
	}
	return a.redis.Health(ctx)
}

// Server builds the Fiber app with middleware and routes. The returned
// RateLimiter must be closed with the server.
func (a *App) Server() (*fiber.App, *web.RateLimiter) {
	server := fiber.New(fiber.Config{
		AppName:               "pubspy",
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          3 * time.Minute,
	})

	server.Use(recover.New())
	server.Use(requestid.New(web.RequestIDConfig()))
	server.Use(web.RequestIDToContextMiddleware())
	server.Use(web.RequestLoggerMiddleware())
	server.Use(web.MetricsMiddleware(a.Metrics))

	rateLimiter := web.NewRateLimiter(a.Config.Server.RateLimit, a.Config.Server.RateWindow)
	handlers := web.NewHandlers(a.Discover, a.Analyze, a.TestProvider, a.Cache, a.Health)
	web.SetupRoutes(server, handlers, rateLimiter, a.Metrics)
	return server, rateLimiter
}

// Serve listens on the configured port until ctx is done, then shuts down gracefully.
// Warmup identifiers are discovered in the background once the listener starts.
func (a *App) Serve(ctx context.Context) error {
	server, rateLimiter := a.Server()
	defer rateLimiter.Close()

	if len(a.Config.Cache.Warmup) > 0 {
		go func() {
			n := a.Discover.Warmup(ctx, a.Config.Cache.Warmup)
			log.GlobalInfo("cache warmup complete", "warmed", n, "requested", len(a.Config.Cache.Warmup))
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		log.GlobalInfo("starting pubspy", "port", a.Config.Server.Port, "search_configured", a.Search.Configured())
		errCh <- server.Listen(":" + a.Config.Server.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.GlobalInfo("shutting down")
	if err := server.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close stops background work and releases external resources.
func (a *App) Close() error {
	a.cancel()

	var errs []error
	if err := a.Lists.Close(); err != nil {
		errs = append(errs, err)
	}
	if a.browser != nil {
		a.browser.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
