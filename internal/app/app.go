package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/updater/internal/api"
	"github.com/MrSnakeDoc/updater/internal/cache"
	"github.com/MrSnakeDoc/updater/internal/config"
	"github.com/MrSnakeDoc/updater/internal/httpserver"
	"github.com/MrSnakeDoc/updater/internal/httpserver/deps"
	"github.com/MrSnakeDoc/updater/internal/license"
	"github.com/MrSnakeDoc/updater/internal/logger"
	"github.com/MrSnakeDoc/updater/internal/metrics"
	"github.com/MrSnakeDoc/updater/internal/product"
	"github.com/MrSnakeDoc/updater/internal/redis"
	"github.com/MrSnakeDoc/updater/internal/scheduler"
	"github.com/MrSnakeDoc/updater/internal/store/memory"
	redisstore "github.com/MrSnakeDoc/updater/internal/store/redis"
	"github.com/MrSnakeDoc/updater/internal/updates"
	"github.com/MrSnakeDoc/updater/internal/version"
)

// backend is what both stores provide: expiring transients and options.
type backend interface {
	cache.Transients
	license.Options
	deps.TransientFlusher
	deps.Pinger
}

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	checks      *scheduler.UpdateCheckScheduler
	gc          *scheduler.GarbageCollector // nil unless the memory store is used
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	p, err := product.NewLoader(cfg.ProductFile).Load()
	if err != nil {
		loggerClient.Errorf("Failed to load product manifest: %v", err)
		os.Exit(1)
	}
	loggerClient = loggerClient.With(logger.String("slug", p.Slug))
	loggerClient.Info("product loaded",
		logger.String("name", p.Name),
		logger.String("version", p.Version),
		logger.String("update_server", p.UpdateServerURL))

	var (
		store       backend
		redisClient *goredis.Client
		gc          *scheduler.GarbageCollector
	)
	switch cfg.Store {
	case config.StoreRedis:
		// Initialize Redis early - fail fast if unavailable
		redisClient, err = redis.New(context.Background(), redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			RedisDB:        cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, loggerClient)
		if err != nil {
			loggerClient.Errorf("Failed to connect to Redis: %v", err)
			os.Exit(1)
		}
		loggerClient.Info("Redis initialized successfully")
		store = redisstore.NewStore(redisClient, cfg.RedisKeyPrefix)
	default:
		loggerClient.Warn("using the in-memory store, cache and license status are lost on restart")
		mem := memory.NewStore()
		gc = scheduler.NewGarbageCollector(mem, loggerClient, cfg.SweepInterval)
		store = mem
	}

	reg := metrics.NewRegistry()

	client := api.NewClient(p, api.Options{
		Timeout:        cfg.APITimeout,
		LicenseTimeout: cfg.LicenseTimeout,
		SkipTLSVerify:  cfg.SkipTLSVerify,
		UserAgent:      version.UserAgent(),
		Logger:         loggerClient,
		Metrics:        reg,
	})

	licenses := license.NewManager(client, store, loggerClient, reg)
	licenses.OnKeyChange = client.SetLicenseKey

	// A key saved from the admin endpoints wins over the manifest.
	if key, err := licenses.Key(context.Background()); err != nil {
		loggerClient.Warn("failed to read stored license key", logger.Error(err))
	} else if key != "" {
		client.SetLicenseKey(key)
	}

	notices := updates.NewNoticeBoard(loggerClient)
	checker := updates.NewChecker(client, cache.New(store, loggerClient, reg), updates.Config{
		CacheTTL: cfg.CacheTTL,
		Beta:     cfg.Beta,
		Notifier: notices,
		Logger:   loggerClient,
		Metrics:  reg,
	})
	states := updates.NewStateStore(store, cfg.StateTTL)

	// Restore gauges from the persisted state
	syncer := scheduler.NewStateSyncer(states, licenses, reg, p, loggerClient)
	if err := syncer.Sync(context.Background()); err != nil {
		loggerClient.Warn("failed to sync persisted state on startup", logger.Error(err))
	}

	// Create manual check trigger channel
	checkTrigger := make(chan struct{}, 1)
	checks := scheduler.NewUpdateCheckScheduler(checker, states, loggerClient, cfg.CheckInterval, checkTrigger)

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:            loggerClient,
		StartTime:         time.Now(),
		Build:             version.Get(),
		TimeNow:           time.Now,
		AllowedHosts:      cfg.AllowedHosts,
		AllowedCIDRS:      cfg.AllowedCIDRS,
		TrustProxy:        cfg.TrustProxy,
		StoreBackend:      cfg.Store,
		Store:             store,
		Transients:        store,
		Checker:           checker,
		States:            states,
		Notices:           notices,
		Licenses:          licenses,
		Metrics:           reg,
		CheckTrigger:      checkTrigger,
		LicenseBurst:      cfg.LicenseBurst,
		LicenseRefillRate: cfg.LicenseRefillRate,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		redisClient: redisClient,
		checks:      checks,
		gc:          gc,
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting updater v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("updater %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start update checks (first cycle runs now)
	if err := a.checks.Start(ctx); err != nil {
		return fmt.Errorf("failed to start update checks: %w", err)
	}
	a.logger.Info("update check scheduler started",
		logger.Duration("interval", a.cfg.CheckInterval))

	// Start garbage collector (memory store only, Redis expires keys itself)
	if a.gc != nil {
		a.gc.Start(ctx)
		a.logger.Info("garbage collector started",
			logger.Duration("interval", a.cfg.SweepInterval))
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	a.checks.Stop()
	if a.gc != nil {
		a.gc.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	a.logger.Info("✅ updater stopped cleanly")
	_ = a.logger.Sync()
	return nil
}
