package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lmittmann/tint"

	"github.com/wooyoungkug/photocafe-sub007/internal/cache"
	"github.com/wooyoungkug/photocafe-sub007/internal/catalog"
	"github.com/wooyoungkug/photocafe-sub007/internal/config"
	"github.com/wooyoungkug/photocafe-sub007/internal/db"
	"github.com/wooyoungkug/photocafe-sub007/internal/handlers"
	"github.com/wooyoungkug/photocafe-sub007/internal/logging"
	"github.com/wooyoungkug/photocafe-sub007/internal/pricing"
	"github.com/wooyoungkug/photocafe-sub007/internal/services"
)

type App struct {
	Config           *config.Config
	Logger           *slog.Logger
	DB               *pgxpool.Pool
	CacheProvider    cache.Provider
	PricingService   *services.PricingService
	RateTableService *services.RateTableService
	Handlers         *handlers.Handlers

	sentryEnabled bool
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	sentryEnabled, err := initSentry(cfg)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg, sentryEnabled)
	a := &App{Config: cfg, Logger: logger, sentryEnabled: sentryEnabled}

	startupCtx, startupCancel := context.WithTimeout(context.Background(), cfg.DBConnectTimeout+30*time.Second)
	defer startupCancel()
	startupCtx = logging.WithLogger(startupCtx, logger)

	a.DB, err = db.Connect(startupCtx, cfg.DatabaseURL, cfg.DBConnectTimeout)
	if err != nil {
		a.Close()
		return nil, err
	}

	if cfg.RunMigrations {
		if err := db.MigrateUp(startupCtx, a.DB); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		logger.Info("migrations applied")
	}

	a.CacheProvider, err = cache.NewProvider(startupCtx, cache.Config{
		Provider:              cfg.CacheProvider,
		RedisConnectionString: cfg.RedisConnectionString,
		MemorySize:            cfg.CacheMemorySize,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize cache provider: %w", err)
	}

	subjectStore := db.NewSubjectStore(a.DB)
	clientStore := db.NewClientStore(a.DB)
	optionStore := db.NewOptionStore(a.DB)
	tierStore := db.NewTierStore(a.DB)
	rateTables := cache.NewRateTableCache(tierStore, a.CacheProvider, cfg.RateTableCacheTTL, logger.With("component", "rate_table_cache"))

	calculator := pricing.NewCalculator(subjectStore, clientStore, rateTables, optionStore)
	a.PricingService = services.NewPricingService(calculator, cfg.BatchConcurrency, logger.With("component", "pricing_service"))
	a.RateTableService = services.NewRateTableService(
		subjectStore,
		clientStore,
		tierStore,
		rateTables,
		catalog.NewParser(),
		catalog.NewValidator(),
		logger.With("component", "rate_table_service"),
	)

	a.Handlers, err = handlers.New(handlers.Dependencies{
		Config:           cfg,
		DB:               a.DB,
		PricingService:   a.PricingService,
		RateTableService: a.RateTableService,
		Logger:           logger,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	return a, nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.CacheProvider != nil {
		if err := a.CacheProvider.Close(); err != nil {
			a.Logger.Warn("failed to close cache provider", "error", err)
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
	if a.sentryEnabled {
		sentry.Flush(2 * time.Second)
	}
}

func initSentry(cfg *config.Config) (bool, error) {
	if cfg.SentryDSN == "" {
		return false, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		EnableTracing:    true,
		TracesSampleRate: 0.2,
		EnableLogs:       true,
	})
	if err != nil {
		return false, fmt.Errorf("failed to initialize sentry: %w", err)
	}
	return true, nil
}

// newLogger writes to stdout and, with sentry configured, forwards errors as
// sentry events and warnings as sentry logs.
func newLogger(cfg *config.Config, withSentry bool) *slog.Logger {
	var stdout slog.Handler
	switch strings.ToLower(strings.TrimSpace(cfg.LogFormat)) {
	case "json":
		stdout = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})
	default:
		stdout = tint.NewHandler(os.Stdout, &tint.Options{Level: cfg.LogLevel})
	}
	if !withSentry {
		return slog.New(stdout)
	}

	forward := sentryslog.Option{
		EventLevel: []slog.Level{slog.LevelError},
		LogLevel:   []slog.Level{slog.LevelWarn},
	}.NewSentryHandler(context.Background())
	return slog.New(logging.MultiHandler(stdout, forward))
}
