package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ledgerbot/internal/adapters/config"
	"ledgerbot/internal/adapters/errors/noop"
	"ledgerbot/internal/adapters/errors/sentry"
	"ledgerbot/internal/adapters/quotes"
	redisadapter "ledgerbot/internal/adapters/redis"
	"ledgerbot/internal/adapters/rowstore"
	"ledgerbot/internal/adapters/telegram"
	"ledgerbot/internal/api"
	"ledgerbot/internal/api/health"
	"ledgerbot/internal/notation"
	"ledgerbot/internal/repository/sheet"
	"ledgerbot/internal/services/ledger"
	"ledgerbot/internal/workers"
	"ledgerbot/pkg/errors"
	"ledgerbot/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()
	log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	errorTracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(errorTracker)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	healthChecks := make(map[string]health.Checker)

	store := initRowStore(cfg, log, healthChecks)
	repo, err := sheet.NewPositionRepository(ctx, store)
	if err != nil {
		log.Fatalf("Failed to load ledger: %v", err)
	}

	quoteProvider := initQuotes(cfg, log, healthChecks)

	ledgerService := ledger.NewService(repo, quoteProvider)
	dispatcher := telegram.NewDispatcher(notation.New(), ledgerService)

	bot, err := telegram.NewBot(cfg.Telegram)
	if err != nil {
		log.Fatalf("Failed to create telegram bot: %v", err)
	}
	bot.SetHandler(dispatcher.Dispatch)

	scheduler := workers.NewScheduler()
	scheduler.RegisterWorker(workers.NewMarkRefreshWorker(
		ledgerService,
		cfg.Workers.MarkRefreshInterval,
		cfg.Workers.MarkRefreshEnabled,
	))
	if err := scheduler.Start(ctx); err != nil {
		log.Fatalf("Failed to start workers: %v", err)
	}

	healthHandler := health.New(log, healthChecks, cfg.App.Name, cfg.API.Version)
	server := api.NewServer(cfg.API.Port, healthHandler, log)

	go func() {
		if err := server.Start(); err != nil {
			log.Errorf("HTTP server stopped: %v", err)
		}
	}()

	go func() {
		if err := bot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Errorf("Telegram bot stopped: %v", err)
			cancel()
		}
	}()

	log.Info("System initialized successfully")

	waitForShutdown(ctx, cancel, scheduler, server, errorTracker, log)
}

// initErrorTracker initializes error tracking (Sentry or no-op)
func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return noop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

// initRowStore picks PostgreSQL when configured and falls back to the
// in-memory sheet otherwise
func initRowStore(cfg *config.Config, log *logger.Logger, checks map[string]health.Checker) rowstore.Store {
	if !cfg.Postgres.Enabled() {
		log.Warn("No database configured, ledger will not survive restarts")
		return rowstore.NewMemoryStore()
	}

	store, err := rowstore.NewPostgresStore(cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	checks["postgres"] = store
	log.Info("Ledger store: PostgreSQL")
	return store
}

// initQuotes builds the quote provider, wrapped in a Redis cache when
// Redis is configured
func initQuotes(cfg *config.Config, log *logger.Logger, checks map[string]health.Checker) quotes.Provider {
	provider := quotes.NewHTTPProvider(cfg.Quotes)

	if !cfg.Redis.Enabled() {
		return provider
	}

	redisClient, err := redisadapter.NewClient(cfg.Redis)
	if err != nil {
		log.Warnf("Failed to connect to Redis, quote cache disabled: %v", err)
		return provider
	}
	checks["redis"] = redisClient
	log.Info("Quote cache: Redis")
	return quotes.NewCachedProvider(provider, redisClient.Client(), cfg.Quotes.CacheTTL)
}

// waitForShutdown blocks until a termination signal, then stops all
// components in order
func waitForShutdown(
	ctx context.Context,
	cancel context.CancelFunc,
	scheduler *workers.Scheduler,
	server *api.Server,
	errorTracker errors.Tracker,
	log *logger.Logger,
) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Infof("Received signal %s, shutting down...", sig)
	case <-ctx.Done():
		log.Info("Context cancelled, shutting down...")
	}

	cancel()

	if err := scheduler.Stop(); err != nil {
		log.Warnf("Worker shutdown: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnf("HTTP shutdown: %v", err)
	}

	if err := errorTracker.Flush(shutdownCtx); err != nil {
		log.Warnf("Error tracker flush: %v", err)
	}

	log.Info("Shutdown complete")
}
