package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"financas/internal/cache"
	"financas/internal/config"
	"financas/internal/core"
	apphttp "financas/internal/http"
	"financas/internal/log"
	"financas/internal/quotes"
	"financas/internal/services"
	"financas/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()
	logger := newLogger(cfg)
	log.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	if cfg.SeedOnStart {
		n, err := repo.Seed(context.Background())
		if err != nil {
			logger.Error("Failed to seed default categories", "error", err)
			os.Exit(1)
		}
		if n > 0 {
			logger.Info("Seeded default categories", "count", n)
		}
	}

	cacheManager := cache.NewManager(logger.WithComponent(log.ComponentCache).Slog())
	dashboardCache := cache.NewLRUCache[core.DashboardSummary](cfg.DashboardCacheSize, cfg.DashboardCacheTTL, time.Now)
	cacheManager.Register(dashboardCache)

	quoteClient := quotes.NewClient(quotes.Options{
		BCBBaseURL:      cfg.QuotesBCBURL,
		FallbackBaseURL: cfg.QuotesFallbackURL,
		TTL:             cfg.QuoteTTL,
		Logger:          logger.WithComponent(log.ComponentQuotes).Slog(),
	})
	cacheManager.Register(quoteClient.Cache())
	cacheManager.StartCleanup(time.Minute)
	defer cacheManager.Stop()

	ledger := services.NewLedgerService(repo, repo, repo, quoteClient,
		services.WithDashboardCache(dashboardCache),
		services.WithLocation(cfg.Location()))

	srv := apphttp.NewServer(apphttp.Options{
		Addr:               net.JoinHostPort("", cfg.Port),
		Ledger:             ledger,
		Catalog:            repo,
		Quotes:             quoteClient,
		Ready:              repo,
		APIToken:           cfg.APIToken,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting financas server",
		"port", cfg.Port,
		"database", cfg.SQLiteDBPath,
		"timezone", cfg.Location().String(),
		"auth_enabled", cfg.APIToken != "")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}

func newLogger(cfg *config.Config) *log.Logger {
	lc := log.DefaultConfig()
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		lc.Level = level
	}
	lc.Format = cfg.LogFormat
	return log.New(lc)
}
