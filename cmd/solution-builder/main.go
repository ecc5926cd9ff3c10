package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/terra-clan/solution-builder/internal/api"
	"github.com/terra-clan/solution-builder/internal/cache"
	"github.com/terra-clan/solution-builder/internal/catalog"
	"github.com/terra-clan/solution-builder/internal/cleanup"
	"github.com/terra-clan/solution-builder/internal/config"
	"github.com/terra-clan/solution-builder/internal/health"
	"github.com/terra-clan/solution-builder/internal/metrics"
	"github.com/terra-clan/solution-builder/internal/reconciler"
	"github.com/terra-clan/solution-builder/internal/session"
	"github.com/terra-clan/solution-builder/internal/storage"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.Info("starting solution-builder",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	// Initialize database repository
	repo, err := storage.NewPostgresRepository(initCtx, storage.PostgresConfig{
		DSN:          cfg.Database.DSN,
		MaxOpenConns: int32(cfg.Database.MaxOpenConns),
	})
	if err != nil {
		slog.Error("failed to create database repository", "error", err)
		os.Exit(1)
	}
	slog.Info("database connected successfully")

	// Run database migrations
	slog.Info("running database migrations", "dir", cfg.Database.MigrationsDir)
	if err := storage.RunMigrations(initCtx, repo.Pool(), storage.MigrationSource(cfg.Database.MigrationsDir)); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Load and seed the catalog
	loader := catalog.NewLoader()
	if err := loader.LoadFromDir(cfg.Catalog.Dir); err != nil {
		slog.Warn("failed to load catalog from dir", "dir", cfg.Catalog.Dir, "error", err)
	} else if err := loader.Seed(initCtx, repo); err != nil {
		slog.Error("failed to seed catalog", "error", err)
		os.Exit(1)
	}

	// Health checks
	checks := health.NewRegistry(2 * time.Second)

	postgresChecker, err := health.NewPostgresChecker(cfg.Database.DSN)
	if err != nil {
		slog.Error("failed to create postgres checker", "error", err)
		os.Exit(1)
	}
	checks.Register(postgresChecker)

	// Save progress lives in redis when available, where entries expire after the progress TTL
	var progress reconciler.ProgressStore
	redisClient, err := cache.NewClient(initCtx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		slog.Warn("redis unavailable, keeping save progress in memory",
			"address", cfg.Redis.Address,
			"error", err,
		)
		progress = reconciler.NewMemoryProgressStore()
	} else {
		progress = cache.NewRedisProgressStore(redisClient, cfg.Redis.ProgressTTL)
		checks.Register(health.NewRedisChecker(redisClient))
		slog.Info("redis connected successfully", "address", cfg.Redis.Address)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	// Initialize session manager
	rec := reconciler.New(repo, progress, loader.GlobalParameters())
	sessions := session.NewManager(repo, rec, session.Options{
		TTL:                   cfg.Sessions.TTL,
		CalculationCategories: loader.CalculationCategories(),
		Metrics:               m,
	})

	// Initialize cleanup worker
	cleaner := cleanup.NewCleaner(sessions, cfg.Cleanup.Interval, m)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start cleanup worker
	cleaner.Start(ctx)

	// Setup HTTP server
	server := api.NewServer(cfg.Server, api.Options{
		Sessions: sessions,
		Catalog:  repo,
		Clients:  repo,
		Health:   checks,
		Metrics:  m,
	})
	httpServer := &http.Server{
		Addr:        cfg.Address(),
		Handler:     server.Router(),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gracefully...")

	// Cancel context to stop background workers
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			slog.Error("redis close error", "error", err)
		}
	}

	if err := postgresChecker.Close(); err != nil {
		slog.Error("postgres checker close error", "error", err)
	}

	if err := repo.Close(); err != nil {
		slog.Error("repository close error", "error", err)
	}

	slog.Info("solution-builder stopped")
}
