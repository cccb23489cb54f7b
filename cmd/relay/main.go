package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/examtrace/vigil/internal/api"
	"github.com/examtrace/vigil/internal/api/handler"
	"github.com/examtrace/vigil/internal/config"
	"github.com/examtrace/vigil/internal/database"
	"github.com/examtrace/vigil/internal/inference/mediapipe"
	"github.com/examtrace/vigil/internal/observe"
	"github.com/examtrace/vigil/internal/relay"
	"github.com/examtrace/vigil/internal/repository"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Environment, cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting Vigil relay",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := &api.Dependencies{
		Metrics: observe.NewMetrics(),
	}

	// Session store: Redis when configured, process memory otherwise
	if cfg.RedisURL != "" {
		client, err := relay.NewRedisClientFromURL(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer func() {
			_ = client.Close()
		}()

		store := relay.NewRedisStore(client, cfg.SessionTTL)
		deps.Store = store
		deps.Checks = append(deps.Checks, handler.ReadinessCheck{
			Name:  "redis",
			Check: store.Ping,
		})
		logger.Info("using Redis session store")
	} else {
		store := relay.NewMemoryStore()
		deps.Store = store
		deps.Sweeper = relay.NewSweeper(store, cfg.SessionTTL, relay.DefaultSweepInterval, logger)
		logger.Info("using in-memory session store")
	}

	// Violation archive, only when Postgres is configured
	if cfg.DatabaseURL != "" {
		pool, err := database.NewPool(ctx, database.DefaultPoolConfig(cfg.DatabaseURL))
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer pool.Close()

		deps.Violations = repository.NewViolationRepository(pool)
		deps.Checks = append(deps.Checks, handler.ReadinessCheck{
			Name: "database",
			Check: func(ctx context.Context) error {
				return database.HealthCheck(ctx, pool)
			},
		})
		logger.Info("violation archive enabled")
	}

	// Position validation through the analysis service
	if cfg.AnalysisURL != "" {
		deps.Validator = mediapipe.NewClient(mediapipe.Config{
			BaseURL:    cfg.AnalysisURL,
			Timeout:    cfg.AnalysisTimeout,
			RetryCount: 2,
		})
	}

	// Setup router
	router := api.NewRouter(logger, deps, api.Config{
		AllowOrigins:   cfg.AllowOrigins,
		MaxFrameBytes:  cfg.MaxFrameBytes,
		FrameRecency:   cfg.FrameRecency,
		ForceConnected: cfg.ForceConnected,
		UploadRate:     cfg.UploadRate,
		UploadBurst:    cfg.UploadBurst,
	})
	router.Setup()

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down server...")
	if err := router.Shutdown(); err != nil {
		logger.Error("shutdown error", slog.Any("error", err))
	}

	<-shutdownCtx.Done()
	logger.Info("server stopped")

	return nil
}
