package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/saturnino-fabrica-de-software/lookalike/internal/api"
	"github.com/saturnino-fabrica-de-software/lookalike/internal/bootstrap"
	"github.com/saturnino-fabrica-de-software/lookalike/internal/cache"
	"github.com/saturnino-fabrica-de-software/lookalike/internal/config"
	"github.com/saturnino-fabrica-de-software/lookalike/internal/repository"
	"github.com/saturnino-fabrica-de-software/lookalike/internal/service"
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
	// Audits and the latest result live in Postgres
	if err := cfg.RequireDatabase(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Environment)
	slog.SetDefault(logger)

	logger.Info("starting Lookalike API",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
		slog.String("provider", cfg.ProviderType),
		slog.String("gallery_source", cfg.GallerySource),
		slog.String("profile_source", cfg.ProfileSource),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}
	defer components.Close()

	matchService := service.NewMatchService(
		components.Pipeline,
		repository.NewMatchAuditRepository(components.Pool),
		repository.NewLatestResultRepository(components.Pool),
		components.Members,
		logger,
	)

	// Expired profile cache rows are only removed when read; sweep the rest
	janitorCtx, cancelJanitor := context.WithCancel(context.Background())
	defer cancelJanitor()
	go cache.NewJanitor(cache.NewPGCache(components.Pool, ""), logger, cache.DefaultJanitorInterval).Run(janitorCtx)

	router := api.NewRouter(logger, &api.Dependencies{
		Service:            matchService,
		Gallery:            components.Pipeline,
		DB:                 components.Pool,
		MaxProbeImages:     cfg.MaxProbeImages,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
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

	logger.Info("shutting down server...")
	done := make(chan error, 1)
	go func() { done <- router.Shutdown() }()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("shutdown error", slog.Any("error", err))
		}
	case <-time.After(10 * time.Second):
		logger.Warn("shutdown timed out")
	}

	logger.Info("server stopped")
	return nil
}
