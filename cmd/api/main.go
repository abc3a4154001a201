package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/events"
	"storefront/internal/handler"
	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/router"
	"storefront/internal/service"
	"storefront/internal/storage"

	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting storefront API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if err := repository.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("failed to apply database schema: %w", err)
	}
	logger.Info().Msg("database schema is up to date")

	productRepo := repository.NewProductRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)

	images, serveUploads, err := newImageStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize image store: %w", err)
	}

	publisher := newPublisher(cfg.Kafka, logger)
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close event publisher")
		}
	}()

	productService := service.NewProductService(productRepo, logger)
	orderService := service.NewOrderService(orderRepo, productRepo, publisher, logger)
	dashboardService := service.NewDashboardService(productRepo, orderRepo, logger)

	handlers := router.Handlers{
		Product:   handler.NewProductHandler(productService, images, cfg.Upload.MaxBytes, logger),
		Order:     handler.NewOrderHandler(orderService, logger),
		Dashboard: handler.NewDashboardHandler(dashboardService, logger),
		Health:    handler.NewHealthHandler(pool, logger),
	}

	opts := router.Options{}
	if serveUploads {
		opts.UploadDir = cfg.Upload.Dir
		opts.UploadURLPrefix = cfg.Upload.URLPrefix
	}
	if cfg.RateLimit.RPS > 0 {
		opts.RateLimiter = middleware.NewRateLimiter(ctx, cfg.RateLimit.RPS, cfg.RateLimit.Burst, logger)
		logger.Info().
			Float64("rps", cfg.RateLimit.RPS).
			Int("burst", cfg.RateLimit.Burst).
			Msg("rate limiting enabled")
	}

	mux := router.New(handlers, opts, logger)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			// Force close
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// newImageStore selects the S3 or local image backend and wraps it with the
// upload limits. The boolean reports whether images must be served locally.
func newImageStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (storage.ImageStore, bool, error) {
	if cfg.S3.Enabled {
		s3Store, err := storage.NewS3Store(ctx, cfg.S3.Bucket, cfg.S3.Region, cfg.S3.Prefix, cfg.S3.PublicURL, logger)
		if err == nil {
			return storage.WithLimits(s3Store, cfg.Upload.MaxBytes, logger), false, nil
		}
		logger.Warn().
			Err(err).
			Msg("failed to initialise S3 image store, falling back to local file system")
	} else {
		logger.Info().Str("dir", cfg.Upload.Dir).Msg("using local file system for product images (S3 disabled)")
	}

	fileStore, err := storage.NewFileStore(cfg.Upload.Dir, cfg.Upload.URLPrefix, logger)
	if err != nil {
		return nil, false, err
	}

	return storage.WithLimits(fileStore, cfg.Upload.MaxBytes, logger), true, nil
}

func newPublisher(cfg config.KafkaConfig, logger zerolog.Logger) events.Publisher {
	if !cfg.Enabled() {
		logger.Info().Msg("order events disabled (no Kafka brokers configured)")
		return events.NewNoopPublisher()
	}
	return events.NewKafkaPublisher(cfg.Brokers, cfg.Topic, logger)
}
