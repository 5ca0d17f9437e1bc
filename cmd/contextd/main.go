package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"contextd/internal/api"
	"contextd/internal/blob"
	"contextd/internal/config"
	"contextd/internal/dispatch"
	"contextd/internal/health"
	"contextd/internal/metrics"
	"contextd/internal/pipeline"
	"contextd/internal/queue"
	"contextd/internal/store"
)

func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	if os.Getenv("ENVIRONMENT") == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	log.Logger = logger

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Str("listen_addr", cfg.ListenAddr).
		Str("database_path", cfg.DatabasePath).
		Bool("dispatch_enabled", cfg.DispatchEnabled()).
		Bool("blob_enabled", cfg.BlobEnabled()).
		Msg("starting contextd")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Storage
	dataStore, err := store.Open(cfg.DatabasePath, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open store")
	}

	// Trigger queue
	triggerQueue := queue.New(cfg.QueueSize, logger)

	// Metrics
	m := metrics.New()

	// Blob storage (optional)
	var blobClient *blob.Client
	var blobs api.BlobStore
	if cfg.BlobEnabled() {
		blobClient, err = blob.New(ctx, blob.Config{
			Bucket:         cfg.GCSBucket,
			ServiceAccount: cfg.GCSServiceAccount,
			PrivateKey:     cfg.GCSPrivateKey,
			Expiry:         cfg.SignedURLExpiry,
		}, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init blob storage")
		}
		blobs = blobClient
	} else {
		logger.Info().Msg("blob storage not configured — signed URLs disabled")
	}

	// Health checks, in reporting order.
	checker := health.NewChecker(logger)
	checker.Register("database", dataStore.HealthCheck)
	checker.Register("queue", triggerQueue.HealthCheck)
	if blobClient != nil {
		checker.Register("blob", blobClient.HealthCheck)
	}

	// Dispatcher
	var dispatcher dispatch.Dispatcher
	if cfg.DispatchEnabled() {
		dispatcher = dispatch.NewWebhookDispatcher(cfg.DispatchURL, cfg.DispatchTimeout, cfg.DispatchRetries, logger)
	} else {
		logger.Info().Msg("no dispatch URL configured — using log sink")
		dispatcher = dispatch.NewLogDispatcher(logger)
	}

	// Pipeline consumer
	processor := pipeline.NewSessionProcessor(dataStore, dispatcher, m, logger)
	consumer := pipeline.NewConsumer(triggerQueue, processor, m, cfg.ConsumerConcurrency, logger)
	consumer.Start(ctx)

	// HTTP server
	server := api.NewServer(api.ServerConfig{
		ListenAddr: cfg.ListenAddr,
		APIKey:     cfg.APIKey,
	}, dataStore, triggerQueue, checker, m, blobs, logger)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("api server error")
		}
	}()

	// Wait for shutdown signal
	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("shutting down gracefully")

	// Stop intake first, then drain buffered triggers before cancelling.
	if err := server.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("api server shutdown error")
	}
	triggerQueue.Close()

	drained := make(chan struct{})
	go func() {
		consumer.Stop()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(15 * time.Second):
		logger.Warn().Msg("forced shutdown after timeout")
		cancel()
		<-drained
	}
	cancel()

	if blobClient != nil {
		if err := blobClient.Close(); err != nil {
			logger.Error().Err(err).Msg("blob client close error")
		}
	}
	if err := dataStore.Close(); err != nil {
		logger.Error().Err(err).Msg("store close error")
	}

	wg.Wait()
	logger.Info().Msg("contextd stopped")
}
