package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/benvon/moodtask/internal/config"
	"github.com/benvon/moodtask/internal/events"
	"github.com/benvon/moodtask/internal/kvstore"
	"github.com/benvon/moodtask/internal/logger"
	"github.com/benvon/moodtask/internal/workers"
)

func main() {
	// Parse command-line flags
	debugFlag := flag.Bool("debug", false, "Enable debug mode for verbose logging")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Override debug mode if flag is set
	debugMode := cfg.WorkerDebugMode || *debugFlag

	// Initialize logger
	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		if syncErr := zapLogger.Sync(); syncErr != nil {
			// Ignore sync errors in production
			_ = syncErr
		}
	}()

	zapLogger.Info("starting_worker",
		zap.Bool("debug_mode", debugMode),
		zap.String("storage_backend", cfg.StorageBackend),
		zap.Int("prefetch", cfg.RabbitMQPrefetch),
	)

	if cfg.RabbitMQURL == "" {
		zapLogger.Fatal("rabbitmq_url_required_for_worker")
	}

	// Connect to the storage backend the counters live in
	kv, err := newKVStore(cfg)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_storage", zap.Error(err))
	}
	defer func() {
		if err := kv.Close(); err != nil {
			zapLogger.Warn("failed_to_close_storage_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_storage", zap.String("backend", cfg.StorageBackend))

	// Connect to RabbitMQ
	bus, err := events.NewRabbitMQBus(cfg.RabbitMQURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq", zap.Error(err))
	}
	defer func() {
		if err := bus.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_rabbitmq")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		zapLogger.Info("shutdown_signal_received")
		cancel()
	}()

	aggregator, err := workers.NewActivityAggregator(ctx, kv)
	if err != nil {
		zapLogger.Fatal("failed_to_create_aggregator", zap.Error(err))
	}

	zapLogger.Info("worker_started_consuming_events")
	if err := aggregator.Run(ctx, bus, cfg.RabbitMQPrefetch); err != nil && !errors.Is(err, context.Canceled) {
		zapLogger.Fatal("worker_stopped_with_error", zap.Error(err))
	}

	zapLogger.Info("worker_stopped")
}

// newKVStore connects the configured storage backend.
func newKVStore(cfg *config.Config) (kvstore.Store, error) {
	switch cfg.StorageBackend {
	case "redis":
		return kvstore.NewRedisStore(cfg.RedisURL)
	case "postgres":
		return kvstore.NewPostgresStore(cfg.DatabaseURL)
	case "memory":
		return kvstore.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
