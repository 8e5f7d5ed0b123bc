package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"

	"github.com/benvon/moodtask/internal/config"
	"github.com/benvon/moodtask/internal/events"
	"github.com/benvon/moodtask/internal/handlers"
	"github.com/benvon/moodtask/internal/kvstore"
	"github.com/benvon/moodtask/internal/logger"
	"github.com/benvon/moodtask/internal/middleware"
	"github.com/benvon/moodtask/internal/persistence"
	"github.com/benvon/moodtask/internal/render"
	"github.com/benvon/moodtask/internal/services/ai"
	"github.com/benvon/moodtask/internal/services/oidc"
	"github.com/benvon/moodtask/internal/session"
	"github.com/benvon/moodtask/internal/suggest"
	"github.com/benvon/moodtask/internal/telemetry"
	"github.com/benvon/moodtask/internal/weather"
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
	debugMode := cfg.ServerDebugMode || *debugFlag

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

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("storage_backend", cfg.StorageBackend),
		zap.String("pool_source", cfg.PoolSource),
		zap.Duration("debounce_delay", cfg.DebounceDelay),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	// Initialize OpenTelemetry if enabled
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else {
			tp, err := telemetry.InitTracer(context.Background(), "moodtask-api", cfg.OTELEndpoint)
			if err != nil {
				zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
			} else {
				zapLogger.Info("otel_tracer_initialized",
					zap.String("endpoint", cfg.OTELEndpoint),
				)
				defer func() {
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					if err := telemetry.Shutdown(shutdownCtx, tp); err != nil {
						zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
					}
				}()
			}
		}
	}

	// Connect to the task storage backend
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

	adapter := persistence.New(kv, zapLogger)

	// Build the suggestion pool source and engine
	poolSource, err := newPoolSource(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_create_pool_source", zap.Error(err))
	}
	engine := suggest.NewEngine(poolSource, zapLogger)

	// Connect to RabbitMQ for lifecycle events (optional).
	// Retry connection with exponential backoff to handle broker startup delays.
	var publisher events.Publisher
	if cfg.RabbitMQURL != "" {
		bus, err := connectRabbitMQ(cfg.RabbitMQURL, zapLogger)
		if err != nil {
			zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries", zap.Error(err))
		}
		publisher = bus
		defer func() {
			if err := bus.Close(); err != nil {
				zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
			}
		}()
		zapLogger.Info("connected_to_rabbitmq")
	} else {
		zapLogger.Info("rabbitmq_not_configured_events_disabled")
	}

	// View updates fan out to the SSE hub and the debug log
	sseHub := render.NewSSEHub(zapLogger)
	renderer := render.NewMultiRenderer(sseHub, render.NewLogRenderer(zapLogger))

	weatherProvider := weather.NewRandomProvider()

	manager := session.NewManager(session.Config{
		Adapter:   adapter,
		Engine:    engine,
		Renderer:  renderer,
		Publisher: publisher,
		Weather:   weatherProvider,
		Debounce:  cfg.DebounceDelay,
		Logger:    zapLogger,
	})
	defer manager.Close()

	// OIDC login is optional; without it sessions stay guests
	var oidcProvider *oidc.Provider
	var verifier *oidc.Verifier
	if cfg.OIDCIssuer != "" {
		oidcConfig := oidc.Config{
			Issuer:       cfg.OIDCIssuer,
			ClientID:     cfg.OIDCClientID,
			ClientSecret: cfg.OIDCClientSecret,
			RedirectURI:  cfg.OIDCRedirectURI,
			JWKSURL:      cfg.OIDCJWKSURL,
		}
		oidcProvider = oidc.NewProvider(oidcConfig)
		verifier = oidc.NewVerifier(oidc.NewJWKSManager(), oidcConfig)
		zapLogger.Info("oidc_configured", zap.String("issuer", cfg.OIDCIssuer))
	}

	// Setup router
	r := mux.NewRouter()

	zapLogger.Info("setting_up_middleware")
	if cfg.OTELEnabled {
		r.Use(otelmux.Middleware("moodtask-api"))
	}
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	r.Use(middleware.CORSFromEnv(cfg.FrontendURL))
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.Logging(zapLogger))

	// Public routes
	healthChecker := handlers.NewHealthChecker(kv)
	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods("GET")
	r.HandleFunc("/version", versionInfo).Methods("GET")

	// API v1 routes; every request below this point has a session
	apiRouter := r.PathPrefix("/api/v1").Subrouter()
	if redisStore, ok := kv.(*kvstore.RedisStore); ok {
		rateLimitMW, err := middleware.RateLimit(redisStore.Client(), middleware.DefaultRateLimit)
		if err != nil {
			zapLogger.Fatal("failed_to_create_rate_limiter", zap.Error(err))
		}
		apiRouter.Use(rateLimitMW)
	}
	apiRouter.Use(middleware.Session(manager, zapLogger))

	// The SSE stream is long-lived and must bypass the request timeout
	eventsHandler := handlers.NewEventsHandler(sseHub)
	apiRouter.HandleFunc("/events", eventsHandler.Stream).Methods("GET")

	timedRouter := apiRouter.PathPrefix("").Subrouter()
	timedRouter.Use(middleware.ContentType)
	timedRouter.Use(middleware.Timeout(middleware.DefaultRequestTimeout))

	handlers.NewTaskHandler().RegisterRoutes(timedRouter.PathPrefix("/tasks").Subrouter())
	handlers.NewMoodHandler().RegisterRoutes(timedRouter.PathPrefix("/mood").Subrouter())
	handlers.NewWeatherHandler(weatherProvider).RegisterRoutes(timedRouter.PathPrefix("/weather").Subrouter())
	handlers.NewSuggestionHandler().RegisterRoutes(timedRouter.PathPrefix("/suggestions").Subrouter())
	handlers.NewAuthHandler(oidcProvider, verifier).RegisterRoutes(timedRouter.PathPrefix("/auth").Subrouter())

	// Catch-all OPTIONS handler for preflight requests; the CORS
	// middleware has already set the headers.
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// Setup server. No WriteTimeout: it would cut open SSE streams.
	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB max header size
	}

	// Start server in a goroutine
	go func() {
		zapLogger.Info("server_starting",
			zap.String("port", cfg.ServerPort),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Fatal("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
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

// newPoolSource builds the configured suggestion pool source.
func newPoolSource(cfg *config.Config, zapLogger *zap.Logger) (suggest.PoolSource, error) {
	switch cfg.PoolSource {
	case "http":
		return suggest.NewHTTPSource(cfg.PoolURL), nil
	case "file":
		return suggest.NewFileSource(cfg.PoolFile), nil
	case "ai":
		return ai.NewGeneratorSource(cfg.OpenAIKey, cfg.AIBaseURL, cfg.AIModel, zapLogger), nil
	default:
		return nil, fmt.Errorf("unknown pool source %q", cfg.PoolSource)
	}
}

// connectRabbitMQ retries the broker connection with exponential
// backoff to ride out broker startup delays.
func connectRabbitMQ(amqpURL string, zapLogger *zap.Logger) (*events.RabbitMQBus, error) {
	const maxRetries = 10
	const initialDelay = 2 * time.Second

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		bus, err := events.NewRabbitMQBus(amqpURL)
		if err == nil {
			return bus, nil
		}
		lastErr = err

		delay := initialDelay * time.Duration(1<<uint(attempt))
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}
		zapLogger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
			zap.Duration("retry_delay", delay),
		)
		time.Sleep(delay)
	}
	return nil, lastErr
}

func versionInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	// Only expose minimal version info
	if _, err := fmt.Fprintf(w, `{"version":"1.0.0","timestamp":"%s"}`, time.Now().UTC().Format(time.RFC3339)); err != nil {
		_ = err
	}
}
