package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benvon/smart-planner/api"
	"github.com/benvon/smart-planner/internal/config"
	"github.com/benvon/smart-planner/internal/conversation"
	"github.com/benvon/smart-planner/internal/database"
	"github.com/benvon/smart-planner/internal/handlers"
	"github.com/benvon/smart-planner/internal/logger"
	"github.com/benvon/smart-planner/internal/metrics"
	"github.com/benvon/smart-planner/internal/middleware"
	"github.com/benvon/smart-planner/internal/queue"
	"github.com/benvon/smart-planner/internal/services/ai"
	"github.com/benvon/smart-planner/internal/services/classifier"
	"github.com/benvon/smart-planner/internal/services/dispatcher"
	"github.com/benvon/smart-planner/internal/services/preferences"
	"github.com/benvon/smart-planner/internal/services/synthesis"
	"github.com/benvon/smart-planner/internal/telemetry"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

const serviceName = "smart-planner-api"

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug mode for LLM API logging")
	envFile := flag.String("env-file", "", "Optional .env file to load before reading the environment")
	flag.Parse()

	if *envFile != "" {
		if _, err := config.LoadDotEnv(*envFile); err != nil {
			log.Fatalf("Failed to load env file: %v", err)
		}
	} else if _, err := config.LoadDotEnv(); err != nil {
		log.Fatalf("Failed to load .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync(zapLogger) }()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("ai_provider", cfg.AIProvider),
		zap.String("ai_model", cfg.AIModel),
		zap.String("session_store", cfg.SessionStore),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	tracingEnabled := false
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else if tp, err := telemetry.InitTracer(context.Background(), telemetry.Options{
			ServiceName: serviceName,
			Endpoint:    cfg.OTELEndpoint,
			SampleRatio: cfg.OTELSampleRatio,
		}); err != nil {
			zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
		} else {
			tracingEnabled = true
			zapLogger.Info("otel_tracer_initialized",
				zap.String("endpoint", cfg.OTELEndpoint),
				zap.Float64("sample_ratio", cfg.OTELSampleRatio),
			)
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := telemetry.Shutdown(ctx, tp); err != nil {
					zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
				}
			}()
		}
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.Migrate(migrateCtx); err != nil {
		migrateCancel()
		zapLogger.Fatal("failed_to_migrate_database", zap.Error(err))
	}
	migrateCancel()
	zapLogger.Info("connected_to_database")

	redisClient := connectRedis(cfg, zapLogger)
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
			}
		}()
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	m := metrics.New()
	prefService := preferences.NewService(database.NewPreferenceRepository(db), cfg.StoreTimeout, zapLogger)

	sessionOpts := conversation.Options{TTL: cfg.SessionTTL, MaxMessages: cfg.SessionMaxMessages}
	var store conversation.Store
	var locker conversation.Locker
	if cfg.SessionStore == config.SessionStoreRedis {
		store = conversation.NewRedisStore(redisClient, prefService, sessionOpts)
		locker = conversation.NewRedisLocker(redisClient, cfg.SessionLockLease)
	} else {
		memStore := conversation.NewMemoryStore(prefService, sessionOpts)
		memStore.StartJanitor(bgCtx, time.Minute)
		store = memStore
		locker = conversation.NewMemoryLocker()
	}

	gen := newGenerator(cfg, zapLogger, debugMode, m)
	synthCfg := synthesis.Config{StoreTimeout: cfg.StoreTimeout, Currency: cfg.DefaultCurrency}
	timelineRepo := database.NewTimelineRepository(db)

	assistant := dispatcher.New(dispatcher.Dependencies{
		Store:           store,
		Locker:          locker,
		Classifier:      classifier.New(gen, zapLogger),
		Timeline:        synthesis.NewTimelineSynthesizer(gen, timelineRepo, synthCfg, zapLogger, m),
		Recommendations: synthesis.NewRecommendationSynthesizer(gen, prefService, zapLogger, m),
		Discounts:       synthesis.NewDiscountResponder(gen, database.NewDiscountRepository(db), synthCfg, zapLogger, m),
		Chat:            synthesis.NewChatResponder(gen, zapLogger),
		Logger:          zapLogger,
		Metrics:         m,
		Tracer:          telemetry.Tracer(),
		LockTimeout:     cfg.SessionLockTimeout,
		StoreTimeout:    cfg.StoreTimeout,
	})

	// Background generation is optional; without RabbitMQ the generate endpoint answers 503.
	var jobQueue queue.Enqueuer
	checks := map[string]handlers.CheckFunc{"database": db.HealthCheck}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	if cfg.RabbitMQURL != "" {
		rabbit, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL, zapLogger)
		if err != nil {
			zapLogger.Warn("rabbitmq_unavailable_background_generation_disabled", zap.Error(err))
		} else {
			defer func() {
				if err := rabbit.Close(); err != nil {
					zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
				}
			}()
			jobQueue = rabbit
			checks["rabbitmq"] = rabbit.HealthCheck

			sweeper := queue.NewDeadLetterSweeper(rabbit, queue.DefaultSweepInterval, queue.DefaultDeadLetterTTL, zapLogger, m)
			go func() {
				if err := sweeper.Run(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
					zapLogger.Error("dead_letter_sweeper_stopped_with_error", zap.Error(err))
				}
			}()
			zapLogger.Info("connected_to_rabbitmq")
		}
	}

	rateLimitMW, err := middleware.RateLimit(redisClient, cfg.RateLimit, zapLogger)
	if err != nil {
		zapLogger.Fatal("invalid_rate_limit", zap.String("rate", cfg.RateLimit), zap.Error(err))
	}

	openAPIHandler, err := handlers.NewOpenAPIHandler(api.OpenAPI)
	if err != nil {
		zapLogger.Fatal("failed_to_load_openapi_document", zap.Error(err))
	}

	r := mux.NewRouter()

	// Registered first runs outermost.
	if tracingEnabled {
		r.Use(otelmux.Middleware(serviceName))
	}
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	r.Use(middleware.CORS(cfg.FrontendURL))
	// Logging assigns the request id, so everything below can report it.
	r.Use(middleware.Logging(zapLogger))
	r.Use(middleware.Audit(zapLogger))
	r.Use(middleware.Recover(zapLogger))
	r.Use(middleware.JSONBody(middleware.DefaultMaxRequestSize))
	r.Use(middleware.Deadline(middleware.DefaultRequestTimeout))

	r.HandleFunc("/healthz", handlers.NewHealthChecker(checks).HealthCheck).Methods(http.MethodGet)
	r.Handle("/metrics", m.Handler()).Methods(http.MethodGet)
	openAPIHandler.RegisterRoutes(r)

	apiRouter := r.PathPrefix("/api/v1").Subrouter()

	assistantRouter := apiRouter.PathPrefix("/assistant").Subrouter()
	assistantRouter.Use(rateLimitMW)
	handlers.NewAssistantHandler(assistant, store, cfg.StoreTimeout, zapLogger).RegisterRoutes(assistantRouter)

	usersRouter := apiRouter.PathPrefix("/users").Subrouter()
	usersRouter.Use(rateLimitMW)
	handlers.NewTimelineHandler(timelineRepo, jobQueue, cfg.StoreTimeout, zapLogger).RegisterRoutes(usersRouter)

	// Preflight requests for any path; the CORS middleware has already answered them.
	r.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      middleware.DefaultRequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")
	bgCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}

// connectRedis returns nil when Redis is unreachable and the memory session store is selected.
// The redis session store cannot run without it.
func connectRedis(cfg *config.Config, log *zap.Logger) *redis.Client {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		if cfg.SessionStore == config.SessionStoreRedis {
			log.Fatal("invalid_redis_url", zap.Error(err))
		}
		log.Warn("invalid_redis_url_using_memory_backends", zap.Error(err))
		return nil
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		if cfg.SessionStore == config.SessionStoreRedis {
			log.Fatal("failed_to_connect_to_redis", zap.Error(err))
		}
		log.Warn("redis_unavailable_using_memory_backends", zap.Error(err))
		return nil
	}

	log.Info("connected_to_redis")
	return client
}

// newGenerator resolves the configured provider and bounds every call with the generation timeout.
func newGenerator(cfg *config.Config, log *zap.Logger, debugMode bool, m *metrics.Metrics) ai.TextGenerator {
	registry := ai.NewProviderRegistry()
	ai.RegisterOpenAI(registry, log, debugMode)

	gen := ai.NewFromConfig(registry, cfg.AIProvider, ai.ProviderConfig{
		APIKey:  cfg.OpenAIKey,
		Model:   cfg.AIModel,
		BaseURL: cfg.AIBaseURL,
	}, log)
	return ai.Instrument(gen, cfg.GenerationTimeout, m)
}
