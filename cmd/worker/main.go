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

	"github.com/benvon/smart-planner/internal/config"
	"github.com/benvon/smart-planner/internal/database"
	"github.com/benvon/smart-planner/internal/logger"
	"github.com/benvon/smart-planner/internal/metrics"
	"github.com/benvon/smart-planner/internal/queue"
	"github.com/benvon/smart-planner/internal/services/ai"
	"github.com/benvon/smart-planner/internal/services/preferences"
	"github.com/benvon/smart-planner/internal/services/synthesis"
	"github.com/benvon/smart-planner/internal/workers"
	"go.uber.org/zap"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug mode for LLM API logging")
	metricsAddr := flag.String("metrics-addr", ":9091", "Address serving /metrics; empty disables it")
	flag.Parse()

	if _, err := config.LoadDotEnv(); err != nil {
		log.Fatalf("Failed to load .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.RabbitMQURL == "" {
		log.Fatalf("RABBITMQ_URL is required for the worker")
	}

	debugMode := cfg.WorkerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync(zapLogger) }()

	zapLogger.Info("starting_worker",
		zap.Bool("debug_mode", debugMode),
		zap.String("ai_provider", cfg.AIProvider),
		zap.String("ai_model", cfg.AIModel),
		zap.Int("prefetch", cfg.RabbitMQPrefetch),
	)

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_database")

	// RabbitMQ may still be starting when the worker comes up.
	const maxRetries = 10
	var jobQueue *queue.RabbitMQQueue
	for attempt := 0; ; attempt++ {
		jobQueue, err = queue.NewRabbitMQQueue(cfg.RabbitMQURL, zapLogger)
		if err == nil {
			break
		}
		if attempt+1 >= maxRetries {
			zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries",
				zap.Int("max_retries", maxRetries),
				zap.Error(err),
			)
		}
		delay := min(2*time.Second*time.Duration(1<<attempt), 30*time.Second)
		zapLogger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Duration("retry_delay", delay),
			zap.Error(err),
		)
		time.Sleep(delay)
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_rabbitmq")

	m := metrics.New()
	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		metricsSrv := &http.Server{Addr: *metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				zapLogger.Error("metrics_server_failed", zap.Error(err))
			}
		}()
		defer func() { _ = metricsSrv.Close() }()
	}

	registry := ai.NewProviderRegistry()
	ai.RegisterOpenAI(registry, zapLogger, debugMode)
	gen := ai.Instrument(ai.NewFromConfig(registry, cfg.AIProvider, ai.ProviderConfig{
		APIKey:  cfg.OpenAIKey,
		Model:   cfg.AIModel,
		BaseURL: cfg.AIBaseURL,
	}, zapLogger), cfg.GenerationTimeout, m)

	timelines := synthesis.NewTimelineSynthesizer(gen, database.NewTimelineRepository(db),
		synthesis.Config{StoreTimeout: cfg.StoreTimeout, Currency: cfg.DefaultCurrency}, zapLogger, m)
	prefs := preferences.NewService(database.NewPreferenceRepository(db), cfg.StoreTimeout, zapLogger)

	pregenerator := workers.NewTimelinePregenerator(timelines, prefs, jobQueue, zapLogger, m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, errs, err := jobQueue.Consume(ctx, cfg.RabbitMQPrefetch)
	if err != nil {
		zapLogger.Fatal("failed_to_start_consuming", zap.Error(err))
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		pregenerator.Run(ctx, msgs)
	}()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-errs:
				if !ok {
					return
				}
				zapLogger.Error("queue_error", zap.Error(err))
			}
		}
	}()

	zapLogger.Info("worker_started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigChan:
		zapLogger.Info("worker_shutting_down")
	case <-done:
		zapLogger.Warn("message_channel_closed")
	}

	cancel()
	<-done
	zapLogger.Info("worker_stopped")
}
