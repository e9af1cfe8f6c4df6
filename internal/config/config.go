package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Session store backends
const (
	SessionStoreRedis  = "redis"
	SessionStoreMemory = "memory"
)

// Config holds application configuration
type Config struct {
	DatabaseURL  string
	ServerPort   string
	FrontendURL  string
	EnableHSTS   bool
	RateLimit    string
	OpenAIKey    string
	AIProvider   string
	AIModel      string
	AIBaseURL    string
	RedisURL     string
	RabbitMQURL  string
	OTELEnabled  bool
	OTELEndpoint string

	// OTELSampleRatio is the share of new traces kept; 0 or 1 keeps all.
	OTELSampleRatio float64

	RabbitMQPrefetch int
	WorkerDebugMode  bool
	ServerDebugMode  bool
	DefaultCurrency  string

	SessionStore       string
	SessionTTL         time.Duration
	SessionMaxMessages int
	SessionLockTimeout time.Duration
	// SessionLockLease is the Redis lock lease. Held locks renew it, so it only bounds how
	// long a crashed instance blocks a session. It must cover TurnBudget.
	SessionLockLease   time.Duration

	// GenerationTimeout bounds every text-generation round-trip.
	GenerationTimeout time.Duration
	// StoreTimeout bounds every preference/discount/timeline store call.
	StoreTimeout time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	return load(os.Getenv)
}

// LoadDotEnv loads the first of paths that exists (".env" when none are given). Variables already
// set in the environment win. It returns the loaded path, or "" when no file was found.
func LoadDotEnv(paths ...string) (string, error) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		err := godotenv.Load(path)
		if err == nil {
			return path, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return "", nil
}

func load(lookup func(string) string) (*Config, error) {
	e := env{lookup: lookup}
	cfg := &Config{
		DatabaseURL:        e.str("DATABASE_URL", ""),
		ServerPort:         e.str("SERVER_PORT", "8080"),
		FrontendURL:        e.str("FRONTEND_URL", "http://localhost:3000"),
		EnableHSTS:         e.bool("ENABLE_HSTS", false),
		RateLimit:          e.str("RATE_LIMIT", "5-S"),
		OpenAIKey:          e.str("OPENAI_API_KEY", ""),
		AIProvider:         e.str("AI_PROVIDER", "openai"),
		AIModel:            e.str("AI_MODEL", ""),
		AIBaseURL:          e.str("AI_BASE_URL", ""),
		RedisURL:           e.str("REDIS_URL", "redis://localhost:6379/0"),
		RabbitMQURL:        e.str("RABBITMQ_URL", ""),
		RabbitMQPrefetch:   e.int("RABBITMQ_PREFETCH", 1),
		WorkerDebugMode:    e.bool("WORKER_DEBUG_MODE", false),
		ServerDebugMode:    e.bool("SERVER_DEBUG_MODE", false),
		OTELEnabled:        e.bool("OTEL_ENABLED", false),
		OTELEndpoint:       e.str("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELSampleRatio:    e.float("OTEL_SAMPLE_RATIO", 1),
		DefaultCurrency:    e.str("DEFAULT_CURRENCY", "TRY"),
		SessionStore:       e.str("SESSION_STORE", SessionStoreRedis),
		SessionTTL:         e.duration("SESSION_TTL", 30*time.Minute),
		SessionMaxMessages: e.int("SESSION_MAX_MESSAGES", 200),
		SessionLockTimeout: e.duration("SESSION_LOCK_TIMEOUT", 45*time.Second),
		SessionLockLease:   e.duration("SESSION_LOCK_LEASE", 0),
		GenerationTimeout:  e.duration("GENERATION_TIMEOUT", 20*time.Second),
		StoreTimeout:       e.duration("STORE_TIMEOUT", 3*time.Second),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	switch cfg.SessionStore {
	case SessionStoreRedis, SessionStoreMemory:
	default:
		return nil, fmt.Errorf("SESSION_STORE must be %q or %q, got %q", SessionStoreRedis, SessionStoreMemory, cfg.SessionStore)
	}

	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("SESSION_TTL must be positive")
	}
	if cfg.GenerationTimeout <= 0 || cfg.StoreTimeout <= 0 {
		return nil, fmt.Errorf("GENERATION_TIMEOUT and STORE_TIMEOUT must be positive")
	}

	switch {
	case cfg.SessionLockLease == 0:
		cfg.SessionLockLease = cfg.TurnBudget() + leaseMargin
	case cfg.SessionLockLease < cfg.TurnBudget():
		return nil, fmt.Errorf("SESSION_LOCK_LEASE (%v) must be at least the turn budget %v", cfg.SessionLockLease, cfg.TurnBudget())
	}

	return cfg, nil
}

// Generation round-trips and store calls one dispatch makes at worst while holding its lock:
// classification plus one synthesis, and the context, preference, persistence and append calls.
const (
	turnGenerations = 2
	turnStoreCalls  = 6
	leaseMargin     = 10 * time.Second
)

// TurnBudget is the longest one dispatch can hold its session lock.
func (c *Config) TurnBudget() time.Duration {
	return turnGenerations*c.GenerationTimeout + turnStoreCalls*c.StoreTimeout
}

type env struct {
	lookup func(string) string
}

func (e env) str(key, defaultValue string) string {
	if value := e.lookup(key); value != "" {
		return value
	}
	return defaultValue
}

func (e env) bool(key string, defaultValue bool) bool {
	if value := e.lookup(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func (e env) int(key string, defaultValue int) int {
	if value := e.lookup(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func (e env) float(key string, defaultValue float64) float64 {
	if value := e.lookup(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// duration accepts Go duration strings ("20s") or a bare number of seconds.
func (e env) duration(key string, defaultValue time.Duration) time.Duration {
	value := e.lookup(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
