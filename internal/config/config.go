package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/benvon/todomvc-api/internal/models"
	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DatabaseURL       string
	ServerPort        string
	BaseURL           string
	FrontendURL       string
	EnableHSTS        bool
	RedisURL          string
	RabbitMQURL       string
	RabbitMQPrefetch  int
	CountsCacheTTL    time.Duration
	DefaultVisibility models.Visibility
	DefaultRateLimit  string
	WorkerDebugMode   bool
	ServerDebugMode   bool
	OTELEnabled       bool
	OTELEndpoint      string
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first when present; real environment values win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// .env is optional
		_ = err
	}
	return fromEnv(os.Getenv)
}

func fromEnv(getenv func(string) string) (*Config, error) {
	env := envReader{getenv: getenv}

	cfg := &Config{
		DatabaseURL:      env.str("DATABASE_URL", ""),
		ServerPort:       env.str("SERVER_PORT", "8080"),
		BaseURL:          env.str("BASE_URL", "http://localhost:8080"),
		FrontendURL:      env.str("FRONTEND_URL", "http://localhost:3000"),
		EnableHSTS:       env.boolean("ENABLE_HSTS", false),
		RedisURL:         env.str("REDIS_URL", "redis://localhost:6379/0"),
		RabbitMQURL:      env.str("RABBITMQ_URL", ""),
		RabbitMQPrefetch: env.integer("RABBITMQ_PREFETCH", 1),
		CountsCacheTTL:   env.duration("COUNTS_CACHE_TTL", 5*time.Minute),
		DefaultRateLimit: env.str("DEFAULT_RATE_LIMIT", "5-S"),
		WorkerDebugMode:  env.boolean("WORKER_DEBUG_MODE", false),
		ServerDebugMode:  env.boolean("SERVER_DEBUG_MODE", false),
		OTELEnabled:      env.boolean("OTEL_ENABLED", false),
		OTELEndpoint:     env.str("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.RabbitMQURL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required for todo change events")
	}

	visibility, err := models.ParseVisibility(env.str("DEFAULT_VISIBILITY", string(models.VisibilityAll)))
	if err != nil {
		return nil, fmt.Errorf("DEFAULT_VISIBILITY: %w", err)
	}
	cfg.DefaultVisibility = visibility

	if cfg.RabbitMQPrefetch <= 0 {
		cfg.RabbitMQPrefetch = 1
	}

	return cfg, nil
}

type envReader struct {
	getenv func(string) string
}

func (e envReader) str(key, defaultValue string) string {
	if value := e.getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (e envReader) boolean(key string, defaultValue bool) bool {
	if value := e.getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func (e envReader) integer(key string, defaultValue int) int {
	if value := e.getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func (e envReader) duration(key string, defaultValue time.Duration) time.Duration {
	if value := e.getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

// LoadDatabaseURL reads only DATABASE_URL, for tools that never touch the
// queue or cache.
func LoadDatabaseURL() (string, error) {
	_ = godotenv.Load()
	return databaseURLFromEnv(os.Getenv)
}

func databaseURLFromEnv(getenv func(string) string) (string, error) {
	url := getenv("DATABASE_URL")
	if url == "" {
		return "", fmt.Errorf("DATABASE_URL is required")
	}
	return url, nil
}
