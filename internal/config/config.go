// Package config provides environment configuration for the API server.
package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// v0 Platform API
	V0APIKey  string
	V0BaseURL string

	// Vercel
	VercelAPIToken string
	BlobToken      string

	// Backoffice
	BackofficePassword string
	JWTSecret          string
	JWTExpiration      time.Duration

	// Avatar guide LLM
	AnthropicAPIKey string
	OpenAIAPIKey    string

	// NATS settings
	NATSURL   string
	NATSToken string

	// Storage
	DatabasePath string

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// ErrMissingV0Key is returned when V0_API_KEY is absent. Generation cannot
// work without it so the server refuses to start.
var ErrMissingV0Key = errors.New("V0_API_KEY is required")

// Load reads configuration from the environment. A .env file in the working
// directory is honored if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 240*time.Second),

		V0APIKey:  getEnv("V0_API_KEY", ""),
		V0BaseURL: getEnv("V0_BASE_URL", "https://api.v0.dev/v1"),

		VercelAPIToken: getEnv("VERCEL_API_TOKEN", ""),
		BlobToken:      getEnv("BLOB_READ_WRITE_TOKEN", ""),

		BackofficePassword: getEnv("BACKOFFICE_PASSWORD", ""),
		JWTSecret:          getEnv("JWT_SECRET", "development-secret-change-in-production"),
		JWTExpiration:      getDurationEnv("JWT_EXPIRATION", 12*time.Hour),

		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),

		NATSURL:   getEnv("NATS_URL", "nats://localhost:4222"),
		NATSToken: getEnv("NATS_TOKEN", ""),

		DatabasePath: getEnv("DATABASE_PATH", "data/sitebuilder.db"),

		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}

	if cfg.V0APIKey == "" {
		return nil, ErrMissingV0Key
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
