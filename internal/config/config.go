package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const DefaultOMDbBaseURL = "https://www.omdbapi.com/"

// ErrMissingConfig is returned when a required setting is absent.
var ErrMissingConfig = errors.New("missing required env var")

// Config holds all configuration for the application
type Config struct {
	OMDbAPIKey  string
	DatabaseURL string
	OMDbBaseURL string

	RequestDelay   time.Duration // pause between successive OMDb requests
	RequestTimeout time.Duration
	MaxRetries     int // additional attempts after the first one
	RetryBackoff   time.Duration

	RedisURL string
	HTTPAddr string
	LogPath  string
	LogLevel string
}

// LoadConfig reads configuration from environment variables (.env file)
func LoadConfig() (*Config, error) {
	// A missing .env is fine, production sets the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		OMDbAPIKey:  strings.TrimSpace(getEnv("OMDB_API_KEY", "")),
		DatabaseURL: strings.TrimSpace(getEnv("DB_URL", getEnv("DATABASE_URL", ""))),
		OMDbBaseURL: strings.TrimSpace(getEnv("OMDB_BASE_URL", DefaultOMDbBaseURL)),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		LogPath:     getEnv("LOG_PATH", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}
	if cfg.OMDbBaseURL == "" {
		cfg.OMDbBaseURL = DefaultOMDbBaseURL
	}

	var err error
	if cfg.RequestDelay, err = getSeconds("REQUEST_SLEEP_SECONDS", 0.3); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = getSeconds("REQUEST_TIMEOUT_SECONDS", 10); err != nil {
		return nil, err
	}
	if cfg.RetryBackoff, err = getSeconds("RETRY_BACKOFF_SECONDS", 0.6); err != nil {
		return nil, err
	}
	if cfg.MaxRetries, err = getInt("MAX_RETRIES", 2); err != nil {
		return nil, err
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("MAX_RETRIES must not be negative, got %d", cfg.MaxRetries)
	}

	return cfg, nil
}

// Validate checks the settings every pipeline run needs.
func (c *Config) Validate() error {
	if c.OMDbAPIKey == "" {
		return fmt.Errorf("%w: OMDB_API_KEY", ErrMissingConfig)
	}
	return c.ValidateDatabase()
}

// ValidateDatabase checks only the database connection string.
func (c *Config) ValidateDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%w: DB_URL", ErrMissingConfig)
	}
	return nil
}

// Helper function to get env var or return default
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getSeconds(key string, defaultValue float64) (time.Duration, error) {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return time.Duration(defaultValue * float64(time.Second)), nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %q", key, raw)
	}
	return time.Duration(v * float64(time.Second)), nil
}

func getInt(key string, defaultValue int) (int, error) {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}
