// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/altscore/altscore/internal/security"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port      string
	Env       string // "development", "staging", "production"
	LogLevel  string
	LogFormat string // "json" or "text"

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// Models
	MLServiceURL     string  // Remote classifier; empty disables the remote path
	MLTemperature    float64 // Tempering applied to remote probabilities
	MLTimeout        time.Duration
	CreditModelPath  string // JSON weights for the local model (optional)
	AnomalySeedPath  string // CSV of historical amounts for the anomaly model (optional)
	DisableAnomalyML bool   // Use the heuristic risk scorer instead of the forest

	// Risk profiles
	ProfileTTL time.Duration // In-memory profile retention

	// Security
	RateLimitRPS   int
	AllowedOrigins []string

	// Observability
	OTLPEndpoint string
}

const (
	DefaultPort          = "8080"
	DefaultEnv           = "development"
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "json"
	DefaultRateLimit     = 100
	DefaultMLTemperature = 1.5
	DefaultMLTimeout     = 5 * time.Second
	DefaultProfileTTL    = 24 * time.Hour
)

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", DefaultPort),
		Env:              getEnv("ENV", DefaultEnv),
		LogLevel:         getEnv("LOG_LEVEL", DefaultLogLevel),
		LogFormat:        getEnv("LOG_FORMAT", DefaultLogFormat),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		MLServiceURL:     strings.TrimRight(os.Getenv("ML_SERVICE_URL"), "/"),
		MLTemperature:    getEnvFloat("ML_TEMP", DefaultMLTemperature),
		MLTimeout:        getEnvDuration("ML_TIMEOUT", DefaultMLTimeout),
		CreditModelPath:  os.Getenv("CREDIT_MODEL_PATH"),
		AnomalySeedPath:  os.Getenv("ANOMALY_SEED_CSV"),
		DisableAnomalyML: getEnvBool("DISABLE_ML"),
		ProfileTTL:       getEnvDuration("PROFILE_TTL", DefaultProfileTTL),
		RateLimitRPS:     int(getEnvInt64("RATE_LIMIT_RPS", int64(DefaultRateLimit))),
		AllowedOrigins:   getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		OTLPEndpoint:     os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("PORT must be numeric, got %q", c.Port)
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.LogFormat)
	}
	if c.MLServiceURL != "" {
		if err := security.ValidateServiceURL(c.MLServiceURL); err != nil {
			return fmt.Errorf("ML_SERVICE_URL %q: %w", c.MLServiceURL, err)
		}
	}
	if c.MLTemperature <= 0 {
		return fmt.Errorf("ML_TEMP must be positive")
	}
	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be positive")
	}
	if c.ProfileTTL <= 0 {
		return fmt.Errorf("PROFILE_TTL must be positive")
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvBool accepts "true" (any case) and "1".
func getEnvBool(key string) bool {
	v := strings.TrimSpace(os.Getenv(key))
	return strings.EqualFold(v, "true") || v == "1"
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
