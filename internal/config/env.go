package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// defaults for optional variables
const (
	defaultPort               = "8080"
	defaultEnvironment        = "development"
	defaultIdleTimeout        = 60 * time.Second
	defaultSweepInterval      = 15 * time.Second
	defaultSessionGracePeriod = 0
	defaultFlushInterval      = 5 * time.Second
	defaultSendQueueSize      = 256
	defaultRateLimit          = "300-M"
)

// loads configuration from environment variables
func LoadEnvironmentVariables() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		_ = err // not an error - production environments may not have .env file
	}

	return FromEnv(os.Getenv)
}

// builds the configuration from a variable lookup, used directly by tests
func FromEnv(getenv func(string) string) (*Config, error) {
	jwtSecret := getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	cfg := &Config{
		Port:           orDefault(getenv("PORT"), defaultPort),
		Environment:    orDefault(getenv("ENVIRONMENT"), defaultEnvironment),
		JWTSecret:      jwtSecret,
		DatabaseURL:    getenv("DATABASE_URL"),
		RedisURL:       getenv("REDIS_URL"),
		AllowedOrigins: splitOrigins(getenv("ALLOWED_ORIGINS")),
		RateLimit:      orDefault(getenv("RATE_LIMIT"), defaultRateLimit),
	}

	var err error

	if cfg.IdleTimeout, err = parseDuration(getenv, "IDLE_TIMEOUT", defaultIdleTimeout); err != nil {
		return nil, err
	}

	if cfg.SweepInterval, err = parseDuration(getenv, "SWEEP_INTERVAL", defaultSweepInterval); err != nil {
		return nil, err
	}

	if cfg.SessionGracePeriod, err = parseDuration(getenv, "SESSION_GRACE_PERIOD", defaultSessionGracePeriod); err != nil {
		return nil, err
	}

	if cfg.FlushInterval, err = parseDuration(getenv, "FLUSH_INTERVAL", defaultFlushInterval); err != nil {
		return nil, err
	}

	if cfg.SendQueueSize, err = parseInt(getenv, "WS_SEND_QUEUE_SIZE", defaultSendQueueSize); err != nil {
		return nil, err
	}

	if cfg.IdleTimeout <= 0 || cfg.SweepInterval <= 0 || cfg.FlushInterval <= 0 {
		return nil, fmt.Errorf("IDLE_TIMEOUT, SWEEP_INTERVAL and FLUSH_INTERVAL must be positive")
	}

	if cfg.SendQueueSize < 1 {
		return nil, fmt.Errorf("WS_SEND_QUEUE_SIZE must be at least 1")
	}

	if cfg.Environment == "production" && len(cfg.AllowedOrigins) == 0 {
		return nil, fmt.Errorf("ALLOWED_ORIGINS environment variable is required in production")
	}

	return cfg, nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}

	return value
}

func splitOrigins(value string) []string {
	if value == "" {
		return nil
	}

	var origins []string
	for _, origin := range strings.Split(value, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}

	return origins
}

func parseDuration(getenv func(string) string, key string, fallback time.Duration) (time.Duration, error) {
	value := getenv(key)
	if value == "" {
		return fallback, nil
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}

	return d, nil
}

func parseInt(getenv func(string) string, key string, fallback int) (int, error) {
	value := getenv(key)
	if value == "" {
		return fallback, nil
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}

	return n, nil
}
