package config

import "time"

// server configuration loaded from the environment
type Config struct {
	Port        string
	Environment string
	JWTSecret   string

	// archive backends, comments persist only when both are set
	DatabaseURL string
	RedisURL    string

	AllowedOrigins []string

	IdleTimeout        time.Duration
	SweepInterval      time.Duration
	SessionGracePeriod time.Duration
	FlushInterval      time.Duration

	SendQueueSize int

	// ulule/limiter formatted rate, e.g. "300-M"
	RateLimit string
}

// reports whether the comment archive can be enabled
func (c *Config) ArchiveEnabled() bool {
	return c.DatabaseURL != "" && c.RedisURL != ""
}

// terminal client flags
type Flags struct {
	ServerURL  string
	DocumentID string
	Token      string
}
