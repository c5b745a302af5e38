package config

import (
	"time"

	"github.com/ixra/ixra-api/internal/ailink"
	"github.com/ixra/ixra-api/internal/contact"
)

// Config represents the complete application configuration.
//
// Values are resolved by viper in this order: defaults, config file,
// IXRA_* environment variables (plus a few well-known unprefixed names).
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Chat      ChatConfig      `mapstructure:"chat"`
	AILink    ailink.Config   `mapstructure:"ailink"`
	Contact   ContactConfig   `mapstructure:"contact"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Health    HealthConfig    `mapstructure:"health"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// MaxBodyBytes caps JSON request bodies.
	MaxBodyBytes int64 `mapstructure:"max_body_bytes"`
}

// StoreConfig selects where rate limit windows and leads live.
//
// Driver "memory" keeps rate limits in process and does not persist leads.
// "libsql" uses Path (local file) or URL (Turso); "postgres" requires URL.
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// RateLimitConfig is the per-client chat quota.
type RateLimitConfig struct {
	Window        time.Duration `mapstructure:"window"`
	MaxRequests   int           `mapstructure:"max_requests"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// ChatConfig tunes the assistant proxy.
type ChatConfig struct {
	// Mode is "complete" (one JSON reply) or "stream" (chunked text).
	Mode         string `mapstructure:"mode"`
	MaxTurns     int    `mapstructure:"max_turns"`
	MaxTurnChars int    `mapstructure:"max_turn_chars"`
	// PromptFile overrides the embedded system prompt. Empty uses the default.
	PromptFile  string `mapstructure:"prompt_file"`
	WatchPrompt bool   `mapstructure:"watch_prompt"`
}

// ContactConfig configures lead delivery.
type ContactConfig struct {
	SMTP  contact.SMTPConfig  `mapstructure:"smtp"`
	Kafka contact.KafkaConfig `mapstructure:"kafka"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`

	// Environment is stamped on every structured log line.
	Environment string `mapstructure:"environment"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	// Enabled controls whether metrics are exposed
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated metrics endpoint port (Prometheus format)
	// Metrics are also available at the main HTTP port in JSON format
	Port int `mapstructure:"port"`
}

// HealthConfig contains health check configuration
type HealthConfig struct {
	// Enabled mounts the /health routes on the API server.
	Enabled bool `mapstructure:"enabled"`
}
