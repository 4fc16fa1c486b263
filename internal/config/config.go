package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all daemon configuration, read from the environment.
type Config struct {
	// Server configuration
	HTTPHost string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	HTTPPort int    `env:"HTTP_PORT" envDefault:"8080"`
	GRPCPort int    `env:"GRPC_PORT" envDefault:"9090"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// State tree persistence
	StateBackend string `env:"STATE_BACKEND" envDefault:"file"`
	StatePath    string `env:"STATE_PATH" envDefault:"seekerd-state.json"`

	// Durable record store
	RecordsBackend string `env:"RECORDS_BACKEND" envDefault:"memory"`

	// Shared Redis connection, used whenever a backend selects redis
	Redis RedisConfig

	// Document drafting
	Draft DraftConfig

	// Orchestration
	PipelineFile       string        `env:"PIPELINE_FILE"`
	ChainMaxSteps      int           `env:"CHAIN_MAX_STEPS" envDefault:"10"`
	QueueDrainLimit    int           `env:"QUEUE_DRAIN_LIMIT" envDefault:"10"`
	QueueDrainInterval time.Duration `env:"QUEUE_DRAIN_INTERVAL" envDefault:"30s"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`

	PoolSize    int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	DialTimeout time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
}

// DraftConfig selects and configures the document drafter.
type DraftConfig struct {
	Provider string `env:"DRAFT_PROVIDER" envDefault:"template"`
	APIKey   string `env:"ANTHROPIC_API_KEY"`
	Model    string `env:"ANTHROPIC_MODEL" envDefault:"claude-3-5-sonnet-20241022"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// NeedsRedis reports whether any selected backend requires a Redis client.
func (c *Config) NeedsRedis() bool {
	return c.StateBackend == "redis" || c.RecordsBackend == "redis"
}

// Validate checks ports, backends, and provider requirements.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.GRPCPort < 1 || c.GRPCPort > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.GRPCPort)
	}
	if c.HTTPPort == c.GRPCPort {
		return fmt.Errorf("HTTP and gRPC ports collide: %d", c.HTTPPort)
	}

	switch c.StateBackend {
	case "file", "redis":
	default:
		return fmt.Errorf("unknown state backend: %s (must be file or redis)", c.StateBackend)
	}
	if c.StateBackend == "file" && c.StatePath == "" {
		return fmt.Errorf("state path is required for the file backend")
	}

	switch c.RecordsBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown records backend: %s (must be memory or redis)", c.RecordsBackend)
	}

	if c.NeedsRedis() && c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required")
	}

	switch c.Draft.Provider {
	case "template":
	case "anthropic":
		if c.Draft.APIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required for the anthropic provider")
		}
	default:
		return fmt.Errorf("unknown draft provider: %s (must be template or anthropic)", c.Draft.Provider)
	}

	if c.ChainMaxSteps < 1 {
		return fmt.Errorf("chain max steps must be at least 1")
	}
	if c.QueueDrainLimit < 1 {
		return fmt.Errorf("queue drain limit must be at least 1")
	}
	if c.QueueDrainInterval <= 0 {
		return fmt.Errorf("queue drain interval must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// HTTPAddr returns the HTTP listen address.
func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.HTTPHost, c.HTTPPort)
}

// GRPCAddr returns the gRPC listen address.
func (c *Config) GRPCAddr() string {
	return fmt.Sprintf(":%d", c.GRPCPort)
}
