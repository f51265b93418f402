// Package server provides configuration helpers that define runtime defaults,
// validation, and rate-limiting parameters for the relay service.
package server

import (
	"fmt"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/samber/lo"
)

// DefaultPort is the port the relay listens on when none is configured.
const DefaultPort = 8000

const (
	defaultMaxMessageSize = 64 * 1024
	defaultSendBufferSize = 256
	defaultBurst          = 20
	defaultRefillInterval = time.Second
	defaultLogLevel       = "info"
)

// RateLimitConfig defines the parameters for per-connection message rate limiting.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// Config holds the server configuration settings including security controls.
type Config struct {
	Port           int
	AllowedOrigins []string
	MaxMessageSize int64
	SendBufferSize int
	RateLimit      RateLimitConfig
	LogLevel       string
}

// envConfig mirrors Config in the shape go-env can unmarshal.
type envConfig struct {
	Port              int           `env:"SERVER_PORT,default=8000"`
	AllowedOrigins    string        `env:"ALLOWED_ORIGINS"`
	MaxMessageSize    int           `env:"MAX_MESSAGE_SIZE,default=65536"`
	SendBufferSize    int           `env:"SEND_BUFFER_SIZE,default=256"`
	RateLimitBurst    int           `env:"RATE_LIMIT_BURST,default=20"`
	RateLimitInterval time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL,default=1s"`
	LogLevel          string        `env:"LOG_LEVEL,default=info"`
}

// NewConfig creates a Config instance populated with default values for all settings.
// An empty origin list means only same-origin WebSocket upgrades are accepted.
func NewConfig() *Config {
	return &Config{
		Port:           DefaultPort,
		MaxMessageSize: defaultMaxMessageSize,
		SendBufferSize: defaultSendBufferSize,
		RateLimit: RateLimitConfig{
			Burst:          defaultBurst,
			RefillInterval: defaultRefillInterval,
		},
		LogLevel: defaultLogLevel,
	}
}

// NewConfigFromEnv creates a Config instance from environment variables.
// Unset or non-positive values fall back to defaults.
func NewConfigFromEnv() (*Config, error) {
	var ec envConfig
	if _, err := env.UnmarshalFromEnviron(&ec); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	cfg := &Config{
		Port:           ec.Port,
		AllowedOrigins: parseOrigins(ec.AllowedOrigins),
		MaxMessageSize: int64(ec.MaxMessageSize),
		SendBufferSize: ec.SendBufferSize,
		RateLimit: RateLimitConfig{
			Burst:          ec.RateLimitBurst,
			RefillInterval: ec.RateLimitInterval,
		},
		LogLevel: ec.LogLevel,
	}
	return cfg.sanitize(), nil
}

// Addr returns the listen address for the configured port.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// sanitize replaces unusable values with defaults and returns a copy.
func (c *Config) sanitize() *Config {
	cfg := *c
	cfg.AllowedOrigins = append([]string(nil), c.AllowedOrigins...)

	if cfg.Port <= 0 || cfg.Port > 65535 {
		cfg.Port = DefaultPort
	}

	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaultMaxMessageSize
	}

	if cfg.SendBufferSize <= 0 {
		cfg.SendBufferSize = defaultSendBufferSize
	}

	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = defaultBurst
	}

	if cfg.RateLimit.RefillInterval <= 0 {
		cfg.RateLimit.RefillInterval = defaultRefillInterval
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}

	return &cfg
}

func parseOrigins(origins string) []string {
	parts := lo.Map(strings.Split(origins, ","), func(s string, _ int) string {
		return strings.TrimSpace(s)
	})
	return lo.Compact(parts)
}
