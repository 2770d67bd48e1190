package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v8"
)

// Ledger backends.
const (
	BackendRemote = "remote"
	BackendMemory = "memory"
)

type Config struct {
	// HTTP Server. The default host keeps the UI on loopback; set HOST to
	// 0.0.0.0 to expose it.
	Host string `env:"HOST" envDefault:"127.0.0.1"`
	Port string `env:"PORT" envDefault:"8081"`

	// Ledger
	LedgerBackend  string        `env:"LEDGER_BACKEND" envDefault:"remote"`
	LedgerEndpoint string        `env:"LEDGER_ENDPOINT"`
	LedgerTimeout  time.Duration `env:"LEDGER_TIMEOUT" envDefault:"0s"`

	// Memory backend seed
	DemoUsername string `env:"DEMO_USERNAME" envDefault:"demo"`
	DemoPassword string `env:"DEMO_PASSWORD" envDefault:"demo"`
	DemoSeedFile string `env:"DEMO_SEED_FILE"`

	// AMQP (optional)
	AMQPURL        string `env:"AMQP_URL"`
	AMQPExchange   string `env:"AMQP_EXCHANGE" envDefault:"finpocket"`
	AMQPRoutingKey string `env:"AMQP_ROUTING_KEY" envDefault:"ledger_activity"`

	RateLimitPerMinute int    `env:"RATE_LIMIT_PER_MINUTE" envDefault:"60"`
	LogLevel           string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// LoadFrom reads the configuration from environ instead of the process
// environment. Unset keys take their defaults.
func LoadFrom(environ map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate ledger backend
	switch c.LedgerBackend {
	case BackendRemote:
		if c.LedgerEndpoint == "" {
			errors = append(errors, "LEDGER_ENDPOINT is required when using the remote backend")
		} else if u, err := url.Parse(c.LedgerEndpoint); err != nil {
			errors = append(errors, fmt.Sprintf("invalid ledger endpoint '%s': %v", c.LedgerEndpoint, err))
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid ledger endpoint scheme '%s': must be 'http' or 'https'", u.Scheme))
		} else if u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid ledger endpoint '%s': missing host", c.LedgerEndpoint))
		}
	case BackendMemory:
		if c.DemoUsername == "" {
			errors = append(errors, "DEMO_USERNAME cannot be empty when using the memory backend")
		}
		if c.DemoSeedFile != "" {
			if _, err := os.Stat(c.DemoSeedFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("demo seed file does not exist: %s", c.DemoSeedFile))
			}
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid ledger backend '%s': must be one of [%s %s]", c.LedgerBackend, BackendRemote, BackendMemory))
	}

	if c.LedgerTimeout < 0 {
		errors = append(errors, fmt.Sprintf("invalid ledger timeout %v: must not be negative", c.LedgerTimeout))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPRoutingKey == "" {
			errors = append(errors, "AMQP routing key cannot be empty when AMQP URL is provided")
		}
	}

	if c.RateLimitPerMinute < 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must not be negative", c.RateLimitPerMinute))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of [debug info warn error]", c.LogLevel))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// AMQPEnabled reports whether activity publishing is configured.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}
