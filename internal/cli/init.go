// Package cli provides common CLI initialization utilities shared by
// cmd/finpocket and cmd/finpocket-term.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"finpocket/internal/amqp"
	"finpocket/internal/config"
	"finpocket/internal/ledger"
	"finpocket/internal/ledger/memory"
	"finpocket/internal/log"
)

// SetupLogger builds the process logger writing text records to out and
// installs it as the slog default.
func SetupLogger(level string, out io.Writer) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(level)
	cfg.Output = out
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// BuildLedger returns the ledger selected by cfg.
func BuildLedger(cfg *config.Config, logger *log.Logger) (ledger.Service, error) {
	switch cfg.LedgerBackend {
	case config.BackendMemory:
		store, err := memory.NewFromFile(cfg.DemoUsername, cfg.DemoPassword, cfg.DemoSeedFile)
		if err != nil {
			return nil, fmt.Errorf("seed memory ledger: %w", err)
		}
		logger.Info("Using in-memory ledger",
			log.FieldBackend, config.BackendMemory,
			log.FieldUsername, cfg.DemoUsername)
		return store, nil
	case config.BackendRemote:
		client, err := ledger.NewClient(cfg.LedgerEndpoint,
			ledger.WithTimeout(cfg.LedgerTimeout),
			ledger.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		// The endpoint may carry a deployment key, so only the host is logged.
		logger.Info("Using remote ledger",
			log.FieldBackend, config.BackendRemote,
			log.FieldEndpoint, endpointHost(cfg.LedgerEndpoint))
		return client, nil
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.LedgerBackend)
	}
}

// BuildPublisher connects the activity publisher when AMQP is configured.
// It returns nil without error when it is not. A broker that cannot be
// reached is logged and publishing is disabled, so the front-end still runs.
func BuildPublisher(ctx context.Context, cfg *config.Config, logger *log.Logger) *amqp.Client {
	if !cfg.AMQPEnabled() {
		logger.Info("AMQP not configured, activity publishing disabled")
		return nil
	}
	client, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey, logger)
	if err != nil {
		logger.Warn("AMQP unavailable, activity publishing disabled",
			log.FieldError, err.Error(),
			log.FieldErrorType, log.ErrorTypeNetwork)
		return nil
	}
	logger.Info("AMQP connected", "exchange", cfg.AMQPExchange, "routing_key", cfg.AMQPRoutingKey)
	return client
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
