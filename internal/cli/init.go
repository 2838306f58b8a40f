// Package cli provides common CLI initialization utilities shared by
// cmd/bountytracker, cmd/alert-worker and cmd/sync-worker.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"bountytracker/internal/amqp"
	"bountytracker/internal/backend"
	"bountytracker/internal/config"
	applog "bountytracker/internal/log"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on failure.
func LoadAndValidateConfig() *config.Config {
	bootstrap := applog.New(applog.DefaultConfig())

	cfg, err := config.Load()
	if err != nil {
		bootstrap.Error("Failed to load configuration", applog.FieldError, err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		bootstrap.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default. An unknown level falls back to info.
func SetupLogger(cfg *config.Config, component string) *applog.Logger {
	level, levelErr := applog.ParseLevel(cfg.LogLevel)

	logger := applog.New(applog.Config{
		Level:     level,
		Format:    cfg.LogFormat,
		Component: component,
	})
	applog.SetDefault(logger)

	if levelErr != nil {
		logger.Warn("Unknown log level, using info", applog.FieldError, levelErr)
	}
	return logger
}

// OpenStore creates the sale store selected by DATA_BACKEND. The returned
// result's Cleanup may be nil.
func OpenStore(ctx context.Context, cfg *config.Config, logger *applog.Logger) (*backend.BackendResult, error) {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	factory := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger)
	return factory.CreateBackend(ctx, bc)
}

// CloseStore runs the backend cleanup, logging any error.
func CloseStore(res *backend.BackendResult, logger *applog.Logger) {
	if res == nil || res.Cleanup == nil {
		return
	}
	if err := res.Cleanup(); err != nil {
		logger.Error("Failed to close store", applog.FieldError, err)
	}
}

// ConnectAMQP dials the broker when AMQP_URL is set. It returns a nil client
// and no error when AMQP is not configured.
func ConnectAMQP(cfg *config.Config, logger *applog.Logger) (*amqp.Client, error) {
	if cfg.AMQPURL == "" {
		logger.Info("AMQP disabled - no AMQP_URL provided")
		return nil, nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return nil, fmt.Errorf("connect to AMQP: %w", err)
	}
	logger.Info("AMQP client connected",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue)
	return client, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
