// Package cli provides the initialization steps shared by the budgetbee
// subcommands.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"budgetbee/internal/config"
	"budgetbee/internal/log"
	"budgetbee/internal/storage"
)

// LoadEnvFile loads a .env file for local development. A missing default
// file is fine; an explicitly named one must exist.
func LoadEnvFile(path string) error {
	if path == "" {
		_ = godotenv.Load()
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// SetupLogger builds the process logger from configuration and installs it
// as the slog default.
func SetupLogger(cfg *config.Config, component string) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: component,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)
	return logger
}

// LoadConfig loads and validates configuration. The server needs a few more
// settings than the other commands.
func LoadConfig(path string, server bool) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	validate := cfg.Validate
	if server {
		validate = cfg.ValidateServer
	}
	if err := validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// OpenRepository opens the database, applying pending migrations.
func OpenRepository(ctx context.Context, logger *log.Logger, dbPath string) (*storage.SQLiteRepository, error) {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", dbPath, err)
	}
	if v, dirty, err := storage.MigrationVersion(dbPath); err == nil {
		logger.InfoContext(ctx, "Database ready", "path", dbPath, "schema_version", v, "dirty", dirty)
	}
	return repo, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context, logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		if parent.Err() == nil {
			logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)
		}
	}()
	return ctx, cancel
}
