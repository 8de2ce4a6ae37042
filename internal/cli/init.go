// Package cli holds the start-up steps shared by cmd/finance,
// cmd/finance-worker and cmd/financectl.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"finance/internal/advice"
	"finance/internal/advice/gemini"
	"finance/internal/backend"
	"finance/internal/cache"
	"finance/internal/config"
	applog "finance/internal/log"
)

// adviceCacheSize bounds the number of distinct prompts kept.
const adviceCacheSize = 32

// newGenerator is replaced in tests.
var newGenerator = func(ctx context.Context, cfg gemini.Config) (advice.Generator, error) {
	return gemini.New(ctx, cfg)
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger at the given level and makes it
// the slog default.
func SetupLogger(level string) *applog.Logger {
	cfg := applog.DefaultConfig()
	cfg.Level = applog.ParseLevel(level)
	logger := applog.New(cfg)
	applog.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and runs the given checks.
// It exits the process when any check fails.
func LoadAndValidateConfig(logger *applog.Logger, checks ...func(*config.Config) error) *config.Config {
	cfg := config.Load()
	for _, check := range checks {
		if err := check(cfg); err != nil {
			logger.Error("Configuration validation failed", applog.FieldError, err)
			os.Exit(1)
		}
	}
	return cfg
}

// OpenBackend opens the configured blob store or exits.
func OpenBackend(ctx context.Context, logger *applog.Logger, cfg *config.Config) *backend.BackendResult {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err, applog.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to open backend", applog.FieldError, err, applog.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	return res
}

// NewAdviceRequester builds the requester. Without an API key it answers
// every request with the configuration hint. When manager is not nil the
// reply cache is registered with it for expiry sweeps.
func NewAdviceRequester(ctx context.Context, logger *applog.Logger, cfg *config.Config, manager *cache.Manager) *advice.Requester {
	if !cfg.AdviceEnabled() {
		logger.Info("Advice disabled, no API_KEY configured")
		return advice.NewRequester(nil, logger)
	}

	client, err := newGenerator(ctx, gemini.Config{
		APIKey:  cfg.APIKey,
		Model:   cfg.AdviceModel,
		Timeout: cfg.AdviceTimeout,
	})
	if err != nil {
		// The key is set, so requests answer with the error text rather
		// than the missing key hint.
		logger.Error("Failed to create advice client", applog.FieldError, err)
		return advice.NewRequester(advice.Unavailable(err), logger)
	}

	replies := cache.NewLRUCache[string](adviceCacheSize, cfg.AdviceCacheTTL)
	if manager != nil {
		manager.Register(replies)
	}
	logger.Info("Advice enabled", "model", cfg.AdviceModel, "cache_ttl", cfg.AdviceCacheTTL.String())
	return advice.NewRequester(client, logger, advice.WithCache(replies))
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
			return
		}
		logger.Info("Shutdown complete")
	}()

	return ctx, done
}
