// Package cli provides common initialization utilities shared by
// cmd/fintrack and cmd/fintrack-server.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fintrack/internal/backend"
	"fintrack/internal/config"
	"fintrack/internal/forecast"
	applog "fintrack/internal/log"
	"fintrack/internal/services"

	"github.com/joho/godotenv"
)

// SetupLogger initializes structured logging from LOG_LEVEL and LOG_FORMAT values.
// Returns the configured logger and sets it as the default logger.
func SetupLogger(level, format string) *applog.Logger {
	cfg := applog.DefaultConfig()
	cfg.Level = applog.ParseLevel(level)
	cfg.Format = format
	logger := applog.New(cfg)
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *slog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// InitBackend creates the configured ledger backend.
// Returns the backend or exits the process on failure.
func InitBackend(ctx context.Context, logger *slog.Logger, cfg *config.Config) *backend.BackendResult {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize ledger backend", "error", err, "backend", cfg.LedgerBackend)
		os.Exit(1)
	}
	return result
}

// ForecastSettings maps the forecasting configuration onto the service settings.
func ForecastSettings(cfg *config.Config) services.ForecastSettings {
	return services.ForecastSettings{
		Options: forecast.Options{
			Degree:     cfg.ForecastDegree,
			Confidence: cfg.ForecastConfidence,
		},
		FlatFallback:   cfg.ForecastFlatFallback,
		DefaultHorizon: cfg.ForecastDefaultHorizon,
		DefaultWindow:  cfg.BacktestDefaultWindow,
	}
}

// NewServices wires the ledger and forecast services over one backend.
func NewServices(cfg *config.Config, res *backend.BackendResult, logger *applog.Logger) (*services.LedgerService, *services.ForecastService) {
	var publisher services.ChangePublisher
	if res.Publisher != nil {
		publisher = res.Publisher
	}
	ledgerSvc := services.NewLedgerService(res.Store, cfg.HomeCurrency, publisher, logger)
	forecastSvc := services.NewForecastService(res.Store, ForecastSettings(cfg), logger)
	return ledgerSvc, forecastSvc
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *slog.Logger, timeout time.Duration, cleanup func()) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			cleanup()
		}

		cancel()

		select {
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		case <-time.After(2 * time.Second):
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
