package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/addonhub/addonhub/internal/api"
	"github.com/addonhub/addonhub/internal/config"
	"github.com/addonhub/addonhub/internal/hub"
	"github.com/addonhub/addonhub/internal/telemetry"
	"github.com/addonhub/addonhub/internal/versions"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the add-on hub server",
	Long: `Start the add-on hub server.

The server requires a configuration file (--config) that specifies:
- GitHub API access (token file, base URLs)
- Managed add-on categories
- Sync pacing (gate concurrency, cool-down, refresh intervals)
- Storage and telemetry settings

See examples/ directory for sample configurations.`,
	RunE: runServe,
}

const (
	defaultGracefulTimeout = 30 * time.Second // Container-friendly shutdown time
	serverRequestTimeout   = 60 * time.Second // Gated operations wait for a slot plus cool-down
	serverReadTimeout      = 10 * time.Second // Enough for headers and small requests
	serverWriteTimeout     = 65 * time.Second // Must be > serverRequestTimeout to let middleware handle timeout
	serverIdleTimeout      = 60 * time.Second // Keep connections alive for reuse
)

func init() {
	serveCmd.Flags().String("address", ":8080", "Address to listen on")
	serveCmd.Flags().String("config", "", "Path to configuration file (YAML format, required)")

	if err := viper.BindPFlag("address", serveCmd.Flags().Lookup("address")); err != nil {
		slog.Error("Failed to bind address flag", "error", err)
		os.Exit(1)
	}
	if err := viper.BindPFlag("config", serveCmd.Flags().Lookup("config")); err != nil {
		slog.Error("Failed to bind config flag", "error", err)
		os.Exit(1)
	}

	if err := serveCmd.MarkFlagRequired("config"); err != nil {
		slog.Error("Failed to mark config flag as required", "error", err)
		os.Exit(1)
	}
}

// setupTelemetry creates the meter provider when telemetry is enabled
func setupTelemetry(ctx context.Context, cfg *config.Config) (metric.MeterProvider, error) {
	if cfg.Telemetry == nil || !cfg.Telemetry.Enabled {
		return nil, nil
	}
	return telemetry.NewMeterProvider(ctx,
		telemetry.WithMeterServiceName(telemetry.DefaultServiceName),
		telemetry.WithMeterServiceVersion(versions.GetVersionInfo().Version),
		telemetry.WithMeterEndpoint(cfg.Telemetry.Endpoint),
		telemetry.WithMeterInsecure(cfg.Telemetry.Insecure),
	)
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	address := viper.GetString("address")

	slog.Info("Starting add-on hub server", "address", address)

	configPath := viper.GetString("config")
	cfg, err := config.LoadConfig(config.WithConfigPath(configPath))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	slog.Info("Loaded configuration",
		"path", configPath,
		"hub", cfg.GetHubName(),
		"categories", cfg.Categories)

	meterProvider, err := setupTelemetry(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	metrics, err := telemetry.NewHubMetrics(meterProvider)
	if err != nil {
		return fmt.Errorf("failed to create hub metrics: %w", err)
	}

	h, err := hub.New(cfg, hub.WithMetrics(metrics))
	if err != nil {
		return fmt.Errorf("failed to create hub: %w", err)
	}

	if meterProvider != nil {
		err = telemetry.RegisterGateObserver(meterProvider, int64(h.Gate().Capacity()), func() int64 {
			return int64(h.Gate().InFlight())
		})
		if err != nil {
			return fmt.Errorf("failed to register gate observer: %w", err)
		}
	}

	// Startup and the recurring scheduler run in the background; the API is
	// available immediately and reports startup state via /api/v0/status.
	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	go func() {
		if err := h.Startup(hubCtx); err != nil {
			slog.Error("Hub startup failed", "error", err)
			return
		}
		if err := h.RunScheduler(hubCtx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("Scheduler failed", "error", err)
		}
	}()

	router := api.NewServer(h,
		api.WithMiddlewares(
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(serverRequestTimeout),
			api.LoggingMiddleware,
		),
	)

	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
		IdleTimeout:  serverIdleTimeout,
	}

	go func() {
		slog.Info("Server listening", "address", address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	hubCancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultGracefulTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		return err
	}

	if err := h.WriteSnapshot(); err != nil {
		slog.Error("Failed to write final snapshot", "error", err)
	}

	if sdkProvider, ok := meterProvider.(*sdkmetric.MeterProvider); ok {
		if err := sdkProvider.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shut down meter provider", "error", err)
		}
	}

	slog.Info("Server shutdown complete")
	return nil
}
