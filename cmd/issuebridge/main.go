// Package main is the entry point for the issuebridge binary.
// It provides a CLI for starting the Jira compatibility proxy.
package main

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

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/issuebridge/issuebridge/pkg/auth"
	"github.com/issuebridge/issuebridge/pkg/config"
	"github.com/issuebridge/issuebridge/pkg/logging"
	"github.com/issuebridge/issuebridge/pkg/proxy"
	"github.com/issuebridge/issuebridge/pkg/telemetry"
	"github.com/issuebridge/issuebridge/pkg/transport"
	"github.com/issuebridge/issuebridge/pkg/upstream"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd creates the root command for issuebridge
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "issuebridge",
		Short: "Jira compatibility proxy for IDE task-tracker integrations",
		Long: `A protocol-translating proxy between an IDE task-tracker integration
and a remote Jira instance.

The proxy resolves credentials per request or through a configured service
account, maps the legacy REST dialects onto the upstream API, and forwards
each call exactly once within a bounded timeout.

Example:
  issuebridge --config config.yaml --listen :8000`,
		RunE: runProxy,
	}

	rootCmd.Flags().StringP("config", "c", "", "Path to configuration file (YAML)")
	rootCmd.Flags().String("listen", "", "Listen address override (e.g. :8000)")
	rootCmd.Flags().StringP("log-level", "l", "", "Log level override (debug, info, warn, error)")

	return rootCmd
}

// loadConfig builds the effective configuration: .env, YAML file, environment
// overrides, then CLI flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	// Best-effort .env loading; absence is not an error.
	_ = godotenv.Load()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.Server.ListenAddress = listen
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}

	return cfg, nil
}

// runProxy is the main entry point for the proxy command
func runProxy(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Pretty: cfg.Logging.Pretty,
	})
	slog.SetDefault(logger)
	accessLogger := logging.NewAccessLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Pretty: cfg.Logging.Pretty,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTelemetry, err := telemetry.SetupProvider(ctx, telemetry.Config{
		ServiceName: transport.ServiceName,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Insecure:    cfg.Telemetry.Insecure,
	})
	if err != nil {
		logger.Error("Failed to set up telemetry", "error", err)
		return err
	}

	client, err := upstream.NewClient(cfg.Jira.BaseURL, cfg.Jira.Timeout(), logger)
	if err != nil {
		return err
	}

	metrics := proxy.NewMetrics()
	core := proxy.NewCore(proxy.Config{
		ServiceCredentials: auth.ServiceCredentials{
			Username: cfg.Jira.ServiceUsername,
			APIToken: cfg.Jira.ServiceAPIToken,
		},
		Forwarder: client,
		Metrics:   metrics,
		Logger:    logger,
	})

	server := transport.NewServer(transport.ServerConfig{
		Pipeline:       core,
		MetricsHandler: metrics.Handler(),
		AccessLogger:   accessLogger,
		Logger:         logger,
		AllowOrigins:   cfg.Security.AllowOrigins,
	})

	httpServer := &http.Server{
		Addr:              cfg.Server.ListenAddress,
		Handler:           otelhttp.NewHandler(server.Handler(), "issuebridge"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Starting issuebridge",
		"listen", cfg.Server.ListenAddress,
		"upstream", cfg.Jira.BaseURL,
		"service_account", cfg.Jira.ServiceAccountConfigured(),
		"timeout", cfg.Jira.Timeout().String(),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			return err
		}
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error during shutdown", "error", err)
		}
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Error("Error shutting down telemetry", "error", err)
		}
	}

	logger.Info("Proxy stopped")
	return nil
}
