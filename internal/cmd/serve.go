package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/botguard/botguard/internal/config"
	"github.com/botguard/botguard/internal/core/metrics"
	"github.com/botguard/botguard/internal/observability"
	"github.com/botguard/botguard/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP observability surface",
	Long: `Start the HTTP observability surface with graceful shutdown support.

Endpoints:
  GET /healthz  liveness probe
  GET /metrics  current metrics snapshot (JSON)

SIGINT or SIGTERM begins a graceful shutdown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		observability.InitServerLogger(config.AppName, cfg.Logging.Level)
		logger := observability.ServerLogger

		collector := metrics.NewCollector(cfg.Metrics.Window)

		srv := server.New(cfg.Server, collector, versionInfo.Version)

		errCh := make(chan error, 1)
		go func() {
			logger.Info("Starting HTTP server",
				zap.String("host", cfg.Server.Host),
				zap.Int("port", cfg.Server.Port),
			)
			errCh <- srv.Start()
		}()

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case sig := <-stop:
			logger.Info("Shutting down", zap.String("signal", sig.String()))
		}

		shutdownTimeout := cfg.Server.ShutdownTimeout
		if shutdownTimeout <= 0 {
			shutdownTimeout = 10 * time.Second
		}
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Graceful shutdown failed", zap.Error(err))
			return err
		}

		// Flush a final snapshot so the run leaves a trace in the log.
		if err := collector.WriteSnapshot(cfg.Metrics.SnapshotPath); err != nil {
			logger.Warn("Failed to write final metrics snapshot", zap.Error(err))
		}

		logger.Info("Server stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
