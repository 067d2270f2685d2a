// Command blister is the composition-root binary: it wires an
// Application over a bbolt-backed data directory, serves Prometheus
// metrics, and runs until an interrupt or the apply loops exit.
// Grounded on cmd/warren/main.go's cobra root command and flag wiring,
// trimmed to the composition root only -- no per-resource subcommands,
// since those belong to the excluded CLI layer (spec §1).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cuemby/blister/internal/app"
	"github.com/cuemby/blister/pkg/blisterlog"
	"github.com/cuemby/blister/pkg/blistermetrics"
)

var (
	// Version is set via ldflags during build.
	Version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "blister",
	Short:   "blister runs the event-sourced library-management core",
	Version: Version,
	RunE:    run,
}

func init() {
	rootCmd.Flags().String("data-dir", "./data", "directory holding the bbolt event log")
	rootCmd.Flags().String("metrics-addr", ":9090", "address the Prometheus /metrics endpoint listens on")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "output logs in JSON format")

	cobra.OnInitialize(initLogging)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	blisterlog.Init(blisterlog.Config{
		Level:      blisterlog.Level(logLevel),
		JSONOutput: logJSON,
	})
}

func run(cmd *cobra.Command, args []string) error {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

	logger := blisterlog.WithComponent("main")

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir %s: %w", dataDir, err)
	}

	application, err := app.New(dataDir)
	if err != nil {
		return fmt.Errorf("starting application: %w", err)
	}
	defer application.Close()

	mux := http.NewServeMux()
	mux.Handle("/metrics", blistermetrics.Handler())
	metricsServer := &http.Server{Addr: metricsAddr, Handler: mux}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info().Str("addr", metricsAddr).Msg("metrics server listening")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server exited")
		}
	}()

	appErrCh := make(chan error, 1)
	go func() { appErrCh <- application.Start(ctx) }()

	select {
	case <-sigCh:
		logger.Info().Msg("received interrupt, shutting down")
		cancel()
	case err := <-appErrCh:
		if err != nil {
			logger.Error().Err(err).Msg("application loops exited with error")
		}
		cancel()
		_ = metricsServer.Close()
		return err
	}

	<-appErrCh
	_ = metricsServer.Close()
	logger.Info().Msg("shutdown complete")
	return nil
}
