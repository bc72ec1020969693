// Package main implements the explog CLI: interactive metric extraction from experiment logs
// and a read-only HTTP server over the same pipeline.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/explog-analyzer/explog/internal/config"
	"github.com/explog-analyzer/explog/internal/locator"
	"github.com/explog-analyzer/explog/internal/logging"
	"github.com/explog-analyzer/explog/internal/models"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

var (
	// configPath is the YAML configuration file, created with defaults if missing
	configPath string
	// logLevel overrides logging.level when set
	logLevel string

	flags runFlags
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "explog",
	Short: "Extract per-round metrics from ML experiment logs",
	Long: `explog finds experiment logs by the timestamp in their file name, extracts the
configuration summary and per-round metrics, optionally samples the rounds, and writes
one summary file per log.

Any prompt can be answered ahead of time with a flag.

Examples:
  # Answer every question interactively
  explog

  # Sample ten rounds up to round 100 from one hour of logs
  explog --start 2025-03-01-10-00 --end 2025-03-01-11-00 --mode sampled --max-round 100 --samples 10 --preview=false`,
	Version:      Version,
	SilenceUsage: true,
	RunE:         runExtract,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "explog.yaml", "configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")

	rootCmd.Flags().StringVar(&flags.start, "start", "", "range start, YYYY-MM-DD-HH-MM")
	rootCmd.Flags().StringVar(&flags.end, "end", "", "range end, YYYY-MM-DD-HH-MM (defaults to start)")
	rootCmd.Flags().StringVar(&flags.mode, "mode", "", "extraction mode: all or sampled")
	rootCmd.Flags().IntVar(&flags.maxRound, "max-round", 0, "highest round to keep in sampled mode")
	rootCmd.Flags().IntVar(&flags.samples, "samples", 10, "number of rounds to keep in sampled mode")
	rootCmd.Flags().BoolVar(&flags.preview, "preview", false, "print a preview of each result")

	rootCmd.AddCommand(serveCmd)
}

// loadConfig loads the configuration and builds the logger.
func loadConfig() (*config.AppConfig, *zap.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
		if err := cfg.Logging.Validate(); err != nil {
			return nil, nil, err
		}
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return cfg, logger, nil
}

// runExtract handles the root command
func runExtract(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	req, err := collectRequest(newPrompter(cmd.InOrStdin(), out), flags, cmd.Flags().Changed)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, logger, out)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	report, err := a.runner.Run(ctx, req)
	if err != nil {
		if !isRangeDiagnostic(err) {
			return err
		}
		// a bad range or missing log directory finds no files
		fmt.Fprintf(out, "\nError: %v\n", err)
		fmt.Fprintln(out, "No log files found in the given time range.")
		return nil
	}
	if failed := report.Failed(); len(failed) > 0 {
		fmt.Fprintf(out, "\n%d of %d files failed.\n", len(failed), len(report.Files))
	}
	return nil
}

// isRangeDiagnostic reports errors that mean the range matched nothing rather than that the
// environment is broken.
func isRangeDiagnostic(err error) bool {
	var formatErr *models.InputFormatError
	var dirErr *locator.DirError
	return errors.As(err, &formatErr) || errors.As(err, &dirErr)
}
