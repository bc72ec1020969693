package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/explog-analyzer/explog/internal/api"
)

// serveCmd runs the HTTP API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve extraction results over HTTP",
	Long: `Start a read-only HTTP server over the configured log directory.

Endpoints:
  GET /api/health
  GET /api/cache
  GET /api/logs?start=YYYY-MM-DD-HH-MM&end=YYYY-MM-DD-HH-MM
  GET /api/logs/:name/rounds?mode=all|sampled&samples=N&max_round=N
  GET /api/batches
  GET /api/batches/:id/logs/:name
  GET /metrics`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(cfg, logger, io.Discard)
	if err != nil {
		return err
	}
	defer a.Close()

	deps := &api.Dependencies{
		Finder:         a.locator,
		Detector:       a.registry,
		Processor:      a.runner,
		Metrics:        a.metrics,
		Logger:         logger,
		LogDir:         cfg.Logs.Directory,
		Version:        Version,
		RequestLogging: cfg.Server.EnableRequestLogging,
		Timeout:        time.Duration(cfg.Server.ReadTimeout) * time.Second,
	}
	if a.cache != nil {
		deps.Cache = a.cache
	}
	if a.archive != nil {
		deps.Archive = a.archive
	}
	e := api.NewServer(deps)

	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		Handler:      e,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	printBanner(cmd.OutOrStdout(), cfg.GetServerAddr(), cfg.Logs.Directory)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		if err := s.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown incomplete", zap.Error(err))
			return err
		}
		return nil
	}
}

func printBanner(w io.Writer, addr, logDir string) {
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Fprintf(w, "║           Experiment Log Extractor Server                 ║\n")
	fmt.Fprintf(w, "╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║  Version:    %-45s║\n", Version)
	fmt.Fprintf(w, "║  Build Time: %-45s║\n", BuildTime)
	fmt.Fprintf(w, "╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║  Config:    %-46s║\n", configPath)
	fmt.Fprintf(w, "║  Listen:    http://%-38s║\n", addr)
	fmt.Fprintf(w, "║  Logs Dir:  %-46s║\n", logDir)
	fmt.Fprintf(w, "╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Fprintf(w, "\n")
}
