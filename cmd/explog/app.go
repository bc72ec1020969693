package main

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/explog-analyzer/explog/internal/batch"
	"github.com/explog-analyzer/explog/internal/cache"
	"github.com/explog-analyzer/explog/internal/config"
	"github.com/explog-analyzer/explog/internal/export"
	"github.com/explog-analyzer/explog/internal/locator"
	"github.com/explog-analyzer/explog/internal/metrics"
	"github.com/explog-analyzer/explog/internal/parser"
	"github.com/explog-analyzer/explog/internal/preview"
	"github.com/explog-analyzer/explog/internal/store"
)

// app holds every component built from one configuration.
type app struct {
	cfg      *config.AppConfig
	logger   *zap.Logger
	metrics  *metrics.Metrics
	parser   *parser.ExperimentParser
	registry *parser.Registry
	locator  *locator.Locator
	cache    *cache.Cache
	archive  *store.Archive
	runner   *batch.Runner
}

func newApp(cfg *config.AppConfig, logger *zap.Logger, out io.Writer) (*app, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	opts := cfg.ParserOptions()
	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.New(),
		parser:  parser.NewExperimentParser(opts).WithLogger(logger),
		locator: locator.New(cfg.Logs.Directory, cfg.Logs.Extensions...),
	}
	a.registry = parser.NewRegistry(a.parser)

	exporters, err := buildExporters(cfg.Output.Formats, cfg.Output.Directory, opts.ConfigKeys)
	if err != nil {
		return nil, err
	}

	a.runner = &batch.Runner{
		Parser:    a.parser,
		Locator:   a.locator,
		Exporters: exporters,
		Previewer: preview.NewPrinter(out, opts.ConfigKeys),
		Logger:    logger,
		Metrics:   a.metrics,
		Out:       out,
		OutputDir: cfg.Output.Directory,
	}

	if cfg.Output.CacheDir != "" {
		c, err := cache.New(cfg.Output.CacheDir, logger)
		if err != nil {
			return nil, err
		}
		a.cache = c
		a.runner.Cache = c
	}

	if cfg.Output.ArchivePath != "" {
		archive, err := store.Open(cfg.Output.ArchivePath, logger)
		if err != nil {
			return nil, err
		}
		a.archive = archive
		a.runner.Archive = archive
	}
	return a, nil
}

func buildExporters(formats []string, dir string, configKeys []string) ([]export.Writer, error) {
	writers := make([]export.Writer, 0, len(formats))
	for _, f := range formats {
		switch f {
		case "csv":
			writers = append(writers, export.NewCSVWriter(dir, configKeys))
		case "json":
			writers = append(writers, export.NewJSONWriter(dir))
		default:
			return nil, fmt.Errorf("unsupported output format %q", f)
		}
	}
	return writers, nil
}

func (a *app) Close() error {
	// stderr cannot be synced on every platform
	_ = a.logger.Sync()
	if a.archive != nil {
		return a.archive.Close()
	}
	return nil
}
