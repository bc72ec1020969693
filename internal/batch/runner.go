// Package batch drives extraction over every log in a time range: locate, parse, sample,
// preview, export and archive, one file at a time.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/explog-analyzer/explog/internal/cache"
	"github.com/explog-analyzer/explog/internal/export"
	"github.com/explog-analyzer/explog/internal/metrics"
	"github.com/explog-analyzer/explog/internal/models"
	"github.com/explog-analyzer/explog/internal/parser"
	"github.com/explog-analyzer/explog/internal/sampler"
	"github.com/explog-analyzer/explog/internal/store"
)

// Extractor parses one log file.
type Extractor interface {
	Parse(path string) (*models.ParsedLog, []*models.ParseError, error)
	Options() parser.Options
}

// Locator resolves a time range to log paths.
type Locator interface {
	Find(start, end string) ([]string, error)
}

// Cache stores extraction results between runs.
type Cache interface {
	Key(path string, opts parser.Options) (string, error)
	Get(key string) (*cache.Entry, bool)
	Put(key string, log *models.ParsedLog, warnings []*models.ParseError) error
}

// Archive records batch results.
type Archive interface {
	BeginBatch(ctx context.Context, info store.BatchInfo) error
	Store(ctx context.Context, batchID, source string, summary models.ConfigSummary, records []models.RoundRecord) error
}

// Previewer renders results to a terminal.
type Previewer interface {
	Print(records []models.RoundRecord, summary models.ConfigSummary) error
}

// Runner wires the pipeline. Parser and Locator are required; every other collaborator is
// optional.
type Runner struct {
	Parser    Extractor
	Locator   Locator
	Cache     Cache
	Exporters []export.Writer
	Previewer Previewer
	Archive   Archive
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
	// Out receives user-facing progress lines.
	Out io.Writer
	// OutputDir is created before any file is processed. Failure aborts the batch.
	OutputDir string
}

// Request is one batch invocation.
type Request struct {
	Start   string
	End     string
	Sampler sampler.Options
	Preview bool
}

// FileResult is the outcome for one log file.
type FileResult struct {
	Path     string
	Rounds   int
	Sampled  int
	Outputs  []string
	Warnings []*models.ParseError
	Cached   bool
	Empty    bool
	Err      error
}

// Report summarises a batch. Err aggregates every per-file failure.
type Report struct {
	BatchID uuid.UUID
	Files   []FileResult
	Err     error
}

// Failed returns the results that carry an error.
func (r *Report) Failed() []FileResult {
	out := make([]FileResult, 0)
	for _, f := range r.Files {
		if f.Err != nil {
			out = append(out, f)
		}
	}
	return out
}

// Extraction is the parsed and sampled content of one file.
type Extraction struct {
	Log      *models.ParsedLog
	Warnings []*models.ParseError
	Sampled  []models.RoundRecord
	Cached   bool
}

func (r *Runner) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

func (r *Runner) out() io.Writer {
	if r.Out == nil {
		return io.Discard
	}
	return r.Out
}

// Run processes every log in the request's range. Per-file failures are collected in the
// report; only environment failures and context cancellation return an error.
func (r *Runner) Run(ctx context.Context, req Request) (*Report, error) {
	report := &Report{BatchID: uuid.New(), Files: make([]FileResult, 0)}
	out := r.out()
	log := r.logger().With(zap.String("batch", report.BatchID.String()))

	paths, err := r.Locator.Find(req.Start, req.End)
	if err != nil {
		return report, err
	}
	if len(paths) == 0 {
		fmt.Fprintln(out, "\nNo log files found in the given time range.")
		return report, nil
	}

	if r.OutputDir != "" {
		if err := os.MkdirAll(r.OutputDir, 0755); err != nil {
			return report, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if r.Archive != nil {
		info := store.BatchInfo{
			ID:        report.BatchID.String(),
			StartedAt: time.Now(),
			Start:     req.Start,
			End:       req.End,
			Sampling:  req.Sampler.String(),
		}
		if err := r.Archive.BeginBatch(ctx, info); err != nil {
			return report, err
		}
	}

	fmt.Fprintf(out, "\nFound %d matching log files, processing...\n", len(paths))
	log.Info("batch started", zap.Int("files", len(paths)), zap.Stringer("sampling", req.Sampler))

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		fmt.Fprintf(out, "\n%s\n", strings.Repeat("=", 40))
		fmt.Fprintf(out, "Parsing: %s\n", filepath.Base(path))

		res := r.runFile(ctx, report.BatchID.String(), path, req)
		if res.Err != nil {
			fmt.Fprintf(out, "Error: %v\n", res.Err)
			log.Warn("file failed", zap.String("path", path), zap.Error(res.Err))
			report.Err = multierr.Append(report.Err, res.Err)
		}
		report.Files = append(report.Files, res)
	}

	fmt.Fprintln(out, "\nAll files processed!")
	r.Metrics.BatchDone()
	log.Info("batch finished", zap.Int("files", len(report.Files)), zap.Int("failed", len(report.Failed())))
	return report, nil
}

func (r *Runner) runFile(ctx context.Context, batchID, path string, req Request) FileResult {
	out := r.out()
	res := FileResult{Path: path}

	ext, err := r.ProcessFile(ctx, path, req.Sampler)
	if err != nil {
		res.Err = err
		r.Metrics.FileProcessed(metrics.ResultFailed)
		return res
	}
	res.Warnings = ext.Warnings
	res.Cached = ext.Cached
	res.Rounds = len(ext.Log.Rounds)
	res.Sampled = len(ext.Sampled)

	if ext.Log.Empty() {
		fmt.Fprintln(out, "Could not extract any valid data from this file.")
		res.Empty = true
		r.Metrics.FileProcessed(metrics.ResultEmpty)
		return res
	}
	fmt.Fprintf(out, "Parsed %d rounds.\n", res.Rounds)

	if req.Preview && r.Previewer != nil {
		if err := r.Previewer.Print(ext.Sampled, ext.Log.Summary); err != nil {
			r.logger().Warn("preview failed", zap.String("path", path), zap.Error(err))
		}
	}

	for _, w := range r.Exporters {
		outPath, err := w.Write(ext.Sampled, ext.Log.Summary, path)
		if errors.Is(err, export.ErrNothingToWrite) {
			continue
		}
		if err != nil {
			res.Err = multierr.Append(res.Err, err)
			continue
		}
		res.Outputs = append(res.Outputs, outPath)
		fmt.Fprintf(out, "\nSaved to: %s\n", outPath)
	}

	if r.Archive != nil {
		if err := r.Archive.Store(ctx, batchID, path, ext.Log.Summary, ext.Sampled); err != nil {
			res.Err = multierr.Append(res.Err, fmt.Errorf("archiving %s: %w", path, err))
		}
	}

	if res.Err != nil {
		r.Metrics.FileProcessed(metrics.ResultFailed)
	} else {
		r.Metrics.FileProcessed(metrics.ResultOK)
	}
	return res
}

// ProcessFile extracts path (through the cache when configured) and samples its rounds.
func (r *Runner) ProcessFile(ctx context.Context, path string, opts sampler.Options) (*Extraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = r.logger()
	}

	ext := &Extraction{}
	var key string
	if r.Cache != nil {
		k, err := r.Cache.Key(path, r.Parser.Options())
		if err != nil {
			return nil, err
		}
		key = k
		if entry, ok := r.Cache.Get(key); ok {
			ext.Log, ext.Warnings, ext.Cached = entry.Log, entry.Warnings, true
		}
		r.Metrics.CacheLookup(ext.Cached)
	}

	if ext.Log == nil {
		started := time.Now()
		parsed, warnings, err := r.Parser.Parse(path)
		if err != nil {
			return nil, err
		}
		r.Metrics.Parsed(len(parsed.Rounds), len(warnings), time.Since(started))
		for _, w := range warnings {
			r.logger().Warn("parse warning", zap.String("path", path), zap.Int("line", w.Line), zap.String("reason", w.Reason))
		}
		ext.Log, ext.Warnings = parsed, warnings

		if r.Cache != nil {
			if err := r.Cache.Put(key, parsed, warnings); err != nil {
				r.logger().Warn("failed to cache extraction", zap.String("path", path), zap.Error(err))
			}
		}
	}

	ext.Sampled = sampler.Sample(ext.Log.Rounds, opts)
	return ext, nil
}
