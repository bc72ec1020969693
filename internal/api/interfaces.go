// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/explog-analyzer/explog/internal/batch"
	"github.com/explog-analyzer/explog/internal/cache"
	"github.com/explog-analyzer/explog/internal/locator"
	"github.com/explog-analyzer/explog/internal/models"
	"github.com/explog-analyzer/explog/internal/parser"
	"github.com/explog-analyzer/explog/internal/sampler"
	"github.com/explog-analyzer/explog/internal/store"
)

// LogsHandler handles log discovery and extraction
type LogsHandler interface {
	HandleListLogs(c echo.Context) error
	HandleGetRounds(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
	HandleCache(c echo.Context) error
}

// BatchesHandler serves archived batch runs
type BatchesHandler interface {
	HandleListBatches(c echo.Context) error
	HandleGetBatchLog(c echo.Context) error
}

// Processor extracts and samples a single log file.
// Satisfied by *batch.Runner; allows mocking in tests.
type Processor interface {
	ProcessFile(ctx context.Context, path string, opts sampler.Options) (*batch.Extraction, error)
}

// Finder lists logs in a time range.
type Finder interface {
	FindMatches(start, end string) ([]locator.Match, error)
	Stamp(name string) (time.Time, bool)
}

// Detector reports which parser, if any, understands a file.
type Detector interface {
	FindParser(filePath string) (parser.Parser, error)
}

// CacheStats exposes cache statistics and keys.
type CacheStats interface {
	Stats() cache.Stats
	List() []string
}

// Archive reads back archived batches. Satisfied by *store.Archive.
type Archive interface {
	Batches(ctx context.Context) ([]store.BatchInfo, error)
	Rounds(ctx context.Context, batchID, source string) ([]models.RoundRecord, error)
	Summary(ctx context.Context, batchID, source string) (models.ConfigSummary, error)
}
