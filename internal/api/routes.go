// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/explog-analyzer/explog/internal/metrics"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Finder    Finder
	Detector  Detector
	Processor Processor
	Cache     CacheStats
	Archive   Archive
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
	LogDir    string
	Version   string

	// RequestLogging logs every request except health and metrics scrapes.
	RequestLogging bool
	// Timeout bounds each request. Zero disables the timeout middleware.
	Timeout time.Duration
	// Verbose exposes unexpected error messages to clients.
	Verbose bool
}

// Handlers holds all handler instances. Batches is nil when no archive is configured.
type Handlers struct {
	Health  HealthHandler
	Logs    LogsHandler
	Batches BatchesHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	h := &Handlers{
		Health: NewHealthHandler(deps.Version, deps.LogDir, deps.Cache),
		Logs:   NewLogsHandler(deps.Finder, deps.Detector, deps.Processor, deps.LogDir),
	}
	if deps.Archive != nil {
		h.Batches = NewBatchesHandler(deps.Archive, deps.LogDir)
	}
	return h
}

// RegisterRoutes registers all API routes with the Echo instance. m may be nil.
func RegisterRoutes(e *echo.Echo, handlers *Handlers, m *metrics.Metrics) {
	apiGroup := e.Group("/api")
	apiGroup.GET("/health", handlers.Health.HandleHealth)
	apiGroup.GET("/cache", handlers.Health.HandleCache)

	logsGroup := apiGroup.Group("/logs")
	logsGroup.GET("", handlers.Logs.HandleListLogs)
	logsGroup.GET("/:name/rounds", handlers.Logs.HandleGetRounds)

	if handlers.Batches != nil {
		batchesGroup := apiGroup.Group("/batches")
		batchesGroup.GET("", handlers.Batches.HandleListBatches)
		batchesGroup.GET("/:id/logs/:name", handlers.Batches.HandleGetBatchLog)
	}

	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, deps *Dependencies) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("http")

	e.HTTPErrorHandler = ErrorHandler(deps.Verbose)
	e.JSONSerializer = jsonSerializer{}

	if deps.RequestLogging {
		e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
			Skipper: func(c echo.Context) bool {
				path := c.Request().URL.Path
				return path == "/api/health" || path == "/metrics"
			},
			LogMethod:  true,
			LogURI:     true,
			LogStatus:  true,
			LogLatency: true,
			LogError:   true,
			LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
				fields := []zap.Field{
					zap.String("method", v.Method),
					zap.String("uri", v.URI),
					zap.Int("status", v.Status),
					zap.Duration("latency", v.Latency),
				}
				if v.Error != nil {
					logger.Warn("request failed", append(fields, zap.Error(v.Error))...)
					return nil
				}
				logger.Info("request", fields...)
				return nil
			},
		}))
	}

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error("panic recovered", zap.Error(err), zap.ByteString("stack", stack))
			return err
		},
	}))

	if deps.Timeout > 0 {
		e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
			Timeout:      deps.Timeout,
			ErrorMessage: "Request timeout - extraction took too long",
			Skipper: func(c echo.Context) bool {
				return c.Request().URL.Path == "/metrics"
			},
		}))
	}

	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Skipper: func(c echo.Context) bool {
			return strings.Contains(c.Request().Header.Get(echo.HeaderAccept), mimeMsgpack)
		},
	}))
}

// NewServer builds an Echo instance with middleware and routes wired.
func NewServer(deps *Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	SetupMiddleware(e, deps)
	RegisterRoutes(e, NewHandlers(deps), deps.Metrics)
	return e
}

// jsonSerializer encodes responses with goccy/go-json.
type jsonSerializer struct{}

func (jsonSerializer) Serialize(c echo.Context, i interface{}, indent string) error {
	enc := json.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (jsonSerializer) Deserialize(c echo.Context, i interface{}) error {
	if err := json.NewDecoder(c.Request().Body).Decode(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err)).SetInternal(err)
	}
	return nil
}
