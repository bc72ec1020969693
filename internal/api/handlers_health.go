// handlers_health.go - Health check handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version string
	logDir  string
	cache   CacheStats
}

// NewHealthHandler creates a new health handler. cache may be nil.
func NewHealthHandler(version, logDir string, cache CacheStats) HealthHandler {
	return &HealthHandlerImpl{
		version: version,
		logDir:  logDir,
		cache:   cache,
	}
}

// HandleHealth returns server health status
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	resp := map[string]interface{}{
		"status":  "ok",
		"version": h.version,
		"logDir":  h.logDir,
	}
	if h.cache != nil {
		resp["cache"] = h.cache.Stats()
	}
	return c.JSON(http.StatusOK, resp)
}

// HandleCache lists the cached extraction keys with the cache statistics
func (h *HealthHandlerImpl) HandleCache(c echo.Context) error {
	if h.cache == nil {
		return NewServiceUnavailableError("extraction cache is disabled")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"stats": h.cache.Stats(),
		"keys":  h.cache.List(),
	})
}
