// handlers_batches.go - Archived batch handlers
package api

import (
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/explog-analyzer/explog/internal/models"
)

// BatchesHandlerImpl implements the BatchesHandler interface
type BatchesHandlerImpl struct {
	archive Archive
	logDir  string
}

// NewBatchesHandler creates a handler over the run archive. Archived sources are keyed by
// their path under logDir.
func NewBatchesHandler(archive Archive, logDir string) BatchesHandler {
	return &BatchesHandlerImpl{
		archive: archive,
		logDir:  logDir,
	}
}

type batchInfo struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"startedAt"`
	Start     string    `json:"start"`
	End       string    `json:"end"`
	Sampling  string    `json:"sampling"`
}

// HandleListBatches lists archived runs, newest first.
func (h *BatchesHandlerImpl) HandleListBatches(c echo.Context) error {
	batches, err := h.archive.Batches(c.Request().Context())
	if err != nil {
		return NewInternalError("failed to read archive", err)
	}

	out := make([]batchInfo, 0, len(batches))
	for _, b := range batches {
		out = append(out, batchInfo{
			ID:        b.ID,
			StartedAt: b.StartedAt,
			Start:     b.Start,
			End:       b.End,
			Sampling:  b.Sampling,
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"batches": out,
		"count":   len(out),
	})
}

type batchLogResponse struct {
	Batch   string               `json:"batch"`
	Source  string               `json:"source"`
	Summary models.ConfigSummary `json:"summary"`
	Rounds  []models.RoundRecord `json:"rounds"`
}

// HandleGetBatchLog returns the archived summary and rounds of one log within a run.
func (h *BatchesHandlerImpl) HandleGetBatchLog(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}
	name := c.Param("name")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return NewValidationError("name")
	}

	ctx := c.Request().Context()
	source := filepath.Join(h.logDir, name)
	summary, err := h.archive.Summary(ctx, id, source)
	if err != nil {
		return NewInternalError("failed to read archive", err)
	}
	rounds, err := h.archive.Rounds(ctx, id, source)
	if err != nil {
		return NewInternalError("failed to read archive", err)
	}
	if len(summary) == 0 && len(rounds) == 0 {
		return NewNotFoundError("archived log", id+"/"+name)
	}

	return c.JSON(http.StatusOK, batchLogResponse{
		Batch:   id,
		Source:  name,
		Summary: summary,
		Rounds:  rounds,
	})
}
