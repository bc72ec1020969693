// handlers_logs.go - Log discovery and round extraction handlers
package api

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/explog-analyzer/explog/internal/models"
	"github.com/explog-analyzer/explog/internal/sampler"
)

const mimeMsgpack = "application/msgpack"

// LogsHandlerImpl implements the LogsHandler interface
type LogsHandlerImpl struct {
	finder    Finder
	detector  Detector
	processor Processor
	logDir    string
}

// NewLogsHandler creates a new logs handler. detector may be nil to skip content sniffing.
func NewLogsHandler(finder Finder, detector Detector, processor Processor, logDir string) LogsHandler {
	return &LogsHandlerImpl{
		finder:    finder,
		detector:  detector,
		processor: processor,
		logDir:    logDir,
	}
}

type logInfo struct {
	Name      string    `json:"name"`
	Timestamp time.Time `json:"timestamp"`
	Size      int64     `json:"size"`
}

// HandleListLogs lists logs stamped within ?start=&end= (YYYY-MM-DD-HH-MM).
func (h *LogsHandlerImpl) HandleListLogs(c echo.Context) error {
	start := c.QueryParam("start")
	if start == "" {
		return NewValidationError("start")
	}

	matches, err := h.finder.FindMatches(start, c.QueryParam("end"))
	if err != nil {
		var formatErr *models.InputFormatError
		if errors.As(err, &formatErr) {
			return NewBadRequestError(formatErr.Error(), nil)
		}
		return NewServiceUnavailableError("log directory is not readable")
	}

	logs := make([]logInfo, 0, len(matches))
	for _, m := range matches {
		info := logInfo{Name: filepath.Base(m.Path), Timestamp: m.Time}
		if st, err := os.Stat(m.Path); err == nil {
			info.Size = st.Size()
		}
		logs = append(logs, info)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"logs":  logs,
		"count": len(logs),
	})
}

type warningInfo struct {
	Line   int    `json:"line" msgpack:"line"`
	Reason string `json:"reason" msgpack:"reason"`
}

type roundsResponse struct {
	Source      string               `json:"source" msgpack:"source"`
	Summary     models.ConfigSummary `json:"summary" msgpack:"summary"`
	Rounds      []models.RoundRecord `json:"rounds" msgpack:"rounds"`
	TotalRounds int                  `json:"totalRounds" msgpack:"totalRounds"`
	Warnings    []warningInfo        `json:"warnings" msgpack:"warnings"`
	Cached      bool                 `json:"cached" msgpack:"cached"`
}

// HandleGetRounds extracts one log and returns its summary and sampled rounds.
// Query: mode=all|sampled, samples=N, max_round=N. Responds with MessagePack when the client
// accepts application/msgpack.
func (h *LogsHandlerImpl) HandleGetRounds(c echo.Context) error {
	name := c.Param("name")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return NewValidationError("name")
	}
	if _, ok := h.finder.Stamp(name); !ok {
		return NewBadRequestError("not a timestamped log name: "+name, nil)
	}

	path := filepath.Join(h.logDir, name)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewNotFoundError("log", name)
		}
		return NewInternalError("failed to stat log", err)
	}

	opts, apiErr := samplerOptions(c)
	if apiErr != nil {
		return apiErr
	}

	if h.detector != nil {
		if _, err := h.detector.FindParser(path); err != nil {
			return NewUnprocessableError("not an experiment log: " + name)
		}
	}

	ext, err := h.processor.ProcessFile(c.Request().Context(), path, opts)
	if err != nil {
		return FromDomainError(err)
	}

	resp := roundsResponse{
		Source:      name,
		Summary:     ext.Log.Summary,
		Rounds:      ext.Sampled,
		TotalRounds: len(ext.Log.Rounds),
		Warnings:    make([]warningInfo, 0, len(ext.Warnings)),
		Cached:      ext.Cached,
	}
	for _, w := range ext.Warnings {
		resp.Warnings = append(resp.Warnings, warningInfo{Line: w.Line, Reason: w.Reason})
	}

	if strings.Contains(c.Request().Header.Get(echo.HeaderAccept), mimeMsgpack) {
		data, err := msgpack.Marshal(&resp)
		if err != nil {
			return NewInternalError("failed to encode msgpack", err)
		}
		return c.Blob(http.StatusOK, mimeMsgpack, data)
	}
	return c.JSON(http.StatusOK, resp)
}

func samplerOptions(c echo.Context) (sampler.Options, *APIError) {
	opts := sampler.Options{Mode: sampler.ModeAll}

	if v := c.QueryParam("mode"); v != "" {
		mode, err := sampler.ParseMode(v)
		if err != nil {
			return opts, NewValidationError("mode")
		}
		opts.Mode = mode
	}
	if v := c.QueryParam("samples"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return opts, NewValidationError("samples")
		}
		opts.Count = n
	}
	if v := c.QueryParam("max_round"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, NewValidationError("max_round")
		}
		opts.MaxRound = sampler.Ceiling(n)
	}
	return opts, nil
}
