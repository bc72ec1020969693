package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	m := New()

	m.FileProcessed(ResultOK)
	m.FileProcessed(ResultOK)
	m.FileProcessed(ResultFailed)
	m.Parsed(12, 2, 50*time.Millisecond)
	m.CacheLookup(true)
	m.CacheLookup(false)
	m.CacheLookup(false)
	m.BatchDone()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.FilesProcessed.WithLabelValues(ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FilesProcessed.WithLabelValues(ResultFailed)))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.RoundsExtracted))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ParseWarnings))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Batches))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.FileProcessed(ResultOK)
		m.Parsed(1, 0, time.Second)
		m.CacheLookup(true)
		m.BatchDone()
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.FileProcessed(ResultEmpty)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `explog_files_processed_total{result="empty"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
