// Package metrics exposes Prometheus counters for extraction runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "explog"

// File outcomes recorded by FilesProcessed.
const (
	ResultOK     = "ok"
	ResultEmpty  = "empty"
	ResultFailed = "failed"
)

// Metrics holds the collectors on a private registry. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	Registry *prometheus.Registry

	// FilesProcessed counts files by result (ok, empty, failed).
	FilesProcessed *prometheus.CounterVec
	// RoundsExtracted counts closed round records before sampling.
	RoundsExtracted prometheus.Counter
	// ParseWarnings counts non-fatal line diagnostics.
	ParseWarnings prometheus.Counter
	// CacheLookups counts snapshot lookups by result (hit, miss).
	CacheLookups *prometheus.CounterVec
	// ParseDuration tracks time spent extracting one file.
	ParseDuration prometheus.Histogram
	// Batches counts completed batch runs.
	Batches prometheus.Counter
}

// New registers every collector, plus the Go runtime collectors, on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		FilesProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "files_processed_total",
				Help:      "Total number of log files processed by result",
			},
			[]string{"result"},
		),
		RoundsExtracted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_extracted_total",
			Help:      "Total number of closed round records extracted",
		}),
		ParseWarnings: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_warnings_total",
			Help:      "Total number of non-fatal parse diagnostics",
		}),
		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "lookups_total",
				Help:      "Total number of parse cache lookups by result",
			},
			[]string{"result"},
		),
		ParseDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "parse_duration_seconds",
			Help:      "Duration of single-file extraction in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		Batches: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Total number of completed batch runs",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) FileProcessed(result string) {
	if m == nil {
		return
	}
	m.FilesProcessed.WithLabelValues(result).Inc()
}

func (m *Metrics) Parsed(rounds, warnings int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RoundsExtracted.Add(float64(rounds))
	m.ParseWarnings.Add(float64(warnings))
	m.ParseDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) BatchDone() {
	if m == nil {
		return
	}
	m.Batches.Inc()
}
