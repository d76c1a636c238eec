package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the extraction engine.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry         *prometheus.Registry
	RunsTotal        *prometheus.CounterVec
	RunDuration      *prometheus.HistogramVec
	DismissTotal     *prometheus.CounterVec
	ClicksTotal      *prometheus.CounterVec
	FieldsTotal      *prometheus.CounterVec
	ScrollIterations prometheus.Histogram
	CatalogEntries   prometheus.Counter
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	runs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfprobe_runs_total",
			Help: "Extraction runs by mode and outcome.",
		},
		[]string{"mode", "outcome"},
	)
	runDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shelfprobe_run_duration_seconds",
			Help:    "Wall time of extraction runs.",
			Buckets: []float64{1, 2.5, 5, 10, 20, 40, 80},
		},
		[]string{"mode"},
	)
	dismiss := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfprobe_dismiss_total",
			Help: "Overlay dismissal outcomes by overlay name.",
		},
		[]string{"overlay", "outcome"},
	)
	clicks := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfprobe_clicks_total",
			Help: "Click attempts by mechanism and result.",
		},
		[]string{"mechanism", "result"},
	)
	fields := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfprobe_fields_total",
			Help: "Extracted product fields by presence.",
		},
		[]string{"field", "presence"},
	)
	scrolls := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shelfprobe_scroll_iterations",
			Help:    "Scroll-stability iterations per run.",
			Buckets: prometheus.LinearBuckets(1, 5, 11),
		},
	)
	entries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shelfprobe_catalog_entries_total",
			Help: "Catalog entries parsed from page payloads.",
		},
	)

	registry.MustRegister(runs, runDuration, dismiss, clicks, fields, scrolls, entries)

	return &Metrics{
		Registry:         registry,
		RunsTotal:        runs,
		RunDuration:      runDuration,
		DismissTotal:     dismiss,
		ClicksTotal:      clicks,
		FieldsTotal:      fields,
		ScrollIterations: scrolls,
		CatalogEntries:   entries,
	}
}

// ObserveRun records a finished run.
func (m *Metrics) ObserveRun(mode, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(mode, outcome).Inc()
	m.RunDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// IncDismiss counts one overlay outcome.
func (m *Metrics) IncDismiss(overlay, outcome string) {
	if m == nil {
		return
	}
	m.DismissTotal.WithLabelValues(overlay, outcome).Inc()
}

// IncClick counts one click attempt.
func (m *Metrics) IncClick(mechanism string, ok bool) {
	if m == nil {
		return
	}
	result := "failed"
	if ok {
		result = "ok"
	}
	m.ClicksTotal.WithLabelValues(mechanism, result).Inc()
}

// IncField counts one field as present or absent.
func (m *Metrics) IncField(field string, present bool) {
	if m == nil {
		return
	}
	presence := "absent"
	if present {
		presence = "present"
	}
	m.FieldsTotal.WithLabelValues(field, presence).Inc()
}

// ObserveScroll records the iterations of one scroll loop.
func (m *Metrics) ObserveScroll(iterations int) {
	if m == nil {
		return
	}
	m.ScrollIterations.Observe(float64(iterations))
}

// AddCatalogEntries counts parsed catalog entries.
func (m *Metrics) AddCatalogEntries(n int) {
	if m == nil {
		return
	}
	m.CatalogEntries.Add(float64(n))
}
