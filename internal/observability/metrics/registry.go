// Package metrics provides centralized Prometheus metrics for the application.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Source monitoring metrics track check outcomes and detected changes.
var (
	// SourceChecksTotal counts source checks by source name and outcome
	// (changed, unchanged, error, skipped).
	SourceChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_checks_total",
			Help: "Total number of source checks",
		},
		[]string{"source", "outcome"},
	)

	// ChangesDetectedTotal counts detected changes by source name and change type.
	ChangesDetectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_changes_detected_total",
			Help: "Total number of changes detected on monitored sources",
		},
		[]string{"source", "change_type"},
	)

	// ScrapeDuration measures the duration of a single scrape by source type.
	ScrapeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "source_scrape_duration_seconds",
			Help:    "Scrape duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source_type"},
	)

	// ScrapeErrorsTotal counts scrape failures by source name and error kind
	// (fetch, parse, configuration, other).
	ScrapeErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_scrape_errors_total",
			Help: "Total number of scrape errors",
		},
		[]string{"source", "kind"},
	)

	// IngestionsTotal counts ingestion attempts by final status.
	IngestionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_ingestions_total",
			Help: "Total number of document ingestions triggered by detected changes",
		},
		[]string{"status"},
	)

	// ActiveMonitors tracks the number of active monitors per check frequency.
	ActiveMonitors = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "source_monitors_active",
			Help: "Number of active source monitors",
		},
		[]string{"frequency"},
	)

	// RunDuration measures the duration of a whole monitoring run.
	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "monitor_run_duration_seconds",
			Help:    "Monitoring run duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)
)

// Database metrics track query performance and connection pool health.
var (
	// DBQueryDuration measures database query duration by operation
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// DBConnectionsActive tracks active database connections
	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of active database connections",
		},
	)

	// DBConnectionsIdle tracks idle database connections
	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_idle",
			Help: "Number of idle database connections",
		},
	)
)
