package metrics

import (
	"time"
)

// RecordSourceCheck records the outcome of one source check.
// Outcome should be one of "changed", "unchanged", "error", "skipped".
func RecordSourceCheck(sourceName, outcome string) {
	SourceChecksTotal.WithLabelValues(sourceName, outcome).Inc()
}

// RecordChangeDetected records a detected change by type
// (items_added, items_removed, content_modified).
func RecordChangeDetected(sourceName, changeType string) {
	ChangesDetectedTotal.WithLabelValues(sourceName, changeType).Inc()
}

// RecordScrape records the duration of one scrape attempt by source type.
func RecordScrape(sourceType string, duration time.Duration) {
	ScrapeDuration.WithLabelValues(sourceType).Observe(duration.Seconds())
}

// RecordScrapeError records a scrape failure.
// Kind should be one of "fetch", "parse", "configuration", "other".
func RecordScrapeError(sourceName, kind string) {
	ScrapeErrorsTotal.WithLabelValues(sourceName, kind).Inc()
}

// RecordIngestion records an ingestion attempt by its final status
// (success, failed, skipped, pending).
func RecordIngestion(status string) {
	IngestionsTotal.WithLabelValues(status).Inc()
}

// UpdateActiveMonitors updates the active-monitor gauge for one frequency.
// Should be refreshed from repository counts at the start of each run.
func UpdateActiveMonitors(frequency string, count int) {
	ActiveMonitors.WithLabelValues(frequency).Set(float64(count))
}

// RecordRun records the duration of a whole monitoring run.
func RecordRun(duration time.Duration) {
	RunDuration.Observe(duration.Seconds())
}

// RecordDBQuery records the duration of a database query operation.
// Operation should describe the query type (e.g., "select_monitors", "insert_change").
func RecordDBQuery(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// UpdateDBConnectionStats updates database connection pool statistics.
func UpdateDBConnectionStats(active, idle int) {
	DBConnectionsActive.Set(float64(active))
	DBConnectionsIdle.Set(float64(idle))
}
