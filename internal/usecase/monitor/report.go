package monitor

import (
	"time"

	"policy-watch/internal/domain/entity"
)

// SourceRunResult is the per-monitor detail line of a run report. Checked
// is false for monitors that were skipped (not due) or whose scrape failed;
// Error distinguishes the two.
type SourceRunResult struct {
	SourceName string
	SourceType string

	Checked    bool
	SkipReason string

	ChangeDetected bool
	ChangeType     entity.ChangeType
	ItemsAdded     int
	ItemsRemoved   int

	IngestionStatus entity.IngestionStatus

	Error string
}

// RunReport aggregates the outcome of one monitoring run. A report is
// produced even when every source fails; only configuration errors abort
// a run before it starts.
type RunReport struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time

	SourcesChecked      int
	ChangesDetected     int
	IngestionsSucceeded int
	IngestionsFailed    int
	SourceErrors        int

	Results []SourceRunResult
}

// Duration returns the wall-clock duration of the run.
func (r *RunReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
