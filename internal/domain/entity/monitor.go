package entity

import (
	"fmt"
	"time"
)

// CheckFrequency controls how often a source monitor becomes due for a check.
type CheckFrequency string

// Supported check frequencies, coarsest-grained first.
const (
	FrequencyWeekly    CheckFrequency = "weekly"
	FrequencyMonthly   CheckFrequency = "monthly"
	FrequencyQuarterly CheckFrequency = "quarterly"
	FrequencyAnnually  CheckFrequency = "annually"
)

// Threshold returns the elapsed-time threshold after which a monitor with
// this frequency is due again. Thresholds are flat hour counts, not
// calendar-aware: re-checking a day early or late only costs an extra fetch.
func (f CheckFrequency) Threshold() time.Duration {
	switch f {
	case FrequencyWeekly:
		return 168 * time.Hour
	case FrequencyMonthly:
		return 720 * time.Hour // 30 days
	case FrequencyQuarterly:
		return 2160 * time.Hour // 90 days
	case FrequencyAnnually:
		return 8760 * time.Hour // 365 days
	default:
		return 0
	}
}

// Valid reports whether f is one of the supported frequencies.
func (f CheckFrequency) Valid() bool {
	switch f {
	case FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyAnnually:
		return true
	}
	return false
}

// SourceMonitor is one watched external source: its configuration plus the
// last-known state from the most recent successful check.
//
// State fields are mutated only through the repository's UpdateStatus after a
// check; monitors are never deleted, only soft-disabled via IsActive.
type SourceMonitor struct {
	ID         int64
	SourceName string
	SourceURL  string
	SourceType string

	CheckFrequency CheckFrequency
	LastCheckedAt  *time.Time // nil means never checked, always due

	LastContentHash      *string // set iff at least one successful scrape completed
	LastChangeDetectedAt *time.Time

	IsActive       bool
	AutoIngest     bool
	FilterKeywords []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks the monitor's configuration fields.
func (m *SourceMonitor) Validate() error {
	if m.SourceName == "" {
		return &ValidationError{Field: "source_name", Message: "source name is required"}
	}
	if err := ValidateURL(m.SourceURL); err != nil {
		return fmt.Errorf("source_url: %w", err)
	}
	if m.SourceType == "" {
		return &ValidationError{Field: "source_type", Message: "source type is required"}
	}
	if !m.CheckFrequency.Valid() {
		return &ValidationError{
			Field:   "check_frequency",
			Message: fmt.Sprintf("invalid frequency %q (must be weekly, monthly, quarterly, or annually)", m.CheckFrequency),
		}
	}
	return nil
}

// IsDue reports whether the monitor should be checked at the given time.
// A monitor that has never been checked is always due.
func (m *SourceMonitor) IsDue(now time.Time) bool {
	if m.LastCheckedAt == nil {
		return true
	}
	return now.Sub(*m.LastCheckedAt) >= m.CheckFrequency.Threshold()
}
