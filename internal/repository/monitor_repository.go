package repository

import (
	"context"
	"time"

	"policy-watch/internal/domain/entity"
)

// MonitorStatus summarizes the monitor table for operator tooling.
type MonitorStatus struct {
	TotalMonitors  int
	ActiveMonitors int
	ByFrequency    map[entity.CheckFrequency]int
}

// MonitorRepository persists source monitor configuration and last-known
// check state. The orchestrator is the only writer of check state under
// normal operation; concurrent manual triggers of the same source must be
// serialized by the caller.
type MonitorRepository interface {
	// GetMonitors returns active monitors, optionally filtered by frequency
	// (empty frequency means all), ordered by source name.
	GetMonitors(ctx context.Context, frequency entity.CheckFrequency) ([]*entity.SourceMonitor, error)

	// GetMonitorByName returns the monitor with the given unique source name,
	// or nil if none exists.
	GetMonitorByName(ctx context.Context, name string) (*entity.SourceMonitor, error)

	// Create inserts a new monitor. Used by seed sync only; the run path
	// never creates monitors.
	Create(ctx context.Context, m *entity.SourceMonitor) error

	// UpdateStatus records the outcome of a check: last_checked_at is always
	// bumped, last_content_hash is always replaced with hash, and
	// last_change_detected_at is set to checkedAt only when changed is true.
	UpdateStatus(ctx context.Context, id int64, hash string, changed bool, checkedAt time.Time) error

	// Status returns aggregate counts over all monitors.
	Status(ctx context.Context) (*MonitorStatus, error)
}
