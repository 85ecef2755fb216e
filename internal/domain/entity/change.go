package entity

import "time"

// ChangeType classifies the delta between two scrapes of the same source.
type ChangeType string

const (
	ChangeNone            ChangeType = "no_change"
	ChangeContentModified ChangeType = "content_modified"
	ChangeItemsAdded      ChangeType = "items_added"
	ChangeItemsRemoved    ChangeType = "items_removed"
)

// ChangeDetection is the classified result of comparing a previous scrape
// to the current one. Ephemeral; persisted only in summarized form as a
// SourceChangeLog row.
type ChangeDetection struct {
	HasChanges   bool
	ChangeType   ChangeType
	NewItems     []ScrapedItem
	RemovedItems []ScrapedItem
	PreviousHash *string // absent on a monitor's first-ever check
	NewHash      string
	Summary      string
}

// IngestionStatus records what happened to a detected change's hand-off to
// the ingestion collaborator.
type IngestionStatus string

const (
	IngestionPending IngestionStatus = "pending"
	IngestionSuccess IngestionStatus = "success"
	IngestionFailed  IngestionStatus = "failed"
	IngestionSkipped IngestionStatus = "skipped"
)

// SourceChangeLog is an append-only audit row written once per detected
// change and never mutated afterwards. A failed ingestion downgrades the
// status but the change itself is still recorded.
type SourceChangeLog struct {
	ID              int64
	MonitorID       int64
	DetectedAt      time.Time
	PreviousHash    *string
	NewHash         string
	ChangeSummary   string
	ItemsAdded      int
	ItemsRemoved    int
	AutoIngested    bool
	IngestionStatus IngestionStatus
	IngestionError  *string
}
