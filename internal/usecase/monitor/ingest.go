package monitor

import (
	"context"

	"policy-watch/internal/domain/entity"
)

// IngestResult is the ingestion collaborator's account of one hand-off.
type IngestResult struct {
	DocumentsProcessed int
	DocumentsSkipped   int
	ChunksCreated      int
	Errors             []string
}

// Ingestor hands newly detected documents to the downstream QA ingestion
// pipeline. A non-empty IngestResult.Errors counts as a failed ingestion;
// the orchestrator records the failure but never retries automatically.
// The service runs with a nil Ingestor when no pipeline is wired, in which
// case detected changes are logged with ingestion status skipped.
type Ingestor interface {
	IngestScrapedItems(ctx context.Context, items []entity.ScrapedItem, documentType, sourceAuthority, legalWeight string) (*IngestResult, error)
}
