package repository

import (
	"context"

	"policy-watch/internal/domain/entity"
)

// ChangeLogRepository persists the append-only audit trail of detected
// source changes. Rows are written once and never mutated.
type ChangeLogRepository interface {
	// LogChange appends one change row and returns its id.
	LogChange(ctx context.Context, log *entity.SourceChangeLog) (int64, error)

	// RecentChanges returns the most recent change rows, newest first.
	RecentChanges(ctx context.Context, limit int) ([]*entity.SourceChangeLog, error)
}
