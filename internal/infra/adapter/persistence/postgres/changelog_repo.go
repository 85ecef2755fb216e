package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"policy-watch/internal/domain/entity"
	"policy-watch/internal/repository"
)

type ChangeLogRepo struct{ db *sql.DB }

func NewChangeLogRepo(db *sql.DB) repository.ChangeLogRepository {
	return &ChangeLogRepo{db: db}
}

func (repo *ChangeLogRepo) LogChange(ctx context.Context, log *entity.SourceChangeLog) (int64, error) {
	const query = `
INSERT INTO source_change_logs
       (monitor_id, detected_at, previous_hash, new_hash, change_summary,
        items_added, items_removed, auto_ingested, ingestion_status, ingestion_error)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING id`
	err := repo.db.QueryRowContext(ctx, query,
		log.MonitorID, log.DetectedAt, log.PreviousHash, log.NewHash, log.ChangeSummary,
		log.ItemsAdded, log.ItemsRemoved, log.AutoIngested, string(log.IngestionStatus), log.IngestionError,
	).Scan(&log.ID)
	if err != nil {
		return 0, fmt.Errorf("LogChange: %w", err)
	}
	return log.ID, nil
}

func (repo *ChangeLogRepo) RecentChanges(ctx context.Context, limit int) ([]*entity.SourceChangeLog, error) {
	const query = `
SELECT id, monitor_id, detected_at, previous_hash, new_hash, change_summary,
       items_added, items_removed, auto_ingested, ingestion_status, ingestion_error
FROM source_change_logs
ORDER BY detected_at DESC, id DESC
LIMIT $1`
	rows, err := repo.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("RecentChanges: %w", err)
	}
	defer func() { _ = rows.Close() }()

	logs := make([]*entity.SourceChangeLog, 0, limit)
	for rows.Next() {
		var log entity.SourceChangeLog
		var status string
		if err := rows.Scan(
			&log.ID, &log.MonitorID, &log.DetectedAt, &log.PreviousHash, &log.NewHash, &log.ChangeSummary,
			&log.ItemsAdded, &log.ItemsRemoved, &log.AutoIngested, &status, &log.IngestionError,
		); err != nil {
			return nil, fmt.Errorf("RecentChanges: %w", err)
		}
		log.IngestionStatus = entity.IngestionStatus(status)
		logs = append(logs, &log)
	}
	return logs, rows.Err()
}
