package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"policy-watch/internal/domain/entity"
	"policy-watch/internal/repository"
)

type MonitorRepo struct{ db *sql.DB }

func NewMonitorRepo(db *sql.DB) repository.MonitorRepository {
	return &MonitorRepo{db: db}
}

const monitorColumns = `id, source_name, source_url, source_type, check_frequency,
       last_checked_at, last_content_hash, last_change_detected_at,
       is_active, auto_ingest, filter_keywords, created_at, updated_at`

// scanMonitor scans one monitor row including the filter_keywords JSON column.
func scanMonitor(scan func(dest ...any) error) (*entity.SourceMonitor, error) {
	var m entity.SourceMonitor
	var keywordsJSON []byte
	if err := scan(
		&m.ID, &m.SourceName, &m.SourceURL, &m.SourceType, &m.CheckFrequency,
		&m.LastCheckedAt, &m.LastContentHash, &m.LastChangeDetectedAt,
		&m.IsActive, &m.AutoIngest, &keywordsJSON, &m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if len(keywordsJSON) > 0 {
		if err := json.Unmarshal(keywordsJSON, &m.FilterKeywords); err != nil {
			return nil, fmt.Errorf("unmarshal filter_keywords: %w", err)
		}
	}

	return &m, nil
}

func (repo *MonitorRepo) GetMonitors(ctx context.Context, frequency entity.CheckFrequency) ([]*entity.SourceMonitor, error) {
	query := `
SELECT ` + monitorColumns + `
FROM source_monitors
WHERE is_active = TRUE
ORDER BY source_name ASC`
	args := []any{}
	if frequency != "" {
		query = `
SELECT ` + monitorColumns + `
FROM source_monitors
WHERE is_active = TRUE AND check_frequency = $1
ORDER BY source_name ASC`
		args = append(args, string(frequency))
	}

	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("GetMonitors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	monitors := make([]*entity.SourceMonitor, 0, 20)
	for rows.Next() {
		m, err := scanMonitor(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("GetMonitors: %w", err)
		}
		monitors = append(monitors, m)
	}
	return monitors, rows.Err()
}

func (repo *MonitorRepo) GetMonitorByName(ctx context.Context, name string) (*entity.SourceMonitor, error) {
	query := `
SELECT ` + monitorColumns + `
FROM source_monitors
WHERE source_name = $1
LIMIT 1`
	m, err := scanMonitor(repo.db.QueryRowContext(ctx, query, name).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetMonitorByName: %w", err)
	}
	return m, nil
}

func (repo *MonitorRepo) Create(ctx context.Context, m *entity.SourceMonitor) error {
	var keywordsJSON []byte
	if len(m.FilterKeywords) > 0 {
		var err error
		keywordsJSON, err = json.Marshal(m.FilterKeywords)
		if err != nil {
			return fmt.Errorf("Create: marshal filter_keywords: %w", err)
		}
	}

	now := time.Now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now

	const query = `
INSERT INTO source_monitors
       (source_name, source_url, source_type, check_frequency,
        is_active, auto_ingest, filter_keywords, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id`
	err := repo.db.QueryRowContext(ctx, query,
		m.SourceName, m.SourceURL, m.SourceType, string(m.CheckFrequency),
		m.IsActive, m.AutoIngest, keywordsJSON, m.CreatedAt, m.UpdatedAt,
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (repo *MonitorRepo) UpdateStatus(ctx context.Context, id int64, hash string, changed bool, checkedAt time.Time) error {
	// last_change_detected_at moves only when a change was detected; the
	// checked timestamp and hash always move.
	const query = `
UPDATE source_monitors SET
       last_checked_at         = $1,
       last_content_hash       = $2,
       last_change_detected_at = CASE WHEN $3 THEN $1 ELSE last_change_detected_at END,
       updated_at              = $1
WHERE id = $4`
	res, err := repo.db.ExecContext(ctx, query, checkedAt, hash, changed, id)
	if err != nil {
		return fmt.Errorf("UpdateStatus: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("UpdateStatus: no rows affected")
	}
	return nil
}

func (repo *MonitorRepo) Status(ctx context.Context) (*repository.MonitorStatus, error) {
	status := &repository.MonitorStatus{
		ByFrequency: make(map[entity.CheckFrequency]int),
	}

	const totalsQuery = `
SELECT COUNT(*), COUNT(*) FILTER (WHERE is_active)
FROM source_monitors`
	if err := repo.db.QueryRowContext(ctx, totalsQuery).Scan(
		&status.TotalMonitors, &status.ActiveMonitors,
	); err != nil {
		return nil, fmt.Errorf("Status: %w", err)
	}

	const byFrequencyQuery = `
SELECT check_frequency, COUNT(*)
FROM source_monitors
WHERE is_active = TRUE
GROUP BY check_frequency`
	rows, err := repo.db.QueryContext(ctx, byFrequencyQuery)
	if err != nil {
		return nil, fmt.Errorf("Status: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var frequency string
		var count int
		if err := rows.Scan(&frequency, &count); err != nil {
			return nil, fmt.Errorf("Status: %w", err)
		}
		status.ByFrequency[entity.CheckFrequency(frequency)] = count
	}
	return status, rows.Err()
}
