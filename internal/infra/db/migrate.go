package db

import (
	"database/sql"
)

// MigrateUp creates the monitor state schema. Statements are idempotent so
// the worker can run this unconditionally at startup.
func MigrateUp(pool *sql.DB) error {
	if _, err := pool.Exec(`
CREATE TABLE IF NOT EXISTS source_monitors (
    id                      BIGSERIAL PRIMARY KEY,
    source_name             TEXT NOT NULL UNIQUE,
    source_url              TEXT NOT NULL,
    source_type             VARCHAR(20) NOT NULL,
    check_frequency         VARCHAR(10) NOT NULL,
    last_checked_at         TIMESTAMPTZ,
    last_content_hash       TEXT,
    last_change_detected_at TIMESTAMPTZ,
    is_active               BOOLEAN NOT NULL DEFAULT TRUE,
    auto_ingest             BOOLEAN NOT NULL DEFAULT FALSE,
    filter_keywords         JSONB,
    created_at              TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at              TIMESTAMPTZ NOT NULL DEFAULT now()
)`); err != nil {
		return err
	}

	if _, err := pool.Exec(`
CREATE TABLE IF NOT EXISTS source_change_logs (
    id               BIGSERIAL PRIMARY KEY,
    monitor_id       BIGINT NOT NULL REFERENCES source_monitors(id),
    detected_at      TIMESTAMPTZ NOT NULL,
    previous_hash    TEXT,
    new_hash         TEXT NOT NULL,
    change_summary   TEXT NOT NULL,
    items_added      INT NOT NULL DEFAULT 0,
    items_removed    INT NOT NULL DEFAULT 0,
    auto_ingested    BOOLEAN NOT NULL DEFAULT FALSE,
    ingestion_status VARCHAR(10) NOT NULL,
    ingestion_error  TEXT
)`); err != nil {
		return err
	}

	indexes := []string{
		// Run loads filter on active monitors ordered by name.
		`CREATE INDEX IF NOT EXISTS idx_source_monitors_active ON source_monitors(source_name) WHERE is_active = TRUE`,
		`CREATE INDEX IF NOT EXISTS idx_source_monitors_frequency ON source_monitors(check_frequency)`,
		// Recent-changes listing and per-monitor history.
		`CREATE INDEX IF NOT EXISTS idx_change_logs_detected_at ON source_change_logs(detected_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_change_logs_monitor_id ON source_change_logs(monitor_id)`,
	}
	for _, idx := range indexes {
		if _, err := pool.Exec(idx); err != nil {
			return err
		}
	}

	// Constraint additions are not idempotent in plain SQL; ignore the
	// error when they already exist.
	_, _ = pool.Exec(`
DO $$
BEGIN
    IF NOT EXISTS (
        SELECT 1 FROM pg_constraint WHERE conname = 'chk_check_frequency'
    ) THEN
        ALTER TABLE source_monitors ADD CONSTRAINT chk_check_frequency
        CHECK (check_frequency IN ('weekly', 'monthly', 'quarterly', 'annually'));
    END IF;
    IF NOT EXISTS (
        SELECT 1 FROM pg_constraint WHERE conname = 'chk_ingestion_status'
    ) THEN
        ALTER TABLE source_change_logs ADD CONSTRAINT chk_ingestion_status
        CHECK (ingestion_status IN ('pending', 'success', 'failed', 'skipped'));
    END IF;
END $$;
`)

	return nil
}

// MigrateDown drops the monitor state schema. Use with caution: this
// deletes all monitor configuration and change history.
func MigrateDown(pool *sql.DB) error {
	dropStatements := []string{
		`DROP TABLE IF EXISTS source_change_logs`,
		`DROP TABLE IF EXISTS source_monitors`,
	}
	for _, stmt := range dropStatements {
		if _, err := pool.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
