package postgres_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"policy-watch/internal/domain/entity"
	"policy-watch/internal/infra/adapter/persistence/postgres"
)

func TestChangeLogRepo_LogChange(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	prev := "oldhash"
	row := &entity.SourceChangeLog{
		MonitorID:       3,
		DetectedAt:      time.Now(),
		PreviousHash:    &prev,
		NewHash:         "newhash",
		ChangeSummary:   "2 items added",
		ItemsAdded:      2,
		AutoIngested:    true,
		IngestionStatus: entity.IngestionSuccess,
	}

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO source_change_logs`)).
		WithArgs(
			int64(3), row.DetectedAt, &prev, "newhash", "2 items added",
			2, 0, true, "success", nil,
		).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	repo := postgres.NewChangeLogRepo(db)
	id, err := repo.LogChange(context.Background(), row)
	if err != nil {
		t.Fatalf("LogChange err=%v", err)
	}
	if id != 42 || row.ID != 42 {
		t.Fatalf("LogChange id=%d row.ID=%d, want 42", id, row.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestChangeLogRepo_RecentChanges(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	now := time.Now()
	mock.ExpectQuery(`FROM source_change_logs`).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "monitor_id", "detected_at", "previous_hash", "new_hash", "change_summary",
			"items_added", "items_removed", "auto_ingested", "ingestion_status", "ingestion_error",
		}).
			AddRow(int64(2), int64(1), now, nil, "h2", "first check: 3 items discovered", 3, 0, false, "skipped", nil).
			AddRow(int64(1), int64(1), now.Add(-time.Hour), "h0", "h1", "1 items added", 1, 0, true, "failed", "chunking failed"))

	repo := postgres.NewChangeLogRepo(db)
	got, err := repo.RecentChanges(context.Background(), 2)
	if err != nil {
		t.Fatalf("RecentChanges err=%v", err)
	}
	if len(got) != 2 {
		t.Fatalf("RecentChanges len=%d, want 2", len(got))
	}
	if got[0].ID != 2 || got[0].PreviousHash != nil {
		t.Fatalf("got[0] = %+v, want newest row with nil previous hash", got[0])
	}
	if got[1].IngestionStatus != entity.IngestionFailed || got[1].IngestionError == nil {
		t.Fatalf("got[1] = %+v, want failed row with error text", got[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
