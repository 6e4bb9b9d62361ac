package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"primaguide/internal/domain"
	"primaguide/internal/repository"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewDB(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := Migrate(db.DB); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func sampleEntries(day domain.Day, count int) []domain.ProgrammeEntry {
	entries := make([]domain.ProgrammeEntry, count)
	for i := range entries {
		start := day.Time().Add(time.Duration(i) * time.Hour)
		entries[i] = domain.ProgrammeEntry{
			EventID: string(rune('a'+i)) + "-event",
			Channel: "primaCOOL",
			Title:   "Show",
			Start:   start,
			Stop:    start.Add(time.Hour),
		}
	}
	return entries
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	if err := Migrate(db.DB); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}
}

func TestUpsertProgrammesAndCount(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGuideArchiveRepository(db)
	ctx := context.Background()
	day := domain.Today()

	if err := repo.UpsertProgrammes(ctx, sampleEntries(day, 3)); err != nil {
		t.Fatalf("UpsertProgrammes failed: %v", err)
	}

	count, err := repo.CountProgrammes(ctx)
	if err != nil {
		t.Fatalf("CountProgrammes failed: %v", err)
	}
	if count != 3 {
		t.Errorf("count: got %d, want 3", count)
	}

	// Upserting the same entries again must not grow the archive
	if err := repo.UpsertProgrammes(ctx, sampleEntries(day, 3)); err != nil {
		t.Fatalf("second UpsertProgrammes failed: %v", err)
	}
	count, err = repo.CountProgrammes(ctx)
	if err != nil {
		t.Fatalf("CountProgrammes failed: %v", err)
	}
	if count != 3 {
		t.Errorf("count after re-upsert: got %d, want 3", count)
	}
}

func TestUpsertProgrammesOverwrites(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGuideArchiveRepository(db)
	ctx := context.Background()
	day := domain.Today()

	entries := sampleEntries(day, 1)
	if err := repo.UpsertProgrammes(ctx, entries); err != nil {
		t.Fatalf("UpsertProgrammes failed: %v", err)
	}

	entries[0].Title = "Renamed Show"
	if err := repo.UpsertProgrammes(ctx, entries); err != nil {
		t.Fatalf("UpsertProgrammes failed: %v", err)
	}

	var title string
	err := db.QueryRowContext(ctx,
		"SELECT title FROM programmes WHERE event_id = ?", entries[0].EventID,
	).Scan(&title)
	if err != nil {
		t.Fatalf("failed to read back programme: %v", err)
	}
	if title != "Renamed Show" {
		t.Errorf("title: got %q, want %q", title, "Renamed Show")
	}
}

func TestUpsertProgrammesEmptySlice(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGuideArchiveRepository(db)

	if err := repo.UpsertProgrammes(context.Background(), nil); err != nil {
		t.Errorf("empty upsert should be a no-op, got %v", err)
	}
}

func TestRecordRun(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGuideArchiveRepository(db)
	ctx := context.Background()
	today := domain.Today()

	run := &repository.FetchRun{
		RangeStart:     today,
		RangeEnd:       today.Add(5),
		FetchedDays:    2,
		ProgrammeCount: 40,
	}
	if err := repo.RecordRun(ctx, run); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}
	if run.ID == "" {
		t.Error("RecordRun did not assign an id")
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM fetch_runs").Scan(&count); err != nil {
		t.Fatalf("failed to count fetch runs: %v", err)
	}
	if count != 1 {
		t.Errorf("fetch run count: got %d, want 1", count)
	}
}
