package sqlite

import (
	"context"
	"fmt"
	"time"

	"primaguide/internal/domain"
	"primaguide/internal/repository"

	"github.com/google/uuid"
)

// GuideArchiveRepository implements repository.GuideArchive for SQLite
type GuideArchiveRepository struct {
	db *DB
}

// NewGuideArchiveRepository creates a new GuideArchiveRepository
func NewGuideArchiveRepository(db *DB) *GuideArchiveRepository {
	return &GuideArchiveRepository{db: db}
}

// RecordRun appends one run to the fetch log. A missing id or timestamp is
// filled in.
func (r *GuideArchiveRepository) RecordRun(ctx context.Context, run *repository.FetchRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO fetch_runs (id, range_start, range_end, fetched_days, programme_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.RangeStart.Time(),
		run.RangeEnd.Time(),
		run.FetchedDays,
		run.ProgrammeCount,
		run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert fetch run: %w", err)
	}
	return nil
}

// UpsertProgrammes stores programme entries, overwriting by event id
func (r *GuideArchiveRepository) UpsertProgrammes(ctx context.Context, entries []domain.ProgrammeEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin archive transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO programmes (event_id, channel, title, description, start_time, stop_time, archived_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(event_id) DO UPDATE SET
			channel = excluded.channel,
			title = excluded.title,
			description = excluded.description,
			start_time = excluded.start_time,
			stop_time = excluded.stop_time,
			archived_at = excluded.archived_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare programme upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx,
			e.EventID,
			e.Channel,
			e.Title,
			e.Description,
			e.Start,
			e.Stop,
			now,
		); err != nil {
			return fmt.Errorf("failed to upsert programme %s: %w", e.EventID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit programme upsert: %w", err)
	}
	return nil
}

// CountProgrammes returns the number of archived programmes
func (r *GuideArchiveRepository) CountProgrammes(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM programmes").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count programmes: %w", err)
	}
	return count, nil
}
