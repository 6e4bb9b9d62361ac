// Package repository defines the persistence interfaces for the optional
// long-term archive. The rolling cache file deliberately purges past days;
// the archive is where fetched guide data survives beyond the cache TTL.
package repository

import (
	"context"
	"time"

	"primaguide/internal/domain"
)

// FetchRun summarizes one grabber run for the archive log
type FetchRun struct {
	ID             string
	RangeStart     domain.Day
	RangeEnd       domain.Day
	FetchedDays    int
	ProgrammeCount int
	CreatedAt      time.Time
}

// GuideArchive records fetched guide data permanently
type GuideArchive interface {
	// RecordRun appends one run to the fetch log
	RecordRun(ctx context.Context, run *FetchRun) error

	// UpsertProgrammes stores programme entries, overwriting by event id
	UpsertProgrammes(ctx context.Context, entries []domain.ProgrammeEntry) error

	// CountProgrammes returns the number of archived programmes
	CountProgrammes(ctx context.Context) (int, error)
}
