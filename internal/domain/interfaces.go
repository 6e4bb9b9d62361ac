package domain

import (
	"context"
	"io"
)

// ScheduleFetcher retrieves raw guide data from the remote provider one day
// at a time. Session handling (pairing, tokens) is internal to the
// implementation; callers only see the day query.
type ScheduleFetcher interface {
	// FetchDay returns the provider's listing for a single calendar day.
	// A DayGuide with no programmes is a normal result meaning the provider
	// has no data for that day; any transport, status or payload problem is
	// an error.
	FetchDay(ctx context.Context, day Day, opts FetchOptions) (*DayGuide, error)
}

// GuideStore persists a Guide between grabber runs
type GuideStore interface {
	// Load reads the persisted guide. It never fails: unreadable, stale or
	// invalid state degrades to an empty guide for today.
	Load() *Guide

	// Save persists the guide if it has unsaved changes and clears the
	// dirty flag on success.
	Save(g *Guide) error
}

// Renderer turns the final channel and programme sets into output markup
type Renderer interface {
	Render(w io.Writer, channels []Channel, programmes []ProgrammeEntry) error
}
