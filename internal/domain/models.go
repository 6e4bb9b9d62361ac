package domain

import "time"

// Channel represents a broadcast channel in the guide
type Channel struct {
	ID          string // Raw provider identifier, e.g. "primaCOOL"
	DisplayName string // Humanized name, e.g. "Prima Cool"
}

// NewChannel builds a Channel with its display name derived from the raw id.
// The derivation is deterministic, so re-creating a channel from the same id
// is always safe.
func NewChannel(id string) Channel {
	return Channel{
		ID:          id,
		DisplayName: HumanizeChannelName(id),
	}
}

// ProgrammeEntry represents a single broadcast slot.
// EventID is the provider's primary key: re-fetching the same event
// overwrites the entry in place.
type ProgrammeEntry struct {
	EventID     string
	Channel     string // Channel ID the entry belongs to
	Title       string
	Description string
	Start       time.Time
	Stop        time.Time
}

// Valid reports whether the entry satisfies the basic invariants.
func (p ProgrammeEntry) Valid() bool {
	return p.EventID != "" && p.Channel != "" && p.Start.Before(p.Stop)
}

// Guide is the in-memory working state of one grabber run: the contiguous
// day interval the data is known complete for, plus the channel and
// programme sets. A run owns its Guide exclusively; it is loaded once,
// mutated in place and persisted once at the end if Dirty.
type Guide struct {
	Interval   Interval
	Created    time.Time
	Channels   map[string]Channel
	Programmes map[string]ProgrammeEntry
	Dirty      bool
}

// NewGuide creates an empty guide with the empty interval [today, today).
func NewGuide(today Day) *Guide {
	return &Guide{
		Interval:   Interval{Start: today, End: today},
		Created:    time.Now(),
		Channels:   make(map[string]Channel),
		Programmes: make(map[string]ProgrammeEntry),
	}
}

// DayGuide is the raw result of fetching one day from the provider.
// An empty Programmes slice is a normal outcome, not an error: the provider
// returns nothing for days it has no data for yet.
type DayGuide struct {
	Channels   map[string]Channel
	Programmes []ProgrammeEntry
}

// FetchOptions carries the per-request query parameters for a day fetch.
type FetchOptions struct {
	Detail   string   // Listing detail level requested from the provider
	Duration int      // Minimum programme duration in minutes, 0 for all
	Channels []string // Channel IDs to request; empty means all
}
