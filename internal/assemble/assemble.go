// Package assemble drives the fetch plan produced by the reconciler:
// it queries the provider for each missing day, merges the results into the
// guide and handles the provider's "no more data" early-termination signal.
package assemble

import (
	"context"
	"fmt"

	"primaguide/internal/domain"
	"primaguide/internal/reconcile"

	"github.com/sirupsen/logrus"
)

// Assembler fetches missing guide days and merges them into a Guide
type Assembler struct {
	fetcher domain.ScheduleFetcher
	log     *logrus.Logger
}

// New creates an Assembler using the given fetcher
func New(fetcher domain.ScheduleFetcher, log *logrus.Logger) *Assembler {
	return &Assembler{fetcher: fetcher, log: log}
}

// Run executes the fetch plan for the requested interval against the guide.
// It returns the number of days actually fetched. The guide is only
// modified after every needed fetch has succeeded; a fetch error aborts the
// run and leaves the guide exactly as loaded, so the cache file is never
// rewritten with partial data.
func (a *Assembler) Run(ctx context.Context, guide *domain.Guide, requested domain.Interval, opts domain.FetchOptions) (int, error) {
	plan := reconcile.New(guide.Interval, requested)

	a.log.WithFields(logrus.Fields{
		"cached":    guide.Interval.String(),
		"requested": requested.String(),
		"fetch":     len(plan.Days()),
		"retain":    plan.Retain.String(),
	}).Debug("Computed fetch plan")

	working := retained(guide, plan)
	channels := make(map[string]domain.Channel, len(guide.Channels))
	for id, ch := range guide.Channels {
		channels[id] = ch
	}

	filter := makeFilter(opts.Channels)
	interval := plan.Interval
	fetched := 0

	for _, day := range plan.Days() {
		dayGuide, err := a.fetcher.FetchDay(ctx, day, opts)
		if err != nil {
			return fetched, fmt.Errorf("failed to fetch %s: %w", day, err)
		}
		fetched++

		for id, ch := range dayGuide.Channels {
			channels[id] = ch
		}

		incoming := eligible(dayGuide.Programmes, day, filter)
		merged, added := Merge(working, incoming)
		working = merged

		a.log.WithFields(logrus.Fields{
			"day":      day.String(),
			"received": len(dayGuide.Programmes),
			"added":    added,
		}).Debug("Merged day fetch")

		// A day that contributes nothing new means the provider has no
		// data from here on. Stop fetching and make sure the interval
		// does not claim coverage of days that were never populated.
		if added == 0 {
			if day < interval.End {
				interval.End = day
			}
			a.log.WithField("day", day.String()).Info("No new programmes, stopping fetch early")
			break
		}
	}

	guide.Programmes = working
	guide.Channels = channels
	guide.Interval = interval
	if fetched > 0 {
		guide.Dirty = true
	}

	return fetched, nil
}

// retained returns a copy of the guide's programme set with the plan's
// retention policy applied. The copy keeps Run free of partial side effects
// on the guide until the whole plan has succeeded.
func retained(guide *domain.Guide, plan reconcile.Plan) map[string]domain.ProgrammeEntry {
	working := make(map[string]domain.ProgrammeEntry)

	switch plan.Retain {
	case reconcile.RetainNone:
		// nothing carried over
	case reconcile.RetainWindow:
		winStart := plan.Requested.Start.Time()
		winEnd := plan.Requested.End.Time()
		for id, e := range guide.Programmes {
			fullyOutside := !e.Stop.After(winStart) || !e.Start.Before(winEnd)
			if !fullyOutside {
				working[id] = e
			}
		}
	default:
		for id, e := range guide.Programmes {
			working[id] = e
		}
	}

	return working
}

// Merge upserts incoming entries into existing, keyed by event id, and
// returns the merged set plus the number of event ids not seen before.
// The input map is not modified, so merging the same day twice yields the
// same result as merging it once.
func Merge(existing map[string]domain.ProgrammeEntry, incoming []domain.ProgrammeEntry) (map[string]domain.ProgrammeEntry, int) {
	merged := make(map[string]domain.ProgrammeEntry, len(existing)+len(incoming))
	for id, e := range existing {
		merged[id] = e
	}

	added := 0
	for _, e := range incoming {
		if _, seen := merged[e.EventID]; !seen {
			added++
		}
		merged[e.EventID] = e
	}

	return merged, added
}

// eligible filters a day's raw entries down to the ones that may enter the
// working set: valid, on an allowed channel, and not starting before the
// day being fetched (the provider bleeds entries in from adjacent days).
func eligible(entries []domain.ProgrammeEntry, day domain.Day, filter map[string]bool) []domain.ProgrammeEntry {
	floor := day.Time()
	var out []domain.ProgrammeEntry
	for _, e := range entries {
		if !e.Valid() {
			continue
		}
		if filter != nil && !filter[e.Channel] {
			continue
		}
		if e.Start.Before(floor) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// makeFilter builds the channel allow-set; nil means allow everything.
func makeFilter(channels []string) map[string]bool {
	if len(channels) == 0 {
		return nil
	}
	filter := make(map[string]bool, len(channels))
	for _, id := range channels {
		filter[id] = true
	}
	return filter
}
