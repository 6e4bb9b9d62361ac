// Package reconcile computes which days of guide data must be fetched from
// the provider, given the contiguous day interval already held in the cache
// and the interval the caller asked for. This is the part of the grabber
// that keeps repeated runs from re-fetching days they already have.
package reconcile

import (
	"primaguide/internal/domain"
)

// Retention says what the assembler should do with the programmes already
// held in the cache before merging freshly fetched days.
type Retention int

const (
	// RetainAll keeps every cached programme; the cache fully covers the
	// requested start and only the tail is missing.
	RetainAll Retention = iota

	// RetainWindow keeps cached programmes that overlap the requested
	// window and drops the rest from the working set.
	RetainWindow

	// RetainNone discards all cached programmes; the cache is irrelevant
	// to this request.
	RetainNone
)

func (r Retention) String() string {
	switch r {
	case RetainAll:
		return "all"
	case RetainWindow:
		return "window"
	case RetainNone:
		return "none"
	default:
		return "unknown"
	}
}

// Segment is a run of consecutive days to fetch, one provider query per day.
type Segment struct {
	Start domain.Day
	Count int
}

// Plan is the reconciler's output: the ordered fetch segments, the interval
// the cache should adopt if every fetch succeeds and returns data, the
// retention policy for existing programmes, and the window the caller asked
// for (which RetainWindow filters against).
type Plan struct {
	Segments  []Segment
	Interval  domain.Interval
	Retain    Retention
	Requested domain.Interval
}

// New computes the fetch plan for a cached interval and a requested
// interval. The cases are checked in priority order:
//
//  1. cache start matches the request start and the cache ends at or before
//     the request end: only the tail gap is fetched, everything cached is
//     kept. The steady-state "grab the next day" case.
//  2. the intervals overlap: fetch the missing head and/or tail, keep the
//     cached middle, adopt the union of both intervals.
//  3. no overlap: the cache is irrelevant, fetch the full request.
//
// An empty cached interval always plans a full fetch.
func New(cached, requested domain.Interval) Plan {
	cs, ce := cached.Start, cached.End
	rs, re := requested.Start, requested.End

	if cached.Empty() {
		return fullFetch(requested)
	}

	if cs == rs && ce <= re {
		p := Plan{
			Interval:  domain.Interval{Start: cs, End: re},
			Retain:    RetainAll,
			Requested: requested,
		}
		if ce < re {
			p.Segments = []Segment{{Start: ce, Count: int(re - ce)}}
		}
		return p
	}

	if cached.Overlaps(requested) {
		p := Plan{
			Interval:  domain.Interval{Start: minDay(rs, cs), End: maxDay(re, ce)},
			Retain:    RetainWindow,
			Requested: requested,
		}
		if rs < cs {
			p.Segments = append(p.Segments, Segment{Start: rs, Count: int(cs - rs)})
		}
		if ce < re {
			p.Segments = append(p.Segments, Segment{Start: ce, Count: int(re - ce)})
		}
		return p
	}

	return fullFetch(requested)
}

func fullFetch(requested domain.Interval) Plan {
	p := Plan{
		Interval:  requested,
		Retain:    RetainNone,
		Requested: requested,
	}
	if !requested.Empty() {
		p.Segments = []Segment{{Start: requested.Start, Count: requested.Days()}}
	}
	return p
}

// Days expands the plan's segments into the ordered list of individual days
// to fetch. The provider API is queried one day at a time.
func (p Plan) Days() []domain.Day {
	var days []domain.Day
	for _, seg := range p.Segments {
		for i := 0; i < seg.Count; i++ {
			days = append(days, seg.Start.Add(i))
		}
	}
	return days
}

func minDay(a, b domain.Day) domain.Day {
	if a < b {
		return a
	}
	return b
}

func maxDay(a, b domain.Day) domain.Day {
	if a > b {
		return a
	}
	return b
}
