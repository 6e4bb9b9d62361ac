package domain

import (
	"fmt"
	"time"
)

// providerZone is the time zone all guide data is published in. Day
// arithmetic has to happen in this zone: the provider's "day" boundary is
// local midnight, not UTC midnight.
var providerZone = loadProviderZone()

func loadProviderZone() *time.Location {
	loc, err := time.LoadLocation("Europe/Prague")
	if err != nil {
		// Hosts without tzdata fall back to plain CET. Day boundaries are
		// off by one hour during summer time in that case.
		return time.FixedZone("CET", 3600)
	}
	return loc
}

// ProviderZone returns the provider's local time zone.
func ProviderZone() *time.Location {
	return providerZone
}

// Day is a calendar day in the provider's time zone, counted in whole days
// since the Unix epoch. Counting civil dates rather than 24h periods keeps
// the arithmetic correct across DST transitions.
type Day int

// DayOf returns the Day containing the given instant.
func DayOf(t time.Time) Day {
	y, m, d := t.In(providerZone).Date()
	return Day(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

// Today returns the current Day in the provider's zone.
func Today() Day {
	return DayOf(time.Now())
}

// Time returns local midnight at the start of the day.
func (d Day) Time() time.Time {
	y, m, day := time.Unix(int64(d)*86400, 0).UTC().Date()
	return time.Date(y, m, day, 0, 0, 0, 0, providerZone)
}

// Add returns the day n days later (earlier for negative n).
func (d Day) Add(n int) Day {
	return d + Day(n)
}

// Before reports whether d is earlier than other.
func (d Day) Before(other Day) bool {
	return d < other
}

// Format returns the day as YYYY-MM-DD, the format the provider API expects.
func (d Day) Format() string {
	return d.Time().Format("2006-01-02")
}

func (d Day) String() string {
	return d.Format()
}

// Interval is a half-open range of days [Start, End). An Interval with
// Start == End is empty.
type Interval struct {
	Start Day
	End   Day
}

// NewInterval builds an interval, swapping bounds if they arrive reversed.
func NewInterval(start, end Day) Interval {
	if end < start {
		start, end = end, start
	}
	return Interval{Start: start, End: end}
}

// Empty reports whether the interval contains no days.
func (i Interval) Empty() bool {
	return i.Start >= i.End
}

// Days returns the number of days in the interval.
func (i Interval) Days() int {
	if i.Empty() {
		return 0
	}
	return int(i.End - i.Start)
}

// Contains reports whether the day lies inside the interval.
func (i Interval) Contains(d Day) bool {
	return d >= i.Start && d < i.End
}

// Overlaps reports whether the two intervals share at least one day.
func (i Interval) Overlaps(other Interval) bool {
	return i.End > other.Start && i.Start < other.End
}

func (i Interval) String() string {
	return fmt.Sprintf("[%s, %s)", i.Start, i.End)
}
