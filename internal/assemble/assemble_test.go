package assemble

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"primaguide/internal/domain"

	"github.com/sirupsen/logrus"
)

// stubFetcher is a mock implementation for testing
type stubFetcher struct {
	fetchDayFunc func(ctx context.Context, day domain.Day, opts domain.FetchOptions) (*domain.DayGuide, error)
	calls        []domain.Day
}

func (s *stubFetcher) FetchDay(ctx context.Context, day domain.Day, opts domain.FetchOptions) (*domain.DayGuide, error) {
	s.calls = append(s.calls, day)
	if s.fetchDayFunc != nil {
		return s.fetchDayFunc(ctx, day, opts)
	}
	return &domain.DayGuide{Channels: map[string]domain.Channel{}}, nil
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// entryOn builds a one-hour programme starting at the given hour of the day.
func entryOn(day domain.Day, channel string, hour int) domain.ProgrammeEntry {
	start := day.Time().Add(time.Duration(hour) * time.Hour)
	return domain.ProgrammeEntry{
		EventID: fmt.Sprintf("%s-%s-%d", channel, day, hour),
		Channel: channel,
		Title:   fmt.Sprintf("Show %d", hour),
		Start:   start,
		Stop:    start.Add(time.Hour),
	}
}

// dayGuideFor returns a guide with a few entries on the given channel.
func dayGuideFor(day domain.Day, channel string, hours ...int) *domain.DayGuide {
	dg := &domain.DayGuide{
		Channels: map[string]domain.Channel{channel: domain.NewChannel(channel)},
	}
	for _, h := range hours {
		dg.Programmes = append(dg.Programmes, entryOn(day, channel, h))
	}
	return dg
}

func guideWithDays(start domain.Day, dayCount int, channel string) *domain.Guide {
	g := domain.NewGuide(start)
	g.Interval = domain.Interval{Start: start, End: start.Add(dayCount)}
	g.Channels[channel] = domain.NewChannel(channel)
	for i := 0; i < dayCount; i++ {
		e := entryOn(start.Add(i), channel, 20)
		g.Programmes[e.EventID] = e
	}
	return g
}

var day0 = domain.Today()

func TestRunFetchesOnlyMissingTail(t *testing.T) {
	guide := guideWithDays(day0, 3, "primaCOOL")
	fetcher := &stubFetcher{
		fetchDayFunc: func(_ context.Context, day domain.Day, _ domain.FetchOptions) (*domain.DayGuide, error) {
			return dayGuideFor(day, "primaCOOL", 18, 20), nil
		},
	}

	asm := New(fetcher, testLogger())
	requested := domain.Interval{Start: day0, End: day0.Add(5)}

	fetched, err := asm.Run(context.Background(), guide, requested, domain.FetchOptions{Channels: []string{"primaCOOL"}})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if fetched != 2 {
		t.Errorf("fetched: got %d, want 2", fetched)
	}
	if len(fetcher.calls) != 2 || fetcher.calls[0] != day0.Add(3) || fetcher.calls[1] != day0.Add(4) {
		t.Errorf("fetched wrong days: %v", fetcher.calls)
	}
	if guide.Interval != requested {
		t.Errorf("interval: got %v, want %v", guide.Interval, requested)
	}
	if !guide.Dirty {
		t.Error("guide not marked dirty after fetching")
	}
	// 3 cached + 2 days x 2 entries
	if len(guide.Programmes) != 7 {
		t.Errorf("programme count: got %d, want 7", len(guide.Programmes))
	}
}

func TestRunEarlyTerminationTruncatesInterval(t *testing.T) {
	// Cache holds [day0, day0+3); request 5 days. Day day0+3 has data,
	// day0+4 comes back empty, so the run stops and the interval must not
	// claim the empty day.
	guide := guideWithDays(day0, 3, "primaCOOL")
	fetcher := &stubFetcher{
		fetchDayFunc: func(_ context.Context, day domain.Day, _ domain.FetchOptions) (*domain.DayGuide, error) {
			if day == day0.Add(3) {
				return dayGuideFor(day, "primaCOOL", 20), nil
			}
			return &domain.DayGuide{Channels: map[string]domain.Channel{}}, nil
		},
	}

	asm := New(fetcher, testLogger())
	requested := domain.Interval{Start: day0, End: day0.Add(5)}

	fetched, err := asm.Run(context.Background(), guide, requested, domain.FetchOptions{Channels: []string{"primaCOOL"}})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if fetched != 2 {
		t.Errorf("fetched: got %d, want 2", fetched)
	}
	want := domain.Interval{Start: day0, End: day0.Add(4)}
	if guide.Interval != want {
		t.Errorf("interval: got %v, want %v", guide.Interval, want)
	}
	if len(guide.Programmes) != 4 {
		t.Errorf("programme count: got %d, want 4", len(guide.Programmes))
	}
}

func TestRunEarlyTerminationStopsFurtherFetches(t *testing.T) {
	guide := domain.NewGuide(day0)
	fetcher := &stubFetcher{
		fetchDayFunc: func(_ context.Context, day domain.Day, _ domain.FetchOptions) (*domain.DayGuide, error) {
			if day == day0.Add(2) {
				return &domain.DayGuide{}, nil
			}
			return dayGuideFor(day, "primaCOOL", 20), nil
		},
	}

	asm := New(fetcher, testLogger())
	requested := domain.Interval{Start: day0, End: day0.Add(7)}

	if _, err := asm.Run(context.Background(), guide, requested, domain.FetchOptions{Channels: []string{"primaCOOL"}}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// days 0, 1 and the empty day 2 are fetched; 3..6 are not
	if len(fetcher.calls) != 3 {
		t.Errorf("fetch calls: got %v, want 3 days", fetcher.calls)
	}
	want := domain.Interval{Start: day0, End: day0.Add(2)}
	if guide.Interval != want {
		t.Errorf("interval: got %v, want %v", guide.Interval, want)
	}
}

func TestRunDisjointRequestDiscardsCache(t *testing.T) {
	guide := guideWithDays(day0.Add(-6), 2, "primaCOOL")
	fetcher := &stubFetcher{
		fetchDayFunc: func(_ context.Context, day domain.Day, _ domain.FetchOptions) (*domain.DayGuide, error) {
			return dayGuideFor(day, "primaCOOL", 20), nil
		},
	}

	asm := New(fetcher, testLogger())
	requested := domain.Interval{Start: day0, End: day0.Add(2)}

	if _, err := asm.Run(context.Background(), guide, requested, domain.FetchOptions{Channels: []string{"primaCOOL"}}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if guide.Interval != requested {
		t.Errorf("interval: got %v, want %v", guide.Interval, requested)
	}
	for id, e := range guide.Programmes {
		if e.Start.Before(day0.Time()) {
			t.Errorf("stale entry survived a disjoint request: %s", id)
		}
	}
	if len(guide.Programmes) != 2 {
		t.Errorf("programme count: got %d, want 2", len(guide.Programmes))
	}
}

func TestRunFiltersChannelsAndAdjacentDayEntries(t *testing.T) {
	guide := domain.NewGuide(day0)
	fetcher := &stubFetcher{
		fetchDayFunc: func(_ context.Context, day domain.Day, _ domain.FetchOptions) (*domain.DayGuide, error) {
			dg := dayGuideFor(day, "primaCOOL", 20)
			// Entry on a channel outside the filter
			dg.Programmes = append(dg.Programmes, entryOn(day, "nova_sport", 21))
			// Entry bleeding in from the previous day
			bleed := entryOn(day.Add(-1), "primaCOOL", 23)
			dg.Programmes = append(dg.Programmes, bleed)
			return dg, nil
		},
	}

	asm := New(fetcher, testLogger())
	requested := domain.Interval{Start: day0, End: day0.Add(1)}

	if _, err := asm.Run(context.Background(), guide, requested, domain.FetchOptions{Channels: []string{"primaCOOL"}}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(guide.Programmes) != 1 {
		t.Fatalf("programme count: got %d, want 1", len(guide.Programmes))
	}
	for _, e := range guide.Programmes {
		if e.Channel != "primaCOOL" {
			t.Errorf("filtered channel leaked through: %s", e.Channel)
		}
		if e.Start.Before(day0.Time()) {
			t.Errorf("adjacent-day entry leaked through: %v", e.Start)
		}
	}
}

func TestRunFetchErrorLeavesGuideUntouched(t *testing.T) {
	guide := guideWithDays(day0, 2, "primaCOOL")
	originalInterval := guide.Interval
	originalCount := len(guide.Programmes)

	fetchErr := errors.New("connection reset")
	fetcher := &stubFetcher{
		fetchDayFunc: func(_ context.Context, _ domain.Day, _ domain.FetchOptions) (*domain.DayGuide, error) {
			return nil, fetchErr
		},
	}

	asm := New(fetcher, testLogger())
	requested := domain.Interval{Start: day0, End: day0.Add(4)}

	_, err := asm.Run(context.Background(), guide, requested, domain.FetchOptions{Channels: []string{"primaCOOL"}})
	if !errors.Is(err, fetchErr) {
		t.Fatalf("expected wrapped fetch error, got %v", err)
	}

	if guide.Interval != originalInterval {
		t.Errorf("interval changed after failed run: %v", guide.Interval)
	}
	if len(guide.Programmes) != originalCount {
		t.Errorf("programmes changed after failed run: %d", len(guide.Programmes))
	}
	if guide.Dirty {
		t.Error("guide marked dirty after failed run")
	}
}

func TestRunNothingToFetchLeavesGuideClean(t *testing.T) {
	guide := guideWithDays(day0, 5, "primaCOOL")
	fetcher := &stubFetcher{}

	asm := New(fetcher, testLogger())
	requested := domain.Interval{Start: day0, End: day0.Add(5)}

	fetched, err := asm.Run(context.Background(), guide, requested, domain.FetchOptions{Channels: []string{"primaCOOL"}})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if fetched != 0 {
		t.Errorf("fetched: got %d, want 0", fetched)
	}
	if guide.Dirty {
		t.Error("guide marked dirty without any fetch")
	}
	if len(fetcher.calls) != 0 {
		t.Errorf("unexpected fetches: %v", fetcher.calls)
	}
}

func TestMergeUpsertsByEventID(t *testing.T) {
	existing := map[string]domain.ProgrammeEntry{
		"e1": {EventID: "e1", Channel: "primaCOOL", Title: "Old title"},
	}
	incoming := []domain.ProgrammeEntry{
		{EventID: "e1", Channel: "primaCOOL", Title: "New title"},
		{EventID: "e2", Channel: "primaCOOL", Title: "Another"},
	}

	merged, added := Merge(existing, incoming)

	if added != 1 {
		t.Errorf("added: got %d, want 1", added)
	}
	if merged["e1"].Title != "New title" {
		t.Errorf("e1 not overwritten: %q", merged["e1"].Title)
	}
	if len(merged) != 2 {
		t.Errorf("merged size: got %d, want 2", len(merged))
	}
	if existing["e1"].Title != "Old title" {
		t.Error("Merge modified its input map")
	}
}
