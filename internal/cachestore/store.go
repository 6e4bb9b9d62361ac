// Package cachestore persists the guide between grabber runs as a single
// JSON file. The store fails soft on load: anything wrong with the file
// (missing, unparseable, incomplete, too old) degrades to an empty guide
// for today so the run simply fetches more days.
package cachestore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"primaguide/internal/domain"

	"github.com/sirupsen/logrus"
)

// MaxAge is the fixed freshness TTL: a cache file whose created stamp is
// older than this is treated as a miss regardless of its interval.
const MaxAge = 50 * time.Hour

// timeLayout is the persisted programme timestamp format, local time with
// a numeric zone offset.
const timeLayout = "20060102150405 -0700"

// fileGuide is the on-disk representation. Required fields are pointers so
// a missing key is distinguishable from a zero value.
type fileGuide struct {
	Start     *int64                   `json:"start"`
	End       *int64                   `json:"end"`
	Created   *int64                   `json:"created"`
	Channels  map[string]fileChannel   `json:"channels"`
	Programme map[string]fileProgramme `json:"programme"`
}

type fileChannel struct {
	DisplayName string `json:"display-name"`
}

type fileProgramme struct {
	Channel string `json:"channel"`
	Title   string `json:"title"`
	Desc    string `json:"desc"`
	Start   string `json:"start"`
	Stop    string `json:"stop"`
}

// Store reads and writes the guide cache file
type Store struct {
	path string
	log  *logrus.Logger
	now  func() time.Time
}

// New creates a Store for the given cache file path
func New(path string, log *logrus.Logger) *Store {
	return &Store{path: path, log: log, now: time.Now}
}

// Load reads the persisted guide. It never returns an error: every failure
// mode degrades to a fresh empty guide for today. A successfully loaded
// guide is purged of programmes that ended before today, and its interval
// start is advanced to today if it pointed into the past.
func (s *Store) Load() *domain.Guide {
	today := domain.DayOf(s.now())

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.WithError(err).Warn("Cache file unreadable, starting fresh")
		}
		return domain.NewGuide(today)
	}

	var fg fileGuide
	if err := json.Unmarshal(data, &fg); err != nil {
		s.log.WithError(err).Warn("Cache file unparseable, starting fresh")
		return domain.NewGuide(today)
	}

	if fg.Start == nil || fg.End == nil || fg.Created == nil || fg.Channels == nil || fg.Programme == nil {
		s.log.Warn("Cache file missing required fields, starting fresh")
		return domain.NewGuide(today)
	}

	created := time.Unix(*fg.Created, 0)
	if s.now().Sub(created) > MaxAge {
		s.log.WithField("created", created.Format(time.RFC3339)).Info("Cache older than TTL, starting fresh")
		return domain.NewGuide(today)
	}

	guide := &domain.Guide{
		Interval: domain.NewInterval(
			domain.DayOf(time.Unix(*fg.Start, 0)),
			domain.DayOf(time.Unix(*fg.End, 0)),
		),
		Created:    created,
		Channels:   make(map[string]domain.Channel, len(fg.Channels)),
		Programmes: make(map[string]domain.ProgrammeEntry, len(fg.Programme)),
	}

	for id, ch := range fg.Channels {
		name := ch.DisplayName
		if name == "" {
			name = domain.HumanizeChannelName(id)
		}
		guide.Channels[id] = domain.Channel{ID: id, DisplayName: name}
	}

	for eventID, p := range fg.Programme {
		start, err := time.Parse(timeLayout, p.Start)
		if err != nil {
			s.log.WithError(err).WithField("event", eventID).Warn("Cache entry has bad start time, starting fresh")
			return domain.NewGuide(today)
		}
		stop, err := time.Parse(timeLayout, p.Stop)
		if err != nil {
			s.log.WithError(err).WithField("event", eventID).Warn("Cache entry has bad stop time, starting fresh")
			return domain.NewGuide(today)
		}
		entry := domain.ProgrammeEntry{
			EventID:     eventID,
			Channel:     p.Channel,
			Title:       p.Title,
			Description: p.Desc,
			Start:       start,
			Stop:        stop,
		}
		if !entry.Valid() {
			s.log.WithField("event", eventID).Warn("Cache entry invalid, starting fresh")
			return domain.NewGuide(today)
		}
		guide.Programmes[eventID] = entry
	}

	s.purgeExpired(guide, today)
	return guide
}

// purgeExpired drops programmes that ended before today's midnight and
// keeps the interval bounds honest relative to now.
func (s *Store) purgeExpired(guide *domain.Guide, today domain.Day) {
	todayStart := today.Time()
	purged := 0
	for id, e := range guide.Programmes {
		if e.Stop.Before(todayStart) {
			delete(guide.Programmes, id)
			purged++
		}
	}

	if guide.Interval.Start < today {
		guide.Interval.Start = today
		if guide.Interval.End < today {
			guide.Interval.End = today
		}
	}

	if purged > 0 {
		s.log.WithField("purged", purged).Debug("Removed expired programmes from cache")
	}
}

// Save persists the guide if it has unsaved changes and clears the dirty
// flag. The created stamp is rewritten to now, the file is written via a
// temp file and rename so a crash never leaves a half-written cache.
func (s *Store) Save(g *domain.Guide) error {
	if !g.Dirty {
		return nil
	}

	fg := fileGuide{
		Start:     int64Ptr(g.Interval.Start.Time().Unix()),
		End:       int64Ptr(g.Interval.End.Time().Unix()),
		Created:   int64Ptr(s.now().Unix()),
		Channels:  make(map[string]fileChannel, len(g.Channels)),
		Programme: make(map[string]fileProgramme, len(g.Programmes)),
	}
	for id, ch := range g.Channels {
		fg.Channels[id] = fileChannel{DisplayName: ch.DisplayName}
	}
	for id, p := range g.Programmes {
		fg.Programme[id] = fileProgramme{
			Channel: p.Channel,
			Title:   p.Title,
			Desc:    p.Description,
			Start:   p.Start.In(domain.ProviderZone()).Format(timeLayout),
			Stop:    p.Stop.In(domain.ProviderZone()).Format(timeLayout),
		}
	}

	data, err := json.Marshal(fg)
	if err != nil {
		return fmt.Errorf("failed to encode cache: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace cache file: %w", err)
	}

	g.Dirty = false
	return nil
}

func int64Ptr(v int64) *int64 {
	return &v
}
