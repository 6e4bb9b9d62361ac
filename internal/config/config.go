// Package config loads the grabber configuration: a YAML file for the
// channel selection and window settings, environment variables for the
// provider credentials.
package config

import (
	"fmt"
	"os"

	"primaguide/internal/domain"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Provider-imposed maxima for the requested window. Values above these are
// clamped with a warning, not rejected.
const (
	MaxOffset = 7
	MaxDays   = 7
)

// Config holds all grabber configuration
type Config struct {
	// Channel allow-list: raw provider channel ids
	Channels []string `yaml:"channels"`

	// Requested window: start offset in days from today and day count
	Offset int `yaml:"offset"`
	Days   int `yaml:"days"`

	// Listing detail level and minimum programme duration in minutes
	Detail   string `yaml:"detail"`
	Duration int    `yaml:"duration"`

	// Cache file path; empty disables persistence for the run
	CacheFile string `yaml:"cache_file"`

	// Optional sqlite archive of everything ever fetched
	ArchiveDB string `yaml:"archive_db"`

	// Output path; "-" or empty means stdout
	Output string `yaml:"output"`

	// Provider credentials, from PRIMA_EMAIL / PRIMA_PASSWORD
	Email    string `yaml:"-"`
	Password string `yaml:"-"`
}

// Load reads the YAML config file, applies environment credentials and
// defaults, clamps the window settings and validates the result.
func Load(path string, log *logrus.Logger) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := &Config{
		Days:   MaxDays,
		Detail: "standard",
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.Email = os.Getenv("PRIMA_EMAIL")
	cfg.Password = os.Getenv("PRIMA_PASSWORD")

	cfg.Clamp(log)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Clamp reduces out-of-range window settings to the provider maxima.
// Exceeding the maxima is a boundary-policy condition, not an error.
func (c *Config) Clamp(log *logrus.Logger) {
	if c.Offset > MaxOffset {
		log.WithFields(logrus.Fields{
			"offset": c.Offset,
			"max":    MaxOffset,
		}).Warn("Offset exceeds provider maximum, clamping")
		c.Offset = MaxOffset
	}
	if c.Days > MaxDays {
		log.WithFields(logrus.Fields{
			"days": c.Days,
			"max":  MaxDays,
		}).Warn("Day count exceeds provider maximum, clamping")
		c.Days = MaxDays
	}
}

// Validate checks that all required configuration values are present
func (c *Config) Validate() error {
	if len(c.Channels) == 0 {
		return fmt.Errorf("%w: no channels configured", domain.ErrInvalidInput)
	}
	if c.Offset < 0 {
		return fmt.Errorf("%w: offset must not be negative, got %d", domain.ErrInvalidInput, c.Offset)
	}
	if c.Days < 1 {
		return fmt.Errorf("%w: days must be at least 1, got %d", domain.ErrInvalidInput, c.Days)
	}
	if c.Email == "" || c.Password == "" {
		return fmt.Errorf("%w: PRIMA_EMAIL and PRIMA_PASSWORD must be set", domain.ErrMissingCredentials)
	}
	return nil
}

// RequestedRange derives the requested day interval from the clamped
// offset and day count.
func (c *Config) RequestedRange(today domain.Day) domain.Interval {
	start := today.Add(c.Offset)
	return domain.Interval{Start: start, End: start.Add(c.Days)}
}

// FetchOptions builds the per-request options handed to the fetcher.
func (c *Config) FetchOptions() domain.FetchOptions {
	return domain.FetchOptions{
		Detail:   c.Detail,
		Duration: c.Duration,
		Channels: c.Channels,
	}
}
