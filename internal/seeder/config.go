// Package seeder drives a running routine service over HTTP with synthetic
// training sessions and checks that the breakdowns it serves agree with the
// records it stores.
package seeder

import (
	"errors"
	"fmt"
	"time"

	"github.com/okian/routinerec/internal/domain/model"
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("invalid seeder config")

// Config holds configuration for a seeding run.
type Config struct {
	BaseURL  string        // Base URL of the service
	Password string        // Shared password, empty when the gate is off
	Users    int           // Number of roster users to seed, 0 for all
	Events   []model.Event // Events to build routines for
	Sessions int           // Submissions recorded per user
	Replays  int           // Submissions replayed with the same idempotency key
	Workers  int           // Concurrent submitters
	Timeout  time.Duration // HTTP request timeout
	Seed     uint64        // Random seed; equal seeds generate equal plans
	Verbose  bool          // Log every request
}

// DefaultConfig returns a Config for a local service.
func DefaultConfig() Config {
	return Config{
		BaseURL:  "http://localhost:9080",
		Events:   model.Events(),
		Sessions: 20,
		Replays:  5,
		Workers:  4,
		Timeout:  30 * time.Second,
		Seed:     1,
	}
}

// Validate checks the run parameters.
func (c Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: base url is empty", ErrInvalidConfig)
	case c.Users < 0:
		return fmt.Errorf("%w: users must not be negative", ErrInvalidConfig)
	case len(c.Events) == 0:
		return fmt.Errorf("%w: no events", ErrInvalidConfig)
	case c.Sessions < 1:
		return fmt.Errorf("%w: sessions must be positive", ErrInvalidConfig)
	case c.Replays < 0:
		return fmt.Errorf("%w: replays must not be negative", ErrInvalidConfig)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	}
	for _, e := range c.Events {
		if !e.Valid() {
			return fmt.Errorf("%w: %w: %q", ErrInvalidConfig, model.ErrUnknownEvent, e)
		}
	}
	return nil
}

// Stats holds run statistics.
type Stats struct {
	Users              int
	RoutinesStored     int
	SessionsGenerated  int
	SessionsRecorded   int
	SessionsDuplicate  int
	SessionsFailed     int
	BreakdownsVerified int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
