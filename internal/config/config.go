// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) initializer to build a Config with defaults.
// - Layer file and environment on top in Load.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"time"
)

// Store drivers.
const (
	DriverBolt   = "bolt"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is "text" or "json".
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// PasswordHash is the bcrypt hash of the shared access password.
	// Empty disables the gate.
	PasswordHash string `koanf:"password_hash"`

	// CORSOrigins lists allowed browser origins. Empty allows any.
	CORSOrigins []string `koanf:"cors_origins"`

	// DedupeSize bounds the idempotency-key cache for submission creation.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxWindowDays caps the days= query parameter on stats endpoints.
	MaxWindowDays int `koanf:"max_window_days"`

	Store   StoreConfig   `koanf:"store"`
	Cache   CacheConfig   `koanf:"cache"`
	Suggest SuggestConfig `koanf:"suggest"`

	// Roster is the fixed list of users. Empty falls back to DefaultRoster.
	Roster []RosterEntry `koanf:"roster"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string `koanf:"driver"`
	Path   string `koanf:"path"`
}

// CacheConfig tunes the aggregation cache.
type CacheConfig struct {
	// MaxAge marks a snapshot stale after this long. Zero means never stale.
	MaxAge time.Duration `koanf:"max_age"`

	// RefreshWorkers bounds parallel user fetches during refresh.
	RefreshWorkers int `koanf:"refresh_workers"`

	// RefreshInterval enables a background refresh on this period. Zero
	// leaves refreshing to explicit requests.
	RefreshInterval time.Duration `koanf:"refresh_interval"`
}

// SuggestConfig configures the coaching-suggestion collaborator.
type SuggestConfig struct {
	APIKey  string        `koanf:"api_key"`
	Model   string        `koanf:"model"`
	Timeout time.Duration `koanf:"timeout"`
}

// RosterEntry is one configured user.
type RosterEntry struct {
	ID   string `koanf:"id"`
	Name string `koanf:"name"`
}

// New creates a Config populated with defaults. The context is accepted for
// symmetry with Load and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:      "info",
		LogFormat:     "text",
		Addr:          ":9080",
		DedupeSize:    10_000,
		MaxWindowDays: 90,
		Store: StoreConfig{
			Driver: DriverBolt,
			Path:   "routines.db",
		},
		Cache: CacheConfig{
			MaxAge:         0,
			RefreshWorkers: 4,
		},
		Suggest: SuggestConfig{
			Model:   "gemini-2.0-flash",
			Timeout: 20 * time.Second,
		},
	}
}

// DefaultRoster returns the built-in roster of eighteen placeholder users.
func DefaultRoster() []RosterEntry {
	const rosterSize = 18
	out := make([]RosterEntry, 0, rosterSize)
	for i := 1; i <= rosterSize; i++ {
		out = append(out, RosterEntry{
			ID:   fmt.Sprintf("user%d", i),
			Name: fmt.Sprintf("Gymnast %d", i),
		})
	}
	return out
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch c.Store.Driver {
	case DriverBolt, DriverSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("%w: store.path required for driver %q", ErrInvalidConfig, c.Store.Driver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("%w: unknown store.driver %q", ErrInvalidConfig, c.Store.Driver)
	}
	if c.Cache.RefreshWorkers < 1 {
		return fmt.Errorf("%w: cache.refresh_workers must be positive", ErrInvalidConfig)
	}
	if c.Cache.RefreshInterval < 0 {
		return fmt.Errorf("%w: cache.refresh_interval must not be negative", ErrInvalidConfig)
	}
	if c.Cache.MaxAge < 0 {
		return fmt.Errorf("%w: cache.max_age must not be negative", ErrInvalidConfig)
	}
	if c.MaxWindowDays < 1 {
		return fmt.Errorf("%w: max_window_days must be positive", ErrInvalidConfig)
	}
	seen := make(map[string]struct{}, len(c.Roster))
	for _, r := range c.Roster {
		if r.ID == "" {
			return fmt.Errorf("%w: %w: entry with empty id", ErrInvalidConfig, ErrInvalidRoster)
		}
		if _, dup := seen[r.ID]; dup {
			return fmt.Errorf("%w: %w: duplicate id %q", ErrInvalidConfig, ErrInvalidRoster, r.ID)
		}
		seen[r.ID] = struct{}{}
	}
	return nil
}
