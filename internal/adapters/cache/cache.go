// Package cache holds the in-process snapshot of every roster user's record.
//
// The snapshot is only replaced by an explicit RefreshAll or updated by Put
// after a successful save. Readers decide when a snapshot is too old.
package cache

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/okian/routinerec/internal/adapters/repository"
	"github.com/okian/routinerec/internal/domain/model"
	"github.com/okian/routinerec/pkg/logger"
	"github.com/okian/routinerec/pkg/metrics"
)

const defaultWorkers = 4

// Snapshot is an immutable view of AppData. Data must not be mutated.
type Snapshot struct {
	Data model.AppData
	// Missing lists roster ids whose last fetch failed.
	Missing     []string
	RefreshedAt time.Time
}

// Incomplete reports whether some roster users are absent.
func (s Snapshot) Incomplete() bool { return len(s.Missing) > 0 }

// Stale reports whether the snapshot was never refreshed or is older than maxAge.
// A zero maxAge never goes stale once refreshed.
func (s Snapshot) Stale(now time.Time, maxAge time.Duration) bool {
	if s.RefreshedAt.IsZero() {
		return true
	}
	return maxAge > 0 && now.Sub(s.RefreshedAt) > maxAge
}

// Cache owns the current snapshot.
type Cache struct {
	store   repository.Store
	roster  []model.User
	workers int
	log     logger.Logger
	now     func() time.Time

	mu   sync.RWMutex
	snap Snapshot
	// gen increments on every Put so a refresh started earlier does not
	// overwrite newer writes. touched holds the last gen per user and is never
	// reset; each refresh compares against the gen it started at.
	gen     uint64
	touched map[string]uint64
}

// New returns an empty cache over store for the given roster.
func New(store repository.Store, roster []model.User, opts ...Option) (*Cache, error) {
	if len(roster) == 0 {
		return nil, ErrEmptyRoster
	}
	c := &Cache{
		store:   store,
		roster:  slices.Clone(roster),
		workers: defaultWorkers,
		log:     logger.Get().Named("cache"),
		now:     time.Now,
		snap:    Snapshot{Data: model.AppData{}},
		touched: map[string]uint64{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Snapshot returns the current snapshot.
func (c *Cache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// Put records a freshly saved user record in the snapshot.
func (c *Cache) Put(id string, data model.UserData) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := c.snap.Data.Clone()
	next[id] = data.Clone()
	c.gen++
	c.touched[id] = c.gen
	c.snap = Snapshot{
		Data:        next,
		Missing:     slices.DeleteFunc(slices.Clone(c.snap.Missing), func(m string) bool { return m == id }),
		RefreshedAt: c.snap.RefreshedAt,
	}
}

// RefreshAll reloads every roster user in parallel and installs the result.
// Users whose load fails are omitted and listed in Missing. A missing record
// is not an error; that user simply has no data yet. The error is non-nil only
// when ctx ends or every fetch failed.
func (c *Cache) RefreshAll(ctx context.Context) (Snapshot, error) {
	start := c.now()
	c.mu.RLock()
	startGen := c.gen
	c.mu.RUnlock()

	results, err := c.fetchAll(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	data := make(model.AppData, len(results))
	var missing []string
	failures := 0
	for _, r := range results {
		switch {
		case r.err == nil:
			data[r.id] = r.data
		case r.notFound:
		default:
			failures++
			missing = append(missing, r.id)
		}
	}
	if failures == len(c.roster) {
		metrics.RecordCacheRefresh(msSince(c.now, start), 0, true)
		return Snapshot{}, ErrRefreshFailed
	}

	c.mu.Lock()
	for id, g := range c.touched {
		if g > startGen {
			if cur, ok := c.snap.Data[id]; ok {
				data[id] = cur
				missing = slices.DeleteFunc(missing, func(m string) bool { return m == id })
			}
		}
	}
	c.snap = Snapshot{Data: data, Missing: missing, RefreshedAt: c.now()}
	snap := c.snap
	c.mu.Unlock()

	metrics.RecordCacheRefresh(msSince(c.now, start), len(data), snap.Incomplete())
	if snap.Incomplete() {
		c.log.Warn(ctx, "refresh incomplete",
			logger.Int("loaded", len(data)),
			logger.Any("missing", missing),
		)
	} else {
		c.log.Debug(ctx, "refresh complete", logger.Int("loaded", len(data)))
	}
	return snap, nil
}

func msSince(now func() time.Time, start time.Time) float64 {
	return float64(now().Sub(start).Microseconds()) / 1000
}
