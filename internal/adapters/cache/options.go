package cache

import (
	"time"

	"github.com/okian/routinerec/pkg/logger"
)

// Option applies a configuration option to the Cache.
type Option func(*Cache)

// WithWorkers bounds how many users are fetched concurrently during a refresh.
func WithWorkers(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithLogger sets a custom logger for the cache.
func WithLogger(l logger.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.log = l
		}
	}
}

// WithClock replaces time.Now. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}
