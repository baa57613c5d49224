package service

import (
	"time"

	"github.com/okian/routinerec/internal/domain/suggest"
	"github.com/okian/routinerec/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDedupeSize sets the size of the idempotency-key cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithSuggester sets the coaching-suggestion collaborator. Without one the
// offline heuristic is used.
func WithSuggester(sg suggest.Suggester) Option {
	return func(s *Service) {
		if sg != nil {
			s.suggester = sg
		}
	}
}

// WithSuggestTimeout bounds one suggestion round trip.
func WithSuggestTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.suggestTimeout = d
		}
	}
}

// WithCacheMaxAge makes aggregation reads refresh a snapshot older than d.
// Zero keeps a snapshot until an explicit refresh.
func WithCacheMaxAge(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.cacheMaxAge = d
		}
	}
}

// WithRefreshWorkers bounds parallel loads during a cache refresh.
func WithRefreshWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.refreshWorkers = n
		}
	}
}

// WithRefreshInterval enables the background cache refresher.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.refreshInterval = d
		}
	}
}

// WithClock replaces time.Now. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
