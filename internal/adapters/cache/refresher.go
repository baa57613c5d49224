package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/routinerec/pkg/logger"
)

// Refresher calls RefreshAll on a fixed period until stopped.
type Refresher struct {
	cache    *Cache
	interval time.Duration
	log      logger.Logger

	shutdown chan struct{}
	done     chan struct{}
}

// NewRefresher creates a refresher for c. Start must be called to run it.
func NewRefresher(c *Cache, interval time.Duration) *Refresher {
	return &Refresher{
		cache:    c,
		interval: interval,
		log:      c.log.Named("refresher"),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the loop in a goroutine. The first refresh happens immediately.
func (r *Refresher) Start(ctx context.Context) {
	go r.run(ctx)
}

func (r *Refresher) run(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.shutdown:
			return
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

func (r *Refresher) refresh(ctx context.Context) {
	if _, err := r.cache.RefreshAll(ctx); err != nil && ctx.Err() == nil {
		r.log.Error(ctx, "background refresh failed", logger.Error(err))
	}
}

// Shutdown stops the loop and waits for an in-flight refresh to finish.
func (r *Refresher) Shutdown(ctx context.Context) error {
	close(r.shutdown)
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		r.log.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("refresher shutdown timed out: %w", ctx.Err())
	}
}
