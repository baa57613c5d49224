package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/routinerec/internal/adapters/repository"
	"github.com/okian/routinerec/internal/domain/model"
	"github.com/okian/routinerec/pkg/logger"
	"github.com/okian/routinerec/pkg/metrics"
)

type fetchResult struct {
	id       string
	data     model.UserData
	err      error
	notFound bool
}

// fetcher loads one user per job until the job channel closes.
type fetcher struct {
	name  string
	store repository.Store
	log   logger.Logger
	now   func() time.Time
}

func (f *fetcher) run(ctx context.Context, jobs <-chan int, roster []model.User, out []fetchResult) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case i, ok := <-jobs:
			if !ok {
				return nil
			}
			out[i] = f.fetch(ctx, roster[i].ID)
		}
	}
}

func (f *fetcher) fetch(ctx context.Context, id string) fetchResult {
	start := f.now()
	data, err := f.store.Load(ctx, id)
	res := fetchResult{id: id, data: data, err: err}
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotFound):
		res.notFound = true
	default:
		f.log.Warn(ctx, "fetch failed", logger.String("user_id", id), logger.Error(err))
	}
	metrics.RecordRefreshFetch(msSince(f.now, start), err != nil && !res.notFound)
	return res
}

// fetchAll loads every roster user with at most c.workers loads in flight.
// Results keep roster order.
func (c *Cache) fetchAll(ctx context.Context) ([]fetchResult, error) {
	workers := min(c.workers, len(c.roster))
	out := make([]fetchResult, len(c.roster))
	jobs := make(chan int)

	g, gctx := errgroup.WithContext(ctx)
	metrics.UpdateRefreshWorkerActive(workers)
	defer metrics.UpdateRefreshWorkerActive(0)

	for i := range workers {
		f := &fetcher{
			name:  "fetcher-" + strconv.Itoa(i),
			store: c.store,
			now:   c.now,
		}
		f.log = c.log.Named(f.name)
		g.Go(func() error { return f.run(gctx, jobs, c.roster, out) })
	}
	g.Go(func() error {
		defer close(jobs)
		for i := range c.roster {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
