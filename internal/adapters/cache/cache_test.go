package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/routinerec/internal/adapters/cache"
	"github.com/okian/routinerec/internal/adapters/repository"
	"github.com/okian/routinerec/internal/domain/model"
	"github.com/okian/routinerec/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type flakyStore struct {
	*repository.MemoryStore
	mu       sync.Mutex
	failing  map[string]bool
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
}

func newFlakyStore() *flakyStore {
	return &flakyStore{MemoryStore: repository.NewMemoryStore(), failing: map[string]bool{}}
}

func (s *flakyStore) fail(id string) {
	s.mu.Lock()
	s.failing[id] = true
	s.mu.Unlock()
}

func (s *flakyStore) Load(ctx context.Context, id string) (model.UserData, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return model.UserData{}, ctx.Err()
		}
	}
	s.mu.Lock()
	bad := s.failing[id]
	s.mu.Unlock()
	if bad {
		return model.UserData{}, repository.ErrUnavailable
	}
	return s.MemoryStore.Load(ctx, id)
}

func roster(n int) []model.User {
	out := make([]model.User, n)
	for i := range out {
		id := "user" + string(rune('a'+i))
		out[i] = model.User{ID: id, DisplayName: "Gymnast " + id}
	}
	return out
}

func seed(t *testing.T, s *flakyStore, users []model.User) {
	t.Helper()
	for _, u := range users {
		if err := s.Save(context.Background(), u.ID, model.NewUserData(u.DisplayName)); err != nil {
			t.Fatal(err)
		}
	}
}

func TestRefreshAll(t *testing.T) {
	Convey("Given a roster of six users", t, func() {
		ctx := context.Background()
		users := roster(6)
		store := newFlakyStore()
		seed(t, store, users[:5])
		c, err := cache.New(store, users, cache.WithWorkers(2), cache.WithLogger(logger.Nop()))
		So(err, ShouldBeNil)

		Convey("Before any refresh the snapshot is stale and empty", func() {
			snap := c.Snapshot()
			So(snap.Stale(time.Now(), time.Hour), ShouldBeTrue)
			So(snap.Data, ShouldBeEmpty)
		})

		Convey("When every fetch succeeds", func() {
			snap, err := c.RefreshAll(ctx)

			Convey("Then stored users are present and unsaved users are absent but not missing", func() {
				So(err, ShouldBeNil)
				So(snap.Data, ShouldHaveLength, 5)
				So(snap.Incomplete(), ShouldBeFalse)
				So(snap.Stale(time.Now(), time.Hour), ShouldBeFalse)
				So(c.Snapshot().Data, ShouldHaveLength, 5)
			})

			Convey("Then at most two loads ran at once", func() {
				So(store.peak.Load(), ShouldBeLessThanOrEqualTo, 2)
			})
		})

		Convey("When one fetch fails", func() {
			store.fail(users[2].ID)
			snap, err := c.RefreshAll(ctx)

			Convey("Then that user is omitted and reported missing", func() {
				So(err, ShouldBeNil)
				So(snap.Incomplete(), ShouldBeTrue)
				So(snap.Missing, ShouldResemble, []string{users[2].ID})
				_, ok := snap.Data[users[2].ID]
				So(ok, ShouldBeFalse)
				So(snap.Data, ShouldHaveLength, 4)
			})

			Convey("And a later Put for that user clears it from Missing", func() {
				c.Put(users[2].ID, model.NewUserData("x"))
				So(c.Snapshot().Incomplete(), ShouldBeFalse)
			})
		})

		Convey("When every fetch fails", func() {
			for _, u := range users {
				store.fail(u.ID)
			}
			_, err := c.RefreshAll(ctx)

			Convey("Then the refresh errors and the old snapshot stays", func() {
				So(errors.Is(err, cache.ErrRefreshFailed), ShouldBeTrue)
				So(c.Snapshot().RefreshedAt.IsZero(), ShouldBeTrue)
			})
		})

		Convey("When the context is cancelled mid-refresh", func() {
			store.delay = 50 * time.Millisecond
			cctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
			defer cancel()
			_, err := c.RefreshAll(cctx)

			Convey("Then the context error is returned", func() {
				So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
				So(c.Snapshot().RefreshedAt.IsZero(), ShouldBeTrue)
			})
		})
	})
}

func TestPut(t *testing.T) {
	Convey("Given a refreshed cache", t, func() {
		users := roster(2)
		store := newFlakyStore()
		seed(t, store, users)
		c, err := cache.New(store, users, cache.WithLogger(logger.Nop()))
		So(err, ShouldBeNil)
		before, err := c.RefreshAll(context.Background())
		So(err, ShouldBeNil)

		Convey("When a record is put", func() {
			d := model.NewUserData("Renamed")
			c.Put(users[0].ID, d)

			Convey("Then the new snapshot carries it and the old one is untouched", func() {
				So(c.Snapshot().Data[users[0].ID].DisplayName, ShouldEqual, "Renamed")
				So(before.Data[users[0].ID].DisplayName, ShouldEqual, users[0].DisplayName)
			})
		})
	})

	Convey("Given an empty roster", t, func() {
		_, err := cache.New(repository.NewMemoryStore(), nil)
		So(errors.Is(err, cache.ErrEmptyRoster), ShouldBeTrue)
	})
}

// gatedStore parks every Load after reading until the test opens its gate.
type gatedStore struct {
	*repository.MemoryStore
	loaded chan chan struct{}
}

func (s *gatedStore) Load(ctx context.Context, id string) (model.UserData, error) {
	data, err := s.MemoryStore.Load(ctx, id)
	gate := make(chan struct{})
	s.loaded <- gate
	<-gate
	return data, err
}

func TestOverlappingRefreshes(t *testing.T) {
	Convey("Given two refreshes that both read a record before it is rewritten", t, func() {
		ctx := context.Background()
		users := []model.User{{ID: "x", DisplayName: "old"}}
		store := &gatedStore{MemoryStore: repository.NewMemoryStore(), loaded: make(chan chan struct{})}
		So(store.Save(ctx, "x", model.NewUserData("old")), ShouldBeNil)
		c, err := cache.New(store, users, cache.WithWorkers(1), cache.WithLogger(logger.Nop()))
		So(err, ShouldBeNil)

		refresh := func() <-chan error {
			done := make(chan error, 1)
			go func() {
				_, err := c.RefreshAll(ctx)
				done <- err
			}()
			return done
		}
		doneA := refresh()
		gateA := <-store.loaded
		doneB := refresh()
		gateB := <-store.loaded

		fresh := model.NewUserData("new")
		So(store.Save(ctx, "x", fresh), ShouldBeNil)
		c.Put("x", fresh)

		close(gateA)
		So(<-doneA, ShouldBeNil)
		So(c.Snapshot().Data["x"].DisplayName, ShouldEqual, "new")

		close(gateB)
		So(<-doneB, ShouldBeNil)

		Convey("Then the later refresh keeps the newer write", func() {
			So(c.Snapshot().Data["x"].DisplayName, ShouldEqual, "new")
		})

		Convey("And a refresh started after the write installs the stored record", func() {
			done := refresh()
			close(<-store.loaded)
			So(<-done, ShouldBeNil)
			So(c.Snapshot().Data["x"].DisplayName, ShouldEqual, "new")
		})
	})
}

func TestSnapshotStale(t *testing.T) {
	Convey("Given a snapshot refreshed at noon", t, func() {
		noon := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
		s := cache.Snapshot{RefreshedAt: noon}

		So(s.Stale(noon.Add(30*time.Minute), time.Hour), ShouldBeFalse)
		So(s.Stale(noon.Add(2*time.Hour), time.Hour), ShouldBeTrue)
		So(s.Stale(noon.Add(48*time.Hour), 0), ShouldBeFalse)
	})
}

func TestRefresher(t *testing.T) {
	Convey("Given a refresher on a short period", t, func() {
		users := roster(1)
		store := newFlakyStore()
		seed(t, store, users)
		c, err := cache.New(store, users, cache.WithLogger(logger.Nop()))
		So(err, ShouldBeNil)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		r := cache.NewRefresher(c, 5*time.Millisecond)
		r.Start(ctx)

		Convey("Then the cache is populated and shutdown stops the loop", func() {
			deadline := time.Now().Add(time.Second)
			for c.Snapshot().RefreshedAt.IsZero() && time.Now().Before(deadline) {
				time.Sleep(time.Millisecond)
			}
			So(c.Snapshot().Data, ShouldHaveLength, 1)

			sctx, scancel := context.WithTimeout(context.Background(), time.Second)
			defer scancel()
			So(r.Shutdown(sctx), ShouldBeNil)
		})
	})
}
