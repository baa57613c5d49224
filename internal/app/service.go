// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/okian/routinerec/internal/adapters/cache"
	"github.com/okian/routinerec/internal/adapters/export"
	"github.com/okian/routinerec/internal/adapters/repository"
	"github.com/okian/routinerec/internal/domain/dedupe"
	"github.com/okian/routinerec/internal/domain/model"
	"github.com/okian/routinerec/internal/domain/routine"
	"github.com/okian/routinerec/internal/domain/stats"
	"github.com/okian/routinerec/internal/domain/suggest"
	"github.com/okian/routinerec/internal/domain/types"
	"github.com/okian/routinerec/pkg/logger"
	"github.com/okian/routinerec/pkg/metrics"
)

const (
	defaultDedupeSize     = 10_000
	defaultRefreshWorkers = 4
	refresherStopTimeout  = 5 * time.Second
)

// Service implements the API dependencies for the routine recorder.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     repository.Store
	cache     *cache.Cache
	refresher *cache.Refresher
	deduper   dedupe.Deduper
	gateway   *suggest.Gateway
	suggester suggest.Suggester

	roster []model.User
	index  map[string]model.User

	// Configuration
	dedupeSize      int
	suggestTimeout  time.Duration
	cacheMaxAge     time.Duration
	refreshWorkers  int
	refreshInterval time.Duration
	now             func() time.Time

	// One writer per user at a time.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	// State
	started bool

	// Logging
	logger logger.Logger
}

// New constructs a Service over store for the given roster.
func New(store repository.Store, roster []model.User, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("service: nil store")
	}
	s := &Service{
		store:          store,
		roster:         slices.Clone(roster),
		index:          make(map[string]model.User, len(roster)),
		dedupeSize:     defaultDedupeSize,
		refreshWorkers: defaultRefreshWorkers,
		now:            time.Now,
		locks:          map[string]*sync.Mutex{},
		logger:         logger.Get().Named("service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, u := range s.roster {
		s.index[u.ID] = u
	}

	c, err := cache.New(store, s.roster,
		cache.WithWorkers(s.refreshWorkers),
		cache.WithLogger(s.logger.Named("cache")),
		cache.WithClock(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("build cache: %w", err)
	}
	s.cache = c
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	if s.suggester == nil {
		s.suggester = suggest.NewHeuristic()
	}
	s.gateway = suggest.NewGateway(s.suggester,
		suggest.WithTimeout(s.suggestTimeout),
		suggest.WithLogger(s.logger.Named("suggest")),
	)
	metrics.UpdateRosterSize(len(s.roster))
	return s, nil
}

// Start launches background work. It is safe to call more than once.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.refreshInterval > 0 {
		s.refresher = cache.NewRefresher(s.cache, s.refreshInterval)
		s.refresher.Start(ctx)
	}
	s.started = true
	s.logger.Info(ctx, "routine service started",
		logger.Int("users", len(s.roster)),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Duration("refreshInterval", s.refreshInterval),
	)
	return nil
}

// Stop halts background work.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), refresherStopTimeout)
	defer cancel()
	if s.refresher != nil {
		if err := s.refresher.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "refresher did not stop cleanly", logger.Error(err))
		}
		s.refresher = nil
	}
	s.started = false
	s.logger.Info(ctx, "routine service stopped")
}

// Users returns the roster.
func (s *Service) Users() []model.User { return slices.Clone(s.roster) }

func (s *Service) user(id string) (model.User, error) {
	u, ok := s.index[id]
	if !ok {
		return model.User{}, fmt.Errorf("%w: %q", ErrUnknownUser, id)
	}
	return u, nil
}

func (s *Service) lock(id string) func() {
	s.locksMu.Lock()
	m, ok := s.locks[id]
	if !ok {
		m = &sync.Mutex{}
		s.locks[id] = m
	}
	s.locksMu.Unlock()
	m.Lock()
	return m.Unlock
}

// LoadUser returns the user's record, creating and saving an empty one on
// first access.
func (s *Service) LoadUser(ctx context.Context, id string) (model.UserData, error) {
	u, err := s.user(id)
	if err != nil {
		return model.UserData{}, err
	}
	defer s.lock(id)()
	return s.load(ctx, u)
}

// load must be called with the user's lock held.
func (s *Service) load(ctx context.Context, u model.User) (model.UserData, error) {
	data, err := s.store.Load(ctx, u.ID)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return model.UserData{}, err
	}
	data = model.NewUserData(u.DisplayName)
	if err := s.store.Save(ctx, u.ID, data); err != nil {
		return model.UserData{}, err
	}
	metrics.RecordUserCreated()
	s.cache.Put(u.ID, data)
	s.logger.Info(ctx, "created user record", logger.String("user_id", u.ID))
	return data, nil
}

// mutate applies fn to a copy of the user's record and persists it. When fn
// or the save fails nothing changes, in the store or in the cache.
func (s *Service) mutate(ctx context.Context, id string, fn func(*model.UserData) error) (model.UserData, error) {
	u, err := s.user(id)
	if err != nil {
		return model.UserData{}, err
	}
	defer s.lock(id)()
	cur, err := s.load(ctx, u)
	if err != nil {
		return model.UserData{}, err
	}
	next := cur.Clone()
	if err := fn(&next); err != nil {
		return model.UserData{}, err
	}
	if err := s.store.Save(ctx, id, next); err != nil {
		return model.UserData{}, err
	}
	s.cache.Put(id, next)
	return next, nil
}

// ReplaceRoutine stores r as the user's routine for event. Skills without a
// name are dropped.
func (s *Service) ReplaceRoutine(ctx context.Context, userID string, event model.Event, r model.Routine) (model.Routine, error) {
	if !event.Valid() {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownEvent, event)
	}
	for _, sk := range r {
		if err := sk.Value.Validate(); err != nil {
			return nil, fmt.Errorf("skill %q: %w", sk.Name, err)
		}
	}
	clean := routine.CleanRoutine(r)
	if _, err := s.mutate(ctx, userID, func(d *model.UserData) error {
		d.ReplaceRoutine(event, clean)
		return nil
	}); err != nil {
		return nil, err
	}
	metrics.RecordRoutineReplaced(event.String())
	return clean, nil
}

// Routine returns the user's routine for event. When none is stored it returns
// the "Skill 1..N" editing template and stored is false.
func (s *Service) Routine(ctx context.Context, userID string, event model.Event) (r model.Routine, stored bool, err error) {
	if !event.Valid() {
		return nil, false, fmt.Errorf("%w: %q", model.ErrUnknownEvent, event)
	}
	data, err := s.LoadUser(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	if stored := data.Routines[event]; len(stored) > 0 {
		return slices.Clone(stored), true, nil
	}
	return routine.Placeholder(event), false, nil
}

// Lineup resolves the user's routine for event into primary and alternate
// skills.
func (s *Service) Lineup(ctx context.Context, userID string, event model.Event) (routine.Lineup, error) {
	if !event.Valid() {
		return routine.Lineup{}, fmt.Errorf("%w: %q", model.ErrUnknownEvent, event)
	}
	data, err := s.LoadUser(ctx, userID)
	if err != nil {
		return routine.Lineup{}, err
	}
	return routine.Resolve(event, data.Routines), nil
}

// SubmittableEvents lists the events the user has a routine for.
func (s *Service) SubmittableEvents(ctx context.Context, userID string) ([]model.Event, error) {
	data, err := s.LoadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return routine.SubmittableEvents(data.Routines), nil
}

// ListSubmissions returns the user's submissions matching q.
func (s *Service) ListSubmissions(ctx context.Context, userID string, q types.ListQuery) ([]model.Submission, error) {
	if q.WindowDays < 0 {
		return nil, ErrBadWindow
	}
	if q.Event != "" && !q.Event.Valid() {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownEvent, q.Event)
	}
	data, err := s.LoadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	f := stats.Filter{Event: q.Event, WindowDays: q.WindowDays, Now: s.now()}
	out := make([]model.Submission, 0, len(data.Submissions))
	for _, sub := range data.Submissions {
		if f.Match(userID, sub) {
			out = append(out, sub)
		}
	}
	switch q.Order {
	case "", types.OrderNewest:
		model.SortNewestFirst(out)
	case types.OrderOldest:
		model.SortOldestFirst(out)
	default:
		return nil, fmt.Errorf("%w: %q", ErrBadOrder, q.Order)
	}
	return out, nil
}

// CreateSubmission builds a draft from the user's routine, applies swaps and
// deductions, finalizes it and prepends it to the user's history.
func (s *Service) CreateSubmission(ctx context.Context, userID string, req types.SubmissionRequest) (model.Submission, error) {
	if _, err := s.user(userID); err != nil {
		return model.Submission{}, err
	}
	for i, d := range req.Deductions {
		if err := d.Validate(); err != nil {
			return model.Submission{}, fmt.Errorf("deduction %d: %w", i, err)
		}
	}
	if req.IdempotencyKey != "" {
		key := userID + "/" + req.IdempotencyKey
		if s.deduper.SeenAndRecord(ctx, key) {
			metrics.RecordSubmissionDuplicate()
			return model.Submission{}, fmt.Errorf("%w: %s", ErrDuplicateSubmission, req.IdempotencyKey)
		}
		sub, err := s.createSubmission(ctx, userID, req)
		if err != nil {
			s.deduper.Unrecord(ctx, key)
		}
		return sub, err
	}
	return s.createSubmission(ctx, userID, req)
}

func (s *Service) createSubmission(ctx context.Context, userID string, req types.SubmissionRequest) (model.Submission, error) {
	var sub model.Submission
	_, err := s.mutate(ctx, userID, func(d *model.UserData) error {
		draft, err := routine.NewDraft(routine.Resolve(req.Event, d.Routines))
		if err != nil {
			return err
		}
		for _, sw := range req.Swaps {
			if err := draft.Swap(sw.Slot, sw.Alternate); err != nil {
				return err
			}
		}
		for i, ded := range req.Deductions {
			if err := draft.SetDeduction(i, ded); err != nil {
				return err
			}
		}
		sub = draft.Finalize(d.NextID(s.now()), req.StuckDismount)
		d.Prepend(sub)
		return nil
	})
	if err != nil {
		return model.Submission{}, err
	}
	metrics.RecordSubmission(sub.Event.String(), sub.IsComplete)
	s.logger.Debug(ctx, "submission recorded",
		logger.String("user_id", userID),
		logger.String("id", sub.ID.String()),
		logger.String("event", sub.Event.String()),
		logger.Bool("complete", sub.IsComplete),
		logger.Int("skills", len(sub.Skills)),
	)
	return sub, nil
}

// DeleteSubmission removes one submission from the user's history.
func (s *Service) DeleteSubmission(ctx context.Context, userID string, id model.SubmissionID) error {
	_, err := s.mutate(ctx, userID, func(d *model.UserData) error {
		if !d.RemoveSubmission(id) {
			return fmt.Errorf("%w: %s", ErrSubmissionNotFound, id)
		}
		return nil
	})
	if err != nil {
		return err
	}
	metrics.RecordSubmissionDeleted()
	return nil
}

// snapshot returns the cached snapshot, refreshing it first when stale.
func (s *Service) snapshot(ctx context.Context) (cache.Snapshot, error) {
	snap := s.cache.Snapshot()
	if !snap.Stale(s.now(), s.cacheMaxAge) {
		return snap, nil
	}
	return s.cache.RefreshAll(ctx)
}

// Refresh reloads every user into the cache.
func (s *Service) Refresh(ctx context.Context) (types.Coverage, error) {
	snap, err := s.cache.RefreshAll(ctx)
	if err != nil {
		return types.Coverage{}, err
	}
	return coverage(snap), nil
}

func coverage(snap cache.Snapshot) types.Coverage {
	return types.Coverage{RefreshedAt: snap.RefreshedAt, Incomplete: snap.Incomplete(), Missing: snap.Missing}
}

func (s *Service) statsFilter(q types.StatsQuery) (stats.Filter, error) {
	if q.WindowDays < 0 {
		return stats.Filter{}, ErrBadWindow
	}
	if q.Event != "" && !q.Event.Valid() {
		return stats.Filter{}, fmt.Errorf("%w: %q", model.ErrUnknownEvent, q.Event)
	}
	if q.UserID != "" {
		if _, err := s.user(q.UserID); err != nil {
			return stats.Filter{}, err
		}
	}
	return stats.Filter{Event: q.Event, WindowDays: q.WindowDays, Now: s.now(), UserID: q.UserID}, nil
}

// Breakdown averages numeric deductions per skill over the cached snapshot.
func (s *Service) Breakdown(ctx context.Context, q types.StatsQuery) (types.BreakdownResult, error) {
	f, err := s.statsFilter(q)
	if err != nil {
		return types.BreakdownResult{}, err
	}
	snap, err := s.snapshot(ctx)
	if err != nil {
		return types.BreakdownResult{}, err
	}
	return types.BreakdownResult{
		Rows:     stats.Breakdown(snap.Data.Entries(s.roster), f),
		Coverage: coverage(snap),
	}, nil
}

// Comparison averages one skill, or dismounts, per user. A requested skill
// that no longer appears in the filtered set falls back to the default.
func (s *Service) Comparison(ctx context.Context, q types.StatsQuery) (types.ComparisonResult, error) {
	q.UserID = ""
	f, err := s.statsFilter(q)
	if err != nil {
		return types.ComparisonResult{}, err
	}
	snap, err := s.snapshot(ctx)
	if err != nil {
		return types.ComparisonResult{}, err
	}
	entries := snap.Data.Entries(s.roster)
	skills := stats.SkillsInEvent(entries, f)
	res := types.ComparisonResult{Dismounts: q.Dismounts, Skills: skills, Coverage: coverage(snap)}
	target := stats.Target{Dismounts: q.Dismounts}
	if !q.Dismounts {
		res.Skill = stats.ResolveSkill(q.Skill, skills)
		target.Skill = res.Skill
	}
	res.Rows = stats.Compare(entries, f, target)
	return res, nil
}

// Suggest asks the collaborator for advice on skills. Failures come back in
// the result, never as an error.
func (s *Service) Suggest(ctx context.Context, event model.Event, skills []model.SubmissionSkill) (suggest.Result, error) {
	if !event.Valid() {
		return suggest.Result{}, fmt.Errorf("%w: %q", model.ErrUnknownEvent, event)
	}
	return s.gateway.Request(ctx, event, skills), nil
}

// Export renders every cached user record as a workbook.
func (s *Service) Export(ctx context.Context) ([]byte, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return export.Workbook(snap.Data.Entries(s.roster))
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.cache.Snapshot()
	return map[string]any{
		"started":         s.started,
		"users":           len(s.roster),
		"cachedUsers":     len(snap.Data),
		"cacheIncomplete": snap.Incomplete(),
		"cacheRefreshed":  snap.RefreshedAt,
		"dedupeSize":      s.dedupeSize,
		"dedupeKeys":      s.deduper.Size(),
	}
}
