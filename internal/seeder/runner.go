package seeder

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/routinerec/internal/domain/model"
	"github.com/okian/routinerec/pkg/logger"
)

// Runner executes seeding runs against one service.
type Runner struct {
	cfg    Config
	client *Client
	log    logger.Logger
}

// NewRunner validates cfg and builds a runner. hc may be nil.
func NewRunner(cfg Config, hc *http.Client, log logger.Logger) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	if log == nil {
		log = logger.Get().Named("seeder")
	}
	return &Runner{cfg: cfg, client: NewClient(cfg.BaseURL, cfg.Password, hc), log: log}, nil
}

// Run seeds routines, records sessions, replays some of them and verifies
// the breakdown of every seeded user.
func (r *Runner) Run(ctx context.Context) (Stats, error) {
	stats := Stats{StartTime: time.Now()}

	r.log.Info(ctx, "starting seeding run",
		logger.String("baseURL", r.cfg.BaseURL),
		logger.Int("sessions", r.cfg.Sessions),
		logger.Int("workers", r.cfg.Workers),
		logger.Any("events", r.cfg.Events),
	)

	if err := r.client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	users, err := r.users(ctx)
	if err != nil {
		return stats, fmt.Errorf("list users: %w", err)
	}
	stats.Users = len(users)

	plan := Generate(r.cfg, users)
	stats.SessionsGenerated = len(plan.Sessions)

	for _, id := range users {
		for _, e := range r.cfg.Events {
			if err := r.client.PutRoutine(ctx, id, e, plan.Routines[id][e]); err != nil {
				return stats, fmt.Errorf("store routine %s/%s: %w", id, e, err)
			}
			stats.RoutinesStored++
		}
	}

	recorded, err := r.submit(ctx, plan.Sessions, &stats)
	if err != nil {
		return stats, fmt.Errorf("record sessions: %w", err)
	}
	if err := r.replay(ctx, plan.Replays, &stats); err != nil {
		return stats, fmt.Errorf("replay sessions: %w", err)
	}

	if _, err := r.client.Refresh(ctx); err != nil {
		return stats, fmt.Errorf("refresh: %w", err)
	}
	for _, id := range users {
		if err := r.verify(ctx, id, recorded[id]); err != nil {
			return stats, err
		}
		stats.BreakdownsVerified++
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	r.logStats(ctx, stats)
	return stats, nil
}

func (r *Runner) users(ctx context.Context) ([]string, error) {
	roster, err := r.client.Users(ctx)
	if err != nil {
		return nil, err
	}
	if len(roster) == 0 {
		return nil, errors.New("empty roster")
	}
	if r.cfg.Users > 0 && r.cfg.Users < len(roster) {
		roster = roster[:r.cfg.Users]
	}
	ids := make([]string, len(roster))
	for i, u := range roster {
		ids[i] = u.ID
	}
	return ids, nil
}

// submit records sessions with a bounded number of workers. It returns the
// ids the service assigned, per user.
func (r *Runner) submit(ctx context.Context, sessions []Session, stats *Stats) (map[string][]model.SubmissionID, error) {
	type result struct {
		user string
		id   model.SubmissionID
	}
	results := make([]result, len(sessions))
	var failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for i, s := range sessions {
		g.Go(func() error {
			sub, err := r.client.Submit(gctx, s.UserID, s.IdempotencyKey, s.Request)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed.Add(1)
				r.log.Warn(gctx, "session failed", logger.String("user", s.UserID), logger.Error(err))
				return nil
			}
			if r.cfg.Verbose {
				r.log.Debug(gctx, "session recorded", logger.String("user", s.UserID), logger.String("id", sub.ID.String()))
			}
			results[i] = result{user: s.UserID, id: sub.ID}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := map[string][]model.SubmissionID{}
	for _, res := range results {
		if res.id.IsZero() {
			continue
		}
		out[res.user] = append(out[res.user], res.id)
		stats.SessionsRecorded++
	}
	stats.SessionsFailed = int(failed.Load())
	if stats.SessionsFailed > 0 {
		return out, fmt.Errorf("%d of %d sessions failed", stats.SessionsFailed, len(sessions))
	}
	return out, nil
}

// replay resends sessions and expects every one to be refused.
func (r *Runner) replay(ctx context.Context, sessions []Session, stats *Stats) error {
	for _, s := range sessions {
		_, err := r.client.Submit(ctx, s.UserID, s.IdempotencyKey, s.Request)
		switch {
		case errors.Is(err, ErrDuplicate):
			stats.SessionsDuplicate++
		case err != nil:
			return err
		default:
			return fmt.Errorf("replayed key %s was recorded twice", s.IdempotencyKey)
		}
	}
	return nil
}

func (r *Runner) logStats(ctx context.Context, stats Stats) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.SessionsRecorded) / stats.Duration.Seconds()
	}
	r.log.Info(ctx, "final statistics",
		logger.Int("users", stats.Users),
		logger.Int("routinesStored", stats.RoutinesStored),
		logger.Int("sessionsGenerated", stats.SessionsGenerated),
		logger.Int("sessionsRecorded", stats.SessionsRecorded),
		logger.Int("sessionsDuplicate", stats.SessionsDuplicate),
		logger.Int("sessionsFailed", stats.SessionsFailed),
		logger.Int("breakdownsVerified", stats.BreakdownsVerified),
		logger.Duration("duration", stats.Duration),
		logger.Float64("sessionsPerSecond", perSecond),
	)
}
