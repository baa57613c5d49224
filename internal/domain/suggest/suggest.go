// Package suggest wraps the external coaching-suggestion collaborator.
package suggest

import (
	"context"
	"time"

	"github.com/okian/routinerec/internal/domain/model"
	"github.com/okian/routinerec/pkg/logger"
	"github.com/okian/routinerec/pkg/metrics"
)

// FailureMessage is the single user-visible error for any upstream failure.
const FailureMessage = "Failed to get AI suggestions."

const defaultTimeout = 20 * time.Second

// Skill is one scored skill handed to the collaborator.
type Skill struct {
	Name       string  `json:"name"`
	Value      float64 `json:"value"`
	Deduction  float64 `json:"deduction"`
	IsDismount bool    `json:"isDismount"`
}

// Suggester produces coaching suggestions. Implementations call out to an
// unreliable service and may fail or block.
type Suggester interface {
	Suggest(ctx context.Context, event model.Event, skills []Skill) ([]string, error)
}

// SuggesterFunc adapts a function to Suggester.
type SuggesterFunc func(ctx context.Context, event model.Event, skills []Skill) ([]string, error)

// Suggest implements Suggester.
func (f SuggesterFunc) Suggest(ctx context.Context, event model.Event, skills []Skill) ([]string, error) {
	return f(ctx, event, skills)
}

// Result is what callers render. Error is set instead of Suggestions on failure.
type Result struct {
	Suggestions []string `json:"suggestions"`
	Error       string   `json:"error,omitempty"`
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithTimeout bounds a single collaborator round trip.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithLogger sets the gateway logger.
func WithLogger(l logger.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.log = l
		}
	}
}

// Gateway filters input down to numeric skills, calls the collaborator once,
// and maps every failure to Result.Error.
type Gateway struct {
	upstream Suggester
	timeout  time.Duration
	log      logger.Logger
}

// NewGateway returns a gateway over upstream.
func NewGateway(upstream Suggester, opts ...Option) *Gateway {
	g := &Gateway{
		upstream: upstream,
		timeout:  defaultTimeout,
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Numeric keeps skills whose value and deduction are both numbers.
func Numeric(skills []model.SubmissionSkill) []Skill {
	out := make([]Skill, 0, len(skills))
	for _, s := range skills {
		v, okV := s.Value.Float()
		d, okD := s.Deduction.Float()
		if !okV || !okD {
			continue
		}
		out = append(out, Skill{Name: s.Name, Value: v, Deduction: d, IsDismount: s.IsDismount})
	}
	return out
}

// Request asks for suggestions. It never returns an error: empty input yields
// an empty result without an upstream call, and upstream failure or
// cancellation yields Result{Error: FailureMessage}. There is no retry.
func (g *Gateway) Request(ctx context.Context, event model.Event, skills []model.SubmissionSkill) Result {
	in := Numeric(skills)
	if len(in) == 0 {
		metrics.RecordSuggestion("empty", 0)
		return Result{Suggestions: []string{}}
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	out, err := g.upstream.Suggest(ctx, event, in)
	took := time.Since(start)
	if err == nil && ctx.Err() != nil {
		// A reply that raced the deadline is stale.
		err = ctx.Err()
	}
	if err != nil {
		metrics.RecordSuggestion("failed", float64(took.Milliseconds()))
		g.log.Warn(ctx, "suggestion request failed",
			logger.String("event", event.String()),
			logger.Int("skills", len(in)),
			logger.Duration("took", took),
			logger.Error(err),
		)
		return Result{Error: FailureMessage}
	}

	metrics.RecordSuggestion("ok", float64(took.Milliseconds()))
	if out == nil {
		out = []string{}
	}
	return Result{Suggestions: out}
}
