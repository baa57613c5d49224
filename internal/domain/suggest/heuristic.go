package suggest

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/okian/routinerec/internal/domain/model"
)

const (
	defaultThreshold = 0.3
	defaultLimit     = 3
)

// HeuristicOption configures a Heuristic suggester.
type HeuristicOption func(*Heuristic)

// WithThreshold sets the deduction at or above which a skill is called out.
func WithThreshold(t float64) HeuristicOption {
	return func(h *Heuristic) {
		if t > 0 {
			h.threshold = t
		}
	}
}

// WithLimit caps the number of called-out skills.
func WithLimit(n int) HeuristicOption {
	return func(h *Heuristic) {
		if n > 0 {
			h.limit = n
		}
	}
}

// Heuristic is an offline Suggester used when no text-generation service is
// configured. It points at the costliest skills.
type Heuristic struct {
	threshold float64
	limit     int
}

// NewHeuristic creates a Heuristic suggester.
func NewHeuristic(opts ...HeuristicOption) *Heuristic {
	h := &Heuristic{threshold: defaultThreshold, limit: defaultLimit}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Suggest implements Suggester.
func (h *Heuristic) Suggest(ctx context.Context, event model.Event, skills []Skill) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	ranked := slices.Clone(skills)
	slices.SortStableFunc(ranked, func(a, b Skill) int { return cmp.Compare(b.Deduction, a.Deduction) })

	var total float64
	for _, s := range skills {
		total += s.Deduction
	}

	out := []string{fmt.Sprintf("%s: %.2f total deduction across %d scored skills.", event, total, len(skills))}
	for _, s := range ranked {
		if len(out) > h.limit || s.Deduction < h.threshold {
			break
		}
		kind := "skill"
		if s.IsDismount {
			kind = "dismount"
		}
		out = append(out, fmt.Sprintf("Focus on %s %q: %.2f deducted against a %.2f value.", kind, s.Name, s.Deduction, s.Value))
	}
	if len(out) == 1 {
		out = append(out, fmt.Sprintf("No skill reached %.2f in deductions; keep the routine as is.", h.threshold))
	}
	return out, nil
}
