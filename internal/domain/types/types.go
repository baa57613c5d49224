// Package types holds the request and result shapes shared by the service
// and its HTTP surface.
package types

import (
	"time"

	"github.com/okian/routinerec/internal/domain/model"
	"github.com/okian/routinerec/internal/domain/stats"
)

// Order of a submission listing.
const (
	OrderNewest = "newest"
	OrderOldest = "oldest"
)

// Swap puts alternate Alternate into primary slot Slot.
type Swap struct {
	Slot      int `json:"slot"`
	Alternate int `json:"alternate"`
}

// SubmissionRequest describes a submission built from the user's stored
// routine. Swaps apply first, in order; Deductions then score slots by index.
type SubmissionRequest struct {
	Event         model.Event       `json:"event"`
	Swaps         []Swap            `json:"swaps"`
	Deductions    []model.Deduction `json:"deductions"`
	StuckDismount *bool             `json:"stuckDismount,omitempty"`
	// IdempotencyKey, when set, makes a replayed request fail with
	// ErrDuplicateSubmission instead of recording twice.
	IdempotencyKey string `json:"-"`
}

// ListQuery filters a user's submissions.
type ListQuery struct {
	Event      model.Event
	WindowDays int
	Order      string
}

// StatsQuery filters aggregation.
type StatsQuery struct {
	Event      model.Event
	WindowDays int
	UserID     string
	Skill      string
	Dismounts  bool
}

// Coverage reports which snapshot an aggregate was computed from.
type Coverage struct {
	RefreshedAt time.Time `json:"refreshedAt"`
	Incomplete  bool      `json:"incomplete"`
	Missing     []string  `json:"missing,omitempty"`
}

// BreakdownResult is the per-skill breakdown.
type BreakdownResult struct {
	Rows []stats.Average `json:"rows"`
	Coverage
}

// ComparisonResult is the per-user comparison for one skill or dismounts.
type ComparisonResult struct {
	// Skill is the compared skill after falling back to the default.
	Skill     string              `json:"skill,omitempty"`
	Dismounts bool                `json:"dismounts"`
	Skills    []string            `json:"skills"`
	Rows      []stats.UserAverage `json:"rows"`
	Coverage
}
