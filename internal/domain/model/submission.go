package model

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Skill is one entry of a routine template.
type Skill struct {
	Name  string `json:"name"`
	Value Value  `json:"value"`
}

// Routine is an ordered skill template for one event. The first
// RequiredCount entries are the primary lineup, the rest are alternates.
type Routine []Skill

// Clone returns an independent copy.
func (r Routine) Clone() Routine {
	if r == nil {
		return nil
	}
	return slices.Clone(r)
}

// SubmissionSkill is one scored skill in a submission.
type SubmissionSkill struct {
	Name       string    `json:"name"`
	Value      Value     `json:"value"`
	Deduction  Deduction `json:"deduction"`
	IsDismount bool      `json:"isDismount"`
}

// SubmissionID orders submissions by creation time, with a per-user sequence
// number breaking ties.
type SubmissionID struct {
	CreatedAt time.Time
	Seq       uint64
}

// IsZero reports whether id is unset.
func (id SubmissionID) IsZero() bool { return id.Seq == 0 && id.CreatedAt.IsZero() }

// Compare returns -1, 0 or +1 ordering by (CreatedAt, Seq).
func (id SubmissionID) Compare(o SubmissionID) int {
	if c := id.CreatedAt.Compare(o.CreatedAt); c != 0 {
		return c
	}
	switch {
	case id.Seq < o.Seq:
		return -1
	case id.Seq > o.Seq:
		return 1
	default:
		return 0
	}
}

func (id SubmissionID) String() string {
	return strconv.FormatInt(id.CreatedAt.UnixNano(), 10) + "-" + strconv.FormatUint(id.Seq, 10)
}

// MarshalText implements encoding.TextMarshaler.
func (id SubmissionID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *SubmissionID) UnmarshalText(b []byte) error {
	parsed, err := ParseSubmissionID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseSubmissionID parses the "<unixnano>-<seq>" text form.
func ParseSubmissionID(s string) (SubmissionID, error) {
	ts, seq, ok := strings.Cut(s, "-")
	if !ok {
		return SubmissionID{}, fmt.Errorf("%w: %q", ErrBadID, s)
	}
	nanos, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return SubmissionID{}, fmt.Errorf("%w: %q", ErrBadID, s)
	}
	n, err := strconv.ParseUint(seq, 10, 64)
	if err != nil {
		return SubmissionID{}, fmt.Errorf("%w: %q", ErrBadID, s)
	}
	return SubmissionID{CreatedAt: time.Unix(0, nanos).UTC(), Seq: n}, nil
}

// Submission is one scored attempt at a routine. IsComplete is fixed at
// creation and never recomputed.
type Submission struct {
	ID            SubmissionID      `json:"id"`
	Event         Event             `json:"event"`
	Timestamp     time.Time         `json:"timestamp"`
	IsComplete    bool              `json:"isComplete"`
	Skills        []SubmissionSkill `json:"skills"`
	StuckDismount *bool             `json:"stuckDismount,omitempty"`
}

// Clone returns an independent copy.
func (s Submission) Clone() Submission {
	s.Skills = slices.Clone(s.Skills)
	if s.StuckDismount != nil {
		v := *s.StuckDismount
		s.StuckDismount = &v
	}
	return s
}

// Stuck reports the stuck-dismount flag, false when unrecorded.
func (s Submission) Stuck() bool {
	return s.StuckDismount != nil && *s.StuckDismount
}

// SortNewestFirst orders submissions by descending id.
func SortNewestFirst(subs []Submission) {
	slices.SortStableFunc(subs, func(a, b Submission) int { return b.ID.Compare(a.ID) })
}

// SortOldestFirst orders submissions by ascending id.
func SortOldestFirst(subs []Submission) {
	slices.SortStableFunc(subs, func(a, b Submission) int { return a.ID.Compare(b.ID) })
}
