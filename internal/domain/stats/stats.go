// Package stats aggregates submitted deductions into per-skill breakdowns and
// per-user comparisons.
package stats

import (
	"cmp"
	"math"
	"slices"
	"time"

	"github.com/okian/routinerec/internal/domain/model"
)

// Filter narrows the submissions fed to aggregation. Zero fields do not filter.
type Filter struct {
	// Event keeps submissions for one event.
	Event model.Event
	// WindowDays keeps submissions strictly after Now minus that many days.
	WindowDays int
	// Now anchors the window.
	Now time.Time
	// UserID restricts to one user.
	UserID string
}

// Cutoff returns the window start and whether a window applies.
func (f Filter) Cutoff() (time.Time, bool) {
	if f.WindowDays <= 0 {
		return time.Time{}, false
	}
	return f.Now.AddDate(0, 0, -f.WindowDays), true
}

// Match reports whether s, submitted by userID, passes the filter.
func (f Filter) Match(userID string, s model.Submission) bool {
	if f.UserID != "" && f.UserID != userID {
		return false
	}
	if f.Event != "" && s.Event != f.Event {
		return false
	}
	if cutoff, ok := f.Cutoff(); ok && !s.Timestamp.After(cutoff) {
		return false
	}
	return true
}

// Average is one aggregated row.
type Average struct {
	Name    string  `json:"name"`
	Average float64 `json:"avg"`
	Count   int     `json:"count"`
}

// UserAverage is one comparison row.
type UserAverage struct {
	UserID string `json:"userId"`
	Average
}

// Round2 rounds to two decimal places for display.
func Round2(f float64) float64 {
	return math.Round(f*100) / 100
}

type group struct {
	name  string
	sum   float64
	count int
}

func (g group) average() Average {
	return Average{Name: g.name, Average: Round2(g.sum / float64(g.count)), Count: g.count}
}

// Breakdown averages numeric deductions per skill name across the filtered
// submissions, sorted by descending average. Ties keep first-seen order.
func Breakdown(entries []model.UserEntry, f Filter) []Average {
	idx := map[string]int{}
	var groups []group
	for _, e := range entries {
		for _, s := range e.Data.Submissions {
			if !f.Match(e.User.ID, s) {
				continue
			}
			for _, sk := range s.Skills {
				d, ok := sk.Deduction.Float()
				if !ok {
					continue
				}
				i, seen := idx[sk.Name]
				if !seen {
					i = len(groups)
					idx[sk.Name] = i
					groups = append(groups, group{name: sk.Name})
				}
				groups[i].sum += d
				groups[i].count++
			}
		}
	}

	out := make([]Average, 0, len(groups))
	for _, g := range groups {
		if g.count > 0 {
			out = append(out, g.average())
		}
	}
	slices.SortStableFunc(out, func(a, b Average) int { return cmp.Compare(b.Average, a.Average) })
	return out
}

// Target picks what a comparison measures: one skill by name, or dismounts.
type Target struct {
	Skill     string
	Dismounts bool
}

// Compare averages numeric deductions per user for the target. Dismount rows
// are labelled "name (skill)" using the user's most recent dismount. The
// filter's UserID is ignored since every user is compared. A skill absent
// from the filtered set yields no rows.
func Compare(entries []model.UserEntry, f Filter, t Target) []UserAverage {
	f.UserID = ""
	out := make([]UserAverage, 0, len(entries))
	for _, e := range entries {
		g := group{}
		var latest model.SubmissionID
		var label string
		var found bool
		for _, s := range e.Data.Submissions {
			if !f.Match(e.User.ID, s) {
				continue
			}
			for _, sk := range s.Skills {
				d, ok := sk.Deduction.Float()
				if !ok {
					continue
				}
				if t.Dismounts {
					if !sk.IsDismount {
						continue
					}
					if !found || s.ID.Compare(latest) > 0 {
						latest, label, found = s.ID, sk.Name, true
					}
				} else if t.Skill == "" || sk.Name != t.Skill {
					continue
				}
				g.sum += d
				g.count++
			}
		}
		if g.count == 0 {
			continue
		}
		g.name = displayName(e)
		if t.Dismounts {
			g.name += " (" + label + ")"
		}
		out = append(out, UserAverage{UserID: e.User.ID, Average: g.average()})
	}
	slices.SortStableFunc(out, func(a, b UserAverage) int { return cmp.Compare(b.Average.Average, a.Average.Average) })
	return out
}

func displayName(e model.UserEntry) string {
	if e.Data.DisplayName != "" {
		return e.Data.DisplayName
	}
	if e.User.DisplayName != "" {
		return e.User.DisplayName
	}
	return e.User.ID
}

// SkillsInEvent lists distinct skill names in the filtered submissions,
// alphabetically. The filter's UserID is ignored.
func SkillsInEvent(entries []model.UserEntry, f Filter) []string {
	f.UserID = ""
	set := map[string]struct{}{}
	for _, e := range entries {
		for _, s := range e.Data.Submissions {
			if !f.Match(e.User.ID, s) {
				continue
			}
			for _, sk := range s.Skills {
				set[sk.Name] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// DefaultSkill returns the first skill alphabetically, or "" if none.
func DefaultSkill(skills []string) string {
	if len(skills) == 0 {
		return ""
	}
	return skills[0]
}

// ResolveSkill keeps selected when it is still available, otherwise falls
// back to DefaultSkill.
func ResolveSkill(selected string, available []string) string {
	if selected != "" && slices.Contains(available, selected) {
		return selected
	}
	return DefaultSkill(available)
}
