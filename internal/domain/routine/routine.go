// Package routine derives submittable lineups from routine templates and
// turns a scored lineup into a Submission.
package routine

import (
	"strconv"
	"strings"

	"github.com/okian/routinerec/internal/domain/model"
)

// Lineup is the resolver output for one event.
type Lineup struct {
	Event      model.Event   `json:"event"`
	Primary    model.Routine `json:"primary"`
	Alternates model.Routine `json:"alternates"`
}

// Resolve splits the stored routine for event into its primary lineup and
// alternates. Unknown events and missing routines yield empty lists.
// The returned slices never alias routines.
func Resolve(event model.Event, routines map[model.Event]model.Routine) Lineup {
	l := Lineup{Event: event, Primary: model.Routine{}, Alternates: model.Routine{}}
	if !event.Valid() {
		return l
	}
	r := routines[event]
	n := min(event.RequiredCount(), len(r))
	l.Primary = append(l.Primary, r[:n]...)
	l.Alternates = append(l.Alternates, r[n:]...)
	return l
}

// SubmittableEvents lists events with a non-empty routine, in canonical order.
func SubmittableEvents(routines map[model.Event]model.Routine) []model.Event {
	out := make([]model.Event, 0, len(routines))
	for _, e := range model.Events() {
		if len(routines[e]) > 0 {
			out = append(out, e)
		}
	}
	return out
}

// IsDismount tags the last primary slot of non-vault events and any skill
// whose name mentions a dismount.
func IsDismount(event model.Event, index int, name string) bool {
	if !event.IsVault() && index == event.RequiredCount()-1 {
		return true
	}
	return strings.Contains(strings.ToLower(name), "dismount")
}

// IsComplete holds when the lineup reaches the required count and every skill
// carries a numeric deduction.
func IsComplete(event model.Event, skills []model.SubmissionSkill) bool {
	if len(skills) < event.RequiredCount() {
		return false
	}
	for _, s := range skills {
		if !s.Deduction.IsValue() {
			return false
		}
	}
	return true
}

// CleanRoutine drops skills without a name, as the routine editor does.
func CleanRoutine(r model.Routine) model.Routine {
	out := make(model.Routine, 0, len(r))
	for _, s := range r {
		s.Name = strings.TrimSpace(s.Name)
		if s.Name == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Placeholder returns the "Skill 1..N" template shown for an event with no routine.
func Placeholder(event model.Event) model.Routine {
	n := event.RequiredCount()
	out := make(model.Routine, n)
	for i := range out {
		out[i] = model.Skill{Name: "Skill " + strconv.Itoa(i+1)}
	}
	return out
}
