package routine

import (
	"fmt"

	"github.com/okian/routinerec/internal/domain/model"
)

// Draft is a submission in progress: the primary lineup with deductions
// being filled in and alternates swapped into slots.
type Draft struct {
	event      model.Event
	alternates model.Routine
	working    []model.SubmissionSkill
}

// NewDraft starts a submission from a resolved lineup. Every deduction starts
// as not applicable until scored.
func NewDraft(l Lineup) (*Draft, error) {
	if !l.Event.Valid() {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownEvent, l.Event)
	}
	if len(l.Primary) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotSubmittable, l.Event)
	}
	d := &Draft{
		event:      l.Event,
		alternates: l.Alternates.Clone(),
		working:    make([]model.SubmissionSkill, len(l.Primary)),
	}
	for i, s := range l.Primary {
		d.working[i] = model.SubmissionSkill{
			Name:      s.Name,
			Value:     s.Value,
			Deduction: model.NotApplicable(),
		}
	}
	return d, nil
}

// Event returns the draft's event.
func (d *Draft) Event() model.Event { return d.event }

// Len is the primary lineup length.
func (d *Draft) Len() int { return len(d.working) }

// Working returns a copy of the working skill list.
func (d *Draft) Working() []model.SubmissionSkill {
	out := make([]model.SubmissionSkill, len(d.working))
	copy(out, d.working)
	return out
}

// Alternates returns a copy of the swappable skills.
func (d *Draft) Alternates() model.Routine { return d.alternates.Clone() }

// Swap puts alternate alt into slot. Name and value are replaced and the
// slot's deduction is reset to unset. Alternates are not consumed.
func (d *Draft) Swap(slot, alt int) error {
	if err := d.checkSlot(slot); err != nil {
		return err
	}
	if alt < 0 || alt >= len(d.alternates) {
		return fmt.Errorf("%w: %d of %d", ErrNoSuchAlternate, alt, len(d.alternates))
	}
	a := d.alternates[alt]
	d.working[slot] = model.SubmissionSkill{
		Name:      a.Name,
		Value:     a.Value,
		Deduction: model.Unset(),
	}
	return nil
}

// SetDeduction scores slot.
func (d *Draft) SetDeduction(slot int, ded model.Deduction) error {
	if err := d.checkSlot(slot); err != nil {
		return err
	}
	d.working[slot].Deduction = ded
	return nil
}

func (d *Draft) checkSlot(slot int) error {
	if slot < 0 || slot >= len(d.working) {
		return fmt.Errorf("%w: %d of %d", ErrSlotOutOfRange, slot, len(d.working))
	}
	return nil
}

// Complete reports whether the draft would be saved as complete.
func (d *Draft) Complete() bool { return IsComplete(d.event, d.working) }

// Finalize tags dismounts on the post-swap lineup, fixes the completeness
// flag, and keeps only the skills that were scored. stuck is recorded for
// non-vault events only.
func (d *Draft) Finalize(id model.SubmissionID, stuck *bool) model.Submission {
	tagged := d.Working()
	for i := range tagged {
		tagged[i].IsDismount = IsDismount(d.event, i, tagged[i].Name)
	}

	sub := model.Submission{
		ID:         id,
		Event:      d.event,
		Timestamp:  id.CreatedAt.UTC(),
		IsComplete: IsComplete(d.event, tagged),
		Skills:     make([]model.SubmissionSkill, 0, len(tagged)),
	}
	for _, s := range tagged {
		if s.Deduction.IsValue() {
			sub.Skills = append(sub.Skills, s)
		}
	}
	if stuck != nil && !d.event.IsVault() {
		v := *stuck
		sub.StuckDismount = &v
	}
	return sub
}
