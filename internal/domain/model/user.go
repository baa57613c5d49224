package model

import (
	"maps"
	"time"
)

// User is a roster entry.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"name"`
}

// UserData is the full persisted record for one user.
type UserData struct {
	DisplayName string            `json:"userName"`
	Routines    map[Event]Routine `json:"routines"`
	// Submissions are kept newest first.
	Submissions []Submission `json:"submissions"`
	// NextSeq is the last issued submission sequence number.
	NextSeq uint64 `json:"nextSeq"`
}

// NewUserData returns an empty record seeded with the display name.
func NewUserData(displayName string) UserData {
	return UserData{
		DisplayName: displayName,
		Routines:    map[Event]Routine{},
		Submissions: []Submission{},
	}
}

// Clone returns a deep copy so mutations never leak into a shared record.
func (u UserData) Clone() UserData {
	out := u
	out.Routines = make(map[Event]Routine, len(u.Routines))
	for e, r := range u.Routines {
		out.Routines[e] = r.Clone()
	}
	out.Submissions = make([]Submission, len(u.Submissions))
	for i, s := range u.Submissions {
		out.Submissions[i] = s.Clone()
	}
	return out
}

// Normalize fills nil collections so the record encodes as {} and [].
func (u *UserData) Normalize() {
	if u.Routines == nil {
		u.Routines = map[Event]Routine{}
	}
	if u.Submissions == nil {
		u.Submissions = []Submission{}
	}
}

// Routine returns the stored routine for e, or nil.
func (u UserData) Routine(e Event) Routine {
	return u.Routines[e]
}

// ReplaceRoutine swaps the whole routine for e.
func (u *UserData) ReplaceRoutine(e Event, r Routine) {
	u.Normalize()
	u.Routines[e] = r.Clone()
}

// NextID issues a fresh submission id.
func (u *UserData) NextID(now time.Time) SubmissionID {
	u.NextSeq++
	return SubmissionID{CreatedAt: now.UTC(), Seq: u.NextSeq}
}

// Prepend adds s as the most recent submission.
func (u *UserData) Prepend(s Submission) {
	u.Submissions = append([]Submission{s}, u.Submissions...)
}

// RemoveSubmission deletes the submission with id and reports whether it existed.
func (u *UserData) RemoveSubmission(id SubmissionID) bool {
	for i, s := range u.Submissions {
		if s.ID.Compare(id) == 0 {
			u.Submissions = append(u.Submissions[:i:i], u.Submissions[i+1:]...)
			return true
		}
	}
	return false
}

// FindSubmission looks a submission up by id.
func (u UserData) FindSubmission(id SubmissionID) (Submission, bool) {
	for _, s := range u.Submissions {
		if s.ID.Compare(id) == 0 {
			return s, true
		}
	}
	return Submission{}, false
}

// AppData maps user id to that user's record.
type AppData map[string]UserData

// Clone returns a shallow copy of the map. Records are values; callers must
// not mutate their slices.
func (a AppData) Clone() AppData {
	return maps.Clone(a)
}

// UserEntry pairs a roster user with their record.
type UserEntry struct {
	User User
	Data UserData
}

// Entries lists the records present in a, in roster order.
func (a AppData) Entries(roster []User) []UserEntry {
	out := make([]UserEntry, 0, len(roster))
	for _, u := range roster {
		d, ok := a[u.ID]
		if !ok {
			continue
		}
		out = append(out, UserEntry{User: u, Data: d})
	}
	return out
}
