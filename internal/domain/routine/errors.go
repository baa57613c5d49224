package routine

import "errors"

// Sentinel kinds returned by Draft.
var (
	ErrNotSubmittable  = errors.New("event has no routine to submit")
	ErrSlotOutOfRange  = errors.New("slot out of range")
	ErrNoSuchAlternate = errors.New("no such alternate")
)
