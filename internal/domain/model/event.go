// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
)

// Event is an apparatus code.
type Event string

// Known events in canonical display order.
const (
	FX Event = "FX" // floor
	PH Event = "PH" // pommel horse
	SR Event = "SR" // still rings
	VT Event = "VT" // vault
	PB Event = "PB" // parallel bars
	HB Event = "HB" // high bar
)

// Primary lineup sizes.
const (
	VaultRequiredCount   = 2
	DefaultRequiredCount = 8
)

var events = []Event{FX, PH, SR, VT, PB, HB}

// Events returns every known event in canonical order.
func Events() []Event {
	out := make([]Event, len(events))
	copy(out, events)
	return out
}

// Valid reports whether e is one of the six known codes.
func (e Event) Valid() bool {
	for _, k := range events {
		if e == k {
			return true
		}
	}
	return false
}

// IsVault reports whether e is the vault-type event.
func (e Event) IsVault() bool { return e == VT }

// RequiredCount is the primary lineup size for e.
func (e Event) RequiredCount() int {
	if e.IsVault() {
		return VaultRequiredCount
	}
	return DefaultRequiredCount
}

func (e Event) String() string { return string(e) }

// ParseEvent accepts a case-insensitive event code.
func ParseEvent(s string) (Event, error) {
	e := Event(strings.ToUpper(strings.TrimSpace(s)))
	if !e.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownEvent, s)
	}
	return e, nil
}
