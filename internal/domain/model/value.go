package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

var jsonNull = []byte("null")

// Value is an optional non-negative difficulty score. The zero Value is absent.
type Value struct {
	n   float64
	set bool
}

// ValueOf returns a present value.
func ValueOf(f float64) Value { return Value{n: f, set: true} }

// NoValue returns an absent value.
func NoValue() Value { return Value{} }

// IsSet reports whether the value is present.
func (v Value) IsSet() bool { return v.set }

// Float returns the number and whether it is present.
func (v Value) Float() (float64, bool) { return v.n, v.set }

// Validate rejects non-finite and negative scores.
func (v Value) Validate() error {
	if !v.set {
		return nil
	}
	if !finite(v.n) {
		return fmt.Errorf("%w: %v", ErrBadValue, v.n)
	}
	if v.n < 0 {
		return fmt.Errorf("%w: value %v", ErrNegativeNumber, v.n)
	}
	return nil
}

// Equal reports whether both values are absent or hold the same number.
func (v Value) Equal(o Value) bool { return v.set == o.set && v.n == o.n }

func (v Value) String() string {
	if !v.set {
		return ""
	}
	return strconv.FormatFloat(v.n, 'f', -1, 64)
}

// MarshalJSON encodes an absent value as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.set {
		return jsonNull, nil
	}
	return json.Marshal(v.n)
}

// UnmarshalJSON accepts a number, null, or a string. The empty string is the
// legacy encoding of an absent value; other strings must parse as numbers.
func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, jsonNull) {
		*v = Value{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("%w: %w", ErrBadValue, err)
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*v = Value{}
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || !finite(f) {
			return fmt.Errorf("%w: %q", ErrBadValue, s)
		}
		*v = ValueOf(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("%w: %w", ErrBadValue, err)
	}
	*v = ValueOf(f)
	return nil
}
