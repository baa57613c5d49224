package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NotApplicableText is the wire form of a NotApplicable deduction.
const NotApplicableText = "N/A"

// DeductionKind discriminates Deduction.
type DeductionKind uint8

const (
	DeductionUnset DeductionKind = iota
	DeductionValue
	DeductionNotApplicable
)

// Deduction is a per-skill penalty: unset, a number, or explicitly not applicable.
// Only the numeric variant counts toward completeness and aggregation.
type Deduction struct {
	kind DeductionKind
	n    float64
}

// DeductionOf returns a numeric deduction.
func DeductionOf(f float64) Deduction { return Deduction{kind: DeductionValue, n: f} }

// Unset returns an unscored deduction.
func Unset() Deduction { return Deduction{} }

// NotApplicable returns the not-applicable marker.
func NotApplicable() Deduction { return Deduction{kind: DeductionNotApplicable} }

// Kind returns the variant.
func (d Deduction) Kind() DeductionKind { return d.kind }

// IsValue reports whether d carries a number.
func (d Deduction) IsValue() bool { return d.kind == DeductionValue }

// Float returns the number and whether d carries one.
func (d Deduction) Float() (float64, bool) { return d.n, d.kind == DeductionValue }

// Validate rejects non-finite and negative penalties.
func (d Deduction) Validate() error {
	if d.kind != DeductionValue {
		return nil
	}
	if !finite(d.n) {
		return fmt.Errorf("%w: %v", ErrBadDeduction, d.n)
	}
	if d.n < 0 {
		return fmt.Errorf("%w: deduction %v", ErrNegativeNumber, d.n)
	}
	return nil
}

// Equal reports whether both deductions are the same variant and number.
func (d Deduction) Equal(o Deduction) bool { return d.kind == o.kind && d.n == o.n }

func (d Deduction) String() string {
	switch d.kind {
	case DeductionValue:
		return strconv.FormatFloat(d.n, 'f', -1, 64)
	case DeductionNotApplicable:
		return NotApplicableText
	default:
		return ""
	}
}

// MarshalJSON encodes Unset as null, NotApplicable as "N/A", and values as numbers.
func (d Deduction) MarshalJSON() ([]byte, error) {
	switch d.kind {
	case DeductionValue:
		return json.Marshal(d.n)
	case DeductionNotApplicable:
		return json.Marshal(NotApplicableText)
	default:
		return jsonNull, nil
	}
}

// UnmarshalJSON decodes null and "" as Unset, "N/A" as NotApplicable, and
// numbers (or numeric strings) as values.
func (d *Deduction) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, jsonNull) {
		*d = Unset()
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("%w: %w", ErrBadDeduction, err)
		}
		return d.parseText(s)
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("%w: %w", ErrBadDeduction, err)
	}
	*d = DeductionOf(f)
	return nil
}

func (d *Deduction) parseText(s string) error {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		*d = Unset()
	case strings.EqualFold(s, NotApplicableText):
		*d = NotApplicable()
	default:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || !finite(f) {
			return fmt.Errorf("%w: %q", ErrBadDeduction, s)
		}
		*d = DeductionOf(f)
	}
	return nil
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
