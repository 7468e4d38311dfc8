// Package models defines data structures for cached sheet data and query results.
package models

import "strconv"

// ValueKind identifies which variant a Value holds.
type ValueKind int

const (
	// KindAbsent marks a cell with no value.
	KindAbsent ValueKind = iota
	// KindText is a string cell (shared, inline, formula string, error or date text).
	KindText
	// KindNumber is a numeric cell.
	KindNumber
	// KindBool is a boolean cell.
	KindBool
)

// String returns the variant name.
func (k ValueKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	default:
		return "absent"
	}
}

// Value is a raw cell value as read from the workbook.
// The zero Value is absent.
type Value struct {
	Kind ValueKind
	Str  string
	Num  float64
	Bool bool
}

// Text returns a text Value.
func Text(s string) Value { return Value{Kind: KindText, Str: s} }

// Number returns a numeric Value.
func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }

// Boolean returns a boolean Value.
func Boolean(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// IsAbsent reports whether the cell holds no value.
// Zero, false and whitespace-only text are present values.
func (v Value) IsAbsent() bool {
	return v.Kind == KindAbsent
}

// Render returns the value as display text. The boolean is false for absent cells.
// Integral numbers render without a fractional part (12345.0 → "12345").
func (v Value) Render() (string, bool) {
	switch v.Kind {
	case KindText:
		return v.Str, true
	case KindNumber:
		return formatNumber(v.Num), true
	case KindBool:
		if v.Bool {
			return "True", true
		}
		return "False", true
	default:
		return "", false
	}
}

func formatNumber(f float64) string {
	if f == 0 {
		// drops the sign of negative zero
		return "0"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
