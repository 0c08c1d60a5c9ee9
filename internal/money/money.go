// Package money holds the integer-cents primitives shared by the pricing,
// shipping and totals engines. Every amount that leaves this package is an
// integer number of cents and never negative.
package money

import "math"

// Cents is an amount in minor currency units.
type Cents = int64

// Finite reports whether v is neither NaN nor infinite.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Round rounds to the nearest integer with halves going up, so 2.5 becomes 3
// and -2.5 becomes -2.
func Round(v float64) int64 {
	return int64(math.Floor(v + 0.5))
}

// Clamp rounds v and floors the result at zero. Non-finite input yields 0.
func Clamp(v float64) int64 {
	if !Finite(v) {
		return 0
	}
	rounded := Round(v)
	if rounded < 0 {
		return 0
	}
	return rounded
}

// Max returns the larger of a and b.
func Max(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// Ptr returns a pointer to v. Handy for optional numeric fields.
func Ptr(v float64) *float64 {
	return &v
}

// FromCents converts an integer amount into an optional field value.
func FromCents(v int64) *float64 {
	f := float64(v)
	return &f
}

// Deref returns the pointed-to value and whether it is present and finite.
func Deref(p *float64) (float64, bool) {
	if p == nil || !Finite(*p) {
		return 0, false
	}
	return *p, true
}
