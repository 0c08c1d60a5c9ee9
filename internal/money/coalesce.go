package money

// Source lazily yields an optional amount. The boolean is false when the
// source has nothing to offer.
type Source func() (float64, bool)

// Predicate decides whether a candidate amount is usable at a call site.
type Predicate func(float64) bool

// Value wraps an optional field as a Source.
func Value(p *float64) Source {
	return func() (float64, bool) {
		return Deref(p)
	}
}

// Known wraps an already computed amount. ok=false marks it as unknown.
func Known(v int64, ok bool) Source {
	return func() (float64, bool) {
		if !ok {
			return 0, false
		}
		return float64(v), true
	}
}

// Present accepts any finite, non-negative amount.
func Present(v float64) bool {
	return Finite(v) && v >= 0
}

// NonZero accepts amounts that are Present and do not round to zero.
func NonZero(v float64) bool {
	return Present(v) && Round(v) != 0
}

// First evaluates sources in order and returns the first value accepted by
// pred, rounded to whole cents. Later sources are not evaluated once a value
// is found.
func First(pred Predicate, sources ...Source) (int64, bool) {
	if pred == nil {
		pred = Present
	}
	for _, src := range sources {
		if src == nil {
			continue
		}
		v, ok := src()
		if !ok || !pred(v) {
			continue
		}
		return Clamp(v), true
	}
	return 0, false
}
