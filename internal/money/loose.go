package money

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// Loose is a numeric value decoded from untrusted input. It accepts JSON
// numbers and numeric strings; anything else decodes as absent rather than
// failing the whole payload.
type Loose struct {
	value float64
	valid bool
}

// NewLoose returns a present Loose value.
func NewLoose(v float64) Loose {
	return LooseOf(v)
}

// LooseOf coerces an arbitrary decoded value.
func LooseOf(v any) Loose {
	switch t := v.(type) {
	case nil:
		return Loose{}
	case string:
		if strings.TrimSpace(t) == "" {
			return Loose{}
		}
		v = strings.TrimSpace(t)
	case bool:
		return Loose{}
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || !Finite(f) {
		return Loose{}
	}
	return Loose{value: f, valid: true}
}

// Float returns the value and whether it is present.
func (l Loose) Float() (float64, bool) {
	return l.value, l.valid
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *Loose) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		*l = Loose{}
		return nil
	}
	*l = LooseOf(raw)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (l Loose) MarshalJSON() ([]byte, error) {
	if !l.valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(l.value, 'f', -1, 64)), nil
}
