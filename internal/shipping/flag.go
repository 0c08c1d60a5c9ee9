package shipping

import "encoding/json"

// Flag is the boolean-like "override enabled" marker carried by cart and
// order lines. Only true, the number 1 and the string "1" enable it.
type Flag bool

// FlagOf interprets a decoded value.
func FlagOf(v any) Flag {
	switch t := v.(type) {
	case bool:
		return Flag(t)
	case float64:
		return Flag(t == 1)
	case int:
		return Flag(t == 1)
	case int64:
		return Flag(t == 1)
	case string:
		return Flag(t == "1")
	default:
		return false
	}
}

// UnmarshalJSON implements json.Unmarshaler. Unrecognised values decode as false.
func (f *Flag) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		*f = false
		return nil
	}
	*f = FlagOf(raw)
	return nil
}
