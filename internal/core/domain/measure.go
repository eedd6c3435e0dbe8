package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Measure is an optional numeric value.
// The zero value is absent; absent values never match a numeric predicate.
type Measure struct {
	Value float64
	Valid bool
}

// Some returns a present measure.
func Some(v float64) Measure {
	return Measure{Value: v, Valid: true}
}

// Absent returns a measure with no value.
func Absent() Measure {
	return Measure{}
}

// ParseMeasure parses a raw textual value. Empty, "nan" and unparseable input
// yield an absent measure rather than an error.
func ParseMeasure(raw string) Measure {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Absent()
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Absent()
	}
	return Some(v)
}

// Scale multiplies a present value; absent stays absent.
func (m Measure) Scale(factor float64) Measure {
	if !m.Valid {
		return m
	}
	return Some(m.Value * factor)
}

// String renders the value or "n/a".
func (m Measure) String() string {
	if !m.Valid {
		return "n/a"
	}
	return strconv.FormatFloat(m.Value, 'f', -1, 64)
}

// MarshalJSON encodes absent values as null.
func (m Measure) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(m.Value)
}

// UnmarshalJSON accepts numbers, numeric strings, null and NaN markers.
// FAERS exports mix all of these for the same column.
func (m *Measure) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	switch s {
	case "null", "NaN", `"NaN"`, `""`:
		*m = Absent()
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*m = ParseMeasure(str)
		return nil
	}
	*m = ParseMeasure(s)
	return nil
}
