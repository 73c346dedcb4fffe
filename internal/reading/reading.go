// Package reading defines the uniform reading shape produced by every
// sensor plugin, hardware or virtual, and the fallback sentinel used
// for fields that cannot currently be produced.
package reading

import "time"

// Fallback is the sentinel value reported for any field with no valid
// data. Consumers render it as-is instead of special-casing failures.
const Fallback = "n/a"

// IsFallback reports whether v is the fallback sentinel.
func IsFallback(v any) bool {
	s, ok := v.(string)
	return ok && s == Fallback
}

// Fields maps field names to numeric or string values, or Fallback.
type Fields map[string]any

// Clone returns an independent copy of the fields.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Float returns the field as a float64 when it holds a numeric value.
func (f Fields) Float(name string) (float64, bool) {
	switch v := f[name].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// Reading is an immutable snapshot produced by one plugin probe.
type Reading struct {
	CapturedAt time.Time `json:"captured_at"`
	Fields     Fields    `json:"fields"`
}

// Clone returns a deep copy safe to hand to another goroutine.
func (r Reading) Clone() Reading {
	return Reading{CapturedAt: r.CapturedAt, Fields: r.Fields.Clone()}
}

// Unavailable builds a reading whose every named field is Fallback.
func Unavailable(at time.Time, names ...string) Reading {
	f := make(Fields, len(names))
	for _, n := range names {
		f[n] = Fallback
	}
	return Reading{CapturedAt: at, Fields: f}
}
