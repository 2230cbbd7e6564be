package filter

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"net/url"
	"regexp"
	"slices"
	"strconv"
)

// MaxFilters is the maximum number of equality filters per request.
const MaxFilters = 32

var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ValidName reports whether name can be used as a filter field. Names starting
// with an underscore are reserved.
func ValidName(name string) bool { return namePattern.MatchString(name) }

// Kind is the scalar type of a filter value.
type Kind int

// Scalar kinds.
const (
	KindString Kind = iota + 1
	KindNumber
	KindBool
)

// Value is a scalar filter operand: string, number, or boolean.
type Value struct {
	kind Kind
	s    string
	n    float64
	b    bool
}

// String creates a string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Number creates a numeric value.
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// Bool creates a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// FromAny converts a decoded JSON scalar (or a Go scalar) to a Value.
func FromAny(v any) (Value, error) {
	switch t := v.(type) {
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return Value{}, fmt.Errorf("number must be finite")
		}
		return Number(t), nil
	case float32:
		return FromAny(float64(t))
	case int:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case int32:
		return Number(float64(t)), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q", t.String())
		}
		return FromAny(f)
	case nil:
		return Value{}, fmt.Errorf("value is required")
	default:
		return Value{}, fmt.Errorf("unsupported value type %T (want string, number or boolean)", v)
	}
}

// Kind returns the scalar kind.
func (v Value) Kind() Kind { return v.kind }

// Any returns the value as a driver argument.
func (v Value) Any() any {
	switch v.kind {
	case KindNumber:
		return v.n
	case KindBool:
		return v.b
	default:
		return v.s
	}
}

// Text returns the canonical text of the value. It does not carry the kind:
// Bool(true) and String("true") share a Text.
func (v Value) Text() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.n, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return v.s
	}
}

// Filters is an immutable filter-name to scalar mapping. Insertion order is irrelevant.
type Filters struct {
	m map[string]Value
}

// New validates and creates Filters from decoded JSON.
func New(raw map[string]any) (Filters, error) {
	if len(raw) > MaxFilters {
		return Filters{}, fmt.Errorf("too many filters (max %d)", MaxFilters)
	}
	m := make(map[string]Value, len(raw))
	for k, rv := range raw {
		if k == "" {
			return Filters{}, fmt.Errorf("filter name is required")
		}
		v, err := FromAny(rv)
		if err != nil {
			return Filters{}, fmt.Errorf("filter %q: %w", k, err)
		}
		m[k] = v
	}
	return Filters{m: m}, nil
}

// Of creates Filters from typed values without validation.
func Of(values map[string]Value) Filters {
	return Filters{m: maps.Clone(values)}
}

// With returns a copy with key set to v.
func (f Filters) With(key string, v Value) Filters {
	m := make(map[string]Value, len(f.m)+1)
	maps.Copy(m, f.m)
	m[key] = v
	return Filters{m: m}
}

// Get returns the value for key.
func (f Filters) Get(key string) (Value, bool) {
	v, ok := f.m[key]
	return v, ok
}

// Len returns the number of filters.
func (f Filters) Len() int { return len(f.m) }

// IsEmpty reports whether there are no filters.
func (f Filters) IsEmpty() bool { return len(f.m) == 0 }

// Keys returns filter names in sorted order.
func (f Filters) Keys() []string {
	return slices.Sorted(maps.Keys(f.m))
}

// Encode returns the key-sorted canonical form, e.g. "category=audio&in_stock%3Ab=true".
// Non-string values carry a kind tag on the name, so values that differ only in
// type encode differently. Strings stay untagged and readable.
func (f Filters) Encode() string {
	vals := make(url.Values, len(f.m))
	for k, v := range f.m {
		switch v.kind {
		case KindNumber:
			k += ":n"
		case KindBool:
			k += ":b"
		}
		vals.Set(k, v.Text())
	}
	return vals.Encode()
}

// Map returns the filters as driver arguments.
func (f Filters) Map() map[string]any {
	out := make(map[string]any, len(f.m))
	for k, v := range f.m {
		out[k] = v.Any()
	}
	return out
}
