package filter

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
)

func TestFromAny_Scalars(t *testing.T) {
	tests := []struct {
		name string
		in   any
		kind Kind
		text string
	}{
		{"string", "amazon", KindString, "amazon"},
		{"bool", true, KindBool, "true"},
		{"float", 12.5, KindNumber, "12.5"},
		{"int", 3, KindNumber, "3"},
		{"json number", json.Number("7"), KindNumber, "7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := FromAny(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if v.Kind() != tt.kind {
				t.Errorf("kind = %v, want %v", v.Kind(), tt.kind)
			}
			if v.Text() != tt.text {
				t.Errorf("text = %q, want %q", v.Text(), tt.text)
			}
		})
	}
}

func TestFromAny_Rejects(t *testing.T) {
	bad := []any{nil, []string{"a"}, map[string]any{}, math.NaN(), math.Inf(1)}
	for _, in := range bad {
		if _, err := FromAny(in); err == nil {
			t.Errorf("FromAny(%v): expected error", in)
		}
	}
}

func TestNew_TooMany(t *testing.T) {
	raw := make(map[string]any, MaxFilters+1)
	for i := range MaxFilters + 1 {
		raw[strings.Repeat("f", i+1)] = "x"
	}
	_, err := New(raw)
	if err == nil {
		t.Fatal("expected error for too many filters")
	}
}

func TestNew_EmptyName(t *testing.T) {
	if _, err := New(map[string]any{"": "x"}); err == nil {
		t.Fatal("expected error for empty filter name")
	}
}

func TestEncode_OrderIndependent(t *testing.T) {
	a, err := New(map[string]any{"a": 1, "b": 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b := Of(map[string]Value{"b": Number(2)}).With("a", Number(1))

	if a.Encode() != b.Encode() {
		t.Errorf("encodings differ: %q vs %q", a.Encode(), b.Encode())
	}
	if a.Encode() != "a%3An=1&b%3An=2" {
		t.Errorf("unexpected encoding %q", a.Encode())
	}
}

func TestEncode_EscapesSeparators(t *testing.T) {
	f := Of(map[string]Value{"brand": String("a&b=c")})
	if got := f.Encode(); got != "brand=a%26b%3Dc" {
		t.Errorf("Encode() = %q", got)
	}
}

func TestEncode_DistinguishesKinds(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
	}{
		{"bool vs string", Bool(true), String("true")},
		{"number vs string", Number(1), String("1")},
		{"bool vs number", Bool(false), Number(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ea := Of(map[string]Value{"in_stock": tt.a}).Encode()
			eb := Of(map[string]Value{"in_stock": tt.b}).Encode()
			if ea == eb {
				t.Errorf("both encode to %q", ea)
			}
		})
	}
	if got := Of(map[string]Value{"in_stock": Bool(true)}).Encode(); got != "in_stock%3Ab=true" {
		t.Errorf("Encode() = %q", got)
	}
}

func TestWith_DoesNotMutate(t *testing.T) {
	base := Of(map[string]Value{"platform": String("amazon")})
	ext := base.With("_limit", Number(20))
	if base.Len() != 1 {
		t.Errorf("base mutated: len=%d", base.Len())
	}
	if ext.Len() != 2 {
		t.Errorf("ext len = %d, want 2", ext.Len())
	}
}

func TestKeysSortedAndMap(t *testing.T) {
	f := Of(map[string]Value{"z": Bool(false), "a": String("x")})
	keys := f.Keys()
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "z" {
		t.Errorf("Keys() = %v", keys)
	}
	m := f.Map()
	if m["z"] != false || m["a"] != "x" {
		t.Errorf("Map() = %v", m)
	}
}

func TestValidName(t *testing.T) {
	for name, want := range map[string]bool{
		"platform": true,
		"in_stock": true,
		"brand2":   true,
		"_limit":   false,
		"Platform": false,
		"a b":      false,
		"":         false,
	} {
		if got := ValidName(name); got != want {
			t.Errorf("ValidName(%q) = %v, want %v", name, got, want)
		}
	}
}
