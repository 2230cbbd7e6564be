package strategy

import "testing"

func TestStrategy_IsValid(t *testing.T) {
	for _, s := range []Strategy{FullText, Fuzzy} {
		if !s.IsValid() {
			t.Errorf("%q should be valid", s)
		}
	}
	for _, s := range []Strategy{"", "exact", "ilike"} {
		if s.IsValid() {
			t.Errorf("%q should be invalid", s)
		}
	}
}
