// Package normalize cleans and bounds raw query text before it reaches the
// cache or the datastore.
package normalize

import (
	"strings"
	"unicode"
)

// MaxLength is the maximum normalized query length in characters.
const MaxLength = 100

// Query lower-cases raw, drops every rune outside the letter/digit/CJK
// allowlist, collapses whitespace runs to one space, trims, and truncates to
// MaxLength runes. Query is idempotent.
func Query(raw string) string {
	var b strings.Builder
	b.Grow(min(len(raw), MaxLength*4))

	n := 0
	pendingSpace := false
	for _, r := range strings.ToLower(raw) {
		if unicode.IsSpace(r) {
			pendingSpace = n > 0
			continue
		}
		if !allowed(r) {
			continue
		}
		if pendingSpace {
			if n+2 > MaxLength {
				break
			}
			b.WriteByte(' ')
			n++
			pendingSpace = false
		}
		b.WriteRune(r)
		n++
		if n == MaxLength {
			break
		}
	}
	return b.String()
}

// IsBlank reports whether raw normalizes to the empty string.
func IsBlank(raw string) bool {
	return Query(raw) == ""
}

func allowed(r rune) bool {
	if r < 0x80 {
		return r >= 'a' && r <= 'z' || r >= '0' && r <= '9'
	}
	return unicode.IsLetter(r) || unicode.IsDigit(r) ||
		unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul)
}
