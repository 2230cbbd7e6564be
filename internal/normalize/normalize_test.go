package normalize

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestQuery(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"whitespace only", " \t\n ", ""},
		{"trim and lower", "  Wireless Mouse  ", "wireless mouse"},
		{"collapse runs", "usb \t\t  mouse\n\npad", "usb mouse pad"},
		{"strip markup", "<script>alert(1)</script>", "scriptalert1script"},
		{"strip punctuation between words", "mouse, keyboard & pad!", "mouse keyboard pad"},
		{"keeps accented latin", "Café Crème", "café crème"},
		{"keeps CJK", "ワイヤレス マウス 无线鼠标", "ワイヤレス マウス 无线鼠标"},
		{"keeps hangul", "무선 마우스", "무선 마우스"},
		{"strips control chars", "mo\x00use\x07", "mouse"},
		{"digits", "RTX 4090", "rtx 4090"},
		{"stripped token leaves single space", "a <> b", "a b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Query(tt.in); got != tt.want {
				t.Errorf("Query(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestQuery_Truncates(t *testing.T) {
	raw := strings.Repeat("a", 250)
	got := Query(raw)
	if utf8.RuneCountInString(got) != MaxLength {
		t.Errorf("len = %d, want %d", utf8.RuneCountInString(got), MaxLength)
	}

	cjk := strings.Repeat("鼠", 150)
	if n := utf8.RuneCountInString(Query(cjk)); n != MaxLength {
		t.Errorf("cjk len = %d runes, want %d", n, MaxLength)
	}
}

func TestQuery_TruncationNeverLeavesTrailingSpace(t *testing.T) {
	raw := strings.Repeat("a", MaxLength-1) + " b"
	got := Query(raw)
	if strings.HasSuffix(got, " ") {
		t.Errorf("trailing space after truncation: %q", got)
	}
	if utf8.RuneCountInString(got) > MaxLength {
		t.Errorf("result longer than %d: %d", MaxLength, utf8.RuneCountInString(got))
	}
}

func TestQuery_Idempotent(t *testing.T) {
	corpus := []string{
		"",
		"  Wireless   MOUSE ",
		"<b>bold</b> & <i>italic</i>",
		"İstanbul ẞtraße",
		strings.Repeat("ab ", 60),
		strings.Repeat("x", MaxLength-1) + "   y z",
		"日本語 テキスト　全角スペース",
		"​zero​width",
		"tab\tnew\nline\rcr",
	}
	for _, s := range corpus {
		once := Query(s)
		if twice := Query(once); twice != once {
			t.Errorf("not idempotent for %q: %q -> %q", s, once, twice)
		}
	}
}

func TestIsBlank(t *testing.T) {
	if !IsBlank("  <> !! ") {
		t.Error("expected blank")
	}
	if IsBlank("a") {
		t.Error("expected non-blank")
	}
}

func FuzzQuery_Idempotent(f *testing.F) {
	f.Add("Wireless Mouse")
	f.Add("<script>x</script>")
	f.Add("无线 鼠标")
	f.Add(strings.Repeat("z ", 80))
	f.Fuzz(func(t *testing.T, s string) {
		once := Query(s)
		if twice := Query(once); twice != once {
			t.Fatalf("not idempotent: %q -> %q -> %q", s, once, twice)
		}
		if utf8.RuneCountInString(once) > MaxLength {
			t.Fatalf("too long: %d", utf8.RuneCountInString(once))
		}
		if strings.HasPrefix(once, " ") || strings.HasSuffix(once, " ") || strings.Contains(once, "  ") {
			t.Fatalf("bad whitespace: %q", once)
		}
	})
}
