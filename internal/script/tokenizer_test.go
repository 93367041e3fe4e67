package script_test

import (
	"strings"
	"testing"

	"github.com/cueline/cueline/internal/script"
)

func TestTokenize_LatinText(t *testing.T) {
	t.Parallel()

	got := script.Tokenize("Hello world")
	want := []script.Token{"h", "e", "l", "l", "o", "w", "o", "r", "l", "d"}

	if len(got) != len(want) {
		t.Fatalf("Tokenize(%q): %d tokens, want %d", "Hello world", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Tokenize(%q)[%d] = %q, want %q", "Hello world", i, got[i], want[i])
		}
	}
}

func TestTokenize_StripsAllWhitespace(t *testing.T) {
	t.Parallel()

	text := " a\tb\nc  d\r\n"
	got := script.Tokenize(text)

	nonWS := 0
	for _, r := range text {
		if !strings.ContainsRune(" \t\n\r", r) {
			nonWS++
		}
	}
	if len(got) != nonWS {
		t.Fatalf("Tokenize(%q): %d tokens, want %d (one per non-whitespace character)", text, len(got), nonWS)
	}
}

func TestTokenize_Diacritics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want []script.Token
	}{
		{"precomposed", "café", []script.Token{"c", "a", "f", "e"}},
		// "e" followed by U+0301 combining acute: NFC collapses the pair to
		// one character before transliteration.
		{"decomposed", "café", []script.Token{"c", "a", "f", "e"}},
		{"umlaut", "über", []script.Token{"u", "b", "e", "r"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := script.Tokenize(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("Tokenize(%q): %d tokens %v, want %d %v", tt.in, len(got), got, len(tt.want), tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("Tokenize(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestTokenize_ChineseTransliteration(t *testing.T) {
	t.Parallel()

	got := script.Tokenize("你好 今天")
	want := []script.Token{"ni", "hao", "jin", "tian"}

	if len(got) != len(want) {
		t.Fatalf("Tokenize(%q): %d tokens %v, want %d", "你好 今天", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Tokenize(%q)[%d] = %q, want %q", "你好 今天", i, got[i], want[i])
		}
	}
}

func TestTokenize_UnconvertibleFallsBackToLiteral(t *testing.T) {
	t.Parallel()

	// U+E000 is a private-use code point with no transliteration; the token
	// must be the character itself rather than an error or a dropped token.
	got := script.Tokenize("")
	if len(got) != 1 {
		t.Fatalf("Tokenize(%q): %d tokens, want 1", "", len(got))
	}
	if got[0] != script.Token("") {
		t.Errorf("Tokenize(%q)[0] = %q, want the literal character", "", got[0])
	}
}

func TestTokenize_Empty(t *testing.T) {
	t.Parallel()

	if got := script.Tokenize(""); len(got) != 0 {
		t.Errorf("Tokenize(\"\") = %v, want no tokens", got)
	}
	if got := script.Tokenize("   \n\t"); len(got) != 0 {
		t.Errorf("Tokenize(whitespace) = %v, want no tokens", got)
	}
}

func TestTokenize_Deterministic(t *testing.T) {
	t.Parallel()

	const text = "Grüße, 世界! one two"
	a := script.Tokenize(text)
	b := script.Tokenize(text)

	if len(a) != len(b) {
		t.Fatalf("repeated Tokenize(%q) disagree on length: %d vs %d", text, len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("repeated Tokenize(%q) disagree at %d: %q vs %q", text, i, a[i], b[i])
		}
	}
}
