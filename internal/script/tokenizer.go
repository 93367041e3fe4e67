package script

import (
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/unicode/norm"
)

// Token is the phonetic unit derived from a single script character: a
// lowercase, diacritic-free Latin transliteration (e.g. "你" → "ni",
// "é" → "e"), or the lowercased character itself when no transliteration
// exists. Tokens are compared, never mutated.
type Token string

// Tokenize converts text into its ordered phonetic token sequence. One token
// is produced per non-whitespace character; whitespace produces nothing, so
// len(Tokenize(text)) always equals the number of non-whitespace characters
// in text after NFC normalisation.
//
// Tokenize is pure, deterministic, and total: no input can fail. Characters
// without a Latin transliteration fall back to their own lowercase form.
func Tokenize(text string) []Token {
	if text == "" {
		return nil
	}

	// Pre-compose decomposed sequences (e.g. "e" + U+0301) so each spoken
	// character is seen as a single rune before transliteration.
	normalized := norm.NFC.String(text)

	tokens := make([]Token, 0, len(normalized))
	for _, r := range normalized {
		if unicode.IsSpace(r) {
			continue
		}
		tokens = append(tokens, tokenForRune(r))
	}
	return tokens
}

// tokenForRune transliterates a single rune to its phonetic token.
func tokenForRune(r rune) Token {
	t := unidecode.Unidecode(string(r))

	// Transliterations of CJK characters carry a trailing space, and some
	// symbols expand to multi-part forms; collapse all interior whitespace.
	t = strings.Join(strings.Fields(t), "")

	if t == "" {
		// No transliteration known. Keep the literal character so matching
		// still works for scripts unidecode cannot cover.
		return Token(strings.ToLower(string(r)))
	}
	return Token(strings.ToLower(t))
}
