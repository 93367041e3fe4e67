// Package script holds the teleprompter script model: the phonetic
// tokenizer that converts display text into per-character phonetic tokens,
// and the immutable Script built from it.
//
// A Script is created once from raw display lines and never mutated
// afterwards. Each line is tokenized independently; token sequences are
// never concatenated across lines, so a matching error against one line can
// never corrupt another line's data. Reconfiguration means building a new
// Script.
package script

// Line pairs the original display text of one script line with its phonetic
// token sequence. Tokens exist only for the non-whitespace characters of
// Text.
type Line struct {
	// Text is the raw line as supplied by the author, used for rendering.
	Text string

	// Tokens is the phonetic token sequence for Text. Never mutated after
	// construction.
	Tokens []Token
}

// Script is an ordered, immutable sequence of tokenized lines.
// All methods are safe for concurrent use; a Script is read-only after New.
type Script struct {
	lines []Line
}

// New builds a Script by tokenizing each raw line independently.
// Empty input yields an empty Script for which [Script.IsEmpty] reports true.
func New(rawLines []string) *Script {
	lines := make([]Line, len(rawLines))
	for i, raw := range rawLines {
		lines[i] = Line{
			Text:   raw,
			Tokens: Tokenize(raw),
		}
	}
	return &Script{lines: lines}
}

// LineCount returns the number of lines in the script.
func (s *Script) LineCount() int {
	return len(s.lines)
}

// IsEmpty reports whether the script has no lines.
func (s *Script) IsEmpty() bool {
	return len(s.lines) == 0
}

// Line returns the line at index i, or a zero Line when i is out of range.
func (s *Script) Line(i int) Line {
	if i < 0 || i >= len(s.lines) {
		return Line{}
	}
	return s.lines[i]
}

// Tokens returns the token sequence of line i, or nil when i is out of range.
// The returned slice must not be modified.
func (s *Script) Tokens(i int) []Token {
	if i < 0 || i >= len(s.lines) {
		return nil
	}
	return s.lines[i].Tokens
}

// Lines returns all lines in order. The returned slice must not be modified.
func (s *Script) Lines() []Line {
	return s.lines
}
