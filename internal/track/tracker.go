// Package track implements the teleprompter alignment core: given an
// immutable tokenized script and a stream of full-text transcript snapshots,
// it maintains the position the speaker is currently reading.
//
// Every transcript update is treated as "everything recognized so far": the
// update is re-tokenized in full and only bounded trailing windows of the
// result are scanned, so the tracker never accumulates tokens itself. Two
// mechanisms move the position, in order: the line-jump detector looks for
// the prefix anchor of an upcoming line in a short recent window, and the
// in-line progress matcher advances the character cursor along the current
// line using a longer window. Automatic movement is strictly forward; only
// [Tracker.JumpToLine], [Tracker.Reset], and [Tracker.Configure] may move
// the position backward.
//
// The tracker is a single-writer, synchronous state machine: every operation
// is pure computation over bounded inputs and no operation blocks. It does
// no internal locking; callers must serialize Configure, Reset,
// OnTranscriptUpdate, and JumpToLine onto one goroutine or protect them with
// external synchronization, as [app.Session] does.
package track

import "github.com/cueline/cueline/internal/script"

// Default tuning values. These are the parameters the tracker was calibrated
// with for near-real-time dictation.
const (
	DefaultLookahead      = 3
	DefaultRecentWindow   = 12
	DefaultPrefixMinMatch = 3
	DefaultTailWindow     = 25
	DefaultInLineWindow   = 3
	DefaultMinMatchCount  = 2
)

// Params holds the tunable parameters of the alignment algorithm. The zero
// value of any field is replaced with its default by [New].
type Params struct {
	// Lookahead is how many lines ahead of the current line the jump
	// detector examines.
	Lookahead int `yaml:"lookahead"`

	// RecentWindow is how many of the most recent transcript tokens the
	// jump detector scans for a prefix anchor.
	RecentWindow int `yaml:"recent_window"`

	// PrefixMinMatch is the prefix anchor length. Lines shorter than two
	// tokens are never jump targets regardless of this value.
	PrefixMinMatch int `yaml:"prefix_min_match"`

	// TailWindow is how many of the most recent transcript tokens the
	// in-line progress matcher consumes.
	TailWindow int `yaml:"tail_window"`

	// InLineWindow is how many line positions ahead of the cursor a single
	// tail token may match, bounding how far one misrecognition can move
	// the cursor.
	InLineWindow int `yaml:"in_line_window"`

	// MinMatchCount is the number of fuzzy matches that must accumulate
	// across the tail before an in-line advance is committed.
	MinMatchCount int `yaml:"min_match_count"`

	// MaxDistanceRatio is the normalized edit distance below which two
	// tokens are considered equal.
	MaxDistanceRatio float64 `yaml:"max_distance_ratio"`
}

// DefaultParams returns the reference tuning.
func DefaultParams() Params {
	return Params{
		Lookahead:        DefaultLookahead,
		RecentWindow:     DefaultRecentWindow,
		PrefixMinMatch:   DefaultPrefixMinMatch,
		TailWindow:       DefaultTailWindow,
		InLineWindow:     DefaultInLineWindow,
		MinMatchCount:    DefaultMinMatchCount,
		MaxDistanceRatio: DefaultMaxDistanceRatio,
	}
}

// withDefaults fills zero-valued fields with the reference tuning.
func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.Lookahead <= 0 {
		p.Lookahead = d.Lookahead
	}
	if p.RecentWindow <= 0 {
		p.RecentWindow = d.RecentWindow
	}
	if p.PrefixMinMatch <= 0 {
		p.PrefixMinMatch = d.PrefixMinMatch
	}
	if p.TailWindow <= 0 {
		p.TailWindow = d.TailWindow
	}
	if p.InLineWindow <= 0 {
		p.InLineWindow = d.InLineWindow
	}
	if p.MinMatchCount <= 0 {
		p.MinMatchCount = d.MinMatchCount
	}
	if p.MaxDistanceRatio <= 0 {
		p.MaxDistanceRatio = d.MaxDistanceRatio
	}
	return p
}

// Position is the tracked reading position: a line index and a character
// index within that line. Line is always within [0, lineCount−1] for a
// non-empty script and Char within [0, tokenCount(line)].
type Position struct {
	// Line is the index of the line currently being read.
	Line int `json:"line"`

	// Char is the index of the last token of Line the speaker has been
	// heard reading.
	Char int `json:"char"`
}

// Tracker is the alignment state machine. Create one with [New], load a
// script with [Tracker.Configure], then feed transcript snapshots through
// [Tracker.OnTranscriptUpdate].
//
// Tracker is NOT safe for concurrent use; see the package documentation.
type Tracker struct {
	params Params
	script *script.Script
	pos    Position
}

// New creates a Tracker with the given tuning and an empty script. Zero
// fields of params take their defaults. With an empty script every update is
// a no-op until [Tracker.Configure] is called.
func New(params Params) *Tracker {
	return &Tracker{
		params: params.withDefaults(),
		script: script.New(nil),
	}
}

// Configure replaces the script wholesale and resets the position to (0,0).
// Each raw line is tokenized independently. An empty lines slice produces an
// empty script; all subsequent updates become no-ops.
func (t *Tracker) Configure(lines []string) {
	t.script = script.New(lines)
	t.pos = Position{}
}

// Reset moves the position back to (0,0) without retokenizing the script.
func (t *Tracker) Reset() {
	t.pos = Position{}
}

// Script returns the currently configured script for read-only use by the
// rendering layer.
func (t *Tracker) Script() *script.Script {
	return t.script
}

// Position returns the current reading position.
func (t *Tracker) Position() Position {
	return t.pos
}

// Progress returns how far through the script the speaker is, as
// Line / max(lineCount−1, 1), in [0, 1].
func (t *Tracker) Progress() float64 {
	return float64(t.pos.Line) / float64(max(t.script.LineCount()-1, 1))
}

// Params returns the tuning the tracker runs with.
func (t *Tracker) Params() Params {
	return t.params
}

// OnTranscriptUpdate consumes a full transcript snapshot (everything the
// speech engine has recognized so far, not a delta) and returns the updated
// position.
//
// The snapshot is re-tokenized in full. The line-jump detector then runs
// against the most recent RecentWindow tokens and, whether or not a jump
// fired, the in-line progress matcher runs against the most recent
// TailWindow tokens of the same tokenization. After a jump the matcher is
// deliberately not re-windowed to exclude the tokens that anchored the jump;
// they may immediately advance the cursor into the new line.
//
// Empty text and an empty script are absorbed as no-ops.
func (t *Tracker) OnTranscriptUpdate(text string) Position {
	if t.script.IsEmpty() || text == "" {
		return t.pos
	}

	tokens := script.Tokenize(text)
	if len(tokens) == 0 {
		return t.pos
	}

	recent := tailOf(tokens, t.params.RecentWindow)
	if target, ok := detectJump(recent, t.script, t.pos.Line, t.params); ok {
		t.pos = Position{Line: target}
	}

	tail := tailOf(tokens, t.params.TailWindow)
	t.pos.Char = matchProgress(tail, t.script.Tokens(t.pos.Line), t.pos.Char, t.params)

	return t.pos
}

// JumpToLine moves the position to the requested line, clamped into the
// valid range, and resets the character cursor to 0. It bypasses jump
// detection and progress matching entirely; this is the manual-navigation
// override, and unlike automatic tracking it may move backward. With an
// empty script the position stays (0,0).
func (t *Tracker) JumpToLine(index int) Position {
	if t.script.IsEmpty() {
		return t.pos
	}
	t.pos = Position{Line: min(max(index, 0), t.script.LineCount()-1)}
	return t.pos
}

// tailOf returns the suffix of tokens holding at most n elements.
func tailOf(tokens []script.Token, n int) []script.Token {
	if len(tokens) <= n {
		return tokens
	}
	return tokens[len(tokens)-n:]
}
