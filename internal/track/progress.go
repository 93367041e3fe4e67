package track

import "github.com/cueline/cueline/internal/script"

// matchProgress advances the in-line cursor along line by matching tail
// tokens against the line-local window and returns the new character index.
//
// A local cursor starts at fromChar. Each tail token in order searches the
// line tokens from the cursor up to cursor+InLineWindow (never past the line
// end); the first fuzzy match advances the cursor to one past the matched
// position, records the matched position as the current best, and counts one
// match. The scan stops early when the cursor reaches the end of the line.
//
// The bounded window caps how far a single misrecognized token can drag the
// cursor, and the best position is committed only when at least
// MinMatchCount matches accumulated across the whole tail; a single
// accidental fuzzy hit never moves the position. Otherwise fromChar is
// returned unchanged. The result is never less than fromChar.
func matchProgress(tail, line []script.Token, fromChar int, p Params) int {
	cursor := fromChar
	best := fromChar
	matches := 0

	for _, tok := range tail {
		if cursor >= len(line) {
			break
		}
		window := min(cursor+p.InLineWindow, len(line))
		for i := cursor; i < window; i++ {
			if FuzzyEqual(tok, line[i], p.MaxDistanceRatio) {
				cursor = i + 1
				best = i
				matches++
				break
			}
		}
	}

	if matches < p.MinMatchCount {
		return fromChar
	}
	return best
}
