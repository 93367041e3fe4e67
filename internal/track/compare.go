package track

import (
	"unicode/utf8"

	"github.com/antzucaro/matchr"

	"github.com/cueline/cueline/internal/script"
)

// DefaultMaxDistanceRatio is the normalized Levenshtein distance below which
// two tokens are still considered the same spoken unit.
const DefaultMaxDistanceRatio = 0.35

// FuzzyEqual reports whether two phonetic tokens are close enough to count
// as the same spoken unit.
//
// Exactly equal tokens always match. Tokens that are both a single character
// (or empty) match only when exactly equal: a one-character token carries
// too little information for a distance ratio to mean anything: it would
// always be 0 or 1, degenerating the threshold. All other pairs match when
// their unit-cost Levenshtein distance divided by the longer token length is
// below maxRatio.
func FuzzyEqual(a, b script.Token, maxRatio float64) bool {
	if a == b {
		return true
	}

	la := utf8.RuneCountInString(string(a))
	lb := utf8.RuneCountInString(string(b))
	if la <= 1 && lb <= 1 {
		return false
	}

	dist := matchr.Levenshtein(string(a), string(b))
	return float64(dist)/float64(max(la, lb)) < maxRatio
}
