package track

import "github.com/cueline/cueline/internal/script"

// detectJump scans the most recent tail tokens for the prefix anchor of an
// upcoming line and returns the index of the line the speaker has skipped
// to, if any.
//
// Candidate lines are examined nearest-first, from current+1 up to
// current+Lookahead (clamped to the last line), so weaker evidence for an
// intermediate line always wins over a line further out. The candidate's
// prefix anchor is its first PrefixMinMatch tokens (or the whole line when
// shorter); lines whose available prefix is shorter than two tokens are
// skipped outright, too little evidence to act on.
//
// A candidate hits when its prefix occurs as an ordered, non-contiguous
// fuzzy subsequence inside tail. Each start offset in tail may consume at
// most twice the prefix length of tail tokens, so a coincidental scatter of
// matching tokens far apart is never accepted.
//
// detectJump never returns the current line or an earlier one; a hit can
// only move the cursor forward.
func detectJump(tail []script.Token, s *script.Script, current int, p Params) (int, bool) {
	last := s.LineCount() - 1
	limit := min(current+p.Lookahead, last)

	for cand := current + 1; cand <= limit; cand++ {
		line := s.Tokens(cand)
		prefixLen := min(p.PrefixMinMatch, len(line))
		if prefixLen < minPrefixTokens {
			continue
		}
		if containsFuzzySubsequence(tail, line[:prefixLen], p.MaxDistanceRatio) {
			return cand, true
		}
	}
	return 0, false
}

// minPrefixTokens is the floor on prefix anchor length. Lines that cannot
// supply at least this many tokens are never jump targets.
const minPrefixTokens = 2

// containsFuzzySubsequence reports whether prefix occurs as an ordered
// fuzzy subsequence of tail. For every start offset, prefix tokens are
// consumed in order against at most 2×len(prefix) tail tokens before that
// offset is abandoned.
func containsFuzzySubsequence(tail, prefix []script.Token, maxRatio float64) bool {
	scanWidth := len(prefix) * 2

	for start := range tail {
		matched := 0
		for i := start; i < len(tail) && i < start+scanWidth; i++ {
			if FuzzyEqual(tail[i], prefix[matched], maxRatio) {
				matched++
				if matched == len(prefix) {
					return true
				}
			}
		}
	}
	return false
}
