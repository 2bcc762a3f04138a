package textdiff

import (
	"math"
)

// Match locates the best occurrence of pattern in text near loc, returning
// -1 if nothing scores within MatchThreshold. Tries an exact match at loc
// first before falling back to the fuzzy Bitap search.
func (config *Config) Match(text, pattern string, loc int) int {
	loc = max(0, min(loc, len(text)))
	switch {
	case text == pattern:
		return 0
	case len(text) == 0:
		return -1
	case loc+len(pattern) <= len(text) && text[loc:loc+len(pattern)] == pattern:
		return loc
	}
	return config.MatchBitap(text, pattern, loc)
}

// MatchBitap locates the best occurrence of pattern in text near loc using
// the Bitap fuzzy-matching algorithm, returning -1 if no match clears
// MatchThreshold.
func (config *Config) MatchBitap(text, pattern string, loc int) int {
	s := config.MatchAlphabet(pattern)
	scoreThreshold := config.MatchThreshold
	// an exact match nearby (in either direction) tightens the threshold
	// before the fuzzy search even starts.
	bestLoc := indexOf(text, pattern, loc)
	if bestLoc != -1 {
		scoreThreshold = math.Min(config.bitapScore(0, bestLoc, loc, pattern), scoreThreshold)
		bestLoc = lastIndexOf(text, pattern, loc+len(pattern))
		if bestLoc != -1 {
			scoreThreshold = math.Min(config.bitapScore(0, bestLoc, loc, pattern), scoreThreshold)
		}
	}
	matchmask := 1 << uint(len(pattern)-1)
	bestLoc = -1
	var binMin, binMid int
	binMax := len(pattern) + len(text)
	lastRd := []int{}
	for d := 0; d < len(pattern); d++ {
		// binary-search how far from loc this error level can still clear
		// the threshold, using the previous iteration's bound as the cap.
		binMin = 0
		binMid = binMax
		for binMin < binMid {
			if config.bitapScore(d, loc+binMid, loc, pattern) <= scoreThreshold {
				binMin = binMid
			} else {
				binMax = binMid
			}
			binMid = (binMax-binMin)/2 + binMin
		}
		binMax = binMid
		start := max(1, loc-binMid+1)
		finish := min(loc+binMid, len(text)) + len(pattern)
		rd := make([]int, finish+2)
		rd[finish+1] = (1 << uint(d)) - 1
		for j := finish; j >= start; j-- {
			var charMatch int
			if len(text) <= j-1 {
				charMatch = 0
			} else if _, ok := s[text[j-1]]; !ok {
				charMatch = 0
			} else {
				charMatch = s[text[j-1]]
			}
			if d == 0 {
				rd[j] = ((rd[j+1] << 1) | 1) & charMatch
			} else {
				rd[j] = ((rd[j+1]<<1)|1)&charMatch | (((lastRd[j+1] | lastRd[j]) << 1) | 1) | lastRd[j+1]
			}
			if (rd[j] & matchmask) != 0 {
				score := config.bitapScore(d, j-1, loc, pattern)
				if score <= scoreThreshold {
					scoreThreshold = score
					bestLoc = j - 1
					if bestLoc > loc {
						// the match lies right of loc and the scan moves
						// leftward: search no further left of loc than
						// this match lies to its right.
						start = max(1, 2*loc-bestLoc)
					} else {
						// already at or left of loc, so positions further
						// left can only score worse.
						break
					}
				}
			}
		}
		if config.bitapScore(d+1, loc, loc, pattern) > scoreThreshold {
			// no error level beyond this one could possibly beat what's
			// already been found.
			break
		}
		lastRd = rd
	}
	return bestLoc
}

// bitapScore scores a candidate match with e errors at position x against
// the target loc: error rate plus a distance penalty.
func (config *Config) bitapScore(e, x, loc int, pattern string) float64 {
	accuracy := float64(e) / float64(len(pattern))
	proximity := math.Abs(float64(loc - x))
	if config.MatchDistance == 0 {
		if proximity == 0 {
			return accuracy
		}
		return 1.0
	}
	return accuracy + (proximity / float64(config.MatchDistance))
}

// MatchAlphabet builds the Bitap bitmask alphabet for pattern: for each
// byte value appearing in pattern, a bitmask marking every position that
// byte occupies.
func (config *Config) MatchAlphabet(pattern string) map[byte]int {
	s := map[byte]int{}
	charPattern := []byte(pattern)
	for _, c := range charPattern {
		if _, ok := s[c]; !ok {
			s[c] = 0
		}
	}
	i := 0
	for _, c := range charPattern {
		s[c] |= int(uint(1) << uint(len(pattern)-i-1))
		i++
	}
	return s
}
