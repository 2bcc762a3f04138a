package textdiff

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestMatchBitapFindsItself asserts property 6: for any pattern taken
// verbatim from text at position k (with |p| <= MatchMaxBits), bitap
// reports the match at exactly k.
func TestMatchBitapFindsItself(t *testing.T) {
	config := NewDefaultConfig()
	text := "the quick brown fox jumps over the lazy dog"
	cases := []struct {
		k, n int
	}{
		{0, 3}, {4, 5}, {10, 6}, {20, 4}, {len(text) - 3, 3},
	}
	for _, c := range cases {
		pattern := text[c.k : c.k+c.n]
		assert.LessOrEqual(t, len(pattern), config.MatchMaxBits)
		got := config.MatchBitap(text, pattern, c.k)
		assert.Equal(t, c.k, got, "pattern %q at k=%d", pattern, c.k)
	}
}

// TestMatchExactShortcut checks that Match takes the direct substring
// shortcut when the pattern sits exactly at loc.
func TestMatchExactShortcut(t *testing.T) {
	config := NewDefaultConfig()
	assert.Equal(t, 5, config.Match("abcdefghijk", "fgh", 5))
}

// TestMatchFuzzyScenario checks scenario 4: a fuzzy match within the
// default MatchThreshold/MatchDistance still resolves to the expected
// location even though the pattern doesn't appear verbatim.
func TestMatchFuzzyScenario(t *testing.T) {
	config := NewDefaultConfig()
	assert.Equal(t, 4, config.Match("abcdefghijk", "efxhi", 0))
}

// TestMatchReturnsNoMatchBeyondThreshold checks that a pattern with no
// plausible occurrence reports -1 rather than some arbitrary location.
func TestMatchReturnsNoMatchBeyondThreshold(t *testing.T) {
	config := NewDefaultConfig()
	assert.Equal(t, -1, config.Match("abcdefghijk", "zzzzzzzzzz", 0))
}

// TestMatchAlphabetMarksEveryOccurrence checks the Bitap alphabet assigns
// each pattern character a bitmask with one bit set per position it
// occupies in the pattern.
func TestMatchAlphabetMarksEveryOccurrence(t *testing.T) {
	config := NewDefaultConfig()
	s := config.MatchAlphabet("abab")
	// 'a' occupies positions 0 and 2 (from the right: bits 3 and 1).
	assert.Equal(t, 0b1010, s['a'])
	// 'b' occupies positions 1 and 3 (from the right: bits 2 and 0).
	assert.Equal(t, 0b0101, s['b'])
}
