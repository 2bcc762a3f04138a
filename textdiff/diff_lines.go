package textdiff

import (
	"strconv"
	"strings"
)

// DiffLinesToChars splits two texts into a list of strings, reducing each
// text to a comma-separated string of decimal line indices into the
// returned line array; a line is not encoded as a single character.
// Calling DiffLinesToRunes first is slightly faster when the caller is
// going to feed the result to DiffRunes anyway.
func (config *Config) DiffLinesToChars(text1, text2 string) (string, string, []string) {
	chars1, chars2, lineArray := config.linesToStrings(text1, text2)
	return chars1, chars2, lineArray
}

// DiffLinesToRunes returns the runes of the same comma-separated index
// strings DiffLinesToChars builds; a rune does not stand for one line.
func (config *Config) DiffLinesToRunes(text1, text2 string) ([]rune, []rune, []string) {
	chars1, chars2, lineArray := config.linesToStrings(text1, text2)
	return []rune(chars1), []rune(chars2), lineArray
}

// DiffCharsToLines rehydrates a diff produced over line hashes back into
// the real lines of text they stood in for.
func (config *Config) DiffCharsToLines(diffs []Diff, lineArray []string) []Diff {
	hydrated := make([]Diff, 0, len(diffs))
	for _, d := range diffs {
		chars := strings.Split(d.Text, ",")
		text := make([]string, len(chars))
		for i, r := range chars {
			i1, err := strconv.Atoi(r)
			if err == nil {
				text[i] = lineArray[i1]
			}
		}
		d.Text = strings.Join(text, "")
		hydrated = append(hydrated, d)
	}
	return hydrated
}

// linesToStrings turns two texts into per-line hash strings plus the
// lookup table those hashes index into.
func (config *Config) linesToStrings(text1, text2 string) (string, string, []string) {
	// index 0 is reserved: '\x00' is a valid character but a pain to debug
	// with, so the hash alphabet skips it by seeding the array with a
	// throwaway entry.
	lineArray := []string{""}
	strIndexArray1 := config.mungeLines(text1, &lineArray)
	strIndexArray2 := config.mungeLines(text2, &lineArray)
	return intArrayToString(strIndexArray1), intArrayToString(strIndexArray2), lineArray
}

// mungeLines walks text one line at a time, assigning each distinct line an
// index into lineArray and returning the sequence of indices that
// reconstructs text. Walking byte offsets rather than calling
// strings.Split avoids doubling memory on large inputs.
func (config *Config) mungeLines(text string, lineArray *[]string) []uint32 {
	lineHash := map[string]int{}
	lineStart := 0
	lineEnd := -1
	strs := []uint32{}
	for lineEnd < len(text)-1 {
		lineEnd = indexOf(text, "\n", lineStart)
		if lineEnd == -1 {
			lineEnd = len(text) - 1
		}
		line := text[lineStart : lineEnd+1]
		lineStart = lineEnd + 1
		lineValue, ok := lineHash[line]
		if ok {
			strs = append(strs, uint32(lineValue))
		} else {
			*lineArray = append(*lineArray, line)
			lineHash[line] = len(*lineArray) - 1
			strs = append(strs, uint32(len(*lineArray)-1))
		}
	}
	return strs
}

// DiffCommonPrefix determines the common prefix length of two strings.
func (config *Config) DiffCommonPrefix(text1, text2 string) int {
	return commonPrefixLength([]rune(text1), []rune(text2))
}

// DiffCommonSuffix determines the common suffix length of two strings.
func (config *Config) DiffCommonSuffix(text1, text2 string) int {
	return commonSuffixLength([]rune(text1), []rune(text2))
}

// DiffCommonOverlap determines the length of the longest suffix of text1
// that is also a prefix of text2.
func (config *Config) DiffCommonOverlap(text1 string, text2 string) int {
	text1Length := len(text1)
	text2Length := len(text2)
	if text1Length == 0 || text2Length == 0 {
		return 0
	}
	if text1Length > text2Length {
		text1 = text1[text1Length-text2Length:]
	} else if text1Length < text2Length {
		text2 = text2[0:text1Length]
	}
	textLength := min(text1Length, text2Length)
	if text1 == text2 {
		return textLength
	}
	// grow a candidate suffix/prefix match one character at a time; see
	// https://neil.fraser.name/news/2010/11/04/ for the approach.
	best := 0
	length := 1
	for {
		pattern := text1[textLength-length:]
		found := strings.Index(text2, pattern)
		if found == -1 {
			break
		}
		length += found
		if found == 0 || text1[textLength-length:] == text2[0:length] {
			best = length
			length++
		}
	}
	return best
}

// DiffHalfMatch checks whether the two texts share a substring at least
// half the length of the longer text. This speedup can produce non-minimal
// diffs, and is skipped entirely when DiffTimeout is non-positive.
func (config *Config) DiffHalfMatch(text1, text2 string) []string {
	runeSlices := config.halfMatch([]rune(text1), []rune(text2))
	if runeSlices == nil {
		return nil
	}
	result := make([]string, len(runeSlices))
	for i, r := range runeSlices {
		result[i] = string(r)
	}
	return result
}

// halfMatch looks for a half-match seeded at both the second and third
// quarter of the longer text and keeps whichever seed produced the longer
// common middle.
func (config *Config) halfMatch(text1, text2 []rune) [][]rune {
	if config.DiffTimeout <= 0 {
		// an unbounded time budget means it's never worth risking a
		// non-optimal diff for this speedup.
		return nil
	}
	var longtext, shorttext []rune
	if len(text1) > len(text2) {
		longtext = text1
		shorttext = text2
	} else {
		longtext = text2
		shorttext = text1
	}
	if len(longtext) < 4 || len(shorttext)*2 < len(longtext) {
		return nil
	}
	hm1 := config.halfMatchAt(longtext, shorttext, int(float64(len(longtext)+3)/4))
	hm2 := config.halfMatchAt(longtext, shorttext, int(float64(len(longtext)+1)/2))
	var hm [][]rune
	if hm1 == nil && hm2 == nil {
		return nil
	} else if hm2 == nil {
		hm = hm1
	} else if hm1 == nil {
		hm = hm2
	} else if len(hm1[4]) > len(hm2[4]) {
		hm = hm1
	} else {
		hm = hm2
	}
	if len(text1) > len(text2) {
		return hm
	}
	return [][]rune{hm[2], hm[3], hm[0], hm[1], hm[4]}
}

// halfMatchAt checks whether a quarter-length seed of longtext taken at i
// recurs in shorttext, and if so grows it into the longest common middle
// that still qualifies as at least half of longtext. Returns the prefix
// and suffix of both texts around that middle, or nil if none qualifies.
func (config *Config) halfMatchAt(longtext, shorttext []rune, i int) [][]rune {
	var bestCommonA []rune
	var bestCommonB []rune
	var bestCommonLen int
	var bestLongtextA []rune
	var bestLongtextB []rune
	var bestShorttextA []rune
	var bestShorttextB []rune
	seed := longtext[i : i+len(longtext)/4]
	for j := runesIndexOf(shorttext, seed, 0); j != -1; j = runesIndexOf(shorttext, seed, j+1) {
		prefixLength := commonPrefixLength(longtext[i:], shorttext[j:])
		suffixLength := commonSuffixLength(longtext[:i], shorttext[:j])
		if bestCommonLen < suffixLength+prefixLength {
			bestCommonA = shorttext[j-suffixLength : j]
			bestCommonB = shorttext[j : j+prefixLength]
			bestCommonLen = len(bestCommonA) + len(bestCommonB)
			bestLongtextA = longtext[:i-suffixLength]
			bestLongtextB = longtext[i+prefixLength:]
			bestShorttextA = shorttext[:j-suffixLength]
			bestShorttextB = shorttext[j+prefixLength:]
		}
	}
	if bestCommonLen*2 < len(longtext) {
		return nil
	}
	return [][]rune{
		bestLongtextA,
		bestLongtextB,
		bestShorttextA,
		bestShorttextB,
		append(bestCommonA, bestCommonB...),
	}
}
