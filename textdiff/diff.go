package textdiff

//go:generate stringer -type=Op -trimprefix=Op

import (
	"time"
)

// Op is the diff operation enum.
type Op int

// Op values.
const (
	// OpDelete item represents a delete diff.
	OpDelete Op = -1
	// OpInsert item represents an insert diff.
	OpInsert Op = 1
	// OpEqual item represents an equal diff.
	OpEqual Op = 0
)

// Diff contains information about a single diff operation.
type Diff struct {
	Op   Op
	Text string
}

// Diff finds the differences between two texts.
//
// If an invalid UTF-8 sequence is encountered, it will be replaced by the
// Unicode replacement character.
func (config *Config) Diff(text1, text2 string, checklines bool) []Diff {
	return config.DiffRunes([]rune(text1), []rune(text2), checklines)
}

// DiffRunes finds the differences between two rune sequences.
//
// If an invalid UTF-8 sequence is encountered, it will be replaced by the
// Unicode replacement character.
func (config *Config) DiffRunes(text1, text2 []rune, checklines bool) []Diff {
	var deadline time.Time
	if config.DiffTimeout > 0 {
		deadline = time.Now().Add(config.DiffTimeout)
	}
	return config.diffRunes(text1, text2, checklines, deadline)
}

// diffRunes is the shared entry point for Diff, DiffRunes and DiffDeadline:
// it trims the common affixes off both sides before handing the remaining
// middle block to computeDiff, then normalizes the result.
func (config *Config) diffRunes(text1, text2 []rune, checklines bool, deadline time.Time) []Diff {
	if runesEqual(text1, text2) {
		var diffs []Diff
		if len(text1) > 0 {
			diffs = append(diffs, Diff{OpEqual, string(text1)})
		}
		return diffs
	}
	// strip the common prefix and suffix so computeDiff only ever sees the
	// part of the two texts that actually differs.
	commonlength := commonPrefixLength(text1, text2)
	commonprefix := text1[:commonlength]
	text1 = text1[commonlength:]
	text2 = text2[commonlength:]
	commonlength = commonSuffixLength(text1, text2)
	commonsuffix := text1[len(text1)-commonlength:]
	text1 = text1[:len(text1)-commonlength]
	text2 = text2[:len(text2)-commonlength]
	diffs := config.computeDiff(text1, text2, checklines, deadline)
	if len(commonprefix) != 0 {
		diffs = append([]Diff{{OpEqual, string(commonprefix)}}, diffs...)
	}
	if len(commonsuffix) != 0 {
		diffs = append(diffs, Diff{OpEqual, string(commonsuffix)})
	}
	return config.DiffCleanupMerge(diffs)
}

// computeDiff finds the differences between two rune slices that share no
// common prefix or suffix. It tries a sequence of speedups in increasing
// cost before falling back to the bisect algorithm: an exact containment
// check, a single-character shortcut, the half-match heuristic, and
// (when checklines is set and both texts are long) a line-level pass.
func (config *Config) computeDiff(text1, text2 []rune, checklines bool, deadline time.Time) []Diff {
	diffs := []Diff{}
	if len(text1) == 0 {
		return append(diffs, Diff{OpInsert, string(text2)})
	} else if len(text2) == 0 {
		return append(diffs, Diff{OpDelete, string(text1)})
	}
	var longtext, shorttext []rune
	if len(text1) > len(text2) {
		longtext = text1
		shorttext = text2
	} else {
		longtext = text2
		shorttext = text1
	}
	if i := runesIndex(longtext, shorttext); i != -1 {
		op := OpInsert
		if len(text1) > len(text2) {
			op = OpDelete
		}
		// the shorter text is wholly contained in the longer one.
		return []Diff{
			{op, string(longtext[:i])},
			{OpEqual, string(shorttext)},
			{op, string(longtext[i+len(shorttext):])},
		}
	} else if len(shorttext) == 1 {
		// a single character can't be an equality at this point, since the
		// containment check above already ruled that out.
		return []Diff{
			{OpDelete, string(text1)},
			{OpInsert, string(text2)},
		}
	} else if hm := config.halfMatch(text1, text2); hm != nil {
		text1A, text1B, text2A, text2B, midCommon := hm[0], hm[1], hm[2], hm[3], hm[4]
		diffsA := config.diffRunes(text1A, text2A, checklines, deadline)
		diffsB := config.diffRunes(text1B, text2B, checklines, deadline)
		diffs := diffsA
		diffs = append(diffs, Diff{OpEqual, string(midCommon)})
		diffs = append(diffs, diffsB...)
		return diffs
	} else if checklines && len(text1) > 100 && len(text2) > 100 {
		return config.lineModeDiff(text1, text2, deadline)
	}
	return config.bisectDiff(text1, text2, deadline)
}

// lineModeDiff diffs two long texts line-by-line first, then re-diffs each
// changed block character-by-character for precision. This speedup can
// produce non-minimal diffs.
func (config *Config) lineModeDiff(text1, text2 []rune, deadline time.Time) []Diff {
	runes1, runes2, linearray := config.DiffLinesToRunes(string(text1), string(text2))
	diffs := config.diffRunes(runes1, runes2, false, deadline)
	diffs = config.DiffCharsToLines(diffs, linearray)
	// freak matches (e.g. a lone blank line) look like real changes at the
	// line level; clean those up before re-diffing character-by-character.
	diffs = config.DiffCleanupSemantic(diffs)
	diffs = append(diffs, Diff{OpEqual, ""})
	pointer := 0
	countDelete := 0
	countInsert := 0
	textDelete := ""
	textInsert := ""
	for pointer < len(diffs) {
		switch diffs[pointer].Op {
		case OpInsert:
			countInsert++
			textInsert += diffs[pointer].Text
		case OpDelete:
			countDelete++
			textDelete += diffs[pointer].Text
		case OpEqual:
			// reaching an equality means any accumulated insert/delete run
			// directly preceding it needs a finer re-diff.
			if countDelete >= 1 && countInsert >= 1 {
				diffs = splice(diffs, pointer-countDelete-countInsert,
					countDelete+countInsert)
				pointer = pointer - countDelete - countInsert
				a := config.diffRunes([]rune(textDelete), []rune(textInsert), false, deadline)
				for j := len(a) - 1; j >= 0; j-- {
					diffs = splice(diffs, pointer, 0, a[j])
				}
				pointer = pointer + len(a)
			}
			countInsert = 0
			countDelete = 0
			textDelete = ""
			textInsert = ""
		}
		pointer++
	}
	return diffs[:len(diffs)-1] // drop the trailing sentinel equality.
}

// DiffBisect finds the middle snake of a diff, splits the problem in two and
// returns the recursively constructed diff.
//
// See Myers 1986: "An O(ND) Difference Algorithm and Its Variations".
func (config *Config) DiffBisect(text1, text2 string, deadline time.Time) []Diff {
	return config.bisectDiff([]rune(text1), []rune(text2), deadline)
}

// bisectDiff runs the Myers O(ND) algorithm, expanding a front path and a
// reverse path simultaneously until they overlap, then hands the split
// point to splitBisect. Falls back to a pure delete+insert pair if the
// deadline is reached before a middle snake is found.
func (config *Config) bisectDiff(runes1, runes2 []rune, deadline time.Time) []Diff {
	runes1Len, runes2Len := len(runes1), len(runes2)
	maxD := (runes1Len + runes2Len + 1) / 2
	vOffset := maxD
	vLength := 2 * maxD
	v1 := make([]int, vLength)
	v2 := make([]int, vLength)
	for i := range v1 {
		v1[i] = -1
		v2[i] = -1
	}
	v1[vOffset+1] = 0
	v2[vOffset+1] = 0
	delta := runes1Len - runes2Len
	// an odd total length means the front path and reverse path will
	// collide on a front-path step.
	front := delta%2 != 0
	k1start := 0
	k1end := 0
	k2start := 0
	k2end := 0
	for d := 0; d < maxD; d++ {
		if !deadline.IsZero() && d%16 == 0 && time.Now().After(deadline) {
			break
		}
		// advance the front path by one step.
		for k1 := -d + k1start; k1 <= d-k1end; k1 += 2 {
			k1Offset := vOffset + k1
			var x1 int
			if k1 == -d || (k1 != d && v1[k1Offset-1] < v1[k1Offset+1]) {
				x1 = v1[k1Offset+1]
			} else {
				x1 = v1[k1Offset-1] + 1
			}
			y1 := x1 - k1
			for x1 < runes1Len && y1 < runes2Len {
				if runes1[x1] != runes2[y1] {
					break
				}
				x1++
				y1++
			}
			v1[k1Offset] = x1
			if x1 > runes1Len {
				k1end += 2
			} else if y1 > runes2Len {
				k1start += 2
			} else if front {
				k2Offset := vOffset + delta - k1
				if k2Offset >= 0 && k2Offset < vLength && v2[k2Offset] != -1 {
					x2 := runes1Len - v2[k2Offset]
					if x1 >= x2 {
						return config.splitBisect(runes1, runes2, x1, y1, deadline)
					}
				}
			}
		}
		// advance the reverse path by one step.
		for k2 := -d + k2start; k2 <= d-k2end; k2 += 2 {
			k2Offset := vOffset + k2
			var x2 int
			if k2 == -d || (k2 != d && v2[k2Offset-1] < v2[k2Offset+1]) {
				x2 = v2[k2Offset+1]
			} else {
				x2 = v2[k2Offset-1] + 1
			}
			y2 := x2 - k2
			for x2 < runes1Len && y2 < runes2Len {
				if runes1[runes1Len-x2-1] != runes2[runes2Len-y2-1] {
					break
				}
				x2++
				y2++
			}
			v2[k2Offset] = x2
			if x2 > runes1Len {
				k2end += 2
			} else if y2 > runes2Len {
				k2start += 2
			} else if !front {
				k1Offset := vOffset + delta - k2
				if k1Offset >= 0 && k1Offset < vLength && v1[k1Offset] != -1 {
					x1 := v1[k1Offset]
					y1 := vOffset + x1 - k1Offset
					x2 = runes1Len - x2
					if x1 >= x2 {
						return config.splitBisect(runes1, runes2, x1, y1, deadline)
					}
				}
			}
		}
	}
	// either the deadline fired or the two texts share nothing in common.
	return []Diff{
		{OpDelete, string(runes1)},
		{OpInsert, string(runes2)},
	}
}

// splitBisect cuts both texts at the snake point found by bisectDiff and
// diffs the two halves independently.
func (config *Config) splitBisect(runes1, runes2 []rune, x, y int, deadline time.Time) []Diff {
	runes1a, runes1b := runes1[:x], runes1[x:]
	runes2a, runes2b := runes2[:y], runes2[y:]
	diffs := config.diffRunes(runes1a, runes2a, false, deadline)
	diffsb := config.diffRunes(runes1b, runes2b, false, deadline)
	return append(diffs, diffsb...)
}
