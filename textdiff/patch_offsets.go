package textdiff

// PatchApplyWithOffsets behaves exactly like PatchApply but additionally
// rewrites a set of caller-supplied cursor offsets through every insertion
// and deletion the patch set performs on text, so that a position recorded
// before the patch (e.g. a textarea caret) keeps pointing at the same
// logical character afterward.
//
// Offsets are given and returned as byte offsets into text. An offset that
// falls inside a deleted span collapses to the start of that span.
func (config *Config) PatchApplyWithOffsets(patches []Patch, text string, offsets []int) (string, []bool, []int) {
	offsets = append([]int(nil), offsets...)
	if len(patches) == 0 {
		return text, []bool{}, offsets
	}
	patches = config.PatchDeepCopy(patches)
	nullPadding := config.PatchAddPadding(patches)
	pad := len(nullPadding)
	shiftOffsets(offsets, 0, pad)
	text = nullPadding + text + nullPadding
	patches = config.PatchSplitMax(patches)
	delta := 0
	results := make([]bool, len(patches))
	for x, p := range patches {
		expectedLoc := p.Start2 + delta
		text1 := config.DiffText1(p.Diffs)
		var startLoc int
		endLoc := -1
		if len(text1) > config.MatchMaxBits {
			startLoc = config.Match(text, text1[:config.MatchMaxBits], expectedLoc)
			if startLoc != -1 {
				endLoc = config.Match(text,
					text1[len(text1)-config.MatchMaxBits:], expectedLoc+len(text1)-config.MatchMaxBits)
				if endLoc == -1 || startLoc >= endLoc {
					startLoc = -1
				}
			}
		} else {
			startLoc = config.Match(text, text1, expectedLoc)
		}
		if startLoc == -1 {
			results[x] = false
			delta -= p.Length2 - p.Length1
			continue
		}
		results[x] = true
		delta = startLoc - expectedLoc
		var text2 string
		if endLoc == -1 {
			text2 = text[startLoc:min(startLoc+len(text1), len(text))]
		} else {
			text2 = text[startLoc:min(endLoc+config.MatchMaxBits, len(text))]
		}
		if text1 == text2 {
			replacement := config.DiffText2(p.Diffs)
			text = text[:startLoc] + replacement + text[startLoc+len(text1):]
			pos := startLoc
			for _, d := range p.Diffs {
				switch d.Op {
				case OpInsert:
					shiftOffsets(offsets, pos, len(d.Text))
					pos += len(d.Text)
				case OpDelete:
					deleteOffsets(offsets, pos, pos+len(d.Text))
				case OpEqual:
					pos += len(d.Text)
				}
			}
			continue
		}
		diffs := config.Diff(text1, text2, false)
		if len(text1) > config.MatchMaxBits && float64(config.DiffLevenshtein(diffs))/float64(len(text1)) > config.PatchDeleteThreshold {
			results[x] = false
			continue
		}
		diffs = config.DiffCleanupSemanticLossless(diffs)
		index1 := 0
		for _, d := range p.Diffs {
			if d.Op != OpEqual {
				index2 := config.DiffXIndex(diffs, index1)
				if d.Op == OpInsert {
					pos := startLoc + index2
					text = text[:pos] + d.Text + text[pos:]
					shiftOffsets(offsets, pos, len(d.Text))
				} else if d.Op == OpDelete {
					startIndex := startLoc + index2
					endIndex := startLoc + config.DiffXIndex(diffs, index1+len(d.Text))
					text = text[:startIndex] + text[endIndex:]
					deleteOffsets(offsets, startIndex, endIndex)
				}
			}
			if d.Op != OpDelete {
				index1 += len(d.Text)
			}
		}
	}
	final := text[pad : pad+(len(text)-2*pad)]
	shiftOffsets(offsets, 0, -pad)
	for i := range offsets {
		if offsets[i] < 0 {
			offsets[i] = 0
		}
		if offsets[i] > len(final) {
			offsets[i] = len(final)
		}
	}
	return final, results, offsets
}

// shiftOffsets adds delta to every offset at or after pos.
func shiftOffsets(offsets []int, pos int, delta int) {
	for i, o := range offsets {
		if o >= pos {
			offsets[i] = o + delta
		}
	}
}

// deleteOffsets removes the [start, end) span from the offset space,
// collapsing any offset inside the span to start.
func deleteOffsets(offsets []int, start, end int) {
	length := end - start
	for i, o := range offsets {
		switch {
		case o >= end:
			offsets[i] = o - length
		case o > start:
			offsets[i] = start
		}
	}
}

// replaceOffsets models a delete of oldLen characters at pos followed by an
// insert of newLen characters at the same position.
func replaceOffsets(offsets []int, pos, oldLen, newLen int) {
	deleteOffsets(offsets, pos, pos+oldLen)
	shiftOffsets(offsets, pos, newLen)
}
