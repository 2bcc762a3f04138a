package textdiff

import (
	"bytes"
	"errors"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// Patch holds one GNU-diff-style hunk: the diff operations it carries plus
// its position and length in both the source and destination text.
type Patch struct {
	Diffs   []Diff
	Start1  int
	Start2  int
	Length1 int
	Length2 int
}

// String renders a patch in the classic unified-diff hunk format:
//
//	@@ -382,8 +481,9 @@
//	 context
//	-deleted
//	+inserted
//
// Indices in the header are 1-based.
func (p *Patch) String() string {
	var coords1, coords2 string
	switch {
	case p.Length1 == 0:
		coords1 = strconv.Itoa(p.Start1) + ",0"
	case p.Length1 == 1:
		coords1 = strconv.Itoa(p.Start1 + 1)
	default:
		coords1 = strconv.Itoa(p.Start1+1) + "," + strconv.Itoa(p.Length1)
	}
	switch {
	case p.Length2 == 0:
		coords2 = strconv.Itoa(p.Start2) + ",0"
	case p.Length2 == 1:
		coords2 = strconv.Itoa(p.Start2 + 1)
	default:
		coords2 = strconv.Itoa(p.Start2+1) + "," + strconv.Itoa(p.Length2)
	}
	var buf bytes.Buffer
	_, _ = buf.WriteString("@@ -" + coords1 + " +" + coords2 + " @@\n")
	for _, d := range p.Diffs {
		switch d.Op {
		case OpInsert:
			_, _ = buf.WriteString("+")
		case OpDelete:
			_, _ = buf.WriteString("-")
		case OpEqual:
			_, _ = buf.WriteString(" ")
		}
		_, _ = buf.WriteString(strings.Replace(url.QueryEscape(d.Text), "+", " ", -1))
		_, _ = buf.WriteString("\n")
	}
	return unescaper.Replace(buf.String())
}

// PatchAddContext grows a patch's surrounding context until its pattern is
// unique within text, capped so the pattern never exceeds MatchMaxBits.
func (config *Config) PatchAddContext(patch Patch, text string) Patch {
	if len(text) == 0 {
		return patch
	}
	pattern := text[patch.Start2 : patch.Start2+patch.Length1]
	padding := 0
	for strings.Index(text, pattern) != strings.LastIndex(text, pattern) &&
		len(pattern) < config.MatchMaxBits-2*config.PatchMargin {
		padding += config.PatchMargin
		maxStart := max(0, patch.Start2-padding)
		minEnd := min(len(text), patch.Start2+patch.Length1+padding)
		pattern = text[maxStart:minEnd]
	}
	// widen by one more chunk even once the pattern is already unique.
	padding += config.PatchMargin
	prefix := text[max(0, patch.Start2-padding):patch.Start2]
	if len(prefix) != 0 {
		patch.Diffs = append([]Diff{{OpEqual, prefix}}, patch.Diffs...)
	}
	suffix := text[patch.Start2+patch.Length1 : min(len(text), patch.Start2+patch.Length1+padding)]
	if len(suffix) != 0 {
		patch.Diffs = append(patch.Diffs, Diff{OpEqual, suffix})
	}
	patch.Start1 -= len(prefix)
	patch.Start2 -= len(prefix)
	patch.Length1 += len(prefix) + len(suffix)
	patch.Length2 += len(prefix) + len(suffix)
	return patch
}

// PatchMake builds a list of patches. Accepts either a single []Diff, a
// (text1, text2) pair, a (text1, diffs) pair, or (text1, text2, diffs) —
// the three-argument form exists only so callers that already have all
// three values on hand don't need to discard one; text2 itself is never
// used since diffs already determines it.
func (config *Config) PatchMake(opt ...interface{}) []Patch {
	switch len(opt) {
	case 1:
		diffs, _ := opt[0].([]Diff)
		text1 := config.DiffText1(diffs)
		return config.PatchMake(text1, diffs)
	case 2:
		text1 := opt[0].(string)
		switch t := opt[1].(type) {
		case string:
			diffs := config.Diff(text1, t, true)
			if len(diffs) > 2 {
				diffs = config.DiffCleanupSemantic(diffs)
				diffs = config.DiffCleanupEfficiency(diffs)
			}
			return config.PatchMake(text1, diffs)
		case []Diff:
			return config.makePatchesFromDiffs(text1, t)
		}
	case 3:
		return config.PatchMake(opt[0], opt[2])
	}
	return []Patch{}
}

// makePatchesFromDiffs turns a (text1, diffs) pair into hunks, replaying
// the diffs against text1 to derive each hunk's position and context.
func (config *Config) makePatchesFromDiffs(text1 string, diffs []Diff) []Patch {
	patches := []Patch{}
	if len(diffs) == 0 {
		return patches
	}
	patch := Patch{}
	charCount1 := 0
	charCount2 := 0
	// replay the diffs over text1 to derive postpatchText, tracking
	// context info as we go so each hunk can be emitted with its
	// surrounding equalities attached.
	prepatchText := text1
	postpatchText := text1
	for i, d := range diffs {
		if len(patch.Diffs) == 0 && d.Op != OpEqual {
			patch.Start1 = charCount1
			patch.Start2 = charCount2
		}
		switch d.Op {
		case OpInsert:
			patch.Diffs = append(patch.Diffs, d)
			patch.Length2 += len(d.Text)
			postpatchText = postpatchText[:charCount2] + d.Text + postpatchText[charCount2:]
		case OpDelete:
			patch.Length1 += len(d.Text)
			patch.Diffs = append(patch.Diffs, d)
			postpatchText = postpatchText[:charCount2] + postpatchText[charCount2+len(d.Text):]
		case OpEqual:
			if len(d.Text) <= 2*config.PatchMargin && len(patch.Diffs) != 0 && i != len(diffs)-1 {
				// small enough to keep as interior context.
				patch.Diffs = append(patch.Diffs, d)
				patch.Length1 += len(d.Text)
				patch.Length2 += len(d.Text)
			}
			if len(d.Text) >= 2*config.PatchMargin {
				// big enough equality to end the current hunk.
				if len(patch.Diffs) != 0 {
					patch = config.PatchAddContext(patch, prepatchText)
					patches = append(patches, patch)
					patch = Patch{}
					// unlike unidiff, context rolls forward: the next hunk's
					// prepatch text reflects this one already applied.
					prepatchText = postpatchText
					charCount1 = charCount2
				}
			}
		}
		if d.Op != OpInsert {
			charCount1 += len(d.Text)
		}
		if d.Op != OpDelete {
			charCount2 += len(d.Text)
		}
	}
	if len(patch.Diffs) != 0 {
		patch = config.PatchAddContext(patch, prepatchText)
		patches = append(patches, patch)
	}
	return patches
}

// PatchDeepCopy returns a patch list with no shared backing storage with
// patches.
func (config *Config) PatchDeepCopy(patches []Patch) []Patch {
	patchesCopy := []Patch{}
	for _, p := range patches {
		patchCopy := Patch{
			Start1:  p.Start1,
			Start2:  p.Start2,
			Length1: p.Length1,
			Length2: p.Length2,
		}
		for _, d := range p.Diffs {
			patchCopy.Diffs = append(patchCopy.Diffs, Diff{d.Op, d.Text})
		}
		patchesCopy = append(patchesCopy, patchCopy)
	}
	return patchesCopy
}

// PatchApply applies a set of patches to text, returning the patched text
// and a per-patch flag reporting whether each one found a home (via an
// exact or fuzzy location match) and was applied.
func (config *Config) PatchApply(patches []Patch, text string) (string, []bool) {
	if len(patches) == 0 {
		return text, []bool{}
	}
	patches = config.PatchDeepCopy(patches)
	nullPadding := config.PatchAddPadding(patches)
	text = nullPadding + text + nullPadding
	patches = config.PatchSplitMax(patches)
	x := 0
	// delta tracks the drift between a patch's expected position and
	// where the previous patch actually landed, so subsequent patches
	// adjust their expected position accordingly.
	delta := 0
	results := make([]bool, len(patches))
	for _, p := range patches {
		expectedLoc := p.Start2 + delta
		text1 := config.DiffText1(p.Diffs)
		var startLoc int
		endLoc := -1
		if len(text1) > config.MatchMaxBits {
			// PatchSplitMax only leaves an oversized pattern for a single
			// giant deletion; match its two ends independently.
			startLoc = config.Match(text, text1[:config.MatchMaxBits], expectedLoc)
			if startLoc != -1 {
				endLoc = config.Match(text,
					text1[len(text1)-config.MatchMaxBits:], expectedLoc+len(text1)-config.MatchMaxBits)
				if endLoc == -1 || startLoc >= endLoc {
					startLoc = -1 // no usable trailing context; drop the patch.
				}
			}
		} else {
			startLoc = config.Match(text, text1, expectedLoc)
		}
		if startLoc == -1 {
			results[x] = false
			delta -= p.Length2 - p.Length1
		} else {
			results[x] = true
			delta = startLoc - expectedLoc
			var text2 string
			if endLoc == -1 {
				text2 = text[startLoc:min(startLoc+len(text1), len(text))]
			} else {
				text2 = text[startLoc:min(endLoc+config.MatchMaxBits, len(text))]
			}
			if text1 == text2 {
				text = text[:startLoc] + config.DiffText2(p.Diffs) + text[startLoc+len(text1):]
			} else {
				// endpoints matched but the interior drifted; diff the two
				// to find where each edit now belongs.
				diffs := config.Diff(text1, text2, false)
				if len(text1) > config.MatchMaxBits && float64(config.DiffLevenshtein(diffs))/float64(len(text1)) > config.PatchDeleteThreshold {
					results[x] = false
				} else {
					diffs = config.DiffCleanupSemanticLossless(diffs)
					index1 := 0
					for _, d := range p.Diffs {
						if d.Op != OpEqual {
							index2 := config.DiffXIndex(diffs, index1)
							if d.Op == OpInsert {
								text = text[:startLoc+index2] + d.Text + text[startLoc+index2:]
							} else if d.Op == OpDelete {
								startIndex := startLoc + index2
								text = text[:startIndex] +
									text[startIndex+config.DiffXIndex(diffs, index1+len(d.Text))-index2:]
							}
						}
						if d.Op != OpDelete {
							index1 += len(d.Text)
						}
					}
				}
			}
		}
		x++
	}
	return text[len(nullPadding) : len(nullPadding)+(len(text)-2*len(nullPadding))], results
}

// PatchAddPadding pads text's start and end with sentinel characters so
// patches touching either edge still have something to match against.
// Called from within PatchApply and PatchApplyWithOffsets.
func (config *Config) PatchAddPadding(patches []Patch) string {
	paddingLength := config.PatchMargin
	nullPadding := ""
	for x := 1; x <= paddingLength; x++ {
		nullPadding += string(rune(x))
	}
	for i := range patches {
		patches[i].Start1 += paddingLength
		patches[i].Start2 += paddingLength
	}
	if len(patches[0].Diffs) == 0 || patches[0].Diffs[0].Op != OpEqual {
		patches[0].Diffs = append([]Diff{{OpEqual, nullPadding}}, patches[0].Diffs...)
		patches[0].Start1 -= paddingLength
		patches[0].Start2 -= paddingLength
		patches[0].Length1 += paddingLength
		patches[0].Length2 += paddingLength
	} else if paddingLength > len(patches[0].Diffs[0].Text) {
		extraLength := paddingLength - len(patches[0].Diffs[0].Text)
		patches[0].Diffs[0].Text = nullPadding[len(patches[0].Diffs[0].Text):] + patches[0].Diffs[0].Text
		patches[0].Start1 -= extraLength
		patches[0].Start2 -= extraLength
		patches[0].Length1 += extraLength
		patches[0].Length2 += extraLength
	}
	last := len(patches) - 1
	if len(patches[last].Diffs) == 0 || patches[last].Diffs[len(patches[last].Diffs)-1].Op != OpEqual {
		patches[last].Diffs = append(patches[last].Diffs, Diff{OpEqual, nullPadding})
		patches[last].Length1 += paddingLength
		patches[last].Length2 += paddingLength
	} else if paddingLength > len(patches[last].Diffs[len(patches[last].Diffs)-1].Text) {
		lastDiff := patches[last].Diffs[len(patches[last].Diffs)-1]
		extraLength := paddingLength - len(lastDiff.Text)
		patches[last].Diffs[len(patches[last].Diffs)-1].Text += nullPadding[:extraLength]
		patches[last].Length1 += extraLength
		patches[last].Length2 += extraLength
	}
	return nullPadding
}

// PatchSplitMax breaks up any patch whose source length exceeds the match
// algorithm's MatchMaxBits limit into several smaller patches with rolling
// context. Called from within PatchApply and PatchApplyWithOffsets.
func (config *Config) PatchSplitMax(patches []Patch) []Patch {
	patchSize := config.MatchMaxBits
	for x := 0; x < len(patches); x++ {
		if patches[x].Length1 <= patchSize {
			continue
		}
		bigpatch := patches[x]
		patches = append(patches[:x], patches[x+1:]...)
		x--
		start1 := bigpatch.Start1
		start2 := bigpatch.Start2
		precontext := ""
		for len(bigpatch.Diffs) != 0 {
			patch := Patch{}
			empty := true
			patch.Start1 = start1 - len(precontext)
			patch.Start2 = start2 - len(precontext)
			if len(precontext) != 0 {
				patch.Length1 = len(precontext)
				patch.Length2 = len(precontext)
				patch.Diffs = append(patch.Diffs, Diff{OpEqual, precontext})
			}
			for len(bigpatch.Diffs) != 0 && patch.Length1 < patchSize-config.PatchMargin {
				diffType := bigpatch.Diffs[0].Op
				diffText := bigpatch.Diffs[0].Text
				switch {
				case diffType == OpInsert:
					// insertions never push the source length over the limit.
					patch.Length2 += len(diffText)
					start2 += len(diffText)
					patch.Diffs = append(patch.Diffs, bigpatch.Diffs[0])
					bigpatch.Diffs = bigpatch.Diffs[1:]
					empty = false
				case diffType == OpDelete && len(patch.Diffs) == 1 && patch.Diffs[0].Op == OpEqual && len(diffText) > 2*patchSize:
					// a delete this large is let through whole rather than split.
					patch.Length1 += len(diffText)
					start1 += len(diffText)
					empty = false
					patch.Diffs = append(patch.Diffs, Diff{diffType, diffText})
					bigpatch.Diffs = bigpatch.Diffs[1:]
				default:
					// delete or equality: take only as much as still fits.
					diffText = diffText[:min(len(diffText), patchSize-patch.Length1-config.PatchMargin)]
					patch.Length1 += len(diffText)
					start1 += len(diffText)
					if diffType == OpEqual {
						patch.Length2 += len(diffText)
						start2 += len(diffText)
					} else {
						empty = false
					}
					patch.Diffs = append(patch.Diffs, Diff{diffType, diffText})
					if diffText == bigpatch.Diffs[0].Text {
						bigpatch.Diffs = bigpatch.Diffs[1:]
					} else {
						bigpatch.Diffs[0].Text = bigpatch.Diffs[0].Text[len(diffText):]
					}
				}
			}
			// carry the tail of this hunk forward as the next hunk's
			// leading context.
			precontext = config.DiffText2(patch.Diffs)
			precontext = precontext[max(0, len(precontext)-config.PatchMargin):]
			var postcontext string
			if len(config.DiffText1(bigpatch.Diffs)) > config.PatchMargin {
				postcontext = config.DiffText1(bigpatch.Diffs)[:config.PatchMargin]
			} else {
				postcontext = config.DiffText1(bigpatch.Diffs)
			}
			if len(postcontext) != 0 {
				patch.Length1 += len(postcontext)
				patch.Length2 += len(postcontext)
				if len(patch.Diffs) != 0 && patch.Diffs[len(patch.Diffs)-1].Op == OpEqual {
					patch.Diffs[len(patch.Diffs)-1].Text += postcontext
				} else {
					patch.Diffs = append(patch.Diffs, Diff{OpEqual, postcontext})
				}
			}
			if !empty {
				x++
				patches = append(patches[:x], append([]Patch{patch}, patches[x:]...)...)
			}
		}
	}
	return patches
}

// PatchToText renders a list of patches as their concatenated textual form.
func (config *Config) PatchToText(patches []Patch) string {
	var buf bytes.Buffer
	for _, p := range patches {
		_, _ = buf.WriteString(p.String())
	}
	return buf.String()
}

var patchHeaderRE = regexp.MustCompile(`^@@ -(\d+),?(\d*) \+(\d+),?(\d*) @@$`)

// PatchFromText parses the textual representation produced by PatchToText
// back into a list of patches.
func (config *Config) PatchFromText(textline string) ([]Patch, error) {
	patches := []Patch{}
	if len(textline) == 0 {
		return patches, nil
	}
	text := strings.Split(textline, "\n")
	textPointer := 0
	var patch Patch
	var sign uint8
	var line string
	for textPointer < len(text) {
		if !patchHeaderRE.MatchString(text[textPointer]) {
			return patches, errors.New("invalid patch string: " + text[textPointer])
		}
		patch = Patch{}
		m := patchHeaderRE.FindStringSubmatch(text[textPointer])
		patch.Start1, _ = strconv.Atoi(m[1])
		switch {
		case len(m[2]) == 0:
			patch.Start1--
			patch.Length1 = 1
		case m[2] == "0":
			patch.Length1 = 0
		default:
			patch.Start1--
			patch.Length1, _ = strconv.Atoi(m[2])
		}
		patch.Start2, _ = strconv.Atoi(m[3])
		switch {
		case len(m[4]) == 0:
			patch.Start2--
			patch.Length2 = 1
		case m[4] == "0":
			patch.Length2 = 0
		default:
			patch.Start2--
			patch.Length2, _ = strconv.Atoi(m[4])
		}
		textPointer++
		for textPointer < len(text) {
			if len(text[textPointer]) > 0 {
				sign = text[textPointer][0]
			} else {
				textPointer++
				continue
			}
			line = text[textPointer][1:]
			line = strings.Replace(line, "+", "%2b", -1)
			line, _ = url.QueryUnescape(line)
			switch sign {
			case '-':
				patch.Diffs = append(patch.Diffs, Diff{OpDelete, line})
			case '+':
				patch.Diffs = append(patch.Diffs, Diff{OpInsert, line})
			case ' ':
				patch.Diffs = append(patch.Diffs, Diff{OpEqual, line})
			case '@':
				// the next hunk header; stop consuming lines for this patch.
			default:
				return patches, errors.New("invalid patch mode '" + string(sign) + "' in: " + line)
			}
			if sign == '@' {
				break
			}
			textPointer++
		}
		patches = append(patches, patch)
	}
	return patches, nil
}
