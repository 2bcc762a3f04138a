package textdiff

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DiffCleanupSemantic reduces the number of edits by eliminating
// semantically trivial equalities, then looks for overlapping
// delete/insert pairs that can be collapsed to a smaller edit plus a
// shared equality.
func (config *Config) DiffCleanupSemantic(diffs []Diff) []Diff {
	changes := false
	equalities := make([]int, 0, len(diffs))
	var lastequality string
	var pointer int
	var lengthInsertions1, lengthDeletions1 int
	var lengthInsertions2, lengthDeletions2 int
	for pointer < len(diffs) {
		if diffs[pointer].Op == OpEqual {
			equalities = append(equalities, pointer)
			lengthInsertions1 = lengthInsertions2
			lengthDeletions1 = lengthDeletions2
			lengthInsertions2 = 0
			lengthDeletions2 = 0
			lastequality = diffs[pointer].Text
		} else {
			if diffs[pointer].Op == OpInsert {
				lengthInsertions2 += utf8.RuneCountInString(diffs[pointer].Text)
			} else {
				lengthDeletions2 += utf8.RuneCountInString(diffs[pointer].Text)
			}
			// an equality no bigger than the edits flanking it on both
			// sides isn't carrying its weight; turn it back into an edit.
			difference1 := max(lengthInsertions1, lengthDeletions1)
			difference2 := max(lengthInsertions2, lengthDeletions2)
			if utf8.RuneCountInString(lastequality) > 0 &&
				(utf8.RuneCountInString(lastequality) <= difference1) &&
				(utf8.RuneCountInString(lastequality) <= difference2) {
				insPoint := equalities[len(equalities)-1]
				diffs = splice(diffs, insPoint, 0, Diff{OpDelete, lastequality})
				diffs[insPoint+1].Op = OpInsert
				equalities = equalities[:len(equalities)-1]
				if len(equalities) > 0 {
					equalities = equalities[:len(equalities)-1]
				}
				pointer = -1
				if len(equalities) > 0 {
					pointer = equalities[len(equalities)-1]
				}
				lengthInsertions1 = 0
				lengthDeletions1 = 0
				lengthInsertions2 = 0
				lengthDeletions2 = 0
				lastequality = ""
				changes = true
			}
		}
		pointer++
	}
	if changes {
		diffs = config.DiffCleanupMerge(diffs)
	}
	diffs = config.DiffCleanupSemanticLossless(diffs)
	// look for overlaps between adjacent deletions and insertions:
	//   del("abcxxx") ins("xxxdef")  ->  del("abc") eq("xxx") ins("def")
	//   del("xxxabc") ins("defxxx")  ->  ins("def") eq("xxx") del("abc")
	// only extract the overlap when it's at least half of either edit.
	pointer = 1
	for pointer < len(diffs) {
		if diffs[pointer-1].Op == OpDelete && diffs[pointer].Op == OpInsert {
			deletion := diffs[pointer-1].Text
			insertion := diffs[pointer].Text
			overlapLength1 := config.DiffCommonOverlap(deletion, insertion)
			overlapLength2 := config.DiffCommonOverlap(insertion, deletion)
			if overlapLength1 >= overlapLength2 {
				if float64(overlapLength1) >= float64(utf8.RuneCountInString(deletion))/2 ||
					float64(overlapLength1) >= float64(utf8.RuneCountInString(insertion))/2 {
					diffs = splice(diffs, pointer, 0, Diff{OpEqual, insertion[:overlapLength1]})
					diffs[pointer-1].Text = deletion[0 : len(deletion)-overlapLength1]
					diffs[pointer+1].Text = insertion[overlapLength1:]
					pointer++
				}
			} else {
				if float64(overlapLength2) >= float64(utf8.RuneCountInString(deletion))/2 ||
					float64(overlapLength2) >= float64(utf8.RuneCountInString(insertion))/2 {
					overlap := Diff{OpEqual, deletion[:overlapLength2]}
					diffs = splice(diffs, pointer, 0, overlap)
					diffs[pointer-1].Op = OpInsert
					diffs[pointer-1].Text = insertion[0 : len(insertion)-overlapLength2]
					diffs[pointer+1].Op = OpDelete
					diffs[pointer+1].Text = deletion[overlapLength2:]
					pointer++
				}
			}
			pointer++
		}
		pointer++
	}
	return diffs
}

// word/line boundary regexps used by semanticScore.
var (
	nonAlphaNumericRE = regexp.MustCompile(`[^a-zA-Z0-9]`)
	whitespaceRE      = regexp.MustCompile(`\s`)
	crlfRE            = regexp.MustCompile(`[\r\n]`)
	blankEndRE        = regexp.MustCompile(`\n\r?\n$`)
)

// semanticScore rates how good a boundary between "one" and "two" is as an
// edit boundary, from 0 (worst, mid-word) to 6 (best, already at an edge).
// What counts as whitespace or a line break is deliberately left to Go's
// own notion of those things rather than forced to match other languages'
// definitions, since this scoring is cosmetic rather than load-bearing.
func semanticScore(one, two string) int {
	if len(one) == 0 || len(two) == 0 {
		return 6
	}
	rune1, _ := utf8.DecodeLastRuneInString(one)
	rune2, _ := utf8.DecodeRuneInString(two)
	char1 := string(rune1)
	char2 := string(rune2)
	nonAlphaNumeric1 := nonAlphaNumericRE.MatchString(char1)
	nonAlphaNumeric2 := nonAlphaNumericRE.MatchString(char2)
	whitespace1 := nonAlphaNumeric1 && whitespaceRE.MatchString(char1)
	whitespace2 := nonAlphaNumeric2 && whitespaceRE.MatchString(char2)
	lineBreak1 := whitespace1 && crlfRE.MatchString(char1)
	lineBreak2 := whitespace2 && crlfRE.MatchString(char2)
	blankLine1 := lineBreak1 && blankEndRE.MatchString(one)
	blankLine2 := lineBreak2 && blankEndRE.MatchString(two)
	switch {
	case blankLine1 || blankLine2:
		return 5
	case lineBreak1 || lineBreak2:
		return 4
	case nonAlphaNumeric1 && !whitespace1 && whitespace2:
		return 3
	case whitespace1 || whitespace2:
		return 2
	case nonAlphaNumeric1 || nonAlphaNumeric2:
		return 1
	}
	return 0
}

// DiffCleanupSemanticLossless looks for a single edit flanked by two
// equalities and slides it sideways, character by character, to whichever
// position scores best as a word/line boundary.
// E.g: "The c[ins]at c[/ins]ame." -> "The [ins]cat [/ins]came."
func (config *Config) DiffCleanupSemanticLossless(diffs []Diff) []Diff {
	pointer := 1
	for pointer < len(diffs)-1 {
		if diffs[pointer-1].Op == OpEqual && diffs[pointer+1].Op == OpEqual {
			equality1 := diffs[pointer-1].Text
			edit := diffs[pointer].Text
			equality2 := diffs[pointer+1].Text
			// first slide the edit as far left as the shared suffix allows.
			commonOffset := config.DiffCommonSuffix(equality1, edit)
			if commonOffset > 0 {
				commonString := edit[len(edit)-commonOffset:]
				equality1 = equality1[0 : len(equality1)-commonOffset]
				edit = commonString + edit[:len(edit)-commonOffset]
				equality2 = commonString + equality2
			}
			// then walk it right one character at a time, keeping whichever
			// position scores best.
			bestEquality1 := equality1
			bestEdit := edit
			bestEquality2 := equality2
			bestScore := semanticScore(equality1, edit) + semanticScore(edit, equality2)
			for len(edit) != 0 && len(equality2) != 0 {
				_, sz := utf8.DecodeRuneInString(edit)
				if len(equality2) < sz || edit[:sz] != equality2[:sz] {
					break
				}
				equality1 += edit[:sz]
				edit = edit[sz:] + equality2[:sz]
				equality2 = equality2[sz:]
				score := semanticScore(equality1, edit) + semanticScore(edit, equality2)
				// >= (not >) favors trailing whitespace over leading on ties.
				if score >= bestScore {
					bestScore = score
					bestEquality1 = equality1
					bestEdit = edit
					bestEquality2 = equality2
				}
			}
			if diffs[pointer-1].Text != bestEquality1 {
				if len(bestEquality1) != 0 {
					diffs[pointer-1].Text = bestEquality1
				} else {
					diffs = splice(diffs, pointer-1, 1)
					pointer--
				}
				diffs[pointer].Text = bestEdit
				if len(bestEquality2) != 0 {
					diffs[pointer+1].Text = bestEquality2
				} else {
					diffs = append(diffs[:pointer+1], diffs[pointer+2:]...)
					pointer--
				}
			}
		}
		pointer++
	}
	return diffs
}

// DiffCleanupEfficiency reduces the number of edits by eliminating
// equalities that are operationally not worth the overhead of a separate
// edit (cheaper to re-send than to patch around), per DiffEditCost.
func (config *Config) DiffCleanupEfficiency(diffs []Diff) []Diff {
	changes := false
	type equality struct {
		data int
		next *equality
	}
	var equalities *equality
	lastequality := ""
	pointer := 0
	preIns := false
	preDel := false
	postIns := false
	postDel := false
	for pointer < len(diffs) {
		if diffs[pointer].Op == OpEqual {
			if len(diffs[pointer].Text) < config.DiffEditCost && (postIns || postDel) {
				equalities = &equality{data: pointer, next: equalities}
				preIns = postIns
				preDel = postDel
				lastequality = diffs[pointer].Text
			} else {
				equalities = nil
				lastequality = ""
			}
			postIns = false
			postDel = false
		} else {
			if diffs[pointer].Op == OpDelete {
				postDel = true
			} else {
				postIns = true
			}
			// five shapes of run are worth splitting here:
			//   ins(A) del(B) X ins(C) del(D)
			//   ins(A) X ins(C) del(D)
			//   ins(A) del(B) X ins(C)
			//   del(A) X ins(C) del(D)
			//   ins(A) del(B) X del(C)
			var sumPres int
			if preIns {
				sumPres++
			}
			if preDel {
				sumPres++
			}
			if postIns {
				sumPres++
			}
			if postDel {
				sumPres++
			}
			if len(lastequality) > 0 &&
				((preIns && preDel && postIns && postDel) ||
					((len(lastequality) < config.DiffEditCost/2) && sumPres == 3)) {
				insPoint := equalities.data
				diffs = splice(diffs, insPoint, 0, Diff{OpDelete, lastequality})
				diffs[insPoint+1].Op = OpInsert
				equalities = equalities.next
				lastequality = ""
				if preIns && preDel {
					postIns = true
					postDel = true
					equalities = nil
				} else {
					if equalities != nil {
						equalities = equalities.next
					}
					if equalities != nil {
						pointer = equalities.data
					} else {
						pointer = -1
					}
					postIns = false
					postDel = false
				}
				changes = true
			}
		}
		pointer++
	}
	if changes {
		diffs = config.DiffCleanupMerge(diffs)
	}
	return diffs
}

// DiffCleanupMerge reorders and merges adjacent like-typed edits, and
// factors out any common prefix/suffix an insertion and deletion share at
// the same position. An edit can slide across another edit of a different
// type but never across an equality.
func (config *Config) DiffCleanupMerge(diffs []Diff) []Diff {
	diffs = append(diffs, Diff{OpEqual, ""}) // sentinel simplifies the loop below.
	pointer := 0
	countDelete := 0
	countInsert := 0
	commonlength := 0
	textDelete := []rune(nil)
	textInsert := []rune(nil)
	for pointer < len(diffs) {
		switch diffs[pointer].Op {
		case OpInsert:
			countInsert++
			textInsert = append(textInsert, []rune(diffs[pointer].Text)...)
			pointer++
		case OpDelete:
			countDelete++
			textDelete = append(textDelete, []rune(diffs[pointer].Text)...)
			pointer++
		case OpEqual:
			// reaching an equality means any delete/insert run directly
			// before it is complete and can be merged/reordered.
			if countDelete+countInsert > 1 {
				if countDelete != 0 && countInsert != 0 {
					commonlength = commonPrefixLength(textInsert, textDelete)
					if commonlength != 0 {
						x := pointer - countDelete - countInsert
						if x > 0 && diffs[x-1].Op == OpEqual {
							diffs[x-1].Text += string(textInsert[:commonlength])
						} else {
							diffs = append([]Diff{{OpEqual, string(textInsert[:commonlength])}}, diffs...)
							pointer++
						}
						textInsert = textInsert[commonlength:]
						textDelete = textDelete[commonlength:]
					}
					commonlength = commonSuffixLength(textInsert, textDelete)
					if commonlength != 0 {
						insertIndex := len(textInsert) - commonlength
						deleteIndex := len(textDelete) - commonlength
						diffs[pointer].Text = string(textInsert[insertIndex:]) + diffs[pointer].Text
						textInsert = textInsert[:insertIndex]
						textDelete = textDelete[:deleteIndex]
					}
				}
				if countDelete == 0 {
					diffs = splice(diffs, pointer-countInsert,
						countDelete+countInsert,
						Diff{OpInsert, string(textInsert)})
				} else if countInsert == 0 {
					diffs = splice(diffs, pointer-countDelete,
						countDelete+countInsert,
						Diff{OpDelete, string(textDelete)})
				} else {
					diffs = splice(diffs, pointer-countDelete-countInsert,
						countDelete+countInsert,
						Diff{OpDelete, string(textDelete)},
						Diff{OpInsert, string(textInsert)})
				}
				pointer = pointer - countDelete - countInsert + 1
				if countDelete != 0 {
					pointer++
				}
				if countInsert != 0 {
					pointer++
				}
			} else if pointer != 0 && diffs[pointer-1].Op == OpEqual {
				diffs[pointer-1].Text += diffs[pointer].Text
				diffs = append(diffs[:pointer], diffs[pointer+1:]...)
			} else {
				pointer++
			}
			countInsert = 0
			countDelete = 0
			textDelete = nil
			textInsert = nil
		}
	}
	if len(diffs[len(diffs)-1].Text) == 0 {
		diffs = diffs[0 : len(diffs)-1] // drop the sentinel.
	}
	// second pass: a single edit flanked by two equalities can sometimes
	// shift sideways far enough to eliminate one of them entirely.
	// E.g: A[ins]BA[/ins]C -> [ins]AB[/ins]AC
	changes := false
	pointer = 1
	for pointer < (len(diffs) - 1) {
		if diffs[pointer-1].Op == OpEqual && diffs[pointer+1].Op == OpEqual {
			if strings.HasSuffix(diffs[pointer].Text, diffs[pointer-1].Text) {
				diffs[pointer].Text = diffs[pointer-1].Text +
					diffs[pointer].Text[:len(diffs[pointer].Text)-len(diffs[pointer-1].Text)]
				diffs[pointer+1].Text = diffs[pointer-1].Text + diffs[pointer+1].Text
				diffs = splice(diffs, pointer-1, 1)
				changes = true
			} else if strings.HasPrefix(diffs[pointer].Text, diffs[pointer+1].Text) {
				diffs[pointer-1].Text += diffs[pointer+1].Text
				diffs[pointer].Text =
					diffs[pointer].Text[len(diffs[pointer+1].Text):] + diffs[pointer+1].Text
				diffs = splice(diffs, pointer+1, 1)
				changes = true
			}
		}
		pointer++
	}
	if changes {
		diffs = config.DiffCleanupMerge(diffs)
	}
	return diffs
}
