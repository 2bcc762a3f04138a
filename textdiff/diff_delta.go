package textdiff

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"
)

// DiffXIndex translates a location in text1 (loc) into the equivalent
// location in text2, for a given diff between them.
func (config *Config) DiffXIndex(diffs []Diff, loc int) int {
	chars1 := 0
	chars2 := 0
	lastChars1 := 0
	lastChars2 := 0
	lastDiff := Diff{}
	for i := 0; i < len(diffs); i++ {
		d := diffs[i]
		if d.Op != OpInsert {
			chars1 += len(d.Text)
		}
		if d.Op != OpDelete {
			chars2 += len(d.Text)
		}
		if chars1 > loc {
			lastDiff = d
			break
		}
		lastChars1 = chars1
		lastChars2 = chars2
	}
	if lastDiff.Op == OpDelete {
		// loc fell inside text that was deleted; there's no corresponding
		// position past it in text2.
		return lastChars2
	}
	return lastChars2 + (loc - lastChars1)
}

// DiffPrettyHtml renders a diff as an HTML fragment with ins/del spans. It
// exists mainly as a worked example for callers writing their own
// display function.
func (config *Config) DiffPrettyHtml(diffs []Diff) string {
	var buf bytes.Buffer
	for _, d := range diffs {
		text := strings.Replace(html.EscapeString(d.Text), "\n", "&para;<br>", -1)
		switch d.Op {
		case OpInsert:
			_, _ = buf.WriteString(`<ins style="background:#e6ffe6;">`)
			_, _ = buf.WriteString(text)
			_, _ = buf.WriteString("</ins>")
		case OpDelete:
			_, _ = buf.WriteString(`<del style="background:#ffe6e6;">`)
			_, _ = buf.WriteString(text)
			_, _ = buf.WriteString("</del>")
		case OpEqual:
			_, _ = buf.WriteString("<span>")
			_, _ = buf.WriteString(text)
			_, _ = buf.WriteString("</span>")
		}
	}
	return buf.String()
}

// DiffPrettyText renders a diff as ANSI-colored text for terminal output.
func (config *Config) DiffPrettyText(diffs []Diff) string {
	var buf bytes.Buffer
	for _, d := range diffs {
		switch d.Op {
		case OpInsert:
			_, _ = buf.WriteString("\x1b[32m")
			_, _ = buf.WriteString(d.Text)
			_, _ = buf.WriteString("\x1b[0m")
		case OpDelete:
			_, _ = buf.WriteString("\x1b[31m")
			_, _ = buf.WriteString(d.Text)
			_, _ = buf.WriteString("\x1b[0m")
		case OpEqual:
			_, _ = buf.WriteString(d.Text)
		}
	}
	return buf.String()
}

// DiffText1 reconstructs the source text (all equalities and deletions).
func (config *Config) DiffText1(diffs []Diff) string {
	var buf bytes.Buffer
	for _, d := range diffs {
		if d.Op != OpInsert {
			_, _ = buf.WriteString(d.Text)
		}
	}
	return buf.String()
}

// DiffText2 reconstructs the destination text (all equalities and
// insertions).
func (config *Config) DiffText2(diffs []Diff) string {
	var buf bytes.Buffer
	for _, d := range diffs {
		if d.Op != OpDelete {
			_, _ = buf.WriteString(d.Text)
		}
	}
	return buf.String()
}

// DiffLevenshtein computes the Levenshtein distance: the number of
// inserted, deleted, or substituted characters implied by the diff.
func (config *Config) DiffLevenshtein(diffs []Diff) int {
	levenshtein := 0
	insertions := 0
	deletions := 0
	for _, d := range diffs {
		switch d.Op {
		case OpInsert:
			insertions += utf8.RuneCountInString(d.Text)
		case OpDelete:
			deletions += utf8.RuneCountInString(d.Text)
		case OpEqual:
			// a delete paired with an insert at the same spot counts as one
			// substitution, not two edits.
			levenshtein += max(insertions, deletions)
			insertions = 0
			deletions = 0
		}
	}
	levenshtein += max(insertions, deletions)
	return levenshtein
}

// DiffToDelta encodes a diff as a compact tab-separated string describing
// the operations needed to turn text1 into text2. E.g. "=3\t-2\t+ing" means
// keep 3 characters, delete 2, insert "ing". Inserted text is percent
// escaped.
func (config *Config) DiffToDelta(diffs []Diff) string {
	var buf bytes.Buffer
	for _, d := range diffs {
		switch d.Op {
		case OpInsert:
			_, _ = buf.WriteString("+")
			_, _ = buf.WriteString(strings.Replace(url.QueryEscape(d.Text), "+", " ", -1))
			_, _ = buf.WriteString("\t")
		case OpDelete:
			_, _ = buf.WriteString("-")
			_, _ = buf.WriteString(strconv.Itoa(utf8.RuneCountInString(d.Text)))
			_, _ = buf.WriteString("\t")
		case OpEqual:
			_, _ = buf.WriteString("=")
			_, _ = buf.WriteString(strconv.Itoa(utf8.RuneCountInString(d.Text)))
			_, _ = buf.WriteString("\t")
		}
	}
	delta := buf.String()
	if len(delta) != 0 {
		delta = delta[0 : utf8.RuneCountInString(delta)-1] // trim trailing tab.
		delta = unescaper.Replace(delta)
	}
	return delta
}

// DiffFromDelta reconstructs the full diff given the original text1 and a
// delta string produced by DiffToDelta.
func (config *Config) DiffFromDelta(text1 string, delta string) (diffs []Diff, err error) {
	i := 0
	runes := []rune(text1)
	for _, token := range strings.Split(delta, "\t") {
		if len(token) == 0 {
			continue // a trailing tab produces one harmless blank token.
		}
		param := token[1:]
		switch op := token[0]; op {
		case '+':
			// escape literal "+" so QueryUnescape doesn't turn it into " ".
			param = strings.Replace(param, "+", "%2b", -1)
			param, err = url.QueryUnescape(param)
			if err != nil {
				return nil, err
			}
			if !utf8.ValidString(param) {
				return nil, fmt.Errorf("invalid UTF-8 token: %q", param)
			}
			diffs = append(diffs, Diff{OpInsert, param})
		case '=', '-':
			n, err := strconv.ParseInt(param, 10, 0)
			if err != nil {
				return nil, err
			} else if n < 0 {
				return nil, errors.New("negative number in DiffFromDelta: " + param)
			}
			i += int(n)
			if i > len(runes) {
				break
			}
			// slice by rune index, not byte index.
			text := string(runes[i-int(n) : i])
			if op == '=' {
				diffs = append(diffs, Diff{OpEqual, text})
			} else {
				diffs = append(diffs, Diff{OpDelete, text})
			}
		default:
			return nil, errors.New("invalid diff operation in DiffFromDelta: " + string(token[0]))
		}
	}
	if i != len(runes) {
		return nil, fmt.Errorf("delta length (%v) is different from source text length (%v)", i, len(text1))
	}
	return diffs, nil
}
