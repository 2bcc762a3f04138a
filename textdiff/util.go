package textdiff

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// unescaper reverses url.QueryEscape's percent-encoding for the punctuation
// characters that show up routinely in diff/delta text, so DiffToDelta's
// output stays readable instead of "%21"-laden. Case-sensitive: only the
// uppercase hex QueryEscape itself produces is recognized.
var unescaper = strings.NewReplacer(
	"%21", "!", "%7E", "~", "%27", "'",
	"%28", "(", "%29", ")", "%3B", ";",
	"%2F", "/", "%3F", "?", "%3A", ":",
	"%40", "@", "%26", "&", "%3D", "=",
	"%2B", "+", "%24", "$", "%2C", ",",
	"%23", "#", "%2A", "*",
)

// indexOf returns the first index of pattern in s at or after offset i.
func indexOf(s string, pattern string, i int) int {
	if i > len(s)-1 {
		return -1
	}
	if i <= 0 {
		return strings.Index(s, pattern)
	}
	ind := strings.Index(s[i:], pattern)
	if ind == -1 {
		return -1
	}
	return ind + i
}

// lastIndexOf returns the last index of pattern in s at or before offset i.
func lastIndexOf(s string, pattern string, i int) int {
	if i < 0 {
		return -1
	}
	if i >= len(s) {
		return strings.LastIndex(s, pattern)
	}
	_, size := utf8.DecodeRuneInString(s[i:])
	return strings.LastIndex(s[:i+size], pattern)
}

// runesIndexOf returns the index of pattern in target at or after offset i.
func runesIndexOf(target, pattern []rune, i int) int {
	if i > len(target)-1 {
		return -1
	}
	if i <= 0 {
		return runesIndex(target, pattern)
	}
	ind := runesIndex(target[i:], pattern)
	if ind == -1 {
		return -1
	}
	return ind + i
}

func runesEqual(r1, r2 []rune) bool {
	if len(r1) != len(r2) {
		return false
	}
	for i, c := range r1 {
		if c != r2[i] {
			return false
		}
	}
	return true
}

// runesIndex is strings.Index for rune slices.
func runesIndex(r1, r2 []rune) int {
	last := len(r1) - len(r2)
	for i := 0; i <= last; i++ {
		if runesEqual(r1[i:i+len(r2)], r2) {
			return i
		}
	}
	return -1
}

// intArrayToString renders a slice of line-hash indices as a
// comma-separated decimal string.
func intArrayToString(ns []uint32) string {
	if len(ns) == 0 {
		return ""
	}
	b := []byte{}
	for _, n := range ns {
		b = strconv.AppendInt(b, int64(n), 10)
		b = append(b, ',')
	}
	b = b[:len(b)-1]
	return string(b)
}

func min(x, y int) int {
	if x < y {
		return x
	}
	return y
}

func max(x, y int) int {
	if x > y {
		return x
	}
	return y
}

// splice removes amount elements from slice starting at index, replacing
// them with elements, and returns the resulting slice (which may alias the
// input's backing array).
func splice(slice []Diff, index int, amount int, elements ...Diff) []Diff {
	switch {
	case len(elements) == amount:
		copy(slice[index:], elements)
		return slice
	case len(elements) < amount:
		copy(slice[index:], elements)
		copy(slice[index+len(elements):], slice[index+amount:])
		end := len(slice) - amount + len(elements)
		tail := slice[end:]
		for i := range tail {
			tail[i] = Diff{} // zero stranded entries so they can be collected.
		}
		return slice[:end]
	default:
		need := len(slice) - amount + len(elements)
		for len(slice) < need {
			slice = append(slice, Diff{})
		}
		copy(slice[index+len(elements):], slice[index+amount:])
		copy(slice[index:], elements)
		return slice
	}
}

// commonPrefixLength returns the length of the common prefix of two rune
// slices.
func commonPrefixLength(text1, text2 []rune) int {
	n := 0
	for ; n < len(text1) && n < len(text2); n++ {
		if text1[n] != text2[n] {
			return n
		}
	}
	return n
}

// commonSuffixLength returns the length of the common suffix of two rune
// slices. Linear rather than binary search, per the discussion at
// https://github.com/sergi/go-diff/issues/54.
func commonSuffixLength(text1, text2 []rune) int {
	i1, i2 := len(text1), len(text2)
	for n := 0; ; n++ {
		i1--
		i2--
		if i1 < 0 || i2 < 0 || text1[i1] != text2[i2] {
			return n
		}
	}
}
