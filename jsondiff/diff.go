package jsondiff

import (
	"strconv"
	"time"

	"github.com/kenshaw/syncdoc/textdiff"
)

// Engine computes and applies structural diffs. The zero value is not
// usable; construct one with New so string leaves are diffed with a
// configured textdiff.Config rather than process-wide defaults.
type Engine struct {
	Text *textdiff.Config

	// TextDeadline, when positive, bounds how long a single string leaf is
	// allowed to diff before falling back to whatever partial result the
	// bisect algorithm has found. Zero means use Text's own DiffTimeout
	// (or no limit at all if that is also zero).
	TextDeadline time.Duration
}

// New creates an Engine. A nil text config falls back to
// textdiff.NewDefaultConfig().
func New(text *textdiff.Config) *Engine {
	if text == nil {
		text = textdiff.NewDefaultConfig()
	}
	return &Engine{Text: text}
}

// diffText diffs a and b under TextDeadline when one is configured,
// otherwise defers to Text's own configured timeout.
func (e *Engine) diffText(a, b string, checklines bool) []textdiff.Diff {
	if e.TextDeadline <= 0 {
		return e.Text.Diff(a, b, checklines)
	}
	return e.Text.DiffDeadline(a, b, checklines, time.Now().Add(e.TextDeadline))
}

// DiffValue is the generic typed-dispatch diff between two arbitrary JSON
// values. It reports ok=false when a and b are structurally equal. Arrays
// are always replaced wholesale here (KindReplace); callers that want
// element-wise array diffs (KindList) call ListDiff directly, which is what
// ObjectDiff and ListDiff themselves do for array-valued keys/elements.
func (e *Engine) DiffValue(a, b Value) (Op, bool) {
	if Equal(a, b) {
		return Op{}, false
	}
	if !sameType(a, b) {
		return Op{Kind: KindReplace, Value: b}, true
	}
	switch bv := b.(type) {
	case bool, float64:
		return Op{Kind: KindReplace, Value: bv}, true
	case []interface{}:
		return Op{Kind: KindReplace, Value: bv}, true
	case map[string]interface{}:
		return Op{Kind: KindObject, Value: e.ObjectDiff(a.(map[string]interface{}), bv)}, true
	case string:
		diffs := e.diffText(a.(string), bv, true)
		if len(diffs) > 2 {
			diffs = e.Text.DiffCleanupEfficiency(diffs)
		}
		return Op{Kind: KindText, Value: e.Text.DiffToDelta(diffs)}, true
	default:
		return Op{Kind: KindReplace, Value: bv}, true
	}
}

// diffKeyed picks the op for a key/index shared by both sides, preferring
// an element-wise KindList diff over a wholesale replace when both values
// are arrays.
func (e *Engine) diffKeyed(a, b Value) (Op, bool) {
	if aArr, ok := a.([]interface{}); ok {
		if bArr, ok := b.([]interface{}); ok {
			if Equal(aArr, bArr) {
				return Op{}, false
			}
			return Op{Kind: KindList, Value: e.ListDiff(aArr, bArr)}, true
		}
	}
	return e.DiffValue(a, b)
}

// ObjectDiff computes the structural diff transforming object a into
// object b.
func (e *Engine) ObjectDiff(a, b map[string]interface{}) Diff {
	d := Diff{}
	for k, av := range a {
		bv, ok := b[k]
		if !ok {
			d[k] = Op{Kind: KindRemove}
			continue
		}
		if op, changed := e.diffKeyed(av, bv); changed {
			d[k] = op
		}
	}
	for k, bv := range b {
		if _, ok := a[k]; !ok {
			d[k] = Op{Kind: KindInsert, Value: bv}
		}
	}
	return d
}

// ListDiff computes the structural diff transforming array a into array b.
// Keys in the returned Diff are the original indices of a (after the
// common prefix length is added back), formatted as decimal strings.
func (e *Engine) ListDiff(a, b []interface{}) Diff {
	prefix := 0
	for prefix < len(a) && prefix < len(b) && Equal(a[prefix], b[prefix]) {
		prefix++
	}
	suffix := 0
	for suffix < len(a)-prefix && suffix < len(b)-prefix &&
		Equal(a[len(a)-1-suffix], b[len(b)-1-suffix]) {
		suffix++
	}
	at := a[prefix : len(a)-suffix]
	bt := b[prefix : len(b)-suffix]

	d := Diff{}
	n := len(at)
	if len(bt) > n {
		n = len(bt)
	}
	for i := 0; i < n; i++ {
		key := strconv.Itoa(i + prefix)
		switch {
		case i < len(at) && i < len(bt):
			if op, changed := e.diffKeyed(at[i], bt[i]); changed {
				d[key] = op
			}
		case i < len(at):
			d[key] = Op{Kind: KindRemove}
		default:
			d[key] = Op{Kind: KindInsert, Value: bt[i]}
		}
	}
	return d
}
