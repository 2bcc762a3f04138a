package jsondiff

import (
	"fmt"
	"strconv"
)

// TransformObjectDiff rebases local so that applying it after remote (both
// computed against the same base object) converges on the same result as
// applying remote after local. This is the OT primitive described in the
// sync protocol: the local diff, once transformed, is applied on top of
// whatever remote already produced.
func (e *Engine) TransformObjectDiff(local, remote Diff, base map[string]interface{}) (Diff, error) {
	result := Diff{}
	for key, lop := range local {
		rop, inRemote := remote[key]
		if !inRemote {
			result[key] = lop
			continue
		}
		newOp, keep, err := e.transformOp(lop, rop, base[key])
		if err != nil {
			return nil, fmt.Errorf("jsondiff: transform key %q: %w", key, err)
		}
		if keep {
			result[key] = newOp
		}
	}
	return result, nil
}

// TransformListDiff is TransformObjectDiff's array counterpart. Local
// indices are rekeyed against remote's inserts/deletes before the per-op
// rules are applied, so both sides agree on which elements they're talking
// about once remote has already landed.
func (e *Engine) TransformListDiff(local, remote Diff, base []interface{}) (Diff, error) {
	var bPlus, bMinus []int
	for k, op := range remote {
		n, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("jsondiff: non-integer list key %q", k)
		}
		switch op.Kind {
		case KindInsert:
			bPlus = append(bPlus, n)
		case KindRemove:
			bMinus = append(bMinus, n)
		}
	}
	result := Diff{}
	for k, lop := range local {
		i, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("jsondiff: non-integer list key %q", k)
		}
		i2 := i + countLE(bPlus, i) - countLE(bMinus, i)
		key2 := strconv.Itoa(i2)
		rop, inRemote := remote[key2]
		if !inRemote {
			result[key2] = lop
			continue
		}
		var baseVal Value
		if i >= 0 && i < len(base) {
			baseVal = base[i]
		}
		newOp, keep, err := e.transformOp(lop, rop, baseVal)
		if err != nil {
			return nil, fmt.Errorf("jsondiff: transform index %d: %w", i, err)
		}
		if keep {
			result[key2] = newOp
		}
	}
	return result, nil
}

func countLE(xs []int, bound int) int {
	n := 0
	for _, x := range xs {
		if x <= bound {
			n++
		}
	}
	return n
}

// transformOp applies the shared local-vs-remote op table used by both
// TransformObjectDiff and TransformListDiff. baseVal is the pre-edit value
// the two diffs were both computed against.
func (e *Engine) transformOp(lop, rop Op, baseVal Value) (result Op, keep bool, err error) {
	switch {
	case lop.Kind == KindRemove && rop.Kind == KindRemove:
		// Remote already deleted the key; local's own delete is moot.
		return Op{}, false, nil

	case lop.Kind == KindInsert && rop.Kind == KindInsert:
		if Equal(lop.Value, rop.Value) {
			return Op{}, false, nil
		}
		// Last-writer-wins at the value level: rewrite local so that,
		// applied after remote's insert, it produces what local intended.
		op, changed := e.diffKeyed(rop.Value, lop.Value)
		if !changed {
			return Op{}, false, nil
		}
		return op, true, nil

	case rop.Kind == KindRemove && isEdit(lop.Kind):
		// Resurrection: remote deleted the key local was editing. Replay
		// local's edit against base and reinsert the result.
		applied, err := e.applyOpToValue(lop, baseVal)
		if err != nil {
			return Op{}, false, err
		}
		return Op{Kind: KindInsert, Value: applied}, true, nil

	case lop.Kind == KindObject && rop.Kind == KindObject:
		baseObj, _ := baseVal.(map[string]interface{})
		sub, err := e.TransformObjectDiff(lop.asDiff(), rop.asDiff(), baseObj)
		if err != nil {
			return Op{}, false, err
		}
		return Op{Kind: KindObject, Value: sub}, true, nil

	case lop.Kind == KindList && rop.Kind == KindList:
		baseArr, _ := baseVal.([]interface{})
		sub, err := e.TransformListDiff(lop.asDiff(), rop.asDiff(), baseArr)
		if err != nil {
			return Op{}, false, err
		}
		return Op{Kind: KindList, Value: sub}, true, nil

	case lop.Kind == KindText && rop.Kind == KindText:
		baseText, _ := baseVal.(string)
		bText, err := e.applyDeltaTo(baseText, rop.asText(), baseText)
		if err != nil {
			return Op{}, false, err
		}
		abText, err := e.applyDeltaTo(baseText, lop.asText(), bText)
		if err != nil {
			return Op{}, false, err
		}
		if abText == bText {
			return Op{}, false, nil
		}
		diffs := e.diffText(bText, abText, true)
		if len(diffs) > 2 {
			diffs = e.Text.DiffCleanupEfficiency(diffs)
		}
		return Op{Kind: KindText, Value: e.Text.DiffToDelta(diffs)}, true, nil

	default:
		// Every other combination passes through unchanged.
		return lop, true, nil
	}
}

func isEdit(k Kind) bool {
	return k == KindObject || k == KindList || k == KindInt || k == KindText
}

// applyOpToValue replays a single op against the value it would have
// applied to had its sibling key not been removed by the other side.
func (e *Engine) applyOpToValue(op Op, baseVal Value) (Value, error) {
	switch op.Kind {
	case KindObject:
		m, ok := baseVal.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("base value is not an object")
		}
		return e.ApplyObjectDiff(m, op.asDiff())
	case KindList:
		l, ok := baseVal.([]interface{})
		if !ok {
			return nil, fmt.Errorf("base value is not an array")
		}
		return e.ApplyListDiff(l, op.asDiff())
	case KindInt:
		n, _ := baseVal.(float64)
		return n + op.asInt(), nil
	case KindText:
		s, ok := baseVal.(string)
		if !ok {
			return nil, fmt.Errorf("base value is not a string")
		}
		return e.applyDeltaTo(s, op.asText(), s)
	default:
		return nil, fmt.Errorf("unsupported op kind %q for resurrection", op.Kind)
	}
}

// applyDeltaTo decodes delta against deltaSource to recover its diff, turns
// that diff into a patch set (with context), and fuzzily applies the
// patches to target. When target == deltaSource this is a plain decode+
// apply; when they differ (the OT rebase case) the patch's context lets it
// relocate within the drifted text.
func (e *Engine) applyDeltaTo(deltaSource, delta, target string) (string, error) {
	diffs, err := e.Text.DiffFromDelta(deltaSource, delta)
	if err != nil {
		return "", fmt.Errorf("jsondiff: decoding text delta: %w", err)
	}
	patches := e.Text.PatchMake(diffs)
	newText, _ := e.Text.PatchApply(patches, target)
	return newText, nil
}
