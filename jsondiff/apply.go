package jsondiff

import (
	"fmt"
	"sort"
	"strconv"
)

// ApplyObjectDiff applies a structural diff produced against an object to
// that same object (or a value that has since drifted only in ways the
// underlying patch application can tolerate), returning a new object. The
// source is not mutated.
func (e *Engine) ApplyObjectDiff(source map[string]interface{}, d Diff) (map[string]interface{}, error) {
	out, _ := DeepCopy(source).(map[string]interface{})
	if out == nil {
		out = map[string]interface{}{}
	}
	for key, op := range d {
		switch op.Kind {
		case KindInsert, KindReplace:
			out[key] = DeepCopy(op.asValue())
		case KindRemove:
			delete(out, key)
		case KindInt:
			n, _ := out[key].(float64)
			out[key] = n + op.asInt()
		case KindObject:
			sub, ok := out[key].(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("jsondiff: key %q is not an object", key)
			}
			newSub, err := e.ApplyObjectDiff(sub, op.asDiff())
			if err != nil {
				return nil, err
			}
			out[key] = newSub
		case KindList:
			sub, ok := out[key].([]interface{})
			if !ok {
				return nil, fmt.Errorf("jsondiff: key %q is not an array", key)
			}
			newSub, err := e.ApplyListDiff(sub, op.asDiff())
			if err != nil {
				return nil, err
			}
			out[key] = newSub
		case KindText:
			cur, ok := out[key].(string)
			if !ok {
				return nil, fmt.Errorf("jsondiff: key %q is not a string", key)
			}
			newText, err := e.applyText(cur, op.asText())
			if err != nil {
				return nil, err
			}
			out[key] = newText
		default:
			return nil, fmt.Errorf("jsondiff: unknown op kind %q for key %q", op.Kind, key)
		}
	}
	return out, nil
}

// ApplyListDiff applies a structural diff produced against an array to that
// array, returning a new array. The source is not mutated.
func (e *Engine) ApplyListDiff(source []interface{}, d Diff) ([]interface{}, error) {
	out := append([]interface{}(nil), source...)
	for i, v := range out {
		out[i] = DeepCopy(v)
	}

	keys := make([]int, 0, len(d))
	for k := range d {
		n, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("jsondiff: non-integer list key %q", k)
		}
		keys = append(keys, n)
	}
	sort.Ints(keys)

	deleted := map[int]bool{}
	effective := func(key int) int {
		shift := 0
		for d := range deleted {
			if d <= key {
				shift++
			}
		}
		return key - shift
	}

	for _, key := range keys {
		op := d[strconv.Itoa(key)]
		idx := effective(key)
		switch op.Kind {
		case KindInsert:
			if idx < 0 || idx > len(out) {
				return nil, fmt.Errorf("jsondiff: insert index %d out of range", idx)
			}
			out = append(out, nil)
			copy(out[idx+1:], out[idx:])
			out[idx] = DeepCopy(op.asValue())
		case KindRemove:
			if idx < 0 || idx >= len(out) {
				return nil, fmt.Errorf("jsondiff: remove index %d out of range", idx)
			}
			out = append(out[:idx], out[idx+1:]...)
			deleted[key] = true
		case KindReplace:
			if idx < 0 || idx >= len(out) {
				return nil, fmt.Errorf("jsondiff: replace index %d out of range", idx)
			}
			out[idx] = DeepCopy(op.asValue())
		case KindInt:
			n, _ := out[idx].(float64)
			out[idx] = n + op.asInt()
		case KindObject:
			sub, ok := out[idx].(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("jsondiff: index %d is not an object", idx)
			}
			newSub, err := e.ApplyObjectDiff(sub, op.asDiff())
			if err != nil {
				return nil, err
			}
			out[idx] = newSub
		case KindList:
			sub, ok := out[idx].([]interface{})
			if !ok {
				return nil, fmt.Errorf("jsondiff: index %d is not an array", idx)
			}
			newSub, err := e.ApplyListDiff(sub, op.asDiff())
			if err != nil {
				return nil, err
			}
			out[idx] = newSub
		case KindText:
			cur, ok := out[idx].(string)
			if !ok {
				return nil, fmt.Errorf("jsondiff: index %d is not a string", idx)
			}
			newText, err := e.applyText(cur, op.asText())
			if err != nil {
				return nil, err
			}
			out[idx] = newText
		default:
			return nil, fmt.Errorf("jsondiff: unknown op kind %q at index %d", op.Kind, idx)
		}
	}
	return out, nil
}

// applyText decodes a text delta against current and applies it via a
// fuzzy patch, so minor drift between the text the delta was computed
// against and current (e.g. concurrent edits already folded in) doesn't
// hard-fail the update.
func (e *Engine) applyText(current string, delta string) (string, error) {
	return e.applyDeltaTo(current, delta, current)
}

// ApplyObjectDiffWithOffsets behaves like ApplyObjectDiff, except that when
// the named field carries a KindText op, the patch application is done
// through textdiff.PatchApplyWithOffsets so caller-tracked cursor offsets
// (e.g. a textarea caret) are rewritten through the same shifts the text
// underwent. Offsets are meaningless for any field other than the named
// one and are returned unchanged if that field isn't touched.
func (e *Engine) ApplyObjectDiffWithOffsets(source map[string]interface{}, d Diff, field string, offsets []int) (map[string]interface{}, []int, error) {
	out, _ := DeepCopy(source).(map[string]interface{})
	if out == nil {
		out = map[string]interface{}{}
	}
	newOffsets := append([]int(nil), offsets...)
	for key, op := range d {
		if key == field && op.Kind == KindText {
			cur, ok := out[key].(string)
			if !ok {
				return nil, nil, fmt.Errorf("jsondiff: key %q is not a string", key)
			}
			diffs, err := e.Text.DiffFromDelta(cur, op.asText())
			if err != nil {
				return nil, nil, fmt.Errorf("jsondiff: decoding text delta: %w", err)
			}
			patches := e.Text.PatchMake(diffs)
			newText, _, shifted := e.Text.PatchApplyWithOffsets(patches, cur, newOffsets)
			out[key] = newText
			newOffsets = shifted
			continue
		}
		single := Diff{key: op}
		applied, err := e.ApplyObjectDiff(out, single)
		if err != nil {
			return nil, nil, err
		}
		out = applied
	}
	return out, newOffsets, nil
}
