package jsondiff

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyObjectDiffInsertRemoveReplace(t *testing.T) {
	e := New(nil)
	source := obj(map[string]interface{}{"a": float64(1), "b": "hi"})
	d := Diff{
		"a": {Kind: KindReplace, Value: float64(2)},
		"c": {Kind: KindInsert, Value: true},
	}
	out, err := e.ApplyObjectDiff(source, d)
	assert.NoError(t, err)
	assert.Equal(t, float64(2), out["a"])
	assert.Equal(t, "hi", out["b"])
	assert.Equal(t, true, out["c"])
}

func TestApplyObjectDiffDoesNotMutateSource(t *testing.T) {
	e := New(nil)
	source := obj(map[string]interface{}{"a": float64(1)})
	d := Diff{"a": {Kind: KindReplace, Value: float64(9)}}
	_, err := e.ApplyObjectDiff(source, d)
	assert.NoError(t, err)
	assert.Equal(t, float64(1), source["a"])
}

func TestApplyObjectDiffInt(t *testing.T) {
	e := New(nil)
	source := obj(map[string]interface{}{"count": float64(5)})
	d := Diff{"count": {Kind: KindInt, Value: float64(3)}}
	out, err := e.ApplyObjectDiff(source, d)
	assert.NoError(t, err)
	assert.Equal(t, float64(8), out["count"])
}

func TestApplyObjectDiffText(t *testing.T) {
	eng := New(nil)
	a := obj(map[string]interface{}{"t": "hello"})
	b := obj(map[string]interface{}{"t": "hello!"})
	d := eng.ObjectDiff(a, b)
	out, err := eng.ApplyObjectDiff(a, d)
	assert.NoError(t, err)
	assert.Equal(t, "hello!", out["t"])
}

func TestApplyListDiffInsertDeleteShiftsIndices(t *testing.T) {
	e := New(nil)
	source := []interface{}{"a", "b", "c"}
	d := Diff{
		"0": {Kind: KindRemove},
		"2": {Kind: KindInsert, Value: "d"},
	}
	out, err := e.ApplyListDiff(source, d)
	assert.NoError(t, err)
	assert.Equal(t, []interface{}{"b", "d", "c"}, out)
}

func TestApplyListDiffReplace(t *testing.T) {
	e := New(nil)
	source := []interface{}{"a", "b", "c"}
	d := Diff{"1": {Kind: KindReplace, Value: "B"}}
	out, err := e.ApplyListDiff(source, d)
	assert.NoError(t, err)
	assert.Equal(t, []interface{}{"a", "B", "c"}, out)
}

func TestRoundTripDiffThenApply(t *testing.T) {
	e := New(nil)
	a := obj(map[string]interface{}{
		"title": "first draft",
		"tags":  []interface{}{"x", "y"},
		"count": float64(1),
	})
	b := obj(map[string]interface{}{
		"title": "first draft, revised",
		"tags":  []interface{}{"x", "y", "z"},
		"count": float64(1),
		"extra": true,
	})
	d := e.ObjectDiff(a, b)
	out, err := e.ApplyObjectDiff(a, d)
	assert.NoError(t, err)
	assert.True(t, Equal(out, b))
}

func TestApplyObjectDiffWithOffsetsTracksCursor(t *testing.T) {
	e := New(nil)
	a := obj(map[string]interface{}{"t": "hello world"})
	b := obj(map[string]interface{}{"t": "well hello world"})
	d := e.ObjectDiff(a, b)

	// cursor sitting right after "hello" (offset 5) should shift by the
	// length of the inserted prefix "well ".
	out, offsets, err := e.ApplyObjectDiffWithOffsets(a, d, "t", []int{5})
	assert.NoError(t, err)
	assert.Equal(t, "well hello world", out["t"])
	assert.Equal(t, []int{10}, offsets)
}
