package jsondiff

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// applyBoth applies remote then the transformed local (and vice versa)
// and asserts both orders converge, which is the core OT property.
func applyBoth(t *testing.T, e *Engine, base map[string]interface{}, local, remote Diff) (map[string]interface{}, map[string]interface{}) {
	t.Helper()

	tLocal, err := e.TransformObjectDiff(local, remote, base)
	assert.NoError(t, err)
	afterRemote, err := e.ApplyObjectDiff(base, remote)
	assert.NoError(t, err)
	s1, err := e.ApplyObjectDiff(afterRemote, tLocal)
	assert.NoError(t, err)

	tRemote, err := e.TransformObjectDiff(remote, local, base)
	assert.NoError(t, err)
	afterLocal, err := e.ApplyObjectDiff(base, local)
	assert.NoError(t, err)
	s2, err := e.ApplyObjectDiff(afterLocal, tRemote)
	assert.NoError(t, err)

	return s1, s2
}

func TestTransformConvergesOnConcurrentTextEdits(t *testing.T) {
	e := New(nil)
	base := obj(map[string]interface{}{"t": "abc"})
	local := e.ObjectDiff(base, obj(map[string]interface{}{"t": "aXbc"}))
	remote := e.ObjectDiff(base, obj(map[string]interface{}{"t": "abcY"}))

	s1, s2 := applyBoth(t, e, base, local, remote)
	assert.Equal(t, "aXbcY", s1["t"])
	assert.True(t, Equal(s1, s2))
}

func TestTransformDropsDoubleDelete(t *testing.T) {
	e := New(nil)
	base := obj(map[string]interface{}{"a": float64(1)})
	local := Diff{"a": {Kind: KindRemove}}
	remote := Diff{"a": {Kind: KindRemove}}

	out, err := e.TransformObjectDiff(local, remote, base)
	assert.NoError(t, err)
	assert.True(t, out.IsEmpty())
}

func TestTransformInsertInsertLastWriterWins(t *testing.T) {
	e := New(nil)
	base := map[string]interface{}{}
	local := Diff{"a": {Kind: KindInsert, Value: "local"}}
	remote := Diff{"a": {Kind: KindInsert, Value: "remote"}}

	out, err := e.TransformObjectDiff(local, remote, base)
	assert.NoError(t, err)
	op, ok := out["a"]
	assert.True(t, ok)

	afterRemote, err := e.ApplyObjectDiff(base, remote)
	assert.NoError(t, err)
	final, err := e.ApplyObjectDiff(afterRemote, Diff{"a": op})
	assert.NoError(t, err)
	assert.Equal(t, "local", final["a"])
}

func TestTransformInsertInsertSameValueDrops(t *testing.T) {
	e := New(nil)
	base := map[string]interface{}{}
	local := Diff{"a": {Kind: KindInsert, Value: "same"}}
	remote := Diff{"a": {Kind: KindInsert, Value: "same"}}

	out, err := e.TransformObjectDiff(local, remote, base)
	assert.NoError(t, err)
	assert.True(t, out.IsEmpty())
}

func TestTransformResurrectsEditAgainstDelete(t *testing.T) {
	e := New(nil)
	base := obj(map[string]interface{}{"t": "abc"})
	local := e.ObjectDiff(base, obj(map[string]interface{}{"t": "abcd"}))
	remote := Diff{"t": {Kind: KindRemove}}

	out, err := e.TransformObjectDiff(local, remote, base)
	assert.NoError(t, err)
	op, ok := out["t"]
	assert.True(t, ok)
	assert.Equal(t, KindInsert, op.Kind)
	assert.Equal(t, "abcd", op.Value)
}

func TestTransformRecursesIntoNestedObjects(t *testing.T) {
	e := New(nil)
	base := obj(map[string]interface{}{
		"meta": obj(map[string]interface{}{"count": float64(1), "note": "x"}),
	})
	localTarget := obj(map[string]interface{}{
		"meta": obj(map[string]interface{}{"count": float64(2), "note": "x"}),
	})
	remoteTarget := obj(map[string]interface{}{
		"meta": obj(map[string]interface{}{"count": float64(1), "note": "y"}),
	})
	local := e.ObjectDiff(base, localTarget)
	remote := e.ObjectDiff(base, remoteTarget)

	s1, s2 := applyBoth(t, e, base, local, remote)
	assert.True(t, Equal(s1, s2))
	meta := s1["meta"].(map[string]interface{})
	assert.Equal(t, float64(2), meta["count"])
	assert.Equal(t, "y", meta["note"])
}

func TestTransformListDiffRekeysAgainstInsertsAndDeletes(t *testing.T) {
	e := New(nil)
	base := obj(map[string]interface{}{
		"items": []interface{}{"a", "b", "c"},
	})
	// remote deletes index 0 ("a"), local edits index 2 ("c").
	remote := Diff{"items": {Kind: KindList, Value: Diff{"0": {Kind: KindRemove}}}}
	local := Diff{"items": {Kind: KindList, Value: Diff{"2": {Kind: KindReplace, Value: "C"}}}}

	s1, s2 := applyBoth(t, e, base, local, remote)
	assert.True(t, Equal(s1, s2))
	items := s1["items"].([]interface{})
	assert.Equal(t, []interface{}{"b", "C"}, items)
}

func TestPassthroughForUnrelatedKeys(t *testing.T) {
	e := New(nil)
	base := obj(map[string]interface{}{"a": float64(1), "b": float64(1)})
	local := Diff{"a": {Kind: KindReplace, Value: float64(2)}}
	remote := Diff{"b": {Kind: KindReplace, Value: float64(2)}}

	out, err := e.TransformObjectDiff(local, remote, base)
	assert.NoError(t, err)
	assert.Equal(t, local, out)
}
