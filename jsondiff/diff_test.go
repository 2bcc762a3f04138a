package jsondiff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func obj(m map[string]interface{}) map[string]interface{} { return m }

func TestDiffValueEqual(t *testing.T) {
	e := New(nil)
	_, changed := e.DiffValue(float64(1), float64(1))
	assert.False(t, changed)
}

func TestDiffValueReplace(t *testing.T) {
	e := New(nil)
	op, changed := e.DiffValue(float64(1), "two")
	assert.True(t, changed)
	assert.Equal(t, KindReplace, op.Kind)
	assert.Equal(t, "two", op.Value)
}

func TestDiffValueText(t *testing.T) {
	e := New(nil)
	op, changed := e.DiffValue("hello", "hello!")
	assert.True(t, changed)
	assert.Equal(t, KindText, op.Kind)
	assert.IsType(t, "", op.Value)
}

func TestObjectDiffInsertRemoveReplace(t *testing.T) {
	e := New(nil)
	a := obj(map[string]interface{}{"a": float64(1), "b": "hi"})
	b := obj(map[string]interface{}{"a": float64(2), "c": true})

	d := e.ObjectDiff(a, b)
	assert.Equal(t, KindReplace, d["a"].Kind)
	assert.Equal(t, float64(2), d["a"].Value)
	assert.Equal(t, KindRemove, d["b"].Kind)
	assert.Equal(t, KindInsert, d["c"].Kind)
	assert.Equal(t, true, d["c"].Value)
}

func TestObjectDiffEmptyWhenEqual(t *testing.T) {
	e := New(nil)
	a := obj(map[string]interface{}{"a": float64(1)})
	b := obj(map[string]interface{}{"a": float64(1)})
	assert.True(t, e.ObjectDiff(a, b).IsEmpty())
}

func TestListDiffTrimsCommonPrefixSuffix(t *testing.T) {
	e := New(nil)
	a := []interface{}{"x", "y", "z"}
	b := []interface{}{"x", "Y", "z"}

	d := e.ListDiff(a, b)
	assert.Len(t, d, 1)
	op, ok := d["1"]
	assert.True(t, ok)
	assert.Equal(t, KindText, op.Kind)
}

func TestListDiffInsertAndRemove(t *testing.T) {
	e := New(nil)
	a := []interface{}{"x", "y"}
	b := []interface{}{"x", "y", "z"}
	d := e.ListDiff(a, b)
	assert.Equal(t, KindInsert, d["2"].Kind)
	assert.Equal(t, "z", d["2"].Value)

	d2 := e.ListDiff(b, a)
	assert.Equal(t, KindRemove, d2["2"].Kind)
}

func TestDiffValueTextHonorsTextDeadline(t *testing.T) {
	e := New(nil)
	e.TextDeadline = time.Hour
	op, changed := e.DiffValue("hello world", "hello there world")
	assert.True(t, changed)
	assert.Equal(t, KindText, op.Kind)

	diffs, err := e.Text.DiffFromDelta("hello world", op.Value.(string))
	assert.NoError(t, err)
	assert.Equal(t, "hello world", e.Text.DiffText1(diffs))
	assert.Equal(t, "hello there world", e.Text.DiffText2(diffs))
}

func TestDiffKeyedPrefersListDiffForArrays(t *testing.T) {
	e := New(nil)
	a := obj(map[string]interface{}{
		"items": []interface{}{"a", "b"},
	})
	b := obj(map[string]interface{}{
		"items": []interface{}{"a", "b", "c"},
	})
	d := e.ObjectDiff(a, b)
	op, ok := d["items"]
	assert.True(t, ok)
	assert.Equal(t, KindList, op.Kind)
}
