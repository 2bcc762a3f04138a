// Package jsondiff computes and applies structural diffs over decoded JSON
// values (the shapes produced by encoding/json: nil, bool, float64, string,
// []interface{}, map[string]interface{}), delegating string-leaf diffing to
// textdiff.
package jsondiff

import "fmt"

// Value is a decoded JSON value: nil, bool, float64, string,
// []interface{}, or map[string]interface{}.
type Value = interface{}

// Equal reports whether a and b are structurally identical JSON values.
// Array equality is pairwise and order-sensitive; object equality requires
// identical key sets and pairwise-equal values.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case []interface{}:
		bv, ok := b.([]interface{})
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case map[string]interface{}:
		bv, ok := b.(map[string]interface{})
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v1 := range av {
			v2, ok := bv[k]
			if !ok || !Equal(v1, v2) {
				return false
			}
		}
		return true
	default:
		panic(fmt.Sprintf("jsondiff: unsupported value type %T", a))
	}
}

// DeepCopy returns a copy of v that shares no mutable storage with it.
func DeepCopy(v Value) Value {
	switch vv := v.(type) {
	case []interface{}:
		out := make([]interface{}, len(vv))
		for i, e := range vv {
			out[i] = DeepCopy(e)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(vv))
		for k, e := range vv {
			out[k] = DeepCopy(e)
		}
		return out
	default:
		// nil, bool, float64, string are immutable.
		return v
	}
}

// sameType reports whether a and b have the same JSON type tag (Null, Bool,
// Number, String, Array or Object), without comparing their contents.
func sameType(a, b Value) bool {
	switch a.(type) {
	case nil:
		return b == nil
	case bool:
		_, ok := b.(bool)
		return ok
	case float64:
		_, ok := b.(float64)
		return ok
	case string:
		_, ok := b.(string)
		return ok
	case []interface{}:
		_, ok := b.([]interface{})
		return ok
	case map[string]interface{}:
		_, ok := b.(map[string]interface{})
		return ok
	default:
		panic(fmt.Sprintf("jsondiff: unsupported value type %T", a))
	}
}
