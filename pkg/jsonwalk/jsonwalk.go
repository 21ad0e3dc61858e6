// Package jsonwalk navigates decoded JSON trees (map[string]any /
// []any values from encoding/json) without intermediate nil checks.
//
// JSON null and a missing key are distinct states after decoding, but
// callers almost never care about the difference; both normalize to an
// absent Value here, and every accessor on an absent Value short-circuits
// to its caller-supplied default.
package jsonwalk

// Value wraps one node of a decoded JSON tree.
// The zero Value is absent.
type Value struct {
	raw     any
	present bool
}

// Wrap adopts a decoded JSON value. A nil input yields an absent Value.
func Wrap(v any) Value {
	if v == nil {
		return Value{}
	}
	return Value{raw: v, present: true}
}

// Exists reports whether the node is present and non-null.
func (v Value) Exists() bool { return v.present }

// Get traverses a chain of object keys. Traversal stops at the first
// absent, null, or non-object intermediate and returns an absent Value.
func (v Value) Get(path ...string) Value {
	cur := v
	for _, key := range path {
		if !cur.present {
			return Value{}
		}
		obj, ok := cur.raw.(map[string]any)
		if !ok {
			return Value{}
		}
		next, ok := obj[key]
		if !ok || next == nil {
			return Value{}
		}
		cur = Value{raw: next, present: true}
	}
	return cur
}

// Index returns the i-th element of an array node, or absent when the node
// is not an array or the index is out of range.
func (v Value) Index(i int) Value {
	if !v.present {
		return Value{}
	}
	arr, ok := v.raw.([]any)
	if !ok || i < 0 || i >= len(arr) {
		return Value{}
	}
	return Wrap(arr[i])
}

// Slice returns the elements of an array node. Absent and non-array nodes
// yield nil, so range loops over the result are always safe.
func (v Value) Slice() []Value {
	if !v.present {
		return nil
	}
	arr, ok := v.raw.([]any)
	if !ok {
		return nil
	}
	out := make([]Value, len(arr))
	for i, el := range arr {
		out[i] = Wrap(el)
	}
	return out
}

// StringOr returns the node as a string, or def when absent or not a string.
func (v Value) StringOr(def string) string {
	if !v.present {
		return def
	}
	s, ok := v.raw.(string)
	if !ok {
		return def
	}
	return s
}

// IntOr returns the node as an int. encoding/json decodes all JSON numbers
// to float64; values outside int range truncate.
func (v Value) IntOr(def int) int {
	if !v.present {
		return def
	}
	switch n := v.raw.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return def
	}
}

// Int64Or returns the node as an int64.
func (v Value) Int64Or(def int64) int64 {
	if !v.present {
		return def
	}
	switch n := v.raw.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return def
	}
}

// BoolOr returns the node as a bool, or def when absent or not a bool.
func (v Value) BoolOr(def bool) bool {
	if !v.present {
		return def
	}
	b, ok := v.raw.(bool)
	if !ok {
		return def
	}
	return b
}
