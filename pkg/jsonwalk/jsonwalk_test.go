package jsonwalk

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) Value {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return Wrap(v)
}

func TestGet_NullAndMissingBothAbsent(t *testing.T) {
	v := decode(t, `{"a":{"b":null},"c":1}`)

	assert.False(t, v.Get("a", "b").Exists(), "explicit null is absent")
	assert.False(t, v.Get("a", "x").Exists(), "missing key is absent")
	assert.False(t, v.Get("x", "y", "z").Exists(), "missing chain is absent")
	assert.True(t, v.Get("c").Exists())
}

func TestGet_DeepNullDoesNotFault(t *testing.T) {
	// author is null three levels deep; traversal through it must not panic.
	v := decode(t, `{"comment":{"author":null}}`)

	got := v.Get("comment", "author", "login").StringOr("unknown")
	assert.Equal(t, "unknown", got)
}

func TestGet_StopsAtScalarIntermediate(t *testing.T) {
	v := decode(t, `{"a":"scalar"}`)
	assert.False(t, v.Get("a", "b").Exists())
}

func TestAccessors_Defaults(t *testing.T) {
	v := decode(t, `{"s":"x","n":42,"b":true,"f":1.5}`)

	assert.Equal(t, "x", v.Get("s").StringOr(""))
	assert.Equal(t, 42, v.Get("n").IntOr(0))
	assert.Equal(t, int64(42), v.Get("n").Int64Or(0))
	assert.True(t, v.Get("b").BoolOr(false))
	assert.Equal(t, 1, v.Get("f").IntOr(0))

	// Type mismatches fall back to the default.
	assert.Equal(t, "d", v.Get("n").StringOr("d"))
	assert.Equal(t, 7, v.Get("s").IntOr(7))
	assert.False(t, v.Get("s").BoolOr(false))
}

func TestSliceAndIndex(t *testing.T) {
	v := decode(t, `{"nodes":[{"id":"a"},{"id":"b"}]}`)

	els := v.Get("nodes").Slice()
	require.Len(t, els, 2)
	assert.Equal(t, "a", els[0].Get("id").StringOr(""))
	assert.Equal(t, "b", v.Get("nodes").Index(1).Get("id").StringOr(""))

	assert.False(t, v.Get("nodes").Index(5).Exists())
	assert.False(t, v.Get("nodes").Index(-1).Exists())
	assert.Nil(t, v.Get("missing").Slice())
}

func TestWrapNil(t *testing.T) {
	assert.False(t, Wrap(nil).Exists())
	assert.Equal(t, "d", Wrap(nil).Get("a").StringOr("d"))
}
