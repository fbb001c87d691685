package convert

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runToHost(t *testing.T, src string) (any, error) {
	t.Helper()
	rt := goja.New()
	v, err := rt.RunString(src)
	require.NoError(t, err)
	return ToHost(rt, v)
}

func TestToHost(t *testing.T) {
	t.Parallel()
	for _, tc := range [...]struct {
		name string
		src  string
		want any
	}{
		{name: "undefined", src: `undefined`, want: nil},
		{name: "null", src: `null`, want: nil},
		{name: "string", src: `'hello'`, want: "hello"},
		{name: "boxed string", src: `new String('boxed')`, want: "boxed"},
		{name: "integer", src: `42`, want: int64(42)},
		{name: "integral double", src: `3.0`, want: int64(3)},
		{name: "negative zero", src: `-0`, want: int64(0)},
		{name: "fraction", src: `1.5`, want: 1.5},
		{name: "beyond int64", src: `2 ** 63`, want: float64(1 << 63)},
		{name: "int64 min", src: `-(2 ** 63)`, want: int64(math.MinInt64)},
		{name: "infinity", src: `Infinity`, want: math.Inf(1)},
		{name: "negative infinity", src: `-Infinity`, want: math.Inf(-1)},
		{name: "true", src: `true`, want: true},
		{name: "bigint", src: `10n`, want: int64(10)},
		{name: "date", src: `new Date(1500)`, want: time.Unix(1, 500_000_000).UTC()},
		{name: "array", src: `[1, 'a', null, [true]]`, want: []any{int64(1), "a", nil, []any{true}}},
		{name: "sparse array", src: `[1, , 3]`, want: []any{int64(1), int64(3)}},
		{name: "explicit undefined element", src: `[undefined]`, want: []any{nil}},
		{name: "empty array", src: `[]`, want: []any{}},
		{name: "uint8 array", src: `new Uint8Array([1, 2, 3])`, want: []byte{1, 2, 3}},
		{name: "subarray", src: `new Uint8Array([1, 2, 3, 4]).subarray(1, 3)`, want: []byte{2, 3}},
		{name: "int16 array", src: `new Int16Array([1, 256])`, want: []byte{1, 0, 0, 1}},
		{name: "data view", src: `new DataView(new Uint8Array([1, 2, 3, 4]).buffer, 1, 2)`, want: []byte{2, 3}},
		{name: "array buffer", src: `new Uint8Array([9, 8]).buffer`, want: []byte{9, 8}},
		{name: "empty array buffer", src: `new ArrayBuffer(0)`, want: []byte{}},
		{name: "set", src: `new Set([1, 'a', 1])`, want: Set{int64(1), "a"}},
		{name: "map", src: `new Map([[1, 'a'], ['b', [true]]])`, want: Map{{Key: int64(1), Value: "a"}, {Key: "b", Value: []any{true}}}},
		{name: "object", src: `({a: 1, b: [true, null]})`, want: map[string]any{"a": int64(1), "b": []any{true, nil}}},
		{name: "own properties only", src: `Object.create({inherited: 1}, {own: {value: 2, enumerable: true}, hidden: {value: 3}})`, want: map[string]any{"own": int64(2)}},
		{name: "shared reference", src: `(() => { const s = {v: 1}; return {a: s, b: s}; })()`, want: map[string]any{"a": map[string]any{"v": int64(1)}, "b": map[string]any{"v": int64(1)}}},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := runToHost(t, tc.src)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestToHost_nan(t *testing.T) {
	got, err := runToHost(t, `NaN`)
	require.NoError(t, err)
	f, ok := got.(float64)
	require.True(t, ok)
	assert.True(t, math.IsNaN(f))
}

func TestToHost_unsupported(t *testing.T) {
	for _, tc := range [...]struct {
		src  string
		typ  string
		want error
	}{
		{src: `(function () {})`, typ: "function"},
		{src: `(() => 1)`, typ: "function"},
		{src: `Symbol('s')`, typ: "symbol"},
		{src: `Promise.resolve(1)`, typ: "promise"},
		{src: `[Promise.resolve(1)]`, typ: "promise"},
		{src: `new Date(NaN)`, typ: "Date"},
		{src: `2n ** 70n`, typ: "bigint", want: ErrOutOfRange},
		{src: `(() => { const a = {}; a.self = a; return a; })()`, typ: "object", want: ErrCycle},
		{src: `(() => { const a = []; a.push(a); return a; })()`, typ: "Array", want: ErrCycle},
	} {
		t.Run(tc.src, func(t *testing.T) {
			_, err := runToHost(t, tc.src)
			var target *UnsupportedConversionError
			require.ErrorAs(t, err, &target)
			assert.Equal(t, tc.typ, target.Type)
			assert.False(t, target.ToEngine)
			if tc.want != nil {
				assert.ErrorIs(t, err, tc.want)
			}
		})
	}
}

func TestToHost_unsupportedMessage(t *testing.T) {
	_, err := runToHost(t, `(function () {})`)
	assert.EqualError(t, err, "unsupported engine type: function")
}

func TestToHost_getterThrows(t *testing.T) {
	_, err := runToHost(t, `({get x() { throw new Error('boom'); }})`)
	var ex *goja.Exception
	require.True(t, errors.As(err, &ex))
	assert.Contains(t, ex.Error(), "boom")
}

func TestToHost_bytesAreCopied(t *testing.T) {
	rt := goja.New()
	v, err := rt.RunString(`var u = new Uint8Array([1, 2, 3]); u`)
	require.NoError(t, err)

	got, err := ToHost(rt, v)
	require.NoError(t, err)
	b := got.([]byte)
	b[0] = 100

	v, err = rt.RunString(`u[0]`)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v.ToInteger())

	_, err = rt.RunString(`u[1] = 200`)
	require.NoError(t, err)
	assert.Equal(t, []byte{100, 2, 3}, b)
}

func TestMap_Get(t *testing.T) {
	m := Map{{Key: int64(1), Value: "a"}, {Key: []any{1}, Value: "unhashable"}, {Key: "b", Value: 2}}
	v, ok := m.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
	v, ok = m.Get(int64(1))
	assert.True(t, ok)
	assert.Equal(t, "a", v)
	_, ok = m.Get([]any{1})
	assert.False(t, ok)
	_, ok = m.Get("missing")
	assert.False(t, ok)
}
