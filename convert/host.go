package convert

import (
	"math"
	"math/big"
	"reflect"
	"slices"
	"strconv"
	"time"

	"github.com/dop251/goja"
)

var (
	typePromise     = reflect.TypeOf((*goja.Promise)(nil))
	typeArrayBuffer = reflect.TypeOf(goja.ArrayBuffer{})
	typeSetExport   = reflect.TypeOf([]any(nil))
	typeMapExport   = reflect.TypeOf([][2]any(nil))

	// export types of every TypedArray flavour
	typedArrayTypes = map[reflect.Type]struct{}{
		reflect.TypeOf([]byte(nil)):    {},
		reflect.TypeOf([]int8(nil)):    {},
		reflect.TypeOf([]uint16(nil)):  {},
		reflect.TypeOf([]int16(nil)):   {},
		reflect.TypeOf([]uint32(nil)):  {},
		reflect.TypeOf([]int32(nil)):   {},
		reflect.TypeOf([]float32(nil)): {},
		reflect.TypeOf([]float64(nil)): {},
		reflect.TypeOf([]int64(nil)):   {},
		reflect.TypeOf([]uint64(nil)):  {},
	}
)

// float64(math.MaxInt64) rounds up to 2^63, which is out of range
const maxInt64Float = float64(1 << 63)

// ToHost converts an engine value to its host representation.
//
// Exceptions thrown by the runtime while reading the value (e.g. by a getter)
// are returned as the [*goja.Exception].
func ToHost(rt *goja.Runtime, v goja.Value) (result any, err error) {
	c := hostConverter{rt: rt}
	if ex := rt.Try(func() { result, err = c.convert(v) }); ex != nil {
		return nil, ex
	}
	return result, err
}

type hostConverter struct {
	rt   *goja.Runtime
	path map[*goja.Object]struct{}
}

func (c *hostConverter) convert(v goja.Value) (any, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, nil
	}

	obj, ok := v.(*goja.Object)
	if !ok {
		return c.primitive(v)
	}

	switch obj.ClassName() {
	case "String":
		return obj.String(), nil
	case "Date":
		return c.date(obj)
	case "Array":
		return c.enter(obj, c.array)
	}

	if _, ok := goja.AssertFunction(obj); ok {
		return nil, &UnsupportedConversionError{Type: "function"}
	}

	typ := obj.ExportType()
	switch {
	case typ == typePromise:
		return nil, &UnsupportedConversionError{Type: "promise"}
	case typ == typeArrayBuffer:
		ab, _ := obj.Export().(goja.ArrayBuffer)
		return copyBytes(ab.Bytes()), nil
	case isTypedArray(typ), c.isDataView(obj):
		return c.bytes(obj)
	case typ == typeSetExport:
		return c.enter(obj, c.set)
	case typ == typeMapExport:
		return c.enter(obj, c.mapping)
	}

	return c.enter(obj, c.object)
}

func (c *hostConverter) primitive(v goja.Value) (any, error) {
	if _, ok := v.(*goja.Symbol); ok {
		return nil, &UnsupportedConversionError{Type: "symbol"}
	}
	switch x := v.Export().(type) {
	case string:
		return x, nil
	case int64:
		return x, nil
	case float64:
		return number(x), nil
	case bool:
		return x, nil
	case *big.Int:
		if !x.IsInt64() {
			return nil, &UnsupportedConversionError{
				Cause:   ErrOutOfRange,
				Type:    "bigint",
				Message: "bigint " + x.String() + " exceeds the int64 range",
			}
		}
		return x.Int64(), nil
	default:
		return nil, &UnsupportedConversionError{Type: typeOf(v)}
	}
}

// number collapses integral doubles to int64, where representable.
func number(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return f
	}
	if f == math.Trunc(f) && f >= -maxInt64Float && f < maxInt64Float {
		return int64(f)
	}
	return f
}

func (c *hostConverter) date(obj *goja.Object) (any, error) {
	ms := obj.ToFloat()
	if math.IsNaN(ms) || math.IsInf(ms, 0) {
		return nil, &UnsupportedConversionError{Type: "Date", Message: "invalid date"}
	}
	sec, frac := math.Modf(ms / 1000)
	return time.Unix(int64(sec), int64(math.Round(frac*1e9))).UTC(), nil
}

// enter guards against cycles along the current conversion path.
func (c *hostConverter) enter(obj *goja.Object, fn func(*goja.Object) (any, error)) (any, error) {
	if _, ok := c.path[obj]; ok {
		return nil, &UnsupportedConversionError{Cause: ErrCycle, Type: typeOf(obj), Message: ErrCycle.Error()}
	}
	if c.path == nil {
		c.path = make(map[*goja.Object]struct{})
	}
	c.path[obj] = struct{}{}
	defer delete(c.path, obj)
	return fn(obj)
}

func (c *hostConverter) array(obj *goja.Object) (any, error) {
	length := obj.Get("length").ToInteger()

	// own keys, rather than 0..length, so sparse arrays stay cheap
	var indexes []int64
	for _, key := range obj.Keys() {
		i, err := strconv.ParseInt(key, 10, 64)
		if err != nil || i < 0 || i >= length || strconv.FormatInt(i, 10) != key {
			continue
		}
		indexes = append(indexes, i)
	}
	slices.Sort(indexes)

	result := make([]any, 0, len(indexes))
	for _, i := range indexes {
		elem := obj.Get(strconv.FormatInt(i, 10))
		if elem == nil {
			continue
		}
		v, err := c.convert(elem)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, nil
}

func (c *hostConverter) bytes(obj *goja.Object) (any, error) {
	var b []byte
	if err := c.rt.ExportTo(obj, &b); err != nil {
		return nil, &UnsupportedConversionError{Cause: err, Type: typeOf(obj)}
	}
	return copyBytes(b), nil
}

func (c *hostConverter) set(obj *goja.Object) (any, error) {
	elems := c.iterate(obj)
	result := make(Set, 0, len(elems))
	for _, elem := range elems {
		v, err := c.convert(elem)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, nil
}

func (c *hostConverter) mapping(obj *goja.Object) (any, error) {
	entries := c.iterate(obj)

	flat := make([]goja.Value, 0, len(entries)*2)
	for _, entry := range entries {
		pair := entry.ToObject(c.rt)
		flat = append(flat, pair.Get("0"), pair.Get("1"))
	}

	result := make(Map, 0, len(entries))
	for i := 0; i+1 < len(flat); i += 2 {
		key, err := c.convert(flat[i])
		if err != nil {
			return nil, err
		}
		value, err := c.convert(flat[i+1])
		if err != nil {
			return nil, err
		}
		result = append(result, MapEntry{Key: key, Value: value})
	}
	return result, nil
}

func (c *hostConverter) object(obj *goja.Object) (any, error) {
	keys := obj.Keys()
	result := make(map[string]any, len(keys))
	for _, key := range keys {
		v, err := c.convert(obj.Get(key))
		if err != nil {
			return nil, err
		}
		result[key] = v
	}
	return result, nil
}

// iterate collects the values produced by the object's iterator.
func (c *hostConverter) iterate(obj *goja.Object) (values []goja.Value) {
	c.rt.ForOf(obj, func(v goja.Value) bool {
		values = append(values, v)
		return true
	})
	return values
}

func (c *hostConverter) isDataView(obj *goja.Object) bool {
	ctor, ok := c.rt.Get("DataView").(*goja.Object)
	return ok && c.rt.InstanceOf(obj, ctor)
}

func isTypedArray(typ reflect.Type) bool {
	_, ok := typedArrayTypes[typ]
	return ok
}

// copyBytes never aliases engine memory, and never returns nil.
func copyBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func typeOf(v goja.Value) string {
	switch v := v.(type) {
	case *goja.Symbol:
		return "symbol"
	case *goja.Object:
		if _, ok := goja.AssertFunction(v); ok {
			return "function"
		}
		if name := v.ClassName(); name != "Object" {
			return name
		}
		return "object"
	}
	if v == nil {
		return "undefined"
	}
	return v.ExportType().String()
}
