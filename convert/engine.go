package convert

import (
	"fmt"
	"math"
	"math/big"
	"reflect"
	"time"

	"github.com/dop251/goja"
)

// ToEngine converts a host value to an engine value, allocating in rt.
//
// Exceptions thrown by the runtime while constructing the value are returned
// as the [*goja.Exception].
func ToEngine(rt *goja.Runtime, v any) (result goja.Value, err error) {
	c := engineConverter{rt: rt}
	if ex := rt.Try(func() { result, err = c.convert(v) }); ex != nil {
		return nil, ex
	}
	return result, err
}

type engineConverter struct {
	rt   *goja.Runtime
	path map[uintptr]struct{}
}

func (c *engineConverter) convert(v any) (goja.Value, error) {
	switch x := v.(type) {
	case nil:
		return goja.Null(), nil
	case string:
		return c.rt.ToValue(x), nil
	case bool:
		return c.rt.ToValue(x), nil
	case int:
		return c.rt.ToValue(float64(x)), nil
	case int8:
		return c.rt.ToValue(float64(x)), nil
	case int16:
		return c.rt.ToValue(float64(x)), nil
	case int32:
		return c.rt.ToValue(float64(x)), nil
	case int64:
		return c.rt.ToValue(float64(x)), nil
	case uint:
		return c.rt.ToValue(float64(x)), nil
	case uint8:
		return c.rt.ToValue(float64(x)), nil
	case uint16:
		return c.rt.ToValue(float64(x)), nil
	case uint32:
		return c.rt.ToValue(float64(x)), nil
	case uint64:
		return c.rt.ToValue(float64(x)), nil
	case float32:
		return c.float(float64(x)), nil
	case float64:
		return c.float(x), nil
	case *big.Int:
		if x == nil {
			return goja.Null(), nil
		}
		return c.rt.ToValue(new(big.Int).Set(x)), nil
	case []byte:
		return c.rt.ToValue(c.rt.NewArrayBuffer(copyBytes(x))), nil
	case time.Time:
		return c.construct("Date", c.rt.ToValue(float64(x.UnixMilli())))
	case Set:
		return c.set(x)
	case Map:
		return c.mapping(x)
	case []any:
		return c.slice(reflect.ValueOf(x))
	case map[string]any:
		return c.object(reflect.ValueOf(x))
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return c.slice(rv)
	case reflect.Map:
		return c.object(rv)
	}

	return nil, &UnsupportedConversionError{Type: fmt.Sprintf("%T", v), ToEngine: true}
}

// float keeps NaN and the infinities out of any integer coercion path.
func (c *engineConverter) float(f float64) goja.Value {
	switch {
	case math.IsNaN(f):
		return c.rt.ToValue(math.NaN())
	case math.IsInf(f, 1):
		return c.rt.ToValue(math.Inf(1))
	case math.IsInf(f, -1):
		return c.rt.ToValue(math.Inf(-1))
	}
	return c.rt.ToValue(f)
}

func (c *engineConverter) construct(name string, args ...goja.Value) (goja.Value, error) {
	ctor := c.rt.Get(name)
	if ctor == nil {
		return nil, fmt.Errorf("convert: %s constructor is not defined", name)
	}
	obj, err := c.rt.New(ctor, args...)
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// enter guards against cycles, for reference kinds (slices and maps).
func (c *engineConverter) enter(rv reflect.Value, fn func() (goja.Value, error)) (goja.Value, error) {
	if (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Map) || rv.Len() == 0 {
		return fn()
	}
	ptr := rv.Pointer()
	if _, ok := c.path[ptr]; ok {
		return nil, &UnsupportedConversionError{Cause: ErrCycle, Type: rv.Type().String(), Message: ErrCycle.Error(), ToEngine: true}
	}
	if c.path == nil {
		c.path = make(map[uintptr]struct{})
	}
	c.path[ptr] = struct{}{}
	defer delete(c.path, ptr)
	return fn()
}

func (c *engineConverter) values(rv reflect.Value) ([]any, error) {
	items := make([]any, rv.Len())
	for i := range items {
		v, err := c.convert(rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		items[i] = v
	}
	return items, nil
}

func (c *engineConverter) slice(rv reflect.Value) (goja.Value, error) {
	return c.enter(rv, func() (goja.Value, error) {
		items, err := c.values(rv)
		if err != nil {
			return nil, err
		}
		return c.rt.NewArray(items...), nil
	})
}

func (c *engineConverter) set(x Set) (goja.Value, error) {
	return c.enter(reflect.ValueOf(x), func() (goja.Value, error) {
		items, err := c.values(reflect.ValueOf([]any(x)))
		if err != nil {
			return nil, err
		}
		return c.construct("Set", c.rt.NewArray(items...))
	})
}

func (c *engineConverter) mapping(x Map) (goja.Value, error) {
	return c.enter(reflect.ValueOf(x), func() (goja.Value, error) {
		entries := make([]any, len(x))
		for i, e := range x {
			key, err := c.convert(e.Key)
			if err != nil {
				return nil, err
			}
			value, err := c.convert(e.Value)
			if err != nil {
				return nil, err
			}
			entries[i] = c.rt.NewArray(key, value)
		}
		return c.construct("Map", c.rt.NewArray(entries...))
	})
}

// object skips entries whose keys are not strings.
func (c *engineConverter) object(rv reflect.Value) (goja.Value, error) {
	return c.enter(rv, func() (goja.Value, error) {
		obj := c.rt.NewObject()
		iter := rv.MapRange()
		for iter.Next() {
			key := iter.Key()
			if key.Kind() == reflect.Interface {
				key = key.Elem()
			}
			if !key.IsValid() || key.Kind() != reflect.String {
				continue
			}
			v, err := c.convert(iter.Value().Interface())
			if err != nil {
				return nil, err
			}
			if err := obj.Set(key.String(), v); err != nil {
				return nil, err
			}
		}
		return obj, nil
	})
}
