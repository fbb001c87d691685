package convert

import (
	"errors"
	"fmt"
)

var (
	// ErrCycle indicates a value that (directly or indirectly) contains itself.
	ErrCycle = errors.New("convert: cyclic value")

	// ErrOutOfRange indicates a value that cannot be represented in the target
	// domain without losing magnitude, e.g. a bigint beyond the int64 range.
	ErrOutOfRange = errors.New("convert: value out of range")
)

type (
	// Set is the host representation of a JavaScript Set, in insertion order.
	Set []any

	// Map is the host representation of a JavaScript Map, in insertion order.
	// Keys may be any host value, unlike map[string]any.
	Map []MapEntry

	// MapEntry is a single key/value pair of a [Map].
	MapEntry struct {
		Key   any
		Value any
	}

	// UnsupportedConversionError is returned when a value has a kind that is
	// not modeled by the conversion in the requested direction.
	UnsupportedConversionError struct {
		// Cause is an optional underlying error, e.g. [ErrCycle].
		Cause error
		// Type names the offending kind, the JavaScript typeof (or class)
		// for engine values, or the Go type for host values.
		Type string
		// Message overrides the default message, if set.
		Message string
		// ToEngine is true for host to engine conversions.
		ToEngine bool
	}
)

// Get returns the value for the first entry with a key equal to key, using
// Go equality. Keys that are not comparable never match.
func (x Map) Get(key any) (any, bool) {
	for _, e := range x {
		if comparableEqual(e.Key, key) {
			return e.Value, true
		}
	}
	return nil, false
}

// Error implements the error interface.
func (e *UnsupportedConversionError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.ToEngine {
		return fmt.Sprintf("unsupported host type: %s", e.Type)
	}
	return fmt.Sprintf("unsupported engine type: %s", e.Type)
}

// Unwrap returns the underlying cause for use with [errors.Is] and [errors.As].
func (e *UnsupportedConversionError) Unwrap() error {
	return e.Cause
}

func comparableEqual(a, b any) (equal bool) {
	defer func() {
		if recover() != nil {
			equal = false
		}
	}()
	return a == b
}
