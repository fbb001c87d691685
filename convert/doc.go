// Package convert maps values between a [goja.Runtime] and plain Go values.
//
// The conversions are pure functions of the value and the runtime. They take
// no locks, and must only be called by a goroutine that has exclusive access
// to the runtime (see the root package's Engine).
//
// # Engine to host
//
// [ToHost] dispatches on the dynamic kind of the value, first match wins:
//
//   - null, undefined: nil
//   - string, String object: string
//   - number: NaN and ±Inf as float64, integral values within the int64 range
//     as int64, everything else as float64
//   - boolean: bool
//   - bigint: int64, or an error if out of range
//   - Date: [time.Time] in UTC, millisecond resolution
//   - Array: []any, holes are skipped
//   - TypedArray, DataView, ArrayBuffer: []byte, always copied
//   - Set: [Set]
//   - Map: [Map]
//   - any other non-callable object: map[string]any of its own enumerable
//     properties
//
// Functions, symbols and promises fail with [UnsupportedConversionError].
//
// # Host to engine
//
// [ToEngine] maps nil to null, strings, bools, every integer and float width
// (widened to a double), []byte (copied into a new ArrayBuffer), [time.Time],
// [Set], [Map], *big.Int, and slices or maps of any of these. Maps with
// non-string keys have those entries skipped.
//
// Both directions detect cycles along the current path and fail with an
// error matching [ErrCycle].
package convert
