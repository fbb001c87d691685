package gojabridge

import (
	"errors"
	"fmt"

	"github.com/joeycumines/goja-bridge/convert"
)

// Standard errors.
var (
	// ErrClosed is returned by operations on a closed [Engine] or [Context].
	ErrClosed = errors.New("gojabridge: closed")

	// ErrReentrant is returned when the engine is used from a goroutine that
	// is already executing within it, e.g. from a Go function called by a
	// script. Waiting for the lock would deadlock.
	ErrReentrant = errors.New("gojabridge: reentrant engine access")
)

// UnsupportedConversionError indicates a value that has no counterpart in
// the other domain.
type UnsupportedConversionError = convert.UnsupportedConversionError

// Kind classifies the errors returned by this package.
type Kind int

const (
	KindUnknown Kind = iota
	KindCompile
	KindModuleResolution
	KindSnapshotEnumeration
	KindNameNotFound
	KindNotCallable
	KindScriptRuntime
	KindUnsupportedConversion
	KindPromiseProtocol
	KindClosed
	KindReentrant
)

var kindNames = [...]string{
	KindUnknown:               "unknown",
	KindCompile:               "compile",
	KindModuleResolution:      "module resolution",
	KindSnapshotEnumeration:   "snapshot enumeration",
	KindNameNotFound:          "name not found",
	KindNotCallable:           "not callable",
	KindScriptRuntime:         "script runtime",
	KindUnsupportedConversion: "unsupported conversion",
	KindPromiseProtocol:       "promise protocol",
	KindClosed:                "closed",
	KindReentrant:             "reentrant",
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// KindOf returns the [Kind] of the first error in err's chain that this
// package defines, or [KindUnknown].
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var (
		compileErr     *CompileError
		resolutionErr  *ModuleResolutionError
		enumerationErr *SnapshotEnumerationError
		notFoundErr    *NameNotFoundError
		notCallableErr *NotCallableError
		runtimeErr     *ScriptRuntimeError
		conversionErr  *UnsupportedConversionError
		promiseErr     *PromiseProtocolError
	)
	switch {
	case errors.Is(err, ErrClosed):
		return KindClosed
	case errors.Is(err, ErrReentrant):
		return KindReentrant
	case errors.As(err, &compileErr):
		return KindCompile
	case errors.As(err, &resolutionErr):
		return KindModuleResolution
	case errors.As(err, &enumerationErr):
		return KindSnapshotEnumeration
	case errors.As(err, &notFoundErr):
		return KindNameNotFound
	case errors.As(err, &notCallableErr):
		return KindNotCallable
	case errors.As(err, &runtimeErr):
		return KindScriptRuntime
	case errors.As(err, &conversionErr):
		return KindUnsupportedConversion
	case errors.As(err, &promiseErr):
		return KindPromiseProtocol
	}
	return KindUnknown
}

// CompileError indicates source that failed to parse or compile.
type CompileError struct {
	Cause error
	// Name is the script or module file name, if any.
	Name    string
	Message string
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "compile error"
	}
	if e.Name != "" {
		return fmt.Sprintf("gojabridge: %s: %s", e.Name, msg)
	}
	return "gojabridge: " + msg
}

// Unwrap returns the underlying cause for use with [errors.Is] and [errors.As].
func (e *CompileError) Unwrap() error {
	return e.Cause
}

// ModuleResolutionError indicates a module specifier that could not be
// resolved or loaded.
type ModuleResolutionError struct {
	Cause     error
	Specifier string
	Message   string
}

// Error implements the error interface.
func (e *ModuleResolutionError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("gojabridge: resolve %q: %s", e.Specifier, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("gojabridge: resolve %q: %v", e.Specifier, e.Cause)
	}
	return fmt.Sprintf("gojabridge: cannot resolve %q", e.Specifier)
}

// Unwrap returns the underlying cause for use with [errors.Is] and [errors.As].
func (e *ModuleResolutionError) Unwrap() error {
	return e.Cause
}

// SnapshotEnumerationError indicates the engine refused to list the names
// of a compiled script or module.
type SnapshotEnumerationError struct {
	Cause   error
	Message string
}

// Error implements the error interface.
func (e *SnapshotEnumerationError) Error() string {
	if e.Message == "" {
		return "gojabridge: failed to enumerate bindings"
	}
	return "gojabridge: failed to enumerate bindings: " + e.Message
}

// Unwrap returns the underlying cause for use with [errors.Is] and [errors.As].
func (e *SnapshotEnumerationError) Unwrap() error {
	return e.Cause
}

// NameNotFoundError indicates a name missing from a [Context].
type NameNotFoundError struct {
	Name string
}

// Error implements the error interface.
func (e *NameNotFoundError) Error() string {
	return fmt.Sprintf("gojabridge: %q is not defined", e.Name)
}

// NotCallableError indicates a name bound to a value that is not a function.
type NotCallableError struct {
	Name string
}

// Error implements the error interface.
func (e *NotCallableError) Error() string {
	return fmt.Sprintf("gojabridge: %q is not a function", e.Name)
}

// ScriptRuntimeError indicates an exception thrown by a script, or the
// rejection of a promise being settled.
type ScriptRuntimeError struct {
	// Cause is the [*goja.Exception], if any.
	Cause   error
	Message string
	// Stack is the script stack trace, when available.
	Stack string
	// Rejected is true if the error is a promise rejection reason.
	Rejected bool
}

// Error implements the error interface.
func (e *ScriptRuntimeError) Error() string {
	if e.Message == "" {
		return "gojabridge: script error"
	}
	return "gojabridge: " + e.Message
}

// Unwrap returns the underlying cause for use with [errors.Is] and [errors.As].
func (e *ScriptRuntimeError) Unwrap() error {
	return e.Cause
}

// PromiseProtocolError indicates a promise where a plain value was required,
// or a promise-like value that could not be settled.
type PromiseProtocolError struct {
	Name    string
	Message string
}

// Error implements the error interface.
func (e *PromiseProtocolError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "promise protocol error"
	}
	if e.Name != "" {
		return fmt.Sprintf("gojabridge: %s: %s", e.Name, msg)
	}
	return "gojabridge: " + msg
}
