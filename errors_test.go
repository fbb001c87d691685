package gojabridge

import (
	"errors"
	"fmt"
	"testing"

	"github.com/joeycumines/goja-bridge/convert"
	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	for _, tc := range [...]struct {
		err  error
		want Kind
	}{
		{err: nil, want: KindUnknown},
		{err: errors.New("other"), want: KindUnknown},
		{err: &CompileError{Message: "x"}, want: KindCompile},
		{err: &ModuleResolutionError{Specifier: "x"}, want: KindModuleResolution},
		{err: &SnapshotEnumerationError{}, want: KindSnapshotEnumeration},
		{err: &NameNotFoundError{Name: "x"}, want: KindNameNotFound},
		{err: &NotCallableError{Name: "x"}, want: KindNotCallable},
		{err: &ScriptRuntimeError{Message: "x"}, want: KindScriptRuntime},
		{err: &UnsupportedConversionError{Type: "symbol"}, want: KindUnsupportedConversion},
		{err: &PromiseProtocolError{Name: "x"}, want: KindPromiseProtocol},
		{err: ErrClosed, want: KindClosed},
		{err: errors.Join(ErrClosed, errors.New("loop terminated")), want: KindClosed},
		{err: ErrReentrant, want: KindReentrant},
		{err: fmt.Errorf("wrapped: %w", &NotCallableError{Name: "x"}), want: KindNotCallable},
		{err: &UnsupportedConversionError{Cause: convert.ErrCycle}, want: KindUnsupportedConversion},
	} {
		t.Run(fmt.Sprint(tc.err), func(t *testing.T) {
			assert.Equal(t, tc.want, KindOf(tc.err))
		})
	}
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "compile", KindCompile.String())
	assert.Equal(t, "reentrant", KindReentrant.String())
	assert.Equal(t, "Kind(99)", Kind(99).String())
}

func TestErrors_messages(t *testing.T) {
	cause := errors.New("cause")
	for _, tc := range [...]struct {
		err  error
		want string
	}{
		{err: &CompileError{Name: "a.js", Message: "unexpected token"}, want: "gojabridge: a.js: unexpected token"},
		{err: &CompileError{}, want: "gojabridge: compile error"},
		{err: &ModuleResolutionError{Specifier: "x", Cause: cause}, want: `gojabridge: resolve "x": cause`},
		{err: &ModuleResolutionError{Specifier: "x"}, want: `gojabridge: cannot resolve "x"`},
		{err: &SnapshotEnumerationError{}, want: "gojabridge: failed to enumerate bindings"},
		{err: &NameNotFoundError{Name: "x"}, want: `gojabridge: "x" is not defined`},
		{err: &NotCallableError{Name: "x"}, want: `gojabridge: "x" is not a function`},
		{err: &ScriptRuntimeError{Message: "Error: x"}, want: "gojabridge: Error: x"},
	} {
		assert.EqualError(t, tc.err, tc.want)
	}

	assert.ErrorIs(t, &CompileError{Cause: cause}, cause)
	assert.ErrorIs(t, &ScriptRuntimeError{Cause: cause}, cause)
}
