package gojabridge

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dop251/goja"
)

// compileScript parses src, reporting syntax errors as [CompileError].
func compileScript(name, src string) (*goja.Program, error) {
	prg, err := goja.Compile(name, src, false)
	if err != nil {
		return nil, compileError(name, err)
	}
	return prg, nil
}

func compileError(name string, err error) error {
	var syntaxErr *goja.CompilerSyntaxError
	if errors.As(err, &syntaxErr) {
		return &CompileError{Cause: err, Name: name, Message: syntaxErr.Error()}
	}
	return &CompileError{Cause: err, Name: name, Message: err.Error()}
}

// scriptError converts an error returned from the runtime into a
// [ScriptRuntimeError].
func (e *Engine) scriptError(rt *goja.Runtime, err error) error {
	var ex *goja.Exception
	if !errors.As(err, &ex) {
		return &ScriptRuntimeError{Cause: err, Message: err.Error()}
	}
	msg, ok := stringify(rt, ex.Value())
	if !ok {
		msg = "uncaught exception"
	}
	return &ScriptRuntimeError{Cause: ex, Message: msg, Stack: formatStack(ex.Stack())}
}

// rejectionError converts a promise rejection reason into a
// [ScriptRuntimeError].
func (e *Engine) rejectionError(rt *goja.Runtime, reason goja.Value) error {
	msg, ok := stringify(rt, reason)
	if !ok {
		msg = "promise rejected"
	}
	err := &ScriptRuntimeError{Message: msg, Rejected: true}
	if obj, ok := reason.(*goja.Object); ok {
		_ = rt.Try(func() {
			if stack := obj.Get("stack"); stack != nil && !goja.IsUndefined(stack) {
				err.Stack = stack.String()
			}
		})
	}
	return err
}

// stringify returns the string form of v, which may fail if its toString
// throws.
func stringify(rt *goja.Runtime, v goja.Value) (s string, ok bool) {
	if v == nil {
		return "undefined", true
	}
	if ex := rt.Try(func() { s = v.String() }); ex != nil {
		return "", false
	}
	return s, true
}

// describe is stringify, for logging.
func describe(rt *goja.Runtime, v goja.Value) string {
	if s, ok := stringify(rt, v); ok {
		return s
	}
	return "(unprintable value)"
}

func formatStack(frames []goja.StackFrame) string {
	var b strings.Builder
	for _, f := range frames {
		name := f.FuncName()
		if name == "" {
			name = "<anonymous>"
		}
		fmt.Fprintf(&b, "\tat %s (%s)\n", name, f.Position())
	}
	return b.String()
}
