package gojabridge

import (
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/require"
)

// Context is a compiled script or module, holding a snapshot of its
// bindings, taken at compile time. It keeps its [Engine] alive until closed.
//
// A Context is safe for concurrent use.
type Context struct {
	engine *Engine
	name   string
	// guarded by the engine lock
	bindings map[string]goja.Value
	this     goja.Value
	closed   atomic.Bool
}

// CompileScript runs src as a script, and snapshots every enumerable
// property of the global object.
func (e *Engine) CompileScript(src string) (*Context, error) {
	return e.CompileScriptNamed("", src)
}

// CompileScriptNamed is [Engine.CompileScript] with a script name, used in
// errors and stack traces.
func (e *Engine) CompileScriptNamed(name, src string) (*Context, error) {
	prg, err := compileScript(name, src)
	if err != nil {
		return nil, err
	}

	var c *Context
	err = e.do(func(rt *goja.Runtime) error {
		if _, err := rt.RunProgram(prg); err != nil {
			return e.scriptError(rt, err)
		}
		global := rt.GlobalObject()
		bindings, err := snapshot(rt, global, false)
		if err != nil {
			return err
		}
		c, err = e.newContext(name, global, bindings)
		return err
	})
	if err != nil {
		e.logger.Debug().Str("name", name).Err(err).Log("compile failed")
		return nil, err
	}

	e.logger.Debug().Str("name", name).Int("bindings", len(c.bindings)).Log("compiled script")
	return c, nil
}

// CompileModuleFile loads the module at path, with require, and snapshots
// its exported functions. Other exports are omitted.
func (e *Engine) CompileModuleFile(path string) (*Context, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &ModuleResolutionError{Cause: err, Specifier: path}
	}
	mod, err := e.cfg.resolver.Resolve(filepath.ToSlash(abs), "")
	if err != nil {
		return nil, &ModuleResolutionError{Cause: err, Specifier: path}
	}

	// the require implementation compiles modules wrapped like this
	if !strings.EqualFold(filepath.Ext(mod.Path), ".json") {
		if _, err := goja.Compile(mod.Path, "(function(exports, require, module) {"+string(mod.Source)+"\n})", false); err != nil {
			e.logger.Debug().Str("name", mod.Path).Err(err).Log("compile failed")
			return nil, compileError(mod.Path, err)
		}
	}

	var c *Context
	err = e.do(func(rt *goja.Runtime) error {
		exports, err := e.modules.Require(mod.Path)
		if err != nil {
			switch {
			case errors.Is(err, require.InvalidModuleError), errors.Is(err, require.ModuleFileDoesNotExistError):
				return &ModuleResolutionError{Cause: err, Specifier: path}
			}
			var syntaxErr *goja.CompilerSyntaxError
			if errors.As(err, &syntaxErr) {
				return compileError(mod.Path, err)
			}
			return e.scriptError(rt, err)
		}
		var obj *goja.Object
		if ex := rt.Try(func() { obj = exports.ToObject(rt) }); ex != nil {
			return &SnapshotEnumerationError{Cause: ex, Message: describe(rt, ex.Value())}
		}
		bindings, err := snapshot(rt, obj, true)
		if err != nil {
			return err
		}
		c, err = e.newContext(mod.Path, rt.GlobalObject(), bindings)
		return err
	})
	if err != nil {
		e.logger.Debug().Str("name", mod.Path).Err(err).Log("compile failed")
		return nil, err
	}

	e.logger.Debug().Str("name", mod.Path).Int("bindings", len(c.bindings)).Log("compiled module")
	return c, nil
}

// snapshot captures the own enumerable properties of obj, optionally only
// those that are functions.
func snapshot(rt *goja.Runtime, obj *goja.Object, functionsOnly bool) (bindings map[string]goja.Value, err error) {
	if ex := rt.Try(func() {
		keys := obj.Keys()
		bindings = make(map[string]goja.Value, len(keys))
		for _, key := range keys {
			v := obj.Get(key)
			if functionsOnly {
				if _, ok := goja.AssertFunction(v); !ok {
					continue
				}
			}
			bindings[key] = v
		}
	}); ex != nil {
		return nil, &SnapshotEnumerationError{Cause: ex, Message: describe(rt, ex.Value())}
	}
	return bindings, nil
}

// newContext must be called with the lock held.
func (e *Engine) newContext(name string, this goja.Value, bindings map[string]goja.Value) (*Context, error) {
	if !e.acquire() {
		return nil, ErrClosed
	}
	return &Context{
		engine:   e,
		name:     name,
		bindings: bindings,
		this:     this,
	}, nil
}

// Engine returns the engine the context was compiled with.
func (c *Context) Engine() *Engine {
	return c.engine
}

// Name returns the script name or module path, if any.
func (c *Context) Name() string {
	return c.name
}

// Names returns the sorted names in the snapshot.
func (c *Context) Names() (names []string) {
	c.engine.locked(func() {
		names = make([]string, 0, len(c.bindings))
		for name := range c.bindings {
			names = append(names, name)
		}
	})
	slices.Sort(names)
	return names
}

// GetProperty returns the converted value bound to name in the snapshot.
func (c *Context) GetProperty(name string) (result any, err error) {
	err = c.exclusive(func(rt *goja.Runtime) error {
		v, err := c.lookup(name)
		if err != nil {
			return err
		}
		result, err = c.engine.toHost(rt, v)
		return err
	})
	return result, err
}

// Close clears the snapshot, and releases the context's reference to its
// engine.
func (c *Context) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	c.engine.locked(func() {
		c.bindings = nil
		c.this = nil
	})
	c.engine.release()
	return nil
}

func (c *Context) exclusive(fn func(rt *goja.Runtime) error) error {
	if c.closed.Load() {
		return ErrClosed
	}
	return c.engine.exclusive(func(rt *goja.Runtime) error {
		if c.closed.Load() {
			return ErrClosed
		}
		return fn(rt)
	})
}

// lookup must be called with the lock held.
func (c *Context) lookup(name string) (goja.Value, error) {
	v, ok := c.bindings[name]
	if !ok {
		return nil, &NameNotFoundError{Name: name}
	}
	return v, nil
}
