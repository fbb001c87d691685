package gojabridge

import (
	"errors"
	"reflect"

	"github.com/dop251/goja"
)

var promiseType = reflect.TypeOf((*goja.Promise)(nil))

// Call calls the function bound to name, with the global object as the
// receiver, returning its converted result.
//
// Functions returning a promise fail with a [PromiseProtocolError], see
// [Context.CallAsync].
func (c *Context) Call(name string, args ...any) (result any, err error) {
	err = c.exclusive(func(rt *goja.Runtime) error {
		v, err := c.invoke(rt, name, args)
		if err != nil {
			return err
		}
		if _, ok := asPromise(v); ok {
			return &PromiseProtocolError{Name: name, Message: "function returned a promise, use CallAsync"}
		}
		if isThenable(rt, v) {
			return &PromiseProtocolError{Name: name, Message: "function returned a thenable, use CallAsync"}
		}
		result, err = c.engine.toHost(rt, v)
		return err
	})
	if err != nil {
		c.engine.logger.Debug().Str("function", name).Err(err).Log("call failed")
	}
	return result, err
}

// CallAsync calls the function bound to name, like [Context.Call], then
// settles any returned promise on the engine's worker.
//
// The future completes with the converted fulfillment value, or a
// [ScriptRuntimeError] carrying the rejection reason. If the function does
// not return a promise, the future completes with nil, unless the engine was
// configured [WithNonPromiseAsyncResults].
func (c *Context) CallAsync(name string, args ...any) *Future {
	f := newFuture()
	err := c.exclusive(func(rt *goja.Runtime) error {
		v, err := c.invoke(rt, name, args)
		if err != nil {
			return err
		}
		p, ok := asPromise(v)
		if !ok && isThenable(rt, v) {
			if p, err = c.engine.adopt(rt, name, v); err != nil {
				return err
			}
			ok = true
		}
		if !ok {
			if !c.engine.cfg.nonPromiseResults {
				f.complete(nil, nil)
				return nil
			}
			result, err := c.engine.toHost(rt, v)
			f.complete(result, err)
			return nil
		}
		return c.engine.settle(name, p, f)
	})
	if err != nil {
		c.engine.logger.Debug().Str("function", name).Err(err).Log("call failed")
		f.complete(nil, err)
	}
	return f
}

// invoke must be called with the lock held.
func (c *Context) invoke(rt *goja.Runtime, name string, args []any) (goja.Value, error) {
	v, err := c.lookup(name)
	if err != nil {
		return nil, err
	}
	fn, ok := goja.AssertFunction(v)
	if !ok {
		return nil, &NotCallableError{Name: name}
	}
	values, err := c.engine.toEngine(rt, args)
	if err != nil {
		return nil, err
	}
	result, err := fn(c.this, values...)
	if err != nil {
		return nil, c.engine.scriptError(rt, err)
	}
	return result, nil
}

func asPromise(v goja.Value) (*goja.Promise, bool) {
	if v == nil || v.ExportType() != promiseType {
		return nil, false
	}
	p, ok := v.Export().(*goja.Promise)
	return p, ok && p != nil
}

// isThenable reports whether v is an object with a callable then property.
// Must be called with the lock held.
func isThenable(rt *goja.Runtime, v goja.Value) (ok bool) {
	obj, isObj := v.(*goja.Object)
	if !isObj {
		return false
	}
	_ = rt.Try(func() {
		_, ok = goja.AssertFunction(obj.Get("then"))
	})
	return ok
}

// adopt resolves a native promise with the thenable v. Must be called with
// the lock held.
func (e *Engine) adopt(rt *goja.Runtime, name string, v goja.Value) (*goja.Promise, error) {
	result, err := e.promiseResolve(goja.Undefined(), v)
	if err != nil {
		return nil, &PromiseProtocolError{Name: name, Message: "failed to adopt thenable: " + e.scriptError(rt, err).Error()}
	}
	p, ok := asPromise(result)
	if !ok {
		return nil, &PromiseProtocolError{Name: name, Message: "failed to adopt thenable"}
	}
	return p, nil
}

// settlement polls a promise on the worker until it settles.
type settlement struct {
	e       *Engine
	promise *goja.Promise
	future  *Future
	name    string
	polls   int
}

// settle must be called with the lock held.
func (e *Engine) settle(name string, p *goja.Promise, f *Future) error {
	s := &settlement{e: e, promise: p, future: f, name: name}
	e.settling[p] = struct{}{}
	e.pending[f] = struct{}{}
	if err := e.loop.Submit(s.poll); err != nil {
		s.forget()
		return errors.Join(ErrClosed, err)
	}
	return nil
}

func (s *settlement) poll() {
	if err := s.e.exclusive(s.step); err != nil {
		s.future.complete(nil, err)
	}
}

// step must be called with the lock held.
func (s *settlement) step(rt *goja.Runtime) error {
	if s.promise.State() == goja.PromiseStatePending {
		s.e.checkpoint()
	}

	switch s.promise.State() {
	case goja.PromiseStateFulfilled:
		s.forget()
		s.e.logger.Debug().Str("function", s.name).Int("polls", s.polls).Log("promise fulfilled")
		result, err := s.e.toHost(rt, s.promise.Result())
		s.future.complete(result, err)

	case goja.PromiseStateRejected:
		s.forget()
		s.e.logger.Debug().Str("function", s.name).Int("polls", s.polls).Log("promise rejected")
		s.future.complete(nil, s.e.rejectionError(rt, s.promise.Result()))

	default:
		s.polls++
		var err error
		if s.polls <= s.e.cfg.settleImmediate {
			err = s.e.loop.Submit(s.poll)
		} else {
			_, err = s.e.schedule(s.e.cfg.settleInterval, false, func(rt *goja.Runtime) {
				_ = s.step(rt)
			})
		}
		if err != nil {
			s.forget()
			s.future.complete(nil, errors.Join(ErrClosed, err))
		}
	}

	return nil
}

// forget must be called with the lock held.
func (s *settlement) forget() {
	delete(s.e.settling, s.promise)
	delete(s.e.pending, s.future)
}
