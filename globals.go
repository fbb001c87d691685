package gojabridge

import (
	"errors"
	"time"

	"github.com/dop251/goja"
	"github.com/joeycumines/logiface"
)

// timer is a timeout or interval scheduled on the worker. Callbacks run
// under the engine lock, and only while the timer is registered.
type timer struct {
	e        *Engine
	fn       func(rt *goja.Runtime)
	id       uint64
	handle   uint64
	interval bool
}

// schedule registers fn to run on the worker after delay, repeating if
// interval is true. Must be called with the lock held.
func (e *Engine) schedule(delay time.Duration, interval bool, fn func(rt *goja.Runtime)) (*timer, error) {
	delayMs := int(delay / time.Millisecond)
	e.nextTimer++
	t := &timer{e: e, fn: fn, id: e.nextTimer, interval: interval}
	var err error
	if interval {
		t.handle, err = e.js.SetInterval(t.fire, delayMs)
	} else {
		t.handle, err = e.js.SetTimeout(t.fire, delayMs)
	}
	if err != nil {
		return nil, err
	}
	e.timers[t.id] = t
	return t, nil
}

// cancel unregisters the timer with the given id, if any. Must be called
// with the lock held.
func (e *Engine) cancel(id uint64) {
	if t, ok := e.timers[id]; ok {
		delete(e.timers, id)
		t.stop()
	}
}

func (t *timer) fire() {
	err := t.e.exclusive(func(rt *goja.Runtime) error {
		if t.e.timers[t.id] != t {
			return nil
		}
		if !t.interval {
			delete(t.e.timers, t.id)
		}
		t.fn(rt)
		return nil
	})
	if err != nil && !errors.Is(err, ErrClosed) {
		t.e.logger.Err().Err(err).Log("timer callback failed")
	}
}

func (t *timer) stop() {
	if t.interval {
		_ = t.e.js.ClearInterval(t.handle)
	} else {
		_ = t.e.js.ClearTimeout(t.handle)
	}
}

// queueMicrotaskSource wraps callbacks so exceptions are reported rather
// than rejecting the promise used to queue them.
const queueMicrotaskSource = `(function (report) {
	return function queueMicrotask(callback) {
		if (typeof callback !== 'function') {
			throw new TypeError('queueMicrotask requires a function as first argument');
		}
		Promise.resolve().then(function () {
			try {
				callback();
			} catch (e) {
				report(e);
			}
		});
	};
})`

func (e *Engine) bindGlobals(rt *goja.Runtime) error {
	if !e.cfg.withoutTimers {
		for name, fn := range map[string]func(goja.FunctionCall) goja.Value{
			"setTimeout":    e.setTimeout,
			"clearTimeout":  e.clearTimer,
			"setInterval":   e.setInterval,
			"clearInterval": e.clearTimer,
		} {
			if err := rt.Set(name, fn); err != nil {
				return err
			}
		}
	}

	factory, err := rt.RunString(queueMicrotaskSource)
	if err != nil {
		return err
	}
	newQueueMicrotask, _ := goja.AssertFunction(factory)
	queueMicrotask, err := newQueueMicrotask(goja.Undefined(), rt.ToValue(func(call goja.FunctionCall) goja.Value {
		e.logger.Err().
			Str("error", describe(rt, call.Argument(0))).
			Log("uncaught exception in microtask")
		return goja.Undefined()
	}))
	if err != nil {
		return err
	}
	return rt.Set("queueMicrotask", queueMicrotask)
}

func (e *Engine) setTimeout(call goja.FunctionCall) goja.Value {
	return e.setTimer(call, "setTimeout", false)
}

func (e *Engine) setInterval(call goja.FunctionCall) goja.Value {
	return e.setTimer(call, "setInterval", true)
}

func (e *Engine) setTimer(call goja.FunctionCall, name string, interval bool) goja.Value {
	fn, ok := goja.AssertFunction(call.Argument(0))
	if !ok {
		panic(e.rt.NewTypeError(name + " requires a function as first argument"))
	}

	delayMs := call.Argument(1).ToInteger()
	if delayMs < 0 {
		panic(e.rt.NewTypeError("delay cannot be negative"))
	}

	var args []goja.Value
	if len(call.Arguments) > 2 {
		args = append(args, call.Arguments[2:]...)
	}

	t, err := e.schedule(time.Duration(delayMs)*time.Millisecond, interval, func(rt *goja.Runtime) {
		if _, err := fn(goja.Undefined(), args...); err != nil {
			e.logger.Err().
				Str("timer", name).
				Err(e.scriptError(rt, err)).
				Log("uncaught exception in timer callback")
		}
	})
	if err != nil {
		panic(e.rt.NewGoError(err))
	}

	return e.rt.ToValue(t.id)
}

// clearTimer is both clearTimeout and clearInterval, silently ignoring
// unknown ids.
func (e *Engine) clearTimer(call goja.FunctionCall) goja.Value {
	if id := call.Argument(0).ToInteger(); id > 0 {
		e.cancel(uint64(id))
	}
	return goja.Undefined()
}

// consolePrinter writes console output to the engine logger.
type consolePrinter struct {
	logger *logiface.Logger[logiface.Event]
}

func (x consolePrinter) Log(s string) {
	x.logger.Info().Str("source", "console").Log(s)
}

func (x consolePrinter) Warn(s string) {
	x.logger.Warning().Str("source", "console").Log(s)
}

func (x consolePrinter) Error(s string) {
	x.logger.Err().Str("source", "console").Log(s)
}
