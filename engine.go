package gojabridge

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/console"
	"github.com/dop251/goja_nodejs/require"
	"github.com/joeycumines/go-eventloop"
	"github.com/joeycumines/goja-bridge/convert"
	"github.com/joeycumines/logiface"
)

// Engine owns a single goja runtime, and the worker goroutine that drives
// its timers and promise settlement.
//
// Every access to the runtime is serialized by an exclusive lock. An Engine
// is safe for concurrent use, and is torn down once it and every [Context]
// compiled from it have been closed.
type Engine struct {
	// guarded by mu
	rt             *goja.Runtime
	modules        *require.RequireModule
	noop           goja.Callable
	promiseResolve goja.Callable
	timers         map[uint64]*timer
	pending        map[*Future]struct{}
	settling       map[*goja.Promise]struct{}
	unhandled      []*goja.Promise
	nextTimer      uint64
	dead           bool

	cfg      *config
	logger   *logiface.Logger[logiface.Event]
	loop     *eventloop.Loop
	js       *eventloop.JS
	stopLoop context.CancelFunc
	runDone  chan struct{}

	mu       sync.Mutex
	owner    atomic.Uint64
	loopGID  atomic.Uint64
	refs     atomic.Int64
	released atomic.Bool
}

// New starts a new [Engine], with an empty global scope plus the host
// globals: setTimeout, clearTimeout, setInterval, clearInterval,
// queueMicrotask, console and require.
func New(opts ...Option) (*Engine, error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	loop, err := eventloop.New()
	if err != nil {
		return nil, err
	}
	js, err := eventloop.NewJS(loop)
	if err != nil {
		_ = loop.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		cfg:      cfg,
		logger:   cfg.logger,
		loop:     loop,
		js:       js,
		stopLoop: cancel,
		runDone:  make(chan struct{}),
		timers:   make(map[uint64]*timer),
		pending:  make(map[*Future]struct{}),
		settling: make(map[*goja.Promise]struct{}),
	}
	e.refs.Store(1)

	if err := loop.Submit(func() { e.loopGID.Store(goroutineID()) }); err != nil {
		cancel()
		_ = loop.Close()
		return nil, err
	}
	go e.run(ctx)

	if err := e.init(); err != nil {
		e.shutdown()
		return nil, err
	}

	e.logger.Info().Log("engine started")
	return e, nil
}

func (e *Engine) run(ctx context.Context) {
	defer close(e.runDone)
	if err := e.loop.Run(ctx); err != nil &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, eventloop.ErrLoopTerminated) {
		e.logger.Err().Err(err).Log("event loop failed")
	}
}

func (e *Engine) init() (err error) {
	e.mu.Lock()
	e.owner.Store(goroutineID())
	defer func() {
		e.owner.Store(0)
		e.mu.Unlock()
	}()

	rt := goja.New()

	registry := require.NewRegistry(
		require.WithLoader(e.cfg.resolver.SourceLoader()),
		require.WithGlobalFolders(e.cfg.resolver.GlobalFolders()...),
	)
	if !e.cfg.withoutConsole {
		registry.RegisterNativeModule(console.ModuleName, console.RequireWithPrinter(consolePrinter{logger: e.logger}))
	}
	modules := registry.Enable(rt)
	if !e.cfg.withoutConsole {
		console.Enable(rt)
	}

	rt.SetPromiseRejectionTracker(e.trackRejection)

	noop, err := rt.RunString(`(function () {})`)
	if err != nil {
		return err
	}
	e.noop, _ = goja.AssertFunction(noop)
	promiseResolve, err := rt.RunString(`Promise.resolve.bind(Promise)`)
	if err != nil {
		return err
	}
	e.promiseResolve, _ = goja.AssertFunction(promiseResolve)
	e.rt = rt
	e.modules = modules

	if err := e.bindGlobals(rt); err != nil {
		return err
	}

	for _, fn := range e.cfg.runtimeSetup {
		if err := fn(rt); err != nil {
			return err
		}
	}

	return nil
}

// Eval runs src as a script, returning the converted value of its last
// expression statement.
func (e *Engine) Eval(src string) (any, error) {
	return e.EvalNamed("", src)
}

// EvalNamed is [Engine.Eval] with a script name, used in stack traces.
func (e *Engine) EvalNamed(name, src string) (result any, err error) {
	prg, err := compileScript(name, src)
	if err != nil {
		return nil, err
	}
	err = e.do(func(rt *goja.Runtime) error {
		v, err := rt.RunProgram(prg)
		if err != nil {
			return e.scriptError(rt, err)
		}
		result, err = e.toHost(rt, v)
		return err
	})
	return result, err
}

// Do calls fn with exclusive access to the runtime, e.g. to bind native
// values. The runtime must not be retained beyond fn.
//
// Errors returned by fn are returned as-is.
func (e *Engine) Do(fn func(rt *goja.Runtime) error) error {
	return e.do(fn)
}

// Submit schedules fn to be called on the worker goroutine, with exclusive
// access to the runtime. Pending promise jobs are run after fn returns.
//
// This is the way to settle promises from other goroutines. Unlike the other
// methods of [Engine], Submit remains usable after [Engine.Close], for as
// long as any [Context] keeps the engine alive.
func (e *Engine) Submit(fn func(rt *goja.Runtime)) error {
	if fn == nil {
		return errors.New("gojabridge: submit: nil function")
	}
	if e.refs.Load() <= 0 {
		return ErrClosed
	}
	err := e.loop.Submit(func() {
		if err := e.exclusive(func(rt *goja.Runtime) error {
			fn(rt)
			e.checkpoint()
			return nil
		}); err != nil && !errors.Is(err, ErrClosed) {
			e.logger.Err().Err(err).Log("submitted task failed")
		}
	})
	if errors.Is(err, eventloop.ErrLoopTerminated) {
		return ErrClosed
	}
	return err
}

// Close releases the engine's own reference. Once every [Context] is also
// closed, the runtime is discarded, and the worker stopped.
func (e *Engine) Close() error {
	if !e.released.CompareAndSwap(false, true) {
		return ErrClosed
	}
	e.release()
	return nil
}

// do is exclusive, for the operations that need the engine's own reference.
func (e *Engine) do(fn func(rt *goja.Runtime) error) error {
	if e.released.Load() {
		return ErrClosed
	}
	return e.exclusive(fn)
}

// exclusive calls fn while holding the engine lock. Unhandled promise
// rejections are reported before the lock is released.
func (e *Engine) exclusive(fn func(rt *goja.Runtime) error) error {
	gid := goroutineID()
	if e.owner.Load() == gid {
		return ErrReentrant
	}

	e.mu.Lock()
	e.owner.Store(gid)
	defer func() {
		e.owner.Store(0)
		e.mu.Unlock()
	}()

	if e.dead {
		return ErrClosed
	}

	defer e.reportRejections()

	return fn(e.rt)
}

// locked calls fn while holding the engine lock, which may already be held
// by the current goroutine.
func (e *Engine) locked(fn func()) {
	if e.owner.Load() == goroutineID() {
		fn()
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	fn()
}

// checkpoint runs any pending promise jobs. goja runs its job queue when
// control returns from the outermost call into the runtime.
func (e *Engine) checkpoint() {
	_, _ = e.noop(goja.Undefined())
}

func (e *Engine) acquire() bool {
	for {
		n := e.refs.Load()
		if n <= 0 {
			return false
		}
		if e.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

func (e *Engine) release() {
	if e.refs.Add(-1) != 0 {
		return
	}
	// the worker, or a goroutine holding the lock, cannot wait for the worker
	if gid := goroutineID(); gid == e.loopGID.Load() || gid == e.owner.Load() {
		go e.shutdown()
		return
	}
	e.shutdown()
}

func (e *Engine) shutdown() {
	var (
		timers  map[uint64]*timer
		pending map[*Future]struct{}
	)
	e.mu.Lock()
	if e.dead {
		e.mu.Unlock()
		return
	}
	e.dead = true
	timers, e.timers = e.timers, nil
	pending, e.pending = e.pending, nil
	e.settling = nil
	e.unhandled = nil
	e.rt = nil
	e.modules = nil
	e.noop = nil
	e.promiseResolve = nil
	e.mu.Unlock()

	for _, t := range timers {
		t.stop()
	}
	for f := range pending {
		f.complete(nil, ErrClosed)
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.shutdownTimeout)
	defer cancel()
	err := e.loop.Shutdown(ctx)
	e.stopLoop()
	if err != nil && !errors.Is(err, eventloop.ErrLoopTerminated) {
		e.logger.Warning().Err(err).Log("event loop did not shut down cleanly")
		_ = e.loop.Close()
	}
	select {
	case <-e.runDone:
	case <-ctx.Done():
		e.logger.Warning().Log("timed out waiting for event loop")
	}

	e.logger.Info().Log("engine stopped")
}

// toHost converts v, reporting exceptions thrown during conversion (e.g. by
// getters) as script errors.
func (e *Engine) toHost(rt *goja.Runtime, v goja.Value) (any, error) {
	result, err := convert.ToHost(rt, v)
	if err != nil {
		var ex *goja.Exception
		if errors.As(err, &ex) {
			return nil, e.scriptError(rt, ex)
		}
		return nil, err
	}
	return result, nil
}

func (e *Engine) toEngine(rt *goja.Runtime, args []any) ([]goja.Value, error) {
	values := make([]goja.Value, len(args))
	for i, arg := range args {
		v, err := convert.ToEngine(rt, arg)
		if err != nil {
			var ex *goja.Exception
			if errors.As(err, &ex) {
				return nil, e.scriptError(rt, ex)
			}
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}
