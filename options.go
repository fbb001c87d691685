package gojabridge

import (
	"errors"
	"fmt"
	"time"

	"github.com/dop251/goja"
	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/goja-bridge/resolve"
	"github.com/joeycumines/logiface"
)

const (
	defaultSettleImmediate = 64
	defaultSettleInterval  = time.Millisecond
	defaultShutdownTimeout = 5 * time.Second
)

// Option configures an [Engine]. Options are immutable value types that
// validate on construction.
type Option interface {
	apply(*config) error
}

type config struct {
	logger            *logiface.Logger[logiface.Event]
	resolver          *resolve.Resolver
	globalFolders     []string
	rejectionLimiter  *catrate.Limiter
	runtimeSetup      []func(rt *goja.Runtime) error
	settleImmediate   int
	settleInterval    time.Duration
	shutdownTimeout   time.Duration
	nonPromiseResults bool
	withoutTimers     bool
	withoutConsole    bool
}

func resolveOptions(opts []Option) (*config, error) {
	cfg := &config{
		settleImmediate:  defaultSettleImmediate,
		settleInterval:   defaultSettleInterval,
		shutdownTimeout:  defaultShutdownTimeout,
		rejectionLimiter: catrate.NewLimiter(map[time.Duration]int{
			time.Second: 1,
			time.Minute: 10,
		}),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.apply(cfg); err != nil {
			return nil, fmt.Errorf("gojabridge: %w", err)
		}
	}
	if cfg.resolver == nil {
		r, err := resolve.New(resolve.WithGlobalFolders(cfg.globalFolders...))
		if err != nil {
			return nil, fmt.Errorf("gojabridge: %w", err)
		}
		cfg.resolver = r
	} else if len(cfg.globalFolders) != 0 {
		return nil, errors.New("gojabridge: global folders must be configured on the resolver")
	}
	return cfg, nil
}

// WithLogger sets the logger. A nil logger disables logging, which is the
// default.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return withLogger{logger: logger}
}

type withLogger struct {
	logger *logiface.Logger[logiface.Event]
}

func (o withLogger) apply(cfg *config) error {
	cfg.logger = o.logger
	return nil
}

// WithResolver sets the module resolver used by require and
// [Engine.CompileModuleFile]. Defaults to a [resolve.Resolver] reading the
// OS filesystem.
func WithResolver(r *resolve.Resolver) Option {
	return withResolver{r: r}
}

type withResolver struct {
	r *resolve.Resolver
}

func (o withResolver) apply(cfg *config) error {
	if o.r == nil {
		return errors.New("resolver must not be nil")
	}
	cfg.resolver = o.r
	return nil
}

// WithGlobalFolders adds folders searched for packages, after node_modules.
// It cannot be combined with [WithResolver].
func WithGlobalFolders(folders ...string) Option {
	return withGlobalFolders(folders)
}

type withGlobalFolders []string

func (o withGlobalFolders) apply(cfg *config) error {
	cfg.globalFolders = append(cfg.globalFolders, o...)
	return nil
}

// WithSettlePolling configures how a pending promise is polled by
// [Context.CallAsync]. The first immediate polls are resubmitted to the
// worker directly, after which polls are spaced by interval.
func WithSettlePolling(immediate int, interval time.Duration) Option {
	return withSettlePolling{immediate: immediate, interval: interval}
}

type withSettlePolling struct {
	immediate int
	interval  time.Duration
}

func (o withSettlePolling) apply(cfg *config) error {
	if o.immediate < 0 {
		return errors.New("settle polling immediate count must not be negative")
	}
	if o.interval < time.Millisecond {
		return errors.New("settle polling interval must be at least 1ms")
	}
	cfg.settleImmediate = o.immediate
	cfg.settleInterval = o.interval
	return nil
}

// WithNonPromiseAsyncResults makes [Context.CallAsync] resolve with the
// converted result when the function returns a value that is not a promise.
// By default such calls resolve with nil.
func WithNonPromiseAsyncResults() Option {
	return withNonPromiseAsyncResults{}
}

type withNonPromiseAsyncResults struct{}

func (withNonPromiseAsyncResults) apply(cfg *config) error {
	cfg.nonPromiseResults = true
	return nil
}

// WithRejectionLogRates sets the rates at which unhandled promise rejections
// are logged, per distinct reason, see [catrate.NewLimiter]. An empty map
// logs every rejection.
//
// [catrate.NewLimiter]: https://pkg.go.dev/github.com/joeycumines/go-catrate#NewLimiter
func WithRejectionLogRates(rates map[time.Duration]int) Option {
	return withRejectionLogRates(rates)
}

type withRejectionLogRates map[time.Duration]int

func (o withRejectionLogRates) apply(cfg *config) (err error) {
	if len(o) == 0 {
		cfg.rejectionLimiter = nil
		return nil
	}
	rates := make(map[time.Duration]int, len(o))
	for d, n := range o {
		rates[d] = n
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("invalid rejection log rates: %v", r)
		}
	}()
	cfg.rejectionLimiter = catrate.NewLimiter(rates)
	return nil
}

// WithShutdownTimeout bounds how long teardown waits for the worker to drain.
func WithShutdownTimeout(d time.Duration) Option {
	return withShutdownTimeout(d)
}

type withShutdownTimeout time.Duration

func (o withShutdownTimeout) apply(cfg *config) error {
	if o <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	cfg.shutdownTimeout = time.Duration(o)
	return nil
}

// WithoutTimers omits setTimeout, clearTimeout, setInterval and
// clearInterval from the global object.
func WithoutTimers() Option {
	return withoutTimers{}
}

type withoutTimers struct{}

func (withoutTimers) apply(cfg *config) error {
	cfg.withoutTimers = true
	return nil
}

// WithoutConsole omits the console global.
func WithoutConsole() Option {
	return withoutConsole{}
}

type withoutConsole struct{}

func (withoutConsole) apply(cfg *config) error {
	cfg.withoutConsole = true
	return nil
}

// WithRuntimeSetup registers fn to be called with the runtime during [New],
// after the globals are bound. It may be given more than once.
func WithRuntimeSetup(fn func(rt *goja.Runtime) error) Option {
	return withRuntimeSetup{fn: fn}
}

type withRuntimeSetup struct {
	fn func(rt *goja.Runtime) error
}

func (o withRuntimeSetup) apply(cfg *config) error {
	if o.fn == nil {
		return errors.New("runtime setup must not be nil")
	}
	cfg.runtimeSetup = append(cfg.runtimeSetup, o.fn)
	return nil
}
