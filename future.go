package gojabridge

import (
	"context"
	"sync"
)

// Future is the eventual result of [Context.CallAsync]. It completes exactly
// once.
type Future struct {
	done  chan struct{}
	value any
	err   error
	once  sync.Once
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Done returns a channel that is closed once the future has completed.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the future completes, or ctx is done. Cancelling ctx
// stops the wait only, the call continues in the engine.
func (f *Future) Wait(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result returns the outcome without blocking. The bool is false while the
// future is pending.
func (f *Future) Result() (any, bool, error) {
	select {
	case <-f.done:
		return f.value, true, f.err
	default:
		return nil, false, nil
	}
}

func (f *Future) complete(value any, err error) {
	f.once.Do(func() {
		f.value, f.err = value, err
		close(f.done)
	})
}
