package gojabridge

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const asyncScript = `
	function later() { return new Promise(function (resolve) { resolve(42); }); }
	function delayed(v, ms) { return new Promise(function (resolve) { setTimeout(function () { resolve(v); }, ms); }); }
	async function chained(n) {
		var total = 0;
		for (var i = 0; i < n; i++) {
			total += await delayed(i, 1);
		}
		return total;
	}
	async function fail() { throw new Error('nope'); }
	function rejectWith(v) { return Promise.reject(v); }
	function thenable() { return {then: function (resolve) { resolve(7); }}; }
	function badThenable() { return {then: function () { throw new Error('bad then'); }}; }
	function plain() { return 'plain'; }
	function throws() { throw new Error('sync failure'); }
	function function_result() { return Promise.resolve(function () {}); }
`

func TestContext_CallAsync(t *testing.T) {
	for _, tc := range [...]struct {
		name string
		opts []Option
	}{
		{name: "default"},
		{name: "timer polling", opts: []Option{WithSettlePolling(0, time.Millisecond)}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEngine(t, tc.opts...)
			c := compile(t, e, asyncScript)

			v, err := waitFor(t, c.CallAsync("later"))
			require.NoError(t, err)
			assert.Equal(t, int64(42), v)

			v, err = waitFor(t, c.CallAsync("delayed", "ok", 20))
			require.NoError(t, err)
			assert.Equal(t, "ok", v)

			v, err = waitFor(t, c.CallAsync("chained", 4))
			require.NoError(t, err)
			assert.Equal(t, int64(6), v)

			v, err = waitFor(t, c.CallAsync("thenable"))
			require.NoError(t, err)
			assert.Equal(t, int64(7), v)
		})
	}
}

func TestContext_CallAsync_rejected(t *testing.T) {
	e := newTestEngine(t)
	c := compile(t, e, asyncScript)

	_, err := waitFor(t, c.CallAsync("fail"))
	var runtimeErr *ScriptRuntimeError
	require.ErrorAs(t, err, &runtimeErr)
	assert.True(t, runtimeErr.Rejected)
	assert.Equal(t, "Error: nope", runtimeErr.Message)
	assert.Equal(t, KindScriptRuntime, KindOf(err))

	_, err = waitFor(t, c.CallAsync("rejectWith", "reason"))
	require.ErrorAs(t, err, &runtimeErr)
	assert.True(t, runtimeErr.Rejected)
	assert.Equal(t, "reason", runtimeErr.Message)
	assert.Empty(t, runtimeErr.Stack)

	_, err = waitFor(t, c.CallAsync("badThenable"))
	require.ErrorAs(t, err, &runtimeErr)
	assert.True(t, runtimeErr.Rejected)
	assert.Contains(t, runtimeErr.Message, "bad then")

	_, err = waitFor(t, c.CallAsync("throws"))
	require.ErrorAs(t, err, &runtimeErr)
	assert.False(t, runtimeErr.Rejected)
	assert.Contains(t, runtimeErr.Message, "sync failure")

	_, err = waitFor(t, c.CallAsync("function_result"))
	assert.Equal(t, KindUnsupportedConversion, KindOf(err))

	_, err = waitFor(t, c.CallAsync("missing"))
	assert.Equal(t, KindNameNotFound, KindOf(err))
}

func TestContext_CallAsync_nonPromise(t *testing.T) {
	e := newTestEngine(t)
	c := compile(t, e, asyncScript)

	f := c.CallAsync("plain")
	select {
	case <-f.Done():
	default:
		t.Fatal("expected the future to be complete")
	}
	v, done, err := f.Result()
	assert.True(t, done)
	assert.NoError(t, err)
	assert.Nil(t, v)

	e = newTestEngine(t, WithNonPromiseAsyncResults())
	c = compile(t, e, asyncScript)
	v, err = waitFor(t, c.CallAsync("plain"))
	require.NoError(t, err)
	assert.Equal(t, "plain", v)
}

func TestContext_CallAsync_concurrent(t *testing.T) {
	e := newTestEngine(t)
	c := compile(t, e, asyncScript)

	const n = 32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			want := fmt.Sprint("value-", i)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			v, err := c.CallAsync("delayed", want, i%5).Wait(ctx)
			assert.NoError(t, err)
			assert.Equal(t, want, v)
		}()
	}
	wg.Wait()
}

func TestFuture(t *testing.T) {
	f := newFuture()

	_, done, _ := f.Result()
	assert.False(t, done)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := f.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	f.complete("first", nil)
	f.complete("second", ErrClosed)

	v, err := f.Wait(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "first", v)

	v, done, err = f.Result()
	assert.True(t, done)
	assert.NoError(t, err)
	assert.Equal(t, "first", v)
}
