// Package gojabridge embeds a [goja] JavaScript runtime behind a handle that
// may be shared by any number of goroutines.
//
// An [Engine] owns one runtime, guarded by an exclusive lock, plus a
// dedicated worker goroutine (a [go-eventloop] loop) that runs timers and
// settles promises. Scripts and module files are compiled into a [Context],
// which snapshots their bindings, and exposes them to the host:
//
//	engine, err := gojabridge.New()
//	if err != nil {
//	    return err
//	}
//	defer engine.Close()
//
//	ctx, err := engine.CompileScript(`
//	    function add(a, b) { return a + b; }
//	    async function later(v) { return v; }
//	`)
//	if err != nil {
//	    return err
//	}
//	defer ctx.Close()
//
//	sum, err := ctx.Call("add", 2, 3) // int64(5)
//	v, err := ctx.CallAsync("later", "x").Wait(context.Background()) // "x"
//
// Values cross the boundary as described by the [convert] package. Numbers
// with no fractional part become int64, byte slices become ArrayBuffer
// instances, and so on.
//
// # Host globals
//
// Each runtime is given setTimeout, clearTimeout, setInterval,
// clearInterval, queueMicrotask, console (written to the configured
// logger), and require (Node-style, see the [resolve] package).
//
// # Errors
//
// Errors are typed by kind, see [KindOf]. A failed call never affects the
// engine, or any other context.
//
// [goja]: https://github.com/dop251/goja
// [go-eventloop]: https://github.com/joeycumines/go-eventloop
package gojabridge
