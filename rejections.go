package gojabridge

import (
	"slices"

	"github.com/dop251/goja"
)

// trackRejection is the runtime's promise rejection tracker. Must be called
// with the lock held.
func (e *Engine) trackRejection(p *goja.Promise, op goja.PromiseRejectionOperation) {
	switch op {
	case goja.PromiseRejectionReject:
		e.unhandled = append(e.unhandled, p)
	case goja.PromiseRejectionHandle:
		if i := slices.Index(e.unhandled, p); i >= 0 {
			e.unhandled = slices.Delete(e.unhandled, i, i+1)
		}
	}
}

// reportRejections logs promises rejected without a handler, except those
// being settled by [Context.CallAsync]. Warnings are rate limited per
// reason. Must be called with the lock held.
func (e *Engine) reportRejections() {
	if len(e.unhandled) == 0 {
		return
	}
	unhandled := e.unhandled
	e.unhandled = nil
	for _, p := range unhandled {
		if _, ok := e.settling[p]; ok {
			continue
		}
		if p.State() != goja.PromiseStateRejected {
			continue
		}
		reason := describe(e.rt, p.Result())
		if _, ok := e.cfg.rejectionLimiter.Allow(reason); !ok {
			continue
		}
		e.logger.Warning().
			Str("reason", reason).
			Log("unhandled promise rejection")
	}
}
