package runtime

import (
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"

	"github.com/wippyai/lua-runtime/codec"
	"github.com/wippyai/lua-runtime/errors"
)

// Pending is a completion token for work finished off the owning
// goroutine. Resolve and Reject may be called from any goroutine; the
// script callback itself always runs on the owner during Drain or the
// next Execute. The first completion wins, later ones are no-ops.
type Pending struct {
	rt   *Runtime
	cb   *lua.LFunction
	done uint32
}

// NewPending wraps a script callback for later completion. The
// callback is invoked as callback(value, err) in Lua convention: a
// resolved value with nil error, or nil with the rejection message.
func (r *Runtime) NewPending(callback lua.LValue) (*Pending, error) {
	fn, ok := callback.(*lua.LFunction)
	if !ok {
		return nil, errors.InvalidCallable("pending callback must be a function, got " + codec.TypeName(callback))
	}
	return &Pending{rt: r, cb: fn}, nil
}

// Resolve queues a successful completion. Safe from any goroutine.
func (p *Pending) Resolve(v any) {
	if !atomic.CompareAndSwapUint32(&p.done, 0, 1) {
		return
	}
	p.rt.pending <- func(L *lua.LState) error {
		return p.invoke(L, codec.Encode(L, v), lua.LNil)
	}
}

// Reject queues a failed completion. Safe from any goroutine.
func (p *Pending) Reject(err error) {
	if !atomic.CompareAndSwapUint32(&p.done, 0, 1) {
		return
	}
	msg := "rejected"
	if err != nil {
		msg = err.Error()
	}
	p.rt.pending <- func(L *lua.LState) error {
		return p.invoke(L, lua.LNil, lua.LString(msg))
	}
}

func (p *Pending) invoke(L *lua.LState, val, errv lua.LValue) error {
	err := L.CallByParam(lua.P{Fn: p.cb, NRet: 0, Protect: true}, val, errv)
	if err != nil {
		return errors.FromLua(err)
	}
	return nil
}
