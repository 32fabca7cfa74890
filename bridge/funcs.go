package bridge

import (
	"reflect"
	"strconv"

	lua "github.com/yuin/gopher-lua"

	"github.com/wippyai/lua-runtime/codec"
	"github.com/wippyai/lua-runtime/errors"
)

// closureSlot holds one registered host closure. Script code only ever
// sees the integer id; the Go closure never crosses the boundary.
type closureSlot struct {
	id     uint64
	fn     reflect.Value
	params []reflect.Type
	ret    reflect.Type
	hasErr bool
	call   func(r *Registrar, s *closureSlot, L *lua.LState) int
}

// funcRef is the userdata payload for a bridged callable.
type funcRef struct {
	id uint64
}

// arityDispatch maps each supported arity to its own trampoline. The
// paths are kept separate so every fixed call signature has a direct
// decode sequence instead of one generic loop.
var arityDispatch = [maxArity + 1]func(*Registrar, *closureSlot, *lua.LState) int{
	invoke0, invoke1, invoke2, invoke3,
}

// NewCallable registers a host closure of arity 0-3 and returns the
// script-side callable. The closure may return nothing, one value, an
// error, or a value plus error.
func (r *Registrar) NewCallable(fn any) (lua.LValue, error) {
	fv := reflect.ValueOf(fn)
	ft := fv.Type()
	if ft.Kind() != reflect.Func {
		return lua.LNil, errors.InvalidInput(errors.PhaseRegister, "callable must be a function")
	}
	if ft.IsVariadic() {
		return lua.LNil, errors.InvalidInput(errors.PhaseRegister, "callable cannot be variadic")
	}
	if ft.NumIn() > maxArity {
		return lua.LNil, errors.Unsupported(errors.PhaseRegister,
			"callable arity "+strconv.Itoa(ft.NumIn())+" exceeds "+strconv.Itoa(maxArity))
	}
	ret, hasErr, err := resultShape(ft)
	if err != nil {
		return lua.LNil, errors.Wrap(errors.PhaseRegister, errors.KindInvalidInput, err, "callable")
	}

	r.nextSlotID++
	s := &closureSlot{
		id:     r.nextSlotID,
		fn:     fv,
		params: make([]reflect.Type, ft.NumIn()),
		ret:    ret,
		hasErr: hasErr,
	}
	for i := range s.params {
		s.params[i] = ft.In(i)
	}
	s.call = arityDispatch[len(s.params)]
	r.slots[s.id] = s

	ud := r.L.NewUserData()
	ud.Value = &funcRef{id: s.id}
	r.L.SetMetatable(ud, r.funcMT)
	return ud, nil
}

// RegisterFunction registers fn under a global name.
func (r *Registrar) RegisterFunction(name string, fn any) error {
	if name == "" {
		return errors.InvalidInput(errors.PhaseRegister, "function name cannot be empty")
	}
	lv, err := r.NewCallable(fn)
	if err != nil {
		return errors.Registration(name, err)
	}
	r.L.SetGlobal(name, lv)
	return nil
}

// buildCallableMeta creates the shared metatable for bridged callables.
func (r *Registrar) buildCallableMeta() *lua.LTable {
	mt := r.L.NewTable()
	mt.RawSetString("__call", r.L.NewFunction(r.callSlot))
	mt.RawSetString("__index", r.L.NewFunction(r.callableIndex))
	mt.RawSetString("__tostring", r.L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString("hostfunction"))
		return 1
	}))
	return mt
}

// callSlot is the __call entry point: resolve the slot id, then hand
// off to the arity-specific trampoline.
func (r *Registrar) callSlot(L *lua.LState) int {
	ud, ok := L.Get(1).(*lua.LUserData)
	if !ok {
		errors.Raise(L, errors.InvalidCallable("value is not a host function"))
		return 0
	}
	ref, ok := ud.Value.(*funcRef)
	if !ok {
		errors.Raise(L, errors.InvalidCallable("value is not a host function"))
		return 0
	}
	s, ok := r.slots[ref.id]
	if !ok {
		errors.Raise(L, errors.InvalidCallable("host function has been released"))
		return 0
	}
	return s.call(r, s, L)
}

// callableIndex exposes the release method on callables; everything
// else reads as nil.
func (r *Registrar) callableIndex(L *lua.LState) int {
	if key, ok := L.Get(2).(lua.LString); ok && string(key) == "release" {
		L.Push(L.NewFunction(r.releaseSlot))
		return 1
	}
	L.Push(lua.LNil)
	return 1
}

// releaseSlot frees a callable's slot. Releasing twice is a no-op;
// calling after release raises through callSlot.
func (r *Registrar) releaseSlot(L *lua.LState) int {
	if ud, ok := L.Get(1).(*lua.LUserData); ok {
		if ref, ok := ud.Value.(*funcRef); ok {
			delete(r.slots, ref.id)
		}
	}
	return 0
}

func invoke0(r *Registrar, s *closureSlot, L *lua.LState) int {
	if got := L.GetTop() - 1; got != 0 {
		errors.Raise(L, errors.ArgumentCount(0, got))
		return 0
	}
	return s.finish(L, s.fn.Call(nil))
}

func invoke1(r *Registrar, s *closureSlot, L *lua.LState) int {
	if got := L.GetTop() - 1; got != 1 {
		errors.Raise(L, errors.ArgumentCount(1, got))
		return 0
	}
	a0, ok := s.arg(L, 0)
	if !ok {
		return 0
	}
	return s.finish(L, s.fn.Call([]reflect.Value{a0}))
}

func invoke2(r *Registrar, s *closureSlot, L *lua.LState) int {
	if got := L.GetTop() - 1; got != 2 {
		errors.Raise(L, errors.ArgumentCount(2, got))
		return 0
	}
	a0, ok := s.arg(L, 0)
	if !ok {
		return 0
	}
	a1, ok := s.arg(L, 1)
	if !ok {
		return 0
	}
	return s.finish(L, s.fn.Call([]reflect.Value{a0, a1}))
}

func invoke3(r *Registrar, s *closureSlot, L *lua.LState) int {
	if got := L.GetTop() - 1; got != 3 {
		errors.Raise(L, errors.ArgumentCount(3, got))
		return 0
	}
	a0, ok := s.arg(L, 0)
	if !ok {
		return 0
	}
	a1, ok := s.arg(L, 1)
	if !ok {
		return 0
	}
	a2, ok := s.arg(L, 2)
	if !ok {
		return 0
	}
	return s.finish(L, s.fn.Call([]reflect.Value{a0, a1, a2}))
}

// arg decodes positional argument i (0-based; script argument i+1).
func (s *closureSlot) arg(L *lua.LState, i int) (reflect.Value, bool) {
	lv := L.Get(i + 2)
	v, ok := codec.Decode(L, lv, s.params[i])
	if !ok {
		errors.Raise(L, errors.TypeMismatch(errors.PhaseDecode,
			[]string{"arg" + strconv.Itoa(i+1)},
			codec.GoTypeName(s.params[i]), codec.TypeName(lv)))
		return reflect.Value{}, false
	}
	return v, true
}

// finish maps the closure's Go results onto the script stack.
func (s *closureSlot) finish(L *lua.LState, outs []reflect.Value) int {
	if s.hasErr && !outs[len(outs)-1].IsNil() {
		errors.Raise(L, errors.Wrap(errors.PhaseCall, errors.KindRuntime,
			outs[len(outs)-1].Interface().(error), "host function failed"))
		return 0
	}
	if s.ret != nil {
		L.Push(codec.Encode(L, outs[0].Interface()))
		return 1
	}
	return 0
}
