package bridge

import (
	"reflect"
	"strconv"

	lua "github.com/yuin/gopher-lua"

	"github.com/wippyai/lua-runtime/codec"
	"github.com/wippyai/lua-runtime/errors"
	"github.com/wippyai/lua-runtime/handle"
)

// boundType is the per-type dispatch table built at registration.
type boundType struct {
	reg      *Registrar
	name     string
	typeID   uint32
	recvType reflect.Type
	ctor     reflect.Value
	ctorIn   []reflect.Type
	ctorErr  bool
	props    map[string]*propEntry
	methods  map[string]*lua.LFunction
	validate ValidateFunc
	notify   NotifyFunc
	mt       *lua.LTable
	release  *lua.LFunction
}

type propEntry struct {
	name string
	get  reflect.Value
	set  reflect.Value // zero Value for read-only properties
	typ  reflect.Type
	col  *colEntry
}

type colEntry struct {
	elem  reflect.Type
	slice reflect.Type
}

// objRef is the userdata payload for a bridged instance: an arena
// handle plus its dispatch table. No Go pointer crosses the boundary.
type objRef struct {
	h handle.Handle
	t *boundType
}

// install builds the instance metatable and the callable constructor
// table, then publishes the constructor under the type name.
func (t *boundType) install(L *lua.LState, into *lua.LTable) {
	t.mt = L.NewTypeMetatable(t.name)
	t.mt.RawSetString("__index", L.NewFunction(t.index))
	t.mt.RawSetString("__newindex", L.NewFunction(t.newIndex))
	t.mt.RawSetString("__tostring", L.NewFunction(t.toString))
	t.release = L.NewFunction(t.releaseSelf)

	ctor := L.NewTable()
	ctorMT := L.NewTable()
	ctorMT.RawSetString("__call", L.NewFunction(t.construct))
	L.SetMetatable(ctor, ctorMT)

	if into != nil {
		into.RawSetString(t.name, ctor)
		return
	}
	L.SetGlobal(t.name, ctor)
}

// wrap allocates a handle for obj and returns the instance userdata.
func (t *boundType) wrap(L *lua.LState, obj any) *lua.LUserData {
	ud := L.NewUserData()
	ud.Value = &objRef{h: t.reg.arena.Insert(t.typeID, obj), t: t}
	L.SetMetatable(ud, t.mt)
	return ud
}

// construct handles the constructor __call. The constructor table
// itself sits at stack index 1; script arguments start at 2. A missing
// required argument surfaces as a positional type mismatch against nil.
func (t *boundType) construct(L *lua.LState) int {
	if !t.ctor.IsValid() {
		errors.Raise(L, errors.NotFound(errors.PhaseCall, "constructor for", t.name))
		return 0
	}
	in := make([]reflect.Value, len(t.ctorIn))
	for i, pt := range t.ctorIn {
		lv := L.Get(i + 2)
		v, ok := codec.Decode(L, lv, pt)
		if !ok {
			errors.Raise(L, errors.TypeMismatch(errors.PhaseDecode,
				[]string{t.name, "arg" + strconv.Itoa(i+1)},
				codec.GoTypeName(pt), codec.TypeName(lv)))
			return 0
		}
		in[i] = v
	}

	outs := t.ctor.Call(in)
	if t.ctorErr && !outs[1].IsNil() {
		errors.Raise(L, errors.Runtime(t.name+" constructor failed", outs[1].Interface().(error)))
		return 0
	}
	L.Push(t.wrap(L, outs[0].Interface()))
	return 1
}

// index handles property reads, method lookup and the built-in
// release. Undeclared names read as nil; the engine itself raises when
// script then calls that nil as a method.
func (t *boundType) index(L *lua.LState) int {
	recv, ref := t.receiver(L, 1)
	key, ok := L.Get(2).(lua.LString)
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	name := string(key)

	if p := t.props[name]; p != nil {
		if p.col != nil {
			L.Push(t.reg.newProxy(L, ref, p))
			return 1
		}
		out := p.get.Call([]reflect.Value{reflect.ValueOf(recv)})[0]
		L.Push(codec.Encode(L, out.Interface()))
		return 1
	}
	if m := t.methods[name]; m != nil {
		L.Push(m)
		return 1
	}
	if name == "release" {
		L.Push(t.release)
		return 1
	}
	L.Push(lua.LNil)
	return 1
}

// newIndex handles property writes: decode, veto hook, commit, notify.
func (t *boundType) newIndex(L *lua.LState) int {
	recv, _ := t.receiver(L, 1)
	key, ok := L.Get(2).(lua.LString)
	if !ok {
		errors.Raise(L, errors.InvalidInput(errors.PhaseMutate, "property name must be a string"))
		return 0
	}
	name := string(key)

	p := t.props[name]
	if p == nil {
		errors.Raise(L, errors.NotFound(errors.PhaseMutate, "property", name))
		return 0
	}
	if !p.set.IsValid() {
		errors.Raise(L, errors.New(errors.PhaseMutate, errors.KindInvalidInput).
			Property(name).Detail("property is read-only").Build())
		return 0
	}

	lv := L.Get(3)
	v, ok2 := codec.Decode(L, lv, p.typ)
	if !ok2 {
		errors.Raise(L, errors.TypeMismatch(errors.PhaseDecode,
			[]string{t.name, name},
			codec.GoTypeName(p.typ), codec.TypeName(lv)))
		return 0
	}

	rv := reflect.ValueOf(recv)
	old := p.get.Call([]reflect.Value{rv})[0].Interface()
	if err := t.willChange(recv, name, old, v.Interface()); err != nil {
		errors.Raise(L, errors.ValidationRejected(name, err.Error()))
		return 0
	}
	p.set.Call([]reflect.Value{rv, v})
	t.didChange(recv, name, old, v.Interface())
	return 0
}

func (t *boundType) toString(L *lua.LState) int {
	ud, ok := L.Get(1).(*lua.LUserData)
	if !ok {
		L.Push(lua.LString(t.name))
		return 1
	}
	ref, ok := ud.Value.(*objRef)
	if !ok {
		L.Push(lua.LString(t.name))
		return 1
	}
	L.Push(lua.LString(t.name + "#" + strconv.FormatUint(uint64(ref.h), 16)))
	return 1
}

// releaseSelf is the script-visible obj:release(). Releasing twice, or
// a handle already torn down, is a no-op.
func (t *boundType) releaseSelf(L *lua.LState) int {
	if ud, ok := L.Get(1).(*lua.LUserData); ok {
		if ref, ok := ud.Value.(*objRef); ok {
			t.reg.arena.Release(ref.h)
		}
	}
	return 0
}

// receiver resolves the instance at stack index idx, raising an
// invalid-receiver error for foreign userdata, wrong types and stale
// handles. It returns the live host object and its reference.
func (t *boundType) receiver(L *lua.LState, idx int) (any, *objRef) {
	lv := L.Get(idx)
	ud, ok := lv.(*lua.LUserData)
	if !ok {
		errors.Raise(L, errors.InvalidReceiver(t.name, "receiver is "+codec.TypeName(lv)+", not a host object"))
		return nil, nil
	}
	ref, ok := ud.Value.(*objRef)
	if !ok || ref.t != t {
		errors.Raise(L, errors.InvalidReceiver(t.name, "receiver is not a "+t.name))
		return nil, nil
	}
	obj, ok := t.reg.arena.GetTyped(ref.h, t.typeID)
	if !ok {
		errors.Raise(L, errors.InvalidReceiver(t.name, "handle has been released"))
		return nil, nil
	}
	return obj, ref
}

// methodThunk builds the dispatch closure for one method. Arity is
// checked strictly, then each argument is decoded positionally.
func (t *boundType) methodThunk(name string, fn reflect.Value, params []reflect.Type, ret reflect.Type, hasErr bool) lua.LGFunction {
	return func(L *lua.LState) int {
		recv, _ := t.receiver(L, 1)
		got := L.GetTop() - 1
		if got != len(params) {
			errors.Raise(L, errors.ArgumentCount(len(params), got))
			return 0
		}

		in := make([]reflect.Value, len(params)+1)
		in[0] = reflect.ValueOf(recv)
		for i, pt := range params {
			lv := L.Get(i + 2)
			v, ok := codec.Decode(L, lv, pt)
			if !ok {
				errors.Raise(L, errors.TypeMismatch(errors.PhaseDecode,
					[]string{t.name, name, "arg" + strconv.Itoa(i+1)},
					codec.GoTypeName(pt), codec.TypeName(lv)))
				return 0
			}
			in[i+1] = v
		}

		outs := fn.Call(in)
		if hasErr && !outs[len(outs)-1].IsNil() {
			errors.Raise(L, errors.Runtime(t.name+":"+name+" failed", outs[len(outs)-1].Interface().(error)))
			return 0
		}
		if ret != nil {
			L.Push(codec.Encode(L, outs[0].Interface()))
			return 1
		}
		return 0
	}
}
