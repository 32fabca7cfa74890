package bridge

import (
	"reflect"
	"strconv"

	lua "github.com/yuin/gopher-lua"

	"github.com/wippyai/lua-runtime/codec"
	"github.com/wippyai/lua-runtime/errors"
)

// colRef is the userdata payload for a collection proxy. It holds the
// owner's handle reference, never a copy of the slice: every read goes
// back through the getter so the proxy always reflects live host state.
type colRef struct {
	ref *objRef
	p   *propEntry
}

// newProxy wraps one collection property of a live instance.
func (r *Registrar) newProxy(L *lua.LState, ref *objRef, p *propEntry) lua.LValue {
	ud := L.NewUserData()
	ud.Value = &colRef{ref: ref, p: p}
	L.SetMetatable(ud, r.colMT)
	return ud
}

// buildCollectionMeta creates the shared proxy metatable and its
// method set.
func (r *Registrar) buildCollectionMeta() *lua.LTable {
	L := r.L
	r.colMethods = map[string]*lua.LFunction{
		"len":      L.NewFunction(r.colLen),
		"snapshot": L.NewFunction(r.colSnapshot),
		"append":   L.NewFunction(r.colAppend),
		"ipairs":   L.NewFunction(r.colIpairs),
	}

	mt := L.NewTable()
	mt.RawSetString("__len", L.NewFunction(r.colLen))
	mt.RawSetString("__index", L.NewFunction(r.colIndex))
	mt.RawSetString("__newindex", L.NewFunction(r.colNewIndex))
	mt.RawSetString("__tostring", L.NewFunction(func(L *lua.LState) int {
		c, _ := r.proxyAt(L, 1)
		L.Push(lua.LString(c.ref.t.name + "." + c.p.name))
		return 1
	}))
	return mt
}

// proxyAt resolves the proxy at stack index idx and its live owner.
// A released owner raises: the proxy does not outlive its object.
func (r *Registrar) proxyAt(L *lua.LState, idx int) (*colRef, any) {
	ud, ok := L.Get(idx).(*lua.LUserData)
	if !ok {
		errors.Raise(L, errors.InvalidReceiver("collection", "receiver is not a collection proxy"))
		return nil, nil
	}
	c, ok := ud.Value.(*colRef)
	if !ok {
		errors.Raise(L, errors.InvalidReceiver("collection", "receiver is not a collection proxy"))
		return nil, nil
	}
	obj, ok := r.arena.GetTyped(c.ref.h, c.ref.t.typeID)
	if !ok {
		errors.Raise(L, errors.InvalidReceiver(c.ref.t.name, "owner handle has been released"))
		return nil, nil
	}
	return c, obj
}

// current fetches the live backing slice through the getter.
func (c *colRef) current(obj any) reflect.Value {
	return c.p.get.Call([]reflect.Value{reflect.ValueOf(obj)})[0]
}

func (c *colRef) path() []string {
	return []string{c.ref.t.name, c.p.name}
}

// intIndex accepts only integral numeric indexes.
func intIndex(n lua.LNumber) (int, bool) {
	f := float64(n)
	i := int(f)
	if float64(i) != f {
		return 0, false
	}
	return i, true
}

// colIndex serves both numeric element reads and the proxy method set.
// Reads outside [1, len] yield nil, mirroring table access.
func (r *Registrar) colIndex(L *lua.LState) int {
	c, obj := r.proxyAt(L, 1)
	switch key := L.Get(2).(type) {
	case lua.LNumber:
		idx, ok := intIndex(key)
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		s := c.current(obj)
		if idx < 1 || idx > s.Len() {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(codec.Encode(L, s.Index(idx-1).Interface()))
		return 1
	case lua.LString:
		if fn := r.colMethods[string(key)]; fn != nil {
			L.Push(fn)
			return 1
		}
		L.Push(lua.LNil)
		return 1
	default:
		L.Push(lua.LNil)
		return 1
	}
}

// colNewIndex writes one element. Valid targets are [1, len+1], with
// len+1 meaning append. The veto hook sees the whole proposed array,
// not just the element.
func (r *Registrar) colNewIndex(L *lua.LState) int {
	c, obj := r.proxyAt(L, 1)

	num, ok := L.Get(2).(lua.LNumber)
	if !ok {
		errors.Raise(L, errors.New(errors.PhaseMutate, errors.KindInvalidInput).
			Path(c.path()...).Detail("collection index must be an integer, got %s", codec.TypeName(L.Get(2))).Build())
		return 0
	}
	idx, ok := intIndex(num)
	if !ok {
		errors.Raise(L, errors.New(errors.PhaseMutate, errors.KindInvalidInput).
			Path(c.path()...).Detail("collection index must be an integer, got %v", float64(num)).Build())
		return 0
	}

	r.colWrite(L, c, obj, idx, L.Get(3))
	return 0
}

// colWrite is the single commit path for indexed writes and append.
func (r *Registrar) colWrite(L *lua.LState, c *colRef, obj any, idx int, lv lua.LValue) {
	cur := c.current(obj)
	n := cur.Len()
	if idx < 1 || idx > n+1 {
		errors.Raise(L, errors.OutOfBounds(errors.PhaseMutate, c.path(), idx, n))
		return
	}

	v, ok := codec.Decode(L, lv, c.p.col.elem)
	if !ok {
		errors.Raise(L, errors.TypeMismatch(errors.PhaseDecode,
			append(c.path(), "["+strconv.Itoa(idx)+"]"),
			codec.GoTypeName(c.p.col.elem), codec.TypeName(lv)))
		return
	}

	proposed := reflect.MakeSlice(c.p.col.slice, n, n+1)
	reflect.Copy(proposed, cur)
	if idx == n+1 {
		proposed = reflect.Append(proposed, v)
	} else {
		proposed.Index(idx - 1).Set(v)
	}

	old := cur.Interface()
	next := proposed.Interface()
	if err := c.ref.t.willChange(obj, c.p.name, old, next); err != nil {
		errors.Raise(L, errors.ValidationRejected(c.p.name, err.Error()))
		return
	}
	c.p.set.Call([]reflect.Value{reflect.ValueOf(obj), proposed})
	c.ref.t.didChange(obj, c.p.name, old, next)
}

func (r *Registrar) colLen(L *lua.LState) int {
	c, obj := r.proxyAt(L, 1)
	L.Push(lua.LNumber(c.current(obj).Len()))
	return 1
}

// colSnapshot copies the current elements into a plain table,
// detached from the live collection.
func (r *Registrar) colSnapshot(L *lua.LState) int {
	c, obj := r.proxyAt(L, 1)
	s := c.current(obj)
	tbl := L.NewTable()
	for i := 0; i < s.Len(); i++ {
		tbl.Append(codec.Encode(L, s.Index(i).Interface()))
	}
	L.Push(tbl)
	return 1
}

func (r *Registrar) colAppend(L *lua.LState) int {
	c, obj := r.proxyAt(L, 1)
	r.colWrite(L, c, obj, c.current(obj).Len()+1, L.Get(2))
	return 0
}

// colIpairs returns a stateful iterator for the generic for loop:
//
//	for i, v in list:ipairs() do ... end
//
// The length is fixed when iteration starts; each step reads the
// element live, so concurrent mutation of surviving indexes is visible
// and a shrunken collection yields nil values past its new end.
func (r *Registrar) colIpairs(L *lua.LState) int {
	c, obj := r.proxyAt(L, 1)
	n := c.current(obj).Len()
	i := 0

	iter := L.NewFunction(func(L *lua.LState) int {
		i++
		if i > n {
			L.Push(lua.LNil)
			return 1
		}
		obj, ok := r.arena.GetTyped(c.ref.h, c.ref.t.typeID)
		if !ok {
			errors.Raise(L, errors.InvalidReceiver(c.ref.t.name, "owner handle released during iteration"))
			return 0
		}
		s := c.current(obj)
		L.Push(lua.LNumber(i))
		if i <= s.Len() {
			L.Push(codec.Encode(L, s.Index(i-1).Interface()))
		} else {
			L.Push(lua.LNil)
		}
		return 2
	})
	L.Push(iter)
	return 1
}
