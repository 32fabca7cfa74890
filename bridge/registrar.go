package bridge

import (
	"fmt"
	"reflect"

	lua "github.com/yuin/gopher-lua"

	"github.com/wippyai/lua-runtime/errors"
	"github.com/wippyai/lua-runtime/handle"
)

const maxArity = 3

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Registrar owns all bridge state for one runtime: the host object
// arena, per-type dispatch tables and the closure slot registry. It is
// bound to one lua.LState and, like the state, must only be driven
// from the owning goroutine.
type Registrar struct {
	L          *lua.LState
	arena      *handle.Arena
	types      map[string]*boundType
	nextTypeID uint32
	slots      map[uint64]*closureSlot
	nextSlotID uint64
	funcMT     *lua.LTable
	colMT      *lua.LTable
	colMethods map[string]*lua.LFunction
}

// NewRegistrar creates bridge state on top of an existing Lua state.
func NewRegistrar(L *lua.LState) *Registrar {
	r := &Registrar{
		L:     L,
		arena: handle.NewArena(),
		types: make(map[string]*boundType),
		slots: make(map[uint64]*closureSlot),
	}
	r.funcMT = r.buildCallableMeta()
	r.colMT = r.buildCollectionMeta()
	return r
}

// Arena exposes the host object arena for host-side inspection.
func (r *Registrar) Arena() *handle.Arena {
	return r.arena
}

// SlotCount returns the number of live closure slots.
func (r *Registrar) SlotCount() int {
	return len(r.slots)
}

// Register builds the dispatch table for def and installs its
// constructor. into selects the table the constructor lands in; nil
// means the global table.
func (r *Registrar) Register(def *TypeDef, into *lua.LTable) error {
	if def.name == "" {
		return errors.InvalidInput(errors.PhaseRegister, "type name cannot be empty")
	}
	if _, exists := r.types[def.name]; exists {
		return errors.Registration(def.name, errors.InvalidInput(errors.PhaseRegister, "type already registered"))
	}

	r.nextTypeID++
	t := &boundType{
		reg:      r,
		name:     def.name,
		typeID:   r.nextTypeID,
		props:    make(map[string]*propEntry),
		methods:  make(map[string]*lua.LFunction),
		validate: def.validate,
		notify:   def.notify,
	}

	if err := r.bindConstructor(t, def); err != nil {
		return errors.Registration(def.name, err)
	}
	if err := r.bindProperties(t, def); err != nil {
		return errors.Registration(def.name, err)
	}
	if err := r.bindMethods(t, def); err != nil {
		return errors.Registration(def.name, err)
	}
	if t.recvType == nil {
		return errors.Registration(def.name, errors.InvalidInput(errors.PhaseRegister, "type declares no members"))
	}

	t.install(r.L, into)
	r.types[def.name] = t
	return nil
}

// Wrap inserts an existing host object into the arena and returns a
// script handle for it. Multiple handles to one object all observe the
// same host-side state.
func (r *Registrar) Wrap(typeName string, obj any) (lua.LValue, error) {
	t, ok := r.types[typeName]
	if !ok {
		return lua.LNil, errors.NotFound(errors.PhaseRegister, "type", typeName)
	}
	if obj == nil {
		return lua.LNil, errors.InvalidInput(errors.PhaseRegister, "cannot wrap nil object")
	}
	if rt := reflect.TypeOf(obj); !rt.AssignableTo(t.recvType) {
		return lua.LNil, errors.New(errors.PhaseRegister, errors.KindTypeMismatch).
			GoType(rt.String()).
			Detail("object is not a %s receiver (%s)", typeName, t.recvType).
			Build()
	}
	return t.wrap(r.L, obj), nil
}

// Close releases every closure slot and all live host objects.
func (r *Registrar) Close() error {
	for id := range r.slots {
		delete(r.slots, id)
	}
	return r.arena.Close()
}

func (r *Registrar) bindConstructor(t *boundType, def *TypeDef) error {
	if def.ctor == nil {
		return nil
	}
	fv := reflect.ValueOf(def.ctor)
	ft := fv.Type()
	if ft.Kind() != reflect.Func {
		return errors.InvalidInput(errors.PhaseRegister, "constructor must be a function")
	}
	if ft.IsVariadic() {
		return errors.InvalidInput(errors.PhaseRegister, "constructor cannot be variadic")
	}
	if ft.NumIn() > maxArity {
		return errors.Unsupported(errors.PhaseRegister, fmt.Sprintf("constructor arity %d exceeds %d", ft.NumIn(), maxArity))
	}
	switch ft.NumOut() {
	case 1:
	case 2:
		if ft.Out(1) != errorType {
			return errors.InvalidInput(errors.PhaseRegister, "constructor second result must be error")
		}
		t.ctorErr = true
	default:
		return errors.InvalidInput(errors.PhaseRegister, "constructor must return the instance (and an optional error)")
	}

	t.recvType = ft.Out(0)
	t.ctor = fv
	t.ctorIn = make([]reflect.Type, ft.NumIn())
	for i := range t.ctorIn {
		t.ctorIn[i] = ft.In(i)
	}
	return nil
}

func (r *Registrar) bindProperties(t *boundType, def *TypeDef) error {
	for _, np := range def.props {
		if _, dup := t.props[np.name]; dup {
			return errors.InvalidInput(errors.PhaseRegister, fmt.Sprintf("duplicate property %q", np.name))
		}
		getter, pt, err := r.checkGetter(t, np.name, np.prop.Get)
		if err != nil {
			return err
		}
		entry := &propEntry{name: np.name, get: getter, typ: pt}
		if np.prop.Set != nil {
			setter, err := r.checkSetter(t, np.name, np.prop.Set, pt)
			if err != nil {
				return err
			}
			entry.set = setter
		}
		t.props[np.name] = entry
	}

	for _, nc := range def.cols {
		if _, dup := t.props[nc.name]; dup {
			return errors.InvalidInput(errors.PhaseRegister, fmt.Sprintf("duplicate property %q", nc.name))
		}
		if nc.col.Get == nil || nc.col.Set == nil {
			return errors.InvalidInput(errors.PhaseRegister, fmt.Sprintf("collection %q needs both accessors", nc.name))
		}
		getter, st, err := r.checkGetter(t, nc.name, nc.col.Get)
		if err != nil {
			return err
		}
		if st.Kind() != reflect.Slice {
			return errors.InvalidInput(errors.PhaseRegister, fmt.Sprintf("collection %q getter must return a slice", nc.name))
		}
		setter, err := r.checkSetter(t, nc.name, nc.col.Set, st)
		if err != nil {
			return err
		}
		t.props[nc.name] = &propEntry{
			name: nc.name,
			get:  getter,
			set:  setter,
			typ:  st,
			col:  &colEntry{elem: st.Elem(), slice: st},
		}
	}
	return nil
}

func (r *Registrar) bindMethods(t *boundType, def *TypeDef) error {
	for _, nm := range def.methods {
		if _, dup := t.methods[nm.name]; dup {
			return errors.InvalidInput(errors.PhaseRegister, fmt.Sprintf("duplicate method %q", nm.name))
		}
		fv := reflect.ValueOf(nm.fn)
		ft := fv.Type()
		if ft.Kind() != reflect.Func || ft.NumIn() < 1 {
			return errors.InvalidInput(errors.PhaseRegister, fmt.Sprintf("method %q must be a function taking the receiver", nm.name))
		}
		if ft.IsVariadic() {
			return errors.InvalidInput(errors.PhaseRegister, fmt.Sprintf("method %q cannot be variadic", nm.name))
		}
		if err := r.noteReceiver(t, ft.In(0)); err != nil {
			return errors.Wrap(errors.PhaseRegister, errors.KindInvalidInput, err, fmt.Sprintf("method %q", nm.name))
		}
		nparams := ft.NumIn() - 1
		if nparams > maxArity {
			return errors.Unsupported(errors.PhaseRegister, fmt.Sprintf("method %q arity %d exceeds %d", nm.name, nparams, maxArity))
		}
		params := make([]reflect.Type, nparams)
		for i := range params {
			params[i] = ft.In(i + 1)
		}
		ret, hasErr, err := resultShape(ft)
		if err != nil {
			return errors.Wrap(errors.PhaseRegister, errors.KindInvalidInput, err, fmt.Sprintf("method %q", nm.name))
		}
		t.methods[nm.name] = r.L.NewFunction(t.methodThunk(nm.name, fv, params, ret, hasErr))
	}
	return nil
}

func (r *Registrar) checkGetter(t *boundType, name string, get any) (reflect.Value, reflect.Type, error) {
	if get == nil {
		return reflect.Value{}, nil, errors.InvalidInput(errors.PhaseRegister, fmt.Sprintf("property %q needs a getter", name))
	}
	fv := reflect.ValueOf(get)
	ft := fv.Type()
	if ft.Kind() != reflect.Func || ft.NumIn() != 1 || ft.NumOut() != 1 {
		return reflect.Value{}, nil, errors.InvalidInput(errors.PhaseRegister, fmt.Sprintf("property %q getter must be func(receiver) T", name))
	}
	if err := r.noteReceiver(t, ft.In(0)); err != nil {
		return reflect.Value{}, nil, errors.Wrap(errors.PhaseRegister, errors.KindInvalidInput, err, fmt.Sprintf("property %q", name))
	}
	return fv, ft.Out(0), nil
}

func (r *Registrar) checkSetter(t *boundType, name string, set any, pt reflect.Type) (reflect.Value, error) {
	fv := reflect.ValueOf(set)
	ft := fv.Type()
	if ft.Kind() != reflect.Func || ft.NumIn() != 2 || ft.NumOut() != 0 {
		return reflect.Value{}, errors.InvalidInput(errors.PhaseRegister, fmt.Sprintf("property %q setter must be func(receiver, T)", name))
	}
	if err := r.noteReceiver(t, ft.In(0)); err != nil {
		return reflect.Value{}, errors.Wrap(errors.PhaseRegister, errors.KindInvalidInput, err, fmt.Sprintf("property %q", name))
	}
	if ft.In(1) != pt {
		return reflect.Value{}, errors.InvalidInput(errors.PhaseRegister, fmt.Sprintf("property %q setter type %s does not match getter type %s", name, ft.In(1), pt))
	}
	return fv, nil
}

// noteReceiver records (or checks) the host receiver type shared by
// every accessor of the type.
func (r *Registrar) noteReceiver(t *boundType, rt reflect.Type) error {
	if t.recvType == nil {
		t.recvType = rt
		return nil
	}
	if t.recvType != rt {
		return fmt.Errorf("receiver type %s conflicts with %s", rt, t.recvType)
	}
	return nil
}

// resultShape validates the 0-2 results of a method or host function:
// nothing, one value, one error, or value plus error.
func resultShape(ft reflect.Type) (ret reflect.Type, hasErr bool, err error) {
	switch ft.NumOut() {
	case 0:
		return nil, false, nil
	case 1:
		if ft.Out(0) == errorType {
			return nil, true, nil
		}
		return ft.Out(0), false, nil
	case 2:
		if ft.Out(1) != errorType {
			return nil, false, fmt.Errorf("second result must be error, got %s", ft.Out(1))
		}
		return ft.Out(0), true, nil
	default:
		return nil, false, fmt.Errorf("at most one result plus an error is supported")
	}
}
