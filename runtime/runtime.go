package runtime

import (
	"context"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	luaruntime "github.com/wippyai/lua-runtime"
	"github.com/wippyai/lua-runtime/bridge"
	"github.com/wippyai/lua-runtime/codec"
	"github.com/wippyai/lua-runtime/engine"
	"github.com/wippyai/lua-runtime/errors"
)

// pendingQueueSize bounds in-flight cross-goroutine completions; a
// producer blocks once the owner falls this far behind.
const pendingQueueSize = 128

// Options configures a Runtime.
type Options struct {
	// Engine controls stdlib selection, state sizing and output
	// buffering. The zero value opens the full Lua stdlib with an
	// unlimited output buffer.
	Engine engine.Options

	// Sink, when set, observes every print line as it happens.
	Sink luaruntime.Sink

	// Logger replaces the package logger for this instance.
	Logger *zap.Logger
}

// Runtime ties an engine to its bridge state. All methods except those
// on Pending must run on the owning goroutine.
type Runtime struct {
	eng     *engine.Engine
	reg     *bridge.Registrar
	pending chan func(*lua.LState) error
	log     *zap.Logger
	closed  bool
}

// New creates a runtime with its own Lua state.
func New(opts Options) (*Runtime, error) {
	eopts := opts.Engine
	if opts.Sink != nil {
		eopts.Sink = opts.Sink
	}
	eng, err := engine.New(eopts)
	if err != nil {
		return nil, err
	}

	log := opts.Logger
	if log == nil {
		log = engine.Logger()
	}
	return &Runtime{
		eng:     eng,
		reg:     bridge.NewRegistrar(eng.State()),
		pending: make(chan func(*lua.LState) error, pendingQueueSize),
		log:     log,
	}, nil
}

// Register publishes a host type's constructor as a global.
func (r *Runtime) Register(def *bridge.TypeDef) error {
	if r.closed {
		return errors.NotInitialized(errors.PhaseRegister, "runtime")
	}
	r.log.Debug("registering type", zap.String("type", def.Name()))
	return r.reg.Register(def, nil)
}

// RegisterIn publishes a host type's constructor inside a namespace
// table, creating the namespace global when absent.
func (r *Runtime) RegisterIn(namespace string, def *bridge.TypeDef) error {
	if r.closed {
		return errors.NotInitialized(errors.PhaseRegister, "runtime")
	}
	ns, err := r.Namespace(namespace)
	if err != nil {
		return err
	}
	return r.reg.Register(def, ns)
}

// RegisterFunction publishes a host closure of arity 0-3 as a global.
func (r *Runtime) RegisterFunction(name string, fn any) error {
	if r.closed {
		return errors.NotInitialized(errors.PhaseRegister, "runtime")
	}
	return r.reg.RegisterFunction(name, fn)
}

// NewCallable registers a host closure and returns the script value
// without binding a name, for placement in tables or as arguments.
func (r *Runtime) NewCallable(fn any) (lua.LValue, error) {
	return r.reg.NewCallable(fn)
}

// Wrap hands an existing host object to script as a typed handle.
func (r *Runtime) Wrap(typeName string, obj any) (lua.LValue, error) {
	return r.reg.Wrap(typeName, obj)
}

// Namespace returns the named global table, creating it when absent.
// An existing non-table global under that name is an error.
func (r *Runtime) Namespace(name string) (*lua.LTable, error) {
	L := r.eng.State()
	switch cur := L.GetGlobal(name).(type) {
	case *lua.LTable:
		return cur, nil
	case *lua.LNilType:
		ns := L.NewTable()
		L.SetGlobal(name, ns)
		return ns, nil
	default:
		return nil, errors.New(errors.PhaseRegister, errors.KindInvalidInput).
			Detail("global %q is already a %s", name, codec.TypeName(cur)).
			Build()
	}
}

// Execute applies queued pending completions, runs source and returns
// everything the script printed during the call.
func (r *Runtime) Execute(ctx context.Context, source string) (string, error) {
	if r.closed {
		return "", errors.NotInitialized(errors.PhaseRun, "runtime")
	}
	if err := r.Drain(ctx); err != nil {
		return r.eng.Output().Take(), err
	}
	err := r.eng.Do(ctx, source)
	return r.eng.Output().Take(), err
}

// Eval runs source and returns its first return value, leaving printed
// output buffered for a later Execute or Output().Take().
func (r *Runtime) Eval(ctx context.Context, source string) (lua.LValue, error) {
	if r.closed {
		return lua.LNil, errors.NotInitialized(errors.PhaseRun, "runtime")
	}
	if err := r.Drain(ctx); err != nil {
		return lua.LNil, err
	}
	return r.eng.Eval(ctx, source)
}

// EvalInto runs source and decodes its first return value into out,
// which must be a non-nil pointer.
func (r *Runtime) EvalInto(ctx context.Context, source string, out any) error {
	lv, err := r.Eval(ctx, source)
	if err != nil {
		return err
	}
	if !codec.DecodeInto(r.eng.State(), lv, out) {
		return errors.New(errors.PhaseDecode, errors.KindTypeMismatch).
			LuaType(codec.TypeName(lv)).
			Detail("script result not convertible to target type").
			Build()
	}
	return nil
}

// SetGlobal encodes v into a script global.
func (r *Runtime) SetGlobal(name string, v any) {
	r.eng.SetGlobal(name, v)
}

// Global returns the raw value of a script global.
func (r *Runtime) Global(name string) lua.LValue {
	return r.eng.Global(name)
}

// GlobalInto decodes a script global into out.
func (r *Runtime) GlobalInto(name string, out any) error {
	return r.eng.GlobalInto(name, out)
}

// Output exposes the print capture buffer.
func (r *Runtime) Output() *engine.OutputBuffer {
	return r.eng.Output()
}

// Converters exposes the named converter registry.
func (r *Runtime) Converters() *codec.Registry {
	return r.eng.Converters()
}

// State exposes the underlying Lua state for advanced integrations.
func (r *Runtime) State() *lua.LState {
	return r.eng.State()
}

// Drain applies every queued pending completion on the calling
// (owning) goroutine. It returns the first completion error but keeps
// draining so a failed callback cannot wedge the queue.
func (r *Runtime) Drain(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var first error
	for {
		select {
		case fn := <-r.pending:
			if err := fn(r.eng.State()); err != nil {
				r.log.Debug("pending completion failed", zap.Error(err))
				if first == nil {
					first = err
				}
			}
		case <-ctx.Done():
			return ctx.Err()
		default:
			return first
		}
	}
}

// Close tears down bridge state and the Lua state. Live handles are
// released; queued pending completions are discarded.
func (r *Runtime) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return multierr.Append(r.reg.Close(), r.eng.Close())
}
