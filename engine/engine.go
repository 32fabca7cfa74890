package engine

import (
	"context"
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	luaruntime "github.com/wippyai/lua-runtime"
	"github.com/wippyai/lua-runtime/codec"
	"github.com/wippyai/lua-runtime/errors"
)

// Lib names a Lua standard library that can be opened selectively.
type Lib string

const (
	LibBase      Lib = "base"
	LibTable     Lib = "table"
	LibString    Lib = "string"
	LibMath      Lib = "math"
	LibOS        Lib = "os"
	LibIO        Lib = "io"
	LibCoroutine Lib = "coroutine"
	LibDebug     Lib = "debug"
)

var libOpeners = map[Lib]lua.LGFunction{
	LibBase:      lua.OpenBase,
	LibTable:     lua.OpenTable,
	LibString:    lua.OpenString,
	LibMath:      lua.OpenMath,
	LibOS:        lua.OpenOs,
	LibIO:        lua.OpenIo,
	LibCoroutine: lua.OpenCoroutine,
	LibDebug:     lua.OpenDebug,
}

// Options configures engine creation.
type Options struct {
	// SkipOpenLibs suppresses the full stdlib; Libs then lists what to
	// open instead (base, table, string, math by default).
	SkipOpenLibs bool
	Libs         []Lib

	// Buffer governs retained print output between reads.
	Buffer BufferPolicy

	// Sink, when set, additionally receives every print line as it
	// happens, independent of the buffer policy.
	Sink luaruntime.Sink

	// RegistrySize and CallStackSize are passed to the Lua state when
	// positive.
	RegistrySize  int
	CallStackSize int
}

// Engine wraps one lua.LState together with its output buffer and the
// converter registry shared by all bridges on top of it.
type Engine struct {
	state *lua.LState
	out   *OutputBuffer
	sink  luaruntime.Sink
	conv  *codec.Registry
	log   *zap.Logger
}

// New creates an engine. Engine creation failure is fatal to the
// runtime instance and reported as an allocation error.
func New(opts Options) (eng *Engine, err error) {
	defer func() {
		if r := recover(); r != nil {
			eng = nil
			err = errors.AllocationFailed("create lua state", fmt.Errorf("%v", r))
		}
	}()

	lopts := lua.Options{SkipOpenLibs: opts.SkipOpenLibs}
	if opts.RegistrySize > 0 {
		lopts.RegistrySize = opts.RegistrySize
	}
	if opts.CallStackSize > 0 {
		lopts.CallStackSize = opts.CallStackSize
	}

	L := lua.NewState(lopts)
	if L == nil {
		return nil, errors.AllocationFailed("create lua state", nil)
	}

	if opts.SkipOpenLibs {
		libs := opts.Libs
		if libs == nil {
			libs = []Lib{LibBase, LibTable, LibString, LibMath}
		}
		for _, lib := range libs {
			opener, ok := libOpeners[lib]
			if !ok {
				L.Close()
				return nil, errors.InvalidInput(errors.PhaseLoad, fmt.Sprintf("unknown stdlib %q", lib))
			}
			opener(L)
		}
	}

	e := &Engine{
		state: L,
		out:   NewOutputBuffer(opts.Buffer),
		sink:  opts.Sink,
		conv:  codec.NewRegistry(),
		log:   Logger(),
	}
	e.installPrint()
	return e, nil
}

// State returns the underlying Lua state for bridge installation.
func (e *Engine) State() *lua.LState {
	return e.state
}

// Converters returns the engine's named converter registry.
func (e *Engine) Converters() *codec.Registry {
	return e.conv
}

// Output returns the print capture buffer.
func (e *Engine) Output() *OutputBuffer {
	return e.out
}

// Do compiles and runs a script chunk, discarding return values.
func (e *Engine) Do(ctx context.Context, source string) error {
	_, err := e.Eval(ctx, source)
	return err
}

// Eval compiles and runs a script chunk and returns the chunk's first
// return value (LNil when the chunk returns nothing). Errors are
// classified: parse failures carry the source line, runtime failures
// the script message, and raised bridge errors keep their taxonomy.
func (e *Engine) Eval(ctx context.Context, source string) (lua.LValue, error) {
	L := e.state

	fn, err := L.LoadString(source)
	if err != nil {
		serr := errors.FromLua(err)
		e.log.Debug("script parse failed", zap.Int("line", serr.Line), zap.String("detail", serr.Detail))
		return lua.LNil, serr
	}

	if ctx != nil {
		L.SetContext(ctx)
		defer L.RemoveContext()
	}

	base := L.GetTop()
	L.Push(fn)
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		L.SetTop(base)
		rerr := errors.FromLua(err)
		e.log.Debug("script execution failed", zap.String("kind", string(rerr.Kind)), zap.String("detail", rerr.Detail))
		return lua.LNil, rerr
	}

	ret := lua.LValue(lua.LNil)
	if L.GetTop() > base {
		ret = L.Get(base + 1)
	}
	L.SetTop(base)
	return ret, nil
}

// SetGlobal encodes v and stores it in the script global table.
func (e *Engine) SetGlobal(name string, v any) {
	e.state.SetGlobal(name, codec.Encode(e.state, v))
}

// Global returns the raw value of a script global.
func (e *Engine) Global(name string) lua.LValue {
	return e.state.GetGlobal(name)
}

// GlobalInto decodes a script global into out, which must be a
// non-nil pointer.
func (e *Engine) GlobalInto(name string, out any) error {
	lv := e.state.GetGlobal(name)
	if !codec.DecodeInto(e.state, lv, out) {
		return errors.New(errors.PhaseDecode, errors.KindTypeMismatch).
			Path("global", name).
			LuaType(codec.TypeName(lv)).
			Detail("global not convertible to target type").
			Build()
	}
	return nil
}

// Close releases the Lua state. Safe to call once.
func (e *Engine) Close() error {
	e.state.Close()
	return nil
}

// installPrint replaces the print global so each script print lands in
// the output buffer (and optional sink) instead of process stdout.
func (e *Engine) installPrint() {
	e.state.SetGlobal("print", e.state.NewFunction(func(L *lua.LState) int {
		top := L.GetTop()
		parts := make([]string, top)
		for i := 1; i <= top; i++ {
			parts[i-1] = L.ToStringMeta(L.Get(i)).String()
		}
		line := strings.Join(parts, "\t")
		if err := e.out.Push(line); err != nil {
			errors.Raise(L, &errors.Error{
				Phase:  errors.PhaseRun,
				Kind:   errors.KindAllocation,
				Detail: err.Error(),
			})
			return 0
		}
		if e.sink != nil {
			e.sink.Print(line)
		}
		return 0
	}))
}
