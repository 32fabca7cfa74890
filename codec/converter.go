package codec

import (
	"net/url"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/wippyai/lua-runtime/errors"
)

// Converter is a named custom conversion applied explicitly at call
// sites that opted into it. Both directions report convertibility
// rather than raising.
type Converter struct {
	Encode func(L *lua.LState, v any) (lua.LValue, bool)
	Decode func(lv lua.LValue) (any, bool)
}

// Registry holds named converters. Each runtime owns one; the zero
// value is unusable, construct with NewRegistry.
type Registry struct {
	converters map[string]Converter
}

// NewRegistry creates a registry preloaded with the built-in
// "datetime" and "url" converters.
func NewRegistry() *Registry {
	r := &Registry{converters: make(map[string]Converter)}
	r.converters["datetime"] = Converter{Encode: encodeDatetime, Decode: decodeDatetime}
	r.converters["url"] = Converter{Encode: encodeURL, Decode: decodeURL}
	return r
}

// Register adds a named converter. Re-registering a name is a
// registration error so call sites keep a single meaning per name.
func (r *Registry) Register(name string, c Converter) error {
	if name == "" {
		return errors.InvalidInput(errors.PhaseRegister, "converter name cannot be empty")
	}
	if c.Encode == nil || c.Decode == nil {
		return errors.InvalidInput(errors.PhaseRegister, "converter must provide both directions")
	}
	if _, exists := r.converters[name]; exists {
		return errors.Registration(name, errors.InvalidInput(errors.PhaseRegister, "converter already registered"))
	}
	r.converters[name] = c
	return nil
}

// Lookup returns the converter registered under name.
func (r *Registry) Lookup(name string) (Converter, bool) {
	c, ok := r.converters[name]
	return c, ok
}

func encodeDatetime(L *lua.LState, v any) (lua.LValue, bool) {
	t, ok := v.(time.Time)
	if !ok {
		if tp, isPtr := v.(*time.Time); isPtr && tp != nil {
			t, ok = *tp, true
		}
	}
	if !ok {
		return lua.LNil, false
	}
	return lua.LString(t.Format(time.RFC3339Nano)), true
}

func decodeDatetime(lv lua.LValue) (any, bool) {
	s, ok := lv.(lua.LString)
	if !ok {
		return nil, false
	}
	t, err := time.Parse(time.RFC3339Nano, string(s))
	if err != nil {
		return nil, false
	}
	return t, true
}

func encodeURL(L *lua.LState, v any) (lua.LValue, bool) {
	u, ok := v.(*url.URL)
	if !ok || u == nil {
		return lua.LNil, false
	}
	return lua.LString(u.String()), true
}

func decodeURL(lv lua.LValue) (any, bool) {
	s, ok := lv.(lua.LString)
	if !ok {
		return nil, false
	}
	u, err := url.Parse(string(s))
	if err != nil {
		return nil, false
	}
	return u, true
}
