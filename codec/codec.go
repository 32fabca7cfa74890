package codec

import (
	"math"
	"reflect"

	lua "github.com/yuin/gopher-lua"
)

var (
	luaValueType = reflect.TypeOf((*lua.LValue)(nil)).Elem()
	anyType      = reflect.TypeOf((*any)(nil)).Elem()
	byteSliceTyp = reflect.TypeOf([]byte(nil))
)

// Encode converts a Go value to a Lua stack value. Host types with no
// Lua representation encode as LNil.
func Encode(L *lua.LState, v any) lua.LValue {
	if v == nil {
		return lua.LNil
	}
	if lv, ok := v.(lua.LValue); ok {
		return lv
	}
	return encodeValue(L, reflect.ValueOf(v))
}

func encodeValue(L *lua.LState, rv reflect.Value) lua.LValue {
	switch rv.Kind() {
	case reflect.Bool:
		return lua.LBool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return lua.LNumber(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return lua.LNumber(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return lua.LNumber(rv.Float())
	case reflect.String:
		return lua.LString(rv.String())
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return lua.LNil
		}
		return encodeValue(L, rv.Elem())
	case reflect.Slice:
		if rv.Type() == byteSliceTyp {
			return lua.LString(rv.Bytes())
		}
		fallthrough
	case reflect.Array:
		tbl := L.NewTable()
		for i := 0; i < rv.Len(); i++ {
			tbl.Append(encodeValue(L, rv.Index(i)))
		}
		return tbl
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return lua.LNil
		}
		tbl := L.NewTable()
		iter := rv.MapRange()
		for iter.Next() {
			tbl.RawSetString(iter.Key().String(), encodeValue(L, iter.Value()))
		}
		return tbl
	default:
		// structs, funcs, chans: no script representation
		return lua.LNil
	}
}

// Decode converts a Lua stack value into a value of type t.
// The second result is false when the value is not convertible; Decode
// never raises, so callers can produce positional mismatch errors.
func Decode(L *lua.LState, lv lua.LValue, t reflect.Type) (reflect.Value, bool) {
	if t == luaValueType {
		return reflect.ValueOf(lv), true
	}
	if t == anyType {
		v, ok := decodeAny(L, lv)
		if !ok {
			return reflect.Value{}, false
		}
		rv := reflect.New(anyType).Elem()
		if v != nil {
			rv.Set(reflect.ValueOf(v))
		}
		return rv, true
	}

	switch t.Kind() {
	case reflect.Ptr:
		// Optionals. Lua nil is absence at any nesting depth.
		if lv == lua.LNil {
			return reflect.Zero(t), true
		}
		inner, ok := Decode(L, lv, t.Elem())
		if !ok {
			return reflect.Value{}, false
		}
		p := reflect.New(t.Elem())
		p.Elem().Set(inner)
		return p, true

	case reflect.Bool:
		b, ok := lv.(lua.LBool)
		if !ok {
			return reflect.Value{}, false
		}
		return reflect.ValueOf(bool(b)).Convert(t), true

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, ok := integralNumber(lv)
		if !ok {
			return reflect.Value{}, false
		}
		rv := reflect.New(t).Elem()
		if rv.OverflowInt(int64(n)) {
			return reflect.Value{}, false
		}
		rv.SetInt(int64(n))
		return rv, true

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, ok := integralNumber(lv)
		if !ok || n < 0 {
			return reflect.Value{}, false
		}
		rv := reflect.New(t).Elem()
		if rv.OverflowUint(uint64(n)) {
			return reflect.Value{}, false
		}
		rv.SetUint(uint64(n))
		return rv, true

	case reflect.Float32, reflect.Float64:
		n, ok := lv.(lua.LNumber)
		if !ok {
			return reflect.Value{}, false
		}
		return reflect.ValueOf(float64(n)).Convert(t), true

	case reflect.String:
		s, ok := lv.(lua.LString)
		if !ok {
			return reflect.Value{}, false
		}
		return reflect.ValueOf(string(s)).Convert(t), true

	case reflect.Slice:
		if t == byteSliceTyp {
			s, ok := lv.(lua.LString)
			if !ok {
				return reflect.Value{}, false
			}
			return reflect.ValueOf([]byte(s)), true
		}
		tbl, ok := lv.(*lua.LTable)
		if !ok {
			return reflect.Value{}, false
		}
		n := tbl.Len()
		out := reflect.MakeSlice(t, n, n)
		for i := 1; i <= n; i++ {
			ev, ok := Decode(L, tbl.RawGetInt(i), t.Elem())
			if !ok {
				return reflect.Value{}, false
			}
			out.Index(i - 1).Set(ev)
		}
		return out, true

	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return reflect.Value{}, false
		}
		tbl, ok := lv.(*lua.LTable)
		if !ok {
			return reflect.Value{}, false
		}
		out := reflect.MakeMap(t)
		convertible := true
		tbl.ForEach(func(k, v lua.LValue) {
			if !convertible {
				return
			}
			ks, ok := k.(lua.LString)
			if !ok {
				convertible = false
				return
			}
			ev, ok := Decode(L, v, t.Elem())
			if !ok {
				convertible = false
				return
			}
			out.SetMapIndex(reflect.ValueOf(string(ks)).Convert(t.Key()), ev)
		})
		if !convertible {
			return reflect.Value{}, false
		}
		return out, true

	default:
		return reflect.Value{}, false
	}
}

// DecodeInto decodes lv into the value pointed to by out.
func DecodeInto(L *lua.LState, lv lua.LValue, out any) bool {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return false
	}
	dv, ok := Decode(L, lv, rv.Type().Elem())
	if !ok {
		return false
	}
	rv.Elem().Set(dv)
	return true
}

// decodeAny maps a Lua value to its natural Go representation: nil,
// bool, int64 for integral numbers, float64 otherwise, string, and
// []any or map[string]any for tables.
func decodeAny(L *lua.LState, lv lua.LValue) (any, bool) {
	switch v := lv.(type) {
	case *lua.LNilType:
		return nil, true
	case lua.LBool:
		return bool(v), true
	case lua.LNumber:
		f := float64(v)
		if f == math.Trunc(f) && !math.IsInf(f, 0) {
			return int64(f), true
		}
		return f, true
	case lua.LString:
		return string(v), true
	case *lua.LTable:
		if n := v.Len(); n > 0 {
			out := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				ev, ok := decodeAny(L, v.RawGetInt(i))
				if !ok {
					return nil, false
				}
				out = append(out, ev)
			}
			return out, true
		}
		out := make(map[string]any)
		convertible := true
		v.ForEach(func(k, val lua.LValue) {
			ks, ok := k.(lua.LString)
			if !ok {
				convertible = false
				return
			}
			ev, ok := decodeAny(L, val)
			if !ok {
				convertible = false
				return
			}
			out[string(ks)] = ev
		})
		if !convertible {
			return nil, false
		}
		return out, true
	default:
		return nil, false
	}
}

// integralNumber returns the number when lv is a Lua number with no
// fractional part.
func integralNumber(lv lua.LValue) (float64, bool) {
	n, ok := lv.(lua.LNumber)
	if !ok {
		return 0, false
	}
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return f, true
}

// TypeName returns the Lua-side type name for diagnostics.
func TypeName(lv lua.LValue) string {
	return lv.Type().String()
}

// GoTypeName returns the Go-side type name for diagnostics.
func GoTypeName(t reflect.Type) string {
	return t.String()
}
