package codec

import (
	"reflect"
	"testing"
	"time"

	lua "github.com/yuin/gopher-lua"
)

func newState(t *testing.T) *lua.LState {
	t.Helper()
	L := lua.NewState()
	t.Cleanup(L.Close)
	return L
}

func TestRoundTrip_Primitives(t *testing.T) {
	L := newState(t)

	tests := []struct {
		name string
		v    any
	}{
		{"bool true", true},
		{"bool false", false},
		{"int", int(-7)},
		{"int64", int64(1 << 40)},
		{"uint8", uint8(255)},
		{"float64", 3.25},
		{"string", "hello"},
		{"string with NUL", "a\x00b"},
		{"empty string", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lv := Encode(L, tt.v)
			got, ok := Decode(L, lv, reflect.TypeOf(tt.v))
			if !ok {
				t.Fatalf("decode(%v) not convertible", lv)
			}
			if got.Interface() != tt.v {
				t.Errorf("round trip: got %v, want %v", got.Interface(), tt.v)
			}
		})
	}
}

func TestDecode_IntegerRejectsFraction(t *testing.T) {
	L := newState(t)

	if _, ok := Decode(L, lua.LNumber(3.5), reflect.TypeOf(int64(0))); ok {
		t.Error("3.5 must not decode into int64")
	}
	if _, ok := Decode(L, lua.LNumber(3.0), reflect.TypeOf(int64(0))); !ok {
		t.Error("3.0 must decode into int64")
	}
	if _, ok := Decode(L, lua.LNumber(-1), reflect.TypeOf(uint32(0))); ok {
		t.Error("-1 must not decode into uint32")
	}
	if _, ok := Decode(L, lua.LNumber(300), reflect.TypeOf(int8(0))); ok {
		t.Error("300 must not decode into int8")
	}
}

func TestDecode_TypeSafety(t *testing.T) {
	L := newState(t)

	if _, ok := Decode(L, lua.LString("42"), reflect.TypeOf(int64(0))); ok {
		t.Error("string must not silently coerce to integer")
	}
	if _, ok := Decode(L, lua.LNumber(1), reflect.TypeOf(true)); ok {
		t.Error("number must not coerce to bool")
	}
	if _, ok := Decode(L, lua.LNumber(1), reflect.TypeOf("")); ok {
		t.Error("number must not coerce to string")
	}
}

func TestOptional_Pointers(t *testing.T) {
	L := newState(t)

	// Absence at any depth encodes as nil.
	var p *int64
	if lv := Encode(L, p); lv != lua.LNil {
		t.Errorf("nil pointer must encode as LNil, got %v", lv)
	}

	v := int64(9)
	pp := &v
	if lv := Encode(L, &pp); lv != lua.LNumber(9) {
		t.Errorf("nested present pointer must collapse, got %v", lv)
	}

	// Decode side: nil -> nil pointer, value -> allocated pointer.
	got, ok := Decode(L, lua.LNil, reflect.TypeOf(p))
	if !ok || !got.IsNil() {
		t.Error("LNil must decode to nil pointer")
	}

	got, ok = Decode(L, lua.LNumber(5), reflect.TypeOf(p))
	if !ok || got.IsNil() || got.Elem().Int() != 5 {
		t.Error("present value must decode through pointer")
	}

	// Triple nesting collapses to innermost presence.
	var ppp ***int64
	got, ok = Decode(L, lua.LNumber(7), reflect.TypeOf(ppp))
	if !ok {
		t.Fatal("triple pointer decode failed")
	}
	if got.Elem().Elem().Elem().Int() != 7 {
		t.Error("triple pointer did not reach inner value")
	}
	got, ok = Decode(L, lua.LNil, reflect.TypeOf(ppp))
	if !ok || !got.IsNil() {
		t.Error("LNil must decode to nil at the outermost level")
	}
}

func TestRoundTrip_SliceAndMap(t *testing.T) {
	L := newState(t)

	s := []int64{1, 2, 3}
	lv := Encode(L, s)
	tbl, ok := lv.(*lua.LTable)
	if !ok {
		t.Fatalf("slice must encode as table, got %T", lv)
	}
	if tbl.Len() != 3 || tbl.RawGetInt(1) != lua.LNumber(1) {
		t.Error("slice table is not 1-based or wrong length")
	}
	got, ok := Decode(L, lv, reflect.TypeOf(s))
	if !ok || !reflect.DeepEqual(got.Interface(), s) {
		t.Errorf("slice round trip: got %v", got)
	}

	m := map[string]float64{"a": 1.5, "b": 2.5}
	lv = Encode(L, m)
	got, ok = Decode(L, lv, reflect.TypeOf(m))
	if !ok || !reflect.DeepEqual(got.Interface(), m) {
		t.Errorf("map round trip: got %v", got)
	}

	// Heterogeneous table fails slice decode.
	bad := L.NewTable()
	bad.Append(lua.LNumber(1))
	bad.Append(lua.LString("x"))
	if _, ok := Decode(L, bad, reflect.TypeOf([]int64{})); ok {
		t.Error("mixed-type table must not decode into []int64")
	}
}

func TestEncode_UnsupportedIsNil(t *testing.T) {
	L := newState(t)

	type opaque struct{ x int }
	if lv := Encode(L, opaque{1}); lv != lua.LNil {
		t.Errorf("unsupported struct must encode as LNil, got %v", lv)
	}
	if lv := Encode(L, func() {}); lv != lua.LNil {
		t.Errorf("func must encode as LNil, got %v", lv)
	}
	if lv := Encode(L, nil); lv != lua.LNil {
		t.Errorf("nil must encode as LNil, got %v", lv)
	}
}

func TestDecode_Any(t *testing.T) {
	L := newState(t)

	got, ok := Decode(L, lua.LNumber(4), reflect.TypeOf((*any)(nil)).Elem())
	if !ok || got.Interface() != int64(4) {
		t.Errorf("integral number to any: got %v", got)
	}
	got, ok = Decode(L, lua.LNumber(4.5), reflect.TypeOf((*any)(nil)).Elem())
	if !ok || got.Interface() != 4.5 {
		t.Errorf("fractional number to any: got %v", got)
	}
}

func TestRegistry_Converters(t *testing.T) {
	L := newState(t)
	r := NewRegistry()

	dt, ok := r.Lookup("datetime")
	if !ok {
		t.Fatal("built-in datetime converter missing")
	}
	when := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	lv, ok := dt.Encode(L, when)
	if !ok {
		t.Fatal("datetime encode failed")
	}
	back, ok := dt.Decode(lv)
	if !ok || !back.(time.Time).Equal(when) {
		t.Errorf("datetime round trip: got %v", back)
	}
	if _, ok := dt.Decode(lua.LString("not a date")); ok {
		t.Error("malformed datetime must not decode")
	}

	u, ok := r.Lookup("url")
	if !ok {
		t.Fatal("built-in url converter missing")
	}
	if _, ok := u.Decode(lua.LString("https://example.com/a?b=1")); !ok {
		t.Error("url decode failed")
	}

	if err := r.Register("datetime", dt); err == nil {
		t.Error("re-registering a converter name must fail")
	}
	if _, ok := r.Lookup("nope"); ok {
		t.Error("unknown converter must not resolve")
	}
}
