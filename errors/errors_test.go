package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:   PhaseDecode,
				Kind:    KindTypeMismatch,
				Path:    []string{"arg", "2"},
				GoType:  "int64",
				LuaType: "string",
				Detail:  "integer expected",
			},
			contains: []string{"[decode]", "type_mismatch", "arg.2", "int64", "string", "integer expected"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseMutate,
				Kind:  KindOutOfBounds,
			},
			contains: []string{"[mutate]", "out_of_bounds"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseLoad,
				Kind:   KindAllocation,
				Detail: "create state",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[load]", "allocation", "create state", "caused by", "underlying error"},
		},
		{
			name:     "validation with property",
			err:      ValidationRejected("age", "must be non-negative"),
			contains: []string{"[mutate]", "validation_rejected", "property age", "must be non-negative"},
		},
		{
			name:     "syntax with line",
			err:      Syntax(3, "unexpected symbol"),
			contains: []string{"[parse]", "syntax", "line 3", "unexpected symbol"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseRun,
		Kind:  KindRuntime,
		Cause: cause,
	}

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
	if err.Unwrap() != cause {
		t.Error("Unwrap should return the cause")
	}
}

func TestError_Is(t *testing.T) {
	a := ArgumentCount(2, 1)
	b := &Error{Phase: PhaseCall, Kind: KindArgumentCount}
	c := &Error{Phase: PhaseCall, Kind: KindTypeMismatch}

	if !errors.Is(a, b) {
		t.Error("same phase and kind should match")
	}
	if errors.Is(a, c) {
		t.Error("different kind should not match")
	}
}

func TestBuilder(t *testing.T) {
	err := New(PhaseDecode, KindTypeMismatch).
		Path("arg", "1").
		GoType("bool").
		LuaType("number").
		Detail("boolean expected, got %v", 42).
		Build()

	if err.Phase != PhaseDecode || err.Kind != KindTypeMismatch {
		t.Fatalf("wrong phase/kind: %v/%v", err.Phase, err.Kind)
	}
	if err.Detail != "boolean expected, got 42" {
		t.Errorf("formatted detail wrong: %q", err.Detail)
	}
	if len(err.Path) != 2 {
		t.Errorf("path not set: %v", err.Path)
	}
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		msg  string
		want int
	}{
		{`[string "x ="] line:1(column:4) near '<eof>':   syntax error`, 1},
		{`parse error line:12(column:3) near 'end'`, 12},
		{"no position info here", 0},
	}
	for _, tt := range tests {
		if got := parseLine(tt.msg); got != tt.want {
			t.Errorf("parseLine(%q) = %d, want %d", tt.msg, got, tt.want)
		}
	}
}

func TestReparse(t *testing.T) {
	orig := ValidationRejected("count", "too large")
	msg := "<string>:4: " + orig.Error()

	got := reparse(msg)
	if got == nil {
		t.Fatal("reparse returned nil")
	}
	if got.Phase != PhaseMutate || got.Kind != KindValidationRejected {
		t.Errorf("round-trip lost taxonomy: %v/%v", got.Phase, got.Kind)
	}
	if !strings.Contains(got.Detail, "too large") {
		t.Errorf("reason not carried verbatim: %q", got.Detail)
	}

	if reparse("attempt to call a nil value") != nil {
		t.Error("plain engine error should not reparse")
	}
	if reparse("[weird] not_a_kind: x") != nil {
		t.Error("unknown kind should not reparse")
	}
}
