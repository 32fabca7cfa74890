package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseParse    Phase = "parse"    // script text parsing
	PhaseRun      Phase = "run"      // script execution
	PhaseEncode   Phase = "encode"   // Go to Lua
	PhaseDecode   Phase = "decode"   // Lua to Go
	PhaseCall     Phase = "call"     // host closure invocation
	PhaseMutate   Phase = "mutate"   // property/element mutation
	PhaseRegister Phase = "register" // type/function registration
	PhaseLoad     Phase = "load"     // engine creation
)

// Kind categorizes the error
type Kind string

const (
	KindSyntax             Kind = "syntax"
	KindRuntime            Kind = "runtime"
	KindTypeMismatch       Kind = "type_mismatch"
	KindArgumentCount      Kind = "argument_count"
	KindValidationRejected Kind = "validation_rejected"
	KindAllocation         Kind = "allocation"
	KindOutOfBounds        Kind = "out_of_bounds"
	KindInvalidReceiver    Kind = "invalid_receiver"
	KindInvalidCallable    Kind = "invalid_callable"
	KindNotFound           Kind = "not_found"
	KindNotInitialized     Kind = "not_initialized"
	KindInvalidInput       Kind = "invalid_input"
	KindRegistration       Kind = "registration"
	KindUnsupported        Kind = "unsupported"
)

// Error is the structured error type used throughout the library
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	GoType   string
	LuaType  string
	Property string
	Detail   string
	Line     int
	Path     []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Property != "" {
		b.WriteString(" property ")
		b.WriteString(e.Property)
	}

	if e.Line > 0 {
		fmt.Fprintf(&b, " line %d", e.Line)
	}

	if e.GoType != "" || e.LuaType != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.LuaType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", Lua type ")
			b.WriteString(e.LuaType)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("Lua type ")
			b.WriteString(e.LuaType)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.LuaType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the value path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// LuaType sets the Lua type name
func (b *Builder) LuaType(t string) *Builder {
	b.err.LuaType = t
	return b
}

// Property sets the property name
func (b *Builder) Property(name string) *Builder {
	b.err.Property = name
	return b
}

// Line sets the source line
func (b *Builder) Line(n int) *Builder {
	b.err.Line = n
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Syntax creates a script parse error. line may be 0 when unknown.
func Syntax(line int, msg string) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindSyntax,
		Line:   line,
		Detail: msg,
	}
}

// Runtime creates a script execution error
func Runtime(msg string, cause error) *Error {
	return &Error{
		Phase:  PhaseRun,
		Kind:   KindRuntime,
		Detail: msg,
		Cause:  cause,
	}
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, path []string, goType, luaType string) *Error {
	return &Error{
		Phase:   phase,
		Kind:    KindTypeMismatch,
		Path:    path,
		GoType:  goType,
		LuaType: luaType,
	}
}

// ArgumentCount creates an arity mismatch error
func ArgumentCount(want, got int) *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindArgumentCount,
		Detail: fmt.Sprintf("expected %d argument(s), got %d", want, got),
		Value:  got,
	}
}

// ValidationRejected creates a vetoed-mutation error. The reason is
// carried verbatim.
func ValidationRejected(property, reason string) *Error {
	return &Error{
		Phase:    PhaseMutate,
		Kind:     KindValidationRejected,
		Property: property,
		Detail:   reason,
	}
}

// AllocationFailed creates an engine allocation failure error
func AllocationFailed(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindAllocation,
		Detail: detail,
		Cause:  cause,
	}
}

// OutOfBounds creates an index bounds error
func OutOfBounds(phase Phase, path []string, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// InvalidReceiver creates a malformed-self error
func InvalidReceiver(typeName, detail string) *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindInvalidReceiver,
		GoType: typeName,
		Detail: detail,
	}
}

// InvalidCallable creates an error for call attempts on released or
// non-callable bridge values
func InvalidCallable(detail string) *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindInvalidCallable,
		Detail: detail,
	}
}

// NotInitialized creates a not-initialized error for a missing component
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Registration creates a registration error
func Registration(name string, cause error) *Error {
	return &Error{
		Phase:  PhaseRegister,
		Kind:   KindRegistration,
		Detail: fmt.Sprintf("register %s", name),
		Cause:  cause,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
