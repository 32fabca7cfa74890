// Package errors provides structured error types for the lua-runtime library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: value path, Go/Lua type names, property
// name, source line and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDecode, errors.KindTypeMismatch).
//		Path("arg", "2").
//		GoType("int64").
//		LuaType("string").
//		Detail("integer expected").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.TypeMismatch(errors.PhaseDecode, path, "int64", "string")
//	err := errors.ArgumentCount(2, 1)
//
// All errors implement the standard error interface and support errors.Is/As.
//
// At the script boundary, Raise converts an Error into the engine's native
// error mechanism so Lua pcall can intercept it; FromLua classifies an
// engine error back into an Error for the host API.
package errors
