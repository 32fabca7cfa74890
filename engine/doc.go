// Package engine owns the embedded gopher-lua state.
//
// It is the only package that creates or closes a lua.LState. It handles
// script execution with error classification (syntax vs runtime), print
// capture with a configurable buffering policy, and codec-backed access
// to the script global table. Higher layers (bridge, runtime) install
// their thunks through State().
//
// One Engine is owned by one goroutine; the underlying LState is not
// thread-safe and the engine adds no locking.
package engine
