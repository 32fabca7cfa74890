// Package handle provides the generation-checked arena of host objects
// referenced from script code.
//
// Script-side values never hold Go pointers. Instead they carry an opaque
// Handle that encodes an arena slot plus the generation the slot had when
// the object was inserted. Releasing a slot bumps its generation, so a
// stale handle held by script code fails the generation check and surfaces
// an error instead of dereferencing a recycled object.
//
// # Arena
//
//	arena := handle.NewArena()
//
//	// Insert a value, get a handle
//	h := arena.Insert(typeID, myValue)
//
//	// Retrieve value by handle
//	value, ok := arena.Get(h)
//
//	// Release; idempotent, returns the value once
//	value, ok := arena.Release(h)
//
// # Type Safety
//
// Handles are typed - each registered bridge type gets a unique type ID:
//
//	value, ok := arena.GetTyped(h, pointTypeID)
//
// # Observers
//
// Observers receive created/released lifecycle events, which the bridge
// uses for teardown bookkeeping and hosts may use for diagnostics.
//
// # Ownership
//
// The arena carries no locks. It is owned by the runtime goroutine and
// must only be touched from it; cross-goroutine completions go through
// the runtime's resolve queue. gopher-lua does not run __gc metamethods,
// so slots are released explicitly (script release(), host Release, or
// arena Close).
package handle
