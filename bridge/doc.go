// Package bridge makes host objects, closures and collection properties
// usable from Lua script code.
//
// # Object bridge
//
// A host type is described once with the fluent TypeDef builder and
// registered against a Registrar. Registration builds the type's
// dispatch table (property and method thunks) and installs a callable
// constructor:
//
//	def := bridge.NewType("Point").
//	    Constructor(func(x, y float64) *Point { return &Point{x, y} }).
//	    Property("x", bridge.Prop{
//	        Get: func(p *Point) float64 { return p.X },
//	        Set: func(p *Point, v float64) { p.X = v },
//	    }).
//	    Method("norm", func(p *Point) float64 { return math.Hypot(p.X, p.Y) })
//
// Script code then constructs and manipulates instances:
//
//	local p = Point(3, 4)
//	p.x = 10
//	print(p:norm())
//
// Instances are userdata carrying an arena handle, never a Go pointer.
// Reading an undeclared property yields nil; calling an undeclared
// method raises. Lua tables exhibit the same asymmetry: a missing key
// reads as nil but calling nil is an error.
//
// # Function bridge
//
// Host closures of arity 0-3 become script callables backed by an
// integer-id slot registry; the script side holds only the id. Each
// arity is a distinct dispatch path matching the engine's
// fixed-signature call protocol. Callables are freed from script with
// release() or when the registrar closes.
//
// # Collection proxy
//
// A slice-typed property declared with Collection is surfaced as a
// live, 1-based indexable proxy with length, iteration, snapshot and
// append. Writes are validated against the proposed full array before
// committing.
//
// # Mutation hooks
//
// A type may declare a willChange veto hook and a didChange observer.
// Both run synchronously on the script's call stack, so a rejection
// aborts the in-progress script statement; didChange never fires for a
// vetoed mutation.
package bridge
