// Package luaruntime embeds a Lua scripting runtime inside a host
// application and bridges host objects, closures and collections into
// script code without giving scripts direct access to host memory.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	luaruntime/          Root package with the shared output Sink interface
//	├── runtime/         High-level API for registration and script execution
//	├── engine/          Low-level gopher-lua integration and output capture
//	├── bridge/          Object, function and collection bridges with hooks
//	├── codec/           Value conversion between Go and Lua stack values
//	├── handle/          Generation-checked arena of host objects
//	└── errors/          Structured error types for debugging
//
// # Quick Start
//
// Create a runtime, expose a host type and run a script:
//
//	rt, err := runtime.New(runtime.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close()
//
//	def := bridge.NewType("Point").
//	    Constructor(func(x, y float64) *Point { return &Point{X: x, Y: y} }).
//	    Property("x", bridge.Prop{
//	        Get: func(p *Point) float64 { return p.X },
//	        Set: func(p *Point, v float64) { p.X = v },
//	    })
//	if err := rt.Register(def); err != nil {
//	    log.Fatal(err)
//	}
//
//	out, err := rt.Execute(ctx, `local p = Point(1, 2); print(p.x)`)
//	fmt.Println(out) // "1\n"
//
// # Host Functions
//
// Register Go closures of arity 0-3 as script callables:
//
//	rt.RegisterFunction("add", func(a, b int64) int64 { return a + b })
//
// # Thread Safety
//
// A Runtime must be driven from a single goroutine; the underlying Lua
// state is not thread-safe and the runtime adds no internal locking.
// Independent Runtime instances are fully isolated and may run
// concurrently on different goroutines. Host closures that need to
// complete asynchronous work return a Pending value and resolve it from
// any goroutine; the completion is marshalled back onto the owning
// goroutine before script state is touched.
//
// # Handle Lifetime
//
// Host objects referenced from script are stored in a generation-checked
// arena. A stale handle (its slot released and reused) fails the
// generation check and surfaces an error instead of dereferencing a
// recycled object. gopher-lua does not run __gc metamethods, so handles
// and callables are released explicitly from script via release(), from
// the host via the arena, and unconditionally when the runtime closes.
package luaruntime
