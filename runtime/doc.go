// Package runtime provides the high-level API for embedding Lua
// scripts over bridged host objects and functions.
//
// # Quick Start
//
//	rt, err := runtime.New(runtime.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close()
//
//	// Describe a host type once
//	err = rt.Register(bridge.NewType("Point").
//	    Constructor(func(x, y float64) *Point { return &Point{x, y} }).
//	    Property("x", bridge.Prop{
//	        Get: func(p *Point) float64 { return p.X },
//	        Set: func(p *Point, v float64) { p.X = v },
//	    }))
//
//	// Run scripts against it
//	out, err := rt.Execute(ctx, `
//	    local p = Point(3, 4)
//	    p.x = 10
//	    print(p.x)
//	`)
//	fmt.Print(out) // "10\n"
//
// # Threading
//
// A Runtime is single-threaded: every method except Pending.Resolve and
// Pending.Reject must be called from the goroutine that owns it. Work
// finished on other goroutines is handed back through a Pending, whose
// completion is queued and applied by the owning goroutine on the next
// Execute (or an explicit Drain).
//
// # Output
//
// Script print output is captured, never written to process stdout.
// Execute returns everything printed during the call; a Sink in
// Options additionally observes each line as it happens.
package runtime
