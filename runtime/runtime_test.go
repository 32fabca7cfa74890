package runtime

import (
	"context"
	"fmt"
	"strings"
	"testing"

	lua "github.com/yuin/gopher-lua"

	luaruntime "github.com/wippyai/lua-runtime"
	"github.com/wippyai/lua-runtime/bridge"
	"github.com/wippyai/lua-runtime/engine"
	"github.com/wippyai/lua-runtime/errors"
)

type counter struct {
	n int
}

func counterDef() *bridge.TypeDef {
	return bridge.NewType("Counter").
		Constructor(func(start int) *counter { return &counter{n: start} }).
		Property("value", bridge.Prop{
			Get: func(c *counter) int { return c.n },
			Set: func(c *counter, v int) { c.n = v },
		}).
		Method("inc", func(c *counter) int {
			c.n++
			return c.n
		})
}

func newRuntime(t *testing.T, opts Options) *Runtime {
	t.Helper()
	rt, err := New(opts)
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })
	return rt
}

func TestExecute_CapturesOutput(t *testing.T) {
	rt := newRuntime(t, Options{})

	out, err := rt.Execute(context.Background(), `
		print("hello", 42)
		print("world")
	`)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out != "hello\t42\nworld\n" {
		t.Errorf("output = %q", out)
	}

	// Output is drained per call.
	out, err = rt.Execute(context.Background(), `return 1`)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out != "" {
		t.Errorf("stale output: %q", out)
	}
}

func TestExecute_SinkObservesLines(t *testing.T) {
	var lines []string
	rt := newRuntime(t, Options{
		Sink: luaruntime.SinkFunc(func(line string) {
			lines = append(lines, line)
		}),
	})

	if _, err := rt.Execute(context.Background(), `print("a") print("b")`); err != nil {
		t.Fatal(err)
	}
	if len(lines) != 2 || lines[0] != "a" || lines[1] != "b" {
		t.Errorf("sink lines = %v", lines)
	}
}

func TestExecute_SyntaxErrorCarriesLine(t *testing.T) {
	rt := newRuntime(t, Options{})

	_, err := rt.Execute(context.Background(), "local x = 1\nlocal = 2\n")
	var e *errors.Error
	if !errorsAs(err, &e) {
		t.Fatalf("error type: %T", err)
	}
	if e.Kind != errors.KindSyntax {
		t.Errorf("kind = %s, want syntax", e.Kind)
	}
	if e.Line != 2 {
		t.Errorf("line = %d, want 2", e.Line)
	}
}

func TestEval_ReturnsFirstValue(t *testing.T) {
	rt := newRuntime(t, Options{})

	got, err := rt.Eval(context.Background(), `return 2 + 3, "ignored"`)
	if err != nil {
		t.Fatal(err)
	}
	if got != lua.LNumber(5) {
		t.Errorf("got %v, want 5", got)
	}
}

func TestEvalInto(t *testing.T) {
	rt := newRuntime(t, Options{})

	var s []string
	if err := rt.EvalInto(context.Background(), `return {"a", "b"}`, &s); err != nil {
		t.Fatal(err)
	}
	if len(s) != 2 || s[0] != "a" || s[1] != "b" {
		t.Errorf("s = %v", s)
	}

	var n int
	err := rt.EvalInto(context.Background(), `return "nope"`, &n)
	var e *errors.Error
	if !errorsAs(err, &e) || e.Kind != errors.KindTypeMismatch {
		t.Errorf("want type_mismatch, got %v", err)
	}
}

func TestExecute_NilContext(t *testing.T) {
	rt := newRuntime(t, Options{})

	out, err := rt.Execute(nil, `print("ok")`)
	if err != nil {
		t.Fatalf("execute with nil context: %v", err)
	}
	if out != "ok\n" {
		t.Errorf("output = %q", out)
	}

	got, err := rt.Eval(nil, `return 7`)
	if err != nil {
		t.Fatalf("eval with nil context: %v", err)
	}
	if got != lua.LNumber(7) {
		t.Errorf("got %v, want 7", got)
	}

	if err := rt.Drain(nil); err != nil {
		t.Errorf("drain with nil context: %v", err)
	}
}

func TestRegisterAndExecute(t *testing.T) {
	rt := newRuntime(t, Options{})
	if err := rt.Register(counterDef()); err != nil {
		t.Fatal(err)
	}

	out, err := rt.Execute(context.Background(), `
		local c = Counter(10)
		c:inc()
		c:inc()
		print(c.value)
	`)
	if err != nil {
		t.Fatal(err)
	}
	if out != "12\n" {
		t.Errorf("output = %q", out)
	}
}

func TestRegisterIn_Namespace(t *testing.T) {
	rt := newRuntime(t, Options{})
	if err := rt.RegisterIn("host", counterDef()); err != nil {
		t.Fatal(err)
	}
	if err := rt.RegisterFunction("shout", func(s string) string {
		return strings.ToUpper(s)
	}); err != nil {
		t.Fatal(err)
	}

	got, err := rt.Eval(context.Background(), `
		local c = host.Counter(1)
		return shout("x") .. c.value
	`)
	if err != nil {
		t.Fatal(err)
	}
	if got.String() != "X1" {
		t.Errorf("got %v", got)
	}

	// A scalar global cannot become a namespace.
	rt.SetGlobal("taken", 1)
	if _, err := rt.Namespace("taken"); err == nil {
		t.Error("scalar global accepted as namespace")
	}
}

func TestGlobalRoundTrip(t *testing.T) {
	rt := newRuntime(t, Options{})

	rt.SetGlobal("cfg", map[string]any{"retries": int64(3)})
	if _, err := rt.Execute(context.Background(), `result = cfg.retries * 2`); err != nil {
		t.Fatal(err)
	}

	var n int
	if err := rt.GlobalInto("result", &n); err != nil {
		t.Fatal(err)
	}
	if n != 6 {
		t.Errorf("result = %d", n)
	}
}

func TestPending_ResolveFromAnotherGoroutine(t *testing.T) {
	rt := newRuntime(t, Options{})

	if _, err := rt.Execute(context.Background(), `
		done = nil
		function on_done(v, err) done = v end
	`); err != nil {
		t.Fatal(err)
	}

	p, err := rt.NewPending(rt.Global("on_done"))
	if err != nil {
		t.Fatal(err)
	}

	resolved := make(chan struct{})
	go func() {
		p.Resolve("payload")
		close(resolved)
	}()
	<-resolved

	// Completion applies on the owning goroutine at the next call.
	out, err := rt.Execute(context.Background(), `print(done)`)
	if err != nil {
		t.Fatal(err)
	}
	if out != "payload\n" {
		t.Errorf("output = %q", out)
	}
}

func TestPending_RejectAndIdempotence(t *testing.T) {
	rt := newRuntime(t, Options{})

	if _, err := rt.Execute(context.Background(), `
		calls = 0
		last_err = nil
		function on_done(v, err)
			calls = calls + 1
			last_err = err
		end
	`); err != nil {
		t.Fatal(err)
	}

	p, err := rt.NewPending(rt.Global("on_done"))
	if err != nil {
		t.Fatal(err)
	}
	p.Reject(fmt.Errorf("backend down"))
	p.Resolve("late") // loses the race, must be dropped
	p.Reject(fmt.Errorf("again"))

	if err := rt.Drain(context.Background()); err != nil {
		t.Fatal(err)
	}

	var calls int
	if err := rt.GlobalInto("calls", &calls); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("callback ran %d times, want 1", calls)
	}
	var msg string
	if err := rt.GlobalInto("last_err", &msg); err != nil {
		t.Fatal(err)
	}
	if msg != "backend down" {
		t.Errorf("last_err = %q", msg)
	}
}

func TestPending_CallbackMustBeFunction(t *testing.T) {
	rt := newRuntime(t, Options{})
	if _, err := rt.NewPending(lua.LNumber(1)); err == nil {
		t.Error("non-function callback accepted")
	}
}

func TestExecute_BufferPolicyApplies(t *testing.T) {
	rt := newRuntime(t, Options{
		Engine: engine.Options{
			Buffer: engine.BufferPolicy{Mode: engine.TruncateOldest, MaxSize: 4},
		},
	})

	out, err := rt.Execute(context.Background(), `
		print("1")
		print("2")
		print("3")
	`)
	if err != nil {
		t.Fatal(err)
	}
	if out != "2\n3\n" {
		t.Errorf("output = %q, want newest retained", out)
	}
}

func TestClose_Idempotent(t *testing.T) {
	rt, err := New(Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := rt.Close(); err != nil {
		t.Fatal(err)
	}
	if err := rt.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := rt.Execute(context.Background(), `return 1`); err == nil {
		t.Error("execute after close succeeded")
	}
}

// errorsAs avoids importing stdlib errors alongside the local package.
func errorsAs(err error, target **errors.Error) bool {
	for err != nil {
		if e, ok := err.(*errors.Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
