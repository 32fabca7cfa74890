package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/wippyai/lua-runtime/errors"
	"github.com/wippyai/lua-runtime/runtime"
)

func main() {
	var (
		scriptFile  = flag.String("script", "", "Path to Lua script file")
		expr        = flag.String("e", "", "Evaluate an inline expression and print the result")
		interactive = flag.Bool("i", false, "Interactive REPL")
		watch       = flag.Bool("watch", false, "Re-run the script whenever it changes")
		configFile  = flag.String("config", "", "Path to TOML config")
	)
	flag.Parse()

	cfg, err := LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	switch {
	case *interactive:
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	case *expr != "":
		if err := runExpr(cfg, *expr); err != nil {
			printScriptError(err)
			os.Exit(1)
		}

	case *scriptFile != "":
		if *watch {
			if err := watchAndRun(cfg, *scriptFile); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		}
		if err := runFile(cfg, *scriptFile); err != nil {
			printScriptError(err)
			os.Exit(1)
		}

	default:
		fmt.Fprintln(os.Stderr, "Usage: luarun -script <file.lua> [-watch] [-config file.toml]")
		fmt.Fprintln(os.Stderr, "       luarun -e '<expression>'")
		fmt.Fprintln(os.Stderr, "       luarun -i  (interactive mode)")
		os.Exit(1)
	}
}

// newRuntime builds a configured runtime with the standard host
// namespace every script gets.
func newRuntime(cfg *Config) (*runtime.Runtime, error) {
	eopts, err := cfg.EngineOptions()
	if err != nil {
		return nil, err
	}
	rt, err := runtime.New(runtime.Options{Engine: eopts})
	if err != nil {
		return nil, err
	}

	ns, err := rt.Namespace("host")
	if err != nil {
		rt.Close()
		return nil, err
	}
	now, err := rt.NewCallable(func() string {
		return time.Now().Format(time.RFC3339)
	})
	if err != nil {
		rt.Close()
		return nil, err
	}
	ns.RawSetString("now", now)
	env, err := rt.NewCallable(func(key string) string {
		return os.Getenv(key)
	})
	if err != nil {
		rt.Close()
		return nil, err
	}
	ns.RawSetString("env", env)
	return rt, nil
}

func runFile(cfg *Config, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}

	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	out, err := rt.Execute(context.Background(), string(src))
	if out != "" {
		fmt.Print(out)
	}
	return err
}

func runExpr(cfg *Config, expr string) error {
	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	v, err := rt.Eval(context.Background(), "return "+expr)
	if err != nil {
		// Statements don't parse as an expression; run them directly.
		if _, rerr := rt.Execute(context.Background(), expr); rerr != nil {
			return rerr
		}
	} else {
		fmt.Println(v.String())
	}
	if out := rt.Output().Take(); out != "" {
		fmt.Print(out)
	}
	return nil
}

// printScriptError renders structured script errors with their
// taxonomy; anything else prints as-is.
func printScriptError(err error) {
	var e *errors.Error
	if ok := asScriptError(err, &e); !ok {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	if e.Line > 0 {
		fmt.Fprintf(os.Stderr, "Error [%s/%s] line %d: %s\n", e.Phase, e.Kind, e.Line, e.Detail)
		return
	}
	fmt.Fprintf(os.Stderr, "Error [%s/%s]: %s\n", e.Phase, e.Kind, e.Error())
}

func asScriptError(err error, target **errors.Error) bool {
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
