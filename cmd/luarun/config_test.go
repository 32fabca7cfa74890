package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/wippyai/lua-runtime/engine"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Watch.DebounceMS != 200 {
		t.Errorf("debounce = %d, want 200", cfg.Watch.DebounceMS)
	}

	opts, err := cfg.EngineOptions()
	if err != nil {
		t.Fatal(err)
	}
	if opts.SkipOpenLibs {
		t.Error("default must open the full stdlib")
	}
	if opts.Buffer.Mode != engine.Unlimited {
		t.Errorf("buffer mode = %v, want unlimited", opts.Buffer.Mode)
	}
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "luarun.toml")
	src := `
[engine]
skip_open_libs = true
libs = ["base", "math"]
registry_size = 4096

[buffer]
mode = "truncate_oldest"
max_size = 64

[watch]
debounce_ms = 50
`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Watch.DebounceMS != 50 {
		t.Errorf("debounce = %d, want 50", cfg.Watch.DebounceMS)
	}

	opts, err := cfg.EngineOptions()
	if err != nil {
		t.Fatal(err)
	}
	if !opts.SkipOpenLibs {
		t.Error("skip_open_libs not applied")
	}
	if len(opts.Libs) != 2 || opts.Libs[0] != engine.LibBase || opts.Libs[1] != engine.LibMath {
		t.Errorf("libs = %v", opts.Libs)
	}
	if opts.RegistrySize != 4096 {
		t.Errorf("registry_size = %d", opts.RegistrySize)
	}
	if opts.Buffer.Mode != engine.TruncateOldest || opts.Buffer.MaxSize != 64 {
		t.Errorf("buffer = %+v", opts.Buffer)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("missing config file must fail")
	}
}

func TestLoadConfig_DebounceFloor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "luarun.toml")
	if err := os.WriteFile(path, []byte("[watch]\ndebounce_ms = -5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Watch.DebounceMS != 200 {
		t.Errorf("debounce = %d, want fallback 200", cfg.Watch.DebounceMS)
	}
}

func TestConfig_EngineOptions_BufferModes(t *testing.T) {
	cases := []struct {
		mode    string
		maxSize int
		want    engine.BufferMode
		wantErr bool
	}{
		{"", 0, engine.Unlimited, false},
		{"unlimited", 0, engine.Unlimited, false},
		{"capped", 8, engine.Capped, false},
		{"truncate_oldest", 8, engine.TruncateOldest, false},
		{"truncate_newest", 8, engine.TruncateNewest, false},
		{"bogus", 8, engine.Unlimited, true},
		{"capped", 0, engine.Unlimited, true}, // non-unlimited needs max_size
	}
	for _, tc := range cases {
		cfg := &Config{Buffer: BufferConfig{Mode: tc.mode, MaxSize: tc.maxSize}}
		opts, err := cfg.EngineOptions()
		if tc.wantErr {
			if err == nil {
				t.Errorf("mode %q max %d: expected error", tc.mode, tc.maxSize)
			}
			continue
		}
		if err != nil {
			t.Errorf("mode %q: %v", tc.mode, err)
			continue
		}
		if opts.Buffer.Mode != tc.want || opts.Buffer.MaxSize != tc.maxSize {
			t.Errorf("mode %q: got %+v", tc.mode, opts.Buffer)
		}
	}
}
