package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/wippyai/lua-runtime/engine"
)

// Config is the TOML runner configuration.
//
//	[engine]
//	skip_open_libs = true
//	libs = ["base", "table", "string", "math"]
//	registry_size = 4096
//
//	[buffer]
//	mode = "truncate_oldest"   # unlimited | capped | truncate_oldest | truncate_newest
//	max_size = 65536
//
//	[watch]
//	debounce_ms = 200
type Config struct {
	Engine EngineConfig `toml:"engine"`
	Buffer BufferConfig `toml:"buffer"`
	Watch  WatchConfig  `toml:"watch"`
}

type EngineConfig struct {
	SkipOpenLibs  bool     `toml:"skip_open_libs"`
	Libs          []string `toml:"libs"`
	RegistrySize  int      `toml:"registry_size"`
	CallStackSize int      `toml:"call_stack_size"`
}

type BufferConfig struct {
	Mode    string `toml:"mode"`
	MaxSize int    `toml:"max_size"`
}

type WatchConfig struct {
	DebounceMS int `toml:"debounce_ms"`
}

// LoadConfig reads the TOML config at path; an empty path yields
// defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		Watch: WatchConfig{DebounceMS: 200},
	}
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.Watch.DebounceMS <= 0 {
		cfg.Watch.DebounceMS = 200
	}
	return cfg, nil
}

// EngineOptions maps the config onto engine options.
func (c *Config) EngineOptions() (engine.Options, error) {
	opts := engine.Options{
		SkipOpenLibs:  c.Engine.SkipOpenLibs,
		RegistrySize:  c.Engine.RegistrySize,
		CallStackSize: c.Engine.CallStackSize,
	}
	for _, lib := range c.Engine.Libs {
		opts.Libs = append(opts.Libs, engine.Lib(lib))
	}

	switch c.Buffer.Mode {
	case "", "unlimited":
		opts.Buffer = engine.BufferPolicy{Mode: engine.Unlimited}
	case "capped":
		opts.Buffer = engine.BufferPolicy{Mode: engine.Capped, MaxSize: c.Buffer.MaxSize}
	case "truncate_oldest":
		opts.Buffer = engine.BufferPolicy{Mode: engine.TruncateOldest, MaxSize: c.Buffer.MaxSize}
	case "truncate_newest":
		opts.Buffer = engine.BufferPolicy{Mode: engine.TruncateNewest, MaxSize: c.Buffer.MaxSize}
	default:
		return opts, fmt.Errorf("config: unknown buffer mode %q", c.Buffer.Mode)
	}
	if opts.Buffer.Mode != engine.Unlimited && opts.Buffer.MaxSize <= 0 {
		return opts, fmt.Errorf("config: buffer mode %q needs max_size > 0", c.Buffer.Mode)
	}
	return opts, nil
}
