package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Backend BackendConfig  `toml:"backend"`
	Types   []string       `toml:"types"`
	Scripts []ScriptConfig `toml:"scripts"`
	Lua     []string       `toml:"lua"`
	Logging LoggingConfig  `toml:"logging"`
}

type BackendConfig struct {
	Kind             string `toml:"kind"` // "sim" or "wasm"
	Wasm             string `toml:"wasm"`
	MemoryLimitPages uint32 `toml:"memory_limit_pages"`
	ChildBatchSize   int    `toml:"child_batch_size"`
}

type ScriptConfig struct {
	Path string         `toml:"path"`
	Vars map[string]any `toml:"vars"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Backend.Kind {
	case "sim":
	case "wasm":
		if c.Backend.Wasm == "" {
			return fmt.Errorf("backend wasm requires a module path")
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend.Kind)
	}

	for _, script := range c.Scripts {
		if script.Path == "" {
			return fmt.Errorf("script without path")
		}
	}

	return nil
}

func defaults() *Config {
	return &Config{
		Backend: BackendConfig{
			Kind:           "sim",
			ChildBatchSize: 64,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}
