package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "flecsh.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
types = ["types/shapes.yaml"]
lua = ["init.lua"]

[backend]
kind = "wasm"
wasm = "flecs.wasm"
memory_limit_pages = 512

[[scripts]]
path = "scene.flecs"

[scripts.vars]
count = 3
label = "hello"

[logging]
level = "debug"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "wasm", cfg.Backend.Kind)
	require.Equal(t, "flecs.wasm", cfg.Backend.Wasm)
	require.EqualValues(t, 512, cfg.Backend.MemoryLimitPages)
	require.Equal(t, []string{"types/shapes.yaml"}, cfg.Types)
	require.Equal(t, []string{"init.lua"}, cfg.Lua)

	require.Len(t, cfg.Scripts, 1)
	require.Equal(t, "scene.flecs", cfg.Scripts[0].Path)
	require.Equal(t, map[string]any{"count": int64(3), "label": "hello"}, cfg.Scripts[0].Vars)

	// values not in the file keep their defaults
	require.Equal(t, 64, cfg.Backend.ChildBatchSize)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, "console", cfg.Logging.Format)
}

func TestLoadConfigErrors(t *testing.T) {
	cases := map[string]string{
		"unknown backend": `[backend]
kind = "gpu"`,
		"wasm without path": `[backend]
kind = "wasm"`,
		"script without path": `[[scripts]]
vars = {x = 1}`,
		"invalid toml": `[backend`,
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			require.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestParseVar(t *testing.T) {
	vars := scriptVars{}

	require.NoError(t, vars.Set("count=3"))
	require.NoError(t, vars.Set("ratio=0.5"))
	require.NoError(t, vars.Set("visible=true"))
	require.NoError(t, vars.Set("label=hello world"))
	require.Error(t, vars.Set("missing"))

	require.Equal(t, scriptVars{
		"count":   3.0,
		"ratio":   0.5,
		"visible": true,
		"label":   "hello world",
	}, vars)
}
