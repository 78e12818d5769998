package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	flecs "github.com/oliverbestmann/flecs-go"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRun(t *testing.T) {
	dir := t.TempDir()

	opts := options{
		types: stringList{writeFile(t, dir, "types.yaml", `
types:
  - name: Position
    members:
      - {name: x, type: f64}
      - {name: y, type: f64}
`)},
		scripts: stringList{writeFile(t, dir, "scene.flecs", `
			ship { Position: {x: $x, y: 2} }
		`)},
		lua: stringList{writeFile(t, dir, "init.lua", `
			ecs.new("from_lua")
		`)},
		vars:    scriptVars{"x": 1.5},
		queries: stringList{"Position"},
		dump:    true,
	}

	var out bytes.Buffer
	require.NoError(t, run(opts, &out))

	dec := json.NewDecoder(&out)

	var rows []struct {
		Name   string            `json:"name"`
		Fields []json.RawMessage `json:"fields"`
	}

	require.NoError(t, dec.Decode(&rows))
	require.Len(t, rows, 1)
	require.Equal(t, "ship", rows[0].Name)
	require.JSONEq(t, `{"x": 1.5, "y": 2}`, string(rows[0].Fields[0]))

	var entities []flecs.EntityDump
	require.NoError(t, dec.Decode(&entities))

	var paths []string
	for _, e := range entities {
		paths = append(paths, e.Path())
	}

	require.Contains(t, paths, "ship")
	require.Contains(t, paths, "from_lua")
}

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()

	cases := map[string]options{
		"missing types":   {types: stringList{filepath.Join(dir, "missing.yaml")}},
		"missing script":  {scripts: stringList{filepath.Join(dir, "missing.flecs")}},
		"script syntax":   {scripts: stringList{writeFile(t, dir, "broken.flecs", "a {")}},
		"query syntax":    {queries: stringList{"(Unknown"}},
		"lua error":       {lua: stringList{writeFile(t, dir, "broken.lua", "error('boom')")}},
		"unknown backend": {backend: "gpu"},
		"missing wasm":    {wasm: filepath.Join(dir, "missing.wasm")},
	}

	for name, opts := range cases {
		t.Run(name, func(t *testing.T) {
			var out bytes.Buffer
			require.Error(t, run(opts, &out))
		})
	}
}
