package luahost

import (
	"os"
	"path/filepath"
	"testing"

	flecs "github.com/oliverbestmann/flecs-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newHost(t *testing.T, opts ...Option) (*Host, *flecs.World) {
	t.Helper()

	registry := flecs.NewRegistry()
	registry.Struct("Position").
		Member("x", flecs.PrimF64).
		Member("y", flecs.PrimF64).
		Register()

	world, err := flecs.NewWorld(flecs.WithRegistry(registry))
	require.NoError(t, err)

	h := New(world, opts...)

	t.Cleanup(func() {
		h.Close()
		world.Close()
	})

	return h, world
}

func TestEntities(t *testing.T) {
	h, world := newHost(t)

	err := h.DoString(`
		local parent = ecs.new("parent")
		local child = ecs.new():set_name("child")

		tag = ecs.new("Tag")
		child:add(tag)

		assert(child:has("Tag"))
		assert(child:owns(tag))
		assert(parent:name() == "parent")
		assert(parent:parent() == nil)
		assert(ecs.lookup("missing") == nil)

		child_id = child:id()
	`)
	require.NoError(t, err)

	tag, ok := world.Lookup("Tag")
	require.True(t, ok)
	require.Equal(t, tag, h.Global("tag"))

	child := world.Entity(flecs.Id(h.Global("child_id").(float64)))
	require.True(t, child.Has(tag))
}

func TestHierarchy(t *testing.T) {
	h, _ := newHost(t)

	err := h.DoString(`
		ecs.script("root { a {} b {} }")

		local root = ecs.lookup("root")
		local names = {}
		for _, child in ipairs(root:children()) do
			assert(child:parent() == root)
			table.insert(names, child:name())
		end

		table.sort(names)
		children = names

		local a = ecs.lookup("root.a")
		a:destroy()
		assert(not a:alive())
	`)
	require.NoError(t, err)
	require.Equal(t, []any{"a", "b"}, h.Global("children"))
}

func TestQuery(t *testing.T) {
	h, _ := newHost(t)

	err := h.DoString(`
		ecs.script([[
			Likes {}
			alice {}
			bob { (Likes, alice) }
			p { Position: {x: 1, y: 2} }
		]])

		rows = ecs.query("Position")
		assert(#rows == 1)
		assert(rows[1].name == "p")
		assert(rows[1].fields[1].x == 1)

		local liked = ecs.query("(Likes, $who)", {vars = {who = "alice"}})
		assert(#liked == 1)
		assert(liked[1].name == "bob")

		local matches = ecs.query("(Likes, $who)", {matches = true})
		who = matches[1].vars.who
	`)
	require.NoError(t, err)
	require.Equal(t, "alice", h.Global("who"))
}

func TestScriptVariables(t *testing.T) {
	h, world := newHost(t)

	err := h.DoString(`ecs.script("e { Position: {x: $x, y: 2} }", {x = 5})`)
	require.NoError(t, err)

	e, ok := world.Lookup("e")
	require.True(t, ok)

	pos := flecs.GetAs[struct{ X, Y float64 }](e, mustLookup(t, world, "Position"), flecs.AccessDefault)
	require.Equal(t, 5.0, pos.X)
	require.Equal(t, 2.0, pos.Y)
}

func TestDefer(t *testing.T) {
	h, world := newHost(t)

	err := h.DoString(`
		ecs.defer(function()
			ecs.new("deferred")
		end)
	`)
	require.NoError(t, err)
	require.False(t, world.IsDeferred())

	_, ok := world.Lookup("deferred")
	require.True(t, ok)

	// errors inside the function still end the deferred scope
	err = h.DoString(`ecs.defer(function() error("boom") end)`)
	require.ErrorContains(t, err, "boom")
	require.False(t, world.IsDeferred())
}

func TestErrors(t *testing.T) {
	h, _ := newHost(t)

	cases := map[string]string{
		"query syntax":   `ecs.query("(Position")`,
		"script syntax":  `ecs.script("a {")`,
		"unknown entity": `ecs.new():add("Unknown")`,
		"bad argument":   `ecs.new():add(true)`,
		"bad variable":   `ecs.script("a {}", {x = {}})`,
	}

	for name, code := range cases {
		t.Run(name, func(t *testing.T) {
			require.Error(t, h.DoString(code))
		})
	}
}

func TestPrintAndFiles(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h, world := newHost(t, WithLogger(zap.New(core)))

	path := filepath.Join(t.TempDir(), "spawn.lua")
	require.NoError(t, os.WriteFile(path, []byte(`
		local e = ecs.new("spawned")
		print("spawned", e:name())
		ecs.tick(0.5)
	`), 0o644))

	require.NoError(t, h.DoFile(path))

	_, ok := world.Lookup("spawned")
	require.True(t, ok)

	entries := logs.FilterMessage("spawned\tspawned").All()
	require.Len(t, entries, 1)

	require.Error(t, h.DoFile(filepath.Join(t.TempDir(), "missing.lua")))
}

func TestSetLoggerNil(t *testing.T) {
	t.Cleanup(func() { SetLogger(nil) })

	SetLogger(nil)
	require.NotNil(t, Logger())

	// print goes to the package logger and must not fail on a reset logger
	h, _ := newHost(t)
	require.NoError(t, h.DoString(`print("quiet")`))
}

func mustLookup(t *testing.T, world *flecs.World, path string) flecs.Entity {
	t.Helper()

	e, ok := world.Lookup(path)
	require.True(t, ok, path)
	return e
}
