// Package luahost exposes a world to Lua scripts running in a gopher-lua VM.
//
// Scripts see a global ecs table:
//
//	local e = ecs.new("player")
//	e:add("Tag")
//	for _, row in ipairs(ecs.query("Position")) do
//	  print(row.name, row.fields[1].x)
//	end
//
// A Host is not safe for concurrent use.
package luahost

import (
	"fmt"
	"strings"

	flecs "github.com/oliverbestmann/flecs-go"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Host wraps a single Lua VM bound to a world.
type Host struct {
	vm    *lua.LState
	world *flecs.World
	log   *zap.Logger
}

type Option func(*Host)

// WithLogger sets the logger. Lua print output is logged at info level.
func WithLogger(log *zap.Logger) Option {
	return func(h *Host) {
		if log != nil {
			h.log = log
		}
	}
}

// New creates a VM with the standard libraries and the ecs table.
func New(world *flecs.World, opts ...Option) *Host {
	h := &Host{
		vm:    lua.NewState(),
		world: world,
		log:   Logger(),
	}

	for _, opt := range opts {
		opt(h)
	}

	h.vm.SetGlobal("API_VERSION", lua.LNumber(1))

	registerEntityType(h.vm)
	h.registerModule()

	return h
}

// DoFile runs a Lua file.
func (h *Host) DoFile(path string) error {
	if err := h.vm.DoFile(path); err != nil {
		return fmt.Errorf("run %s: %w", path, err)
	}

	h.log.Debug("lua script executed", zap.String("file", path))
	return nil
}

// DoString runs a chunk of Lua code.
func (h *Host) DoString(code string) error {
	if err := h.vm.DoString(code); err != nil {
		return fmt.Errorf("run lua chunk: %w", err)
	}

	return nil
}

// Global returns the value of a global variable converted to Go.
// Tables become maps or slices and entities are returned as flecs.Entity.
func (h *Host) Global(name string) any {
	return fromLua(h.vm.GetGlobal(name))
}

// Close releases the VM. The world is not closed.
func (h *Host) Close() {
	h.vm.Close()
}

func (h *Host) registerModule() {
	mod := h.vm.SetFuncs(h.vm.NewTable(), map[string]lua.LGFunction{
		"new":    h.luaNew,
		"lookup": h.luaLookup,
		"entity": h.luaEntity,
		"query":  h.luaQuery,
		"script": h.luaScript,
		"defer":  h.luaDefer,
		"tick":   h.luaTick,
		"quit":   h.luaQuit,
		"count":  h.luaCount,
	})

	h.vm.SetGlobal("ecs", mod)
	h.vm.SetGlobal("print", h.vm.NewFunction(h.luaPrint))
}

// ecs.new([name])
func (h *Host) luaNew(L *lua.LState) int {
	var e flecs.Entity
	if name := L.OptString(1, ""); name != "" {
		e = h.world.NewNamed(name)
	} else {
		e = h.world.New()
	}

	L.Push(newEntity(L, e))
	return 1
}

// ecs.lookup(path) returns nil if no entity has the path.
func (h *Host) luaLookup(L *lua.LState) int {
	e, ok := h.world.Lookup(L.CheckString(1))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}

	L.Push(newEntity(L, e))
	return 1
}

// ecs.entity(id)
func (h *Host) luaEntity(L *lua.LState) int {
	id := flecs.Id(L.CheckNumber(1))
	L.Push(newEntity(L, h.world.Entity(id)))
	return 1
}

// ecs.query(expr[, opts]) returns the result rows as tables.
func (h *Host) luaQuery(L *lua.LState) int {
	expr := L.CheckString(1)
	opts := execOptions(L, L.OptTable(2, nil))

	q, err := h.world.Query(expr)
	if err != nil {
		L.RaiseError("%s", err)
	}

	defer q.Close()

	rows, err := q.Exec(opts)
	if err != nil {
		L.RaiseError("%s", err)
	}

	result := L.CreateTable(len(rows), 0)
	for _, row := range rows {
		value, err := decodeJSON(L, row)
		if err != nil {
			L.RaiseError("decode query row: %s", err)
		}

		result.Append(value)
	}

	L.Push(result)
	return 1
}

func execOptions(L *lua.LState, table *lua.LTable) flecs.ExecOptions {
	var opts flecs.ExecOptions
	if table == nil {
		return opts
	}

	opts.Table = lua.LVAsBool(table.RawGetString("table"))
	opts.Builtin = lua.LVAsBool(table.RawGetString("builtin"))
	opts.Inherited = lua.LVAsBool(table.RawGetString("inherited"))
	opts.Matches = lua.LVAsBool(table.RawGetString("matches"))

	if vars, ok := table.RawGetString("vars").(*lua.LTable); ok {
		opts.Variables = variables(L, vars)
	}

	return opts
}

// ecs.script(code[, vars]) parses and evaluates code once.
func (h *Host) luaScript(L *lua.LState) int {
	code := L.CheckString(1)

	var vars flecs.Vars
	if table := L.OptTable(2, nil); table != nil {
		vars = variables(L, table)
	}

	script, err := h.world.Parse(code)
	if err != nil {
		L.RaiseError("%s", err)
	}

	defer script.Close()

	if err := script.Eval(vars); err != nil {
		L.RaiseError("%s", err)
	}

	return 0
}

// ecs.defer(fn) calls fn with all operations deferred until it returns.
func (h *Host) luaDefer(L *lua.LState) int {
	fn := L.CheckFunction(1)

	h.world.Deferred(func() {
		L.Push(fn)
		L.Call(0, 0)
	})

	return 0
}

// ecs.tick([dt])
func (h *Host) luaTick(L *lua.LState) int {
	dt := float32(L.OptNumber(1, 0))
	L.Push(lua.LBool(h.world.Progress(dt)))
	return 1
}

func (h *Host) luaQuit(L *lua.LState) int {
	h.world.Quit()
	return 0
}

// ecs.count(id)
func (h *Host) luaCount(L *lua.LState) int {
	L.Push(lua.LNumber(h.world.Count(checkIdentifier(L, h.world, 1))))
	return 1
}

func (h *Host) luaPrint(L *lua.LState) int {
	var parts []string
	for idx := 1; idx <= L.GetTop(); idx++ {
		parts = append(parts, L.ToStringMeta(L.Get(idx)).String())
	}

	h.log.Info(strings.Join(parts, "\t"), zap.String("source", "lua"))
	return 0
}

// variables converts a table of name/value pairs into Go values.
func variables(L *lua.LState, table *lua.LTable) map[string]any {
	vars := map[string]any{}

	table.ForEach(func(key, value lua.LValue) {
		name, ok := key.(lua.LString)
		if !ok {
			L.RaiseError("variable names must be strings, got %s", key.Type())
		}

		vars[string(name)] = fromLua(value)
	})

	return vars
}
