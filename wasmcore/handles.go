package wasmcore

import (
	"fmt"

	"github.com/oliverbestmann/flecs-go/native"
	"github.com/tetratelabs/wazero/api"
)

// Flags understood by fb_query_exec.
const (
	execTable     = 1 << 0
	execBuiltin   = 1 << 1
	execInherited = 1 << 2
	execMatches   = 1 << 3
)

type cursor struct {
	core *Core
	it   uint64
	done bool
}

func (c *cursor) Next() ([]native.Id, bool) {
	if c.it == 0 {
		native.Faultf("children_next", "cursor was released")
	}

	if c.done {
		return nil, false
	}

	if c.core.call("fb_children_next", c.it) == 0 {
		c.done = true
		return nil, false
	}

	count := api.DecodeU32(c.core.call("fb_iter_count", c.it))
	if count == 0 {
		return []native.Id{}, true
	}

	return c.core.readIds(c.core.call("fb_iter_entities", c.it), count), true
}

func (c *cursor) Fini() {
	if c.it == 0 {
		native.Faultf("children_fini", "cursor was released")
	}

	// an exhausted iterator was already released by the core
	c.core.call("fb_children_fini", c.it, encodeBool(c.done))
	c.it = 0
}

type query struct {
	core *Core
	ptr  uint64
}

func (q *query) handle(op string) uint64 {
	if q.ptr == 0 {
		native.Faultf(op, "query was released")
	}

	return q.ptr
}

func (q *query) Exec(desc native.ExecDesc) (string, error) {
	ptr := q.handle("query_exec")

	for _, binding := range desc.Vars {
		index := q.FindVar(native.ToCString(binding.Name))
		if index < 0 {
			return "", fmt.Errorf("query exec: unknown variable %q", binding.Name)
		}

		if q.core.call("fb_query_bind", api.EncodeI32(index), binding.Value) == 0 {
			return "", fmt.Errorf("query exec: too many variables")
		}
	}

	var flags int32
	if desc.Table {
		flags |= execTable
	}

	if desc.Builtin {
		flags |= execBuiltin
	}

	if desc.Inherited {
		flags |= execInherited
	}

	if desc.Matches {
		flags |= execMatches
	}

	return q.core.ownedJSON("query exec", q.core.call("fb_query_exec", ptr, api.EncodeI32(flags)))
}

func (q *query) Str() string {
	return q.core.readOwnedString(q.core.call("fb_query_str", q.handle("query_str")))
}

func (q *query) FindVar(name native.CString) int32 {
	ptr := q.handle("query_find_var")

	return api.DecodeI32(q.core.withString(name, func(namePtr uint64) uint64 {
		return q.core.call("fb_query_find_var", ptr, namePtr)
	}))
}

func (q *query) VarCount() int32 {
	return api.DecodeI32(q.core.call("fb_query_var_count", q.handle("query_var_count")))
}

func (q *query) VarName(index int32) string {
	ptr := q.handle("query_var_name")
	return q.core.readString(q.core.call("fb_query_var_name", ptr, api.EncodeI32(index)))
}

func (q *query) VarIsEntity(index int32) bool {
	ptr := q.handle("query_var_is_entity")
	return q.core.call("fb_query_var_is_entity", ptr, api.EncodeI32(index)) != 0
}

func (q *query) Fini() {
	q.core.call("fb_query_fini", q.handle("query_fini"))
	q.ptr = 0
}

type script struct {
	core *Core
	ptr  uint64
}

func (s *script) Eval(vars []native.Var) error {
	if s.ptr == 0 {
		native.Faultf("script_eval", "script was released")
	}

	c := s.core

	// variable names are referenced by the core until the vars are released
	var names []uint64
	defer func() {
		for _, ptr := range names {
			c.free(ptr)
		}
	}()

	varsPtr := c.callWorld("fb_script_vars_new")
	defer c.call("fb_script_vars_free", varsPtr)

	for _, v := range vars {
		name := c.writeCString(native.ToCString(v.Name))
		names = append(names, name)

		switch v.Kind {
		case native.VarBool:
			c.call("fb_script_var_bool", varsPtr, name, encodeBool(v.Bool))
		case native.VarNumber:
			c.call("fb_script_var_number", varsPtr, name, api.EncodeF64(v.Number))
		case native.VarString:
			c.withString(native.ToCString(v.String), func(value uint64) uint64 {
				return c.call("fb_script_var_string", varsPtr, name, value)
			})
		default:
			return fmt.Errorf("script eval: variable %q has unknown kind %d", v.Name, v.Kind)
		}
	}

	if api.DecodeI32(c.call("fb_script_eval", s.ptr, varsPtr)) != 0 {
		return c.lastError("script eval")
	}

	return nil
}

func (s *script) Free() {
	if s.ptr == 0 {
		native.Faultf("script_free", "script was released")
	}

	s.core.call("fb_script_free", s.ptr)
	s.ptr = 0
}
