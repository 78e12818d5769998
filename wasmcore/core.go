package wasmcore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/oliverbestmann/flecs-go/native"
	"github.com/tetratelabs/wazero/api"
)

// Core is a world living in its own instance of the module.
type Core struct {
	lib    *Library
	ctx    context.Context
	mod    api.Module
	mem    api.Memory
	world  uint64
	fns    map[string]api.Function
	closed bool
}

var _ native.Core = (*Core)(nil)

func newCore(lib *Library, mod api.Module) *Core {
	return &Core{
		lib: lib,
		ctx: lib.ctx,
		mod: mod,
		mem: mod.Memory(),
		fns: map[string]api.Function{},
	}
}

func (c *Core) fn(name string) api.Function {
	if fn, ok := c.fns[name]; ok {
		return fn
	}

	fn := c.mod.ExportedFunction(name)
	if fn == nil {
		native.Faultf(name, "function is not exported")
	}

	c.fns[name] = fn
	return fn
}

func (c *Core) tryCall(name string, args ...uint64) (uint64, error) {
	results, err := c.fn(name).Call(c.ctx, args...)
	if err != nil {
		return 0, err
	}

	if len(results) == 0 {
		return 0, nil
	}

	return results[0], nil
}

// call invokes an export. A trap in the guest is raised as a native fault.
func (c *Core) call(name string, args ...uint64) uint64 {
	if c.closed {
		native.Faultf(name, "world was closed")
	}

	result, err := c.tryCall(name, args...)
	if err != nil {
		native.Faultf(name, "%s", err)
	}

	return result
}

// callWorld invokes an export that takes the world as first argument.
func (c *Core) callWorld(name string, args ...uint64) uint64 {
	return c.call(name, append([]uint64{c.world}, args...)...)
}

func (c *Core) callBool(name string, args ...uint64) bool {
	return c.callWorld(name, args...) != 0
}

// lastError returns the last error logged by the core.
func (c *Core) lastError(op string) error {
	msg := c.readString(c.call("fb_last_error"))
	if msg == "" {
		msg = "unknown error"
	}

	return errors.New(op + ": " + msg)
}

func (c *Core) Fini() {
	c.callWorld("fb_fini")
	c.closed = true

	_ = c.mod.Close(c.ctx)
}

func (c *Core) Quit() {
	c.callWorld("fb_quit")
}

func (c *Core) ShouldQuit() bool {
	return c.callBool("fb_should_quit")
}

func (c *Core) Progress(delta float32) bool {
	return c.callBool("fb_progress", api.EncodeF32(delta))
}

func (c *Core) New() native.Id {
	return c.callWorld("fb_new")
}

func (c *Core) Delete(e native.Id) {
	c.callWorld("fb_delete", e)
}

func (c *Core) AddId(e, id native.Id) {
	c.callWorld("fb_add_id", e, id)
}

func (c *Core) RemoveId(e, id native.Id) {
	c.callWorld("fb_remove_id", e, id)
}

func (c *Core) Clear(e native.Id) {
	c.callWorld("fb_clear", e)
}

func (c *Core) Enable(e native.Id, enabled bool) {
	c.callWorld("fb_enable", e, encodeBool(enabled))
}

func (c *Core) EnableId(e, id native.Id, enabled bool) {
	c.callWorld("fb_enable_id", e, id, encodeBool(enabled))
}

func (c *Core) IsEnabledId(e, id native.Id) bool {
	return c.callBool("fb_is_enabled_id", e, id)
}

func (c *Core) IsValid(e native.Id) bool {
	return c.callBool("fb_is_valid", e)
}

func (c *Core) IsAlive(e native.Id) bool {
	return c.callBool("fb_is_alive", e)
}

func (c *Core) Exists(e native.Id) bool {
	return c.callBool("fb_exists", e)
}

func (c *Core) GetParent(e native.Id) native.Id {
	return c.callWorld("fb_get_parent", e)
}

func (c *Core) CountId(id native.Id) int32 {
	return api.DecodeI32(c.callWorld("fb_count_id", id))
}

func (c *Core) Children(parent native.Id) native.ChildCursor {
	return &cursor{core: c, it: c.callWorld("fb_children", parent)}
}

// view exposes size bytes of guest memory at ptr. The view is invalidated
// when the guest grows its memory.
func (c *Core) view(ptr uint64, id native.Id) native.Ptr {
	if ptr == 0 {
		return nil
	}

	size := api.DecodeU32(c.callWorld("fb_id_size", id))
	if size == 0 {
		return nil
	}

	buf, ok := c.mem.Read(uint32(ptr), size)
	if !ok {
		native.Faultf("get", "pointer %#x out of bounds", ptr)
	}

	return native.Ptr(&buf[0])
}

func (c *Core) GetId(e, id native.Id) native.Ptr {
	return c.view(c.callWorld("fb_get_id", e, id), id)
}

func (c *Core) GetMutId(e, id native.Id) native.Ptr {
	return c.view(c.callWorld("fb_get_mut_id", e, id), id)
}

func (c *Core) EnsureId(e, id native.Id) native.Ptr {
	return c.view(c.callWorld("fb_ensure_id", e, id), id)
}

func (c *Core) ModifiedId(e, id native.Id) {
	c.callWorld("fb_modified_id", e, id)
}

func (c *Core) EnsureModifiedId(e, id native.Id) native.Ptr {
	return c.view(c.callWorld("fb_ensure_modified_id", e, id), id)
}

func (c *Core) HasId(e, id native.Id) bool {
	return c.callBool("fb_has_id", e, id)
}

func (c *Core) OwnsId(e, id native.Id) bool {
	return c.callBool("fb_owns_id", e, id)
}

func (c *Core) GetType(e native.Id) []native.Id {
	count := api.DecodeU32(c.callWorld("fb_type_count", e))
	if count == 0 {
		return nil
	}

	return c.readIds(c.callWorld("fb_type_ids", e), count)
}

func (c *Core) GetName(e native.Id) native.CString {
	return c.readCString(c.callWorld("fb_get_name", e))
}

func (c *Core) SetName(e native.Id, name native.CString) native.Id {
	return c.withString(name, func(ptr uint64) uint64 {
		return c.callWorld("fb_set_name", e, ptr)
	})
}

func (c *Core) GetSymbol(e native.Id) native.CString {
	return c.readCString(c.callWorld("fb_get_symbol", e))
}

func (c *Core) SetSymbol(e native.Id, symbol native.CString) native.Id {
	return c.withString(symbol, func(ptr uint64) uint64 {
		return c.callWorld("fb_set_symbol", e, ptr)
	})
}

func (c *Core) SetAlias(e native.Id, alias native.CString) native.Id {
	return c.withString(alias, func(ptr uint64) uint64 {
		return c.callWorld("fb_set_alias", e, ptr)
	})
}

func (c *Core) Lookup(path native.CString) native.Id {
	return c.withString(path, func(ptr uint64) uint64 {
		return c.callWorld("fb_lookup", ptr)
	})
}

func (c *Core) LookupChild(parent native.Id, path native.CString) native.Id {
	return c.withString(path, func(ptr uint64) uint64 {
		return c.callWorld("fb_lookup_child", parent, ptr)
	})
}

func (c *Core) LookupSymbol(symbol native.CString) native.Id {
	return c.withString(symbol, func(ptr uint64) uint64 {
		return c.callWorld("fb_lookup_symbol", ptr)
	})
}

func (c *Core) CreateType(e native.Id, desc native.TypeDesc) (native.Id, error) {
	c.call("fb_type_begin")

	// the names must stay valid until the type is created
	var names []uint64
	defer func() {
		for _, ptr := range names {
			c.free(ptr)
		}
	}()

	switch desc.Kind {
	case native.TypeStruct:
		for _, member := range desc.Members {
			ptr := c.writeCString(native.ToCString(member.Name))
			names = append(names, ptr)

			if c.call("fb_type_member", ptr, member.Type, api.EncodeI32(member.Count)) == 0 {
				return 0, fmt.Errorf("create type: too many members")
			}
		}

		id := c.callWorld("fb_type_struct", e)
		if id == 0 {
			return 0, c.lastError("create struct")
		}

		return id, nil

	case native.TypeEnum:
		for _, constant := range desc.Constants {
			ptr := c.writeCString(native.ToCString(constant.Name))
			names = append(names, ptr)

			if c.call("fb_type_constant", ptr, api.EncodeI32(constant.Value), encodeBool(constant.HasValue)) == 0 {
				return 0, fmt.Errorf("create type: too many constants")
			}
		}

		id := c.callWorld("fb_type_enum", e)
		if id == 0 {
			return 0, c.lastError("create enum")
		}

		return id, nil

	default:
		return 0, fmt.Errorf("create type: unknown kind %d", desc.Kind)
	}
}

func (c *Core) ScriptInitCode(code native.CString) (native.Id, error) {
	id := c.withString(code, func(ptr uint64) uint64 {
		return c.callWorld("fb_script_init_code", ptr)
	})

	if id == 0 {
		return 0, c.lastError("script")
	}

	return id, nil
}

func (c *Core) ScriptUpdate(e, template native.Id, code native.CString) error {
	result := c.withString(code, func(ptr uint64) uint64 {
		return c.callWorld("fb_script_update", e, template, ptr)
	})

	if api.DecodeI32(result) != 0 {
		return c.lastError("script update")
	}

	return nil
}

func (c *Core) ScriptClear(e, template native.Id) {
	c.callWorld("fb_script_clear", e, template)
}

func (c *Core) ScriptParse(name, code native.CString) (native.Script, error) {
	namePtr := c.writeCString(name)
	defer c.free(namePtr)

	ptr := c.withString(code, func(codePtr uint64) uint64 {
		return c.callWorld("fb_script_parse", namePtr, codePtr)
	})

	if ptr == 0 {
		return nil, c.lastError("script parse")
	}

	return &script{core: c, ptr: ptr}, nil
}

func (c *Core) QueryExpr(expr native.CString) (native.Query, error) {
	ptr := c.withString(expr, func(ptr uint64) uint64 {
		return c.callWorld("fb_query_new", ptr)
	})

	if ptr == 0 {
		return nil, c.lastError("query")
	}

	return &query{core: c, ptr: ptr}, nil
}

func (c *Core) WorldToJSON() (string, error) {
	return c.ownedJSON("world to json", c.callWorld("fb_world_to_json"))
}

func (c *Core) EntityToJSON(e native.Id) (string, error) {
	return c.ownedJSON("entity to json", c.callWorld("fb_entity_to_json", e))
}

func (c *Core) EntityStr(e native.Id) string {
	return c.readOwnedString(c.callWorld("fb_entity_str", e))
}

func (c *Core) ownedJSON(op string, ptr uint64) (string, error) {
	if ptr == 0 {
		return "", c.lastError(op)
	}

	return c.readOwnedString(ptr), nil
}

func (c *Core) DeferBegin() bool {
	return c.callBool("fb_defer_begin")
}

func (c *Core) DeferEnd() bool {
	return c.callBool("fb_defer_end")
}

func (c *Core) DeferSuspend() {
	c.callWorld("fb_defer_suspend")
}

func (c *Core) DeferResume() {
	c.callWorld("fb_defer_resume")
}

func (c *Core) IsDeferred() bool {
	return c.callBool("fb_is_deferred")
}

func (c *Core) readIds(ptr uint64, count uint32) []native.Id {
	buf, ok := c.mem.Read(uint32(ptr), count*8)
	if !ok {
		native.Faultf("read_ids", "%d ids at %#x out of bounds", count, ptr)
	}

	ids := make([]native.Id, count)
	for idx := range ids {
		ids[idx] = binary.LittleEndian.Uint64(buf[idx*8:])
	}

	return ids
}

func encodeBool(value bool) uint64 {
	if value {
		return 1
	}

	return 0
}
