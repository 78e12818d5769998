package luahost

import (
	flecs "github.com/oliverbestmann/flecs-go"
	lua "github.com/yuin/gopher-lua"
)

const entityTypeName = "flecs.entity"

var entityMethods = map[string]lua.LGFunction{
	"id":       entityId,
	"name":     entityName,
	"set_name": entitySetName,
	"add":      entityAdd,
	"remove":   entityRemove,
	"has":      entityHas,
	"owns":     entityOwns,
	"parent":   entityParent,
	"children": entityChildren,
	"destroy":  entityDestroy,
	"alive":    entityAlive,
	"json":     entityJSON,
}

func registerEntityType(L *lua.LState) {
	mt := L.NewTypeMetatable(entityTypeName)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), entityMethods))
	L.SetField(mt, "__tostring", L.NewFunction(entityToString))
	L.SetField(mt, "__eq", L.NewFunction(entityEquals))
}

func newEntity(L *lua.LState, e flecs.Entity) *lua.LUserData {
	ud := L.NewUserData()
	ud.Value = e
	L.SetMetatable(ud, L.GetTypeMetatable(entityTypeName))
	return ud
}

func checkEntity(L *lua.LState, n int) flecs.Entity {
	ud := L.CheckUserData(n)
	if e, ok := ud.Value.(flecs.Entity); ok {
		return e
	}

	L.ArgError(n, "entity expected")
	return flecs.Entity{}
}

// checkIdentifier accepts an entity, the path of an entity or a raw id.
func checkIdentifier(L *lua.LState, world *flecs.World, n int) flecs.Identifier {
	switch value := L.Get(n).(type) {
	case *lua.LUserData:
		return checkEntity(L, n)

	case lua.LString:
		e, ok := world.Lookup(string(value))
		if !ok {
			L.ArgError(n, "no entity named "+string(value))
		}

		return e

	case lua.LNumber:
		return flecs.Id(value)

	default:
		L.ArgError(n, "entity, path or id expected")
		return nil
	}
}

func entityId(L *lua.LState) int {
	L.Push(lua.LNumber(checkEntity(L, 1).Raw()))
	return 1
}

func entityName(L *lua.LState) int {
	L.Push(lua.LString(checkEntity(L, 1).Name()))
	return 1
}

func entitySetName(L *lua.LState) int {
	e := checkEntity(L, 1)
	e.SetName(L.CheckString(2))

	L.Push(L.Get(1))
	return 1
}

func entityAdd(L *lua.LState) int {
	e := checkEntity(L, 1)
	e.Add(checkIdentifier(L, e.World(), 2))

	L.Push(L.Get(1))
	return 1
}

func entityRemove(L *lua.LState) int {
	e := checkEntity(L, 1)
	e.Remove(checkIdentifier(L, e.World(), 2))

	L.Push(L.Get(1))
	return 1
}

func entityHas(L *lua.LState) int {
	e := checkEntity(L, 1)
	L.Push(lua.LBool(e.Has(checkIdentifier(L, e.World(), 2))))
	return 1
}

func entityOwns(L *lua.LState) int {
	e := checkEntity(L, 1)
	L.Push(lua.LBool(e.Owns(checkIdentifier(L, e.World(), 2))))
	return 1
}

func entityParent(L *lua.LState) int {
	parent, ok := checkEntity(L, 1).Parent()
	if !ok {
		L.Push(lua.LNil)
		return 1
	}

	L.Push(newEntity(L, parent))
	return 1
}

func entityChildren(L *lua.LState) int {
	children := L.NewTable()
	for child := range checkEntity(L, 1).Children().All() {
		children.Append(newEntity(L, child))
	}

	L.Push(children)
	return 1
}

func entityDestroy(L *lua.LState) int {
	checkEntity(L, 1).Destroy()
	return 0
}

func entityAlive(L *lua.LState) int {
	L.Push(lua.LBool(checkEntity(L, 1).IsAlive()))
	return 1
}

// json returns the entity as a table with parent, name, tags, pairs and components.
func entityJSON(L *lua.LState) int {
	encoded, err := checkEntity(L, 1).MarshalJSON()
	if err != nil {
		L.RaiseError("%s", err)
	}

	value, err := decodeJSON(L, encoded)
	if err != nil {
		L.RaiseError("decode entity: %s", err)
	}

	L.Push(value)
	return 1
}

func entityToString(L *lua.LState) int {
	L.Push(lua.LString(checkEntity(L, 1).String()))
	return 1
}

func entityEquals(L *lua.LState) int {
	L.Push(lua.LBool(checkEntity(L, 1) == checkEntity(L, 2)))
	return 1
}
