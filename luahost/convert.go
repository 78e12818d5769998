package luahost

import (
	"encoding/json"
	"maps"
	"slices"

	flecs "github.com/oliverbestmann/flecs-go"
	lua "github.com/yuin/gopher-lua"
)

// decodeJSON converts a JSON document into Lua values.
// Objects and arrays become tables.
func decodeJSON(L *lua.LState, buf []byte) (lua.LValue, error) {
	var value any
	if err := json.Unmarshal(buf, &value); err != nil {
		return lua.LNil, err
	}

	return toLua(L, value), nil
}

func toLua(L *lua.LState, value any) lua.LValue {
	switch value := value.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(value)
	case float64:
		return lua.LNumber(value)
	case string:
		return lua.LString(value)

	case []any:
		table := L.CreateTable(len(value), 0)
		for _, item := range value {
			table.Append(toLua(L, item))
		}

		return table

	case map[string]any:
		table := L.CreateTable(0, len(value))
		for _, key := range slices.Sorted(maps.Keys(value)) {
			table.RawSetString(key, toLua(L, value[key]))
		}

		return table

	default:
		return lua.LNil
	}
}

// fromLua converts a Lua value into Go. A table with a sequence part becomes
// a slice, other tables become maps keyed by the string form of their keys.
func fromLua(value lua.LValue) any {
	switch value := value.(type) {
	case lua.LBool:
		return bool(value)
	case lua.LNumber:
		return float64(value)
	case lua.LString:
		return string(value)

	case *lua.LUserData:
		if e, ok := value.Value.(flecs.Entity); ok {
			return e
		}

		return value.Value

	case *lua.LTable:
		if length := value.Len(); length > 0 {
			items := make([]any, 0, length)
			for idx := 1; idx <= length; idx++ {
				items = append(items, fromLua(value.RawGetInt(idx)))
			}

			return items
		}

		items := map[string]any{}
		value.ForEach(func(key, item lua.LValue) {
			items[key.String()] = fromLua(item)
		})

		return items

	default:
		return nil
	}
}
