package simcore

import "github.com/oliverbestmann/flecs-go/native"

type Id = native.Id

// builtin entities, their index equals their id
const (
	EcsComponent Id = iota + 1
	EcsChildOf
	EcsIsA
	EcsWildcard
	EcsDisabled
	EcsPrefab
	EcsStruct
	EcsEnum
	EcsMember
	EcsConstant
	EcsScript
	firstPrimitive
)

// ids below firstUserId are reserved for the builtin bootstrap
const firstUserId Id = 256

var builtinNames = []string{
	EcsComponent: "Component",
	EcsChildOf:   "ChildOf",
	EcsIsA:       "IsA",
	EcsWildcard:  "*",
	EcsDisabled:  "Disabled",
	EcsPrefab:    "Prefab",
	EcsStruct:    "Struct",
	EcsEnum:      "Enum",
	EcsMember:    "Member",
	EcsConstant:  "Constant",
	EcsScript:    "Script",
}

type primKind uint8

const (
	primBool primKind = iota
	primChar
	primByte
	primU8
	primU16
	primU32
	primU64
	primUPtr
	primI8
	primI16
	primI32
	primI64
	primIPtr
	primF32
	primF64
	primString
	primEntity
	primId
)

type primitiveDef struct {
	name string
	kind primKind
	size uintptr
}

var primitiveDefs = []primitiveDef{
	{"bool", primBool, 1},
	{"char", primChar, 1},
	{"byte", primByte, 1},
	{"u8", primU8, 1},
	{"u16", primU16, 2},
	{"u32", primU32, 4},
	{"u64", primU64, 8},
	{"uptr", primUPtr, 8},
	{"i8", primI8, 1},
	{"i16", primI16, 2},
	{"i32", primI32, 4},
	{"i64", primI64, 8},
	{"iptr", primIPtr, 8},
	{"f32", primF32, 4},
	{"f64", primF64, 8},
	{"string", primString, 8},
	{"entity", primEntity, 8},
	{"id", primId, 8},
}

var primitiveIds = func() map[string]Id {
	ids := map[string]Id{}
	for idx, def := range primitiveDefs {
		ids[def.name] = firstPrimitive + Id(idx)
	}

	return ids
}()

func primitiveId(kind primKind) Id {
	return firstPrimitive + Id(kind)
}

func (w *World) bootstrap() {
	for id := EcsComponent; id < firstPrimitive; id++ {
		w.allocAt(id)
		w.records[id].name = builtinNames[id]
	}

	for idx, def := range primitiveDefs {
		id := firstPrimitive + Id(idx)
		w.allocAt(id)
		w.records[id].name = def.name
		w.infos[id] = &typeInfo{size: def.size, align: def.size, kind: metaPrimitive, prim: def.kind}
	}

	i32 := primitiveId(primI32)

	metaTypes := []struct {
		entity  Id
		members []native.MemberDesc
	}{
		{EcsComponent, []native.MemberDesc{
			{Name: "size", Type: i32},
			{Name: "alignment", Type: i32},
		}},
		{EcsMember, []native.MemberDesc{
			{Name: "type", Type: primitiveId(primEntity)},
			{Name: "count", Type: i32},
			{Name: "offset", Type: i32},
		}},
		{EcsConstant, []native.MemberDesc{
			{Name: "value", Type: i32},
		}},
	}

	// the meta components describe each other, so all infos must exist
	// before the first reflection entity is created
	infos := make([]*typeInfo, len(metaTypes))
	for idx, meta := range metaTypes {
		info, err := w.structInfo(meta.members)
		if err != nil {
			panic(err)
		}

		infos[idx] = info
		w.infos[meta.entity] = info
	}

	for idx, meta := range metaTypes {
		w.defineType(meta.entity, infos[idx])
	}

	// primitives carry the Component value too
	for idx := range primitiveDefs {
		w.setComponentInfo(firstPrimitive + Id(idx))
	}

	if w.nextIndex > firstUserId {
		panic("bootstrap exceeds the builtin id range")
	}

	w.nextIndex = firstUserId
}

func isBuiltin(id Id) bool {
	return native.Index(id) < firstUserId
}
