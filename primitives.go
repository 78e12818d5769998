package flecs

import (
	"fmt"
	"sync"

	"github.com/oliverbestmann/flecs-go/native"
)

// Names of the primitive types that can be used as struct member types.
const (
	PrimBool   = "bool"
	PrimChar   = "char"
	PrimByte   = "byte"
	PrimU8     = "u8"
	PrimU16    = "u16"
	PrimU32    = "u32"
	PrimU64    = "u64"
	PrimUPtr   = "uptr"
	PrimI8     = "i8"
	PrimI16    = "i16"
	PrimI32    = "i32"
	PrimI64    = "i64"
	PrimIPtr   = "iptr"
	PrimF32    = "f32"
	PrimF64    = "f64"
	PrimString = "string"
	PrimEntity = "entity"
	PrimId     = "id"
)

var primitiveNames = []string{
	PrimBool, PrimChar, PrimByte,
	PrimU8, PrimU16, PrimU32, PrimU64, PrimUPtr,
	PrimI8, PrimI16, PrimI32, PrimI64, PrimIPtr,
	PrimF32, PrimF64,
	PrimString, PrimEntity, PrimId,
}

// primitiveTable holds the primitive ids of a library. The table is loaded
// once and never changes afterwards.
type primitiveTable struct {
	once sync.Once
	ids  map[string]Id
	err  error
}

var primitives struct {
	mu     sync.Mutex
	tables map[native.Library]*primitiveTable
}

func primitivesOf(lib native.Library) (map[string]Id, error) {
	primitives.mu.Lock()

	if primitives.tables == nil {
		primitives.tables = map[native.Library]*primitiveTable{}
	}

	table, ok := primitives.tables[lib]
	if !ok {
		table = &primitiveTable{}
		primitives.tables[lib] = table
	}

	primitives.mu.Unlock()

	table.once.Do(func() {
		table.ids, table.err = loadPrimitives(lib)
	})

	return table.ids, table.err
}

func loadPrimitives(lib native.Library) (map[string]Id, error) {
	raw, err := lib.Primitives()
	if err != nil {
		return nil, err
	}

	ids := make(map[string]Id, len(primitiveNames))
	for _, name := range primitiveNames {
		id, ok := raw[name]
		if !ok || id == 0 {
			return nil, fmt.Errorf("library %q does not provide primitive %q", lib.Name(), name)
		}

		ids[name] = Id(id)
	}

	return ids, nil
}
