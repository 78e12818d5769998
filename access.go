package flecs

import (
	"fmt"
	"unsafe"
)

// AccessMode selects how Entity.Get accesses a component.
type AccessMode uint8

const (
	// AccessDefault returns a read only pointer to the owned or inherited
	// value, or nil if the entity does not have the component.
	AccessDefault AccessMode = 0

	// AccessMutable returns a pointer for in place mutation. The component is
	// added with a zero value if the entity does not own it.
	AccessMutable AccessMode = 1

	// AccessEnsure is like AccessMutable, but a newly added value is
	// initialized from an inherited value if there is one.
	AccessEnsure AccessMode = 2

	// AccessModified signals that the component was changed. It returns nil.
	AccessModified AccessMode = 4

	// AccessEnsureModified is AccessEnsure followed by AccessModified.
	AccessEnsureModified AccessMode = AccessEnsure | AccessModified
)

func (m AccessMode) String() string {
	switch m {
	case AccessDefault:
		return "Default"
	case AccessMutable:
		return "Mutable"
	case AccessEnsure:
		return "Ensure"
	case AccessModified:
		return "Modified"
	case AccessEnsureModified:
		return "EnsureModified"
	default:
		return fmt.Sprintf("AccessMode(%d)", uint8(m))
	}
}

// Get accesses the component id of the entity. The returned pointer points
// into memory owned by the world and stays valid until the next structural
// change of the entity.
//
// With the wasm backend the pointer refers into guest memory, which moves when
// the guest grows its heap. There it is only valid until the next call into
// the world that may allocate, so call Get again instead of keeping it.
//
// Get panics with an *Error of KindInvalidMode if mode is not one of the
// defined access modes.
func (e Entity) Get(id Identifier, mode AccessMode) unsafe.Pointer {
	core, ent, raw := e.core(), e.Raw(), id.Raw()

	switch mode {
	case AccessDefault:
		return core.GetId(ent, raw)

	case AccessMutable:
		return core.GetMutId(ent, raw)

	case AccessEnsure:
		return core.EnsureId(ent, raw)

	case AccessModified:
		core.ModifiedId(ent, raw)
		return nil

	case AccessEnsureModified:
		return core.EnsureModifiedId(ent, raw)

	default:
		panic(&Error{Op: "get", Kind: KindInvalidMode, Detail: mode.String()})
	}
}

// GetAs is Get with the result converted to *T. T must have the memory
// layout of the component.
func GetAs[T any](e Entity, id Identifier, mode AccessMode) *T {
	return (*T)(e.Get(id, mode))
}

// Set writes value into the component and signals the modification. The
// pointer is not kept past the write, so Set is safe on every backend.
func Set[T any](e Entity, id Identifier, value T) {
	*GetAs[T](e, id, AccessEnsure) = value
	e.Get(id, AccessModified)
}
