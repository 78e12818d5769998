package flecs

import (
	"fmt"

	"github.com/oliverbestmann/flecs-go/native"
)

// Id is an entity, component or pair id of a world.
type Id uint64

// Raw returns the id in the encoding of the native core.
func (id Id) Raw() native.Id {
	return native.Id(id)
}

func (id Id) IsPair() bool {
	return native.IsPair(native.Id(id))
}

func (id Id) String() string {
	if id.IsPair() {
		return fmt.Sprintf("(%d,%d)", native.PairFirst(native.Id(id)), native.PairSecond(native.Id(id)))
	}

	return fmt.Sprintf("#%d", native.Index(native.Id(id)))
}

// Identifier is implemented by Id and Entity. Operations that take an id
// accept either.
type Identifier interface {
	Raw() native.Id
}

var (
	_ Identifier = Id(0)
	_ Identifier = Entity{}
)

// Pair returns the id of the (rel, target) pair.
func Pair(rel, target Identifier) Id {
	return Id(native.Pair(rel.Raw(), target.Raw()))
}

// Entity is a handle to an entity of a World. It does not own the entity,
// copies of an Entity refer to the same entity.
//
// The zero Entity belongs to no world. Calling any method other than Id,
// Raw or IsZero on it panics.
type Entity struct {
	world *World
	id    Id
}

func (e Entity) Id() Id {
	return e.id
}

func (e Entity) Raw() native.Id {
	return native.Id(e.id)
}

func (e Entity) World() *World {
	return e.world
}

func (e Entity) IsZero() bool {
	return e.id == 0
}

func (e Entity) core() native.Core {
	return e.world.core
}

// Destroy deletes the entity and all its children.
func (e Entity) Destroy() {
	e.core().Delete(e.Raw())
}

// Clear removes all components from the entity.
func (e Entity) Clear() {
	e.core().Clear(e.Raw())
}

func (e Entity) Add(id Identifier) Entity {
	e.core().AddId(e.Raw(), id.Raw())
	return e
}

func (e Entity) Remove(id Identifier) Entity {
	e.core().RemoveId(e.Raw(), id.Raw())
	return e
}

// Enable enables or disables the entity. Disabled entities are not matched
// by queries unless the query asks for them.
func (e Entity) Enable(enabled bool) {
	e.core().Enable(e.Raw(), enabled)
}

func (e Entity) EnableId(id Identifier, enabled bool) {
	e.core().EnableId(e.Raw(), id.Raw(), enabled)
}

func (e Entity) IsEnabled(id Identifier) bool {
	return e.core().IsEnabledId(e.Raw(), id.Raw())
}

// IsValid reports whether the id is well formed and not an outdated
// generation of its slot.
func (e Entity) IsValid() bool {
	return e.core().IsValid(e.Raw())
}

// IsAlive reports whether the entity exists in its current generation.
func (e Entity) IsAlive() bool {
	return e.core().IsAlive(e.Raw())
}

// Exists reports whether the slot of the entity was ever used, ignoring
// the generation.
func (e Entity) Exists() bool {
	return e.core().Exists(e.Raw())
}

// Has reports whether the entity has the id, either owned or inherited.
func (e Entity) Has(id Identifier) bool {
	return e.core().HasId(e.Raw(), id.Raw())
}

// Owns reports whether the entity has the id itself.
func (e Entity) Owns(id Identifier) bool {
	return e.core().OwnsId(e.Raw(), id.Raw())
}

// Parent returns the target of the ChildOf pair of the entity.
func (e Entity) Parent() (Entity, bool) {
	return e.world.found(e.core().GetParent(e.Raw()))
}

// Name returns the name of the entity, or an empty string.
func (e Entity) Name() string {
	return e.core().GetName(e.Raw()).String()
}

// SetName sets the name of the entity. An empty name removes it.
func (e Entity) SetName(name string) Entity {
	e.core().SetName(e.Raw(), native.ToCString(name))
	return e
}

func (e Entity) Symbol() string {
	return e.core().GetSymbol(e.Raw()).String()
}

func (e Entity) SetSymbol(symbol string) Entity {
	e.core().SetSymbol(e.Raw(), native.ToCString(symbol))
	return e
}

// SetAlias registers an additional root level name for the entity.
func (e Entity) SetAlias(alias string) Entity {
	e.core().SetAlias(e.Raw(), native.ToCString(alias))
	return e
}

// Lookup resolves a dotted path relative to this entity.
func (e Entity) Lookup(path string) (Entity, bool) {
	return e.world.found(e.core().LookupChild(e.Raw(), native.ToCString(path)))
}

// Type returns the ids of the entity. Pair ids are returned as entities too.
func (e Entity) Type() []Entity {
	ids := e.core().GetType(e.Raw())

	entities := make([]Entity, 0, len(ids))
	for _, id := range ids {
		entities = append(entities, e.world.entity(id))
	}

	return entities
}

// String formats the path of the entity followed by its type.
func (e Entity) String() string {
	if e.world == nil {
		return "Entity(0)"
	}

	return e.core().EntityStr(e.Raw())
}
