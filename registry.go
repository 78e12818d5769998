package flecs

import (
	"fmt"
	"slices"
	"sync"

	"github.com/oliverbestmann/flecs-go/native"
	"go.uber.org/zap"
)

// maxMembers is the largest number of members a struct type can have.
const maxMembers = 32

type TypeKind uint8

const (
	StructKind TypeKind = iota
	EnumKind
)

func (k TypeKind) String() string {
	switch k {
	case StructKind:
		return "struct"
	case EnumKind:
		return "enum"
	default:
		return fmt.Sprintf("TypeKind(%d)", uint8(k))
	}
}

// MemberDef is a single member of a struct type. Type is the name of a
// primitive or of another type. A Count greater than zero declares an array.
type MemberDef struct {
	Name  string `yaml:"name"`
	Type  string `yaml:"type"`
	Count int32  `yaml:"count,omitempty"`
}

// ConstantDef is a single constant of an enum type. Constants without a
// value continue counting from the previous constant.
type ConstantDef struct {
	Name  string `yaml:"name"`
	Value *int32 `yaml:"value,omitempty"`
}

// Const returns a constant with an explicit value.
func Const(name string, value int32) ConstantDef {
	return ConstantDef{Name: name, Value: &value}
}

// TypeDef describes a component type that is created in every world
// constructed with the registry that holds it.
type TypeDef struct {
	Name      string
	Kind      TypeKind
	Members   []MemberDef
	Constants []ConstantDef
}

// Ordinals returns the value of every constant of an enum type.
func (def TypeDef) Ordinals() map[string]int {
	ordinals := make(map[string]int, len(def.Constants))

	next := 0
	for _, constant := range def.Constants {
		if constant.Value != nil {
			next = int(*constant.Value)
		}

		ordinals[constant.Name] = next
		next++
	}

	return ordinals
}

func (def TypeDef) validate() error {
	fail := func(format string, args ...any) error {
		return &Error{Op: "register", Kind: KindRegistration, Name: def.Name, Detail: fmt.Sprintf(format, args...)}
	}

	if def.Name == "" {
		return fail("type has no name")
	}

	switch def.Kind {
	case StructKind:
		// a struct without members has no layout, use a tag entity instead
		if len(def.Members) == 0 {
			return fail("struct has no members")
		}

		if len(def.Members) > maxMembers {
			return fail("struct has %d members, at most %d are supported", len(def.Members), maxMembers)
		}

		var seen []string
		for _, member := range def.Members {
			switch {
			case member.Name == "":
				return fail("member without a name")
			case member.Type == "":
				return fail("member %q has no type", member.Name)
			case member.Count < 0:
				return fail("member %q has a negative count", member.Name)
			case slices.Contains(seen, member.Name):
				return fail("duplicate member %q", member.Name)
			}

			seen = append(seen, member.Name)
		}

	case EnumKind:
		if len(def.Constants) == 0 {
			return fail("enum has no constants")
		}

		var seen []string
		for _, constant := range def.Constants {
			if constant.Name == "" {
				return fail("constant without a name")
			}

			if slices.Contains(seen, constant.Name) {
				return fail("duplicate constant %q", constant.Name)
			}

			seen = append(seen, constant.Name)
		}

	default:
		return fail("unknown kind %s", def.Kind)
	}

	return nil
}

// Registry collects type definitions before a world exists.
// It is safe for concurrent use.
type Registry struct {
	mu    sync.Mutex
	defs  []TypeDef
	index map[string]int
}

// DefaultRegistry is used by NewWorld if no other registry is configured.
var DefaultRegistry = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{index: map[string]int{}}
}

// Register adds a definition to the registry. A definition with the same
// name is replaced, but keeps its position.
func (r *Registry) Register(def TypeDef) error {
	if err := def.validate(); err != nil {
		return err
	}

	def.Members = slices.Clone(def.Members)
	def.Constants = slices.Clone(def.Constants)

	r.mu.Lock()
	defer r.mu.Unlock()

	if idx, ok := r.index[def.Name]; ok {
		r.defs[idx] = def
		return nil
	}

	r.index[def.Name] = len(r.defs)
	r.defs = append(r.defs, def)

	return nil
}

func (r *Registry) mustRegister(def TypeDef) TypeDef {
	if err := r.Register(def); err != nil {
		panic(err)
	}

	return def
}

// Lookup returns the definition with the given name.
func (r *Registry) Lookup(name string) (TypeDef, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, ok := r.index[name]
	if !ok {
		return TypeDef{}, false
	}

	return r.defs[idx], true
}

// Definitions returns all definitions in registration order.
func (r *Registry) Definitions() []TypeDef {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.defs)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.defs)
}

// Struct starts the definition of a struct type.
func (r *Registry) Struct(name string) *StructBuilder {
	return &StructBuilder{registry: r, name: name}
}

// Enum registers an enum type with consecutive values starting at zero
// and returns the value of each constant.
func (r *Registry) Enum(name string, values ...string) map[string]int {
	constants := make([]ConstantDef, 0, len(values))
	for _, value := range values {
		constants = append(constants, ConstantDef{Name: value})
	}

	return r.EnumWith(name, constants...)
}

// EnumWith registers an enum type with the given constants and returns
// the value of each constant.
func (r *Registry) EnumWith(name string, constants ...ConstantDef) map[string]int {
	def := r.mustRegister(TypeDef{Name: name, Kind: EnumKind, Constants: constants})
	return def.Ordinals()
}

// StructBuilder collects the members of a struct type until Register is called.
type StructBuilder struct {
	registry   *Registry
	name       string
	members    []MemberDef
	registered bool
}

// Member appends a member. An optional count declares an array member.
func (b *StructBuilder) Member(name, typ string, count ...int32) *StructBuilder {
	member := MemberDef{Name: name, Type: typ}
	if len(count) > 0 {
		member.Count = count[0]
	}

	b.members = append(b.members, member)
	return b
}

// Register adds the struct to the registry. It panics if the definition is
// invalid or the builder was already registered.
func (b *StructBuilder) Register() TypeDef {
	if b.registered {
		panic(&Error{Op: "register", Kind: KindRegistration, Name: b.name, Detail: "builder was already registered"})
	}

	def := b.registry.mustRegister(TypeDef{Name: b.name, Kind: StructKind, Members: b.members})

	b.registered = true
	b.members = nil

	return def
}

// Struct starts the definition of a struct type in the DefaultRegistry.
func Struct(name string) *StructBuilder {
	return DefaultRegistry.Struct(name)
}

// Enum registers an enum type in the DefaultRegistry.
func Enum(name string, values ...string) map[string]int {
	return DefaultRegistry.Enum(name, values...)
}

// flush creates all types of the registry in the world.
func (r *Registry) flush(w *World) error {
	defs := r.Definitions()

	// every type gets its named entity first, so members can refer to
	// types that are declared later
	entities := make(map[string]native.Id, len(defs))
	for _, def := range defs {
		name := native.ToCString(def.Name)

		id := w.core.Lookup(name)
		if id == 0 {
			id = w.core.SetName(0, name)
		}

		entities[def.Name] = id
	}

	ordered, err := creationOrder(defs)
	if err != nil {
		return err
	}

	for _, def := range ordered {
		desc, err := r.describe(w, def, entities)
		if err != nil {
			return err
		}

		id, err := w.core.CreateType(entities[def.Name], desc)
		if err != nil {
			return newError("register", KindRegistration, def.Name, err)
		}

		w.logger.Debug("type registered",
			zap.String("name", def.Name),
			zap.Uint64("id", id),
			zap.Stringer("kind", def.Kind),
		)
	}

	return nil
}

func (r *Registry) describe(w *World, def TypeDef, entities map[string]native.Id) (native.TypeDesc, error) {
	if def.Kind == EnumKind {
		desc := native.TypeDesc{Kind: native.TypeEnum}
		for _, constant := range def.Constants {
			c := native.ConstantDesc{Name: constant.Name}
			if constant.Value != nil {
				c.Value = *constant.Value
				c.HasValue = true
			}

			desc.Constants = append(desc.Constants, c)
		}

		return desc, nil
	}

	desc := native.TypeDesc{Kind: native.TypeStruct}
	for _, member := range def.Members {
		typ := w.resolveType(member.Type, entities)
		if typ == 0 {
			return desc, &Error{
				Op:     "register",
				Kind:   KindRegistration,
				Name:   def.Name,
				Detail: fmt.Sprintf("member %q has unknown type %q", member.Name, member.Type),
			}
		}

		desc.Members = append(desc.Members, native.MemberDesc{
			Name:  member.Name,
			Type:  typ,
			Count: member.Count,
		})
	}

	return desc, nil
}

func (w *World) resolveType(name string, entities map[string]native.Id) native.Id {
	if id, ok := w.primitives[name]; ok {
		return id.Raw()
	}

	if id, ok := entities[name]; ok {
		return id
	}

	return w.core.Lookup(native.ToCString(name))
}

// creationOrder sorts the definitions so that every struct is created after
// the registered types of its members. Otherwise registration order is kept.
func creationOrder(defs []TypeDef) ([]TypeDef, error) {
	byName := make(map[string]TypeDef, len(defs))
	for _, def := range defs {
		byName[def.Name] = def
	}

	const (
		visiting = 1
		visited  = 2
	)

	state := map[string]int{}
	ordered := make([]TypeDef, 0, len(defs))

	var visit func(def TypeDef) error
	visit = func(def TypeDef) error {
		switch state[def.Name] {
		case visited:
			return nil
		case visiting:
			return &Error{Op: "register", Kind: KindRegistration, Name: def.Name, Detail: "type contains itself"}
		}

		state[def.Name] = visiting

		for _, member := range def.Members {
			if dep, ok := byName[member.Type]; ok {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		state[def.Name] = visited
		ordered = append(ordered, def)

		return nil
	}

	for _, def := range defs {
		if err := visit(def); err != nil {
			return nil, err
		}
	}

	return ordered, nil
}
