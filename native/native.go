// Package native defines the primitive surface of an embedded ECS core as seen
// by the host binding. Every call the binding makes into a core goes through
// the interfaces in this package.
//
// Implementations are single threaded. A Core must not be used after Fini, and
// handles created by a Core (cursors, queries, scripts) must not outlive it.
package native

// Id is an entity id, a component id or a pair as encoded by the core.
//
// The lower 32 bits hold the entity index, bits 32 to 47 hold the generation.
// A pair sets the highest bit and stores the relationship and target index in
// the upper and lower half.
type Id = uint64

const (
	PairFlag       Id = 1 << 63
	IndexMask      Id = 0xffff_ffff
	GenerationMask Id = 0xffff << 32
)

// Pair encodes the (rel, target) pair.
func Pair(rel, target Id) Id {
	return PairFlag | (rel&IndexMask)<<32 | target&IndexMask
}

func IsPair(id Id) bool {
	return id&PairFlag != 0
}

// PairFirst returns the index of the relationship of a pair.
func PairFirst(id Id) Id {
	return (id &^ PairFlag) >> 32
}

// PairSecond returns the index of the target of a pair.
func PairSecond(id Id) Id {
	return id & IndexMask
}

func Index(id Id) Id {
	return id & IndexMask
}

func Generation(id Id) uint16 {
	return uint16((id & GenerationMask) >> 32)
}

// Library is a loaded native core. It can create any number of worlds.
type Library interface {
	Name() string

	// Init creates a new world.
	Init() (Core, error)

	// Primitives returns the ids of the builtin primitive types keyed by their name.
	// The ids are constant for the lifetime of the library.
	Primitives() (map[string]Id, error)
}

// Core is the native handle of a single world.
type Core interface {
	Fini()
	Quit()
	ShouldQuit() bool
	Progress(delta float32) bool

	New() Id
	Delete(e Id)
	AddId(e, id Id)
	RemoveId(e, id Id)
	Clear(e Id)
	Enable(e Id, enabled bool)
	EnableId(e, id Id, enabled bool)
	IsEnabledId(e, id Id) bool

	IsValid(e Id) bool
	IsAlive(e Id) bool
	Exists(e Id) bool

	GetParent(e Id) Id
	CountId(id Id) int32
	Children(parent Id) ChildCursor

	GetId(e, id Id) Ptr
	GetMutId(e, id Id) Ptr
	EnsureId(e, id Id) Ptr
	ModifiedId(e, id Id)
	EnsureModifiedId(e, id Id) Ptr

	HasId(e, id Id) bool
	OwnsId(e, id Id) bool
	GetType(e Id) []Id

	// GetName returns nil if the entity has no name.
	GetName(e Id) CString
	// SetName creates a new entity if e is zero. An empty name removes the name.
	SetName(e Id, name CString) Id
	GetSymbol(e Id) CString
	SetSymbol(e Id, symbol CString) Id
	SetAlias(e Id, alias CString) Id

	Lookup(path CString) Id
	LookupChild(parent Id, path CString) Id
	LookupSymbol(symbol CString) Id

	CreateType(e Id, desc TypeDesc) (Id, error)

	ScriptInitCode(code CString) (Id, error)
	ScriptUpdate(e, template Id, code CString) error
	ScriptClear(e, template Id)
	ScriptParse(name, code CString) (Script, error)

	QueryExpr(expr CString) (Query, error)

	WorldToJSON() (string, error)
	EntityToJSON(e Id) (string, error)
	EntityStr(e Id) string

	DeferBegin() bool
	DeferEnd() bool
	DeferSuspend()
	DeferResume()
	IsDeferred() bool
}

// ChildCursor iterates the children of an entity in batches.
// A batch may be empty while more batches follow. The sequence only ends
// when Next reports false.
type ChildCursor interface {
	Next() ([]Id, bool)
	Fini()
}

// ExecDesc configures a single query execution.
type ExecDesc struct {
	Vars      []VarBinding
	Table     bool
	Builtin   bool
	Inherited bool
	Matches   bool
}

type VarBinding struct {
	Name  string
	Value Id
}

// Query is a compiled query expression.
type Query interface {
	// Exec runs the query and returns the serialized results in a
	// {"results": [...]} envelope.
	Exec(desc ExecDesc) (string, error)
	Str() string
	// FindVar returns the index of the variable, or -1.
	FindVar(name CString) int32
	VarCount() int32
	VarName(index int32) string
	VarIsEntity(index int32) bool
	Fini()
}

// Script is a parsed script that can be evaluated multiple times.
type Script interface {
	Eval(vars []Var) error
	Free()
}

type VarKind uint8

const (
	VarBool VarKind = iota
	VarNumber
	VarString
)

// Var is a value passed to a script evaluation.
type Var struct {
	Name   string
	Kind   VarKind
	Bool   bool
	Number float64
	String string
}

type TypeKind uint8

const (
	TypeStruct TypeKind = iota
	TypeEnum
)

// TypeDesc describes a component type to create on an entity.
type TypeDesc struct {
	Kind      TypeKind
	Members   []MemberDesc
	Constants []ConstantDesc
}

type MemberDesc struct {
	Name  string
	Type  Id
	Count int32
}

type ConstantDesc struct {
	Name     string
	Value    int32
	HasValue bool
}
