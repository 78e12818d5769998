package flecs

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func requireRegistrationPanic(t *testing.T, fn func()) {
	t.Helper()

	defer func() {
		t.Helper()

		err, ok := recover().(error)
		require.True(t, ok, "expected a panic with an error")
		require.True(t, errors.Is(err, ErrRegistration), err.Error())
	}()

	fn()
}

func TestStructBuilder(t *testing.T) {
	r := NewRegistry()

	builder := r.Struct("Position").
		Member("x", PrimF64).
		Member("y", PrimF64)

	def := builder.Register()
	require.Equal(t, TypeDef{
		Name: "Position",
		Kind: StructKind,
		Members: []MemberDef{
			{Name: "x", Type: PrimF64},
			{Name: "y", Type: PrimF64},
		},
	}, def)

	found, ok := r.Lookup("Position")
	require.True(t, ok)
	require.Equal(t, def, found)

	// a builder can only be registered once
	requireRegistrationPanic(t, func() { builder.Register() })
}

func TestRegistryReplace(t *testing.T) {
	r := NewRegistry()

	r.Struct("A").Member("value", PrimI32).Register()
	r.Struct("B").Member("value", PrimI32).Register()
	r.Struct("A").Member("value", PrimI64, 2).Register()

	defs := r.Definitions()
	require.Len(t, defs, 2)
	require.Equal(t, "A", defs[0].Name)
	require.Equal(t, []MemberDef{{Name: "value", Type: PrimI64, Count: 2}}, defs[0].Members)
	require.Equal(t, "B", defs[1].Name)
}

func TestInvalidDefinitions(t *testing.T) {
	r := NewRegistry()

	requireRegistrationPanic(t, func() { r.Struct("Empty").Register() })
	requireRegistrationPanic(t, func() { r.Struct("").Member("a", PrimI32).Register() })
	requireRegistrationPanic(t, func() { r.Struct("Untyped").Member("a", "").Register() })
	requireRegistrationPanic(t, func() { r.Struct("Negative").Member("a", PrimI32, -1).Register() })
	requireRegistrationPanic(t, func() { r.Struct("Twice").Member("a", PrimI32).Member("a", PrimI32).Register() })
	requireRegistrationPanic(t, func() { r.Enum("NoConstants") })
	requireRegistrationPanic(t, func() { r.Enum("Duplicate", "A", "A") })

	requireRegistrationPanic(t, func() {
		builder := r.Struct("Large")
		for idx := range maxMembers + 1 {
			builder.Member(fmt.Sprintf("m%d", idx), PrimU8)
		}

		builder.Register()
	})

	require.Zero(t, r.Len())
}

func TestEnum(t *testing.T) {
	r := NewRegistry()

	require.Equal(t, map[string]int{"Red": 0, "Green": 1, "Blue": 2}, r.Enum("Color", "Red", "Green", "Blue"))

	ordinals := r.EnumWith("Level", ConstantDef{Name: "Low"}, Const("High", 10), ConstantDef{Name: "Max"})
	require.Equal(t, map[string]int{"Low": 0, "High": 10, "Max": 11}, ordinals)

	w := newWorld(t, WithRegistry(r))

	high, ok := w.Lookup("Level.High")
	require.True(t, ok)
	require.Equal(t, "High", high.Name())

	_, ok = w.Lookup("Color.Blue")
	require.True(t, ok)
}

func TestForwardReferences(t *testing.T) {
	r := NewRegistry()

	r.Struct("Line").
		Member("start", "Point").
		Member("end", "Point").
		Register()

	r.Struct("Point").
		Member("x", PrimF32).
		Member("y", PrimF32).
		Register()

	w := newWorld(t, WithRegistry(r))

	line, ok := w.Lookup("Line")
	require.True(t, ok)

	type point struct{ X, Y float32 }
	type segment struct{ Start, End point }

	e := w.New()
	Set(e, line, segment{Start: point{1, 2}, End: point{3, 4}})

	dump, err := e.ToJSON()
	require.NoError(t, err)
	require.JSONEq(t, `{"start": {"x": 1, "y": 2}, "end": {"x": 3, "y": 4}}`, string(dump.Components["Line"]))
}

func TestMemberlessStruct(t *testing.T) {
	r := NewRegistry()

	type marker struct {
		hidden int
	}

	// no exported members leaves nothing to lay out
	requireRegistrationPanic(t, func() { RegisterType[marker](r, "Marker") })
	requireRegistrationPanic(t, func() { r.Struct("Marker").Register() })

	// the tag for the same concept is a plain named entity
	w := newWorld(t, WithRegistry(r))
	marked := w.New().Add(w.NewNamed("Marker"))
	require.True(t, marked.Has(w.NewNamed("Marker")))
}

func TestRecursiveDefinition(t *testing.T) {
	r := NewRegistry()
	r.Struct("Node").Member("next", "Node").Register()

	_, err := NewWorld(WithRegistry(r))
	require.ErrorIs(t, err, ErrRegistration)
}

func TestExistingMemberType(t *testing.T) {
	r := NewRegistry()
	r.Struct("Holder").Member("value", "Component").Register()

	// types that already exist in the world are found by name
	w := newWorld(t, WithRegistry(r))

	_, ok := w.Lookup("Holder.value")
	require.True(t, ok)
}

type Vec2 struct {
	X, Y float64
}

type Transform struct {
	Position Vec2
	Scale    float32 `ecs:"s"`
	Layers   [3]uint8
	Owner    Id
	Kind     int32 `ecs:"kind,Shape"`
}

type tagged struct {
	Visible bool
	Cached  int     `ecs:"-"`
	Label   uintptr `ecs:"label,string"`
	Counts  int16   `ecs:",i16,4"`
	private float32
	Weight  float32 `ecs:"w"`
}

func TestRegisterType(t *testing.T) {
	r := NewRegistry()

	def := RegisterType[tagged](r, "Tagged")
	require.Equal(t, TypeDef{
		Name: "Tagged",
		Kind: StructKind,
		Members: []MemberDef{
			{Name: "visible", Type: PrimBool},
			{Name: "label", Type: PrimString},
			{Name: "counts", Type: PrimI16, Count: 4},
			{Name: "w", Type: PrimF32},
		},
	}, def)

	require.Panics(t, func() { RegisterType[int](r) })
	require.Panics(t, func() { RegisterType[struct{ Name string }](r, "Named") })
}

func TestRegisterTypeLayout(t *testing.T) {
	r := NewRegistry()

	r.Enum("Shape", "Circle", "Box")
	RegisterType[Transform](r)
	RegisterType[Vec2](r)

	def, ok := r.Lookup("Transform")
	require.True(t, ok)
	require.Equal(t, []MemberDef{
		{Name: "position", Type: "Vec2"},
		{Name: "s", Type: PrimF32},
		{Name: "layers", Type: PrimU8, Count: 3},
		{Name: "owner", Type: PrimEntity},
		{Name: "kind", Type: "Shape"},
	}, def.Members)

	w := newWorld(t, WithRegistry(r))

	transform, _ := w.Lookup("Transform")
	owner := w.NewNamed("owner")

	e := w.New()
	Set(e, transform, Transform{
		Position: Vec2{X: 1, Y: 2},
		Scale:    0.5,
		Layers:   [3]uint8{1, 2, 3},
		Owner:    owner.Id(),
		Kind:     1,
	})

	dump, err := e.ToJSON()
	require.NoError(t, err)

	require.JSONEq(t, `{
		"position": {"x": 1, "y": 2},
		"s": 0.5,
		"layers": [1, 2, 3],
		"owner": "owner",
		"kind": "Box"
	}`, string(dump.Components["Transform"]))
}

func TestLoadDefinitions(t *testing.T) {
	r := NewRegistry()

	err := r.LoadDefinitions(strings.NewReader(`
types:
  - name: Position
    members:
      - {name: x, type: f64}
      - {name: y, type: f64}
  - name: Color
    kind: enum
    constants: [Red, Green, {name: Blue, value: 10}]
  - name: Path
    members:
      - name: points
        type: Position
        count: 4
`))

	require.NoError(t, err)

	defs := r.Definitions()
	require.Len(t, defs, 3)

	require.Equal(t, []MemberDef{{Name: "points", Type: "Position", Count: 4}}, defs[2].Members)
	require.Equal(t, map[string]int{"Red": 0, "Green": 1, "Blue": 10}, defs[1].Ordinals())

	w := newWorld(t, WithRegistry(r))

	_, ok := w.Lookup("Path.points")
	require.True(t, ok)
}

func TestLoadInvalidDefinitions(t *testing.T) {
	cases := map[string]string{
		"invalid yaml":   "types: [",
		"unknown kind":   "types: [{name: A, kind: union}]",
		"no members":     "types: [{name: A}]",
		"unnamed member": "types: [{name: A, members: [{type: f64}]}]",
	}

	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			r := NewRegistry()

			err := r.LoadDefinitions(strings.NewReader(input))
			require.ErrorIs(t, err, ErrRegistration)
			require.Zero(t, r.Len())
		})
	}
}
