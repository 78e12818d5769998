package flecs

import (
	"errors"
	"testing"

	"github.com/oliverbestmann/flecs-go/native"
	"github.com/oliverbestmann/flecs-go/simcore"
	"github.com/stretchr/testify/require"
)

type position struct {
	X, Y float64
}

func positionRegistry() *Registry {
	r := NewRegistry()

	r.Struct("Position").
		Member("x", PrimF64).
		Member("y", PrimF64).
		Register()

	return r
}

func newWorld(t *testing.T, opts ...WorldOption) *World {
	t.Helper()

	opts = append([]WorldOption{WithRegistry(NewRegistry())}, opts...)

	w, err := NewWorld(opts...)
	require.NoError(t, err)

	t.Cleanup(w.Close)

	return w
}

func TestEntityLifecycle(t *testing.T) {
	w := newWorld(t)

	e := w.New()
	require.True(t, e.IsAlive())
	require.True(t, e.IsValid())
	require.True(t, e.Exists())

	e.Destroy()
	require.False(t, e.IsAlive())
	require.False(t, e.IsValid())
	require.True(t, e.Exists())

	// the slot is reused, the old handle stays dead
	recycled := w.New()
	require.Equal(t, native.Index(e.Raw()), native.Index(recycled.Raw()))
	require.NotEqual(t, e.Id(), recycled.Id())
	require.False(t, e.IsAlive())
}

func TestEntityNames(t *testing.T) {
	w := newWorld(t)

	e := w.New()
	require.Equal(t, "", e.Name())

	e.SetName("hello")
	require.Equal(t, "hello", e.Name())

	found, ok := w.Lookup("hello")
	require.True(t, ok)
	require.Equal(t, e, found)

	e.SetName("")
	require.Equal(t, "", e.Name())

	_, ok = w.Lookup("hello")
	require.False(t, ok)

	e.SetSymbol("app.Hello")
	require.Equal(t, "app.Hello", e.Symbol())

	found, ok = w.LookupSymbol("app.Hello")
	require.True(t, ok)
	require.Equal(t, e, found)

	e.SetAlias("greeting")
	found, ok = w.Lookup("greeting")
	require.True(t, ok)
	require.Equal(t, e, found)

	// a named entity is only created once
	named := w.NewNamed("named")
	require.Equal(t, named, w.NewNamed("named"))
}

func TestEntityHierarchy(t *testing.T) {
	w := newWorld(t)

	childOf, ok := w.Lookup("ChildOf")
	require.True(t, ok)

	parent := w.NewNamed("parent")
	child := w.New().SetName("child").Add(Pair(childOf, parent))

	found, ok := child.Parent()
	require.True(t, ok)
	require.Equal(t, parent, found)

	_, ok = parent.Parent()
	require.False(t, ok)

	found, ok = parent.Lookup("child")
	require.True(t, ok)
	require.Equal(t, child, found)

	found, ok = w.Lookup("parent.child")
	require.True(t, ok)
	require.Equal(t, child, found)

	require.Equal(t, "parent.child [(ChildOf,parent)]", child.String())
	require.Equal(t, []Entity{w.Entity(Pair(childOf, parent))}, child.Type())

	// deleting the parent deletes the child too
	parent.Destroy()
	require.False(t, child.IsAlive())
}

func TestEntityTagsAndInheritance(t *testing.T) {
	w := newWorld(t)

	isA, _ := w.Lookup("IsA")

	tag := w.NewNamed("Tag")
	base := w.New().Add(tag)
	instance := w.New().Add(Pair(isA, base))

	require.True(t, base.Has(tag))
	require.True(t, base.Owns(tag))

	require.True(t, instance.Has(tag))
	require.False(t, instance.Owns(tag))

	require.Equal(t, 1, w.Count(tag))
	require.Equal(t, 1, w.Count(w.Pair(isA, base)))

	base.Remove(tag)
	require.False(t, instance.Has(tag))

	instance.Clear()
	require.Empty(t, instance.Type())
}

func TestEnable(t *testing.T) {
	w := newWorld(t, WithRegistry(positionRegistry()))

	pos, _ := w.Lookup("Position")
	disabled, _ := w.Lookup("Disabled")

	e := w.New()
	Set(e, pos, position{X: 1})

	require.True(t, e.IsEnabled(pos))

	e.EnableId(pos, false)
	require.False(t, e.IsEnabled(pos))

	e.EnableId(pos, true)
	require.True(t, e.IsEnabled(pos))

	e.Enable(false)
	require.True(t, e.Owns(disabled))

	e.Enable(true)
	require.False(t, e.Owns(disabled))
}

func TestPositionLookup(t *testing.T) {
	w := newWorld(t, WithRegistry(positionRegistry()))

	pos, ok := w.Lookup("Position")
	require.True(t, ok)

	component, _ := w.Lookup("Component")
	require.True(t, pos.Owns(component))

	x, ok := pos.Lookup("x")
	require.True(t, ok)
	require.Equal(t, "x", x.Name())

	e := w.New()
	Set(e, pos, position{X: 1.5, Y: 2.5})
	require.Equal(t, position{X: 1.5, Y: 2.5}, *GetAs[position](e, pos, AccessDefault))
}

func TestProgressAndQuit(t *testing.T) {
	w := newWorld(t)

	require.True(t, w.Progress(1.0/60))
	require.False(t, w.ShouldQuit())

	w.Quit()
	require.True(t, w.ShouldQuit())
	require.False(t, w.Progress(1.0/60))
}

func TestCloseIsIdempotent(t *testing.T) {
	w, err := NewWorld(WithRegistry(NewRegistry()))
	require.NoError(t, err)

	w.Close()
	w.Close()
}

type failingLibrary struct {
	*simcore.Library
	initErr error
	cores   []native.Core
}

func (l *failingLibrary) Init() (native.Core, error) {
	if l.initErr != nil {
		return nil, l.initErr
	}

	core, err := l.Library.Init()
	l.cores = append(l.cores, core)
	return core, err
}

func TestInitFailure(t *testing.T) {
	lib := &failingLibrary{Library: simcore.NewLibrary(), initErr: errors.New("out of memory")}

	_, err := NewWorld(WithLibrary(lib), WithRegistry(NewRegistry()))
	require.ErrorIs(t, err, ErrInit)
	require.ErrorContains(t, err, "out of memory")
}

func TestRegistrationFailureReleasesWorld(t *testing.T) {
	lib := &failingLibrary{Library: simcore.NewLibrary()}

	r := NewRegistry()
	r.Struct("Line").
		Member("start", "Point").
		Member("end", "Point").
		Register()

	_, err := NewWorld(WithLibrary(lib), WithRegistry(r))
	require.ErrorIs(t, err, ErrRegistration)
	require.ErrorContains(t, err, `"Point"`)

	// the native world was released again
	require.Len(t, lib.cores, 1)
	require.Panics(t, func() { lib.cores[0].New() })
}

func TestErrorMatching(t *testing.T) {
	err := &Error{Op: "query", Kind: KindSyntax, Name: "Foo(", Cause: errors.New("unexpected end")}

	require.ErrorIs(t, err, ErrSyntax)
	require.NotErrorIs(t, err, ErrContract)
	require.Equal(t, `flecs query: syntax "Foo(": unexpected end`, err.Error())

	var flecsErr *Error
	require.ErrorAs(t, error(err), &flecsErr)
	require.Equal(t, KindSyntax, flecsErr.Kind)
}
