package flecs

import (
	"testing"

	"github.com/oliverbestmann/flecs-go/native"
	"github.com/stretchr/testify/require"
)

func TestDeferScope(t *testing.T) {
	w := newWorld(t)

	tag := w.NewNamed("Tag")
	e := w.New()

	scope := w.Defer()
	require.True(t, w.IsDeferred())

	e.Add(tag)
	e.SetName("deferred")
	require.False(t, e.Has(tag))
	require.Equal(t, "", e.Name())

	scope.Close()
	require.False(t, w.IsDeferred())
	require.True(t, e.Has(tag))
	require.Equal(t, "deferred", e.Name())

	// closing again does not end an outer scope or fault
	scope.Close()
	require.False(t, w.IsDeferred())
}

func TestSuspendScope(t *testing.T) {
	w := newWorld(t)

	queued := w.NewNamed("Queued")
	immediate := w.NewNamed("Immediate")
	e := w.New()

	scope := w.Defer()
	e.Add(queued)

	suspended := scope.Suspend()
	e.Add(immediate)
	require.True(t, e.Has(immediate))
	require.False(t, e.Has(queued))
	suspended.Close()
	suspended.Close()

	require.True(t, w.IsDeferred())

	scope.Close()
	require.True(t, e.Has(queued))
}

func TestDeferred(t *testing.T) {
	w := newWorld(t)

	tag := w.NewNamed("Tag")
	e := w.New()

	w.Deferred(func() {
		e.Add(tag)
		require.False(t, e.Has(tag))
	})

	require.True(t, e.Has(tag))

	// the scope is closed when fn panics
	require.Panics(t, func() {
		w.Deferred(func() {
			e.Remove(tag)
			panic("failed")
		})
	})

	require.False(t, w.IsDeferred())
	require.False(t, e.Has(tag))
}

func TestUnbalancedDefer(t *testing.T) {
	w := newWorld(t)

	defer func() {
		require.IsType(t, &native.Fault{}, recover())
	}()

	w.Core().DeferEnd()
}
