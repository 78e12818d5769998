package simcore

import (
	"testing"

	"github.com/oliverbestmann/flecs-go/native"
	"github.com/stretchr/testify/require"
)

func TestDeferredCommands(t *testing.T) {
	w := newTestWorld(t)

	tag := w.New()
	e := w.New()

	require.True(t, w.DeferBegin())
	require.True(t, w.IsDeferred())

	w.AddId(e, tag)
	w.SetName(e, cs("deferred"))
	require.False(t, w.HasId(e, tag))
	require.Nil(t, w.GetName(e))
	require.Equal(t, 2, w.QueuedCommands())

	require.True(t, w.DeferEnd())
	require.False(t, w.IsDeferred())
	require.True(t, w.HasId(e, tag))
	require.Equal(t, "deferred", w.GetName(e).String())
	require.Zero(t, w.QueuedCommands())
}

func TestNestedDefer(t *testing.T) {
	w := newTestWorld(t)

	tag := w.New()
	e := w.New()

	require.True(t, w.DeferBegin())
	require.False(t, w.DeferBegin())

	w.AddId(e, tag)

	require.False(t, w.DeferEnd())
	require.False(t, w.HasId(e, tag))

	require.True(t, w.DeferEnd())
	require.True(t, w.HasId(e, tag))
}

func TestDeferredDelete(t *testing.T) {
	w := newTestWorld(t)

	parent := w.New()
	child := w.New()
	w.AddId(child, native.Pair(EcsChildOf, parent))

	w.DeferBegin()
	w.Delete(parent)
	require.True(t, w.IsAlive(parent))
	require.True(t, w.IsAlive(child))
	w.DeferEnd()

	require.False(t, w.IsAlive(parent))
	require.False(t, w.IsAlive(child))
}

func TestSuspend(t *testing.T) {
	w := newTestWorld(t)

	queued := w.New()
	immediate := w.New()
	e := w.New()

	w.DeferBegin()
	w.AddId(e, queued)

	w.DeferSuspend()
	require.False(t, w.IsDeferred())

	w.AddId(e, immediate)
	require.True(t, w.HasId(e, immediate))
	require.False(t, w.HasId(e, queued))

	w.DeferResume()
	require.True(t, w.IsDeferred())
	require.False(t, w.HasId(e, queued))

	w.DeferEnd()
	require.True(t, w.HasId(e, queued))
	require.True(t, w.HasId(e, immediate))
}

func TestDeferMisuse(t *testing.T) {
	w := newTestWorld(t)

	requireFault(t, func() { w.DeferEnd() })
	requireFault(t, func() { w.DeferSuspend() })
	requireFault(t, func() { w.DeferResume() })

	w.DeferBegin()
	requireFault(t, func() { w.DeferResume() })

	w.DeferSuspend()
	requireFault(t, func() { w.DeferEnd() })
	requireFault(t, func() { w.DeferBegin() })
	requireFault(t, func() { w.DeferSuspend() })

	// the counter is still intact after the faults
	w.DeferResume()
	require.True(t, w.DeferEnd())
	require.False(t, w.IsDeferred())
}

func TestCommandsDuringFlush(t *testing.T) {
	w := newTestWorld(t)

	pos := newPositionType(t, w)

	e := w.New()

	w.DeferBegin()
	value := (*vec2)(w.EnsureId(e, pos))
	value.X = 1
	w.Delete(e)
	w.DeferEnd()

	// commands apply in order, the entity is gone
	require.False(t, w.IsAlive(e))
}
