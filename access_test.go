package flecs

import (
	"errors"
	"testing"

	"github.com/oliverbestmann/flecs-go/simcore"
	"github.com/stretchr/testify/require"
)

func TestAccessModes(t *testing.T) {
	w := newWorld(t, WithRegistry(positionRegistry()))

	pos, _ := w.Lookup("Position")
	isA, _ := w.Lookup("IsA")

	base := w.New()
	Set(base, pos, position{X: 1, Y: 2})

	plain := w.New()
	require.Nil(t, plain.Get(pos, AccessDefault))

	// mutable access adds a zero value
	value := GetAs[position](plain, pos, AccessMutable)
	require.NotNil(t, value)
	require.Equal(t, position{}, *value)
	require.True(t, plain.Owns(pos))

	instance := w.New().Add(Pair(isA, base))

	// the inherited value is visible but not owned
	require.Equal(t, position{X: 1, Y: 2}, *GetAs[position](instance, pos, AccessDefault))
	require.False(t, instance.Owns(pos))

	// ensure copies the inherited value into the instance
	value = GetAs[position](instance, pos, AccessEnsure)
	require.Equal(t, position{X: 1, Y: 2}, *value)
	require.True(t, instance.Owns(pos))

	value.X = 10
	require.Equal(t, position{X: 1, Y: 2}, *GetAs[position](base, pos, AccessDefault))

	changes := func(e Entity) int {
		return w.Core().(*simcore.World).ChangeCount(e.Raw(), pos.Raw())
	}

	before := changes(instance)
	require.Nil(t, instance.Get(pos, AccessModified))
	require.Equal(t, before+1, changes(instance))

	value = GetAs[position](instance, pos, AccessEnsureModified)
	require.Equal(t, position{X: 10, Y: 2}, *value)
	require.Equal(t, before+2, changes(instance))
}

func TestSetThenGrow(t *testing.T) {
	w := newWorld(t, WithRegistry(positionRegistry()))

	pos, _ := w.Lookup("Position")

	first := w.New()
	Set(first, pos, position{X: 1, Y: 2})

	// grow the component storage well past its initial capacity
	for idx := range 1024 {
		Set(w.New(), pos, position{X: float64(idx)})
	}

	// a fresh Get sees the value at its new location
	require.Equal(t, position{X: 1, Y: 2}, *GetAs[position](first, pos, AccessDefault))

	Set(first, pos, position{X: 3, Y: 4})
	require.Equal(t, position{X: 3, Y: 4}, *GetAs[position](first, pos, AccessDefault))
}

func TestInvalidAccessMode(t *testing.T) {
	w := newWorld(t, WithRegistry(positionRegistry()))

	pos, _ := w.Lookup("Position")
	e := w.New()

	for _, mode := range []AccessMode{3, 5, 7, 8, 255} {
		t.Run(mode.String(), func(t *testing.T) {
			defer func() {
				err, ok := recover().(error)
				require.True(t, ok)
				require.True(t, errors.Is(err, ErrInvalidMode))
			}()

			e.Get(pos, mode)
		})
	}

	// nothing was added by the failed calls
	require.False(t, e.Owns(pos))
}

func TestAccessModeString(t *testing.T) {
	require.Equal(t, "Default", AccessDefault.String())
	require.Equal(t, "EnsureModified", AccessEnsureModified.String())
	require.Equal(t, "AccessMode(3)", AccessMode(3).String())
	require.EqualValues(t, 6, AccessEnsureModified)
}
