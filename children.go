package flecs

import (
	"iter"

	"github.com/oliverbestmann/flecs-go/native"
)

// ChildIter pulls the children of an entity from the native core in batches.
// An iterator is not restartable. Close must be called if the iterator is
// abandoned before the end.
type ChildIter struct {
	world  *World
	cursor native.ChildCursor
	buffer []native.Id
	done   bool
}

// Children returns an iterator over the direct children of the entity.
func (e Entity) Children() *ChildIter {
	return &ChildIter{
		world:  e.world,
		cursor: e.core().Children(e.Raw()),
	}
}

// Next returns the next child. It reports false once all children were
// returned, after which the iterator is closed.
func (it *ChildIter) Next() (Entity, bool) {
	for len(it.buffer) == 0 {
		if it.done {
			return Entity{}, false
		}

		batch, ok := it.cursor.Next()
		if !ok {
			it.Close()
			return Entity{}, false
		}

		// an empty batch does not end the sequence
		it.buffer = batch
	}

	id := it.buffer[0]
	it.buffer = it.buffer[1:]

	return it.world.entity(id), true
}

// Close releases the native cursor. Calling Close more than once has no effect.
func (it *ChildIter) Close() {
	if it.done {
		return
	}

	it.done = true
	it.buffer = nil
	it.cursor.Fini()
}

// All returns the remaining children as a sequence. The iterator is closed
// when the sequence ends or the loop exits early.
func (it *ChildIter) All() iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		defer it.Close()

		for {
			child, ok := it.Next()
			if !ok || !yield(child) {
				return
			}
		}
	}
}
