package simcore

import (
	"slices"

	"github.com/oliverbestmann/flecs-go/native"
)

// childCursor yields the children of an entity table by table. Empty tables
// produce empty batches.
type childCursor struct {
	w      *World
	tables []*table

	tableIdx int
	offset   int

	closed bool
}

func (w *World) Children(parent Id) native.ChildCursor {
	w.checkOpen("children")

	cursor := &childCursor{w: w}

	if w.aliveRecord(parent) != nil {
		for t := range w.storage.TablesMatching(native.Pair(EcsChildOf, native.Index(parent))) {
			cursor.tables = append(cursor.tables, t)
		}
	}

	w.cursors.Insert(cursor)
	return cursor
}

func (c *childCursor) Next() ([]Id, bool) {
	if c.closed {
		native.Faultf("children_next", "cursor is closed")
	}

	if c.tableIdx >= len(c.tables) {
		return nil, false
	}

	t := c.tables[c.tableIdx]

	count := t.Count()
	if c.offset >= count {
		c.tableIdx += 1
		c.offset = 0
		return []Id{}, true
	}

	end := count
	if size := c.w.lib.childBatchSize; size > 0 {
		end = min(c.offset+size, count)
	}

	batch := slices.Clone(t.entities[c.offset:end])

	c.offset = end
	if c.offset >= count {
		c.tableIdx += 1
		c.offset = 0
	}

	return batch, true
}

func (c *childCursor) Fini() {
	if !c.w.cursors.Remove(c) {
		native.Faultf("children_fini", "cursor is already finalized")
	}

	c.closed = true
}

// OpenCursors returns the number of child cursors that were not finalized yet.
func (w *World) OpenCursors() int {
	return w.cursors.Len()
}
