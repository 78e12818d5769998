package simcore

import (
	"encoding/binary"
	"iter"
	"slices"
)

// storage owns all tables of a world and moves entities between them.
type storage struct {
	tables []*table
	lookup map[string]*table
	graph  tableGraph

	infoOf func(Id) *typeInfo

	root *table
}

func newStorage(infoOf func(Id) *typeInfo) *storage {
	s := &storage{
		lookup: map[string]*table{},
		infoOf: infoOf,
	}

	s.root = s.Lookup(nil)
	return s
}

func tableKey(sortedIds []Id) string {
	key := make([]byte, 0, 8*len(sortedIds))
	for _, id := range sortedIds {
		key = binary.LittleEndian.AppendUint64(key, id)
	}

	return string(key)
}

// Lookup returns the table for the given sorted ids, creating it if needed.
func (s *storage) Lookup(sortedIds []Id) *table {
	key := tableKey(sortedIds)

	t, ok := s.lookup[key]
	if !ok {
		t = makeTable(len(s.tables), slices.Clone(sortedIds), s.infoOf)
		s.lookup[key] = t
		s.tables = append(s.tables, t)
	}

	return t
}

// Spawn places the entity into the root table.
func (s *storage) Spawn(rec *record, entity Id) {
	rec.table = s.root
	rec.row = s.root.Append(entity)
}

// Despawn removes the entity from its table.
func (s *storage) Despawn(w *World, rec *record) {
	if rec.table == nil {
		return
	}

	moved := rec.table.Remove(rec.row)
	if moved != 0 {
		w.recordOf(moved).row = rec.row
	}

	rec.table = nil
	rec.row = 0
}

// Move transfers the entity into another table, keeping the values of all
// ids both tables have in common.
func (s *storage) Move(w *World, rec *record, target *table) {
	source := rec.table
	if source == target {
		return
	}

	row := target.Import(source, rec.row)

	moved := source.Remove(rec.row)
	if moved != 0 {
		w.recordOf(moved).row = rec.row
	}

	rec.table = target
	rec.row = row
}

func (s *storage) WithId(rec *record, id Id) *table {
	if rec.table.Contains(id) {
		return rec.table
	}

	return s.graph.NextWith(s, rec.table, id)
}

func (s *storage) WithoutId(rec *record, id Id) *table {
	if !rec.table.Contains(id) {
		return rec.table
	}

	return s.graph.NextWithout(s, rec.table, id)
}

// TablesMatching yields all tables containing an id that matches the given
// pattern, which may include wildcards.
func (s *storage) TablesMatching(pattern Id) iter.Seq[*table] {
	return func(yield func(*table) bool) {
		for _, t := range s.tables {
			if !slices.ContainsFunc(t.ids, func(id Id) bool { return idMatches(pattern, id) }) {
				continue
			}

			if !yield(t) {
				return
			}
		}
	}
}

// Purge drops all empty tables matching the predicate.
func (s *storage) Purge(pred func(*table) bool) {
	purged := false

	s.tables = slices.DeleteFunc(s.tables, func(t *table) bool {
		if t == s.root || t.Count() > 0 || !pred(t) {
			return false
		}

		delete(s.lookup, tableKey(t.ids))
		purged = true
		return true
	})

	if purged {
		// transitions may point to purged tables
		s.graph.transitions = nil
	}
}
