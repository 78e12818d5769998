package simcore

import (
	"iter"

	"github.com/oliverbestmann/flecs-go/native"
)

// parentIndex returns the index of the ChildOf target, or zero.
func (w *World) parentIndex(rec *record) Id {
	for _, id := range rec.table.ids {
		if native.IsPair(id) && native.PairFirst(id) == EcsChildOf {
			return native.PairSecond(id)
		}
	}

	return 0
}

func (w *World) GetParent(e Id) Id {
	rec := w.aliveRecord(e)
	if rec == nil {
		return 0
	}

	return w.aliveId(w.parentIndex(rec))
}

// targets yields the live targets of all (rel, *) pairs of the entity.
func (w *World) targets(rec *record, rel Id) iter.Seq[Id] {
	rel = native.Index(rel)

	return func(yield func(Id) bool) {
		for _, id := range rec.table.ids {
			if !native.IsPair(id) || native.PairFirst(id) != rel {
				continue
			}

			target := w.aliveId(native.PairSecond(id))
			if target == 0 {
				continue
			}

			if !yield(target) {
				return
			}
		}
	}
}

// bases yields the IsA targets of the entity.
func (w *World) bases(rec *record) iter.Seq[Id] {
	return w.targets(rec, EcsIsA)
}

// ancestors yields the targets reachable by following rel upwards, nearest first.
func (w *World) ancestors(e Id, rel Id) iter.Seq[Id] {
	return func(yield func(Id) bool) {
		seen := map[Id]bool{native.Index(e): true}

		current := []Id{e}
		for len(current) > 0 {
			var next []Id

			for _, entity := range current {
				rec := w.aliveRecord(entity)
				if rec == nil {
					continue
				}

				for target := range w.targets(rec, rel) {
					if seen[native.Index(target)] {
						continue
					}

					seen[native.Index(target)] = true

					if !yield(target) {
						return
					}

					next = append(next, target)
				}
			}

			current = next
		}
	}
}

// path returns the dotted path of an entity. Anonymous entities are written as #index.
func (w *World) path(e Id) string {
	rec := w.aliveRecord(e)
	if rec == nil {
		if native.IsPair(e) {
			return w.idStr(e)
		}

		return "#" + itoa(native.Index(e))
	}

	segment := rec.name
	if segment == "" {
		segment = "#" + itoa(native.Index(e))
	}

	if parent := w.aliveId(w.parentIndex(rec)); parent != 0 {
		return w.path(parent) + "." + segment
	}

	return segment
}

// idStr formats an id or pair as used in type listings and serialized output.
func (w *World) idStr(id Id) string {
	if native.IsPair(id) {
		return "(" + w.indexStr(native.PairFirst(id)) + "," + w.indexStr(native.PairSecond(id)) + ")"
	}

	return w.indexStr(native.Index(id))
}

func (w *World) indexStr(index Id) string {
	if index == EcsWildcard {
		return "*"
	}

	if alive := w.aliveId(index); alive != 0 {
		return w.path(alive)
	}

	return "#" + itoa(index)
}
