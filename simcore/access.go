package simcore

import (
	"unsafe"

	"github.com/oliverbestmann/flecs-go/native"
)

type changeKey struct {
	entity Id
	id     Id
}

// dataInfo returns the type info of the value stored for id, or nil if the id is a tag.
func (w *World) dataInfo(id Id) *typeInfo {
	if native.IsPair(id) {
		id = native.PairFirst(id)
		if id == EcsChildOf || id == EcsIsA {
			return nil
		}
	}

	info := w.infos[native.Index(id)]
	if info == nil || info.size == 0 {
		return nil
	}

	return info
}

func normalize(id Id) Id {
	if native.IsPair(id) {
		return id
	}

	return native.Index(id)
}

func (w *World) GetId(e, id Id) native.Ptr {
	rec := w.aliveRecord(e)
	if rec == nil || isWildcard(id) {
		return nil
	}

	return w.getInherited(rec, normalize(id), map[Id]bool{})
}

func (w *World) getInherited(rec *record, id Id, visited map[Id]bool) unsafe.Pointer {
	if ptr := rec.table.Ptr(rec.row, id); ptr != nil {
		return ptr
	}

	for base := range w.bases(rec) {
		if visited[base] {
			continue
		}

		visited[base] = true

		if baseRec := w.aliveRecord(base); baseRec != nil {
			if ptr := w.getInherited(baseRec, id, visited); ptr != nil {
				return ptr
			}
		}
	}

	return nil
}

func (w *World) GetMutId(e, id Id) native.Ptr {
	return w.ensure("get_mut_id", e, id, false)
}

func (w *World) EnsureId(e, id Id) native.Ptr {
	return w.ensure("ensure_id", e, id, true)
}

func (w *World) EnsureModifiedId(e, id Id) native.Ptr {
	ptr := w.EnsureId(e, id)
	w.ModifiedId(e, id)
	return ptr
}

func (w *World) ensure(op string, e, id Id, initialize bool) unsafe.Pointer {
	w.checkOpen(op)

	rec := w.aliveRecord(e)
	if rec == nil {
		return nil
	}

	w.checkId(op, id)
	id = normalize(id)

	info := w.dataInfo(id)
	if info == nil {
		native.Faultf(op, "id %s is not a component", w.idStr(id))
	}

	if w.deferring() {
		return w.ensureDeferred(rec, e, id, info, initialize)
	}

	return w.ensureNow(e, id, initialize)
}

func (w *World) ensureNow(e, id Id, initialize bool) unsafe.Pointer {
	rec := w.aliveRecord(e)
	if rec == nil {
		return nil
	}

	if ptr := rec.table.Ptr(rec.row, id); ptr != nil {
		return ptr
	}

	var inherited unsafe.Pointer
	if initialize {
		inherited = w.getInherited(rec, id, map[Id]bool{})
	}

	rec = w.addId(e, id)

	ptr := rec.table.Ptr(rec.row, id)
	if inherited != nil {
		info := w.dataInfo(id)
		copy((*buf(ptr))[:info.size], (*buf(inherited))[:info.size])
	}

	return ptr
}

// ensureDeferred returns a scratch value that is copied into the entity when
// the queue is applied.
func (w *World) ensureDeferred(rec *record, e, id Id, info *typeInfo, initialize bool) unsafe.Pointer {
	scratch := make([]uint64, (info.size+7)/8)
	ptr := unsafe.Pointer(unsafe.SliceData(scratch))

	current := rec.table.Ptr(rec.row, id)
	if current == nil && initialize {
		current = w.getInherited(rec, id, map[Id]bool{})
	}

	if current != nil {
		copy((*buf(ptr))[:info.size], (*buf(current))[:info.size])
	}

	w.enqueue(func() {
		target := w.ensureNow(e, id, false)
		if target != nil {
			copy((*buf(target))[:info.size], (*buf(ptr))[:info.size])
		}
	})

	return ptr
}

func (w *World) ModifiedId(e, id Id) {
	w.checkOpen("modified_id")

	if w.deferring() {
		w.enqueue(func() { w.modified(e, id) })
		return
	}

	w.modified(e, id)
}

func (w *World) modified(e, id Id) {
	if !w.OwnsId(e, id) {
		return
	}

	w.changes[changeKey{entity: e, id: normalize(id)}] += 1
}

// ChangeCount returns how often the id was reported as modified on the entity.
func (w *World) ChangeCount(e, id Id) int {
	return w.changes[changeKey{entity: e, id: normalize(id)}]
}
