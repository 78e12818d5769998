package simcore

import (
	"slices"

	"github.com/oliverbestmann/flecs-go/internal/set"
	"github.com/oliverbestmann/flecs-go/native"
)

type record struct {
	// the slot was allocated at least once
	used  bool
	alive bool
	gen   uint16

	table *table
	row   int

	name   string
	symbol string

	disabledIds set.Set[Id]
}

// World is a single simulated native world. It implements native.Core.
type World struct {
	lib *Library

	records   []record
	nextIndex Id
	freeList  []Id

	infos   map[Id]*typeInfo
	storage *storage

	aliases map[string]Id
	symbols map[string]Id

	// string members of components are stored as handles into this arena
	strings []string

	deferDepth int
	queue      []func()

	cursors set.Set[*childCursor]
	scripts map[Id]*scriptState
	changes map[changeKey]int

	tick      int64
	quit      bool
	finalized bool
}

var _ native.Core = (*World)(nil)

func newWorld(lib *Library) *World {
	w := &World{
		lib:       lib,
		nextIndex: 1,
		infos:     map[Id]*typeInfo{},
		aliases:   map[string]Id{},
		symbols:   map[string]Id{},
		scripts:   map[Id]*scriptState{},
		changes:   map[changeKey]int{},
	}

	w.storage = newStorage(w.dataInfo)
	w.bootstrap()

	return w
}

func (w *World) checkOpen(op string) {
	if w.finalized {
		native.Faultf(op, "world is finalized")
	}
}

func (w *World) Fini() {
	w.checkOpen("fini")

	w.finalized = true
	w.records = nil
	w.queue = nil
}

func (w *World) Quit() {
	w.quit = true
}

func (w *World) ShouldQuit() bool {
	return w.quit
}

// Progress advances the world by one frame.
func (w *World) Progress(delta float32) bool {
	w.checkOpen("progress")

	w.tick += 1
	return !w.quit
}

// Tick returns the number of frames processed.
func (w *World) Tick() int64 {
	return w.tick
}

func (w *World) recordOf(e Id) *record {
	idx := native.Index(e)
	if idx == 0 || idx >= Id(len(w.records)) {
		return nil
	}

	return &w.records[idx]
}

// aliveRecord returns the record of e if e refers to the current generation of a live entity.
func (w *World) aliveRecord(e Id) *record {
	if native.IsPair(e) {
		return nil
	}

	rec := w.recordOf(e)
	if rec == nil || !rec.alive || rec.gen != native.Generation(e) {
		return nil
	}

	return rec
}

// aliveId returns the current id of the live entity at the given index, or zero.
func (w *World) aliveId(index Id) Id {
	rec := w.recordOf(index)
	if rec == nil || !rec.alive {
		return 0
	}

	return index | Id(rec.gen)<<32
}

func (w *World) allocAt(index Id) Id {
	for Id(len(w.records)) <= index {
		w.records = append(w.records, record{})
	}

	rec := &w.records[index]
	rec.used = true
	rec.alive = true

	e := index | Id(rec.gen)<<32
	w.storage.Spawn(rec, e)

	if index >= w.nextIndex {
		w.nextIndex = index + 1
	}

	return e
}

func (w *World) New() Id {
	w.checkOpen("new")

	if n := len(w.freeList); n > 0 {
		index := w.freeList[n-1]
		w.freeList = w.freeList[:n-1]
		return w.allocAt(index)
	}

	return w.allocAt(w.nextIndex)
}

func (w *World) IsValid(e Id) bool {
	if e == 0 || native.IsPair(e) {
		return false
	}

	rec := w.recordOf(e)
	if rec == nil || !rec.used {
		// ids that were never allocated are valid
		return true
	}

	return rec.alive && rec.gen == native.Generation(e)
}

func (w *World) IsAlive(e Id) bool {
	return w.aliveRecord(e) != nil
}

func (w *World) Exists(e Id) bool {
	rec := w.recordOf(e)
	return rec != nil && rec.used
}

func (w *World) Delete(e Id) {
	w.checkOpen("delete")

	if w.deferring() {
		w.enqueue(func() { w.delete(e) })
		return
	}

	w.delete(e)
}

func (w *World) delete(e Id) {
	rec := w.aliveRecord(e)
	if rec == nil {
		return
	}

	// mark as dead first, so cycles terminate
	rec.alive = false

	index := native.Index(e)

	// delete all children
	for _, child := range w.collectEntities(native.Pair(EcsChildOf, index)) {
		w.delete(child)
	}

	// remove all ids that reference the entity from other entities
	w.removeReferences(index)

	if rec.symbol != "" {
		delete(w.symbols, rec.symbol)
	}

	for alias, target := range w.aliases {
		if native.Index(target) == index {
			delete(w.aliases, alias)
		}
	}

	if state, ok := w.scripts[e]; ok {
		delete(w.scripts, e)
		for _, managed := range state.managed {
			w.delete(managed)
		}
	}

	delete(w.infos, index)

	w.storage.Despawn(w, rec)

	rec.name = ""
	rec.symbol = ""
	rec.disabledIds.Clear()
	rec.gen += 1

	w.freeList = append(w.freeList, index)
}

// collectEntities returns a snapshot of all entities that own an id matching pattern.
func (w *World) collectEntities(pattern Id) []Id {
	var entities []Id
	for t := range w.storage.TablesMatching(pattern) {
		entities = append(entities, t.entities...)
	}

	return entities
}

func (w *World) removeReferences(index Id) {
	references := func(id Id) bool {
		if native.IsPair(id) {
			return native.PairFirst(id) == index || native.PairSecond(id) == index
		}

		return native.Index(id) == index
	}

	for _, t := range slices.Clone(w.storage.tables) {
		ids := slices.DeleteFunc(slices.Clone(t.ids), references)
		if len(ids) == len(t.ids) {
			continue
		}

		target := w.storage.Lookup(ids)
		for _, entity := range slices.Clone(t.entities) {
			rec := w.recordOf(entity)
			w.storage.Move(w, rec, target)
		}
	}

	// the index can be recycled with a different type
	w.storage.Purge(func(t *table) bool {
		return slices.ContainsFunc(t.ids, references)
	})
}

func (w *World) Clear(e Id) {
	w.checkOpen("clear")

	if w.deferring() {
		w.enqueue(func() { w.clear(e) })
		return
	}

	w.clear(e)
}

func (w *World) clear(e Id) {
	rec := w.aliveRecord(e)
	if rec == nil {
		return
	}

	w.storage.Move(w, rec, w.storage.root)
	rec.name = ""
	rec.disabledIds.Clear()
}

func (w *World) AddId(e, id Id) {
	w.checkOpen("add_id")
	w.checkId("add_id", id)

	if w.deferring() {
		w.enqueue(func() { w.addId(e, id) })
		return
	}

	w.addId(e, id)
}

// addId adds the id and returns the record of the entity, or nil if e is not alive.
func (w *World) addId(e, id Id) *record {
	rec := w.aliveRecord(e)
	if rec == nil {
		return nil
	}

	if !native.IsPair(id) {
		id = native.Index(id)
	}

	if rec.table.Contains(id) {
		return rec
	}

	// ChildOf is exclusive, an entity has at most one parent
	if native.IsPair(id) && native.PairFirst(id) == EcsChildOf {
		if previous := w.parentIndex(rec); previous != 0 {
			w.storage.Move(w, rec, w.storage.WithoutId(rec, native.Pair(EcsChildOf, previous)))
		}
	}

	w.storage.Move(w, rec, w.storage.WithId(rec, id))
	return rec
}

func (w *World) RemoveId(e, id Id) {
	w.checkOpen("remove_id")

	if w.deferring() {
		w.enqueue(func() { w.removeId(e, id) })
		return
	}

	w.removeId(e, id)
}

func (w *World) removeId(e, id Id) {
	rec := w.aliveRecord(e)
	if rec == nil {
		return
	}

	if !native.IsPair(id) {
		id = native.Index(id)
	}

	if isWildcard(id) {
		for _, owned := range slices.Clone(rec.table.ids) {
			if idMatches(id, owned) {
				w.storage.Move(w, rec, w.storage.WithoutId(rec, owned))
			}
		}

		return
	}

	w.storage.Move(w, rec, w.storage.WithoutId(rec, id))
}

// checkId raises a fault if id cannot be added to an entity.
func (w *World) checkId(op string, id Id) {
	if id == 0 {
		native.Faultf(op, "invalid id 0")
	}

	if isWildcard(id) {
		native.Faultf(op, "cannot add wildcard id %s", w.idStr(id))
	}

	if native.IsPair(id) {
		if w.aliveId(native.PairFirst(id)) == 0 || w.aliveId(native.PairSecond(id)) == 0 {
			native.Faultf(op, "pair %s references a dead entity", w.idStr(id))
		}

		return
	}

	if w.aliveRecord(id) == nil {
		native.Faultf(op, "id %d is not alive", id)
	}
}

func (w *World) Enable(e Id, enabled bool) {
	if enabled {
		w.RemoveId(e, EcsDisabled)
	} else {
		w.AddId(e, EcsDisabled)
	}
}

func (w *World) EnableId(e, id Id, enabled bool) {
	w.checkOpen("enable_id")

	if w.deferring() {
		w.enqueue(func() { w.enableId(e, id, enabled) })
		return
	}

	w.enableId(e, id, enabled)
}

func (w *World) enableId(e, id Id, enabled bool) {
	rec := w.aliveRecord(e)
	if rec == nil {
		return
	}

	if !native.IsPair(id) {
		id = native.Index(id)
	}

	if enabled {
		rec.disabledIds.Remove(id)
	} else {
		rec.disabledIds.Insert(id)
	}
}

func (w *World) IsEnabledId(e, id Id) bool {
	rec := w.aliveRecord(e)
	if rec == nil {
		return false
	}

	if !native.IsPair(id) {
		id = native.Index(id)
	}

	return w.HasId(e, id) && !rec.disabledIds.Has(id)
}

func (w *World) HasId(e, id Id) bool {
	rec := w.aliveRecord(e)
	if rec == nil {
		return false
	}

	return w.hasId(rec, id, nil)
}

func (w *World) hasId(rec *record, id Id, visited *set.Set[Id]) bool {
	if w.ownsId(rec, id) {
		return true
	}

	// ChildOf is never inherited
	if native.IsPair(id) && native.PairFirst(id) == EcsChildOf {
		return false
	}

	for base := range w.bases(rec) {
		if visited == nil {
			visited = &set.Set[Id]{}
		}

		if !visited.Insert(base) {
			continue
		}

		if baseRec := w.aliveRecord(base); baseRec != nil && w.hasId(baseRec, id, visited) {
			return true
		}
	}

	return false
}

func (w *World) OwnsId(e, id Id) bool {
	rec := w.aliveRecord(e)
	if rec == nil {
		return false
	}

	return w.ownsId(rec, id)
}

func (w *World) ownsId(rec *record, id Id) bool {
	if !native.IsPair(id) {
		id = native.Index(id)
	}

	if isWildcard(id) {
		return slices.ContainsFunc(rec.table.ids, func(owned Id) bool { return idMatches(id, owned) })
	}

	return rec.table.Contains(id)
}

func (w *World) GetType(e Id) []Id {
	rec := w.aliveRecord(e)
	if rec == nil {
		return nil
	}

	// ids in a table only keep the index, restore the generation
	ids := make([]Id, 0, len(rec.table.ids))
	for _, id := range rec.table.ids {
		if native.IsPair(id) {
			ids = append(ids, id)
		} else {
			ids = append(ids, w.aliveId(id))
		}
	}

	return ids
}

func (w *World) CountId(id Id) int32 {
	if !native.IsPair(id) {
		id = native.Index(id)
	}

	var count int32
	for t := range w.storage.TablesMatching(id) {
		count += int32(t.Count())
	}

	return count
}

func isWildcard(id Id) bool {
	if native.IsPair(id) {
		return native.PairFirst(id) == EcsWildcard || native.PairSecond(id) == EcsWildcard
	}

	return native.Index(id) == EcsWildcard
}

// idMatches checks if id matches the pattern. Both must be normalized.
func idMatches(pattern, id Id) bool {
	if pattern == id {
		return true
	}

	if native.IsPair(pattern) != native.IsPair(id) {
		return false
	}

	if !native.IsPair(pattern) {
		return pattern == EcsWildcard
	}

	first := native.PairFirst(pattern)
	second := native.PairSecond(pattern)

	return (first == EcsWildcard || first == native.PairFirst(id)) &&
		(second == EcsWildcard || second == native.PairSecond(id))
}
