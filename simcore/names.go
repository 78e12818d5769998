package simcore

import (
	"strconv"
	"strings"

	"github.com/oliverbestmann/flecs-go/native"
)

func itoa(value Id) string {
	return strconv.FormatUint(value, 10)
}

func (w *World) GetName(e Id) native.CString {
	rec := w.aliveRecord(e)
	if rec == nil || rec.name == "" {
		return nil
	}

	return native.ToCString(rec.name)
}

func (w *World) SetName(e Id, name native.CString) Id {
	w.checkOpen("set_name")

	value := name.String()

	if e == 0 {
		// return the existing entity with this name, like entity creation does
		if existing := w.lookupIn(0, value); value != "" && existing != 0 {
			return existing
		}

		e = w.New()
	}

	if w.deferring() {
		w.enqueue(func() { w.setName(e, value) })
		return e
	}

	w.setName(e, value)
	return e
}

func (w *World) setName(e Id, name string) {
	if rec := w.aliveRecord(e); rec != nil {
		rec.name = name
	}
}

func (w *World) GetSymbol(e Id) native.CString {
	rec := w.aliveRecord(e)
	if rec == nil || rec.symbol == "" {
		return nil
	}

	return native.ToCString(rec.symbol)
}

func (w *World) SetSymbol(e Id, symbol native.CString) Id {
	w.checkOpen("set_symbol")

	value := symbol.String()

	if e == 0 {
		e = w.New()
	}

	if w.deferring() {
		w.enqueue(func() { w.setSymbol(e, value) })
		return e
	}

	w.setSymbol(e, value)
	return e
}

func (w *World) setSymbol(e Id, symbol string) {
	rec := w.aliveRecord(e)
	if rec == nil {
		return
	}

	if rec.symbol != "" {
		delete(w.symbols, rec.symbol)
	}

	rec.symbol = symbol

	if symbol != "" {
		w.symbols[symbol] = e
	}
}

func (w *World) SetAlias(e Id, alias native.CString) Id {
	w.checkOpen("set_alias")

	value := alias.String()

	if e == 0 {
		e = w.New()
	}

	if w.deferring() {
		w.enqueue(func() { w.setAlias(e, value) })
		return e
	}

	w.setAlias(e, value)
	return e
}

func (w *World) setAlias(e Id, alias string) {
	if w.aliveRecord(e) == nil {
		return
	}

	for existing, target := range w.aliases {
		if target == e {
			delete(w.aliases, existing)
		}
	}

	if alias != "" {
		w.aliases[alias] = e
	}
}

func (w *World) Lookup(path native.CString) Id {
	return w.lookupPath(0, path.String())
}

func (w *World) LookupChild(parent Id, path native.CString) Id {
	if parent != 0 && w.aliveRecord(parent) == nil {
		return 0
	}

	return w.lookupPath(parent, path.String())
}

func (w *World) LookupSymbol(symbol native.CString) Id {
	value := symbol.String()
	if e, ok := w.symbols[value]; ok && w.IsAlive(e) {
		return e
	}

	return w.lookupPath(0, value)
}

func (w *World) lookupPath(parent Id, path string) Id {
	if path == "" {
		return 0
	}

	if parent == 0 {
		if e, ok := w.aliases[path]; ok && w.IsAlive(e) {
			return e
		}
	}

	current := parent
	for segment := range strings.SplitSeq(path, ".") {
		if segment == "" {
			return 0
		}

		current = w.lookupIn(current, segment)
		if current == 0 {
			return 0
		}
	}

	return current
}

// lookupIn resolves a single path segment within the scope of parent.
// A zero parent is the root scope.
func (w *World) lookupIn(parent Id, segment string) Id {
	if index, ok := strings.CutPrefix(segment, "#"); ok {
		value, err := strconv.ParseUint(index, 10, 32)
		if err != nil {
			return 0
		}

		e := w.aliveId(value)
		if e == 0 {
			return 0
		}

		if parent != 0 && w.GetParent(e) != parent {
			return 0
		}

		return e
	}

	if parent == 0 {
		for index := range w.records {
			rec := &w.records[index]
			if rec.alive && rec.name == segment && w.parentIndex(rec) == 0 {
				return w.aliveId(Id(index))
			}
		}

		return 0
	}

	for t := range w.storage.TablesMatching(native.Pair(EcsChildOf, native.Index(parent))) {
		for _, child := range t.entities {
			if rec := w.recordOf(child); rec.name == segment {
				return child
			}
		}
	}

	return 0
}
