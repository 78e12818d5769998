package simcore

import (
	"slices"
	"strconv"

	"github.com/oliverbestmann/flecs-go/native"
)

func (ex *queryExec) serialize() string {
	var j jsonWriter
	j.WriteString(`{"results":[`)

	if ex.desc.Table {
		ex.writeTables(&j)
	} else {
		for idx, match := range ex.matches {
			if idx > 0 {
				j.WriteByte(',')
			}

			ex.writeRow(&j, match)
		}
	}

	j.WriteString(`]}`)
	return j.String()
}

func (ex *queryExec) writeRow(j *jsonWriter, match queryMatch) {
	w := ex.q.w

	j.WriteByte('{')
	first := true

	if ex.q.usesThis {
		w.writeIdentity(j, &first, match.this)
	}

	if ex.desc.Matches {
		ex.writeVars(j, &first, match)
	}

	j.key(&first, "fields")
	j.WriteByte('[')
	for idx, field := range match.fields {
		if idx > 0 {
			j.WriteByte(',')
		}

		if ex.desc.Matches {
			ex.writeFieldMatch(j, match, field, func() { ex.writeFieldValue(j, field) })
		} else {
			ex.writeFieldValue(j, field)
		}
	}
	j.WriteByte(']')

	j.WriteByte('}')
}

func (ex *queryExec) writeVars(j *jsonWriter, first *bool, match queryMatch) {
	if len(ex.q.vars) <= 1 {
		return
	}

	j.key(first, "vars")
	j.WriteByte('{')

	varFirst := true
	for slot, name := range ex.q.vars[1:] {
		j.key(&varFirst, name)

		if value := match.vars[slot+1]; value != 0 {
			j.str(ex.q.w.path(value))
		} else {
			j.WriteString("null")
		}
	}

	j.WriteByte('}')
}

func (ex *queryExec) writeFieldMatch(j *jsonWriter, match queryMatch, field fieldMatch, writeData func()) {
	w := ex.q.w

	j.WriteByte('{')
	first := true

	if field.set {
		j.key(&first, "id")
		j.str(w.idStr(field.id))

		if field.src != match.this {
			j.key(&first, "source")
			j.str(w.path(field.src))
		}
	}

	j.key(&first, "is_set")
	j.WriteString(strconv.FormatBool(field.set))

	if field.set && w.dataInfo(field.id) != nil {
		j.key(&first, "data")
		writeData()
	}

	j.WriteByte('}')
}

func (ex *queryExec) writeFieldValue(j *jsonWriter, field fieldMatch) {
	w := ex.q.w

	if !field.set {
		j.WriteString("null")
		return
	}

	rec := w.aliveRecord(field.src)
	if rec == nil {
		j.WriteString("null")
		return
	}

	ptr := rec.table.Ptr(rec.row, field.id)
	if ptr == nil {
		j.WriteString("null")
		return
	}

	w.writeValue(j, field.id, ptr)
}

// writeTables groups consecutive matches of entities in the same table with
// the same variables and field sources into a single result.
func (ex *queryExec) writeTables(j *jsonWriter) {
	w := ex.q.w

	sameGroup := func(a, b queryMatch) bool {
		if !ex.q.usesThis {
			return false
		}

		if w.aliveRecord(a.this).table != w.aliveRecord(b.this).table || !slices.Equal(a.vars[1:], b.vars[1:]) {
			return false
		}

		for idx := range a.fields {
			fa, fb := a.fields[idx], b.fields[idx]
			if fa.id != fb.id || fa.set != fb.set || (fa.src != a.this) != (fb.src != b.this) {
				return false
			}

			if fa.src != a.this && fa.src != fb.src {
				return false
			}
		}

		return true
	}

	for start := 0; start < len(ex.matches); {
		end := start + 1
		for end < len(ex.matches) && sameGroup(ex.matches[start], ex.matches[end]) {
			end += 1
		}

		if start > 0 {
			j.WriteByte(',')
		}

		ex.writeTable(j, ex.matches[start:end])
		start = end
	}
}

func (ex *queryExec) writeTable(j *jsonWriter, group []queryMatch) {
	w := ex.q.w
	head := group[0]

	j.WriteByte('{')
	first := true

	if ex.q.usesThis {
		rec := w.aliveRecord(head.this)

		j.key(&first, "table")
		j.str(w.typeStr(rec.table))

		// all entities of a table share the same ChildOf pair
		if parent := w.aliveId(w.parentIndex(rec)); parent != 0 {
			j.key(&first, "parent")
			j.str(w.path(parent))
		}

		j.key(&first, "count")
		j.WriteString(strconv.Itoa(len(group)))

		j.key(&first, "entities")
		j.WriteByte('[')
		for idx, match := range group {
			if idx > 0 {
				j.WriteByte(',')
			}

			j.str(w.nameOrIndex(match.this))
		}
		j.WriteByte(']')
	}

	if ex.desc.Matches {
		ex.writeVars(j, &first, head)
	}

	j.key(&first, "fields")
	j.WriteByte('[')
	for idx, field := range head.fields {
		if idx > 0 {
			j.WriteByte(',')
		}

		writeColumn := func() {
			j.WriteByte('[')
			for row, match := range group {
				if row > 0 {
					j.WriteByte(',')
				}

				ex.writeFieldValue(j, match.fields[idx])
			}
			j.WriteByte(']')
		}

		if ex.desc.Matches {
			ex.writeFieldMatch(j, head, field, writeColumn)
		} else {
			writeColumn()
		}
	}
	j.WriteByte(']')

	j.WriteByte('}')
}

// nameOrIndex returns the name of e without its parent path, or #index for
// unnamed entities.
func (w *World) nameOrIndex(e Id) string {
	if rec := w.aliveRecord(e); rec != nil && rec.name != "" {
		return rec.name
	}

	return "#" + itoa(native.Index(e))
}
