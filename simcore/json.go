package simcore

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unsafe"

	"github.com/oliverbestmann/flecs-go/native"
)

type jsonWriter struct {
	strings.Builder
}

func (j *jsonWriter) str(value string) {
	encoded, _ := json.Marshal(value)
	j.Write(encoded)
}

func (j *jsonWriter) key(first *bool, name string) {
	if !*first {
		j.WriteByte(',')
	}

	*first = false

	j.str(name)
	j.WriteByte(':')
}

func (j *jsonWriter) float(value float64, bits int) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		j.WriteString("null")
		return
	}

	j.WriteString(strconv.FormatFloat(value, 'g', -1, bits))
}

// writeValue serializes the value of type typ stored at ptr.
func (w *World) writeValue(j *jsonWriter, typ Id, ptr unsafe.Pointer) {
	info := w.dataInfo(typ)
	if info == nil {
		j.WriteString("null")
		return
	}

	switch info.kind {
	case metaPrimitive:
		w.writePrimitive(j, info.prim, ptr)

	case metaEnum:
		value := *(*int32)(ptr)
		for _, constant := range info.constants {
			if constant.value == value {
				j.str(constant.name)
				return
			}
		}

		j.WriteString(strconv.FormatInt(int64(value), 10))

	case metaStruct:
		j.WriteByte('{')

		first := true
		for _, member := range info.members {
			j.key(&first, member.name)
			w.writeMember(j, member, ptr)
		}

		j.WriteByte('}')

	default:
		j.WriteString("null")
	}
}

func (w *World) writeMember(j *jsonWriter, member memberMeta, base unsafe.Pointer) {
	ptr := unsafe.Add(base, member.offset)
	if member.count <= 1 {
		w.writeValue(j, member.typ, ptr)
		return
	}

	size := w.dataInfo(member.typ).size

	j.WriteByte('[')
	for idx := range member.elements() {
		if idx > 0 {
			j.WriteByte(',')
		}

		w.writeValue(j, member.typ, unsafe.Add(ptr, uintptr(idx)*size))
	}
	j.WriteByte(']')
}

func (w *World) writePrimitive(j *jsonWriter, kind primKind, ptr unsafe.Pointer) {
	switch kind {
	case primBool:
		j.WriteString(strconv.FormatBool(*(*bool)(ptr)))
	case primChar, primI8:
		j.WriteString(strconv.FormatInt(int64(*(*int8)(ptr)), 10))
	case primByte, primU8:
		j.WriteString(strconv.FormatUint(uint64(*(*uint8)(ptr)), 10))
	case primU16:
		j.WriteString(strconv.FormatUint(uint64(*(*uint16)(ptr)), 10))
	case primU32:
		j.WriteString(strconv.FormatUint(uint64(*(*uint32)(ptr)), 10))
	case primU64, primUPtr:
		j.WriteString(strconv.FormatUint(*(*uint64)(ptr), 10))
	case primI16:
		j.WriteString(strconv.FormatInt(int64(*(*int16)(ptr)), 10))
	case primI32:
		j.WriteString(strconv.FormatInt(int64(*(*int32)(ptr)), 10))
	case primI64, primIPtr:
		j.WriteString(strconv.FormatInt(*(*int64)(ptr), 10))
	case primF32:
		j.float(float64(*(*float32)(ptr)), 32)
	case primF64:
		j.float(*(*float64)(ptr), 64)
	case primString:
		j.str(w.str(*(*uint64)(ptr)))
	case primEntity:
		e := *(*Id)(ptr)
		if e == 0 {
			j.str("#0")
		} else {
			j.str(w.path(e))
		}
	case primId:
		id := *(*Id)(ptr)
		if id == 0 {
			j.str("#0")
		} else {
			j.str(w.idStr(id))
		}
	}
}

func (w *World) EntityToJSON(e Id) (string, error) {
	w.checkOpen("entity_to_json")

	if w.aliveRecord(e) == nil {
		return "", fmt.Errorf("entity %d is not alive", e)
	}

	var j jsonWriter
	w.writeEntity(&j, e)
	return j.String(), nil
}

func (w *World) WorldToJSON() (string, error) {
	w.checkOpen("world_to_json")

	var j jsonWriter
	j.WriteString(`{"results":[`)

	first := true
	for index := firstUserId; index < Id(len(w.records)); index++ {
		e := w.aliveId(index)
		if e == 0 {
			continue
		}

		if !first {
			j.WriteByte(',')
		}

		first = false
		w.writeEntity(&j, e)
	}

	j.WriteString(`]}`)
	return j.String(), nil
}

// writeEntity writes the parent, name and id of the entity followed by its
// tags, pairs and component values.
func (w *World) writeEntity(j *jsonWriter, e Id) {
	rec := w.aliveRecord(e)

	j.WriteByte('{')

	first := true
	w.writeIdentity(j, &first, e)

	var tags []Id
	var components []Id
	pairs := map[Id][]Id{}
	var pairOrder []Id

	for _, id := range rec.table.ids {
		switch {
		case w.dataInfo(id) != nil:
			components = append(components, id)

		case native.IsPair(id):
			rel := native.PairFirst(id)
			if rel == EcsChildOf {
				continue
			}

			if _, ok := pairs[rel]; !ok {
				pairOrder = append(pairOrder, rel)
			}

			pairs[rel] = append(pairs[rel], native.PairSecond(id))

		default:
			tags = append(tags, id)
		}
	}

	if len(tags) > 0 {
		j.key(&first, "tags")
		j.WriteByte('[')
		for idx, tag := range tags {
			if idx > 0 {
				j.WriteByte(',')
			}

			j.str(w.idStr(tag))
		}
		j.WriteByte(']')
	}

	if len(pairOrder) > 0 {
		j.key(&first, "pairs")

		pairFirst := true
		j.WriteByte('{')
		for _, rel := range pairOrder {
			j.key(&pairFirst, w.indexStr(rel))

			targets := pairs[rel]
			if len(targets) == 1 {
				j.str(w.indexStr(targets[0]))
				continue
			}

			j.WriteByte('[')
			for idx, target := range targets {
				if idx > 0 {
					j.WriteByte(',')
				}

				j.str(w.indexStr(target))
			}
			j.WriteByte(']')
		}
		j.WriteByte('}')
	}

	if len(components) > 0 {
		j.key(&first, "components")

		componentFirst := true
		j.WriteByte('{')
		for _, id := range components {
			j.key(&componentFirst, w.idStr(id))
			w.writeValue(j, id, rec.table.Ptr(rec.row, id))
		}
		j.WriteByte('}')
	}

	j.WriteByte('}')
}

func (w *World) writeIdentity(j *jsonWriter, first *bool, e Id) {
	rec := w.aliveRecord(e)

	if parent := w.aliveId(w.parentIndex(rec)); parent != 0 {
		j.key(first, "parent")
		j.str(w.path(parent))
	}

	if rec.name != "" {
		j.key(first, "name")
		j.str(rec.name)
	}

	j.key(first, "id")
	j.WriteString(strconv.FormatUint(e, 10))
}

func (w *World) typeStr(t *table) string {
	var value strings.Builder
	for idx, id := range t.ids {
		if idx > 0 {
			value.WriteString(", ")
		}

		value.WriteString(w.idStr(id))
	}

	return value.String()
}

func (w *World) EntityStr(e Id) string {
	rec := w.aliveRecord(e)
	if rec == nil {
		return ""
	}

	return w.path(e) + " [" + w.typeStr(rec.table) + "]"
}
