package simcore

import (
	"fmt"
	"slices"
	"unsafe"

	"github.com/oliverbestmann/flecs-go/native"
)

type metaKind uint8

const (
	metaNone metaKind = iota
	metaPrimitive
	metaStruct
	metaEnum
)

type typeInfo struct {
	size  uintptr
	align uintptr

	kind metaKind
	prim primKind

	members   []memberMeta
	constants []constantMeta
}

type memberMeta struct {
	name   string
	typ    Id
	count  int32
	offset uintptr
}

func (m memberMeta) elements() int {
	return max(int(m.count), 1)
}

type constantMeta struct {
	name  string
	value int32
}

// component values of the builtin meta components
type componentValue struct {
	Size      int32
	Alignment int32
}

type memberValue struct {
	Type   Id
	Count  int32
	Offset int32
}

type constantValue struct {
	Value int32
}

func alignUp(value, align uintptr) uintptr {
	return (value + align - 1) / align * align
}

func (w *World) CreateType(e Id, desc native.TypeDesc) (Id, error) {
	w.checkOpen("create_type")
	return w.createType(e, desc)
}

func (w *World) createType(e Id, desc native.TypeDesc) (Id, error) {
	if w.aliveRecord(e) == nil {
		return 0, fmt.Errorf("entity %d is not alive", e)
	}

	var info *typeInfo

	switch desc.Kind {
	case native.TypeStruct:
		var err error
		if info, err = w.structInfo(desc.Members); err != nil {
			return 0, fmt.Errorf("type %s: %w", w.path(e), err)
		}

	case native.TypeEnum:
		if len(desc.Constants) == 0 {
			return 0, fmt.Errorf("type %s: enum has no constants", w.path(e))
		}

		info = &typeInfo{size: 4, align: 4, kind: metaEnum}

		var next int32
		for _, constant := range desc.Constants {
			if constant.HasValue {
				next = constant.Value
			}

			info.constants = append(info.constants, constantMeta{name: constant.Name, value: next})
			next += 1
		}

	default:
		return 0, fmt.Errorf("type %s: unknown type kind %d", w.path(e), desc.Kind)
	}

	if w.CountId(native.Index(e)) > 0 {
		return 0, fmt.Errorf("type %s: component is already in use", w.path(e))
	}

	w.defineType(e, info)
	return e, nil
}

// defineType stores the type info and creates the reflection entities.
func (w *World) defineType(e Id, info *typeInfo) {
	index := native.Index(e)

	// remove stale member entities from an earlier definition
	for _, child := range w.collectEntities(native.Pair(EcsChildOf, index)) {
		if w.OwnsId(child, EcsMember) || w.OwnsId(child, EcsConstant) {
			w.delete(child)
		}
	}

	w.infos[index] = info

	// tables that already use the id as a tag must not be reused
	w.storage.Purge(func(t *table) bool { return slices.Contains(t.ids, index) })

	w.setComponentInfo(e)

	switch info.kind {
	case metaStruct:
		w.addId(e, EcsStruct)
		w.removeId(e, EcsEnum)

		for _, member := range info.members {
			child := w.childEntity(e, member.name)
			value := (*memberValue)(w.ensureNow(child, EcsMember, false))
			*value = memberValue{Type: member.typ, Count: member.count, Offset: int32(member.offset)}
		}

	case metaEnum:
		w.addId(e, EcsEnum)
		w.removeId(e, EcsStruct)

		for _, constant := range info.constants {
			child := w.childEntity(e, constant.name)
			value := (*constantValue)(w.ensureNow(child, EcsConstant, false))
			value.Value = constant.value
		}
	}
}

const maxMembers = 32

func (w *World) structInfo(members []native.MemberDesc) (*typeInfo, error) {
	if len(members) == 0 {
		return nil, fmt.Errorf("struct has no members")
	}

	if len(members) > maxMembers {
		return nil, fmt.Errorf("struct has %d members, at most %d are supported", len(members), maxMembers)
	}

	info := &typeInfo{kind: metaStruct, align: 1}

	var seen []string
	for _, member := range members {
		if member.Name == "" {
			return nil, fmt.Errorf("member without a name")
		}

		if slices.Contains(seen, member.Name) {
			return nil, fmt.Errorf("duplicate member %q", member.Name)
		}

		seen = append(seen, member.Name)

		if member.Count < 0 {
			return nil, fmt.Errorf("member %q has negative count", member.Name)
		}

		memberType := w.dataInfo(member.Type)
		if memberType == nil || w.aliveRecord(member.Type) == nil {
			return nil, fmt.Errorf("member %q has type %s which is not a component", member.Name, w.idStr(member.Type))
		}

		offset := alignUp(info.size, memberType.align)

		info.members = append(info.members, memberMeta{
			name:   member.Name,
			typ:    member.Type,
			count:  member.Count,
			offset: offset,
		})

		info.size = offset + memberType.size*uintptr(max(member.Count, 1))
		info.align = max(info.align, memberType.align)
	}

	info.size = alignUp(info.size, info.align)
	return info, nil
}

// childEntity returns the named child of parent, creating it if necessary.
func (w *World) childEntity(parent Id, name string) Id {
	if child := w.lookupIn(parent, name); child != 0 {
		return child
	}

	child := w.New()
	w.setName(child, name)
	w.addId(child, native.Pair(EcsChildOf, native.Index(parent)))

	return child
}

func (w *World) setComponentInfo(e Id) {
	info := w.infos[native.Index(e)]
	value := (*componentValue)(w.ensureNow(e, EcsComponent, false))
	value.Size = int32(info.size)
	value.Alignment = int32(info.align)
}

// TypeSize returns the size of the component, or zero for tags.
func (w *World) TypeSize(id Id) uintptr {
	if info := w.dataInfo(id); info != nil {
		return info.size
	}

	return 0
}

func (w *World) str(handle uint64) string {
	if handle == 0 || handle > uint64(len(w.strings)) {
		return ""
	}

	return w.strings[handle-1]
}

func (w *World) internString(value string) uint64 {
	if value == "" {
		return 0
	}

	w.strings = append(w.strings, value)
	return uint64(len(w.strings))
}

// StringValue reads a string member as stored in component memory.
func (w *World) StringValue(ptr unsafe.Pointer) string {
	return w.str(*(*uint64)(ptr))
}
