package flecs

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var primitiveKinds = map[reflect.Kind]string{
	reflect.Bool:    PrimBool,
	reflect.Int8:    PrimI8,
	reflect.Int16:   PrimI16,
	reflect.Int32:   PrimI32,
	reflect.Int64:   PrimI64,
	reflect.Int:     PrimIPtr,
	reflect.Uint8:   PrimU8,
	reflect.Uint16:  PrimU16,
	reflect.Uint32:  PrimU32,
	reflect.Uint64:  PrimU64,
	reflect.Uint:    PrimUPtr,
	reflect.Uintptr: PrimUPtr,
	reflect.Float32: PrimF32,
	reflect.Float64: PrimF64,
}

// RegisterType registers a struct type with the members derived from the
// fields of T. The type is registered with the name of T unless a name is
// given. A nil registry selects the DefaultRegistry.
//
// Fields are mapped to members by their kind. Fields of type Id become
// entity members, arrays become members with a count and nested structs
// refer to the type registered under the name of the field type.
// The `ecs` field tag overrides the mapping:
//
//	X     float32 `ecs:"x"`          // member named x
//	Label uintptr `ecs:"label,string"` // member named label of type string
//	Ring  [4]int8 `ecs:",u8,4"`      // member named ring of type u8[4]
//	cache int     `ecs:"-"`          // skipped
//
// Unexported fields without a tag are skipped. RegisterType panics if T is
// not a struct or a field cannot be mapped.
func RegisterType[T any](r *Registry, name ...string) TypeDef {
	if r == nil {
		r = DefaultRegistry
	}

	ty := reflect.TypeFor[T]()
	if ty.Kind() != reflect.Struct {
		panic(fmt.Sprintf("type %s is not a struct", ty))
	}

	def := TypeDef{Name: ty.Name(), Kind: StructKind}
	if len(name) > 0 {
		def.Name = name[0]
	}

	for idx := range ty.NumField() {
		field := ty.Field(idx)

		member, ok := memberOf(field)
		if !ok {
			continue
		}

		def.Members = append(def.Members, member)
	}

	return r.mustRegister(def)
}

func memberOf(field reflect.StructField) (MemberDef, bool) {
	tag, hasTag := field.Tag.Lookup("ecs")
	if tag == "-" || (!hasTag && !field.IsExported()) {
		return MemberDef{}, false
	}

	var parts [3]string
	copy(parts[:], strings.SplitN(tag, ",", 3))

	member := MemberDef{Name: parts[0], Type: parts[1]}

	if member.Name == "" {
		member.Name = lowerFirst(field.Name)
	}

	fieldType := field.Type
	if fieldType.Kind() == reflect.Array {
		member.Count = int32(fieldType.Len())
		fieldType = fieldType.Elem()
	}

	if parts[2] != "" {
		count, err := strconv.ParseInt(parts[2], 10, 32)
		if err != nil {
			panic(fmt.Sprintf("field %s has an invalid count: %s", field.Name, err))
		}

		member.Count = int32(count)
	}

	if member.Type == "" {
		member.Type = memberTypeOf(fieldType)
	}

	if member.Type == "" {
		panic(fmt.Sprintf("field %s of type %s can not be mapped, add a type to its ecs tag", field.Name, field.Type))
	}

	return member, true
}

func memberTypeOf(ty reflect.Type) string {
	switch {
	case ty == reflect.TypeFor[Id]():
		return PrimEntity

	case ty.Kind() == reflect.Struct:
		return ty.Name()

	default:
		return primitiveKinds[ty.Kind()]
	}
}

func lowerFirst(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToLower(r)) + name[size:]
}
