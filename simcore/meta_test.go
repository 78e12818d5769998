package simcore

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/oliverbestmann/flecs-go/native"
	"github.com/stretchr/testify/require"
)

func TestCreateStruct(t *testing.T) {
	w := newTestWorld(t)

	pos := newPositionType(t, w)
	require.Equal(t, pos, w.Lookup(cs("Position")))
	require.True(t, w.OwnsId(pos, EcsStruct))

	component := (*componentValue)(w.GetId(pos, EcsComponent))
	require.Equal(t, componentValue{Size: 16, Alignment: 8}, *component)

	f64 := primitiveIds["f64"]

	x := w.Lookup(cs("Position.x"))
	require.NotZero(t, x)
	require.Equal(t, memberValue{Type: f64, Offset: 0}, *(*memberValue)(w.GetId(x, EcsMember)))

	y := w.Lookup(cs("Position.y"))
	require.NotZero(t, y)
	require.Equal(t, memberValue{Type: f64, Offset: 8}, *(*memberValue)(w.GetId(y, EcsMember)))
}

func TestStructLayout(t *testing.T) {
	w := newTestWorld(t)

	e := w.SetName(0, cs("Mixed"))
	_, err := w.CreateType(e, native.TypeDesc{
		Kind: native.TypeStruct,
		Members: []native.MemberDesc{
			{Name: "a", Type: primitiveIds["u8"]},
			{Name: "b", Type: primitiveIds["f64"]},
			{Name: "c", Type: primitiveIds["u16"], Count: 3},
		},
	})

	require.NoError(t, err)

	require.EqualValues(t, 24, w.TypeSize(e))

	offsets := map[string]int32{"a": 0, "b": 8, "c": 16}
	for name, offset := range offsets {
		member := w.LookupChild(e, cs(name))
		require.Equal(t, offset, (*memberValue)(w.GetId(member, EcsMember)).Offset, name)
	}

	// struct members can use other structs
	pos := newPositionType(t, w)

	line := w.SetName(0, cs("Line"))
	_, err = w.CreateType(line, native.TypeDesc{
		Kind: native.TypeStruct,
		Members: []native.MemberDesc{
			{Name: "start", Type: pos},
			{Name: "end", Type: pos},
		},
	})

	require.NoError(t, err)
	require.EqualValues(t, 32, w.TypeSize(line))
}

func TestRedefineStruct(t *testing.T) {
	w := newTestWorld(t)

	e := w.SetName(0, cs("Value"))

	_, err := w.CreateType(e, native.TypeDesc{
		Kind:    native.TypeStruct,
		Members: []native.MemberDesc{{Name: "a", Type: primitiveIds["i32"]}},
	})
	require.NoError(t, err)

	_, err = w.CreateType(e, native.TypeDesc{
		Kind:    native.TypeStruct,
		Members: []native.MemberDesc{{Name: "b", Type: primitiveIds["i64"]}},
	})
	require.NoError(t, err)

	require.Zero(t, w.Lookup(cs("Value.a")))
	require.NotZero(t, w.Lookup(cs("Value.b")))
	require.EqualValues(t, 8, w.TypeSize(e))
}

func TestCreateTypeErrors(t *testing.T) {
	w := newTestWorld(t)

	tag := w.New()

	inUse := w.New()
	w.AddId(w.New(), inUse)

	dead := w.New()
	w.Delete(dead)

	i32 := primitiveIds["i32"]

	cases := map[string]struct {
		entity Id
		desc   native.TypeDesc
	}{
		"no members": {
			entity: w.New(),
			desc:   native.TypeDesc{Kind: native.TypeStruct},
		},
		"duplicate member": {
			entity: w.New(),
			desc: native.TypeDesc{Kind: native.TypeStruct, Members: []native.MemberDesc{
				{Name: "a", Type: i32},
				{Name: "a", Type: i32},
			}},
		},
		"tag as member type": {
			entity: w.New(),
			desc: native.TypeDesc{Kind: native.TypeStruct, Members: []native.MemberDesc{
				{Name: "a", Type: tag},
			}},
		},
		"negative count": {
			entity: w.New(),
			desc: native.TypeDesc{Kind: native.TypeStruct, Members: []native.MemberDesc{
				{Name: "a", Type: i32, Count: -1},
			}},
		},
		"no constants": {
			entity: w.New(),
			desc:   native.TypeDesc{Kind: native.TypeEnum},
		},
		"in use": {
			entity: inUse,
			desc: native.TypeDesc{Kind: native.TypeStruct, Members: []native.MemberDesc{
				{Name: "a", Type: i32},
			}},
		},
		"dead entity": {
			entity: dead,
			desc: native.TypeDesc{Kind: native.TypeStruct, Members: []native.MemberDesc{
				{Name: "a", Type: i32},
			}},
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := w.CreateType(tc.entity, tc.desc)
			require.Error(t, err)
		})
	}
}

func TestCreateEnum(t *testing.T) {
	w := newTestWorld(t)

	color := w.SetName(0, cs("Color"))
	_, err := w.CreateType(color, native.TypeDesc{
		Kind: native.TypeEnum,
		Constants: []native.ConstantDesc{
			{Name: "Red"},
			{Name: "Green", Value: 5, HasValue: true},
			{Name: "Blue"},
		},
	})

	require.NoError(t, err)
	require.True(t, w.OwnsId(color, EcsEnum))
	require.EqualValues(t, 4, w.TypeSize(color))

	values := map[string]int32{"Red": 0, "Green": 5, "Blue": 6}
	for name, value := range values {
		constant := w.Lookup(cs("Color." + name))
		require.NotZero(t, constant, name)
		require.Equal(t, value, (*constantValue)(w.GetId(constant, EcsConstant)).Value, name)
	}
}

func TestEntityJSON(t *testing.T) {
	w := newTestWorld(t)

	pos := newPositionType(t, w)

	tag := w.SetName(0, cs("Tag"))
	likes := w.SetName(0, cs("Likes"))
	alice := w.SetName(0, cs("Alice"))
	bob := w.SetName(0, cs("Bob"))

	parent := w.SetName(0, cs("parent"))

	e := w.SetName(w.New(), cs("e"))
	w.AddId(e, native.Pair(EcsChildOf, parent))
	w.AddId(e, tag)
	w.AddId(e, native.Pair(likes, alice))
	w.AddId(e, native.Pair(likes, bob))
	*(*vec2)(w.GetMutId(e, pos)) = vec2{X: 1, Y: 2.5}

	encoded, err := w.EntityToJSON(e)
	require.NoError(t, err)

	expected := fmt.Sprintf(`{
		"parent": "parent",
		"name": "e",
		"id": %d,
		"tags": ["Tag"],
		"pairs": {"Likes": ["Alice", "Bob"]},
		"components": {"Position": {"x": 1, "y": 2.5}}
	}`, e)

	require.JSONEq(t, expected, encoded)

	require.Equal(t, "parent.e [Position, Tag, (ChildOf,parent), (Likes,Alice), (Likes,Bob)]", w.EntityStr(e))

	_, err = w.EntityToJSON(w.New() + 1000)
	require.Error(t, err)
}

func TestWorldJSON(t *testing.T) {
	w := newTestWorld(t)

	newPositionType(t, w)
	w.SetName(0, cs("hello"))

	encoded, err := w.WorldToJSON()
	require.NoError(t, err)

	var parsed struct {
		Results []struct {
			Name   string `json:"name"`
			Parent string `json:"parent"`
		} `json:"results"`
	}

	require.NoError(t, json.Unmarshal([]byte(encoded), &parsed))

	var names []string
	for _, result := range parsed.Results {
		if result.Parent == "" {
			names = append(names, result.Name)
		}
	}

	// builtin entities are not part of the world dump
	require.ElementsMatch(t, []string{"Position", "hello"}, names)
}
