package flecs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEntityToJSON(t *testing.T) {
	w := newWorld(t, WithRegistry(positionRegistry()))

	_, err := w.NewScripted(`
		Likes {}
		Tag {}
		alice {}
		bob {}
		parent {
			e {
				Tag
				(Likes, alice)
				(Likes, bob)
				Position: {x: 1, y: 2.5}
			}
		}
		single {
			(Likes, alice)
		}
	`)
	require.NoError(t, err)

	e, ok := w.Lookup("parent.e")
	require.True(t, ok)

	dump, err := e.ToJSON()
	require.NoError(t, err)

	require.Equal(t, "parent", dump.Parent)
	require.Equal(t, "e", dump.Name)
	require.Equal(t, "parent.e", dump.Path())
	require.Equal(t, e.Id(), dump.Id)
	require.Equal(t, []string{"Tag"}, dump.Tags)
	require.Equal(t, map[string]PairTargets{"Likes": {"alice", "bob"}}, dump.Pairs)
	require.JSONEq(t, `{"x": 1, "y": 2.5}`, string(dump.Components["Position"]))

	// a single target is encoded as a plain string
	single, _ := w.Lookup("single")

	dump, err = single.ToJSON()
	require.NoError(t, err)
	require.Equal(t, map[string]PairTargets{"Likes": {"alice"}}, dump.Pairs)

	encoded, err := json.Marshal(dump)
	require.NoError(t, err)
	require.Contains(t, string(encoded), `"pairs":{"Likes":"alice"}`)

	// the entity itself encodes to the json of the native core
	encoded, err = json.Marshal(map[string]Entity{"e": single})
	require.NoError(t, err)
	require.Contains(t, string(encoded), `"name":"single"`)

	single.Destroy()

	_, err = single.ToJSON()
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPairTargets(t *testing.T) {
	var targets PairTargets

	require.NoError(t, json.Unmarshal([]byte(`"a"`), &targets))
	require.Equal(t, PairTargets{"a"}, targets)

	require.NoError(t, json.Unmarshal([]byte(`["a", "b"]`), &targets))
	require.Equal(t, PairTargets{"a", "b"}, targets)

	require.Error(t, json.Unmarshal([]byte(`1`), &targets))

	encoded, err := json.Marshal(PairTargets{"a", "b"})
	require.NoError(t, err)
	require.JSONEq(t, `["a", "b"]`, string(encoded))
}

func TestWorldToJSON(t *testing.T) {
	w := newWorld(t, WithRegistry(positionRegistry()))

	w.NewNamed("hello")

	dumps, err := w.ToJSON()
	require.NoError(t, err)

	var roots []string
	for _, dump := range dumps {
		if dump.Parent == "" {
			roots = append(roots, dump.Name)
		}
	}

	require.ElementsMatch(t, []string{"Position", "hello"}, roots)
}
