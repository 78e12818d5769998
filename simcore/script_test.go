package simcore

import (
	"testing"

	"github.com/oliverbestmann/flecs-go/native"
	"github.com/stretchr/testify/require"
)

func childrenOf(w *World, parent Id) []Id {
	cursor := w.Children(parent)
	defer cursor.Fini()

	var children []Id
	for {
		batch, ok := cursor.Next()
		if !ok {
			return children
		}

		children = append(children, batch...)
	}
}

func TestScriptEntityTree(t *testing.T) {
	w := newTestWorld(t)

	pos := newPositionType(t, w)

	script, err := w.ScriptInitCode(cs(`a { Position: {x:0.1,y:0.2} b { Position: {x:0.3,y:0.4} } }`))
	require.NoError(t, err)
	require.True(t, w.OwnsId(script, EcsScript))

	a := w.Lookup(cs("a"))
	require.NotZero(t, a)
	require.Equal(t, vec2{X: 0.1, Y: 0.2}, *(*vec2)(w.GetId(a, pos)))

	b := w.LookupChild(a, cs("b"))
	require.NotZero(t, b)
	require.Equal(t, b, w.Lookup(cs("a.b")))
	require.Equal(t, vec2{X: 0.3, Y: 0.4}, *(*vec2)(w.GetId(b, pos)))

	require.Equal(t, []Id{b}, childrenOf(w, a))
}

func TestScriptEntityPath(t *testing.T) {
	w := newTestWorld(t)

	pos := newPositionType(t, w)

	_, err := w.ScriptInitCode(cs("p {}\np.c { Position: {x: 1, y: 2} }\nq.r.s {}"))
	require.NoError(t, err)

	p := w.Lookup(cs("p"))
	require.NotZero(t, p)

	c := w.LookupChild(p, cs("c"))
	require.NotZero(t, c)
	require.Equal(t, c, w.Lookup(cs("p.c")))
	require.Equal(t, vec2{X: 1, Y: 2}, *(*vec2)(w.GetId(c, pos)))
	require.Equal(t, []Id{c}, childrenOf(w, p))

	// each path segment is its own entity name
	require.Equal(t, "c", w.GetName(c).String())

	// missing parents are created along the path
	s := w.Lookup(cs("q.r.s"))
	require.NotZero(t, s)
	require.Equal(t, w.Lookup(cs("q.r")), w.GetParent(s))
	require.Equal(t, w.Lookup(cs("q")), w.GetParent(w.Lookup(cs("q.r"))))
}

func TestScriptUpdate(t *testing.T) {
	w := newTestWorld(t)

	pos := newPositionType(t, w)

	script, err := w.ScriptInitCode(cs("a { Position: {1, 2} }"))
	require.NoError(t, err)

	a := w.Lookup(cs("a"))
	require.NotZero(t, a)

	err = w.ScriptUpdate(script, 0, cs("c {\n  Position: {3, 4}\n}"))
	require.NoError(t, err)

	require.False(t, w.IsAlive(a))

	c := w.Lookup(cs("c"))
	require.Equal(t, vec2{X: 3, Y: 4}, *(*vec2)(w.GetId(c, pos)))

	// a syntax error keeps the entities of the previous run
	err = w.ScriptUpdate(script, 0, cs("c {"))
	require.Error(t, err)
	require.True(t, w.IsAlive(c))

	w.ScriptClear(script, 0)
	require.False(t, w.IsAlive(c))
	require.True(t, w.IsAlive(script))

	// deleting the script entity deletes what it created
	err = w.ScriptUpdate(script, 0, cs("d {}"))
	require.NoError(t, err)

	d := w.Lookup(cs("d"))
	require.True(t, w.IsAlive(d))

	w.Delete(script)
	require.False(t, w.IsAlive(d))
}

func TestScriptUpdateWithTemplate(t *testing.T) {
	w := newTestWorld(t)

	likes := w.SetName(0, cs("Likes"))
	template := w.SetName(0, cs("template"))

	script, err := w.ScriptInitCode(cs(""))
	require.NoError(t, err)

	// statements without an entity apply to the template
	err = w.ScriptUpdate(script, template, cs("(Likes, Apples)\nchild {}"))
	require.NoError(t, err)

	apples := w.Lookup(cs("Apples"))
	require.NotZero(t, apples)

	require.True(t, w.HasId(template, native.Pair(likes, apples)))
	require.NotZero(t, w.Lookup(cs("template.child")))
}

func TestScriptTagsAndPairs(t *testing.T) {
	w := newTestWorld(t)

	script, err := w.ScriptInitCode(cs(`
		// relationships and tags are plain entities
		Likes {}
		Apples {}

		/* the entity using them */
		bob {
			Apples
			(Likes, Apples)
			(Likes, Pears)
		}
	`))

	require.NoError(t, err)
	require.NotZero(t, script)

	likes := w.Lookup(cs("Likes"))
	apples := w.Lookup(cs("Apples"))
	bob := w.Lookup(cs("bob"))

	// pair targets are created on demand
	pears := w.Lookup(cs("Pears"))
	require.NotZero(t, pears)

	require.True(t, w.HasId(bob, apples))
	require.True(t, w.HasId(bob, native.Pair(likes, apples)))
	require.True(t, w.HasId(bob, native.Pair(likes, pears)))
}

func TestScriptValues(t *testing.T) {
	w := newTestWorld(t)

	color := w.SetName(0, cs("Color"))
	_, err := w.CreateType(color, native.TypeDesc{
		Kind:      native.TypeEnum,
		Constants: []native.ConstantDesc{{Name: "Red"}, {Name: "Green"}},
	})
	require.NoError(t, err)

	label := w.SetName(0, cs("Label"))
	_, err = w.CreateType(label, native.TypeDesc{
		Kind: native.TypeStruct,
		Members: []native.MemberDesc{
			{Name: "text", Type: primitiveIds["string"]},
			{Name: "color", Type: color},
			{Name: "visible", Type: primitiveIds["bool"]},
			{Name: "counts", Type: primitiveIds["i32"], Count: 3},
			{Name: "owner", Type: primitiveIds["entity"]},
		},
	})
	require.NoError(t, err)

	_, err = w.ScriptInitCode(cs(`
		owner {}
		e {
			Label: {
				text: "hello \"world\""
				, color: Green, visible: true
				, counts: [1, -2, 3e1], owner: owner
			}
			Color: {Red}
		}
	`))
	require.NoError(t, err)

	e := w.Lookup(cs("e"))

	encoded, err := w.EntityToJSON(e)
	require.NoError(t, err)

	require.Contains(t, encoded, `"Label":{"text":"hello \"world\"","color":"Green","visible":true,"counts":[1,-2,30],"owner":"owner"}`)
	require.Contains(t, encoded, `"Color":"Red"`)
}

func TestScriptParseAndEval(t *testing.T) {
	w := newTestWorld(t)

	pos := newPositionType(t, w)

	script, err := w.ScriptParse(cs("spawner"), cs(`
		const y = 5
		e { Position: {x: $x, y: $y} }
	`))
	require.NoError(t, err)

	// parsing alone does not change the world
	require.Zero(t, w.Lookup(cs("e")))

	require.NoError(t, script.Eval([]native.Var{{Name: "x", Kind: native.VarNumber, Number: 3}}))

	e := w.Lookup(cs("e"))
	require.Equal(t, vec2{X: 3, Y: 5}, *(*vec2)(w.GetId(e, pos)))

	// evaluating again updates the same entity
	require.NoError(t, script.Eval([]native.Var{{Name: "x", Kind: native.VarNumber, Number: 4}}))
	require.Equal(t, e, w.Lookup(cs("e")))
	require.Equal(t, vec2{X: 4, Y: 5}, *(*vec2)(w.GetId(e, pos)))

	// unresolved variables are reported with their position
	err = script.Eval(nil)

	var syntaxErr *SyntaxError
	require.ErrorAs(t, err, &syntaxErr)
	require.Equal(t, "spawner", syntaxErr.Name)
	require.Equal(t, 3, syntaxErr.Line)

	script.Free()
	requireFault(t, func() { _ = script.Eval(nil) })
}

func TestScriptEvalWhileDeferred(t *testing.T) {
	w := newTestWorld(t)

	script, err := w.ScriptParse(nil, cs("e {}"))
	require.NoError(t, err)

	w.DeferBegin()
	require.NoError(t, script.Eval(nil))
	require.NotZero(t, w.Lookup(cs("e")))
	w.DeferEnd()
}

func TestScriptErrors(t *testing.T) {
	w := newTestWorld(t)

	newPositionType(t, w)

	cases := map[string]string{
		"missing value":        "a { Position: }",
		"missing brace":        "a { b {",
		"unexpected brace":     "}",
		"unknown component":    "a { Velocity: {1} }",
		"unknown member":       "a { Position: {z: 1} }",
		"too many values":      "a { Position: {1, 2, 3} }",
		"tag without entity":   "(ChildOf, a)",
		"wrong value type":     `a { Position: {x: "one"} }`,
		"unterminated string":  `a { Position: {x: "one} }`,
		"unterminated comment": "/* a {}",
		"invalid character":    "a { @ }",
		"wildcard pair":        "a { (ChildOf, *) }",
		"empty path segment":   "a..b {}",
	}

	for name, code := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := w.ScriptInitCode(cs(code))

			var syntaxErr *SyntaxError
			require.ErrorAs(t, err, &syntaxErr)
			require.NotEmpty(t, syntaxErr.Error())
		})
	}
}
