package flecs

import (
	"fmt"
	"maps"
	"reflect"
	"slices"

	"github.com/oliverbestmann/flecs-go/native"
)

// Vars holds the values of script variables. Values must be a bool, a string
// or any integer or floating point number.
type Vars map[string]any

// Script is a parsed script that can be evaluated any number of times.
type Script struct {
	world  *World
	native native.Script
	name   string
	closed bool
}

// Parse parses a script without evaluating it.
func (w *World) Parse(code string) (*Script, error) {
	return w.ParseNamed("", code)
}

// ParseNamed parses a script. The name is used in error messages.
func (w *World) ParseNamed(name, code string) (*Script, error) {
	var cname native.CString
	if name != "" {
		cname = native.ToCString(name)
	}

	script, err := w.core.ScriptParse(cname, native.ToCString(code))
	if err != nil {
		return nil, newError("script_parse", KindSyntax, name, err)
	}

	return &Script{world: w, native: script, name: name}, nil
}

// Eval evaluates the script. Entities created by a previous evaluation are
// updated in place.
func (s *Script) Eval(vars Vars) error {
	values, err := scriptVars(vars)
	if err != nil {
		return err
	}

	if err := s.native.Eval(values); err != nil {
		return newError("script_eval", KindSyntax, s.name, err)
	}

	return nil
}

// Close frees the parsed script. Calling Close more than once has no effect.
func (s *Script) Close() {
	if s.closed {
		return
	}

	s.closed = true
	s.native.Free()
}

func scriptVars(vars Vars) ([]native.Var, error) {
	var values []native.Var

	for _, name := range slices.Sorted(maps.Keys(vars)) {
		value := native.Var{Name: name}

		rv := reflect.ValueOf(vars[name])

		switch {
		case !rv.IsValid():
			return nil, &Error{Op: "script_eval", Kind: KindInvalidVariable, Name: name, Detail: "value is nil"}

		case rv.Kind() == reflect.Bool:
			value.Kind = native.VarBool
			value.Bool = rv.Bool()

		case rv.Kind() == reflect.String:
			value.Kind = native.VarString
			value.String = rv.String()

		case rv.CanInt():
			value.Kind = native.VarNumber
			value.Number = float64(rv.Int())

		case rv.CanUint():
			value.Kind = native.VarNumber
			value.Number = float64(rv.Uint())

		case rv.CanFloat():
			value.Kind = native.VarNumber
			value.Number = rv.Float()

		default:
			return nil, &Error{Op: "script_eval", Kind: KindInvalidVariable, Name: name, Detail: fmt.Sprintf("unsupported value of type %T", vars[name])}
		}

		values = append(values, value)
	}

	return values, nil
}

// ScriptedEntity is the entity that owns a script. All entities created by
// the script are replaced when the script is updated.
type ScriptedEntity struct {
	Entity
}

// NewScripted creates a script entity and evaluates code.
func (w *World) NewScripted(code string) (ScriptedEntity, error) {
	id, err := w.core.ScriptInitCode(native.ToCString(code))
	if err != nil {
		return ScriptedEntity{}, newError("script_init", KindSyntax, "", err)
	}

	return ScriptedEntity{Entity: w.entity(id)}, nil
}

// Update replaces the code of the script and evaluates it again.
func (s ScriptedEntity) Update(code string) error {
	return s.UpdateWithTemplate(code, nil)
}

// UpdateWithTemplate is like Update, but statements without an entity apply
// to template. A nil template behaves like Update.
func (s ScriptedEntity) UpdateWithTemplate(code string, template Identifier) error {
	var tmpl native.Id
	if template != nil {
		tmpl = template.Raw()
	}

	if err := s.core().ScriptUpdate(s.Raw(), tmpl, native.ToCString(code)); err != nil {
		return newError("script_update", KindSyntax, s.Name(), err)
	}

	return nil
}

// Clear deletes all entities created by the script.
func (s ScriptedEntity) Clear() {
	s.core().ScriptClear(s.Raw(), 0)
}
