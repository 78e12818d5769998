package simcore

import (
	"fmt"
	"math"
	"strings"
	"unsafe"

	"github.com/oliverbestmann/flecs-go/native"
)

// scriptState belongs to an entity created from script code.
type scriptState struct {
	code    string
	managed []Id
}

// scriptHandle is a parsed script that can be evaluated any number of times.
type scriptHandle struct {
	w    *World
	name string
	body []stmt
	done bool
}

type evaluator struct {
	w    *World
	name string

	vars   map[string]valueExpr
	consts map[string]valueExpr

	// entities created during this evaluation
	created []Id
}

func (w *World) ScriptParse(name, code native.CString) (native.Script, error) {
	w.checkOpen("script_parse")

	body, err := parseScript(name.String(), code.String())
	if err != nil {
		return nil, err
	}

	return &scriptHandle{w: w, name: name.String(), body: body}, nil
}

func (s *scriptHandle) Eval(vars []native.Var) error {
	if s.done {
		native.Faultf("script_eval", "script was freed")
	}

	s.w.checkOpen("script_eval")

	ev := s.w.newEvaluator(s.name, vars)
	return ev.evalBody(0, s.body)
}

func (s *scriptHandle) Free() {
	if s.done {
		native.Faultf("script_free", "script was already freed")
	}

	s.done = true
}

func (w *World) ScriptInitCode(code native.CString) (Id, error) {
	w.checkOpen("script_init")

	body, err := parseScript("", code.String())
	if err != nil {
		return 0, err
	}

	e := w.New()
	w.addId(e, EcsScript)

	state := &scriptState{code: code.String()}
	w.scripts[e] = state

	ev := w.newEvaluator("", nil)
	err = ev.evalBody(0, body)
	state.managed = ev.created

	if err != nil {
		w.delete(e)
		return 0, err
	}

	return e, nil
}

func (w *World) ScriptUpdate(e, template Id, code native.CString) error {
	w.checkOpen("script_update")

	state, ok := w.scripts[e]
	if !ok || !w.IsAlive(e) {
		return fmt.Errorf("entity %d is not a script", e)
	}

	body, err := parseScript(w.path(e), code.String())
	if err != nil {
		return err
	}

	if template != 0 && !w.IsAlive(template) {
		return fmt.Errorf("template %d is not alive", template)
	}

	w.clearScript(state)

	state.code = code.String()

	ev := w.newEvaluator(w.path(e), nil)
	err = ev.evalBody(template, body)
	state.managed = ev.created

	return err
}

func (w *World) ScriptClear(e, template Id) {
	w.checkOpen("script_clear")

	if state, ok := w.scripts[e]; ok {
		w.clearScript(state)
	}
}

func (w *World) clearScript(state *scriptState) {
	// delete in reverse creation order, children first
	for idx := len(state.managed) - 1; idx >= 0; idx-- {
		w.delete(state.managed[idx])
	}

	state.managed = nil
}

func (w *World) newEvaluator(name string, vars []native.Var) *evaluator {
	ev := &evaluator{
		w:      w,
		name:   name,
		vars:   map[string]valueExpr{},
		consts: map[string]valueExpr{},
	}

	for _, v := range vars {
		switch v.Kind {
		case native.VarBool:
			ev.vars[v.Name] = valueExpr{kind: valueBool, flag: v.Bool}
		case native.VarNumber:
			ev.vars[v.Name] = valueExpr{kind: valueNumber, number: v.Number}
		case native.VarString:
			ev.vars[v.Name] = valueExpr{kind: valueString, text: v.String}
		}
	}

	return ev
}

func (ev *evaluator) errorAt(pos position, msg string, args ...any) error {
	return &SyntaxError{Name: ev.name, Line: pos.line, Col: pos.col, Msg: fmt.Sprintf(msg, args...)}
}

// evalBody applies the statements with scope as the current entity.
// Mutations are applied immediately, even if the world is deferred.
func (ev *evaluator) evalBody(scope Id, body []stmt) error {
	for _, statement := range body {
		if err := ev.evalStatement(scope, statement); err != nil {
			return err
		}
	}

	return nil
}

func (ev *evaluator) evalStatement(scope Id, statement stmt) error {
	w := ev.w

	switch statement.kind {
	case stmtConst:
		value, err := ev.resolveVars(*statement.value)
		if err != nil {
			return err
		}

		ev.consts[statement.name] = value
		return nil

	case stmtEntity:
		e, err := ev.entity(scope, statement.name, statement.pos)
		if err != nil {
			return err
		}

		return ev.evalBody(e, statement.body)
	}

	if scope == 0 {
		return ev.errorAt(statement.pos, "%q must be declared in the scope of an entity", statement.name)
	}

	switch statement.kind {
	case stmtTag:
		id := w.lookupPath(0, statement.name)
		if id == 0 {
			return ev.errorAt(statement.pos, "unresolved identifier %q", statement.name)
		}

		w.addId(scope, id)
		return nil

	case stmtPair:
		rel := w.lookupPath(0, statement.name)
		if rel == 0 {
			return ev.errorAt(statement.pos, "unresolved relationship %q", statement.name)
		}

		// targets are created on demand
		target, err := ev.entity(0, statement.target, statement.pos)
		if err != nil {
			return err
		}

		pair := native.Pair(rel, target)
		if isWildcard(pair) {
			return ev.errorAt(statement.pos, "cannot add wildcard pair %s", w.idStr(pair))
		}

		if statement.value == nil {
			w.addId(scope, pair)
			return nil
		}

		return ev.setValue(scope, pair, *statement.value, statement.pos)

	case stmtComponent:
		component := w.lookupPath(0, statement.name)
		if component == 0 {
			return ev.errorAt(statement.pos, "unresolved component %q", statement.name)
		}

		return ev.setValue(scope, component, *statement.value, statement.pos)
	}

	return ev.errorAt(statement.pos, "unsupported statement")
}

// entity resolves the path name in scope. Missing path segments are created
// as children of the previous segment.
func (ev *evaluator) entity(scope Id, name string, pos position) (Id, error) {
	w := ev.w

	if e := w.lookupPath(scope, name); e != 0 {
		return e, nil
	}

	current := scope
	for segment := range strings.SplitSeq(name, ".") {
		if segment == "" {
			return 0, ev.errorAt(pos, "invalid entity path %q", name)
		}

		if e := w.lookupIn(current, segment); e != 0 {
			current = e
			continue
		}

		if strings.HasPrefix(segment, "#") {
			return 0, ev.errorAt(pos, "unresolved entity %q in path %q", segment, name)
		}

		e := w.New()
		w.setName(e, segment)

		if current != 0 {
			w.addId(e, native.Pair(EcsChildOf, native.Index(current)))
		}

		ev.created = append(ev.created, e)
		current = e
	}

	return current, nil
}

func (ev *evaluator) setValue(e, id Id, value valueExpr, pos position) error {
	w := ev.w

	info := w.dataInfo(id)
	if info == nil {
		return ev.errorAt(pos, "%s is not a component and cannot have a value", w.idStr(id))
	}

	ptr := w.ensureNow(e, normalize(id), false)
	if err := ev.assign(id, ptr, value); err != nil {
		return err
	}

	w.modified(e, id)
	return nil
}

// resolveVars replaces variables and constants in value.
func (ev *evaluator) resolveVars(value valueExpr) (valueExpr, error) {
	switch value.kind {
	case valueVar:
		if resolved, ok := ev.vars[value.text]; ok {
			return resolved, nil
		}

		if resolved, ok := ev.consts[value.text]; ok {
			return resolved, nil
		}

		return valueExpr{}, ev.errorAt(value.pos, "unresolved variable '$%s'", value.text)

	case valueIdent:
		if resolved, ok := ev.consts[value.text]; ok {
			return resolved, nil
		}

	case valueObject, valueArray:
		fields := make([]fieldExpr, len(value.fields))
		for idx, field := range value.fields {
			resolved, err := ev.resolveVars(field.value)
			if err != nil {
				return valueExpr{}, err
			}

			fields[idx] = fieldExpr{name: field.name, value: resolved}
		}

		value.fields = fields
	}

	return value, nil
}

// assign writes value into memory of type typ at ptr.
func (ev *evaluator) assign(typ Id, ptr unsafe.Pointer, value valueExpr) error {
	w := ev.w

	value, err := ev.resolveVars(value)
	if err != nil {
		return err
	}

	info := w.dataInfo(typ)

	switch info.kind {
	case metaPrimitive, metaEnum:
		// a single positional value in braces applies to the value itself
		if value.kind == valueObject && len(value.fields) == 1 && value.fields[0].name == "" {
			value = value.fields[0].value
		}

		if info.kind == metaEnum {
			return ev.assignEnum(info, ptr, value)
		}

		return ev.assignPrimitive(info.prim, ptr, value)

	case metaStruct:
		if value.kind != valueObject {
			return ev.errorAt(value.pos, "expected '{' for value of %s", w.idStr(typ))
		}

		for idx, field := range value.fields {
			var member memberMeta

			if field.name == "" {
				if idx >= len(info.members) {
					return ev.errorAt(field.value.pos, "too many values for %s", w.idStr(typ))
				}

				member = info.members[idx]
			} else {
				found := false
				for _, candidate := range info.members {
					if candidate.name == field.name {
						member, found = candidate, true
						break
					}
				}

				if !found {
					return ev.errorAt(field.value.pos, "unknown member %q of %s", field.name, w.idStr(typ))
				}
			}

			if err := ev.assignMember(member, unsafe.Add(ptr, member.offset), field.value); err != nil {
				return err
			}
		}

		return nil
	}

	return ev.errorAt(value.pos, "type %s has no reflection data", w.idStr(typ))
}

func (ev *evaluator) assignMember(member memberMeta, ptr unsafe.Pointer, value valueExpr) error {
	if member.count <= 1 {
		return ev.assign(member.typ, ptr, value)
	}

	positional := value.kind == valueArray || value.kind == valueObject
	for _, field := range value.fields {
		positional = positional && field.name == ""
	}

	if !positional {
		return ev.errorAt(value.pos, "expected '[' for member %q", member.name)
	}

	if len(value.fields) > member.elements() {
		return ev.errorAt(value.pos, "too many elements for member %q", member.name)
	}

	size := ev.w.dataInfo(member.typ).size
	for idx, element := range value.fields {
		if err := ev.assign(member.typ, unsafe.Add(ptr, uintptr(idx)*size), element.value); err != nil {
			return err
		}
	}

	return nil
}

func (ev *evaluator) assignEnum(info *typeInfo, ptr unsafe.Pointer, value valueExpr) error {
	switch value.kind {
	case valueIdent:
		for _, constant := range info.constants {
			if constant.name == value.text {
				*(*int32)(ptr) = constant.value
				return nil
			}
		}

		return ev.errorAt(value.pos, "unknown enum constant %q", value.text)

	case valueNumber:
		*(*int32)(ptr) = int32(value.number)
		return nil
	}

	return ev.errorAt(value.pos, "invalid value for enum")
}

func (ev *evaluator) assignPrimitive(kind primKind, ptr unsafe.Pointer, value valueExpr) error {
	w := ev.w

	switch kind {
	case primString:
		if value.kind != valueString {
			return ev.errorAt(value.pos, "expected string")
		}

		*(*uint64)(ptr) = w.internString(value.text)
		return nil

	case primEntity, primId:
		if value.kind == valueNumber {
			*(*Id)(ptr) = Id(value.number)
			return nil
		}

		if value.kind != valueIdent && value.kind != valueString {
			return ev.errorAt(value.pos, "expected entity")
		}

		e := w.lookupPath(0, value.text)
		if e == 0 {
			return ev.errorAt(value.pos, "unresolved entity %q", value.text)
		}

		*(*Id)(ptr) = e
		return nil

	case primBool:
		switch value.kind {
		case valueBool:
			*(*bool)(ptr) = value.flag
		case valueNumber:
			*(*bool)(ptr) = value.number != 0
		default:
			return ev.errorAt(value.pos, "expected bool")
		}

		return nil
	}

	var number float64
	switch value.kind {
	case valueNumber:
		number = value.number
	case valueBool:
		if value.flag {
			number = 1
		}
	default:
		return ev.errorAt(value.pos, "expected number")
	}

	switch kind {
	case primChar, primI8:
		*(*int8)(ptr) = int8(number)
	case primByte, primU8:
		*(*uint8)(ptr) = uint8(number)
	case primU16:
		*(*uint16)(ptr) = uint16(number)
	case primU32:
		*(*uint32)(ptr) = uint32(number)
	case primU64, primUPtr:
		*(*uint64)(ptr) = uint64(number)
	case primI16:
		*(*int16)(ptr) = int16(number)
	case primI32:
		*(*int32)(ptr) = int32(number)
	case primI64, primIPtr:
		*(*int64)(ptr) = int64(number)
	case primF32:
		*(*float32)(ptr) = float32(number)
	case primF64:
		*(*float64)(ptr) = number
	default:
		return ev.errorAt(value.pos, "unsupported primitive")
	}

	if math.IsNaN(number) {
		return ev.errorAt(value.pos, "invalid number")
	}

	return nil
}
