package flecs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/oliverbestmann/flecs-go/native"
)

// Query is a compiled query expression.
type Query struct {
	world  *World
	native native.Query
	expr   string
	closed bool
}

// ExecOptions configures a single execution of a Query.
type ExecOptions struct {
	// Variables binds query variables by name. Values can be an Entity, an Id
	// or the path of an entity. Variables without a value stay unbound.
	Variables map[string]any

	// Table returns one result per matched table instead of one per entity.
	Table bool

	// Builtin also matches the builtin entities of the world.
	Builtin bool

	// Inherited also matches components inherited through IsA.
	Inherited bool

	// Matches adds the matched id, its source and variable values to each field.
	Matches bool
}

// QueryVar describes a variable of a query.
type QueryVar struct {
	Name     string
	IsEntity bool
}

// Query compiles the given expression.
func (w *World) Query(expr string) (*Query, error) {
	q, err := w.core.QueryExpr(native.ToCString(expr))
	if err != nil {
		return nil, newError("query", KindSyntax, expr, err)
	}

	if q == nil {
		return nil, &Error{Op: "query", Kind: KindSyntax, Name: expr, Detail: "query creation failed"}
	}

	return &Query{world: w, native: q, expr: expr}, nil
}

// Expr returns the expression the query was compiled from.
func (q *Query) Expr() string {
	return q.expr
}

// String returns the query as normalized by the native core.
func (q *Query) String() string {
	return q.native.Str()
}

// FindVar returns the index of the named variable, or -1.
func (q *Query) FindVar(name string) int {
	return int(q.native.FindVar(native.ToCString(name)))
}

// Vars returns all variables of the query. The first one is always "this".
func (q *Query) Vars() []QueryVar {
	count := q.native.VarCount()

	vars := make([]QueryVar, 0, count)
	for idx := range count {
		vars = append(vars, QueryVar{
			Name:     q.native.VarName(idx),
			IsEntity: q.native.VarIsEntity(idx),
		})
	}

	return vars
}

// Exec runs the query and returns one json document per result.
func (q *Query) Exec(opts ExecOptions) ([]json.RawMessage, error) {
	desc := native.ExecDesc{
		Table:     opts.Table,
		Builtin:   opts.Builtin,
		Inherited: opts.Inherited,
		Matches:   opts.Matches,
	}

	for _, name := range slices.Sorted(maps.Keys(opts.Variables)) {
		if q.native.FindVar(native.ToCString(name)) < 0 {
			return nil, &Error{Op: "query_exec", Kind: KindNotFound, Name: name, Detail: "query has no such variable"}
		}

		value, err := q.resolveVariable(name, opts.Variables[name])
		if err != nil {
			return nil, err
		}

		desc.Vars = append(desc.Vars, native.VarBinding{Name: name, Value: value})
	}

	encoded, err := q.native.Exec(desc)
	if err != nil {
		return nil, newError("query_exec", KindNative, q.expr, err)
	}

	return decodeResults("query_exec", encoded)
}

func (q *Query) resolveVariable(name string, value any) (native.Id, error) {
	var id native.Id

	switch value := value.(type) {
	case Entity:
		id = value.Raw()

	case Id:
		id = value.Raw()

	case uint64:
		id = value

	case string:
		id = q.world.core.Lookup(native.ToCString(value))
		if id == 0 {
			return 0, &Error{Op: "query_exec", Kind: KindInvalidVariable, Name: name, Detail: fmt.Sprintf("no entity at path %q", value)}
		}

	default:
		return 0, &Error{Op: "query_exec", Kind: KindInvalidVariable, Name: name, Detail: fmt.Sprintf("unsupported value of type %T", value)}
	}

	if !q.world.core.IsAlive(id) {
		return 0, &Error{Op: "query_exec", Kind: KindInvalidVariable, Name: name, Detail: fmt.Sprintf("entity %d is not alive", id)}
	}

	return id, nil
}

// Close releases the compiled query. Calling Close more than once has no effect.
func (q *Query) Close() {
	if q.closed {
		return
	}

	q.closed = true
	q.native.Fini()
}

// ExecAs runs the query and decodes each result into a T.
func ExecAs[T any](q *Query, opts ExecOptions) ([]T, error) {
	results, err := q.Exec(opts)
	if err != nil {
		return nil, err
	}

	values := make([]T, 0, len(results))
	for idx, result := range results {
		var value T
		if err := json.Unmarshal(result, &value); err != nil {
			return nil, &Error{Op: "query_exec", Kind: KindContract, Detail: fmt.Sprintf("decode result %d", idx), Cause: err}
		}

		values = append(values, value)
	}

	return values, nil
}

// decodeResults unpacks the {"results": [...]} envelope returned by the core.
func decodeResults(op, encoded string) ([]json.RawMessage, error) {
	var envelope struct {
		Results *[]json.RawMessage `json:"results"`
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(encoded)))
	dec.DisallowUnknownFields()

	if err := dec.Decode(&envelope); err != nil {
		return nil, &Error{Op: op, Kind: KindContract, Detail: "decode envelope", Cause: err}
	}

	if _, err := dec.Token(); err != io.EOF {
		return nil, &Error{Op: op, Kind: KindContract, Detail: "trailing data after envelope"}
	}

	if envelope.Results == nil {
		return nil, &Error{Op: op, Kind: KindContract, Detail: "envelope has no results"}
	}

	return *envelope.Results, nil
}
