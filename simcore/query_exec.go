package simcore

import (
	"fmt"
	"slices"

	"github.com/oliverbestmann/flecs-go/internal/set"
	"github.com/oliverbestmann/flecs-go/native"
)

type fieldMatch struct {
	id  Id
	src Id
	set bool
}

type queryMatch struct {
	this   Id
	vars   []Id
	fields []fieldMatch
}

type termCandidate struct {
	id  Id
	src Id
}

type queryExec struct {
	q    *compiledQuery
	desc native.ExecDesc

	matches []queryMatch
}

func (q *compiledQuery) Exec(desc native.ExecDesc) (string, error) {
	if q.done {
		native.Faultf("query_exec", "query was finalized")
	}

	q.w.checkOpen("query_exec")

	vars := make([]Id, len(q.vars))
	for _, binding := range desc.Vars {
		slot := slices.Index(q.vars, binding.Name)
		if slot < 0 {
			return "", fmt.Errorf("query %q has no variable %q", q.expr, binding.Name)
		}

		if !q.w.IsAlive(binding.Value) {
			return "", fmt.Errorf("value of variable %q is not alive", binding.Name)
		}

		vars[slot] = binding.Value
	}

	ex := &queryExec{q: q, desc: desc}
	fields := make([]fieldMatch, len(q.terms))

	switch {
	case !q.usesThis:
		ex.solve(0, vars, fields)

	case vars[0] != 0:
		if ex.acceptsThis(vars[0]) {
			ex.solve(0, vars, fields)
		}

	default:
		for _, t := range slices.Clone(q.w.storage.tables) {
			for _, entity := range slices.Clone(t.entities) {
				if !ex.acceptsThis(entity) {
					continue
				}

				bindings := slices.Clone(vars)
				bindings[0] = entity
				ex.solve(0, bindings, fields)
			}
		}
	}

	return ex.serialize(), nil
}

// acceptsThis filters candidates for $this.
func (ex *queryExec) acceptsThis(e Id) bool {
	w := ex.q.w

	rec := w.aliveRecord(e)
	if rec == nil {
		return false
	}

	if !ex.desc.Builtin && isBuiltin(e) {
		return false
	}

	for _, hidden := range []Id{EcsDisabled, EcsPrefab} {
		if rec.table.Contains(hidden) && !slices.Contains(ex.q.mentions, hidden) {
			return false
		}
	}

	return true
}

func (ex *queryExec) solve(termIdx int, bindings []Id, fields []fieldMatch) {
	q := ex.q

	if termIdx == len(q.terms) {
		ex.matches = append(ex.matches, queryMatch{
			this:   bindings[0],
			vars:   slices.Clone(bindings),
			fields: slices.Clone(fields),
		})

		return
	}

	term := q.terms[termIdx]

	for src, srcBindings := range ex.sources(term, bindings) {
		var found []termCandidate
		var foundBindings [][]Id

		for _, candidate := range ex.candidates(term, src) {
			unified, ok := ex.unify(term, candidate.id, srcBindings)
			if !ok {
				continue
			}

			found = append(found, candidate)
			foundBindings = append(foundBindings, unified)
		}

		switch term.oper {
		case operNot:
			if len(found) == 0 {
				fields[termIdx] = fieldMatch{src: src}
				ex.solve(termIdx+1, srcBindings, fields)
			}

		case operOptional:
			if len(found) == 0 {
				fields[termIdx] = fieldMatch{src: src}
				ex.solve(termIdx+1, srcBindings, fields)
				continue
			}

			fallthrough

		default:
			for idx, candidate := range found {
				fields[termIdx] = fieldMatch{id: candidate.id, src: candidate.src, set: true}
				ex.solve(termIdx+1, foundBindings[idx], fields)
			}
		}
	}
}

// sources yields the entities a term is evaluated on, with the variable
// bindings that result from choosing the source.
func (ex *queryExec) sources(term queryTerm, bindings []Id) func(yield func(Id, []Id) bool) {
	w := ex.q.w

	return func(yield func(Id, []Id) bool) {
		switch term.src.kind {
		case refThis:
			yield(bindings[0], bindings)

		case refEntity:
			yield(term.src.id, bindings)

		case refVar:
			if bound := bindings[term.src.slot]; bound != 0 {
				yield(bound, bindings)
				return
			}

			for index := range Id(len(w.records)) {
				e := w.aliveId(index)
				if e == 0 || (!ex.desc.Builtin && isBuiltin(e)) {
					continue
				}

				next := slices.Clone(bindings)
				next[term.src.slot] = e

				if !yield(e, next) {
					return
				}
			}
		}
	}
}

// candidates returns the ids a term can match on the source, together with
// the entity that provides them.
func (ex *queryExec) candidates(term queryTerm, src Id) []termCandidate {
	w := ex.q.w

	rec := w.aliveRecord(src)
	if rec == nil {
		return nil
	}

	var result []termCandidate
	var seen set.Set[Id]

	collect := func(provider Id) {
		providerRec := w.aliveRecord(provider)
		if providerRec == nil {
			return
		}

		for _, id := range providerRec.table.ids {
			if seen.Insert(id) {
				result = append(result, termCandidate{id: id, src: provider})
			}
		}

		if !ex.desc.Inherited {
			return
		}

		// inherited ids, ChildOf is never inherited
		for base := range w.ancestors(provider, EcsIsA) {
			baseRec := w.aliveRecord(base)
			for _, id := range baseRec.table.ids {
				if native.IsPair(id) && native.PairFirst(id) == EcsChildOf {
					continue
				}

				if seen.Insert(id) {
					result = append(result, termCandidate{id: id, src: base})
				}
			}
		}
	}

	if term.self {
		collect(src)
	}

	if term.up {
		for ancestor := range w.ancestors(src, term.trav) {
			collect(ancestor)
		}
	}

	return result
}

// unify matches the id against the term with the given bindings. On success
// it returns the bindings extended by all variables the id binds.
func (ex *queryExec) unify(term queryTerm, id Id, bindings []Id) ([]Id, bool) {
	if term.isPair() != native.IsPair(id) {
		return nil, false
	}

	result := bindings
	cloned := false

	match := func(ref termRef, index Id) bool {
		switch ref.kind {
		case refWildcard:
			return true

		case refEntity:
			return native.Index(ref.id) == index

		case refVar, refThis:
			slot := ref.slot
			if ref.kind == refThis {
				slot = 0
			}

			if bound := result[slot]; bound != 0 {
				return native.Index(bound) == index
			}

			if !cloned {
				result = slices.Clone(result)
				cloned = true
			}

			result[slot] = ex.q.w.aliveId(index)
			return result[slot] != 0
		}

		return false
	}

	if !term.isPair() {
		return result, match(term.first, native.Index(id))
	}

	if !match(term.first, native.PairFirst(id)) || !match(term.second, native.PairSecond(id)) {
		return nil, false
	}

	return result, true
}
