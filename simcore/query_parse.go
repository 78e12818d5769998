package simcore

import (
	"slices"
	"strings"

	"github.com/oliverbestmann/flecs-go/native"
)

type refKind uint8

const (
	refNone refKind = iota
	refEntity
	refVar
	refWildcard
	refThis
)

// termRef references an entity, a variable or a wildcard within a term.
type termRef struct {
	kind refKind
	id   Id
	// variable index for refVar
	slot int
}

type operKind uint8

const (
	operAnd operKind = iota
	operNot
	operOptional
)

type queryTerm struct {
	oper operKind

	first  termRef
	second termRef
	src    termRef

	self bool
	up   bool
	trav Id
}

func (t queryTerm) isPair() bool {
	return t.second.kind != refNone
}

// compiled query. Variable slot 0 is the implicit $this variable.
type compiledQuery struct {
	w     *World
	expr  string
	terms []queryTerm
	vars  []string

	usesThis bool
	// ids mentioned in the query, used to decide if disabled or prefab
	// entities are matched
	mentions []Id

	done bool
}

type queryParser struct {
	tokenStream
	w *World
	q *compiledQuery
}

func (w *World) QueryExpr(expr native.CString) (native.Query, error) {
	w.checkOpen("query_init")

	q, err := w.parseQuery(expr.String())
	if err != nil {
		return nil, err
	}

	return q, nil
}

func (w *World) parseQuery(expr string) (*compiledQuery, error) {
	tokens, err := tokenize("", expr)
	if err != nil {
		return nil, err
	}

	// newlines carry no meaning in queries
	tokens = slices.DeleteFunc(tokens, func(tok token) bool { return tok.kind == tokNewline })

	p := &queryParser{
		tokenStream: tokenStream{tokens: tokens},
		w:           w,
		q:           &compiledQuery{w: w, expr: expr, vars: []string{"this"}},
	}

	for {
		term, err := p.parseTerm()
		if err != nil {
			return nil, err
		}

		p.q.terms = append(p.q.terms, term)

		if p.accept(tokPunct, ",") {
			continue
		}

		if tok := p.peek(); tok.kind != tokEOF {
			return nil, p.errorAt(tok, "unexpected %s", tok.describe())
		}

		break
	}

	return p.q, nil
}

func (p *queryParser) parseTerm() (queryTerm, error) {
	term := queryTerm{self: true, trav: EcsChildOf}

	switch {
	case p.accept(tokPunct, "!"):
		term.oper = operNot
	case p.accept(tokPunct, "?"):
		term.oper = operOptional
	}

	var err error

	if p.accept(tokPunct, "(") {
		// (First, Second)
		if term.first, err = p.parseRef(); err != nil {
			return term, err
		}

		if _, err := p.expect(tokPunct, ","); err != nil {
			return term, err
		}

		if term.second, err = p.parseRef(); err != nil {
			return term, err
		}

		if _, err := p.expect(tokPunct, ")"); err != nil {
			return term, err
		}

		term.src = termRef{kind: refThis}
		if p.accept(tokPunct, "(") {
			if err := p.parseSource(&term); err != nil {
				return term, err
			}

			if _, err := p.expect(tokPunct, ")"); err != nil {
				return term, err
			}
		}
	} else {
		if term.first, err = p.parseRef(); err != nil {
			return term, err
		}

		term.src = termRef{kind: refThis}

		if p.accept(tokPunct, "(") {
			if err := p.parseSource(&term); err != nil {
				return term, err
			}

			// First(Source, Second)
			if p.accept(tokPunct, ",") {
				if term.second, err = p.parseRef(); err != nil {
					return term, err
				}
			}

			if _, err := p.expect(tokPunct, ")"); err != nil {
				return term, err
			}
		}
	}

	if term.first.kind == refThis || term.second.kind == refThis {
		return term, p.errorAt(p.peek(), "$this cannot be used as a component")
	}

	if term.src.kind == refThis {
		p.q.usesThis = true
	}

	return term, nil
}

// parseSource parses the source of a term, including traversal flags.
func (p *queryParser) parseSource(term *queryTerm) error {
	tok := p.peek()

	if tok.kind == tokIdent && isTraversalKeyword(tok.text) {
		return p.parseTraversal(term)
	}

	src, err := p.parseRef()
	if err != nil {
		return err
	}

	if src.kind == refWildcard {
		return p.errorAt(tok, "wildcard cannot be used as source")
	}

	term.src = src

	if p.accept(tokPunct, "|") {
		return p.parseTraversal(term)
	}

	return nil
}

func isTraversalKeyword(text string) bool {
	return text == "self" || text == "up" || text == "cascade"
}

func (p *queryParser) parseTraversal(term *queryTerm) error {
	term.self = false
	term.up = false

	for {
		tok, err := p.expect(tokIdent, "")
		if err != nil {
			return err
		}

		switch tok.text {
		case "self":
			term.self = true
		case "up", "cascade":
			term.up = true
		default:
			return p.errorAt(tok, "unknown traversal flag %q", tok.text)
		}

		if !p.accept(tokPunct, "|") {
			break
		}
	}

	// optional traversal relationship
	if tok := p.peek(); term.up && tok.kind == tokIdent {
		p.next()

		rel := p.w.lookupPath(0, tok.text)
		if rel == 0 {
			return p.errorAt(tok, "unresolved identifier %q", tok.text)
		}

		term.trav = native.Index(rel)
	}

	return nil
}

func (p *queryParser) parseRef() (termRef, error) {
	tok := p.next()

	switch {
	case tok.is(tokPunct, "*"):
		return termRef{kind: refWildcard}, nil

	case tok.kind == tokVar:
		if tok.text == "this" {
			return termRef{kind: refThis}, nil
		}

		slot := slices.Index(p.q.vars, tok.text)
		if slot < 0 {
			slot = len(p.q.vars)
			p.q.vars = append(p.q.vars, tok.text)
		}

		return termRef{kind: refVar, slot: slot}, nil

	case tok.kind == tokIdent:
		e := p.w.lookupPath(0, tok.text)
		if e == 0 {
			return termRef{}, p.errorAt(tok, "unresolved identifier %q", tok.text)
		}

		if native.Index(e) == EcsWildcard {
			return termRef{kind: refWildcard}, nil
		}

		p.q.mentions = append(p.q.mentions, native.Index(e))
		return termRef{kind: refEntity, id: e}, nil

	default:
		return termRef{}, p.errorAt(tok, "expected identifier or variable, got %s", tok.describe())
	}
}

func (q *compiledQuery) Str() string {
	var value strings.Builder
	for idx, term := range q.terms {
		if idx > 0 {
			value.WriteString(", ")
		}

		value.WriteString(q.termStr(term))
	}

	return value.String()
}

func (q *compiledQuery) refStr(ref termRef) string {
	switch ref.kind {
	case refWildcard:
		return "*"
	case refVar:
		return "$" + q.vars[ref.slot]
	case refThis:
		return "$this"
	case refEntity:
		return q.w.path(ref.id)
	}

	return ""
}

func (q *compiledQuery) termStr(term queryTerm) string {
	var value strings.Builder

	switch term.oper {
	case operNot:
		value.WriteString("!")
	case operOptional:
		value.WriteString("?")
	}

	value.WriteString(q.refStr(term.first))
	value.WriteString("(")

	var flags []string
	if term.self {
		flags = append(flags, "self")
	}
	if term.up {
		flags = append(flags, "up "+q.w.indexStr(term.trav))
	}

	if term.src.kind == refThis {
		value.WriteString("$this|")
	} else {
		value.WriteString(q.refStr(term.src))
		value.WriteString("|")
	}

	value.WriteString(strings.Join(flags, "|"))

	if term.isPair() {
		value.WriteString(",")
		value.WriteString(q.refStr(term.second))
	}

	value.WriteString(")")
	return value.String()
}

func (q *compiledQuery) FindVar(name native.CString) int32 {
	return int32(slices.Index(q.vars, name.String()))
}

func (q *compiledQuery) VarCount() int32 {
	return int32(len(q.vars))
}

func (q *compiledQuery) VarName(index int32) string {
	if index < 0 || int(index) >= len(q.vars) {
		return ""
	}

	return q.vars[index]
}

// VarIsEntity reports if the variable binds a single entity. $this binds tables.
func (q *compiledQuery) VarIsEntity(index int32) bool {
	return index > 0 && int(index) < len(q.vars)
}

func (q *compiledQuery) Fini() {
	if q.done {
		native.Faultf("query_fini", "query was already finalized")
	}

	q.done = true
}
