package simcore

import (
	"strconv"
)

type stmtKind uint8

const (
	// name { ... } declares an entity and evaluates the body in its scope
	stmtEntity stmtKind = iota
	// Name adds a tag to the entity in scope
	stmtTag
	// (Rel, Target) adds a pair, optionally with a value
	stmtPair
	// Comp: value sets a component value
	stmtComponent
	// const name = value
	stmtConst
)

type stmt struct {
	kind stmtKind
	pos  position

	name   string
	target string

	value *valueExpr
	body  []stmt
}

type valueKind uint8

const (
	valueNumber valueKind = iota
	valueString
	valueBool
	valueIdent
	valueVar
	valueObject
	valueArray
)

type valueExpr struct {
	kind valueKind
	pos  position

	number float64
	text   string
	flag   bool

	fields []fieldExpr
}

type fieldExpr struct {
	// empty for positional fields
	name  string
	value valueExpr
}

type scriptParser struct {
	tokenStream
}

func parseScript(name, code string) ([]stmt, error) {
	tokens, err := tokenize(name, code)
	if err != nil {
		return nil, err
	}

	p := &scriptParser{tokenStream{name: name, tokens: tokens}}

	body, err := p.parseBody(false)
	if err != nil {
		return nil, err
	}

	return body, nil
}

// parseBody parses statements up to the end of input or the closing brace of a scope.
func (p *scriptParser) parseBody(nested bool) ([]stmt, error) {
	var body []stmt

	for {
		p.skipSeparators()

		tok := p.peek()
		switch {
		case tok.kind == tokEOF:
			if nested {
				return nil, p.errorAt(tok, "missing '}'")
			}

			return body, nil

		case tok.is(tokPunct, "}"):
			if !nested {
				return nil, p.errorAt(tok, "unexpected '}'")
			}

			p.next()
			return body, nil
		}

		statement, err := p.parseStatement(nested)
		if err != nil {
			return nil, err
		}

		body = append(body, statement)
	}
}

func (p *scriptParser) skipSeparators() {
	for p.peek().kind == tokNewline || p.peek().is(tokPunct, ";") {
		p.next()
	}
}

func (p *scriptParser) parseStatement(nested bool) (stmt, error) {
	tok := p.next()

	switch {
	case tok.is(tokIdent, "const"):
		name, err := p.expect(tokIdent, "")
		if err != nil {
			return stmt{}, err
		}

		if _, err := p.expect(tokPunct, "="); err != nil {
			return stmt{}, err
		}

		value, err := p.parseValue()
		if err != nil {
			return stmt{}, err
		}

		return stmt{kind: stmtConst, pos: tok.pos, name: name.text, value: &value}, p.endOfStatement()

	case tok.is(tokPunct, "("):
		rel, err := p.expect(tokIdent, "")
		if err != nil {
			return stmt{}, err
		}

		if _, err := p.expect(tokPunct, ","); err != nil {
			return stmt{}, err
		}

		target := p.next()
		if target.kind != tokIdent && !target.is(tokPunct, "*") {
			return stmt{}, p.errorAt(target, "expected pair target, got %s", target.describe())
		}

		if _, err := p.expect(tokPunct, ")"); err != nil {
			return stmt{}, err
		}

		result := stmt{kind: stmtPair, pos: tok.pos, name: rel.text, target: target.text}
		if p.accept(tokPunct, ":") {
			value, err := p.parseValue()
			if err != nil {
				return stmt{}, err
			}

			result.value = &value
		}

		return result, p.endOfStatement()

	case tok.kind == tokIdent:
		switch next := p.peek(); {
		case next.is(tokPunct, "{"):
			p.next()

			body, err := p.parseBody(true)
			if err != nil {
				return stmt{}, err
			}

			return stmt{kind: stmtEntity, pos: tok.pos, name: tok.text, body: body}, nil

		case next.is(tokPunct, ":"):
			p.next()

			value, err := p.parseValue()
			if err != nil {
				return stmt{}, err
			}

			return stmt{kind: stmtComponent, pos: tok.pos, name: tok.text, value: &value}, p.endOfStatement()

		default:
			kind := stmtTag
			if !nested {
				kind = stmtEntity
			}

			return stmt{kind: kind, pos: tok.pos, name: tok.text}, p.endOfStatement()
		}

	default:
		return stmt{}, p.errorAt(tok, "unexpected %s", tok.describe())
	}
}

func (p *scriptParser) endOfStatement() error {
	switch tok := p.peek(); {
	case tok.is(tokPunct, ":"), tok.is(tokPunct, ","), tok.is(tokPunct, "="), tok.is(tokPunct, ")"):
		return p.errorAt(tok, "unexpected %s after statement", tok.describe())
	default:
		return nil
	}
}

func (p *scriptParser) parseValue() (valueExpr, error) {
	tok := p.next()

	switch {
	case tok.is(tokPunct, "-"):
		number, err := p.expect(tokNumber, "")
		if err != nil {
			return valueExpr{}, err
		}

		value, err := p.parseNumber(number)
		value.number = -value.number
		return value, err

	case tok.kind == tokNumber:
		return p.parseNumber(tok)

	case tok.kind == tokString:
		return valueExpr{kind: valueString, pos: tok.pos, text: tok.text}, nil

	case tok.is(tokIdent, "true"), tok.is(tokIdent, "false"):
		return valueExpr{kind: valueBool, pos: tok.pos, flag: tok.text == "true"}, nil

	case tok.kind == tokIdent:
		return valueExpr{kind: valueIdent, pos: tok.pos, text: tok.text}, nil

	case tok.kind == tokVar:
		return valueExpr{kind: valueVar, pos: tok.pos, text: tok.text}, nil

	case tok.is(tokPunct, "{"):
		fields, err := p.parseFields("}", true)
		return valueExpr{kind: valueObject, pos: tok.pos, fields: fields}, err

	case tok.is(tokPunct, "["):
		fields, err := p.parseFields("]", false)
		return valueExpr{kind: valueArray, pos: tok.pos, fields: fields}, err

	default:
		return valueExpr{}, p.errorAt(tok, "expected value, got %s", tok.describe())
	}
}

func (p *scriptParser) parseNumber(tok token) (valueExpr, error) {
	value, err := strconv.ParseFloat(tok.text, 64)
	if err != nil {
		return valueExpr{}, p.errorAt(tok, "invalid number %q", tok.text)
	}

	return valueExpr{kind: valueNumber, pos: tok.pos, number: value}, nil
}

func (p *scriptParser) parseFields(closing string, named bool) ([]fieldExpr, error) {
	var fields []fieldExpr

	for {
		p.skipNewlines()

		if p.accept(tokPunct, closing) {
			return fields, nil
		}

		var field fieldExpr
		if named && p.peek().kind == tokIdent && p.peekAt(1).is(tokPunct, ":") {
			field.name = p.next().text
			p.next()
		}

		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}

		field.value = value
		fields = append(fields, field)

		p.skipNewlines()

		if p.accept(tokPunct, closing) {
			return fields, nil
		}

		if _, err := p.expect(tokPunct, ","); err != nil {
			return nil, err
		}
	}
}
