package simcore

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokNewline
	tokIdent
	tokVar
	tokNumber
	tokString
	tokPunct
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of input"
	case tokNewline:
		return "newline"
	case tokIdent:
		return "identifier"
	case tokVar:
		return "variable"
	case tokNumber:
		return "number"
	case tokString:
		return "string"
	default:
		return "punctuation"
	}
}

type position struct {
	line, col int
}

type token struct {
	kind tokenKind
	text string
	pos  position
}

func (t token) is(kind tokenKind, text string) bool {
	return t.kind == kind && t.text == text
}

func (t token) describe() string {
	switch t.kind {
	case tokEOF, tokNewline:
		return t.kind.String()
	case tokVar:
		return "'$" + t.text + "'"
	default:
		return "'" + t.text + "'"
	}
}

// SyntaxError describes an error in a script or query expression.
type SyntaxError struct {
	Name string
	Line int
	Col  int
	Msg  string
}

func (e *SyntaxError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%d:%d: %s", e.Line, e.Col, e.Msg)
	}

	return fmt.Sprintf("%s:%d:%d: %s", e.Name, e.Line, e.Col, e.Msg)
}

const punctuation = "{}()[],:;|!?=*-"

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || r == '.' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// tokenize splits the input into tokens. Comments are dropped, newlines are
// kept as tokens because they separate statements in scripts.
func tokenize(name, input string) ([]token, error) {
	var tokens []token

	line, col := 1, 1
	offset := 0

	fail := func(msg string, args ...any) error {
		return &SyntaxError{Name: name, Line: line, Col: col, Msg: fmt.Sprintf(msg, args...)}
	}

	advance := func(n int) {
		for _, r := range input[offset : offset+n] {
			if r == '\n' {
				line += 1
				col = 1
			} else {
				col += 1
			}
		}

		offset += n
	}

	for offset < len(input) {
		r, size := utf8.DecodeRuneInString(input[offset:])
		pos := position{line: line, col: col}
		rest := input[offset:]

		switch {
		case r == '\n':
			tokens = append(tokens, token{kind: tokNewline, text: "\n", pos: pos})
			advance(size)

		case unicode.IsSpace(r):
			advance(size)

		case strings.HasPrefix(rest, "//"):
			end := strings.IndexByte(rest, '\n')
			if end < 0 {
				end = len(rest)
			}

			advance(end)

		case strings.HasPrefix(rest, "/*"):
			end := strings.Index(rest[2:], "*/")
			if end < 0 {
				return nil, fail("unterminated comment")
			}

			advance(end + 4)

		case r == '$':
			n := identLength(rest[1:])
			if n == 0 {
				return nil, fail("expected variable name after '$'")
			}

			tokens = append(tokens, token{kind: tokVar, text: rest[1 : 1+n], pos: pos})
			advance(n + 1)

		case isIdentStart(r):
			n := identLength(rest)
			tokens = append(tokens, token{kind: tokIdent, text: rest[:n], pos: pos})
			advance(n)

		case unicode.IsDigit(r):
			n := numberLength(rest)
			tokens = append(tokens, token{kind: tokNumber, text: rest[:n], pos: pos})
			advance(n)

		case r == '"':
			value, n, ok := unquote(rest)
			if !ok {
				return nil, fail("unterminated string")
			}

			tokens = append(tokens, token{kind: tokString, text: value, pos: pos})
			advance(n)

		case strings.ContainsRune(punctuation, r):
			tokens = append(tokens, token{kind: tokPunct, text: string(r), pos: pos})
			advance(size)

		default:
			return nil, fail("unexpected character %q", r)
		}
	}

	tokens = append(tokens, token{kind: tokEOF, pos: position{line: line, col: col}})
	return tokens, nil
}

func identLength(input string) int {
	n := 0
	for idx, r := range input {
		if idx == 0 && !isIdentStart(r) {
			return 0
		}

		if !isIdentPart(r) {
			break
		}

		n = idx + utf8.RuneLen(r)
	}

	// a path never ends with a separator
	return len(strings.TrimRight(input[:n], "."))
}

func numberLength(input string) int {
	n := 0
	for n < len(input) {
		c := input[n]

		isExponentSign := (c == '-' || c == '+') && n > 0 && (input[n-1] == 'e' || input[n-1] == 'E')
		if (c < '0' || c > '9') && c != '.' && c != 'e' && c != 'E' && !isExponentSign {
			break
		}

		n += 1
	}

	return n
}

func unquote(input string) (string, int, bool) {
	var value strings.Builder

	for idx := 1; idx < len(input); idx++ {
		c := input[idx]

		switch c {
		case '"':
			return value.String(), idx + 1, true

		case '\\':
			idx += 1
			if idx >= len(input) {
				return "", 0, false
			}

			switch input[idx] {
			case 'n':
				value.WriteByte('\n')
			case 't':
				value.WriteByte('\t')
			default:
				value.WriteByte(input[idx])
			}

		case '\n':
			return "", 0, false

		default:
			value.WriteByte(c)
		}
	}

	return "", 0, false
}

// tokenStream is a cursor over tokens used by both parsers.
type tokenStream struct {
	name   string
	tokens []token
	pos    int
}

func (s *tokenStream) peek() token {
	return s.tokens[s.pos]
}

func (s *tokenStream) peekAt(n int) token {
	if s.pos+n >= len(s.tokens) {
		return s.tokens[len(s.tokens)-1]
	}

	return s.tokens[s.pos+n]
}

func (s *tokenStream) next() token {
	tok := s.tokens[s.pos]
	if tok.kind != tokEOF {
		s.pos += 1
	}

	return tok
}

func (s *tokenStream) accept(kind tokenKind, text string) bool {
	if s.peek().is(kind, text) {
		s.next()
		return true
	}

	return false
}

func (s *tokenStream) expect(kind tokenKind, text string) (token, error) {
	tok := s.next()
	if tok.kind != kind || (text != "" && tok.text != text) {
		want := kind.String()
		if text != "" {
			want = "'" + text + "'"
		}

		return tok, s.errorAt(tok, "expected %s, got %s", want, tok.describe())
	}

	return tok, nil
}

func (s *tokenStream) skipNewlines() {
	for s.peek().kind == tokNewline {
		s.next()
	}
}

func (s *tokenStream) errorAt(tok token, msg string, args ...any) error {
	return &SyntaxError{Name: s.name, Line: tok.pos.line, Col: tok.pos.col, Msg: fmt.Sprintf(msg, args...)}
}
