package flecs

import (
	"strconv"
	"strings"
)

// Kind classifies an Error.
type Kind string

const (
	KindInit            Kind = "init"
	KindRegistration    Kind = "registration"
	KindSyntax          Kind = "syntax"
	KindContract        Kind = "contract"
	KindNotFound        Kind = "not_found"
	KindInvalidVariable Kind = "invalid_variable"
	KindInvalidMode     Kind = "invalid_mode"
	KindNative          Kind = "native"
)

// Error is returned by all operations of this package that can fail.
// Use errors.Is with one of the Err values to check the Kind of an error.
type Error struct {
	Op     string
	Kind   Kind
	Name   string
	Detail string
	Cause  error
}

var (
	ErrInit            = &Error{Kind: KindInit}
	ErrRegistration    = &Error{Kind: KindRegistration}
	ErrSyntax          = &Error{Kind: KindSyntax}
	ErrContract        = &Error{Kind: KindContract}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrInvalidVariable = &Error{Kind: KindInvalidVariable}
	ErrInvalidMode     = &Error{Kind: KindInvalidMode}
	ErrNative          = &Error{Kind: KindNative}
)

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("flecs")

	if e.Op != "" {
		b.WriteString(" ")
		b.WriteString(e.Op)
	}

	b.WriteString(": ")
	b.WriteString(string(e.Kind))

	if e.Name != "" {
		b.WriteString(" ")
		b.WriteString(strconv.Quote(e.Name))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}

	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.Kind == e.Kind
}

func newError(op string, kind Kind, name string, cause error) *Error {
	return &Error{Op: op, Kind: kind, Name: name, Cause: cause}
}
