// Package simcore is an in-process implementation of the native ECS core.
//
// It stores entities in archetype tables, supports hierarchies through the
// ChildOf relationship, inheritance through IsA, runtime reflection of
// component types, a small entity script language and a query language with
// variables. Results are exchanged as JSON exactly like the native core does.
package simcore

import (
	"maps"

	"github.com/oliverbestmann/flecs-go/native"
)

// Option configures a Library.
type Option func(*Library)

// WithChildBatchSize limits the number of children returned by a single
// cursor step. Zero returns whole tables.
func WithChildBatchSize(size int) Option {
	return func(l *Library) {
		l.childBatchSize = size
	}
}

type Library struct {
	childBatchSize int
}

var _ native.Library = (*Library)(nil)

// Default is the library used when no other library is configured.
var Default = NewLibrary()

func NewLibrary(opts ...Option) *Library {
	l := &Library{}
	for _, opt := range opts {
		opt(l)
	}

	return l
}

func (l *Library) Name() string {
	return "simcore"
}

func (l *Library) Init() (native.Core, error) {
	return newWorld(l), nil
}

func (l *Library) Primitives() (map[string]native.Id, error) {
	return maps.Clone(primitiveIds), nil
}
