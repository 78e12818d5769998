package flecs

import (
	"github.com/oliverbestmann/flecs-go/native"
	"github.com/oliverbestmann/flecs-go/simcore"
	"go.uber.org/zap"
)

// World owns a single native world. A World is not safe for concurrent use.
//
// Entities, queries and scripts created by a World are views onto its native
// handle. They must not be used after the World was closed.
type World struct {
	core       native.Core
	library    native.Library
	primitives map[string]Id
	logger     *zap.Logger
	closed     bool
}

// NewWorld creates a new native world and creates all types of the registry
// in it. Without options, the DefaultRegistry is flushed into a world of the
// in-process simcore library.
func NewWorld(opts ...WorldOption) (*World, error) {
	config := worldConfig{
		library:  simcore.Default,
		registry: DefaultRegistry,
		logger:   Logger(),
	}

	for _, opt := range opts {
		opt(&config)
	}

	primitives, err := primitivesOf(config.library)
	if err != nil {
		return nil, &Error{Op: "init", Kind: KindInit, Name: config.library.Name(), Detail: "load primitives", Cause: err}
	}

	core, err := config.library.Init()
	if err != nil {
		return nil, newError("init", KindInit, config.library.Name(), err)
	}

	if core == nil {
		return nil, &Error{Op: "init", Kind: KindInit, Name: config.library.Name(), Detail: "library returned no world"}
	}

	w := &World{
		core:       core,
		library:    config.library,
		primitives: primitives,
		logger:     config.logger.With(zap.String("library", config.library.Name())),
	}

	if err := config.registry.flush(w); err != nil {
		w.logger.Warn("type registration failed", zap.Error(err))

		// release the native world before giving up
		w.Close()
		return nil, err
	}

	w.logger.Debug("world created", zap.Int("types", config.registry.Len()))

	return w, nil
}

// Close releases the native world. Calling Close more than once has no effect.
func (w *World) Close() {
	if w.closed {
		return
	}

	w.closed = true
	w.core.Fini()

	w.logger.Debug("world closed")
}

// Core returns the native handle of this world.
func (w *World) Core() native.Core {
	return w.core
}

func (w *World) Library() native.Library {
	return w.library
}

// Progress runs a single frame of the world.
// It returns false once Quit was called.
func (w *World) Progress(delta float32) bool {
	return w.core.Progress(delta)
}

// Quit signals the world to stop. The next call to Progress returns false.
func (w *World) Quit() {
	w.core.Quit()
}

func (w *World) ShouldQuit() bool {
	return w.core.ShouldQuit()
}

// New creates a new empty entity.
func (w *World) New() Entity {
	return w.entity(w.core.New())
}

// NewNamed creates a new entity with the given name. If a root entity
// with that name already exists, that entity is returned.
func (w *World) NewNamed(name string) Entity {
	return w.entity(w.core.SetName(0, native.ToCString(name)))
}

// Entity wraps an existing id. The id is not validated.
func (w *World) Entity(id Identifier) Entity {
	return w.entity(id.Raw())
}

// Pair returns the id of the (rel, target) pair.
func (w *World) Pair(rel, target Identifier) Id {
	return Pair(rel, target)
}

// Lookup resolves a dotted path from the root of the world.
func (w *World) Lookup(path string) (Entity, bool) {
	return w.found(w.core.Lookup(native.ToCString(path)))
}

func (w *World) LookupSymbol(symbol string) (Entity, bool) {
	return w.found(w.core.LookupSymbol(native.ToCString(symbol)))
}

// Primitive returns the entity of a builtin primitive type like "f64".
func (w *World) Primitive(name string) (Entity, bool) {
	id, ok := w.primitives[name]
	if !ok {
		return Entity{}, false
	}

	return w.entity(native.Id(id)), true
}

// Count returns the number of entities that have the given id.
func (w *World) Count(id Identifier) int {
	return int(w.core.CountId(id.Raw()))
}

func (w *World) IsDeferred() bool {
	return w.core.IsDeferred()
}

func (w *World) entity(id native.Id) Entity {
	return Entity{world: w, id: Id(id)}
}

func (w *World) found(id native.Id) (Entity, bool) {
	if id == 0 {
		return Entity{}, false
	}

	return w.entity(id), true
}
