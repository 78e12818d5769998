package flecs

import "go.uber.org/zap"

// DeferScope batches all mutations of a world until it is closed.
// Scopes nest, and must be closed in the reverse order they were opened.
type DeferScope struct {
	world  *World
	closed bool
}

// Defer starts batching mutations. Mutations become visible when the
// outermost scope is closed.
func (w *World) Defer() *DeferScope {
	outermost := w.core.DeferBegin()
	w.logger.Debug("defer scope opened", zap.Bool("outermost", outermost))

	return &DeferScope{world: w}
}

// Close ends the scope and applies the batched mutations if this was the
// outermost scope. Calling Close more than once has no effect.
func (s *DeferScope) Close() {
	if s.closed {
		return
	}

	s.closed = true

	flushed := s.world.core.DeferEnd()
	s.world.logger.Debug("defer scope closed", zap.Bool("flushed", flushed))
}

// Suspend applies mutations immediately until the returned scope is closed.
// Batched mutations stay queued.
func (s *DeferScope) Suspend() *SuspendScope {
	s.world.core.DeferSuspend()
	return &SuspendScope{world: s.world}
}

type SuspendScope struct {
	world  *World
	closed bool
}

// Close resumes batching. Calling Close more than once has no effect.
func (s *SuspendScope) Close() {
	if s.closed {
		return
	}

	s.closed = true
	s.world.core.DeferResume()
}

// Deferred runs fn inside a DeferScope. The scope is closed even if fn panics.
func (w *World) Deferred(fn func()) {
	scope := w.Defer()
	defer scope.Close()

	fn()
}
