package simcore

import "github.com/oliverbestmann/flecs-go/native"

// the defer depth is positive while commands are queued and negative while a
// deferred world is suspended.

func (w *World) deferring() bool {
	return w.deferDepth > 0
}

func (w *World) enqueue(command func()) {
	w.queue = append(w.queue, command)
}

func (w *World) applyQueue() {
	for len(w.queue) > 0 {
		queue := w.queue
		w.queue = nil

		for _, command := range queue {
			command()
		}
	}
}

// DeferBegin starts queueing commands. Returns true if the world was not
// deferred before.
func (w *World) DeferBegin() bool {
	w.checkOpen("defer_begin")

	if w.deferDepth < 0 {
		native.Faultf("defer_begin", "world is suspended")
	}

	w.deferDepth += 1
	return w.deferDepth == 1
}

// DeferEnd stops queueing commands. When the outermost scope ends, all queued
// commands are applied. Returns true if the queue was flushed.
func (w *World) DeferEnd() bool {
	w.checkOpen("defer_end")

	switch {
	case w.deferDepth < 0:
		native.Faultf("defer_end", "world is suspended, resume first")
	case w.deferDepth == 0:
		native.Faultf("defer_end", "world is not deferred")
	}

	w.deferDepth -= 1
	if w.deferDepth > 0 {
		return false
	}

	w.applyQueue()
	return true
}

func (w *World) DeferSuspend() {
	w.checkOpen("defer_suspend")

	if w.deferDepth <= 0 {
		native.Faultf("defer_suspend", "world is not deferred")
	}

	w.deferDepth = -w.deferDepth
}

func (w *World) DeferResume() {
	w.checkOpen("defer_resume")

	if w.deferDepth >= 0 {
		native.Faultf("defer_resume", "world is not suspended")
	}

	w.deferDepth = -w.deferDepth
}

func (w *World) IsDeferred() bool {
	return w.deferring()
}

// QueuedCommands returns the number of commands waiting for the end of the
// outermost defer scope.
func (w *World) QueuedCommands() int {
	return len(w.queue)
}
