package texreg

import (
	"runtime"
	"sync/atomic"
)

// TextureEntry is the producer-visible handle for one registered
// texture: a process-unique id, the Surface producers write frames
// into, and a Release operation.
//
// Entries are created by Registry.CreateTexture and must be released
// when no longer needed. An entry that becomes unreachable without
// Release is caught by a finalizer that releases the surface and
// schedules the engine unregister on the registry's dispatch queue;
// rely on that only as a safety net, not as a lifecycle.
type TextureEntry struct {
	id      uint64
	surface *Surface

	// released is shared with the frame listener and the registry's
	// live table. It lives in its own allocation so those holders never
	// pin the entry itself, which would keep the finalizer from running.
	released *atomic.Bool

	reg *Registry
}

// ID returns the texture id. Ids are unique for the lifetime of the
// owning registry and never reused.
func (e *TextureEntry) ID() uint64 {
	return e.id
}

// Surface returns the writable resource bound to this entry.
func (e *TextureEntry) Surface() *Surface {
	return e.surface
}

// Release frees the surface and unregisters the id with the engine.
// Idempotent: the first call wins, later calls and a racing finalizer
// are no-ops. Safe to call concurrently with frame publishes; a signal
// already in flight is suppressed by the listener guard.
func (e *TextureEntry) Release() {
	if !e.released.CompareAndSwap(false, true) {
		return
	}
	runtime.SetFinalizer(e, nil)
	e.reg.releaseEntry(e.id, e.surface)
}

// Released reports whether the entry has been released.
func (e *TextureEntry) Released() bool {
	return e.released.Load()
}

// finalize is the safety-net path, installed via runtime.SetFinalizer.
// Tests invoke it directly; the behavior is identical either way.
func (e *TextureEntry) finalize() {
	if !e.released.CompareAndSwap(false, true) {
		return
	}
	e.reg.finalizeEntry(e.id, e.surface)
}

// entryFrameListener forwards a surface's frame signals to the engine.
// It owns exactly the context it needs: no reference back to the
// registry or the entry, so a listener sitting in a surface never keeps
// a dropped handle alive.
type entryFrameListener struct {
	engine   Engine
	id       uint64
	released *atomic.Bool
}

// OnFrameAvailable implements FrameListener. Signals arriving after
// release or after the engine detached are dropped here; both are
// expected during teardown and carry no information the engine wants.
func (l *entryFrameListener) OnFrameAvailable() {
	if l.released.Load() || !l.engine.IsAttached() {
		return
	}
	l.engine.MarkTextureFrameAvailable(l.id)
}

// unregisterTask is the finalizer's deferred cleanup, executed on the
// registry's dispatch queue. The attachment check runs on the queue
// goroutine: unregistering against a torn-down engine is a no-op, and
// nothing here may touch engine state once it reports detached.
type unregisterTask struct {
	engine Engine
	id     uint64
}

// Run performs the unregister if the engine is still attached.
func (t *unregisterTask) Run() {
	if !t.engine.IsAttached() {
		Logger().Debug("skipping unregister of finalized texture; engine detached", "id", t.id)
		return
	}
	t.engine.UnregisterTexture(t.id)
}
