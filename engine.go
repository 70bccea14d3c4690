package texreg

import "image"

// Engine is the consumer of registered textures: the component that
// pulls published frames and composites them.
//
// Implementations must tolerate redundant MarkTextureFrameAvailable
// calls for the same frame, and must treat UnregisterTexture as a no-op
// once the engine is detached. Both follow from the registry's
// suppression model: a frame signal racing a release may still arrive
// one last time.
//
// All four methods may be called from any goroutine; engines shipped by
// this module synchronize their own tables.
type Engine interface {
	// RegisterTexture establishes the id → surface mapping the engine
	// uses to pull frames for compositing. The registry calls it
	// exactly once per id, before the handle is visible to producers.
	RegisterTexture(id uint64, surface *Surface)

	// MarkTextureFrameAvailable notifies the engine that a new frame
	// was published on the given id. Safe to call redundantly.
	MarkTextureFrameAvailable(id uint64)

	// UnregisterTexture removes the mapping. Called at most once per id
	// by the registry. A detached engine ignores the call.
	UnregisterTexture(id uint64)

	// IsAttached reports whether the engine-side connection is live.
	// The registry suppresses forwarding and cleanup once this returns
	// false.
	IsAttached() bool
}

// ViewportAware is implemented by engines that size their output to
// viewport metrics. Renderer.SetViewportMetrics forwards valid updates
// to engines implementing it.
type ViewportAware interface {
	SetViewportMetrics(m ViewportMetrics)
}

// Snapshotter is implemented by engines that can read back their
// composited output. Renderer.Snapshot uses it.
type Snapshotter interface {
	Snapshot() (*image.RGBA, error)
}

// Flusher is implemented by engines that batch frame work (uploads,
// composition) until an explicit flush.
type Flusher interface {
	Flush() error
}

// DisplayHandler receives engine display-state transitions.
// The Renderer implements it to drive its DisplayListener fan-out.
type DisplayHandler interface {
	// EngineDisplayed is called when the engine presents output; the
	// first call marks the transition to "displaying".
	EngineDisplayed()

	// EngineStopped is called when the engine stops presenting
	// (detach or teardown).
	EngineStopped()
}

// DisplayEventSource is implemented by engines that report when they
// start and stop displaying output.
type DisplayEventSource interface {
	SetDisplayHandler(h DisplayHandler)
}
