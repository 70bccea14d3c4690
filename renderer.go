package texreg

import (
	"errors"
	"image"
	"io"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/gogpu/texreg/dispatch"
)

// ErrNoSnapshot is returned by Renderer.Snapshot when the engine cannot
// read back its output.
var ErrNoSnapshot = errors.New("texreg: engine does not support snapshots")

// DisplayListener is notified when the engine starts or stops
// displaying composited content.
type DisplayListener interface {
	// OnDisplayed fires when the engine presents its first frame, or
	// immediately on registration if content is already showing.
	OnDisplayed()

	// OnStopped fires when the engine stops presenting.
	OnStopped()
}

// Renderer is the host-facing facade around a Registry: texture
// creation plus the display, viewport, and snapshot plumbing a host
// application wires to its windowing layer.
type Renderer struct {
	engine Engine
	reg    *Registry

	displaying atomic.Bool

	mu        sync.Mutex
	listeners []DisplayListener
	viewport  ViewportMetrics
}

// NewRenderer creates a renderer around engine. The queue carries the
// same meaning as in NewRegistry and stays caller-owned.
func NewRenderer(engine Engine, queue *dispatch.Queue, opts ...Option) *Renderer {
	r := &Renderer{
		engine:   engine,
		reg:      NewRegistry(engine, queue, opts...),
		viewport: DefaultViewportMetrics(),
	}

	if src, ok := engine.(DisplayEventSource); ok {
		src.SetDisplayHandler(r)
	}
	return r
}

// CreateTexture allocates a texture handle. See Registry.CreateTexture.
func (r *Renderer) CreateTexture() *TextureEntry {
	return r.reg.CreateTexture()
}

// Registry returns the underlying registry.
func (r *Renderer) Registry() *Registry {
	return r.reg
}

// AddDisplayListener registers a listener for display transitions.
// If the engine is already displaying content the listener's
// OnDisplayed fires immediately, so late registrants observe the
// current state instead of waiting for the next transition.
func (r *Renderer) AddDisplayListener(l DisplayListener) {
	if l == nil {
		return
	}

	r.mu.Lock()
	r.listeners = append(r.listeners, l)
	r.mu.Unlock()

	if r.displaying.Load() {
		l.OnDisplayed()
	}
}

// RemoveDisplayListener removes a previously added listener.
func (r *Renderer) RemoveDisplayListener(l DisplayListener) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.listeners {
		if existing == l {
			r.listeners = append(r.listeners[:i], r.listeners[i+1:]...)
			return
		}
	}
}

// Displaying reports whether the engine has presented a frame and not
// stopped since.
func (r *Renderer) Displaying() bool {
	return r.displaying.Load()
}

// EngineDisplayed implements DisplayHandler. The first call after a
// stop flips the renderer to displaying and notifies listeners;
// repeated calls while already displaying are ignored.
func (r *Renderer) EngineDisplayed() {
	if !r.displaying.CompareAndSwap(false, true) {
		return
	}
	for _, l := range r.snapshotListeners() {
		l.OnDisplayed()
	}
}

// EngineStopped implements DisplayHandler.
func (r *Renderer) EngineStopped() {
	if !r.displaying.CompareAndSwap(true, false) {
		return
	}
	for _, l := range r.snapshotListeners() {
		l.OnStopped()
	}
}

// snapshotListeners copies the listener list so callbacks run without
// holding the lock; a callback may add or remove listeners itself.
func (r *Renderer) snapshotListeners() []DisplayListener {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.listeners)
}

// SetViewportMetrics records new output geometry and forwards it to
// engines that size themselves to the viewport.
//
// Hosts often report the pixel ratio before the dimensions exist;
// such partial updates fail Valid and are ignored until a complete
// one arrives.
func (r *Renderer) SetViewportMetrics(m ViewportMetrics) {
	if !m.Valid() {
		Logger().Debug("ignoring incomplete viewport metrics",
			"width", m.Width, "height", m.Height, "dpr", m.DevicePixelRatio)
		return
	}

	r.mu.Lock()
	r.viewport = m
	r.mu.Unlock()

	Logger().Debug("viewport metrics updated",
		"width", m.Width, "height", m.Height, "dpr", m.DevicePixelRatio)

	if va, ok := r.engine.(ViewportAware); ok {
		va.SetViewportMetrics(m)
	}
}

// Viewport returns the last valid metrics applied.
func (r *Renderer) Viewport() ViewportMetrics {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.viewport
}

// Snapshot returns the engine's current composited output.
// Returns ErrNoSnapshot when the engine cannot read back.
func (r *Renderer) Snapshot() (*image.RGBA, error) {
	if s, ok := r.engine.(Snapshotter); ok {
		return s.Snapshot()
	}
	return nil, ErrNoSnapshot
}

// Flush asks the engine to apply pending frame work (uploads,
// composition). Engines without batching return immediately.
func (r *Renderer) Flush() error {
	if f, ok := r.engine.(Flusher); ok {
		return f.Flush()
	}
	return nil
}

// Close stops display notifications, releases every texture, and closes
// the engine if it is closeable. The dispatch queue is caller-owned and
// stays open.
func (r *Renderer) Close() {
	r.EngineStopped()
	r.reg.Close()
	if c, ok := r.engine.(io.Closer); ok {
		_ = c.Close()
	}
}

// Queue returns the dispatch queue the registry schedules cleanup on.
func (r *Renderer) Queue() *dispatch.Queue {
	return r.reg.Queue()
}
