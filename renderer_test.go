package texreg

import (
	"errors"
	"image"
	"sync/atomic"
	"testing"
)

// displayRecorder counts display transitions.
type displayRecorder struct {
	displayed atomic.Int32
	stopped   atomic.Int32
}

func (d *displayRecorder) OnDisplayed() { d.displayed.Add(1) }
func (d *displayRecorder) OnStopped()   { d.stopped.Add(1) }

// viewportEngine records viewport pushes.
type viewportEngine struct {
	mockEngine
	metrics ViewportMetrics
	pushes  int
}

func (e *viewportEngine) SetViewportMetrics(m ViewportMetrics) {
	e.metrics = m
	e.pushes++
}

// snapshotEngine serves a fixed readback image.
type snapshotEngine struct {
	mockEngine
	img *image.RGBA
}

func (e *snapshotEngine) Snapshot() (*image.RGBA, error) {
	return e.img, nil
}

// closableEngine records Close calls.
type closableEngine struct {
	mockEngine
	closed int
}

func (e *closableEngine) Close() error {
	e.closed++
	return nil
}

// eventfulEngine exposes the display handler hookup.
type eventfulEngine struct {
	mockEngine
	handler DisplayHandler
}

func (e *eventfulEngine) SetDisplayHandler(h DisplayHandler) {
	e.handler = h
}

// =============================================================================
// Display transitions
// =============================================================================

func TestRendererDisplayTransitions(t *testing.T) {
	eng := &eventfulEngine{}
	eng.attached.Store(true)
	q := newTestQueue(t)
	r := NewRenderer(eng, q)
	defer r.Close()

	if eng.handler == nil {
		t.Fatal("renderer did not install itself as display handler")
	}
	if r.Displaying() {
		t.Error("Displaying() = true before first frame")
	}

	rec := &displayRecorder{}
	r.AddDisplayListener(rec)

	eng.handler.EngineDisplayed()
	if !r.Displaying() {
		t.Error("Displaying() = false after EngineDisplayed")
	}
	if got := rec.displayed.Load(); got != 1 {
		t.Errorf("OnDisplayed calls = %d, want 1", got)
	}

	// Repeated displays while already displaying are swallowed.
	eng.handler.EngineDisplayed()
	if got := rec.displayed.Load(); got != 1 {
		t.Errorf("OnDisplayed calls after repeat = %d, want 1", got)
	}

	eng.handler.EngineStopped()
	if r.Displaying() {
		t.Error("Displaying() = true after EngineStopped")
	}
	if got := rec.stopped.Load(); got != 1 {
		t.Errorf("OnStopped calls = %d, want 1", got)
	}

	eng.handler.EngineStopped()
	if got := rec.stopped.Load(); got != 1 {
		t.Errorf("OnStopped calls after repeat = %d, want 1", got)
	}
}

func TestRendererLateListenerFiresImmediately(t *testing.T) {
	eng := &eventfulEngine{}
	eng.attached.Store(true)
	q := newTestQueue(t)
	r := NewRenderer(eng, q)
	defer r.Close()

	eng.handler.EngineDisplayed()

	rec := &displayRecorder{}
	r.AddDisplayListener(rec)

	if got := rec.displayed.Load(); got != 1 {
		t.Errorf("OnDisplayed calls = %d, want 1 (immediate fire for late registrant)", got)
	}
}

func TestRendererRemoveDisplayListener(t *testing.T) {
	eng := &eventfulEngine{}
	eng.attached.Store(true)
	q := newTestQueue(t)
	r := NewRenderer(eng, q)
	defer r.Close()

	rec := &displayRecorder{}
	r.AddDisplayListener(rec)
	r.RemoveDisplayListener(rec)

	eng.handler.EngineDisplayed()

	if got := rec.displayed.Load(); got != 0 {
		t.Errorf("OnDisplayed calls = %d after removal, want 0", got)
	}
}

func TestRendererAddNilListener(t *testing.T) {
	eng := newMockEngine()
	q := newTestQueue(t)
	r := NewRenderer(eng, q)
	defer r.Close()

	r.AddDisplayListener(nil)
	r.EngineDisplayed()
}

// =============================================================================
// Viewport metrics
// =============================================================================

func TestRendererViewportForwarded(t *testing.T) {
	eng := &viewportEngine{}
	eng.attached.Store(true)
	q := newTestQueue(t)
	r := NewRenderer(eng, q)
	defer r.Close()

	m := DefaultViewportMetrics()
	m.Width = 640
	m.Height = 480
	m.Padding.Top = 24
	r.SetViewportMetrics(m)

	if got := r.Viewport(); got != m {
		t.Errorf("Viewport() = %+v, want %+v", got, m)
	}
	if eng.pushes != 1 {
		t.Errorf("engine viewport pushes = %d, want 1", eng.pushes)
	}
	if eng.metrics.Width != 640 || eng.metrics.Height != 480 {
		t.Errorf("engine metrics = %dx%d, want 640x480", eng.metrics.Width, eng.metrics.Height)
	}
}

func TestRendererViewportInvalidIgnored(t *testing.T) {
	eng := &viewportEngine{}
	eng.attached.Store(true)
	q := newTestQueue(t)
	r := NewRenderer(eng, q)
	defer r.Close()

	before := r.Viewport()

	// A host reporting just the pixel ratio before layout has happened.
	partial := DefaultViewportMetrics()
	partial.DevicePixelRatio = 2.0
	r.SetViewportMetrics(partial)

	if got := r.Viewport(); got != before {
		t.Errorf("Viewport() = %+v after invalid update, want unchanged %+v", got, before)
	}
	if eng.pushes != 0 {
		t.Errorf("engine viewport pushes = %d, want 0", eng.pushes)
	}
}

func TestViewportMetricsValid(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*ViewportMetrics)
		want bool
	}{
		{"default is incomplete", func(m *ViewportMetrics) {}, false},
		{"sized", func(m *ViewportMetrics) { m.Width = 1; m.Height = 1 }, true},
		{"zero width", func(m *ViewportMetrics) { m.Height = 1 }, false},
		{"zero height", func(m *ViewportMetrics) { m.Width = 1 }, false},
		{"zero dpr", func(m *ViewportMetrics) { m.Width = 1; m.Height = 1; m.DevicePixelRatio = 0 }, false},
		{"negative dpr", func(m *ViewportMetrics) { m.Width = 1; m.Height = 1; m.DevicePixelRatio = -1 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := DefaultViewportMetrics()
			tt.mod(&m)
			if got := m.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

// =============================================================================
// Snapshot and flush
// =============================================================================

func TestRendererSnapshot(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	eng := &snapshotEngine{img: img}
	eng.attached.Store(true)
	q := newTestQueue(t)
	r := NewRenderer(eng, q)
	defer r.Close()

	got, err := r.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() = %v", err)
	}
	if got != img {
		t.Error("Snapshot() did not return the engine's image")
	}
}

func TestRendererSnapshotUnsupported(t *testing.T) {
	eng := newMockEngine()
	q := newTestQueue(t)
	r := NewRenderer(eng, q)
	defer r.Close()

	if _, err := r.Snapshot(); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("Snapshot() = %v, want ErrNoSnapshot", err)
	}
}

func TestRendererFlushWithoutFlusher(t *testing.T) {
	eng := newMockEngine()
	q := newTestQueue(t)
	r := NewRenderer(eng, q)
	defer r.Close()

	if err := r.Flush(); err != nil {
		t.Errorf("Flush() = %v, want nil", err)
	}
}

// =============================================================================
// Close
// =============================================================================

func TestRendererClose(t *testing.T) {
	eng := &closableEngine{}
	eng.attached.Store(true)
	q := newTestQueue(t)
	r := NewRenderer(eng, q)

	e0 := r.CreateTexture()
	e1 := r.CreateTexture()

	rec := &displayRecorder{}
	r.AddDisplayListener(rec)
	r.EngineDisplayed()

	r.Close()

	if got := rec.stopped.Load(); got != 1 {
		t.Errorf("OnStopped calls = %d, want 1", got)
	}
	if !e0.Released() || !e1.Released() {
		t.Error("textures not released on Close")
	}
	if eng.closed != 1 {
		t.Errorf("engine Close calls = %d, want 1", eng.closed)
	}
	if r.Registry().LiveCount() != 0 {
		t.Errorf("LiveCount() = %d after Close, want 0", r.Registry().LiveCount())
	}
	if !q.Running() {
		t.Error("dispatch queue closed by renderer; it is caller-owned")
	}
}

func TestRendererCreateTextureDelegates(t *testing.T) {
	eng := newMockEngine()
	q := newTestQueue(t)
	r := NewRenderer(eng, q)
	defer r.Close()

	e := r.CreateTexture()
	defer e.Release()

	if e.ID() != 0 {
		t.Errorf("ID() = %d, want 0", e.ID())
	}
	if r.Registry().LiveCount() != 1 {
		t.Errorf("LiveCount() = %d, want 1", r.Registry().LiveCount())
	}
	if r.Queue() != q {
		t.Error("Queue() did not return the construction queue")
	}
}
