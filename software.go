package texreg

import (
	"image"
	"image/color"
	"image/draw"
	"slices"
	"sync"
	"sync/atomic"

	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/texreg/internal/shardtable"
)

// softScaler resamples frames whose placement differs from their
// natural size. ApproxBiLinear trades a little quality for speed, which
// is the right call for per-frame work.
var softScaler xdraw.Scaler = xdraw.ApproxBiLinear

// softwareTexture is one registered surface plus composition state.
type softwareTexture struct {
	surface *Surface

	// dirty is set by frame signals and cleared when the engine
	// re-acquires the frame during composition.
	dirty atomic.Bool

	// scratch holds the last acquired frame, engine-owned.
	scratch *Pixmap

	// hasFrame records whether scratch contains pixel data yet.
	hasFrame bool

	// placement is where the frame lands in the target; the zero
	// rectangle means natural size at the origin.
	placement image.Rectangle
}

// SoftwareEngine is a CPU compositor: the always-available Engine.
// Registered surfaces composite into an RGBA target in id order,
// scaled to their placement rectangles.
//
// Thread safety: all Engine methods may be called from any goroutine.
// Composite, Snapshot, and the setters serialize on an internal lock.
type SoftwareEngine struct {
	attached atomic.Bool

	textures *shardtable.Table[uint64, *softwareTexture]

	mu         sync.Mutex
	target     *Pixmap
	background color.RGBA

	handlerMu sync.Mutex
	handler   DisplayHandler

	frames atomic.Uint64
}

// NewSoftwareEngine creates an attached software engine with an empty
// target. Size the target with SetViewportMetrics or let the first
// Composite grow it around the registered frames.
func NewSoftwareEngine() *SoftwareEngine {
	e := &SoftwareEngine{
		textures: shardtable.New[uint64, *softwareTexture](shardtable.Uint64Hasher),
	}
	e.attached.Store(true)
	return e
}

// RegisterTexture implements Engine.
func (e *SoftwareEngine) RegisterTexture(id uint64, surface *Surface) {
	if !e.attached.Load() {
		Logger().Debug("software engine detached; ignoring register", "id", id)
		return
	}
	e.textures.Store(id, &softwareTexture{
		surface: surface,
		scratch: NewPixmap(0, 0),
	})
}

// MarkTextureFrameAvailable implements Engine. Unknown ids are stale
// signals from released textures and are ignored.
func (e *SoftwareEngine) MarkTextureFrameAvailable(id uint64) {
	if tex, ok := e.textures.Load(id); ok {
		tex.dirty.Store(true)
	}
}

// UnregisterTexture implements Engine. A detached engine ignores the
// call; there is no table left worth cleaning.
func (e *SoftwareEngine) UnregisterTexture(id uint64) {
	if !e.attached.Load() {
		return
	}
	e.textures.Delete(id)
}

// IsAttached implements Engine.
func (e *SoftwareEngine) IsAttached() bool {
	return e.attached.Load()
}

// SetPlacement positions a texture's frames within the target.
// An empty rectangle restores natural size at the origin.
func (e *SoftwareEngine) SetPlacement(id uint64, r image.Rectangle) {
	tex, ok := e.textures.Load(id)
	if !ok {
		return
	}
	e.mu.Lock()
	tex.placement = r
	e.mu.Unlock()
}

// SetBackground sets the color the target is cleared to before each
// composite.
func (e *SoftwareEngine) SetBackground(c color.RGBA) {
	e.mu.Lock()
	e.background = c
	e.mu.Unlock()
}

// SetViewportMetrics implements ViewportAware by resizing the target.
func (e *SoftwareEngine) SetViewportMetrics(m ViewportMetrics) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.target == nil {
		e.target = NewPixmap(m.Width, m.Height)
		return
	}
	e.target.Resize(m.Width, m.Height)
}

// SetDisplayHandler implements DisplayEventSource.
func (e *SoftwareEngine) SetDisplayHandler(h DisplayHandler) {
	e.handlerMu.Lock()
	e.handler = h
	e.handlerMu.Unlock()
}

// Composite draws the latest frame of every registered texture into the
// target, in ascending id order. Dirty textures re-acquire their frame
// first; clean ones reuse the engine's copy.
func (e *SoftwareEngine) Composite() error {
	if !e.attached.Load() {
		return nil
	}

	ids := e.textures.Keys()
	slices.Sort(ids)

	e.mu.Lock()

	e.ensureTargetLocked(ids)
	e.target.Clear(e.background)

	dst := e.target.RGBAView()
	for _, id := range ids {
		tex, ok := e.textures.Load(id)
		if !ok {
			continue
		}

		if tex.dirty.Swap(false) {
			if _, ok := tex.surface.AcquireFrame(tex.scratch); ok {
				tex.hasFrame = true
			}
		}
		if !tex.hasFrame || tex.scratch.Width() == 0 || tex.scratch.Height() == 0 {
			continue
		}

		src := tex.scratch.RGBAView()
		r := tex.placement
		if r.Empty() {
			r = image.Rect(0, 0, tex.scratch.Width(), tex.scratch.Height())
		}
		if r.Dx() == tex.scratch.Width() && r.Dy() == tex.scratch.Height() {
			draw.Draw(dst, r, src, image.Point{}, draw.Over)
		} else {
			softScaler.Scale(dst, r, src, src.Bounds(), xdraw.Over, nil)
		}
	}

	e.mu.Unlock()

	e.frames.Add(1)
	e.notifyDisplayed()
	return nil
}

// ensureTargetLocked grows an unsized target around the registered
// frames so Composite works before any viewport metrics arrive.
func (e *SoftwareEngine) ensureTargetLocked(ids []uint64) {
	if e.target != nil && e.target.Width() > 0 && e.target.Height() > 0 {
		return
	}

	var w, h int
	for _, id := range ids {
		tex, ok := e.textures.Load(id)
		if !ok {
			continue
		}
		r := tex.placement
		if r.Empty() {
			fw, fh := tex.surface.Size()
			r = image.Rect(0, 0, fw, fh)
		}
		w = max(w, r.Max.X)
		h = max(h, r.Max.Y)
	}

	if e.target == nil {
		e.target = NewPixmap(w, h)
		return
	}
	e.target.Resize(w, h)
}

// Flush implements Flusher as an alias for Composite.
func (e *SoftwareEngine) Flush() error {
	return e.Composite()
}

// Snapshot implements Snapshotter by copying the current target.
func (e *SoftwareEngine) Snapshot() (*image.RGBA, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.target == nil {
		return image.NewRGBA(image.Rectangle{}), nil
	}
	return e.target.ToImage(), nil
}

// Target returns the composition target. The pointer is live; do not
// read it concurrently with Composite.
func (e *SoftwareEngine) Target() *Pixmap {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.target
}

// FrameCount returns the number of completed composites.
func (e *SoftwareEngine) FrameCount() uint64 {
	return e.frames.Load()
}

// TextureCount returns the number of registered textures.
func (e *SoftwareEngine) TextureCount() int {
	return e.textures.Len()
}

// Detach tears down the engine connection: IsAttached flips false,
// after which register, unregister, and frame forwarding are all
// suppressed.
func (e *SoftwareEngine) Detach() {
	if !e.attached.CompareAndSwap(true, false) {
		return
	}
	e.notifyStopped()
}

// Close implements io.Closer. It detaches and drops all textures.
func (e *SoftwareEngine) Close() error {
	e.Detach()
	e.textures.Clear()
	return nil
}

func (e *SoftwareEngine) notifyDisplayed() {
	e.handlerMu.Lock()
	h := e.handler
	e.handlerMu.Unlock()
	if h != nil {
		h.EngineDisplayed()
	}
}

func (e *SoftwareEngine) notifyStopped() {
	e.handlerMu.Lock()
	h := e.handler
	e.handlerMu.Unlock()
	if h != nil {
		h.EngineStopped()
	}
}
