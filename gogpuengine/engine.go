package gogpuengine

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/texreg"
	"github.com/gogpu/texreg/internal/shardtable"
)

// Construction errors.
var (
	// ErrNilProvider is returned when a nil DeviceHandle is passed.
	ErrNilProvider = errors.New("gogpuengine: nil device provider")

	// ErrNilHost is returned when a nil Host is passed.
	ErrNilHost = errors.New("gogpuengine: nil host")

	// ErrNoTextureCreator is returned when the wrapped draw context has
	// no texture creator.
	ErrNoTextureCreator = errors.New("gogpuengine: draw context has no texture creator")

	// ErrInvalidTexture is returned when a texture handle is not
	// drawable by the wrapped draw context.
	ErrInvalidTexture = errors.New("gogpuengine: texture is not drawable")
)

// Host is the part of a gogpu application the engine drives: texture
// creation from premultiplied RGBA pixels and positioned drawing into
// the host's target. Texture handles stay opaque; the engine probes
// them for optional capabilities (in-place updates, destruction).
type Host interface {
	NewTextureFromRGBA(width, height int, data []byte) (any, error)
	DrawTexture(tex any, x, y float32) error
}

// textureUpdater matches gpucontext.TextureUpdater: textures that
// support in-place uploads avoid a recreate per frame.
type textureUpdater interface {
	UpdateData(data []byte) error
}

// textureDestroyer is the interface for destroying textures.
// This matches the gogpu.Texture.Destroy signature.
type textureDestroyer interface {
	Destroy()
}

// devicePoller matches devices that expose non-blocking polling, used
// to pump uploads between host frames.
type devicePoller interface {
	Poll(wait bool)
}

// gpucontextHost adapts a gpucontext.TextureDrawer to Host.
type gpucontextHost struct {
	dc gpucontext.TextureDrawer
}

// WrapTextureDrawer adapts a gpucontext.TextureDrawer into the engine's
// Host surface. The dc parameter is typically obtained from
// gogpu.Context.AsTextureDrawer().
func WrapTextureDrawer(dc gpucontext.TextureDrawer) Host {
	return &gpucontextHost{dc: dc}
}

func (h *gpucontextHost) NewTextureFromRGBA(width, height int, data []byte) (any, error) {
	creator := h.dc.TextureCreator()
	if creator == nil {
		return nil, ErrNoTextureCreator
	}
	tex, err := creator.NewTextureFromRGBA(width, height, data)
	if err != nil {
		return nil, err
	}
	return tex, nil
}

func (h *gpucontextHost) DrawTexture(tex any, x, y float32) error {
	gpuTex, ok := tex.(gpucontext.Texture)
	if !ok {
		return ErrInvalidTexture
	}
	return h.dc.DrawTexture(gpuTex, x, y)
}

// hostTexture is one registered surface plus its host-side texture.
type hostTexture struct {
	surface *texreg.Surface

	// dirty is set by frame signals and cleared when the engine
	// re-acquires the frame during Flush.
	dirty atomic.Bool

	// scratch holds the last acquired frame, engine-owned.
	scratch *texreg.Pixmap

	// texture is the opaque host texture, nil until the first upload.
	texture any

	width  int
	height int

	// x, y is where Flush draws the texture in the host target.
	x float32
	y float32
}

// Engine uploads registered frames through a gogpu host and draws them
// into the host's target. Frame signals mark slots dirty; Flush
// re-acquires dirty frames, uploads them (in place when the host
// texture supports it, recreating otherwise) and draws every textured
// slot at its placement.
//
// The engine never owns GPU resources beyond the textures it creates;
// the device belongs to the host.
type Engine struct {
	attached atomic.Bool

	provider DeviceHandle
	host     Host

	slots *shardtable.Table[uint64, *hostTexture]

	mu sync.Mutex

	handlerMu sync.Mutex
	handler   texreg.DisplayHandler

	frames atomic.Uint64
}

// Interface compliance checks.
var _ texreg.Engine = (*Engine)(nil)
var _ texreg.Flusher = (*Engine)(nil)
var _ texreg.DisplayEventSource = (*Engine)(nil)

// New creates an engine on the host's device and draw surface.
func New(provider DeviceHandle, host Host) (*Engine, error) {
	if provider == nil {
		return nil, ErrNilProvider
	}
	if host == nil {
		return nil, ErrNilHost
	}
	e := &Engine{
		provider: provider,
		host:     host,
		slots:    shardtable.New[uint64, *hostTexture](shardtable.Uint64Hasher),
	}
	e.attached.Store(true)
	return e, nil
}

// NewFromTextureDrawer is New with the draw context wrapped for hosts
// that hand out a raw gpucontext.TextureDrawer.
func NewFromTextureDrawer(provider DeviceHandle, dc gpucontext.TextureDrawer) (*Engine, error) {
	if dc == nil {
		return nil, ErrNilHost
	}
	return New(provider, WrapTextureDrawer(dc))
}

// RegisterTexture implements texreg.Engine. The host texture is created
// on first upload; surfaces are born sizeless.
func (e *Engine) RegisterTexture(id uint64, surface *texreg.Surface) {
	if !e.attached.Load() {
		texreg.Logger().Debug("gogpu engine detached; ignoring register", "id", id)
		return
	}
	e.slots.Store(id, &hostTexture{
		surface: surface,
		scratch: texreg.NewPixmap(0, 0),
	})
}

// MarkTextureFrameAvailable implements texreg.Engine. Unknown ids are
// stale signals from released textures and are ignored.
func (e *Engine) MarkTextureFrameAvailable(id uint64) {
	if slot, ok := e.slots.Load(id); ok {
		slot.dirty.Store(true)
	}
}

// UnregisterTexture implements texreg.Engine. The host texture is
// destroyed when it supports destruction. A detached engine ignores
// the call.
func (e *Engine) UnregisterTexture(id uint64) {
	if !e.attached.Load() {
		return
	}
	slot, ok := e.slots.LoadAndDelete(id)
	if !ok {
		return
	}
	e.mu.Lock()
	destroyTexture(slot)
	e.mu.Unlock()
}

// IsAttached implements texreg.Engine.
func (e *Engine) IsAttached() bool {
	return e.attached.Load()
}

// SetPlacement positions a texture within the host target. Flush draws
// it at (x, y); the default is the origin.
func (e *Engine) SetPlacement(id uint64, x, y float32) {
	slot, ok := e.slots.Load(id)
	if !ok {
		return
	}
	e.mu.Lock()
	slot.x, slot.y = x, y
	e.mu.Unlock()
}

// SetDisplayHandler implements texreg.DisplayEventSource.
func (e *Engine) SetDisplayHandler(h texreg.DisplayHandler) {
	e.handlerMu.Lock()
	e.handler = h
	e.handlerMu.Unlock()
}

// Flush uploads every dirty frame and draws all textured slots into the
// host target in ascending id order.
func (e *Engine) Flush() error {
	if !e.attached.Load() {
		return nil
	}

	ids := e.slots.Keys()
	slices.Sort(ids)

	e.mu.Lock()
	err := e.flushLocked(ids)
	e.mu.Unlock()
	if err != nil {
		return err
	}

	// Pump the host device so uploads complete even when the host isn't
	// presenting right now.
	if d := e.provider.Device(); d != nil {
		if p, ok := d.(devicePoller); ok {
			p.Poll(false)
		}
	}

	e.frames.Add(1)
	e.notifyDisplayed()
	return nil
}

func (e *Engine) flushLocked(ids []uint64) error {
	for _, id := range ids {
		slot, ok := e.slots.Load(id)
		if !ok {
			continue
		}

		if slot.dirty.Swap(false) {
			if _, ok := slot.surface.AcquireFrame(slot.scratch); ok {
				if err := e.uploadLocked(slot); err != nil {
					return fmt.Errorf("gogpuengine: upload texture %d: %w", id, err)
				}
			}
		}

		if slot.texture == nil {
			continue
		}
		if err := e.host.DrawTexture(slot.texture, slot.x, slot.y); err != nil {
			return fmt.Errorf("gogpuengine: draw texture %d: %w", id, err)
		}
	}
	return nil
}

// uploadLocked pushes the slot's scratch frame into its host texture,
// updating in place when the texture supports it and the size matches,
// recreating otherwise.
func (e *Engine) uploadLocked(slot *hostTexture) error {
	w, h := slot.scratch.Width(), slot.scratch.Height()
	if w == 0 || h == 0 {
		return nil
	}
	data := slot.scratch.Data()

	if slot.texture != nil && w == slot.width && h == slot.height {
		if updater, ok := slot.texture.(textureUpdater); ok {
			return updater.UpdateData(data)
		}
	}

	tex, err := e.host.NewTextureFromRGBA(w, h, data)
	if err != nil {
		return err
	}

	// Frames are premultiplied alpha; hosts that distinguish blend
	// pipelines need to know.
	if pt, ok := tex.(interface{ SetPremultiplied(bool) }); ok {
		pt.SetPremultiplied(true)
	}

	old := slot.texture
	slot.texture = tex
	slot.width, slot.height = w, h

	// Creating the texture waits for the GPU internally, so the old
	// texture is no longer referenced by in-flight work.
	destroyTextureHandle(old)
	return nil
}

func destroyTexture(slot *hostTexture) {
	destroyTextureHandle(slot.texture)
	slot.texture = nil
	slot.width, slot.height = 0, 0
}

func destroyTextureHandle(tex any) {
	if tex == nil {
		return
	}
	if destroyer, ok := tex.(textureDestroyer); ok {
		destroyer.Destroy()
	}
}

// Texture returns the opaque host texture for a registered id, or nil
// before its first upload.
func (e *Engine) Texture(id uint64) any {
	slot, ok := e.slots.Load(id)
	if !ok {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return slot.texture
}

// TextureCount returns the number of registered textures.
func (e *Engine) TextureCount() int {
	return e.slots.Len()
}

// FrameCount returns the number of completed flushes.
func (e *Engine) FrameCount() uint64 {
	return e.frames.Load()
}

// Provider returns the host device handle.
func (e *Engine) Provider() DeviceHandle {
	return e.provider
}

// Detach marks the engine as no longer attached to a live host. After
// detach, register, unregister, and frame forwarding are all suppressed.
func (e *Engine) Detach() {
	if !e.attached.CompareAndSwap(true, false) {
		return
	}
	e.notifyStopped()
}

// Close implements io.Closer. It detaches and destroys all host
// textures the engine created.
func (e *Engine) Close() error {
	e.Detach()

	e.mu.Lock()
	e.slots.Range(func(_ uint64, slot *hostTexture) bool {
		destroyTexture(slot)
		return true
	})
	e.slots.Clear()
	e.mu.Unlock()
	return nil
}

func (e *Engine) notifyDisplayed() {
	e.handlerMu.Lock()
	h := e.handler
	e.handlerMu.Unlock()
	if h != nil {
		h.EngineDisplayed()
	}
}

func (e *Engine) notifyStopped() {
	e.handlerMu.Lock()
	h := e.handler
	e.handlerMu.Unlock()
	if h != nil {
		h.EngineStopped()
	}
}
