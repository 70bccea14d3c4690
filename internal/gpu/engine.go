//go:build !nogpu

package gpu

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/gogpu/texreg"
	"github.com/gogpu/texreg/internal/shardtable"
)

// textureSlot is one registered surface plus its GPU-side texture.
type textureSlot struct {
	surface *texreg.Surface

	// dirty is set by frame signals and cleared when the engine
	// re-acquires the frame during Flush.
	dirty atomic.Bool

	// scratch holds the last acquired frame, engine-owned.
	scratch *texreg.Pixmap

	texture hal.Texture
	view    hal.TextureView
	width   uint32
	height  uint32
}

// Engine uploads registered frames into wgpu HAL textures. Frame
// signals mark slots dirty; Flush acquires each dirty frame and writes
// it to the slot's texture via the device queue, recreating the texture
// when the frame size changed. Hosts draw the resulting texture views
// with the engine's present shader.
//
// The engine either owns a standalone Vulkan device (New) or adopts a
// shared one (NewWithDevice, SetDeviceProvider). Only engine-owned
// devices are destroyed on Close.
type Engine struct {
	attached atomic.Bool

	// log overrides the package logger when texreg.SetLogger propagation
	// hands the engine one.
	log atomic.Pointer[slog.Logger]

	slots *shardtable.Table[uint64, *textureSlot]

	mu sync.Mutex

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue

	presentShader hal.ShaderModule

	adapterName    string
	externalDevice bool // true when using shared device (don't destroy on Close)

	uploads atomic.Uint64
}

// Interface compliance checks.
var _ texreg.Engine = (*Engine)(nil)
var _ texreg.Flusher = (*Engine)(nil)

// New creates an engine with a standalone Vulkan device. It fails when
// no Vulkan backend or no adapter is available; callers fall back to
// another engine in that case.
func New() (*Engine, error) {
	e := &Engine{
		slots: shardtable.New[uint64, *textureSlot](shardtable.Uint64Hasher),
	}
	if err := e.initGPU(); err != nil {
		return nil, err
	}
	e.attached.Store(true)
	return e, nil
}

// NewWithDevice creates an engine on a shared device and queue. The
// engine creates and destroys its own textures on the device but never
// destroys the device itself.
func NewWithDevice(device hal.Device, queue hal.Queue) *Engine {
	e := &Engine{
		slots:          shardtable.New[uint64, *textureSlot](shardtable.Uint64Hasher),
		device:         device,
		queue:          queue,
		adapterName:    "external",
		externalDevice: true,
	}
	e.initPresentShader()
	e.attached.Store(true)
	return e
}

// NewFromProvider creates an engine on a provider's shared device,
// skipping standalone bring-up entirely. The provider contract is the
// one SetDeviceProvider documents.
func NewFromProvider(provider any) (*Engine, error) {
	e := &Engine{
		slots: shardtable.New[uint64, *textureSlot](shardtable.Uint64Hasher),
	}
	if err := e.SetDeviceProvider(provider); err != nil {
		return nil, err
	}
	return e, nil
}

// initGPU creates a standalone Vulkan device. This is the fallback path
// when no external device is provided via SetDeviceProvider.
func (e *Engine) initGPU() error {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return fmt.Errorf("vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}
	e.instance = instance

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		e.instance = nil
		return fmt.Errorf("no GPU adapters found")
	}

	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		e.instance = nil
		return fmt.Errorf("open device: %w", err)
	}
	e.device = openDev.Device
	e.queue = openDev.Queue
	e.adapterName = selected.Info.Name

	e.initPresentShader()

	e.logger().Info("gpu: initialized (standalone)", "adapter", selected.Info.Name)
	return nil
}

// initPresentShader compiles the embedded present shader on the current
// device. Failure is non-fatal: uploads work without it, only hosts
// that draw through the engine's module lose the convenience.
func (e *Engine) initPresentShader() {
	module, err := createPresentShader(e.device)
	if err != nil {
		e.logger().Warn("gpu: present shader unavailable", "error", err)
		return
	}
	e.presentShader = module
}

// SetDeviceProvider switches the engine to a shared GPU device from an
// external provider. The provider must implement HalDevice() any and
// HalQueue() any returning hal.Device and hal.Queue.
//
// Textures created on the previous device are destroyed; their slots
// are marked dirty so the next Flush re-uploads every frame onto the
// new device.
func (e *Engine) SetDeviceProvider(provider any) error {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return fmt.Errorf("gpu: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return fmt.Errorf("gpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return fmt.Errorf("gpu: provider HalQueue is not hal.Queue")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Resources created on the old device die with it.
	e.slots.Range(func(_ uint64, slot *textureSlot) bool {
		e.destroySlotTextureLocked(slot)
		slot.dirty.Store(true)
		return true
	})
	if e.presentShader != nil && e.device != nil {
		e.device.DestroyShaderModule(e.presentShader)
		e.presentShader = nil
	}
	if !e.externalDevice && e.device != nil {
		e.device.Destroy()
	}
	if e.instance != nil {
		e.instance.Destroy()
		e.instance = nil
	}

	e.device = device
	e.queue = queue
	e.adapterName = "external"
	e.externalDevice = true

	e.initPresentShader()
	e.attached.Store(true)

	e.logger().Debug("gpu: switched to shared GPU device")
	return nil
}

// SetLogger sets the engine's logger. Called by texreg.SetLogger to
// propagate logging configuration; nil restores the package default.
func (e *Engine) SetLogger(l *slog.Logger) {
	e.log.Store(l)
}

// logger returns the engine's logger, falling back to the texreg
// package logger when none was set.
func (e *Engine) logger() *slog.Logger {
	if l := e.log.Load(); l != nil {
		return l
	}
	return texreg.Logger()
}

// RegisterTexture implements texreg.Engine. The HAL texture is created
// on first upload; surfaces are born sizeless, so there is nothing to
// allocate yet.
func (e *Engine) RegisterTexture(id uint64, surface *texreg.Surface) {
	if !e.attached.Load() {
		e.logger().Debug("gpu: engine detached; ignoring register", "id", id)
		return
	}
	e.slots.Store(id, &textureSlot{
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

// UnregisterTexture implements texreg.Engine. The slot's HAL texture is
// destroyed immediately. A detached engine ignores the call.
func (e *Engine) UnregisterTexture(id uint64) {
	if !e.attached.Load() {
		return
	}
	slot, ok := e.slots.LoadAndDelete(id)
	if !ok {
		return
	}
	e.mu.Lock()
	e.destroySlotTextureLocked(slot)
	e.mu.Unlock()
}

// IsAttached implements texreg.Engine.
func (e *Engine) IsAttached() bool {
	return e.attached.Load()
}

// Flush implements texreg.Flusher: every dirty slot re-acquires its
// latest frame and uploads it to the slot texture, recreating the
// texture when the frame size changed.
func (e *Engine) Flush() error {
	if !e.attached.Load() {
		return nil
	}

	ids := e.slots.Keys()
	slices.Sort(ids)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.device == nil || e.queue == nil {
		return fmt.Errorf("gpu: no device")
	}

	for _, id := range ids {
		slot, ok := e.slots.Load(id)
		if !ok {
			continue
		}
		if !slot.dirty.Swap(false) {
			continue
		}
		if _, ok := slot.surface.AcquireFrame(slot.scratch); !ok {
			continue
		}
		w, h := slot.scratch.Width(), slot.scratch.Height()
		if w == 0 || h == 0 {
			continue
		}
		if err := e.ensureSlotTextureLocked(slot, id, uint32(w), uint32(h)); err != nil {
			return err
		}

		e.queue.WriteTexture(
			&hal.ImageCopyTexture{
				Texture:  slot.texture,
				MipLevel: 0,
			},
			slot.scratch.Data(),
			&hal.ImageDataLayout{
				Offset:       0,
				BytesPerRow:  slot.width * 4,
				RowsPerImage: slot.height,
			},
			&hal.Extent3D{Width: slot.width, Height: slot.height, DepthOrArrayLayers: 1},
		)
		e.uploads.Add(1)
	}

	return nil
}

// ensureSlotTextureLocked creates or recreates the slot texture when
// the requested dimensions differ from the current size. A matching
// existing texture is a no-op.
func (e *Engine) ensureSlotTextureLocked(slot *textureSlot, id uint64, w, h uint32) error {
	if slot.width == w && slot.height == h && slot.texture != nil {
		return nil
	}
	e.destroySlotTextureLocked(slot)

	tex, err := e.device.CreateTexture(&hal.TextureDescriptor{
		Label:         fmt.Sprintf("texreg_%d", id),
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create texture %d: %w", id, err)
	}
	slot.texture = tex

	view, err := e.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         fmt.Sprintf("texreg_%d_view", id),
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		e.destroySlotTextureLocked(slot)
		return fmt.Errorf("create texture view %d: %w", id, err)
	}
	slot.view = view

	slot.width = w
	slot.height = h
	return nil
}

// destroySlotTextureLocked releases the slot's texture resources and
// resets dimensions.
func (e *Engine) destroySlotTextureLocked(slot *textureSlot) {
	if e.device == nil {
		return
	}
	if slot.view != nil {
		e.device.DestroyTextureView(slot.view)
		slot.view = nil
	}
	if slot.texture != nil {
		e.device.DestroyTexture(slot.texture)
		slot.texture = nil
	}
	slot.width = 0
	slot.height = 0
}

// TextureView returns the HAL texture view for a registered texture, or
// nil before its first upload. Hosts bind it with the present shader.
func (e *Engine) TextureView(id uint64) hal.TextureView {
	slot, ok := e.slots.Load(id)
	if !ok {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return slot.view
}

// PresentShader returns the compiled present shader module, or nil when
// compilation was unavailable.
func (e *Engine) PresentShader() hal.ShaderModule {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.presentShader
}

// AdapterName returns the name of the adapter the engine runs on.
func (e *Engine) AdapterName() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.adapterName
}

// TextureCount returns the number of registered textures.
func (e *Engine) TextureCount() int {
	return e.slots.Len()
}

// UploadCount returns the number of frame uploads performed.
func (e *Engine) UploadCount() uint64 {
	return e.uploads.Load()
}

// HalDevice exposes the engine's device so further components can share
// it, mirroring the provider shape SetDeviceProvider consumes.
func (e *Engine) HalDevice() any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.device
}

// HalQueue exposes the engine's queue.
func (e *Engine) HalQueue() any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue
}

// Close implements io.Closer. It detaches, destroys all slot textures
// and the present shader, and destroys the device only when the engine
// owns it.
func (e *Engine) Close() error {
	if !e.attached.CompareAndSwap(true, false) {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.slots.Range(func(_ uint64, slot *textureSlot) bool {
		e.destroySlotTextureLocked(slot)
		return true
	})
	e.slots.Clear()

	if e.presentShader != nil && e.device != nil {
		e.device.DestroyShaderModule(e.presentShader)
		e.presentShader = nil
	}

	if !e.externalDevice {
		if e.device != nil {
			e.device.Destroy()
			e.device = nil
		}
		if e.instance != nil {
			e.instance.Destroy()
			e.instance = nil
		}
	} else {
		// Don't destroy shared resources -- we don't own them.
		e.device = nil
		e.instance = nil
	}
	e.queue = nil
	return nil
}
