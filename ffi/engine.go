//go:build !ios && !android && (amd64 || arm64)

package ffi

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/gogpu/texreg"
	"github.com/gogpu/texreg/backend"
)

// EngineNative is the backend registry name for the purego bridge.
const EngineNative = "native"

func init() {
	backend.Register(EngineNative, func() (texreg.Engine, error) {
		return NewEngine()
	})
}

// Engine drives a native engine through the loaded library. It
// satisfies texreg.Engine, so a texreg.Registry treats it like any
// in-process consumer.
type Engine struct {
	native uintptr
	closed atomic.Bool

	mu      sync.Mutex
	handles map[uint64]uintptr // texture id -> surface handle
}

var _ texreg.Engine = (*Engine)(nil)

// NewEngine creates an engine inside the native library. Load or
// LoadLibrary must have succeeded first.
func NewEngine() (*Engine, error) {
	if !IsLoaded() {
		return nil, ErrNotLoaded
	}
	h := engineCreate()
	if h == 0 {
		return nil, errors.New("ffi: native engine creation failed")
	}
	return &Engine{
		native:  h,
		handles: make(map[uint64]uintptr),
	}, nil
}

// RegisterTexture hands the surface to the native engine as an opaque
// handle paired with the acquire callback.
func (e *Engine) RegisterTexture(id uint64, s *texreg.Surface) {
	if !e.IsAttached() {
		texreg.Logger().Debug("ignoring texture registration; native engine detached", "id", id)
		return
	}

	sh := registerSurface(s)

	e.mu.Lock()
	e.handles[id] = sh
	e.mu.Unlock()

	if rc := registerTexture(e.native, id, sh, acquireCallback()); rc != 0 {
		texreg.Logger().Warn("native engine rejected texture", "id", id, "rc", rc)
		e.mu.Lock()
		delete(e.handles, id)
		e.mu.Unlock()
		unregisterSurface(sh)
	}
}

// MarkTextureFrameAvailable forwards the frame signal. Signals against
// a closed or detached engine are dropped.
func (e *Engine) MarkTextureFrameAvailable(id uint64) {
	if !e.IsAttached() {
		return
	}
	markFrameAvailable(e.native, id)
}

// UnregisterTexture drops the surface handle and, while the engine is
// attached, releases the native registration. Unknown ids are ignored.
func (e *Engine) UnregisterTexture(id uint64) {
	e.mu.Lock()
	sh, ok := e.handles[id]
	delete(e.handles, id)
	e.mu.Unlock()
	if ok {
		unregisterSurface(sh)
	}

	if !e.IsAttached() {
		texreg.Logger().Debug("skipping native unregister; engine detached", "id", id)
		return
	}
	unregisterTexture(e.native, id)
}

// IsAttached reports whether the engine is open and the native side
// still accepts work.
func (e *Engine) IsAttached() bool {
	if e.closed.Load() {
		return false
	}
	return isAttached(e.native) != 0
}

// Close destroys the native engine and drops all surface handles.
// Idempotent.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}

	e.mu.Lock()
	for id, sh := range e.handles {
		delete(e.handles, id)
		unregisterSurface(sh)
	}
	e.mu.Unlock()

	engineDestroy(e.native)
	return nil
}
