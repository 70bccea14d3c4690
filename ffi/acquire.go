//go:build !ios && !android && (amd64 || arm64)

package ffi

import (
	"encoding/binary"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"

	"github.com/gogpu/texreg"
)

// acquireHeaderSize is the byte count of the frame header: width and
// height as uint32, little-endian (every supported architecture is
// little-endian), followed by tightly packed RGBA rows.
const acquireHeaderSize = 8

// acquireBadHandle is returned for a handle the bridge does not know.
const acquireBadHandle = -1

// The callback is created once and shared by every engine; purego
// limits how many callbacks a process may create.
var (
	acquireOnce sync.Once
	acquirePtr  uintptr
)

var acquireScratch = texreg.NewPixmapPool()

// acquireFrame copies the surface's latest published frame into dst.
// It returns the byte count the frame needs; pixels were written only
// when that count fits cap. No published frame returns 0, an unknown
// handle returns -1. The native side calls it as
//
//	int64_t acquire(uintptr_t surface, uint8_t *dst, int64_t cap);
//
// typically once with cap 0 to size the buffer and again to fill it.
func acquireFrame(handle uintptr, dst *byte, capacity int64) int64 {
	s := lookupSurface(handle)
	if s == nil {
		return acquireBadHandle
	}

	pm := acquireScratch.Get(0, 0)
	defer acquireScratch.Put(pm)

	if _, ok := s.AcquireFrame(pm); !ok {
		return 0
	}

	required := int64(acquireHeaderSize + len(pm.Data()))
	if dst == nil || capacity < required {
		return required
	}

	buf := unsafe.Slice(dst, required)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(pm.Width()))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(pm.Height()))
	copy(buf[acquireHeaderSize:], pm.Data())
	return required
}

// acquireCallback returns the C-callable trampoline for acquireFrame.
func acquireCallback() uintptr {
	acquireOnce.Do(func() {
		acquirePtr = purego.NewCallback(acquireFrame)
	})
	return acquirePtr
}
