//go:build !ios && !android && (amd64 || arm64)

package ffi

import (
	"sync"

	"github.com/gogpu/texreg"
)

// Surfaces cross the FFI boundary as opaque uintptr handles. Native
// code must never hold a Go pointer, so the bridge keeps the real
// surfaces here and hands out table keys instead.
var (
	handleMu   sync.RWMutex
	surfaces   = make(map[uintptr]*texreg.Surface)
	nextHandle uintptr = 1
)

// registerSurface stores a surface and returns its handle. Handles are
// never reused.
func registerSurface(s *texreg.Surface) uintptr {
	handleMu.Lock()
	defer handleMu.Unlock()
	h := nextHandle
	nextHandle++
	surfaces[h] = s
	return h
}

// lookupSurface resolves a handle; nil when unknown.
func lookupSurface(h uintptr) *texreg.Surface {
	handleMu.RLock()
	defer handleMu.RUnlock()
	return surfaces[h]
}

// unregisterSurface drops a handle so the surface can be collected.
func unregisterSurface(h uintptr) {
	handleMu.Lock()
	defer handleMu.Unlock()
	delete(surfaces, h)
}

// surfaceHandleCount returns the number of live handles.
func surfaceHandleCount() int {
	handleMu.RLock()
	defer handleMu.RUnlock()
	return len(surfaces)
}
