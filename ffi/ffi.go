//go:build !ios && !android && (amd64 || arm64)

// Package ffi bridges the texture registry to a native engine shared
// library using purego, without cgo.
//
// The native library implements the engine half of the registry
// contract behind a small C ABI:
//
//	uintptr_t texreg_engine_create(void);
//	void      texreg_engine_destroy(uintptr_t engine);
//	int32_t   texreg_register_texture(uintptr_t engine, uint64_t id,
//	              uintptr_t surface, uintptr_t acquire);
//	void      texreg_mark_frame_available(uintptr_t engine, uint64_t id);
//	void      texreg_unregister_texture(uintptr_t engine, uint64_t id);
//	int32_t   texreg_is_attached(uintptr_t engine);
//	uint32_t  texreg_version(void);  // optional
//
// Go surfaces cross the boundary as opaque handles; the native side
// pulls pixels back through an acquire callback (see acquireFrame for
// the buffer protocol). Native code never sees a Go pointer.
//
// Call Load or LoadLibrary once before creating engines. Engines built
// by this package satisfy texreg.Engine and are driven by a
// texreg.Registry like any in-process consumer.
package ffi

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/ebitengine/purego"
)

// ErrNotLoaded is returned when engine operations run before Load.
var ErrNotLoaded = errors.New("ffi: native engine library not loaded; call Load first")

// ErrLibraryNotFound is returned when no candidate library can be opened.
var ErrLibraryNotFound = errors.New("ffi: native engine library not found")

// ErrSymbolMissing is returned when a required symbol is absent from
// the loaded library. The wrapped message names the symbol.
var ErrSymbolMissing = errors.New("ffi: symbol missing")

var (
	libMu  sync.Mutex
	lib    uintptr
	loaded bool
)

// Function bindings, registered by Load.
var (
	engineCreate       func() uintptr
	engineDestroy      func(engine uintptr)
	registerTexture    func(engine uintptr, id uint64, surface uintptr, acquire uintptr) int32
	markFrameAvailable func(engine uintptr, id uint64)
	unregisterTexture  func(engine uintptr, id uint64)
	isAttached         func(engine uintptr) int32

	engineVersion func() uint32 // optional
)

// IsLoaded reports whether a native engine library has been loaded.
func IsLoaded() bool {
	libMu.Lock()
	defer libMu.Unlock()
	return loaded
}

// Load opens the shared library at path and registers the engine
// symbols. Safe to call multiple times; once a library has loaded,
// later calls are no-ops.
func Load(path string) error {
	libMu.Lock()
	defer libMu.Unlock()
	if loaded {
		return nil
	}
	h, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return fmt.Errorf("ffi: opening %s: %w", path, err)
	}
	if err := registerSymbols(h); err != nil {
		return err
	}
	lib = h
	loaded = true
	return nil
}

// LoadLibrary searches the platform library paths for the named engine
// library, trying the versioned name first and the unversioned name as
// a fallback. version 0 skips the versioned form.
func LoadLibrary(name string, version int) error {
	libMu.Lock()
	defer libMu.Unlock()
	if loaded {
		return nil
	}
	h, err := openLibrary(name, version)
	if err != nil {
		return err
	}
	if err := registerSymbols(h); err != nil {
		return err
	}
	lib = h
	loaded = true
	return nil
}

func openLibrary(name string, version int) (uintptr, error) {
	var candidates []string
	if version > 0 {
		candidates = append(candidates, FormatLibraryName(name, version))
	}
	candidates = append(candidates, FormatLibraryName(name, 0))

	for _, searchPath := range LibrarySearchPaths() {
		for _, libName := range candidates {
			if h, err := tryOpen(filepath.Join(searchPath, libName)); err == nil {
				return h, nil
			}
		}
	}
	// Fall back to bare names so the system loader can resolve them.
	for _, libName := range candidates {
		if h, err := tryOpen(libName); err == nil {
			return h, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrLibraryNotFound, name)
}

// tryOpen opens one candidate with RTLD_NOW | RTLD_GLOBAL. Global
// binding keeps the engine's own cross references resolvable.
func tryOpen(path string) (uintptr, error) {
	return purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
}

func registerSymbols(h uintptr) error {
	if err := registerLibFunc(&engineCreate, h, "texreg_engine_create"); err != nil {
		return err
	}
	if err := registerLibFunc(&engineDestroy, h, "texreg_engine_destroy"); err != nil {
		return err
	}
	if err := registerLibFunc(&registerTexture, h, "texreg_register_texture"); err != nil {
		return err
	}
	if err := registerLibFunc(&markFrameAvailable, h, "texreg_mark_frame_available"); err != nil {
		return err
	}
	if err := registerLibFunc(&unregisterTexture, h, "texreg_unregister_texture"); err != nil {
		return err
	}
	if err := registerLibFunc(&isAttached, h, "texreg_is_attached"); err != nil {
		return err
	}
	registerOptionalLibFunc(&engineVersion, h, "texreg_version")
	return nil
}

// registerLibFunc converts purego's panic on a missing symbol into an
// error naming it.
func registerLibFunc(fptr any, handle uintptr, name string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s", ErrSymbolMissing, name)
		}
	}()
	purego.RegisterLibFunc(fptr, handle, name)
	return nil
}

func registerOptionalLibFunc(fptr any, handle uintptr, name string) {
	defer func() { _ = recover() }()
	purego.RegisterLibFunc(fptr, handle, name)
}

// Version returns the native engine version, or 0 when the library is
// not loaded or does not export texreg_version.
func Version() uint32 {
	libMu.Lock()
	defer libMu.Unlock()
	if !loaded || engineVersion == nil {
		return 0
	}
	return engineVersion()
}
