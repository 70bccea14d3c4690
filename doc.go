// Package texreg manages the lifecycle of externally produced textures
// shared with a rendering engine.
//
// # Overview
//
// texreg sits between producer code (camera pipelines, video decoders,
// anything that generates pixel data off the render path) and a consumer
// engine that composites those pixels. The Registry allocates a
// process-unique id for every texture, binds it to a Surface producers
// write frames into, registers the pair with the engine before the
// handle is ever visible, and forwards frame-availability signals by id.
// Release unregisters the id exactly once; handles that are dropped
// without Release are caught by a finalizer safety net that schedules
// the unregister on the engine's dispatch queue.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/texreg"
//	    "github.com/gogpu/texreg/backend"
//	    "github.com/gogpu/texreg/dispatch"
//	)
//
//	engine := backend.MustDefault()
//	queue := dispatch.New(0)
//	defer queue.Close()
//
//	reg := texreg.NewRegistry(engine, queue)
//	defer reg.Close()
//
//	entry := reg.CreateTexture()
//	defer entry.Release()
//
//	// Produce a frame.
//	pm, _ := entry.Surface().BeginFrame(640, 480)
//	fillFrame(pm)
//	entry.Surface().Publish()
//
// # Architecture
//
// The library is organized into:
//   - Public API: Registry, TextureEntry, Surface, Pixmap, Renderer
//   - Engines: backend (selection), gpu (wgpu/hal), gogpuengine
//     (gpucontext adapter), ffi (native engines via purego)
//   - dispatch: the serial queue engines expect their bookkeeping on
//
// # Lifecycle
//
// Texture ids are monotonically assigned starting at 0 and never reused
// within a registry lifetime. Registration happens synchronously inside
// CreateTexture, so the engine sees an id before any frame signal can
// mention it. Release is idempotent; a racing frame signal that slips
// past an in-progress Release is suppressed by the entry's released
// flag, and engines must tolerate redundant signals regardless.
package texreg

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0-alpha.1"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0

	// VersionPrerelease is the prerelease identifier
	VersionPrerelease = "alpha.1"
)
