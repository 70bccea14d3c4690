// Package gogpuengine adapts a running gogpu application as a texture
// engine.
//
// Hosts that already own a GPU device and a draw context plug both into
// New; registered surfaces then upload through the host's texture
// creator and draw into the host's target every Flush. Unlike the
// standalone engine in internal/gpu, this package never creates a
// device of its own.
//
// The engine registers itself with the backend registry under the name
// "gogpu" once a default host has been configured:
//
//	gogpuengine.SetDefaultHost(provider, gogpuengine.WrapTextureDrawer(dc))
//	engine, err := backend.New(backend.EngineGoGPU)
package gogpuengine
