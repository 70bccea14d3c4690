// Package backend provides a pluggable compositing engine registry.
//
// The backend package allows texreg to support multiple engine
// implementations behind a single selection point. The software engine
// is always available; GPU engines register themselves when their
// packages are imported and a usable device exists.
//
// # Engine Registration
//
// Engines are registered via init() functions and selected at runtime.
// The software engine is automatically registered on import:
//
//	import _ "github.com/gogpu/texreg/backend"
//
// GPU engines are opt-in:
//
//	import _ "github.com/gogpu/texreg/gpu"       // wgpu/hal compute compositor
//	import _ "github.com/gogpu/texreg/gogpuengine" // gpucontext adapter
//
// # Engine Selection
//
// Use Default() for the best available engine, or New() to request a
// specific engine by name:
//
//	// Best available: gpu > gogpu > software.
//	engine, err := backend.Default()
//
//	// Or a specific engine.
//	engine, err := backend.New(backend.EngineSoftware)
//
// Factories may fail; a GPU engine on a machine without a usable
// device reports why, and Default() falls through to the next
// candidate.
//
// # Usage with a Registry
//
// Engines implement texreg.Engine and plug straight into a registry:
//
//	engine := backend.MustDefault()
//	queue := dispatch.New(0)
//	defer queue.Close()
//
//	reg := texreg.NewRegistry(engine, queue)
//	defer reg.Close()
//
// # Available Engines
//
// - "software": CPU compositor over shared pixmaps (always available)
// - "gpu": compute compositor via gogpu/wgpu hal (requires a device)
// - "gogpu": adapter publishing textures to a gpucontext host
package backend
