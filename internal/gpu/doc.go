//go:build !nogpu

// Package gpu implements a texture engine on the wgpu hardware
// abstraction layer.
//
// The engine keeps one HAL texture per registered surface. Frame
// signals only mark a slot dirty; the actual pixel transfer happens in
// Flush, which acquires each dirty frame and uploads it with
// queue.WriteTexture. Texture storage is RGBA8Unorm with CopyDst and
// TextureBinding usage, so hosts can sample the uploaded frames
// directly, typically through the embedded present shader.
//
// Device ownership is explicit: New brings up a standalone Vulkan
// device and destroys it on Close, while NewWithDevice and
// SetDeviceProvider adopt a shared device that the engine never
// destroys.
package gpu
