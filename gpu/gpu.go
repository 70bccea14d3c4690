//go:build !nogpu

// Package gpu registers the wgpu texture engine with the backend
// registry.
//
// Import this package to make the hardware engine selectable by name
// and eligible for backend.Default:
//
//	import _ "github.com/gogpu/texreg/gpu"
//
// Engine construction fails when no Vulkan adapter is available;
// backend.Default then falls back to the next engine in priority
// order, so the import is safe on machines without a GPU.
package gpu

import (
	"sync"

	"github.com/gogpu/texreg"
	"github.com/gogpu/texreg/backend"
	gpuimpl "github.com/gogpu/texreg/internal/gpu"
)

func init() {
	backend.Register(backend.EngineGPU, newEngine)
}

var (
	mu sync.Mutex

	// provider, when set, is adopted by every engine the factory
	// creates instead of standalone Vulkan bring-up.
	provider any

	// current is the most recently created engine, the target for
	// provider switches after creation.
	current *gpuimpl.Engine
)

func newEngine() (texreg.Engine, error) {
	mu.Lock()
	defer mu.Unlock()

	var (
		e   *gpuimpl.Engine
		err error
	)
	if provider != nil {
		e, err = gpuimpl.NewFromProvider(provider)
	} else {
		e, err = gpuimpl.New()
	}
	if err != nil {
		return nil, err
	}
	current = e
	return e, nil
}

// SetDeviceProvider configures the engine to use a shared GPU device
// from an external provider (e.g., a gogpu host). The provider must
// expose HalDevice() any and HalQueue() any returning wgpu HAL types.
//
// An already-created engine switches immediately; engines created
// afterwards adopt the provider at construction.
func SetDeviceProvider(p any) error {
	mu.Lock()
	defer mu.Unlock()

	if current != nil {
		if err := current.SetDeviceProvider(p); err != nil {
			return err
		}
	}
	provider = p
	return nil
}
