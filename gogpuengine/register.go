package gogpuengine

import (
	"fmt"
	"sync"

	"github.com/gogpu/texreg"
	"github.com/gogpu/texreg/backend"
)

var (
	defaultMu       sync.Mutex
	defaultProvider DeviceHandle
	defaultHost     Host
)

// SetDefaultHost configures the provider and host the backend factory
// builds engines from. Call it once the gogpu application is up,
// before selecting the "gogpu" backend.
func SetDefaultHost(provider DeviceHandle, host Host) {
	defaultMu.Lock()
	defaultProvider = provider
	defaultHost = host
	defaultMu.Unlock()
}

func init() {
	backend.Register(backend.EngineGoGPU, func() (texreg.Engine, error) {
		defaultMu.Lock()
		provider, host := defaultProvider, defaultHost
		defaultMu.Unlock()

		if provider == nil || host == nil {
			return nil, fmt.Errorf("gogpuengine: no default host configured: %w", backend.ErrEngineNotAvailable)
		}
		return New(provider, host)
	})
}
