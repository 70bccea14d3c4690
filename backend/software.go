package backend

import (
	"github.com/gogpu/texreg"
)

// Engine name constants.
const (
	// EngineSoftware is the name of the CPU compositor (always available).
	EngineSoftware = "software"
	// EngineGPU is the name of the compute compositor (gogpu/wgpu hal).
	EngineGPU = "gpu"
	// EngineGoGPU is the name of the gpucontext adapter engine.
	EngineGoGPU = "gogpu"
)

// init registers the software engine on package import.
func init() {
	Register(EngineSoftware, func() (texreg.Engine, error) {
		return texreg.NewSoftwareEngine(), nil
	})
}
