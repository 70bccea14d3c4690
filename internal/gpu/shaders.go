//go:build !nogpu

package gpu

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// Embedded WGSL shader sources.

//go:embed shaders/present.wgsl
var presentShaderSource string

// compileShaderToSPIRV compiles WGSL source to a SPIR-V uint32 slice.
func compileShaderToSPIRV(wgslSource string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgslSource)
	if err != nil {
		return nil, fmt.Errorf("compile shader: %w", err)
	}

	// SPIR-V is little-endian 32-bit words.
	spirvCode := make([]uint32, len(spirvBytes)/4)
	for i := range spirvCode {
		spirvCode[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}

	return spirvCode, nil
}

// createPresentShader compiles the embedded present shader and creates
// a module on the given device. Hosts that draw registered textures
// bind this module for the fullscreen blit.
func createPresentShader(device hal.Device) (hal.ShaderModule, error) {
	spirvCode, err := compileShaderToSPIRV(presentShaderSource)
	if err != nil {
		return nil, err
	}
	module, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label: "texreg_present",
		Source: hal.ShaderSource{
			SPIRV: spirvCode,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create present shader module: %w", err)
	}
	return module, nil
}

// PresentShaderSource returns the WGSL source for the present shader.
func PresentShaderSource() string {
	return presentShaderSource
}
