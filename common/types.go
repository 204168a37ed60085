// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// TextureStagingData holds a decoded RGBA8 image pending GPU upload.
// The asset layer produces one of these per glTF image; the texture package uploads it.
type TextureStagingData struct {
	// Pixels is the tightly packed RGBA pixel data, 4 bytes per pixel, row-major.
	Pixels []byte
	// Width is the width of the image in pixels.
	Width uint32
	// Height is the height of the image in pixels.
	Height uint32
}

// Valid reports whether the pixel slice matches the declared extent.
func (t TextureStagingData) Valid() bool {
	return t.Width > 0 && t.Height > 0 && len(t.Pixels) == int(t.Width*t.Height*4)
}

// SamplerStagingData holds the configuration for a sampler pending GPU creation.
// Start from DefaultSamplerStagingData: several wgpu enums use zero for a valid mode, so a
// zero-valued struct means nearest filtering.
type SamplerStagingData struct {
	// AddressModeU, AddressModeV, AddressModeW specify the addressing mode for texture coordinates outside the [0, 1] range in each dimension (U, V, W).
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	// MagFilter and MinFilter specify the filtering mode for magnification and minification.
	MagFilter, MinFilter wgpu.FilterMode
	// MipmapFilter specifies the filtering mode for mipmap level selection.
	MipmapFilter wgpu.MipmapFilterMode
	// LodMinClamp and LodMaxClamp specify the minimum and maximum level of detail (LOD) for mipmapping.
	LodMinClamp, LodMaxClamp float32
	// Compare specifies the comparison function for comparison samplers, used in shadow mapping.
	Compare wgpu.CompareFunction
	// MaxAnisotropy specifies the maximum anisotropy level for anisotropic filtering.
	MaxAnisotropy uint16
}

// DefaultSamplerStagingData returns the glTF default sampler: linear filtering and repeat
// addressing on every axis.
func DefaultSamplerStagingData() SamplerStagingData {
	return SamplerStagingData{
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeRepeat,
		AddressModeW:  wgpu.AddressModeRepeat,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	}
}

// SamplerDescriptor converts the staging data into a wgpu sampler descriptor.
//
// Parameters:
//   - label: debug label for the sampler
//
// Returns:
//   - *wgpu.SamplerDescriptor: the descriptor ready for device.CreateSampler
func (s SamplerStagingData) SamplerDescriptor(label string) *wgpu.SamplerDescriptor {
	return &wgpu.SamplerDescriptor{
		Label:         label,
		AddressModeU:  s.AddressModeU,
		AddressModeV:  s.AddressModeV,
		AddressModeW:  s.AddressModeW,
		MagFilter:     s.MagFilter,
		MinFilter:     s.MinFilter,
		MipmapFilter:  s.MipmapFilter,
		LodMinClamp:   s.LodMinClamp,
		LodMaxClamp:   Coalesce(s.LodMaxClamp, 32.0),
		MaxAnisotropy: Coalesce(s.MaxAnisotropy, 1),
		Compare:       s.Compare,
	}
}
