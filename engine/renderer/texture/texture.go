// Package texture creates the 2D textures the renderer samples: uploaded material images, the
// 1x1 fallbacks used when a material omits a map, and depth attachments with comparison samplers.
package texture

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-voxel/common"
	"github.com/Carmen-Shannon/oxy-voxel/engine/renderer/device"
	"github.com/cogentcore/webgpu/wgpu"
)

// DepthFormat is the format of every depth attachment the renderer creates.
const DepthFormat = wgpu.TextureFormatDepth32Float

// Texture bundles a GPU texture with the view and sampler a shader binds.
type Texture struct {
	Label   string
	Texture *wgpu.Texture
	View    *wgpu.TextureView
	Sampler *wgpu.Sampler
	Format  wgpu.TextureFormat
	Width   uint32
	Height  uint32
}

// FromImage uploads RGBA8 pixels into a new 2D texture and creates its view and sampler.
// Color data (base color maps) should use srgb = true so sampling returns linear values; data maps
// such as normals and metallic-roughness must stay linear.
//
// Parameters:
//   - dev: the device to allocate on
//   - label: debug label
//   - img: the decoded pixels
//   - sampler: sampler settings, usually from the material's glTF sampler
//   - srgb: whether the image holds sRGB-encoded color
//
// Returns:
//   - *Texture: the uploaded texture
//   - error: error if the image is malformed or an allocation fails
func FromImage(dev device.Device, label string, img common.TextureStagingData, sampler common.SamplerStagingData, srgb bool) (*Texture, error) {
	if !img.Valid() {
		return nil, fmt.Errorf("texture %q: %d bytes do not match %dx%d RGBA", label, len(img.Pixels), img.Width, img.Height)
	}

	format := wgpu.TextureFormatRGBA8Unorm
	if srgb {
		format = wgpu.TextureFormatRGBA8UnormSrgb
	}

	tex, err := dev.CreateTexture(&wgpu.TextureDescriptor{
		Label:     label + " Texture",
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              img.Width,
			Height:             img.Height,
			DepthOrArrayLayers: 1,
		},
		Format:        format,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("texture %q: %w", label, err)
	}

	if err := dev.WriteTexture(tex, img.Pixels, img.Width, img.Height); err != nil {
		return nil, fmt.Errorf("texture %q: %w", label, err)
	}

	view, err := dev.CreateTextureView(tex, nil)
	if err != nil {
		return nil, fmt.Errorf("texture %q view: %w", label, err)
	}

	samp, err := dev.CreateSampler(sampler.SamplerDescriptor(label + " Sampler"))
	if err != nil {
		return nil, fmt.Errorf("texture %q sampler: %w", label, err)
	}

	return &Texture{
		Label:   label,
		Texture: tex,
		View:    view,
		Sampler: samp,
		Format:  format,
		Width:   img.Width,
		Height:  img.Height,
	}, nil
}

// Defaults holds the fallbacks bound when a material leaves a texture slot empty.
type Defaults struct {
	// White is opaque white, used for base color and metallic-roughness.
	White *Texture
	// FlatNormal encodes the tangent-space normal (0, 0, 1).
	FlatNormal *Texture
}

var (
	whitePixel      = []byte{255, 255, 255, 255}
	flatNormalPixel = []byte{128, 128, 255, 255}
)

// NewDefaults uploads the 1x1 fallback textures.
func NewDefaults(dev device.Device) (*Defaults, error) {
	white, err := FromImage(dev, "Default White",
		common.TextureStagingData{Pixels: whitePixel, Width: 1, Height: 1},
		common.DefaultSamplerStagingData(), false)
	if err != nil {
		return nil, err
	}
	normal, err := FromImage(dev, "Default Normal",
		common.TextureStagingData{Pixels: flatNormalPixel, Width: 1, Height: 1},
		common.DefaultSamplerStagingData(), false)
	if err != nil {
		return nil, err
	}
	return &Defaults{White: white, FlatNormal: normal}, nil
}

// NewDepth creates a Depth32Float attachment that can also be sampled, plus a comparison sampler
// using compare.
//
// Parameters:
//   - dev: the device to allocate on
//   - label: debug label
//   - width, height: attachment size in pixels
//   - compare: the comparison function of the sampler
//
// Returns:
//   - *Texture: the depth texture
//   - error: error if an allocation fails
func NewDepth(dev device.Device, label string, width, height uint32, compare wgpu.CompareFunction) (*Texture, error) {
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("depth texture %q: zero extent %dx%d", label, width, height)
	}

	tex, err := dev.CreateTexture(&wgpu.TextureDescriptor{
		Label: label + " Texture",
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        DepthFormat,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create depth texture %q: %w", label, err)
	}

	view, err := dev.CreateTextureView(tex, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create depth texture view %q: %w", label, err)
	}

	samp, err := dev.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         label + " Comparison Sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMaxClamp:   100,
		Compare:       compare,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create comparison sampler %q: %w", label, err)
	}

	return &Texture{
		Label:   label,
		Texture: tex,
		View:    view,
		Sampler: samp,
		Format:  DepthFormat,
		Width:   width,
		Height:  height,
	}, nil
}
