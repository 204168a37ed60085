// Package voxel owns the 3D radiance volume the voxelization pass writes and the compute
// chain that reduces it into a full mip pyramid for cone tracing.
package voxel

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"math/bits"
	"sync"

	"github.com/Carmen-Shannon/oxy-voxel/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-voxel/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

//go:embed assets/mipmap_3d.wgsl
var MipmapSource string

const (
	// DefaultResolution is the edge length of the volume in texels.
	DefaultResolution = 512
	// Format is the texel format of every level.
	Format = wgpu.TextureFormatRGBA16Float
)

// ErrInvalidResolution is returned when any axis of the volume extent is zero.
var ErrInvalidResolution = errors.New("voxel volume extent must be positive on every axis")

var mipShader = sync.OnceValue(func() shader.Shader {
	return shader.MustNew("mipmap_3d", MipmapSource)
})

// MipLevelCount returns floor(log2(max(w, h, d))) + 1, the length of a full mip chain.
// A zero extent has no levels.
func MipLevelCount(w, h, d uint32) uint32 {
	return uint32(bits.Len32(max(w, h, d)))
}

// Cube returns the extent of a cubic volume with edge length n.
func Cube(n uint32) wgpu.Extent3D {
	return wgpu.Extent3D{Width: n, Height: n, DepthOrArrayLayers: n}
}

type volume struct {
	label     string
	logger    *slog.Logger
	size      wgpu.Extent3D
	mipLevels uint32

	texture    *wgpu.Texture
	levelViews []*wgpu.TextureView
	view       *wgpu.TextureView
	sampler    *wgpu.Sampler

	pipelines  []*wgpu.ComputePipeline
	bindGroups []*wgpu.BindGroup
}

// Volume is an Rgba16Float 3D texture with a complete mip chain and the compute
// pipelines that rebuild levels 1..N-1 from level 0.
type Volume interface {
	// Size returns the extent of level 0.
	Size() wgpu.Extent3D

	// MipLevelCount returns the number of levels in the chain.
	MipLevelCount() uint32

	// Texture returns the underlying 3D texture.
	Texture() *wgpu.Texture

	// LevelView returns a single-level view, used as the storage target of a write.
	// It returns nil for a level outside the chain.
	LevelView(level uint32) *wgpu.TextureView

	// View returns the full-chain view sampled by the lighting pass.
	View() *wgpu.TextureView

	// Sampler returns the trilinear repeat sampler matching View.
	Sampler() *wgpu.Sampler

	// GenerateMips records one dispatch per level pair into cp, reading level i and
	// writing level i+1, in increasing level order. cp must already be open.
	GenerateMips(cp device.ComputePass)
}

var _ Volume = &volume{}

// NewVolume allocates the volume texture, its views and sampler, and the N-1 mip pipelines
// with one bind group per level pair. N follows the largest axis of size.
//
// Parameters:
//   - dev: the device to allocate on
//   - size: the extent of level 0, see Cube for the usual case
//   - options: builder options
//
// Returns:
//   - Volume: the allocated volume
//   - error: ErrInvalidResolution or a device error
func NewVolume(dev device.Device, size wgpu.Extent3D, options ...VolumeBuilderOption) (Volume, error) {
	if size.Width == 0 || size.Height == 0 || size.DepthOrArrayLayers == 0 {
		return nil, ErrInvalidResolution
	}
	v := &volume{
		label:     "Voxel Volume",
		logger:    slog.Default(),
		size:      size,
		mipLevels: MipLevelCount(size.Width, size.Height, size.DepthOrArrayLayers),
	}
	for _, opt := range options {
		opt(v)
	}

	if err := v.initTexture(dev); err != nil {
		return nil, fmt.Errorf("%s: %w", v.label, err)
	}
	if err := v.initMipChain(dev); err != nil {
		return nil, fmt.Errorf("%s mip chain: %w", v.label, err)
	}

	v.logger.Debug("voxel volume created", "label", v.label,
		"width", size.Width, "height", size.Height, "depth", size.DepthOrArrayLayers, "mip_levels", v.mipLevels)
	return v, nil
}

func (v *volume) initTexture(dev device.Device) error {
	tex, err := dev.CreateTexture(&wgpu.TextureDescriptor{
		Label:         v.label + " Texture",
		Usage:         wgpu.TextureUsageStorageBinding | wgpu.TextureUsageTextureBinding,
		Dimension:     wgpu.TextureDimension3D,
		Size:          v.size,
		Format:        Format,
		MipLevelCount: v.mipLevels,
		SampleCount:   1,
	})
	if err != nil {
		return err
	}
	v.texture = tex

	v.levelViews = make([]*wgpu.TextureView, v.mipLevels)
	for level := range v.mipLevels {
		view, err := dev.CreateTextureView(tex, v.viewDescriptor(fmt.Sprintf("%s Level %d", v.label, level), level, 1))
		if err != nil {
			return fmt.Errorf("level %d view: %w", level, err)
		}
		v.levelViews[level] = view
	}

	v.view, err = dev.CreateTextureView(tex, v.viewDescriptor(v.label+" View", 0, v.mipLevels))
	if err != nil {
		return fmt.Errorf("view: %w", err)
	}

	v.sampler, err = dev.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         v.label + " Sampler",
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeRepeat,
		AddressModeW:  wgpu.AddressModeRepeat,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMaxClamp:   float32(v.mipLevels),
		MaxAnisotropy: 1,
	})
	if err != nil {
		return fmt.Errorf("sampler: %w", err)
	}
	return nil
}

func (v *volume) viewDescriptor(label string, base, count uint32) *wgpu.TextureViewDescriptor {
	return &wgpu.TextureViewDescriptor{
		Label:           label,
		Format:          Format,
		Dimension:       wgpu.TextureViewDimension3D,
		BaseMipLevel:    base,
		MipLevelCount:   count,
		BaseArrayLayer:  0,
		ArrayLayerCount: 1,
		Aspect:          wgpu.TextureAspectAll,
	}
}

func (v *volume) initMipChain(dev device.Device) error {
	if v.mipLevels < 2 {
		return nil
	}
	s := mipShader()
	layoutDesc, ok := s.BindGroupLayoutDescriptor(0)
	if !ok {
		return fmt.Errorf("shader %s declares no group 0", s.Key())
	}
	layoutDesc.Label = v.label + " Mip Bind Group Layout"

	module, err := dev.CreateShaderModule(s.Key(), s.Source())
	if err != nil {
		return err
	}
	bgl, err := dev.CreateBindGroupLayout(&layoutDesc)
	if err != nil {
		return err
	}
	layout, err := dev.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            v.label + " Mip Pipeline Layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{bgl},
	})
	if err != nil {
		return err
	}

	pairs := v.mipLevels - 1
	v.pipelines = make([]*wgpu.ComputePipeline, 0, pairs)
	v.bindGroups = make([]*wgpu.BindGroup, 0, pairs)
	for i := range pairs {
		p, err := dev.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
			Label:  fmt.Sprintf("%s Mip Pipeline %d", v.label, i+1),
			Layout: layout,
			Compute: wgpu.ProgrammableStageDescriptor{
				Module:     module,
				EntryPoint: s.EntryPoint(shader.ShaderTypeCompute),
			},
		})
		if err != nil {
			return fmt.Errorf("level %d pipeline: %w", i+1, err)
		}
		bg, err := dev.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  fmt.Sprintf("%s Mip Bind Group %d", v.label, i+1),
			Layout: bgl,
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, TextureView: v.levelViews[i]},
				{Binding: 1, TextureView: v.levelViews[i+1]},
			},
		})
		if err != nil {
			return fmt.Errorf("level %d bind group: %w", i+1, err)
		}
		v.pipelines = append(v.pipelines, p)
		v.bindGroups = append(v.bindGroups, bg)
	}
	return nil
}

func (v *volume) Size() wgpu.Extent3D {
	return v.size
}

func (v *volume) MipLevelCount() uint32 {
	return v.mipLevels
}

func (v *volume) Texture() *wgpu.Texture {
	return v.texture
}

func (v *volume) LevelView(level uint32) *wgpu.TextureView {
	if level >= uint32(len(v.levelViews)) {
		return nil
	}
	return v.levelViews[level]
}

func (v *volume) View() *wgpu.TextureView {
	return v.view
}

func (v *volume) Sampler() *wgpu.Sampler {
	return v.sampler
}

func (v *volume) GenerateMips(cp device.ComputePass) {
	for i := range v.pipelines {
		cp.SetPipeline(v.pipelines[i])
		cp.SetBindGroup(0, v.bindGroups[i])
		cp.DispatchWorkgroups(1, 1, 1)
	}
}
