package voxel

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-voxel/engine/renderer/device/devicetest"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMipLevelCount(t *testing.T) {
	tests := []struct {
		name    string
		w, h, d uint32
		want    uint32
	}{
		{"cube 512", 512, 512, 512, 10},
		{"single texel", 1, 1, 1, 1},
		{"non power of two", 300, 20, 7, 9},
		{"largest axis wins", 4, 64, 2, 7},
		{"empty", 0, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MipLevelCount(tt.w, tt.h, tt.d))
		})
	}
}

func TestNewVolume_Texture(t *testing.T) {
	dev := devicetest.New()
	v, err := NewVolume(dev, Cube(DefaultResolution))
	require.NoError(t, err)

	assert.Equal(t, Cube(512), v.Size())
	assert.Equal(t, uint32(10), v.MipLevelCount())

	rec := dev.TextureFor(v.Texture())
	require.NotNil(t, rec)
	assert.Equal(t, wgpu.TextureDimension3D, rec.Desc.Dimension)
	assert.Equal(t, wgpu.TextureFormatRGBA16Float, rec.Desc.Format)
	assert.Equal(t, wgpu.TextureUsageStorageBinding|wgpu.TextureUsageTextureBinding, rec.Desc.Usage)
	assert.Equal(t, wgpu.Extent3D{Width: 512, Height: 512, DepthOrArrayLayers: 512}, rec.Desc.Size)
	assert.Equal(t, uint32(10), rec.Desc.MipLevelCount)
}

func TestNewVolume_Views(t *testing.T) {
	dev := devicetest.New()
	v, err := NewVolume(dev, Cube(64))
	require.NoError(t, err)

	for level := range v.MipLevelCount() {
		rec, ok := dev.ViewFor(v.LevelView(level))
		require.True(t, ok)
		require.NotNil(t, rec.Desc)
		assert.Same(t, v.Texture(), rec.Texture)
		assert.Equal(t, level, rec.Desc.BaseMipLevel)
		assert.Equal(t, uint32(1), rec.Desc.MipLevelCount)
		assert.Equal(t, wgpu.TextureViewDimension3D, rec.Desc.Dimension)
	}
	assert.Nil(t, v.LevelView(v.MipLevelCount()))

	full, ok := dev.ViewFor(v.View())
	require.True(t, ok)
	assert.Equal(t, uint32(0), full.Desc.BaseMipLevel)
	assert.Equal(t, v.MipLevelCount(), full.Desc.MipLevelCount)

	require.Len(t, dev.Samplers, 1)
	samp := dev.Samplers[0].Desc
	assert.Equal(t, wgpu.AddressModeRepeat, samp.AddressModeW)
	assert.Equal(t, wgpu.FilterModeLinear, samp.MinFilter)
	assert.Equal(t, float32(7), samp.LodMaxClamp)
}

func TestNewVolume_MipBindGroups(t *testing.T) {
	dev := devicetest.New()
	v, err := NewVolume(dev, Cube(16))
	require.NoError(t, err)

	require.Len(t, dev.ComputePipelines, 4)
	require.Len(t, dev.BindGroups, 4)
	require.Len(t, dev.BindGroupLayouts, 1)

	layout := dev.BindGroupLayouts[0].Desc
	require.Len(t, layout.Entries, 2)
	assert.Equal(t, wgpu.ShaderStageCompute, layout.Entries[0].Visibility)
	assert.Equal(t, wgpu.TextureSampleTypeFloat, layout.Entries[0].Texture.SampleType)
	assert.Equal(t, wgpu.TextureViewDimension3D, layout.Entries[0].Texture.ViewDimension)
	assert.Equal(t, wgpu.StorageTextureAccessWriteOnly, layout.Entries[1].StorageTexture.Access)
	assert.Equal(t, Format, layout.Entries[1].StorageTexture.Format)

	for i, g := range dev.BindGroups {
		require.Len(t, g.Desc.Entries, 2)
		assert.Same(t, v.LevelView(uint32(i)), g.Desc.Entries[0].TextureView)
		assert.Same(t, v.LevelView(uint32(i+1)), g.Desc.Entries[1].TextureView)
	}
	assert.Equal(t, "comp_main", dev.ComputePipelines[0].Desc.Compute.EntryPoint)
}

func TestGenerateMips_DispatchOrder(t *testing.T) {
	dev := devicetest.New()
	v, err := NewVolume(dev, Cube(DefaultResolution))
	require.NoError(t, err)

	cmds, err := dev.NewCommands("mips")
	require.NoError(t, err)
	cp := cmds.BeginComputePass("mip")
	v.GenerateMips(cp)
	cp.End()
	require.NoError(t, cmds.Submit())

	passes := dev.Passes()
	require.Len(t, passes, 1)
	pass := passes[0]
	assert.True(t, pass.Compute)

	dispatches := pass.Filter(devicetest.OpDispatch)
	require.Len(t, dispatches, 9)
	for _, d := range dispatches {
		assert.Equal(t, [3]uint32{1, 1, 1}, [3]uint32{d.X, d.Y, d.Z})
	}

	pipelines := pass.Filter(devicetest.OpSetComputePipeline)
	groups := pass.Filter(devicetest.OpSetBindGroup)
	require.Len(t, pipelines, 9)
	require.Len(t, groups, 9)
	for i := range 9 {
		assert.Same(t, dev.ComputePipelines[i].Handle, pipelines[i].ComputePipeline)
		assert.Same(t, dev.BindGroups[i].Handle, groups[i].Group)
		assert.Equal(t, uint32(0), groups[i].Slot)
	}
}

func TestNewVolume_NonCubicExtent(t *testing.T) {
	dev := devicetest.New()
	size := wgpu.Extent3D{Width: 128, Height: 32, DepthOrArrayLayers: 64}
	v, err := NewVolume(dev, size)
	require.NoError(t, err)

	assert.Equal(t, size, v.Size())
	assert.Equal(t, uint32(8), v.MipLevelCount())

	rec := dev.TextureFor(v.Texture())
	require.NotNil(t, rec)
	assert.Equal(t, size, rec.Desc.Size)
	assert.Equal(t, uint32(8), rec.Desc.MipLevelCount)
	assert.Len(t, dev.ComputePipelines, 7)
}

func TestNewVolume_SingleLevelHasNoChain(t *testing.T) {
	dev := devicetest.New()
	v, err := NewVolume(dev, Cube(1))
	require.NoError(t, err)

	assert.Equal(t, uint32(1), v.MipLevelCount())
	assert.Empty(t, dev.ComputePipelines)
}

func TestNewVolume_Errors(t *testing.T) {
	_, err := NewVolume(devicetest.New(), Cube(0))
	assert.ErrorIs(t, err, ErrInvalidResolution)
	_, err = NewVolume(devicetest.New(), wgpu.Extent3D{Width: 8, Height: 8})
	assert.ErrorIs(t, err, ErrInvalidResolution)

	dev := devicetest.New()
	boom := errors.New("boom")
	dev.Fail["CreateComputePipeline"] = boom
	_, err = NewVolume(dev, Cube(8), WithLabel("Probe"))
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "Probe mip chain")
}
