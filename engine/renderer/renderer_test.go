package renderer

import (
	"encoding/binary"
	"testing"

	"github.com/Carmen-Shannon/oxy-voxel/engine/light"
	"github.com/Carmen-Shannon/oxy-voxel/engine/renderer/device/devicetest"
	"github.com/Carmen-Shannon/oxy-voxel/engine/scene/scenetest"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRenderer(t *testing.T, options ...RendererBuilderOption) (*renderer, *devicetest.Device) {
	t.Helper()
	sc, dev := scenetest.Quad()
	opts := append([]RendererBuilderOption{
		WithVoxelResolution(8),
		WithShadowMapSize(16),
		WithSize(64, 32),
	}, options...)
	r, err := NewRenderer(dev, sc, opts...)
	require.NoError(t, err)
	return r.(*renderer), dev
}

func passLabels(s *devicetest.Submission) []string {
	labels := make([]string, len(s.Passes))
	for i, p := range s.Passes {
		labels[i] = p.Label
	}
	return labels
}

var fullFrame = []string{"Shadow Pass", "Voxelization Pass", "Voxel Mip Pass", "Main Pass"}

func TestNewRenderer_RegistersPassPipelines(t *testing.T) {
	r, dev := newTestRenderer(t)

	assert.Equal(t, []string{PassMain, PassShadow, PassVoxelize}, r.Registry().Passes())

	records := len(r.scene.DrawRecords())
	for pass, slot := range map[string]uint32{PassShadow: 1, PassVoxelize: 2, PassMain: 2} {
		set, ok := r.Registry().Set(pass)
		require.True(t, ok, pass)
		assert.Equal(t, slot, set.StartSlot, pass)
		assert.Len(t, set.Pipelines, records, pass)
	}

	shadow, _ := r.Registry().Set(PassShadow)
	rec, ok := dev.RenderPipelineFor(shadow.Pipelines[0])
	require.True(t, ok)
	assert.Nil(t, rec.Desc.Fragment)
	assert.Equal(t, wgpu.CullModeNone, rec.Desc.Primitive.CullMode)

	voxelize, _ := r.Registry().Set(PassVoxelize)
	rec, _ = dev.RenderPipelineFor(voxelize.Pipelines[0])
	require.NotNil(t, rec.Desc.Fragment)
	require.Len(t, rec.Desc.Fragment.Targets, 1)
	assert.Equal(t, VoxelTargetFormat, rec.Desc.Fragment.Targets[0].Format)
	assert.Equal(t, colorWriteMaskNone, rec.Desc.Fragment.Targets[0].WriteMask)
	assert.Nil(t, rec.Desc.DepthStencil)

	mainSet, _ := r.Registry().Set(PassMain)
	rec, _ = dev.RenderPipelineFor(mainSet.Pipelines[0])
	assert.Equal(t, wgpu.CullModeBack, rec.Desc.Primitive.CullMode)
	assert.Equal(t, wgpu.TextureFormatBGRA8UnormSrgb, rec.Desc.Fragment.Targets[0].Format)
	assert.NotNil(t, rec.Desc.DepthStencil)
}

func TestNewRenderer_BindsVolumeViews(t *testing.T) {
	r, dev := newTestRenderer(t)

	voxelizer, ok := dev.BindGroupFor(r.voxelizerGroup)
	require.True(t, ok)
	require.Len(t, voxelizer.Desc.Entries, 4)
	assert.Same(t, r.shadowMap.View, voxelizer.Desc.Entries[0].TextureView)
	assert.Same(t, r.volume.LevelView(0), voxelizer.Desc.Entries[2].TextureView)
	assert.Same(t, r.lightsBuffer, voxelizer.Desc.Entries[3].Buffer)

	diffuse, ok := dev.BindGroupFor(r.diffuseGroup)
	require.True(t, ok)
	require.Len(t, diffuse.Desc.Entries, 5)
	assert.Same(t, r.volume.View(), diffuse.Desc.Entries[2].TextureView)
	assert.Same(t, r.volume.Sampler(), diffuse.Desc.Entries[3].Sampler)

	shadow, ok := dev.BindGroupFor(r.shadowGroup)
	require.True(t, ok)
	require.Len(t, shadow.Desc.Entries, 1)
	assert.Same(t, r.shadowCameraBuffer, shadow.Desc.Entries[0].Buffer)
}

func TestRenderFrame_StaticLightingRunsOnce(t *testing.T) {
	r, dev := newTestRenderer(t)
	target := new(wgpu.TextureView)

	require.NoError(t, r.RenderFrame(target))
	require.NoError(t, r.RenderFrame(target))

	require.Len(t, dev.Submissions, 2)
	assert.Equal(t, fullFrame, passLabels(dev.Submissions[0]))
	assert.Equal(t, []string{"Main Pass"}, passLabels(dev.Submissions[1]))
	assert.True(t, dev.Submissions[0].Passes[2].Compute)
}

func TestRenderFrame_DynamicLightingEveryFrame(t *testing.T) {
	r, dev := newTestRenderer(t, WithStaticLighting(false))
	target := new(wgpu.TextureView)

	for range 3 {
		require.NoError(t, r.RenderFrame(target))
	}
	require.Len(t, dev.Submissions, 3)
	for _, s := range dev.Submissions {
		assert.Equal(t, fullFrame, passLabels(s))
	}
}

func TestPrepare_RecordsLightingOnce(t *testing.T) {
	r, dev := newTestRenderer(t)

	require.NoError(t, r.Prepare())
	require.NoError(t, r.Prepare())
	require.NoError(t, r.RenderFrame(new(wgpu.TextureView)))

	require.Len(t, dev.Submissions, 2)
	assert.Equal(t, fullFrame[:3], passLabels(dev.Submissions[0]))
	assert.Equal(t, []string{"Main Pass"}, passLabels(dev.Submissions[1]))
}

func TestInvalidate_RerecordsLighting(t *testing.T) {
	r, dev := newTestRenderer(t)
	target := new(wgpu.TextureView)

	require.NoError(t, r.RenderFrame(target))
	r.Invalidate()
	require.NoError(t, r.RenderFrame(target))
	require.NoError(t, r.RenderFrame(target))

	require.Len(t, dev.Submissions, 3)
	assert.Equal(t, fullFrame, passLabels(dev.Submissions[1]))
	assert.Equal(t, []string{"Main Pass"}, passLabels(dev.Submissions[2]))
}

func TestRenderFrame_PassContents(t *testing.T) {
	r, dev := newTestRenderer(t)
	target := new(wgpu.TextureView)
	require.NoError(t, r.RenderFrame(target))

	passes := dev.Submissions[0].Passes
	for _, p := range passes {
		assert.True(t, p.Ended, p.Label)
	}

	shadow := passes[0]
	assert.Empty(t, shadow.Desc.ColorAttachments)
	require.NotNil(t, shadow.Desc.DepthStencilAttachment)
	assert.Same(t, r.shadowMap.View, shadow.Desc.DepthStencilAttachment.View)
	assert.Equal(t, wgpu.LoadOpClear, shadow.Desc.DepthStencilAttachment.DepthLoadOp)
	assert.Equal(t, wgpu.StoreOpStore, shadow.Desc.DepthStencilAttachment.DepthStoreOp)
	assert.EqualValues(t, 1.0, shadow.Desc.DepthStencilAttachment.DepthClearValue)
	groups := shadow.Filter(devicetest.OpSetBindGroup)
	assert.Equal(t, uint32(0), groups[0].Slot)
	assert.Same(t, r.shadowGroup, groups[0].Group)

	voxelize := passes[1]
	require.Len(t, voxelize.Desc.ColorAttachments, 1)
	assert.Same(t, r.voxelTarget, voxelize.Desc.ColorAttachments[0].View)
	assert.Equal(t, wgpu.LoadOpLoad, voxelize.Desc.ColorAttachments[0].LoadOp)
	assert.Equal(t, wgpu.StoreOpDiscard, voxelize.Desc.ColorAttachments[0].StoreOp)
	groups = voxelize.Filter(devicetest.OpSetBindGroup)
	assert.Same(t, r.voxelCameraGroup, groups[0].Group)
	assert.Same(t, r.voxelizerGroup, groups[1].Group)

	mips := passes[2].Filter(devicetest.OpDispatch)
	assert.Len(t, mips, int(r.volume.MipLevelCount()-1))

	mainPass := passes[3]
	require.Len(t, mainPass.Desc.ColorAttachments, 1)
	assert.Same(t, target, mainPass.Desc.ColorAttachments[0].View)
	assert.Equal(t, DefaultClearColor, mainPass.Desc.ColorAttachments[0].ClearValue)
	assert.Same(t, r.depth.View, mainPass.Desc.DepthStencilAttachment.View)
	groups = mainPass.Filter(devicetest.OpSetBindGroup)
	assert.Same(t, r.mainCameraGroup, groups[0].Group)
	assert.Same(t, r.diffuseGroup, groups[1].Group)
	draws := len(mainPass.Filter(devicetest.OpDrawIndexed)) + len(mainPass.Filter(devicetest.OpDraw))
	assert.Equal(t, len(r.scene.DrawRecords()), draws)
}

func TestRenderFrame_NilTarget(t *testing.T) {
	r, dev := newTestRenderer(t)
	assert.ErrorIs(t, r.RenderFrame(nil), ErrNoTarget)
	assert.Empty(t, dev.Submissions)
}

func TestResize(t *testing.T) {
	r, dev := newTestRenderer(t)
	before := r.depth

	require.NoError(t, r.Resize(0, 100))
	assert.Same(t, before, r.depth)

	require.NoError(t, r.Resize(300, 100))
	assert.NotSame(t, before, r.depth)
	assert.InDelta(t, 3.0, r.Camera().Aspect(), 1e-6)

	rec := dev.TextureFor(r.depth.Texture)
	require.NotNil(t, rec)
	assert.Equal(t, uint32(300), rec.Desc.Size.Width)
	assert.Equal(t, uint32(100), rec.Desc.Size.Height)
}

func TestSetLights_UploadsAndInvalidates(t *testing.T) {
	r, dev := newTestRenderer(t)
	target := new(wgpu.TextureView)
	require.NoError(t, r.RenderFrame(target))

	sun := light.NewLight(light.LightTypeDirectional, light.WithDirection(0, -1, 0))
	require.NoError(t, r.SetLights([]light.Light{sun}))

	data := dev.BufferFor(r.lightsBuffer).Data
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(data[12:16]))

	require.NoError(t, r.RenderFrame(target))
	assert.Equal(t, fullFrame, passLabels(dev.Submissions[1]))
}

func TestNewRenderer_DefaultLights(t *testing.T) {
	r, dev := newTestRenderer(t)

	assert.Len(t, r.Lights(), 3)
	data := dev.BufferFor(r.lightsBuffer).Data
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(data[12:16]))
}
